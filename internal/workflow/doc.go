// Package workflow drives the pipeline stages in dependency order: staging,
// decoding, segmentation, extraction. It owns the workspace lock and the run
// log, and halts the remaining stages when an upstream stage comes back
// empty.
package workflow
