// Package stager materializes the canonical raw/<date>/<subjectID> tree from
// date-keyed device session folders, driven by the participant metadata table.
package stager
