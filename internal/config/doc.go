// Package config loads, normalizes, and validates biopipe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the pipeline needs — the stage directory tree, the participant metadata
// location, segmentation rules, and extraction parameters — so each stage
// receives one explicit configuration structure instead of re-deriving paths.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
