// Package decoder turns staged binary chunks into per-subject, per-signal
// flat tables and reorganizes them into experimental-group folders. Chunks
// are appended in lexical filename order within each subject, so splitting
// a session across chunks never reorders its samples.
package decoder
