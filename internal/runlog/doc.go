// Package runlog persists pipeline invocations and their stage-level events
// in a SQLite database under the log directory, so past runs stay inspectable
// from the CLI after the fact.
package runlog
