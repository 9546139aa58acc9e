// Package pipeline defines the shared error taxonomy for the four ETL stages.
//
// Expected absences (a date with no synced recording, an empty table) are not
// errors at all: stages log them and continue. Everything that does surface as
// an error is tagged with one of the sentinel markers here so the workflow
// manager can tell "halt the run" (ErrNoInput, ErrConfiguration) from
// "exclude the unit and keep going" (ErrDecode, ErrProcess).
package pipeline
