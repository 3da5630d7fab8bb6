package store

import "fmt"

// DataLoadError is returned when a source cannot become a store: it is
// unreadable, empty, malformed at the header, missing a declared column, or
// (in strict mode) carries a value that does not match its column's kind.
// Loading is all-or-nothing; no partial store accompanies this error.
type DataLoadError struct {
	Source string
	Reason string
	Err    error
}

func (e *DataLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("load %s: %s", e.Source, e.Reason)
}

func (e *DataLoadError) Unwrap() error { return e.Err }
