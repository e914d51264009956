package ingestion

import "fmt"

// ParseError reports a field value that could not be normalized. It names
// the source file and the offending value so a failed export can be fixed
// by hand.
type ParseError struct {
	File  string
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: bad %s %q: %v", e.File, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
