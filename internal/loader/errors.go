package loader

import (
	"fmt"
	"strings"
)

// DataLoadError reports that a source could not be reached or its container
// could not be read
type DataLoadError struct {
	Source string
	Cause  error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("failed to load data from %s: %v", e.Source, e.Cause)
}

func (e *DataLoadError) Unwrap() error {
	return e.Cause
}

// SchemaError reports a missing table or column, or a cell that cannot be
// converted to the column's type
type SchemaError struct {
	Table string
	// Missing lists required columns absent from the table header
	Missing []string
	// NoTable is set when the table itself is absent
	NoTable bool

	Column string
	Row    int
	Value  string
	Cause  error
}

func (e *SchemaError) Error() string {
	switch {
	case e.NoTable:
		return fmt.Sprintf("table %q not found", e.Table)
	case len(e.Missing) > 0:
		return fmt.Sprintf("table %q is missing columns: %s", e.Table, strings.Join(e.Missing, ", "))
	default:
		return fmt.Sprintf("table %q: invalid value %q in column %s at row %d: %v",
			e.Table, e.Value, e.Column, e.Row, e.Cause)
	}
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}
