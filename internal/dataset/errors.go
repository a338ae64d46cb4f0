package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for file extensions or export formats
	// the loader does not handle.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrParse is returned when file content cannot be decoded.
	ErrParse = errors.New("parse failure")
	// ErrUnknownColumn is returned when an operation names a missing column.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrNotNumeric is returned when a numeric operation targets a non-numeric column.
	ErrNotNumeric = errors.New("column is not numeric")
	// ErrInvalidOperation is returned for unknown filter, clean or derive operations.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrShape is returned when columns disagree in length or names collide.
	ErrShape = errors.New("inconsistent dataset shape")
)

// ColumnError reports a problem with a named column.
type ColumnError struct {
	Column string
	Err    error
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %q: %v", e.Column, e.Err)
}

func (e *ColumnError) Unwrap() error { return e.Err }

func columnErr(name string, err error) error {
	return &ColumnError{Column: name, Err: err}
}
