package chart

import (
	"errors"
	"fmt"

	"chartdeck/internal/dataset"
)

var (
	// ErrUnsupportedType is returned for an absent or unknown chart type.
	ErrUnsupportedType = errors.New("unsupported chart type")
	// ErrMissingField is matched by every *MissingFieldError.
	ErrMissingField = errors.New("missing required field")
	// ErrUnknownPalette is returned for a color_scheme outside the palette set.
	ErrUnknownPalette = errors.New("unknown color scheme")
	// ErrInvalidOption is returned for option values out of range.
	ErrInvalidOption = errors.New("invalid chart option")

	// ErrUnknownColumn and ErrNotNumeric are shared with the dataset package
	// so callers can match either.
	ErrUnknownColumn = dataset.ErrUnknownColumn
	ErrNotNumeric    = dataset.ErrNotNumeric
)

// MissingFieldError names the configuration field a chart type requires.
type MissingFieldError struct {
	Type  Type
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s chart requires %s", e.Type, e.Field)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// ColumnError reports a configuration field pointing at an unusable column.
type ColumnError struct {
	Field  string
	Column string
	Err    error
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Column, e.Err)
}

func (e *ColumnError) Unwrap() error { return e.Err }
