package domain

import (
	"errors"
	"fmt"
)

// Pipeline error categories. Use errors.Is against these.
var (
	ErrInputSchema         = errors.New("input schema error")
	ErrInsufficientData    = errors.New("insufficient data")
	ErrUnclassifiedSegment = errors.New("unclassified segment")
	ErrOutputWrite         = errors.New("output write error")
)

// InputSchemaError reports a missing column or an unparseable/invalid value.
// Row is the 1-based data row (0 when the problem is in the header).
type InputSchemaError struct {
	Row    int
	Column string
	Value  string
	Reason string
}

func (e *InputSchemaError) Error() string {
	switch {
	case e.Row == 0:
		return fmt.Sprintf("%s: column %q: %s", ErrInputSchema, e.Column, e.Reason)
	case e.Value != "":
		return fmt.Sprintf("%s: row %d column %q value %q: %s", ErrInputSchema, e.Row, e.Column, e.Value, e.Reason)
	default:
		return fmt.Sprintf("%s: row %d column %q: %s", ErrInputSchema, e.Row, e.Column, e.Reason)
	}
}

func (e *InputSchemaError) Unwrap() error { return ErrInputSchema }

// InsufficientDataError is returned when quintile scoring cannot produce 5 buckets.
type InsufficientDataError struct {
	Customers int
	Required  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: %d customers, quintile scoring needs at least %d",
		ErrInsufficientData, e.Customers, e.Required)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// UnclassifiedSegmentError means an (R, F) pair matched no segment rule.
// This is a logic defect, never an input problem.
type UnclassifiedSegmentError struct {
	CustomerID string
	R, F       int
}

func (e *UnclassifiedSegmentError) Error() string {
	return fmt.Sprintf("%s: customer %s has R=%d F=%d", ErrUnclassifiedSegment, e.CustomerID, e.R, e.F)
}

func (e *UnclassifiedSegmentError) Unwrap() error { return ErrUnclassifiedSegment }

// OutputWriteError wraps a failure to write an artifact to its destination.
type OutputWriteError struct {
	Destination string
	Err         error
}

func (e *OutputWriteError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrOutputWrite, e.Destination, e.Err)
}

func (e *OutputWriteError) Unwrap() []error { return []error{ErrOutputWrite, e.Err} }
