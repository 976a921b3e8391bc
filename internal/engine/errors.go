package engine

import (
	"fmt"
)

// SchemaError reports a required column missing from a non-optional input
// table. It is not recoverable locally and is surfaced to the caller.
type SchemaError struct {
	Table  string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %q is missing required column %q", e.Table, e.Column)
}

// InsufficientDataError reports fewer data points than an algorithm needs,
// e.g. fewer than 2 points for a linear fit.
type InsufficientDataError struct {
	Op   string
	Need int
	Got  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: need at least %d data points, got %d", e.Op, e.Need, e.Got)
}

// DataUnavailableError reports that an optional analytic table (LTV,
// order intervals, attribution) was not loaded. The affected component
// returns this instead of partial output; the rest of the engine is
// unaffected.
type DataUnavailableError struct {
	Table string
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("analytic table %q unavailable", e.Table)
}
