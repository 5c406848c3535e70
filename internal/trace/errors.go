package trace

import (
	"errors"
	"fmt"
)

// Pipeline stages, used to label failures.
const (
	StageLoad      = "load"
	StageValidate  = "validate"
	StageFilter    = "filter"
	StageMolar     = "molar"
	StageTransform = "transform"
	StageEncode    = "encode"
	StageSimulate  = "simulate"
	StageContour   = "contour"
)

// MissingColumnError means a configured column is absent from the trace's
// table or source row.
type MissingColumnError struct {
	TraceID string
	Column  string
	Err     error
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("trace %s: column %q not found", e.TraceID, e.Column)
}

func (e *MissingColumnError) Unwrap() error { return e.Err }

// MolarConversionError means no formula could be derived for a column. The
// column is left out of its apex sum.
type MolarConversionError struct {
	TraceID string
	Column  string
	Formula string
	Err     error
}

func (e *MolarConversionError) Error() string {
	if e.Formula != "" {
		return fmt.Sprintf("trace %s: cannot convert column %q to molar (tried %q): %v", e.TraceID, e.Column, e.Formula, e.Err)
	}
	return fmt.Sprintf("trace %s: cannot convert column %q to molar: %v", e.TraceID, e.Column, e.Err)
}

func (e *MolarConversionError) Unwrap() error { return e.Err }

// InvalidFormulaError means a configured formula does not parse.
type InvalidFormulaError struct {
	TraceID string
	Column  string
	Formula string
	Err     error
}

func (e *InvalidFormulaError) Error() string {
	return fmt.Sprintf("trace %s: invalid formula %q for column %q: %v", e.TraceID, e.Formula, e.Column, e.Err)
}

func (e *InvalidFormulaError) Unwrap() error { return e.Err }

// FilterValueError means a filter operand could not be parsed for its column.
type FilterValueError struct {
	TraceID  string
	FilterID string
	Column   string
	Err      error
}

func (e *FilterValueError) Error() string {
	return fmt.Sprintf("trace %s: filter %s on %q: %v", e.TraceID, e.FilterID, e.Column, e.Err)
}

func (e *FilterValueError) Unwrap() error { return e.Err }

// ContourExtractionError means no usable contour exists for the simulated
// points, typically because they are degenerate or too concentrated.
type ContourExtractionError struct {
	TraceID string
	Level   float64
	Err     error
}

func (e *ContourExtractionError) Error() string {
	return fmt.Sprintf("trace %s: contour extraction failed: %v", e.TraceID, e.Err)
}

func (e *ContourExtractionError) Unwrap() error { return e.Err }

// Error is any other per-trace failure, labelled with the stage it came from.
type Error struct {
	TraceID string
	Stage   string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("trace %s: %s: %v", e.TraceID, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Stage names the pipeline stage an error belongs to.
func Stage(err error) string {
	var (
		mc *MissingColumnError
		mo *MolarConversionError
		fe *InvalidFormulaError
		fv *FilterValueError
		ce *ContourExtractionError
		te *Error
	)
	switch {
	case errors.As(err, &te):
		return te.Stage
	case errors.As(err, &fv):
		return StageFilter
	case errors.As(err, &mo), errors.As(err, &fe):
		return StageMolar
	case errors.As(err, &ce):
		return StageContour
	case errors.As(err, &mc):
		return StageTransform
	}
	return "unknown"
}
