package scenario

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidParams is matched by *ValidationError.
	ErrInvalidParams = errors.New("invalid scenario parameters")
	// ErrNoData is matched by *NoDataError.
	ErrNoData = errors.New("no requested site has baseline data")
	// ErrNotFound is returned for unknown saved scenarios.
	ErrNotFound = errors.New("saved scenario not found")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("%s: %s", ErrInvalidParams, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidParams
}

// NoDataError carries the per-site reasons when every site was excluded.
type NoDataError struct {
	Excluded []Exclusion
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("%s (%d sites excluded)", ErrNoData, len(e.Excluded))
}

func (e *NoDataError) Is(target error) bool {
	return target == ErrNoData
}
