/*
errors.go - Centralized error types for the allocation core

PURPOSE:
  All error types in one place. The engine itself has no fallible paths
  given validated input (insufficient stock is a backorder row, not an
  error), so everything here belongs to the boundary: request validation
  and store access.

SEE ALSO:
  - validate.go: Produces the FieldError lists carried by ValidationError
  - store.go: Store operations returning ErrLotNotFound
*/
package allocation

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrLotNotFound is returned when a store operation references a lot ID
	// that does not exist.
	ErrLotNotFound = errors.New("lot not found")

	// ErrValidation is the sentinel wrapped by every ValidationError.
	ErrValidation = errors.New("validation failed")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// FieldError is one validation failure: which field, and why.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError aggregates every field failure of one request. It is
// produced at the boundary and rejected to the caller before the engine
// ever sees the request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	reasons := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		reasons[i] = fmt.Sprintf("%s: %s", f.Field, f.Reason)
	}
	return "validation failed: " + strings.Join(reasons, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
