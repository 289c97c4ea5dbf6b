package shared

import "fmt"

// ValidationError indicates a malformed or contradictory request.
// It is user-fixable and propagates to the caller verbatim.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ForbiddenError indicates a well-formed request the caller is not permitted to make
type ForbiddenError struct {
	Reason string
}

func (e ForbiddenError) Error() string {
	return "forbidden: " + e.Reason
}
