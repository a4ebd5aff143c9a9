package consent

import "fmt"

// DecodeError indicates a request document could not be parsed at all.
// Documents that parse but carry bad values are not errors; they fail closed
// during evaluation.
type DecodeError struct {
	Format string
	Cause  error
}

// Error returns the error message.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s request: %v", e.Format, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// NewDecodeError creates a new DecodeError.
func NewDecodeError(format string, cause error) *DecodeError {
	return &DecodeError{Format: format, Cause: cause}
}
