package autherrors

import (
	"errors"
	"fmt"
)

// Common error types for the Kinde client SDK
var (
	// Configuration and authentication state errors
	ErrConfiguration     = errors.New("failed to retrieve local or remote configuration")
	ErrNotAuthenticated  = errors.New("failed to obtain valid authentication state")
	ErrFailedToSaveState = errors.New("failed to save authentication state on device")

	// Account API errors
	ErrInvalidURL      = errors.New("invalid url")
	ErrInvalidResponse = errors.New("invalid response")
	ErrDecoding        = errors.New("failed to decode response")

	// Feature flag errors
	ErrFlagNotFound      = errors.New("this flag was not found, and no default value has been provided")
	ErrFlagUnknown       = errors.New("an unknown error occurred, couldn't read feature flag")
	ErrFlagIncorrectType = errors.New("incorrect flag type")
)

// ServerError is returned when the Account API responds with a non-success status code.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned an error with status code: %d", e.StatusCode)
}

// IncorrectTypeError is returned when a flag exists but holds a different type to the one requested.
type IncorrectTypeError struct {
	Code      string
	Actual    string
	Requested string
}

func (e *IncorrectTypeError) Error() string {
	return fmt.Sprintf("flag %q is of type %s, requested type %s", e.Code, e.Actual, e.Requested)
}

// Is lets errors.Is(err, ErrFlagIncorrectType) match any IncorrectTypeError.
func (e *IncorrectTypeError) Is(target error) bool {
	return target == ErrFlagIncorrectType
}

// Wrapf prefixes err with a formatted message, keeping it matchable with
// errors.Is. A nil err stays nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
