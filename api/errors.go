package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-kinde-auth/autherrors"
)

// NotAuthenticatedCode is the StatusCode of a BearerError raised because no
// valid access token could be obtained.
const NotAuthenticatedCode = http.StatusUnauthorized

// BearerError is returned when the bearer token could not be attached to a
// request. StatusCode is NotAuthenticatedCode for authentication failures and
// -1 for anything else.
type BearerError struct {
	StatusCode int
	Err        error
}

func (e *BearerError) Error() string {
	return fmt.Sprintf("failed to attach bearer token (%d): %v", e.StatusCode, e.Err)
}

func (e *BearerError) Unwrap() error {
	return e.Err
}

func newBearerError(err error) *BearerError {
	code := -1
	if errors.Is(err, autherrors.ErrNotAuthenticated) {
		code = NotAuthenticatedCode
	}
	return &BearerError{StatusCode: code, Err: err}
}

// RequiresReauthentication reports whether err means the user has to go
// through an authorization flow again.
func RequiresReauthentication(err error) bool {
	var bearerErr *BearerError
	if errors.As(err, &bearerErr) && bearerErr.StatusCode == NotAuthenticatedCode {
		return true
	}
	var serverErr *autherrors.ServerError
	return errors.As(err, &serverErr) && serverErr.StatusCode == http.StatusUnauthorized
}
