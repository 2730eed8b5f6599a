package oauthmodel

import (
	"crypto/subtle"
	"net/url"

	"github.com/jrsteele09/go-kinde-auth/autherrors"
)

// CallbackResponse holds the parameters the authorization server appends to
// the redirect URI.
type CallbackResponse struct {
	// Code is the authorization code to exchange at the token endpoint.
	// Present on success.
	Code string

	// State echoes the state sent in the authorization request.
	State string

	// Error is the OAuth2 error code on failure.
	// Example: "access_denied"
	Error string

	// ErrorDescription is a human readable explanation of Error.
	ErrorDescription string
}

// ParseCallback reads the callback parameters from the query string, falling
// back to the fragment when the query carries none.
func ParseCallback(u *url.URL) (*CallbackResponse, error) {
	if u == nil {
		return nil, ErrInvalidCallback
	}

	values := u.Query()
	if values.Get("code") == "" && values.Get("error") == "" && u.Fragment != "" {
		fragment, err := url.ParseQuery(u.Fragment)
		if err != nil {
			return nil, ErrInvalidCallback
		}
		values = fragment
	}

	return &CallbackResponse{
		Code:             values.Get("code"),
		State:            values.Get("state"),
		Error:            values.Get("error"),
		ErrorDescription: values.Get("error_description"),
	}, nil
}

// Validate checks the response against the state sent in the request. OAuth
// errors and a state mismatch are reported as *autherrors.FlowError.
func (c *CallbackResponse) Validate(expectedState string) error {
	if c.Error != "" {
		return &autherrors.FlowError{
			Domain:      autherrors.DomainOAuthAuthorization,
			Code:        autherrors.CodeOAuthError,
			Description: c.Error + describe(c.ErrorDescription),
		}
	}
	if subtle.ConstantTimeCompare([]byte(c.State), []byte(expectedState)) != 1 {
		return &autherrors.FlowError{
			Domain:      autherrors.DomainGeneral,
			Code:        autherrors.CodeStateMismatch,
			Description: "state returned by the authorization server does not match the request",
		}
	}
	if c.Code == "" {
		return ErrMissingCode
	}
	return nil
}

func describe(description string) string {
	if description == "" {
		return ""
	}
	return ": " + description
}
