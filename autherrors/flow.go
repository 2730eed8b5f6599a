package autherrors

import (
	"errors"
	"fmt"
)

// Error domains reported by an authorization flow.
const (
	DomainGeneral            = "general"
	DomainOAuthAuthorization = "oauth_authorization"
	DomainOAuthToken         = "oauth_token"
)

// Error codes in DomainGeneral.
const (
	CodeInvalidDiscoveryDocument      = -2
	CodeUserCanceledAuthorizationFlow = -3
	CodeProgramCanceledFlow           = -4
	CodeNetworkError                  = -5
	CodeServerError                   = -6
	CodeStateMismatch                 = -15
	CodeNonceMismatch                 = -16
)

// Error codes in DomainOAuthAuthorization and DomainOAuthToken.
const (
	CodeOAuthError = -10
)

// FlowError describes why an authorization flow did not produce a new
// authentication state.
type FlowError struct {
	Domain      string
	Code        int
	Description string
	Err         error
}

func (e *FlowError) Error() string {
	msg := fmt.Sprintf("authorization flow failed (%s %d)", e.Domain, e.Code)
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// NewUserCancellation returns the error reported when the user dismisses the
// external user agent.
func NewUserCancellation(err error) *FlowError {
	return &FlowError{
		Domain:      DomainGeneral,
		Code:        CodeUserCanceledAuthorizationFlow,
		Description: "the user cancelled the authorization flow",
		Err:         err,
	}
}

// IsUserCancellation reports whether err was caused by the user cancelling
// the authorization flow. UIs use it to suppress error alerts.
func IsUserCancellation(err error) bool {
	var flowErr *FlowError
	if !errors.As(err, &flowErr) {
		return false
	}
	return flowErr.Domain == DomainGeneral && flowErr.Code == CodeUserCanceledAuthorizationFlow
}
