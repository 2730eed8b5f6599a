package auth

import (
	"context"
	"net/url"
)

// AuthorizationRequest is what a UserAgent presents to the user.
type AuthorizationRequest struct {
	URL         *url.URL // Fully built authorization URL
	RedirectURL *url.URL // The agent returns once it is redirected here
	State       string
	Ephemeral   bool // Ask for a private session that shares no cookies with the browser
}

// UserAgent presents the authorization request (usually in a browser) and
// blocks until the authorization server redirects back to RedirectURL,
// returning the full redirect URL. When the user abandons the flow it must
// return an error for which autherrors.IsUserCancellation is true.
type UserAgent interface {
	Present(ctx context.Context, req AuthorizationRequest) (*url.URL, error)
}

// UserAgentFunc adapts a function to the UserAgent interface.
type UserAgentFunc func(ctx context.Context, req AuthorizationRequest) (*url.URL, error)

func (f UserAgentFunc) Present(ctx context.Context, req AuthorizationRequest) (*url.URL, error) {
	return f(ctx, req)
}
