// Package config holds the SDK configuration issued by the Kinde business:
// the issuer, the client identifier and the redirect URIs registered for the
// application. A Config is immutable once loaded.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-kinde-auth/autherrors"
)

// DefaultScope is used when the configuration does not name any scopes.
var DefaultScope = strings.Join([]string{oidc.ScopeOpenID, "profile", "email", "offline"}, " ")

// Config is the SDK configuration.
type Config struct {
	Issuer                string `json:"issuer"`                // e.g. "https://example.kinde.com"
	ClientID              string `json:"clientId"`              // Application client ID
	RedirectURI           string `json:"redirectUri"`           // Where the authorization server sends the user back
	PostLogoutRedirectURI string `json:"postLogoutRedirectUri"` // Where the user lands after logout
	Scope                 string `json:"scope"`                 // Space separated scopes
	Audience              string `json:"audience,omitempty"`    // Optional API audience
}

// IssuerURL returns the parsed issuer, or nil if it is empty or not an absolute URL.
func (c Config) IssuerURL() *url.URL {
	u, err := url.Parse(strings.TrimSpace(c.Issuer))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil
	}
	return u
}

// RedirectURL returns the parsed redirect URI, or nil if it is empty or has no scheme.
func (c Config) RedirectURL() *url.URL {
	return parseRedirect(c.RedirectURI)
}

// PostLogoutRedirectURL returns the parsed post logout redirect URI, or nil if it is empty or has no scheme.
func (c Config) PostLogoutRedirectURL() *url.URL {
	return parseRedirect(c.PostLogoutRedirectURI)
}

// Scopes splits the scope string, falling back to DefaultScope.
func (c Config) Scopes() []string {
	scopes := strings.Fields(c.Scope)
	if len(scopes) == 0 {
		return strings.Fields(DefaultScope)
	}
	return scopes
}

// BusinessName is the first label of the issuer host ("example" for
// "https://example.kinde.com").
func (c Config) BusinessName() string {
	issuer := c.IssuerURL()
	if issuer == nil {
		return ""
	}
	name, _, _ := strings.Cut(issuer.Hostname(), ".")
	return name
}

// Validate checks the fields every flow depends on.
func (c Config) Validate() error {
	if c.IssuerURL() == nil {
		return fmt.Errorf("%w: issuer %q is not a valid URL", autherrors.ErrConfiguration, c.Issuer)
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return fmt.Errorf("%w: client id is required", autherrors.ErrConfiguration)
	}
	if c.RedirectURL() == nil {
		return fmt.Errorf("%w: redirect uri %q is not a valid URL", autherrors.ErrConfiguration, c.RedirectURI)
	}
	return nil
}

func parseRedirect(raw string) *url.URL {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" {
		return nil
	}
	return u
}
