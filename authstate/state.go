package authstate

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/jrsteele09/go-kinde-auth/autherrors"
	"golang.org/x/oauth2"
)

// TokenType chooses between the access and ID token of a State.
type TokenType int

const (
	AccessToken TokenType = iota
	IDToken
)

func (t TokenType) String() string {
	if t == IDToken {
		return "id_token"
	}
	return "access_token"
}

// Provider holds what is needed to talk to the token endpoint again after a
// restart without repeating discovery.
type Provider struct {
	Issuer        string   `json:"issuer"`
	AuthURL       string   `json:"auth_url"`
	TokenURL      string   `json:"token_url"`
	EndSessionURL string   `json:"end_session_url,omitempty"`
	ClientID      string   `json:"client_id"`
	RedirectURL   string   `json:"redirect_url"`
	Scopes        []string `json:"scopes,omitempty"`
}

// State is the token bundle produced by a completed authorization flow.
// A State is never mutated after construction; refreshes produce a new value.
type State struct {
	AccessToken  string    `json:"access_token"`
	IDToken      string    `json:"id_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	Authorized   bool      `json:"authorized"`
	LastError    string    `json:"last_error,omitempty"`
	Provider     Provider  `json:"provider"`
}

// FromToken builds an authorized State from a token endpoint response.
func FromToken(tok *oauth2.Token, provider Provider) *State {
	s := &State{Provider: provider}
	return s.WithToken(tok)
}

// WithToken returns a copy of s updated from a token endpoint response. The ID
// token and refresh token are kept when the response does not carry new ones.
func (s *State) WithToken(tok *oauth2.Token) *State {
	updated := s.clone()
	updated.AccessToken = tok.AccessToken
	updated.TokenType = tok.TokenType
	updated.Expiry = tok.Expiry
	updated.Authorized = true
	updated.LastError = ""
	if tok.RefreshToken != "" {
		updated.RefreshToken = tok.RefreshToken
	}
	if idToken, ok := tok.Extra("id_token").(string); ok && idToken != "" {
		updated.IDToken = idToken
	}
	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		updated.Scope = scope
	}
	return updated
}

// WithAuthorizationError returns a copy of s recording a failed refresh. An
// error response from the token endpoint (for example invalid_grant) means
// the grant is no longer usable so the copy is no longer authorized; transport
// errors leave the authorization flag alone.
func (s *State) WithAuthorizationError(err error) *State {
	updated := s.clone()
	updated.LastError = err.Error()
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		updated.Authorized = false
	}
	return updated
}

// Token converts s into an oauth2.Token suitable for use with a TokenSource.
func (s *State) Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		RefreshToken: s.RefreshToken,
		Expiry:       s.Expiry,
	}
	return tok.WithExtra(map[string]any{"id_token": s.IDToken})
}

// OAuth2Config rebuilds the client configuration recorded in the state.
func (s *State) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID: s.Provider.ClientID,
		Endpoint: oauth2.Endpoint{
			AuthURL:   s.Provider.AuthURL,
			TokenURL:  s.Provider.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: s.Provider.RedirectURL,
		Scopes:      s.Provider.Scopes,
	}
}

// Raw returns the requested token string, or "" if that token is absent.
func (s *State) Raw(t TokenType) string {
	if s == nil {
		return ""
	}
	if t == IDToken {
		return s.IDToken
	}
	return s.AccessToken
}

// IsAuthenticated reports whether s is authorized and holds an access token
// that is still valid at now.
func (s *State) IsAuthenticated(now time.Time) bool {
	if s == nil || !s.Authorized || s.AccessToken == "" || s.Expiry.IsZero() {
		return false
	}
	return s.Expiry.After(now)
}

// Marshal serializes s for the credential store.
func (s *State) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal parses a blob produced by Marshal.
func Unmarshal(blob []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(blob, &s); err != nil {
		return nil, autherrors.Wrapf(err, "failed to decode authentication state")
	}
	return &s, nil
}

func (s *State) clone() *State {
	c := *s
	c.Provider.Scopes = append([]string(nil), s.Provider.Scopes...)
	return &c
}
