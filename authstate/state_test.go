package authstate_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jrsteele09/go-kinde-auth/authstate"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestState_IsAuthenticated(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("nil state", func(t *testing.T) {
		var s *authstate.State
		require.False(t, s.IsAuthenticated(now))
		require.Equal(t, "", s.Raw(authstate.AccessToken))
	})

	t.Run("valid", func(t *testing.T) {
		require.True(t, newState("a", now.Add(time.Second)).IsAuthenticated(now))
	})

	t.Run("expiry equal to now", func(t *testing.T) {
		require.False(t, newState("a", now).IsAuthenticated(now))
	})

	t.Run("expired", func(t *testing.T) {
		require.False(t, newState("a", now.Add(-time.Second)).IsAuthenticated(now))
	})

	t.Run("no expiry", func(t *testing.T) {
		require.False(t, newState("a", time.Time{}).IsAuthenticated(now))
	})

	t.Run("not authorized", func(t *testing.T) {
		s := newState("a", now.Add(time.Hour)).WithAuthorizationError(&oauth2.RetrieveError{ErrorCode: "invalid_grant"})
		require.False(t, s.Authorized)
		require.False(t, s.IsAuthenticated(now))
	})

	t.Run("no access token", func(t *testing.T) {
		s := newState("", now.Add(time.Hour))
		require.True(t, s.Authorized)
		require.False(t, s.IsAuthenticated(now))
	})
}

func TestState_WithToken(t *testing.T) {
	original := newState("a", time.Now().Add(time.Minute))

	updated := original.WithToken(&oauth2.Token{AccessToken: "b", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)})

	require.Equal(t, "a", original.AccessToken)
	require.Equal(t, "b", updated.AccessToken)
	require.Equal(t, original.IDToken, updated.IDToken)
	require.Equal(t, original.RefreshToken, updated.RefreshToken)

	withID := original.WithToken((&oauth2.Token{AccessToken: "c", RefreshToken: "r2"}).WithExtra(map[string]any{"id_token": "id-c", "scope": "openid"}))
	require.Equal(t, "id-c", withID.IDToken)
	require.Equal(t, "r2", withID.RefreshToken)
	require.Equal(t, "openid", withID.Scope)
}

func TestState_WithAuthorizationError(t *testing.T) {
	s := newState("a", time.Now().Add(time.Hour))

	network := s.WithAuthorizationError(errors.New("dial tcp: connection refused"))
	require.True(t, network.Authorized)
	require.Contains(t, network.LastError, "connection refused")

	oauthErr := s.WithAuthorizationError(&oauth2.RetrieveError{ErrorCode: "invalid_grant"})
	require.False(t, oauthErr.Authorized)
	require.True(t, s.Authorized)
}

func TestState_TokenAndConfig(t *testing.T) {
	s := newState("a", time.Now().Add(time.Hour))

	tok := s.Token()
	require.Equal(t, "a", tok.AccessToken)
	require.Equal(t, "refresh-a", tok.RefreshToken)
	require.Equal(t, "id-a", tok.Extra("id_token"))
	require.Equal(t, "id-a", s.Raw(authstate.IDToken))

	cfg := s.OAuth2Config()
	require.Equal(t, "client-1", cfg.ClientID)
	require.Equal(t, testProvider.TokenURL, cfg.Endpoint.TokenURL)
	require.Equal(t, oauth2.AuthStyleInParams, cfg.Endpoint.AuthStyle)
	require.Equal(t, []string{"openid", "offline"}, cfg.Scopes)
}

func TestUnmarshal(t *testing.T) {
	_, err := authstate.Unmarshal([]byte("{"))
	require.ErrorContains(t, err, "failed to decode authentication state: ")
	var syntaxErr *json.SyntaxError
	require.ErrorAs(t, err, &syntaxErr)

	blob, err := newState("a", time.Now().Add(time.Hour)).Marshal()
	require.NoError(t, err)
	s, err := authstate.Unmarshal(blob)
	require.NoError(t, err)
	require.Equal(t, "a", s.AccessToken)
}
