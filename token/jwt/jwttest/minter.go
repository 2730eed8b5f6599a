// Package jwttest mints HS256 tokens for tests. Signatures are never
// verified by the SDK.
package jwttest

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Key signs every minted token.
var Key = []byte("test-secret")

// Mint signs claims as they are given.
func Mint(t testing.TB, claims jwtlib.MapClaims) string {
	t.Helper()
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(Key)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return raw
}

// IDToken creates an OpenID Connect ID token for email. The nonce claim is
// only set when nonce is not empty.
func IDToken(t testing.TB, issuer, clientID, subject, email, nonce string) string {
	t.Helper()
	claims := jwtlib.MapClaims{
		"iss":   issuer,
		"sub":   subject,
		"aud":   clientID,
		"email": email,
		"iat":   NowTimeFunc().Unix(),
		"exp":   NowTimeFunc().Add(time.Hour).Unix(),
		"jti":   uuid.NewString(),
	}
	if nonce != "" {
		claims["nonce"] = nonce
	}
	return Mint(t, claims)
}

// AccessToken adds the registered claims a Kinde access token carries to
// extra, which wins on conflicts.
func AccessToken(t testing.TB, issuer, subject string, expiresIn time.Duration, extra jwtlib.MapClaims) string {
	t.Helper()
	claims := jwtlib.MapClaims{
		"iss": issuer,
		"sub": subject,
		"iat": NowTimeFunc().Unix(),
		"exp": NowTimeFunc().Add(expiresIn).Unix(),
		"jti": uuid.NewString(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	return Mint(t, claims)
}
