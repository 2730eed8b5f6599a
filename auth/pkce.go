package auth

import (
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/oauth2"
)

// generateRandomString creates a random base64url string from length bytes
func generateRandomString(length int) string {
	b := make([]byte, length)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// generateCodeVerifier returns a PKCE verifier made from 32 random bytes
func generateCodeVerifier() string {
	return oauth2.GenerateVerifier()
}

// generateCodeChallenge derives the S256 challenge: base64url(sha256(verifier)) without padding
func generateCodeChallenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}
