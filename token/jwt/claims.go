// Package jwt reads the payload of a JWT without verifying its signature.
//
// Claims are a convenience for presenting identity and authorization data in
// the application. They are not a trust boundary: nothing here checks the
// signature, exp, nbf or aud, so callers must not treat decoded claims as
// cryptographically verified.
package jwt

import (
	"bytes"
	"encoding/json"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Well known claim names.
const (
	ClaimSubject           = "sub"
	ClaimEmail             = "email"
	ClaimGivenName         = "given_name"
	ClaimFamilyName        = "family_name"
	ClaimPicture           = "picture"
	ClaimPermissions       = "permissions"
	ClaimRoles             = "roles"
	ClaimOrgCode           = "org_code"
	ClaimOrgCodes          = "org_codes"
	ClaimFeatureFlags      = "feature_flags"
	ClaimEntitlements      = "entitlements"
	ClaimNonce             = "nonce"
	ClaimExpiry            = "exp"
	ClaimIssuer            = "iss"
	ClaimAudience          = "aud"
	ClaimIssuedAt          = "iat"
	ClaimAuthorizedParties = "azp"
)

// Claims is the decoded payload of a token.
type Claims map[string]Value

var segmentParser = jwtlib.NewParser(jwtlib.WithPaddingAllowed())

// Decode returns the claims held in the payload segment of raw. Tokens with
// fewer than two segments, or a payload that is not a base64url encoded JSON
// object, decode to an empty claim set.
func Decode(raw string) Claims {
	segments := strings.Split(strings.TrimSpace(raw), ".")
	if len(segments) < 2 {
		return Claims{}
	}

	payload, err := segmentParser.DecodeSegment(segments[1])
	if err != nil {
		return Claims{}
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var object map[string]any
	if err := dec.Decode(&object); err != nil || object == nil {
		return Claims{}
	}

	claims := make(Claims, len(object))
	for k, v := range object {
		claims[k] = FromAny(v)
	}
	return claims
}

// Get returns the claim named key.
func (c Claims) Get(key string) (Value, bool) {
	v, ok := c[key]
	return v, ok
}

// String returns a string claim, or "" if it is missing or not a string.
func (c Claims) String(key string) string {
	s, _ := c[key].AsString()
	return s
}

// Strings returns the string members of an array claim.
func (c Claims) Strings(key string) []string {
	return c[key].Strings()
}
