package claims

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-kinde-auth/authstate"
	"github.com/jrsteele09/go-kinde-auth/token/jwt"
)

// GetEntitlements returns the access token's entitlements claim as a map. The
// claim may hold an object or a JSON encoded string; anything unreadable
// yields an empty map.
func (f *Facade) GetEntitlements() map[string]jwt.Value {
	claim := f.GetClaim(jwt.ClaimEntitlements, authstate.AccessToken)
	if claim == nil {
		return map[string]jwt.Value{}
	}
	return parseEntitlements(claim.Value)
}

// GetEntitlement returns the entitlement value for key, or nil when it is
// missing or null.
func (f *Facade) GetEntitlement(key string) *jwt.Value {
	v, ok := f.GetEntitlements()[key]
	if !ok || v.IsNull() {
		return nil
	}
	return &v
}

func (f *Facade) HasEntitlement(key string) bool {
	return f.GetEntitlement(key) != nil
}

// GetBooleanEntitlement accepts booleans and their string forms ("true",
// "false", "1", "0").
func (f *Facade) GetBooleanEntitlement(key string, def bool) bool {
	v := f.GetEntitlement(key)
	if v == nil {
		return def
	}
	if b, ok := v.AsBool(); ok {
		return b
	}
	if s, ok := v.AsString(); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b
		}
	}
	return def
}

// GetStringEntitlement renders scalar values as text.
func (f *Facade) GetStringEntitlement(key string, def string) string {
	v := f.GetEntitlement(key)
	if v == nil {
		return def
	}
	switch v.Kind() {
	case jwt.KindMap, jwt.KindArray:
		return def
	}
	return v.Text()
}

// GetNumericEntitlement accepts numbers and numeric strings. Fractions are
// truncated.
func (f *Facade) GetNumericEntitlement(key string, def int64) int64 {
	v := f.GetEntitlement(key)
	if v == nil {
		return def
	}
	if i, ok := v.AsInteger(); ok {
		return i
	}
	if fl, ok := v.AsFloat(); ok {
		return int64(fl)
	}
	if s, ok := v.AsString(); ok {
		s = strings.TrimSpace(s)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		if fl, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(fl)
		}
	}
	return def
}

func parseEntitlements(v jwt.Value) map[string]jwt.Value {
	if m, ok := v.AsMap(); ok {
		return m
	}

	s, ok := v.AsString()
	if !ok {
		return map[string]jwt.Value{}
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return map[string]jwt.Value{}
	}
	if m, ok := jwt.FromAny(raw).AsMap(); ok {
		return m
	}
	return map[string]jwt.Value{}
}
