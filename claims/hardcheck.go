package claims

import (
	"fmt"

	"github.com/jrsteele09/go-kinde-auth/token/jwt"
	"github.com/rs/zerolog"
)

// HardCheck returns validate's result, or fallback when validate reports no
// result or panics. It never fails.
func HardCheck[T any](logger zerolog.Logger, name string, validate func() (T, bool), fallback T) (result T) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("check", name).Str("panic", fmt.Sprint(r)).Msg("Hard check panicked, using fallback")
			result = fallback
		}
	}()

	if v, ok := validate(); ok {
		return v
	}
	logger.Debug().Str("check", name).Msg("Hard check has no result, using fallback")
	return fallback
}

// ValidatePermission reports whether permission is granted, or fallback when
// there is no state.
func (f *Facade) ValidatePermission(permission string, fallback bool) bool {
	return HardCheck(f.logger, "permission:"+permission, func() (bool, bool) {
		p := f.GetPermission(permission)
		if p == nil {
			return false, false
		}
		return p.IsGranted, true
	}, fallback)
}

func (f *Facade) ValidateRole(role string, fallback bool) bool {
	return HardCheck(f.logger, "role:"+role, func() (bool, bool) {
		r := f.GetRole(role)
		if r == nil {
			return false, false
		}
		return r.IsGranted, true
	}, fallback)
}

// ValidateFeatureFlag returns the boolean flag code, or fallback when it
// cannot be resolved.
func (f *Facade) ValidateFeatureFlag(code string, fallback bool) bool {
	return HardCheck(f.logger, "flag:"+code, func() (bool, bool) {
		enabled, err := f.GetBooleanFlag(code, nil)
		return enabled, err == nil
	}, fallback)
}

func (f *Facade) ValidateEntitlement(key string, fallback jwt.Value) jwt.Value {
	return HardCheck(f.logger, "entitlement:"+key, func() (jwt.Value, bool) {
		v := f.GetEntitlement(key)
		if v == nil {
			return jwt.Value{}, false
		}
		return *v, true
	}, fallback)
}

// ValidateOrganization returns the current organization code, or fallback.
func (f *Facade) ValidateOrganization(fallback string) string {
	return HardCheck(f.logger, "organization", func() (string, bool) {
		org := f.GetOrganization()
		if org == nil {
			return "", false
		}
		return org.Code, true
	}, fallback)
}
