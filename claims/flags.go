package claims

import (
	"context"

	"github.com/jrsteele09/go-kinde-auth/api"
	"github.com/jrsteele09/go-kinde-auth/autherrors"
	"github.com/jrsteele09/go-kinde-auth/authstate"
	"github.com/jrsteele09/go-kinde-auth/internal/utils"
	"github.com/jrsteele09/go-kinde-auth/token/jwt"
)

// FlagType is the type tag stored with a flag in the feature_flags claim.
type FlagType string

const (
	FlagTypeString  FlagType = "s"
	FlagTypeInteger FlagType = "i"
	FlagTypeBoolean FlagType = "b"
)

func (t FlagType) Description() string {
	switch t {
	case FlagTypeString:
		return "string"
	case FlagTypeInteger:
		return "integer"
	case FlagTypeBoolean:
		return "boolean"
	}
	return "unknown"
}

func (t FlagType) valid() bool {
	return t == FlagTypeString || t == FlagTypeInteger || t == FlagTypeBoolean
}

// Flag is a resolved feature flag. IsDefault is set when Value is the
// caller's default rather than a value from the token or the API. Type is
// empty for defaults.
type Flag struct {
	Code      string
	Type      FlagType
	Value     jwt.Value
	IsDefault bool
}

// Claim entry keys: {"t": "b", "v": true}
const (
	flagTypeKey  = "t"
	flagValueKey = "v"
)

// GetFlag resolves code from the access token's feature_flags claim.
//
// When the claim is missing it returns def, or autherrors.ErrFlagUnknown if
// def is nil. When the code is missing it returns def, or
// autherrors.ErrFlagNotFound. When expected is set and differs from the
// stored type it fails with *autherrors.IncorrectTypeError.
func (f *Facade) GetFlag(code string, def *jwt.Value, expected *FlagType) (*Flag, error) {
	flags, ok := f.claimFlags()
	if !ok {
		if def != nil {
			return defaultFlag(code, *def), nil
		}
		return nil, autherrors.ErrFlagUnknown
	}
	return resolveFlag(flags, code, def, expected)
}

// GetAllFlags returns every well formed flag in the access token.
func (f *Facade) GetAllFlags() map[string]Flag {
	flags, _ := f.claimFlags()
	return flags
}

// GetBooleanFlag returns the boolean flag code. Any resolution error falls
// back to def when it is set.
func (f *Facade) GetBooleanFlag(code string, def *bool) (bool, error) {
	return typedFlag(code, def, FlagTypeBoolean, jwt.Bool, jwt.Value.AsBool, f.GetFlag)
}

func (f *Facade) GetStringFlag(code string, def *string) (string, error) {
	return typedFlag(code, def, FlagTypeString, jwt.String, jwt.Value.AsString, f.GetFlag)
}

func (f *Facade) GetIntegerFlag(code string, def *int64) (int64, error) {
	return typedFlag(code, def, FlagTypeInteger, jwt.Integer, jwt.Value.AsInteger, f.GetFlag)
}

// FetchFlags reads every flag from the Account API.
func (f *Facade) FetchFlags(ctx context.Context) (map[string]Flag, error) {
	if err := f.requireAccount(); err != nil {
		return nil, err
	}
	data, err := f.account.FeatureFlags(ctx)
	if err != nil {
		f.logger.Error().Err(err).Msg("Failed to fetch feature flags")
		return nil, err
	}
	return ToFlagMap(data), nil
}

// FetchFlag resolves code against the Account API with the same default and
// type rules as GetFlag.
func (f *Facade) FetchFlag(ctx context.Context, code string, def *jwt.Value, expected *FlagType) (*Flag, error) {
	flags, err := f.FetchFlags(ctx)
	if err != nil {
		return nil, err
	}
	return resolveFlag(flags, code, def, expected)
}

func (f *Facade) FetchBooleanFlag(ctx context.Context, code string, def *bool) (bool, error) {
	return typedFlag(code, def, FlagTypeBoolean, jwt.Bool, jwt.Value.AsBool, f.fetcher(ctx))
}

func (f *Facade) FetchStringFlag(ctx context.Context, code string, def *string) (string, error) {
	return typedFlag(code, def, FlagTypeString, jwt.String, jwt.Value.AsString, f.fetcher(ctx))
}

func (f *Facade) FetchIntegerFlag(ctx context.Context, code string, def *int64) (int64, error) {
	return typedFlag(code, def, FlagTypeInteger, jwt.Integer, jwt.Value.AsInteger, f.fetcher(ctx))
}

func (f *Facade) fetcher(ctx context.Context) flagResolver {
	return func(code string, def *jwt.Value, expected *FlagType) (*Flag, error) {
		return f.FetchFlag(ctx, code, def, expected)
	}
}

// ToFlagMap converts an Account API response into flags. Items with no key,
// no value or an unrecognised type are skipped.
func ToFlagMap(data *api.FeatureFlagsData) map[string]Flag {
	flags := map[string]Flag{}
	if data == nil {
		return flags
	}
	for _, item := range data.FeatureFlags {
		if item.Key == "" || item.Value.IsNull() {
			continue
		}
		var flagType FlagType
		switch item.Type {
		case api.FlagTypeBoolean:
			flagType = FlagTypeBoolean
		case api.FlagTypeString:
			flagType = FlagTypeString
		case api.FlagTypeInteger:
			flagType = FlagTypeInteger
		default:
			continue
		}
		flags[item.Key] = Flag{Code: item.Key, Type: flagType, Value: item.Value}
	}
	return flags
}

// claimFlags parses the feature_flags claim. ok is false when the claim is
// absent or not an object.
func (f *Facade) claimFlags() (map[string]Flag, bool) {
	claim := f.GetClaim(jwt.ClaimFeatureFlags, authstate.AccessToken)
	if claim == nil {
		return nil, false
	}
	entries, ok := claim.Value.AsMap()
	if !ok {
		return nil, false
	}

	flags := make(map[string]Flag, len(entries))
	for code, entry := range entries {
		fields, ok := entry.AsMap()
		if !ok {
			continue
		}
		tag, _ := fields[flagTypeKey].AsString()
		flagType := FlagType(tag)
		value, hasValue := fields[flagValueKey]
		if !flagType.valid() || !hasValue {
			continue
		}
		flags[code] = Flag{Code: code, Type: flagType, Value: value}
	}
	return flags, true
}

type flagResolver func(code string, def *jwt.Value, expected *FlagType) (*Flag, error)

func resolveFlag(flags map[string]Flag, code string, def *jwt.Value, expected *FlagType) (*Flag, error) {
	flag, ok := flags[code]
	if !ok {
		if def != nil {
			return defaultFlag(code, *def), nil
		}
		return nil, autherrors.ErrFlagNotFound
	}
	if expected != nil && *expected != flag.Type {
		return nil, &autherrors.IncorrectTypeError{
			Code:      code,
			Actual:    flag.Type.Description(),
			Requested: expected.Description(),
		}
	}
	return &flag, nil
}

func defaultFlag(code string, def jwt.Value) *Flag {
	return &Flag{Code: code, Value: def, IsDefault: true}
}

// typedFlag resolves a flag of type want and coerces its value. On any error
// the caller's default wins when there is one.
func typedFlag[T any](code string, def *T, want FlagType, wrap func(T) jwt.Value, unwrap func(jwt.Value) (T, bool), resolve flagResolver) (T, error) {
	var defValue *jwt.Value
	if def != nil {
		defValue = utils.Ptr(wrap(*def))
	}

	flag, err := resolve(code, defValue, &want)
	if err == nil {
		if v, ok := unwrap(flag.Value); ok {
			return v, nil
		}
		err = &autherrors.IncorrectTypeError{Code: code, Actual: flag.Value.Kind().String(), Requested: want.Description()}
	}

	if def != nil {
		return *def, nil
	}
	var zero T
	return zero, err
}
