// Package claims exposes identity and authorization data read from the
// current tokens, with Account API backed variants for callers that need the
// server's current view.
//
// Token claims are decoded without signature verification. Do not use them
// for authorization decisions on a server.
package claims

import (
	"context"
	"errors"
	"slices"

	"github.com/jrsteele09/go-kinde-auth/api"
	"github.com/jrsteele09/go-kinde-auth/authstate"
	"github.com/jrsteele09/go-kinde-auth/token/jwt"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StateReader gives read access to the current authentication state.
type StateReader interface {
	State() *authstate.State
}

// AccountAPI is the subset of *api.Client the facade calls.
type AccountAPI interface {
	FeatureFlags(ctx context.Context) (*api.FeatureFlagsData, error)
	Permissions(ctx context.Context) (*api.PermissionsData, error)
	Roles(ctx context.Context) (*api.RolesData, error)
	Entitlements(ctx context.Context, pageSize int, startingAfter string) (*api.EntitlementsPage, error)
	Entitlement(ctx context.Context, key string) (*api.Entitlement, error)
	UserProfile(ctx context.Context) (*api.UserProfile, error)
}

var _ AccountAPI = (*api.Client)(nil)

type Facade struct {
	states  StateReader
	account AccountAPI
	logger  zerolog.Logger
}

type Option func(*Facade)

// WithAccountAPI enables the Fetch* methods.
func WithAccountAPI(account AccountAPI) Option {
	return func(f *Facade) {
		f.account = account
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(f *Facade) {
		f.logger = logger
	}
}

func New(states StateReader, options ...Option) (*Facade, error) {
	if states == nil {
		return nil, errors.New("[claims New] state reader is required")
	}
	f := &Facade{
		states: states,
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(f)
	}
	return f, nil
}

// Claim is a single named claim value.
type Claim struct {
	Name  string
	Value jwt.Value
}

type Organization struct {
	Code string
}

type Permissions struct {
	Organization Organization
	Permissions  []string
}

// Permission reports whether a single permission is granted.
type Permission struct {
	Organization Organization
	IsGranted    bool
}

type Roles struct {
	Organization Organization
	Roles        []string
}

type Role struct {
	Organization Organization
	IsGranted    bool
}

type UserOrganizations struct {
	Organizations []Organization
}

type UserDetails struct {
	ID         string
	GivenName  string
	FamilyName string
	Email      string
	Picture    string
}

// claims returns the decoded payload of the requested token, or nil when
// there is no state.
func (f *Facade) claims(tokenType authstate.TokenType) jwt.Claims {
	state := f.states.State()
	if state == nil {
		return nil
	}
	return jwt.Decode(state.Raw(tokenType))
}

// GetClaim returns the claim named key from the given token, or nil.
func (f *Facade) GetClaim(key string, tokenType authstate.TokenType) *Claim {
	value, ok := f.claims(tokenType).Get(key)
	if !ok {
		return nil
	}
	return &Claim{Name: key, Value: value}
}

// GetUserDetails reads the user's profile claims from the ID token.
func (f *Facade) GetUserDetails() *UserDetails {
	c := f.claims(authstate.IDToken)
	if len(c) == 0 {
		return nil
	}
	return &UserDetails{
		ID:         c.String(jwt.ClaimSubject),
		GivenName:  c.String(jwt.ClaimGivenName),
		FamilyName: c.String(jwt.ClaimFamilyName),
		Email:      c.String(jwt.ClaimEmail),
		Picture:    c.String(jwt.ClaimPicture),
	}
}

func (f *Facade) GetPermissions() *Permissions {
	c := f.claims(authstate.AccessToken)
	if _, ok := c.Get(jwt.ClaimPermissions); !ok {
		return nil
	}
	return &Permissions{
		Organization: Organization{Code: c.String(jwt.ClaimOrgCode)},
		Permissions:  c.Strings(jwt.ClaimPermissions),
	}
}

// GetPermission reports whether name is among the access token's permissions.
// It returns nil when there is no state.
func (f *Facade) GetPermission(name string) *Permission {
	c := f.claims(authstate.AccessToken)
	if c == nil {
		return nil
	}
	return &Permission{
		Organization: Organization{Code: c.String(jwt.ClaimOrgCode)},
		IsGranted:    slices.Contains(c.Strings(jwt.ClaimPermissions), name),
	}
}

func (f *Facade) GetRoles() *Roles {
	c := f.claims(authstate.AccessToken)
	if _, ok := c.Get(jwt.ClaimRoles); !ok {
		return nil
	}
	return &Roles{
		Organization: Organization{Code: c.String(jwt.ClaimOrgCode)},
		Roles:        roleKeys(c[jwt.ClaimRoles]),
	}
}

func (f *Facade) GetRole(name string) *Role {
	c := f.claims(authstate.AccessToken)
	if c == nil {
		return nil
	}
	return &Role{
		Organization: Organization{Code: c.String(jwt.ClaimOrgCode)},
		IsGranted:    slices.Contains(roleKeys(c[jwt.ClaimRoles]), name),
	}
}

// GetOrganization returns the organization the access token was issued for.
func (f *Facade) GetOrganization() *Organization {
	code := f.claims(authstate.AccessToken).String(jwt.ClaimOrgCode)
	if code == "" {
		return nil
	}
	return &Organization{Code: code}
}

// GetUserOrganizations returns every organization listed in the ID token.
func (f *Facade) GetUserOrganizations() *UserOrganizations {
	c := f.claims(authstate.IDToken)
	if _, ok := c.Get(jwt.ClaimOrgCodes); !ok {
		return nil
	}
	codes := c.Strings(jwt.ClaimOrgCodes)
	orgs := make([]Organization, 0, len(codes))
	for _, code := range codes {
		orgs = append(orgs, Organization{Code: code})
	}
	return &UserOrganizations{Organizations: orgs}
}

// roleKeys accepts roles as plain strings or as {id, key, name} objects.
func roleKeys(v jwt.Value) []string {
	items, ok := v.AsArray()
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.AsString(); ok {
			keys = append(keys, s)
			continue
		}
		if m, ok := item.AsMap(); ok {
			if key, ok := m["key"].AsString(); ok {
				keys = append(keys, key)
			}
		}
	}
	return keys
}
