package claims

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-kinde-auth/api"
	"github.com/jrsteele09/go-kinde-auth/autherrors"
	"github.com/jrsteele09/go-kinde-auth/token/jwt"
)

// DefaultEntitlementsPageSize is used by FetchAllEntitlements when the
// caller passes zero.
const DefaultEntitlementsPageSize = 100

// requireAccount fails when no Account API is configured or nobody is
// signed in.
func (f *Facade) requireAccount() error {
	if f.account == nil {
		return fmt.Errorf("%w: account api is not configured", autherrors.ErrConfiguration)
	}
	if f.states.State() == nil {
		return autherrors.ErrNotAuthenticated
	}
	return nil
}

func (f *Facade) FetchPermissions(ctx context.Context) (*Permissions, error) {
	if err := f.requireAccount(); err != nil {
		return nil, err
	}
	data, err := f.account.Permissions(ctx)
	if err != nil {
		f.logger.Error().Err(err).Msg("Failed to fetch permissions")
		return nil, err
	}
	return &Permissions{
		Organization: Organization{Code: data.OrgCode},
		Permissions:  api.Keys(data.Permissions),
	}, nil
}

func (f *Facade) FetchRoles(ctx context.Context) (*Roles, error) {
	if err := f.requireAccount(); err != nil {
		return nil, err
	}
	data, err := f.account.Roles(ctx)
	if err != nil {
		f.logger.Error().Err(err).Msg("Failed to fetch roles")
		return nil, err
	}
	return &Roles{
		Organization: Organization{Code: data.OrgCode},
		Roles:        api.Keys(data.Roles),
	}, nil
}

// FetchEntitlements returns one page of entitlements.
func (f *Facade) FetchEntitlements(ctx context.Context, pageSize int, startingAfter string) (*api.EntitlementsPage, error) {
	if err := f.requireAccount(); err != nil {
		return nil, err
	}
	page, err := f.account.Entitlements(ctx, pageSize, startingAfter)
	if err != nil {
		f.logger.Error().Err(err).Str("starting_after", startingAfter).Msg("Failed to fetch entitlements")
		return nil, err
	}
	return page, nil
}

func (f *Facade) FetchEntitlement(ctx context.Context, key string) (*api.Entitlement, error) {
	if err := f.requireAccount(); err != nil {
		return nil, err
	}
	entitlement, err := f.account.Entitlement(ctx, key)
	if err != nil {
		f.logger.Error().Err(err).Str("key", key).Msg("Failed to fetch entitlement")
		return nil, err
	}
	return entitlement, nil
}

// FetchAllEntitlements follows the starting_after cursor until the server
// stops returning one. A cursor the server already returned is treated as an
// invalid response.
func (f *Facade) FetchAllEntitlements(ctx context.Context, pageSize int) (*api.Entitlements, error) {
	if pageSize <= 0 {
		pageSize = DefaultEntitlementsPageSize
	}

	var all api.Entitlements
	seenPlans := map[string]bool{}
	seenCursors := map[string]bool{}
	cursor := ""
	for {
		page, err := f.FetchEntitlements(ctx, pageSize, cursor)
		if err != nil {
			return nil, err
		}

		if all.OrgCode == "" {
			all.OrgCode = page.Data.OrgCode
		}
		for _, plan := range page.Data.Plans {
			if !seenPlans[plan.Code] {
				seenPlans[plan.Code] = true
				all.Plans = append(all.Plans, plan)
			}
		}
		all.Entitlements = append(all.Entitlements, page.Data.Entitlements...)

		next := page.Metadata.NextPageStartingAfter
		if next == "" {
			return &all, nil
		}
		if seenCursors[next] {
			return nil, fmt.Errorf("%w: repeated entitlements cursor %q", autherrors.ErrInvalidResponse, next)
		}
		seenCursors[next] = true
		cursor = next
	}
}

// FetchEntitlementsMap fetches every entitlement keyed by entitlement key.
func (f *Facade) FetchEntitlementsMap(ctx context.Context) (map[string]jwt.Value, error) {
	all, err := f.FetchAllEntitlements(ctx, 0)
	if err != nil {
		return nil, err
	}
	m := make(map[string]jwt.Value, len(all.Entitlements))
	for _, entitlement := range all.Entitlements {
		m[entitlement.Key] = entitlement.Value
	}
	return m, nil
}

func (f *Facade) FetchUserProfile(ctx context.Context) (*api.UserProfile, error) {
	if err := f.requireAccount(); err != nil {
		return nil, err
	}
	profile, err := f.account.UserProfile(ctx)
	if err != nil {
		f.logger.Error().Err(err).Msg("Failed to fetch user profile")
		return nil, err
	}
	return profile, nil
}
