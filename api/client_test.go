package api_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/jrsteele09/go-kinde-auth/api"
	"github.com/jrsteele09/go-kinde-auth/autherrors"
	"github.com/jrsteele09/go-kinde-auth/authstate"
	"github.com/jrsteele09/go-kinde-auth/config"
	"github.com/jrsteele09/go-kinde-auth/token"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) GetToken(ctx context.Context, desired authstate.TokenType) (string, error) {
	return s.token, s.err
}

type testFixture struct {
	server *httptest.Server
	routes map[string]string // path -> JSON body
	status int
	client *api.Client
	last   *http.Request
}

func setupTestFixture(t *testing.T, tokens api.TokenProvider, options ...api.Option) *testFixture {
	t.Helper()

	f := &testFixture{routes: map[string]string{}, status: http.StatusOK}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.last = r
		body, ok := f.routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(f.server.Close)

	base, err := url.Parse(f.server.URL)
	require.NoError(t, err)
	client, err := api.NewClient(base, tokens, options...)
	require.NoError(t, err)
	f.client = client
	return f
}

func TestBaseURL(t *testing.T) {
	u, err := api.BaseURL(config.Config{Issuer: "https://example.kinde.com/some/path"})
	require.NoError(t, err)
	require.Equal(t, "https://example.kinde.com", u.String())

	_, err = api.BaseURL(config.Config{})
	require.ErrorIs(t, err, autherrors.ErrInvalidURL)
}

func TestNewClient(t *testing.T) {
	_, err := api.NewClient(nil, staticTokens{})
	require.ErrorIs(t, err, autherrors.ErrInvalidURL)

	_, err = api.NewClient(&url.URL{Scheme: "https", Host: "example.kinde.com"}, nil)
	require.Error(t, err)
}

func TestClient_FeatureFlags(t *testing.T) {
	f := setupTestFixture(t, staticTokens{token: "access-1"}, api.WithSDKVersion("9.9.9"))
	f.routes[api.PathFeatureFlags] = `{"success":true,"data":{"feature_flags":[
		{"id":"1","key":"theme","name":"Theme","type":"String","value":"pink"},
		{"id":"2","key":"seats","type":"Integer","value":5}
	]}}`

	data, err := f.client.FeatureFlags(context.Background())
	require.NoError(t, err)
	require.Len(t, data.FeatureFlags, 2)
	require.Equal(t, "theme", data.FeatureFlags[0].Key)
	seats, ok := data.FeatureFlags[1].Value.AsInteger()
	require.True(t, ok)
	require.Equal(t, int64(5), seats)

	require.Equal(t, "Bearer access-1", f.last.Header.Get("Authorization"))
	require.Equal(t, "Go/9.9.9", f.last.Header.Get(token.SDKHeader))
}

func TestClient_PermissionsAndRoles(t *testing.T) {
	f := setupTestFixture(t, staticTokens{token: "access-1"})
	f.routes[api.PathPermissions] = `{"success":true,"data":{"org_code":"org_1","permissions":[{"id":"p1","key":"read"},{"id":"p2"}]}}`
	f.routes[api.PathRoles] = `{"success":true,"data":{"org_code":"org_1","roles":[{"id":"r1","key":"admin","name":"Admin"}]}}`

	permissions, err := f.client.Permissions(context.Background())
	require.NoError(t, err)
	require.Equal(t, "org_1", permissions.OrgCode)
	require.Equal(t, []string{"read"}, api.Keys(permissions.Permissions))

	roles, err := f.client.Roles(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"admin"}, api.Keys(roles.Roles))
}

func TestClient_Entitlements(t *testing.T) {
	f := setupTestFixture(t, staticTokens{token: "access-1"})
	f.routes[api.PathEntitlements] = `{"data":{"org_code":"org_1","plans":[{"code":"pro"}],
		"entitlements":[{"key":"max_projects","value":10}]},
		"metadata":{"has_more":true,"next_page_starting_after":"max_projects"}}`
	f.routes[api.PathEntitlement+"max_projects"] = `{"data":{"key":"max_projects","value":10}}`

	page, err := f.client.Entitlements(context.Background(), 10, "cursor-1")
	require.NoError(t, err)
	require.Equal(t, "10", f.last.URL.Query().Get("page_size"))
	require.Equal(t, "cursor-1", f.last.URL.Query().Get("starting_after"))
	require.Equal(t, "pro", page.Data.Plans[0].Code)
	require.True(t, page.Metadata.HasMore)
	require.Equal(t, "max_projects", page.Metadata.NextPageStartingAfter)

	entitlement, err := f.client.Entitlement(context.Background(), "max_projects")
	require.NoError(t, err)
	require.Equal(t, "max_projects", entitlement.Key)

	_, err = f.client.Entitlement(context.Background(), "")
	require.Error(t, err)
}

func TestClient_UserProfile(t *testing.T) {
	f := setupTestFixture(t, staticTokens{token: "access-1"})
	f.routes[api.PathUserProfile] = `{"id":"kp_1","given_name":"Jane","family_name":"Doe","email":"jane@example.com","updated_at":1700000000}`

	profile, err := f.client.UserProfile(context.Background())
	require.NoError(t, err)
	require.Equal(t, "kp_1", profile.ID)
	require.Equal(t, "Jane", profile.GivenName)
	require.Equal(t, int64(1700000000), profile.UpdatedAt)
}

func TestClient_Errors(t *testing.T) {
	t.Run("not authenticated", func(t *testing.T) {
		f := setupTestFixture(t, staticTokens{err: fmt.Errorf("%w: no refresh token", autherrors.ErrNotAuthenticated)})
		_, err := f.client.Roles(context.Background())

		var bearerErr *api.BearerError
		require.ErrorAs(t, err, &bearerErr)
		require.Equal(t, api.NotAuthenticatedCode, bearerErr.StatusCode)
		require.ErrorIs(t, err, autherrors.ErrNotAuthenticated)
		require.True(t, api.RequiresReauthentication(err))
		require.Nil(t, f.last)
	})

	t.Run("other token failure", func(t *testing.T) {
		f := setupTestFixture(t, staticTokens{err: context.DeadlineExceeded})
		_, err := f.client.Roles(context.Background())

		var bearerErr *api.BearerError
		require.ErrorAs(t, err, &bearerErr)
		require.Equal(t, -1, bearerErr.StatusCode)
		require.False(t, api.RequiresReauthentication(err))
	})

	t.Run("server error", func(t *testing.T) {
		f := setupTestFixture(t, staticTokens{token: "access-1"})
		f.routes[api.PathRoles] = `{}`
		f.status = http.StatusUnauthorized

		_, err := f.client.Roles(context.Background())
		var serverErr *autherrors.ServerError
		require.ErrorAs(t, err, &serverErr)
		require.Equal(t, http.StatusUnauthorized, serverErr.StatusCode)
		require.True(t, api.RequiresReauthentication(err))
	})

	t.Run("unsuccessful envelope", func(t *testing.T) {
		f := setupTestFixture(t, staticTokens{token: "access-1"})
		f.routes[api.PathRoles] = `{"success":false,"data":{"roles":[]}}`

		_, err := f.client.Roles(context.Background())
		require.ErrorIs(t, err, autherrors.ErrInvalidResponse)
	})

	t.Run("missing data", func(t *testing.T) {
		f := setupTestFixture(t, staticTokens{token: "access-1"})
		f.routes[api.PathRoles] = `{"success":true}`

		_, err := f.client.Roles(context.Background())
		require.ErrorIs(t, err, autherrors.ErrInvalidResponse)
	})

	t.Run("undecodable", func(t *testing.T) {
		f := setupTestFixture(t, staticTokens{token: "access-1"})
		f.routes[api.PathRoles] = `not json`

		_, err := f.client.Roles(context.Background())
		require.ErrorIs(t, err, autherrors.ErrDecoding)
	})

	t.Run("rate limit honours context", func(t *testing.T) {
		f := setupTestFixture(t, staticTokens{token: "access-1"}, api.WithRateLimit(rate.Every(1<<62), 1))
		f.routes[api.PathRoles] = `{"data":{"roles":[]}}`

		_, err := f.client.Roles(context.Background())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = f.client.Roles(ctx)
		require.Error(t, err)
	})
}
