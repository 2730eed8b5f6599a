package kinde_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-kinde-auth/auth"
	"github.com/jrsteele09/go-kinde-auth/autherrors"
	"github.com/jrsteele09/go-kinde-auth/authstate"
	"github.com/jrsteele09/go-kinde-auth/config"
	"github.com/jrsteele09/go-kinde-auth/kinde"
	"github.com/jrsteele09/go-kinde-auth/token"
	"github.com/jrsteele09/go-kinde-auth/token/jwt/jwttest"
	"github.com/stretchr/testify/require"
)

// testFixture is a fake Kinde business serving discovery, the token
// endpoint and the roles endpoint of the Account API
type testFixture struct {
	server *httptest.Server
	cfg    config.Config
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 f.server.URL,
			"authorization_endpoint": f.server.URL + "/oauth2/auth",
			"token_endpoint":         f.server.URL + "/oauth2/token",
			"end_session_endpoint":   f.server.URL + "/logout",
			"jwks_uri":               f.server.URL + "/.well-known/jwks.json",
		})
	})
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		access := jwttest.AccessToken(t, f.server.URL, "kp_1", time.Hour, jwtlib.MapClaims{
			"org_code":    "org_1",
			"permissions": []string{"read:books"},
			"feature_flags": map[string]any{
				"dark_mode": map[string]any{"t": "b", "v": true},
			},
		})
		id := jwttest.IDToken(t, f.server.URL, f.cfg.ClientID, "kp_1", "jane@example.com", "")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  access,
			"token_type":    "Bearer",
			"refresh_token": "refresh-1",
			"id_token":      id,
			"expires_in":    3600,
		})
	})
	mux.HandleFunc("/account_api/v1/roles", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(token.SDKHeader) != "Go/"+kinde.Version || r.Header.Get("Authorization") == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"org_code":"org_1","roles":[{"key":"admin"}]}}`))
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	f.cfg = config.Config{
		Issuer:                f.server.URL,
		ClientID:              "client-1",
		RedirectURI:           "http://127.0.0.1:8085/callback",
		PostLogoutRedirectURI: "http://127.0.0.1:8085/",
	}
	return f
}

func approvingAgent() auth.UserAgent {
	return auth.UserAgentFunc(func(ctx context.Context, req auth.AuthorizationRequest) (*url.URL, error) {
		callback := *req.RedirectURL
		callback.RawQuery = url.Values{"code": {"code-1"}, "state": {req.State}}.Encode()
		return &callback, nil
	})
}

func TestNew(t *testing.T) {
	t.Run("invalid configuration", func(t *testing.T) {
		_, err := kinde.New(config.Config{})
		require.ErrorIs(t, err, autherrors.ErrConfiguration)
	})

	t.Run("fresh instance is signed out", func(t *testing.T) {
		f := setupTestFixture(t)
		client, err := kinde.New(f.cfg)
		require.NoError(t, err)

		require.False(t, client.IsAuthenticated())
		require.False(t, client.IsAuthorized())
		require.Nil(t, client.GetUserDetails())
		require.Nil(t, client.GetPermissions())
		require.Nil(t, client.GetRoles())
		require.Nil(t, client.GetOrganization())
		require.Nil(t, client.GetUserOrganizations())
		require.Nil(t, client.State())
	})

	t.Run("no user agent", func(t *testing.T) {
		f := setupTestFixture(t)
		client, err := kinde.New(f.cfg)
		require.NoError(t, err)
		require.ErrorIs(t, client.Login(context.Background()), autherrors.ErrNotAuthenticated)
	})
}

func TestClient_EndToEnd(t *testing.T) {
	f := setupTestFixture(t)
	client, err := kinde.New(f.cfg, kinde.WithUserAgent(approvingAgent()), kinde.WithAppID("com.example.test"))
	require.NoError(t, err)

	require.NoError(t, client.Login(context.Background()))
	require.True(t, client.IsAuthenticated())
	require.True(t, client.IsAuthorized())

	require.Equal(t, "jane@example.com", client.GetUserDetails().Email)
	require.True(t, client.GetPermission("read:books").IsGranted)
	require.True(t, client.ValidateFeatureFlag("dark_mode", false))

	idToken, err := client.GetToken(context.Background(), authstate.IDToken)
	require.NoError(t, err)
	require.NotEmpty(t, idToken)

	roles, err := client.FetchRoles(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"admin"}, roles.Roles)

	logoutURL := client.LogoutURL()
	require.NotNil(t, logoutURL)
	require.Equal(t, f.cfg.PostLogoutRedirectURI, logoutURL.Query().Get("redirect"))

	t.Run("logout is idempotent", func(t *testing.T) {
		require.True(t, client.Logout())
		require.False(t, client.IsAuthenticated())
		require.True(t, client.Logout())
		require.False(t, client.IsAuthenticated())

		_, err := client.FetchRoles(context.Background())
		require.ErrorIs(t, err, autherrors.ErrNotAuthenticated)
	})
}
