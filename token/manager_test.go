package token_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-kinde-auth/autherrors"
	"github.com/jrsteele09/go-kinde-auth/authstate"
	credentialsrepofake "github.com/jrsteele09/go-kinde-auth/credentials/repofake"
	"github.com/jrsteele09/go-kinde-auth/token"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testKey      = "com.example.app.authState"
	testClientID = "client-1"
)

// testFixture holds a token endpoint, the repository and the manager under test
type testFixture struct {
	server   *httptest.Server
	requests atomic.Int32
	response func(w http.ResponseWriter, r *http.Request)
	store    *credentialsrepofake.FakeCredentialsRepo
	repo     *authstate.Repository
	manager  *token.Manager
}

func setupTestFixture(t *testing.T, options ...token.ManagerOption) *testFixture {
	t.Helper()

	f := &testFixture{}
	f.response = func(w http.ResponseWriter, r *http.Request) {
		writeToken(w, "access-2", "refresh-2", "id-2")
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		f.response(w, r)
	}))
	t.Cleanup(f.server.Close)

	f.store = credentialsrepofake.NewFakeCredentialsRepo()
	repo, err := authstate.NewRepository(testKey, f.store)
	require.NoError(t, err)
	f.repo = repo

	manager, err := token.New(repo, options...)
	require.NoError(t, err)
	f.manager = manager
	return f
}

func (f *testFixture) seedState(t *testing.T, access string, expiry time.Time) {
	t.Helper()
	tok := (&oauth2.Token{
		AccessToken:  access,
		TokenType:    "Bearer",
		RefreshToken: "refresh-1",
		Expiry:       expiry,
	}).WithExtra(map[string]any{"id_token": "id-1"})

	state := authstate.FromToken(tok, authstate.Provider{
		Issuer:   f.server.URL,
		AuthURL:  f.server.URL + "/oauth2/auth",
		TokenURL: f.server.URL + "/oauth2/token",
		ClientID: testClientID,
	})
	require.NoError(t, f.repo.SetState(state))
}

func writeToken(w http.ResponseWriter, access, refresh, id string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  access,
		"token_type":    "Bearer",
		"expires_in":    3600,
		"refresh_token": refresh,
		"id_token":      id,
	})
}

func TestNew(t *testing.T) {
	_, err := token.New(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "state store is required")
}

func TestManager_PerformWithFreshTokens(t *testing.T) {
	t.Run("no state", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.manager.PerformWithFreshTokens(context.Background())
		require.ErrorIs(t, err, autherrors.ErrNotAuthenticated)
		require.Zero(t, f.requests.Load())
	})

	t.Run("valid token is reused", func(t *testing.T) {
		f := setupTestFixture(t)
		f.seedState(t, "access-1", time.Now().Add(time.Hour))

		tokens, err := f.manager.PerformWithFreshTokens(context.Background())
		require.NoError(t, err)
		require.Equal(t, "access-1", tokens.AccessToken)
		require.Equal(t, "id-1", tokens.IDToken)
		require.Zero(t, f.requests.Load())
	})

	t.Run("expired token is refreshed and persisted", func(t *testing.T) {
		f := setupTestFixture(t)
		f.seedState(t, "access-1", time.Now().Add(-time.Minute))
		f.response = func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "refresh-1" || r.Form.Get("client_id") != testClientID {
				http.Error(w, `{"error":"invalid_request"}`, http.StatusBadRequest)
				return
			}
			if r.Header.Get(token.SDKHeader) != "Go/"+token.DefaultSDKVersion {
				http.Error(w, `{"error":"invalid_request"}`, http.StatusBadRequest)
				return
			}
			writeToken(w, "access-2", "refresh-2", "id-2")
		}

		tokens, err := f.manager.PerformWithFreshTokens(context.Background())
		require.NoError(t, err)
		require.Equal(t, "access-2", tokens.AccessToken)
		require.Equal(t, "id-2", tokens.IDToken)
		require.EqualValues(t, 1, f.requests.Load())

		blob, err := f.store.Get(testKey)
		require.NoError(t, err)
		persisted, err := authstate.Unmarshal(blob)
		require.NoError(t, err)
		require.Equal(t, "access-2", persisted.AccessToken)
		require.Equal(t, "refresh-2", persisted.RefreshToken)
		require.True(t, f.manager.IsAuthenticated())
	})

	t.Run("token inside leeway is refreshed", func(t *testing.T) {
		f := setupTestFixture(t, token.WithLeeway(time.Minute))
		f.seedState(t, "access-1", time.Now().Add(30*time.Second))

		tokens, err := f.manager.PerformWithFreshTokens(context.Background())
		require.NoError(t, err)
		require.Equal(t, "access-2", tokens.AccessToken)
	})

	t.Run("refresh rejected", func(t *testing.T) {
		f := setupTestFixture(t)
		f.seedState(t, "access-1", time.Now().Add(-time.Minute))
		f.response = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"refresh token revoked"}`))
		}

		_, err := f.manager.PerformWithFreshTokens(context.Background())
		require.ErrorIs(t, err, autherrors.ErrNotAuthenticated)
		var retrieveErr *oauth2.RetrieveError
		require.True(t, errors.As(err, &retrieveErr))
		require.Equal(t, "invalid_grant", retrieveErr.ErrorCode)

		require.False(t, f.manager.IsAuthorized())
		require.False(t, f.manager.IsAuthenticated())
	})

	t.Run("concurrent callers share one refresh", func(t *testing.T) {
		f := setupTestFixture(t)
		f.seedState(t, "access-1", time.Now().Add(-time.Minute))

		var wg sync.WaitGroup
		results := make(chan string, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tokens, err := f.manager.PerformWithFreshTokens(context.Background())
				if err == nil {
					results <- tokens.AccessToken
				}
			}()
		}
		wg.Wait()
		close(results)

		count := 0
		for access := range results {
			require.Equal(t, "access-2", access)
			count++
		}
		require.Equal(t, 10, count)
		require.EqualValues(t, 1, f.requests.Load())
	})
}

// blockRefresh holds refresh requests until release is closed. arrived is
// closed when the first one reaches the token endpoint.
func (f *testFixture) blockRefresh() (arrived, release chan struct{}) {
	arrived = make(chan struct{})
	release = make(chan struct{})
	var once sync.Once
	f.response = func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(arrived) })
		<-release
		writeToken(w, "access-2", "refresh-2", "id-2")
	}
	return arrived, release
}

func TestManager_StateChangedDuringRefresh(t *testing.T) {
	t.Run("logout wins over a refresh in flight", func(t *testing.T) {
		f := setupTestFixture(t)
		f.seedState(t, "access-1", time.Now().Add(-time.Minute))
		arrived, release := f.blockRefresh()

		done := make(chan error, 1)
		go func() {
			_, err := f.manager.PerformWithFreshTokens(context.Background())
			done <- err
		}()

		<-arrived
		require.NoError(t, f.repo.Clear())
		close(release)

		require.ErrorIs(t, <-done, autherrors.ErrNotAuthenticated)
		require.Nil(t, f.repo.State())
		require.False(t, f.manager.IsAuthenticated())
		exists, err := f.store.Exists(testKey)
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("new login wins over a refresh in flight", func(t *testing.T) {
		f := setupTestFixture(t)
		f.seedState(t, "access-1", time.Now().Add(-time.Minute))
		arrived, release := f.blockRefresh()

		type result struct {
			tokens *token.Tokens
			err    error
		}
		done := make(chan result, 1)
		go func() {
			tokens, err := f.manager.PerformWithFreshTokens(context.Background())
			done <- result{tokens, err}
		}()

		<-arrived
		f.seedState(t, "access-login", time.Now().Add(time.Hour))
		close(release)

		res := <-done
		require.NoError(t, res.err)
		require.Equal(t, "access-login", res.tokens.AccessToken)
		require.Equal(t, "access-login", f.repo.State().AccessToken)

		blob, err := f.store.Get(testKey)
		require.NoError(t, err)
		persisted, err := authstate.Unmarshal(blob)
		require.NoError(t, err)
		require.Equal(t, "access-login", persisted.AccessToken)
		require.Equal(t, "refresh-1", persisted.RefreshToken)
	})
}

func TestManager_GetToken(t *testing.T) {
	f := setupTestFixture(t)
	f.seedState(t, "access-1", time.Now().Add(time.Hour))

	access, err := f.manager.GetToken(context.Background(), authstate.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "access-1", access)

	id, err := f.manager.GetToken(context.Background(), authstate.IDToken)
	require.NoError(t, err)
	require.Equal(t, "id-1", id)

	t.Run("missing id token", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.repo.SetState(authstate.FromToken(&oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(time.Hour)}, authstate.Provider{})))

		_, err := f.manager.GetToken(context.Background(), authstate.IDToken)
		require.ErrorIs(t, err, autherrors.ErrNotAuthenticated)
	})

	t.Run("logged out", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.manager.GetToken(context.Background(), authstate.AccessToken)
		require.ErrorIs(t, err, autherrors.ErrNotAuthenticated)
	})
}

func TestManager_IsAuthenticated(t *testing.T) {
	now := time.Now()
	f := setupTestFixture(t, token.WithNowFunc(func() time.Time { return now }))

	require.False(t, f.manager.IsAuthenticated())
	require.False(t, f.manager.IsAuthorized())

	f.seedState(t, "access-1", now.Add(time.Minute))
	require.True(t, f.manager.IsAuthenticated())
	require.True(t, f.manager.IsAuthorized())

	now = now.Add(2 * time.Minute)
	require.False(t, f.manager.IsAuthenticated())
	require.True(t, f.manager.IsAuthorized())
}

func TestWithSDKHeader(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(token.SDKHeader)
	}))
	defer server.Close()

	client := token.WithSDKHeader(token.WithSDKHeader(nil, "0.9.0"), "2.0.0")
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "Go/2.0.0", got)
}
