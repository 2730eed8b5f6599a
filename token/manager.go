package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jrsteele09/go-kinde-auth/autherrors"
	"github.com/jrsteele09/go-kinde-auth/authstate"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	// DefaultLeeway refreshes tokens that expire within this window.
	DefaultLeeway = 30 * time.Second
	// DefaultSDKVersion is reported in the SDK identification header.
	DefaultSDKVersion = "1.0.0"
)

// Tokens is the result of a fresh-token round. IDToken is empty when the
// state holds no ID token.
type Tokens struct {
	AccessToken string
	IDToken     string
}

// StateStore is the view of the authentication state repository needed by the
// Manager. Refresh results are reported back through the Observer methods.
type StateStore interface {
	State() *authstate.State
	authstate.Observer
}

// Manager guarantees a usable access token for outbound calls, refreshing it
// through the token endpoint when it is expired or about to expire.
type Manager struct {
	states     StateStore
	httpClient *http.Client
	leeway     time.Duration
	sdkVersion string
	logger     zerolog.Logger
	nowFunc    func() time.Time

	refreshLock sync.Mutex // one refresh round at a time
}

type ManagerOption func(*Manager)

// WithHTTPClient sets the client used for refresh requests. Its transport is
// wrapped to add the SDK identification header.
func WithHTTPClient(client *http.Client) ManagerOption {
	return func(m *Manager) {
		m.httpClient = client
	}
}

// WithLeeway sets how long before expiry a token is treated as expired.
func WithLeeway(leeway time.Duration) ManagerOption {
	return func(m *Manager) {
		m.leeway = leeway
	}
}

func WithSDKVersion(version string) ManagerOption {
	return func(m *Manager) {
		m.sdkVersion = version
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithNowFunc sets the clock used by IsAuthenticated (primarily for testing).
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func New(states StateStore, options ...ManagerOption) (*Manager, error) {
	if states == nil {
		return nil, errors.New("[token.New] state store is required")
	}

	m := &Manager{
		states:     states,
		httpClient: http.DefaultClient,
		leeway:     DefaultLeeway,
		sdkVersion: DefaultSDKVersion,
		logger:     log.Logger,
		nowFunc:    time.Now,
	}
	for _, opt := range options {
		opt(m)
	}

	m.httpClient = WithSDKHeader(m.httpClient, m.sdkVersion)
	return m, nil
}

// PerformWithFreshTokens returns a non-expired access token, refreshing it first
// if needed. It fails with autherrors.ErrNotAuthenticated when there is no
// state, and with the refresh error joined to ErrNotAuthenticated when the
// refresh fails. A refresh whose starting state was cleared or replaced while
// it ran is discarded; the state that replaced it is used if it is still valid.
func (m *Manager) PerformWithFreshTokens(ctx context.Context) (*Tokens, error) {
	m.refreshLock.Lock()
	defer m.refreshLock.Unlock()

	state := m.states.State()
	if state == nil {
		m.logger.Error().Msg("Failed to get authentication state")
		return nil, autherrors.ErrNotAuthenticated
	}

	current := state.Token()
	refresher := state.OAuth2Config().TokenSource(
		context.WithValue(ctx, oauth2.HTTPClient, m.httpClient),
		&oauth2.Token{RefreshToken: current.RefreshToken},
	)
	tok, err := oauth2.ReuseTokenSourceWithExpiry(current, refresher, m.leeway).Token()
	if err != nil {
		m.logger.Error().Err(err).Msg("Failed to refresh tokens")
		m.states.StateDidEncounterAuthorizationError(state, state.WithAuthorizationError(err), err)
		return nil, fmt.Errorf("%w: %w", autherrors.ErrNotAuthenticated, err)
	}

	if tok.AccessToken != current.AccessToken {
		refreshed := state.WithToken(tok)
		if m.states.StateDidChange(state, refreshed) {
			m.logger.Debug().Time("expiry", refreshed.Expiry).Msg("Refreshed access token")
			state = refreshed
		} else {
			state = m.states.State()
			if !state.IsAuthenticated(m.nowFunc().Add(m.leeway)) {
				return nil, autherrors.ErrNotAuthenticated
			}
		}
	}

	if state.AccessToken == "" {
		return nil, autherrors.ErrNotAuthenticated
	}
	return &Tokens{AccessToken: state.AccessToken, IDToken: state.IDToken}, nil
}

// GetToken returns the requested token from a fresh-token round.
func (m *Manager) GetToken(ctx context.Context, desired authstate.TokenType) (string, error) {
	tokens, err := m.PerformWithFreshTokens(ctx)
	if err != nil {
		return "", err
	}

	raw := tokens.AccessToken
	if desired == authstate.IDToken {
		raw = tokens.IDToken
	}
	if raw == "" {
		return "", fmt.Errorf("%w: no %s available", autherrors.ErrNotAuthenticated, desired)
	}
	return raw, nil
}

// IsAuthorized reports the last known authorization flag without checking expiry.
func (m *Manager) IsAuthorized() bool {
	state := m.states.State()
	return state != nil && state.Authorized
}

// IsAuthenticated reports whether the state is authorized and its access
// token expires strictly in the future.
func (m *Manager) IsAuthenticated() bool {
	return m.states.State().IsAuthenticated(m.nowFunc())
}
