// Package kinde wires the SDK together. New validates the configuration and
// returns a ready Client; there is no global state.
package kinde

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jrsteele09/go-kinde-auth/api"
	"github.com/jrsteele09/go-kinde-auth/auth"
	"github.com/jrsteele09/go-kinde-auth/authstate"
	"github.com/jrsteele09/go-kinde-auth/claims"
	"github.com/jrsteele09/go-kinde-auth/config"
	"github.com/jrsteele09/go-kinde-auth/credentials"
	"github.com/jrsteele09/go-kinde-auth/credentials/memstore"
	"github.com/jrsteele09/go-kinde-auth/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Version is reported in the Kinde-SDK header.
const Version = "1.0.0"

// Client is the SDK handle. The embedded Facade provides the claim,
// permission, role, flag and entitlement accessors.
type Client struct {
	*claims.Facade

	cfg     config.Config
	states  *authstate.Repository
	tokens  *token.Manager
	flows   *auth.Controller
	account *api.Client
}

type options struct {
	store          credentials.Repo
	agent          auth.UserAgent
	discoverer     auth.Discoverer
	logger         zerolog.Logger
	httpClient     *http.Client
	appID          string
	leeway         time.Duration
	privateSession bool
	rateLimit      rate.Limit
	rateBurst      int
}

type Option func(*options)

// WithStore sets where the authentication state is persisted. The default
// keeps it in memory.
func WithStore(store credentials.Repo) Option {
	return func(o *options) {
		o.store = store
	}
}

func WithUserAgent(agent auth.UserAgent) Option {
	return func(o *options) {
		o.agent = agent
	}
}

func WithDiscoverer(discoverer auth.Discoverer) Option {
	return func(o *options) {
		o.discoverer = discoverer
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithAppID namespaces the persisted state, see authstate.KeyFor.
func WithAppID(appID string) Option {
	return func(o *options) {
		o.appID = appID
	}
}

// WithLeeway sets how long before expiry the access token is refreshed.
func WithLeeway(leeway time.Duration) Option {
	return func(o *options) {
		o.leeway = leeway
	}
}

func WithPrivateSession(private bool) Option {
	return func(o *options) {
		o.privateSession = private
	}
}

// WithAPIRateLimit paces Account API calls.
func WithAPIRateLimit(r rate.Limit, burst int) Option {
	return func(o *options) {
		o.rateLimit = r
		o.rateBurst = burst
	}
}

// New returns a Client for cfg. Configuration problems are reported as
// autherrors.ErrConfiguration.
func New(cfg config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		logger:     log.Logger,
		httpClient: http.DefaultClient,
		leeway:     token.DefaultLeeway,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = memstore.New()
	}

	states, err := authstate.NewRepository(authstate.KeyFor(o.appID), o.store, authstate.WithLogger(o.logger))
	if err != nil {
		return nil, fmt.Errorf("[kinde New] %w", err)
	}

	tokens, err := token.New(states,
		token.WithHTTPClient(o.httpClient),
		token.WithLeeway(o.leeway),
		token.WithSDKVersion(Version),
		token.WithLogger(o.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("[kinde New] %w", err)
	}

	controllerOptions := []auth.ControllerOption{
		auth.WithHTTPClient(o.httpClient),
		auth.WithLogger(o.logger),
		auth.WithPrivateSession(o.privateSession),
		auth.WithSDKVersion(Version),
	}
	if o.agent != nil {
		controllerOptions = append(controllerOptions, auth.WithUserAgent(o.agent))
	}
	if o.discoverer != nil {
		controllerOptions = append(controllerOptions, auth.WithDiscoverer(o.discoverer))
	}
	flows, err := auth.NewController(cfg, states, controllerOptions...)
	if err != nil {
		return nil, fmt.Errorf("[kinde New] %w", err)
	}

	baseURL, err := api.BaseURL(cfg)
	if err != nil {
		return nil, err
	}
	apiOptions := []api.Option{
		api.WithHTTPClient(o.httpClient),
		api.WithSDKVersion(Version),
		api.WithLogger(o.logger),
	}
	if o.rateLimit > 0 {
		apiOptions = append(apiOptions, api.WithRateLimit(o.rateLimit, max(o.rateBurst, 1)))
	}
	account, err := api.NewClient(baseURL, tokens, apiOptions...)
	if err != nil {
		return nil, fmt.Errorf("[kinde New] %w", err)
	}

	facade, err := claims.New(states, claims.WithAccountAPI(account), claims.WithLogger(o.logger))
	if err != nil {
		return nil, fmt.Errorf("[kinde New] %w", err)
	}

	return &Client{
		Facade:  facade,
		cfg:     cfg,
		states:  states,
		tokens:  tokens,
		flows:   flows,
		account: account,
	}, nil
}

func (c *Client) Config() config.Config {
	return c.cfg
}

func (c *Client) Login(ctx context.Context, opts ...auth.FlowOption) error {
	return c.flows.Login(ctx, opts...)
}

func (c *Client) Register(ctx context.Context, opts ...auth.FlowOption) error {
	return c.flows.Register(ctx, opts...)
}

func (c *Client) CreateOrg(ctx context.Context, opts ...auth.FlowOption) error {
	return c.flows.CreateOrg(ctx, opts...)
}

// Logout clears the local state and reports whether that succeeded.
func (c *Client) Logout() bool {
	return c.flows.Logout()
}

// LogoutURL is where to send the browser to end the provider session.
func (c *Client) LogoutURL() *url.URL {
	return c.flows.LogoutURL()
}

func (c *Client) CurrentFlow() *auth.Flow {
	return c.flows.CurrentFlow()
}

func (c *Client) IsAuthenticated() bool {
	return c.tokens.IsAuthenticated()
}

func (c *Client) IsAuthorized() bool {
	return c.tokens.IsAuthorized()
}

// GetToken returns a fresh token, refreshing it first if needed.
func (c *Client) GetToken(ctx context.Context, desired authstate.TokenType) (string, error) {
	return c.tokens.GetToken(ctx, desired)
}

func (c *Client) PerformWithFreshTokens(ctx context.Context) (*token.Tokens, error) {
	return c.tokens.PerformWithFreshTokens(ctx)
}

// State returns a snapshot of the current authentication state, or nil.
func (c *Client) State() *authstate.State {
	return c.states.State()
}

// Account gives direct access to the Account API client.
func (c *Client) Account() *api.Client {
	return c.account
}
