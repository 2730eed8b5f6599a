// Package auth drives the OAuth2 authorization code flow with PKCE against a
// Kinde business: discovery, request building, presenting the request through
// a UserAgent, exchanging the code and committing the resulting state.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-kinde-auth/autherrors"
	"github.com/jrsteele09/go-kinde-auth/authstate"
	"github.com/jrsteele09/go-kinde-auth/config"
	"github.com/jrsteele09/go-kinde-auth/internal/utils"
	"github.com/jrsteele09/go-kinde-auth/oauthmodel"
	"github.com/jrsteele09/go-kinde-auth/token"
	"github.com/jrsteele09/go-kinde-auth/token/jwt"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	stateLength = 32
	nonceLength = 32
)

// StateRepository is where completed flows are committed.
type StateRepository interface {
	State() *authstate.State
	SetState(state *authstate.State) error
	Clear() error
}

// Controller runs one authorization flow at a time. The current flow and the
// cached discovery metadata are guarded by their own locks.
type Controller struct {
	cfg            config.Config
	states         StateRepository
	agent          UserAgent
	discoverer     Discoverer
	httpClient     *http.Client
	logger         zerolog.Logger
	nowTime        func() time.Time
	privateSession bool
	sdkVersion     string

	flowLock sync.Mutex
	current  *Flow

	metadataLock sync.RWMutex
	metadata     *ProviderMetadata
}

// NewController creates a Controller for cfg committing flows to states.
func NewController(cfg config.Config, states StateRepository, options ...ControllerOption) (*Controller, error) {
	if states == nil {
		return nil, errors.New("[NewController] state repository is required")
	}

	c := &Controller{
		cfg:        cfg,
		states:     states,
		httpClient: http.DefaultClient,
		logger:     log.Logger,
		nowTime:    time.Now,
		sdkVersion: token.DefaultSDKVersion,
	}
	for _, opt := range options {
		opt(c)
	}

	c.httpClient = token.WithSDKHeader(c.httpClient, c.sdkVersion)
	if c.discoverer == nil {
		c.discoverer = OIDCDiscoverer{HTTPClient: c.httpClient}
	}
	return c, nil
}

// Login signs the user in.
func (c *Controller) Login(ctx context.Context, opts ...FlowOption) error {
	return c.run(ctx, oauthmodel.FlowLogin, opts)
}

// Register opens the registration page.
func (c *Controller) Register(ctx context.Context, opts ...FlowOption) error {
	return c.run(ctx, oauthmodel.FlowRegister, opts)
}

// CreateOrg registers the user and creates an organization.
func (c *Controller) CreateOrg(ctx context.Context, opts ...FlowOption) error {
	return c.run(ctx, oauthmodel.FlowCreateOrg, opts)
}

// Logout clears the persisted state. No request is sent to the authorization
// server; see LogoutURL for ending the browser session.
func (c *Controller) Logout() bool {
	if err := c.states.Clear(); err != nil {
		c.logger.Error().Err(err).Msg("Failed to clear authentication state")
		return false
	}
	return true
}

// LogoutURL returns the provider's end session URL with the configured post
// logout redirect, or nil if the provider did not advertise one.
func (c *Controller) LogoutURL() *url.URL {
	endSession := ""
	if state := c.states.State(); state != nil {
		endSession = state.Provider.EndSessionURL
	}
	if endSession == "" {
		c.metadataLock.RLock()
		if c.metadata != nil {
			endSession = c.metadata.EndSessionURL
		}
		c.metadataLock.RUnlock()
	}
	if endSession == "" {
		return nil
	}

	u, err := url.Parse(endSession)
	if err != nil {
		return nil
	}
	if redirect := c.cfg.PostLogoutRedirectURL(); redirect != nil {
		q := u.Query()
		q.Set("redirect", redirect.String())
		u.RawQuery = q.Encode()
	}
	return u
}

// CurrentFlow returns the flow in flight, or nil.
func (c *Controller) CurrentFlow() *Flow {
	c.flowLock.Lock()
	defer c.flowLock.Unlock()
	if c.current == nil {
		return nil
	}
	return utils.Ptr(*c.current)
}

func (c *Controller) run(ctx context.Context, flowType oauthmodel.FlowType, opts []FlowOption) error {
	if c.agent == nil {
		c.logger.Error().Str("flow", flowType.String()).Msg("No user agent available to present the authorization request")
		return autherrors.ErrNotAuthenticated
	}

	issuer := c.cfg.IssuerURL()
	if issuer == nil {
		c.logger.Error().Str("issuer", c.cfg.Issuer).Msg("Failed to get issuer URL")
		return fmt.Errorf("%w: invalid issuer %q", autherrors.ErrConfiguration, c.cfg.Issuer)
	}

	metadata, err := c.discover(ctx, issuer.String())
	if err != nil {
		c.logger.Error().Err(err).Str("issuer", issuer.String()).Msg("Failed to discover provider configuration")
		return fmt.Errorf("%w: %w", autherrors.ErrConfiguration, err)
	}

	redirect := c.cfg.RedirectURL()
	if redirect == nil {
		c.logger.Error().Str("redirect_uri", c.cfg.RedirectURI).Msg("Failed to get redirect URL")
		return fmt.Errorf("%w: invalid redirect uri %q", autherrors.ErrConfiguration, c.cfg.RedirectURI)
	}

	o := flowOptions{private: nil}
	for _, opt := range opts {
		opt(&o)
	}
	o.params.Flow = flowType
	o.params.Audience = c.cfg.Audience
	if o.useNonce {
		o.params.Nonce = generateRandomString(nonceLength)
	}

	oauthConfig := &oauth2.Config{
		ClientID: c.cfg.ClientID,
		Endpoint: oauth2.Endpoint{
			AuthURL:   metadata.AuthURL,
			TokenURL:  metadata.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirect.String(),
		Scopes:      c.cfg.Scopes(),
	}

	verifier := generateCodeVerifier()
	flow := &Flow{
		ID:        uuid.NewString(),
		Type:      flowType,
		State:     generateRandomString(stateLength),
		Ephemeral: c.privateSession,
		StartedAt: c.nowTime(),
	}
	if o.private != nil {
		flow.Ephemeral = *o.private
	}

	authOpts := append(o.params.AuthCodeOptions(),
		oauth2.SetAuthURLParam("code_challenge", generateCodeChallenge(verifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
	authURL, err := url.Parse(oauthConfig.AuthCodeURL(flow.State, authOpts...))
	if err != nil {
		return fmt.Errorf("%w: %w", autherrors.ErrConfiguration, err)
	}

	c.setCurrent(flow)
	defer c.finish(flow)

	c.logger.Debug().Str("flow_id", flow.ID).Str("flow", flowType.String()).Bool("ephemeral", flow.Ephemeral).Msg("Starting authorization flow")

	provider := authstate.Provider{
		Issuer:        metadata.Issuer,
		AuthURL:       metadata.AuthURL,
		TokenURL:      metadata.TokenURL,
		EndSessionURL: metadata.EndSessionURL,
		ClientID:      c.cfg.ClientID,
		RedirectURL:   redirect.String(),
		Scopes:        oauthConfig.Scopes,
	}
	request := AuthorizationRequest{URL: authURL, RedirectURL: redirect, State: flow.State, Ephemeral: flow.Ephemeral}
	state, err := c.authorize(ctx, request, oauthConfig, verifier, o.params.Nonce, provider)
	return c.complete(flow, state, err)
}

// authorize presents the request and exchanges the returned code.
func (c *Controller) authorize(ctx context.Context, req AuthorizationRequest, oauthConfig *oauth2.Config, verifier, nonce string, provider authstate.Provider) (*authstate.State, error) {
	callback, err := c.agent.Present(ctx, req)
	if err != nil {
		return nil, err
	}

	response, err := oauthmodel.ParseCallback(callback)
	if err != nil {
		return nil, err
	}
	if err := response.Validate(req.State); err != nil {
		return nil, err
	}

	tok, err := oauthConfig.Exchange(oidc.ClientContext(ctx, c.httpClient), response.Code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, &autherrors.FlowError{
			Domain:      autherrors.DomainOAuthToken,
			Code:        autherrors.CodeOAuthError,
			Description: "code exchange failed",
			Err:         err,
		}
	}

	state := authstate.FromToken(tok, provider)
	if nonce != "" && jwt.Decode(state.IDToken).String(jwt.ClaimNonce) != nonce {
		return nil, &autherrors.FlowError{
			Domain:      autherrors.DomainGeneral,
			Code:        autherrors.CodeNonceMismatch,
			Description: "ID token nonce does not match the request",
		}
	}
	return state, nil
}

// complete commits the flow result. Failed flows clear any persisted state.
func (c *Controller) complete(flow *Flow, state *authstate.State, flowErr error) error {
	if flowErr != nil {
		if autherrors.IsUserCancellation(flowErr) {
			c.logger.Info().Str("flow_id", flow.ID).Msg("Authorization flow cancelled by the user")
		} else {
			c.logger.Error().Err(flowErr).Str("flow_id", flow.ID).Msg("Failed to finish authentication flow")
		}
		if err := c.states.Clear(); err != nil {
			c.logger.Error().Err(err).Msg("Failed to clear authentication state")
		}
		return flowErr
	}

	if state == nil || state.AccessToken == "" {
		c.logger.Error().Str("flow_id", flow.ID).Msg("Failed to get authentication state")
		if err := c.states.Clear(); err != nil {
			c.logger.Error().Err(err).Msg("Failed to clear authentication state")
		}
		return autherrors.ErrNotAuthenticated
	}

	if c.isSameAuthenticatedUser(state) {
		c.logger.Debug().Str("flow_id", flow.ID).Msg("Already authenticated as the same user, keeping existing state")
		return nil
	}

	if err := c.states.SetState(state); err != nil {
		c.logger.Error().Err(err).Str("flow_id", flow.ID).Msg("Failed to save authentication state")
		return err
	}
	c.logger.Debug().Str("flow_id", flow.ID).Time("expiry", state.Expiry).Msg("Got authorization tokens")
	return nil
}

// isSameAuthenticatedUser reports whether an authenticated state already
// exists for the user identified by the new ID token's email claim.
func (c *Controller) isSameAuthenticatedUser(state *authstate.State) bool {
	existing := c.states.State()
	if !existing.IsAuthenticated(c.nowTime()) {
		return false
	}
	email := jwt.Decode(state.IDToken).String(jwt.ClaimEmail)
	return email != "" && email == jwt.Decode(existing.IDToken).String(jwt.ClaimEmail)
}

func (c *Controller) discover(ctx context.Context, issuer string) (*ProviderMetadata, error) {
	c.metadataLock.RLock()
	metadata := c.metadata
	c.metadataLock.RUnlock()
	if metadata != nil {
		return metadata, nil
	}

	metadata, err := c.discoverer.Discover(ctx, issuer)
	if err != nil {
		return nil, err
	}
	if metadata == nil || metadata.AuthURL == "" || metadata.TokenURL == "" {
		return nil, errors.New("empty discovery result")
	}

	c.metadataLock.Lock()
	c.metadata = metadata
	c.metadataLock.Unlock()
	return metadata, nil
}

func (c *Controller) setCurrent(flow *Flow) {
	c.flowLock.Lock()
	defer c.flowLock.Unlock()
	if c.current != nil {
		c.logger.Warn().Str("flow_id", c.current.ID).Msg("Superseding authorization flow still in flight")
	}
	c.current = flow
}

func (c *Controller) finish(flow *Flow) {
	c.flowLock.Lock()
	defer c.flowLock.Unlock()
	if c.current == flow {
		c.current = nil
	}
}
