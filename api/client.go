// Package api calls the Kinde Account API with the user's access token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jrsteele09/go-kinde-auth/autherrors"
	"github.com/jrsteele09/go-kinde-auth/authstate"
	"github.com/jrsteele09/go-kinde-auth/config"
	"github.com/jrsteele09/go-kinde-auth/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	PathFeatureFlags = "/account_api/v1/feature_flags"
	PathPermissions  = "/account_api/v1/permissions"
	PathRoles        = "/account_api/v1/roles"
	PathEntitlements = "/account_api/v1/entitlements"
	PathEntitlement  = "/account_api/v1/entitlement/"
	PathUserProfile  = "/oauth2/v2/user_profile"

	maxResponseSize = 1 << 20
)

// TokenProvider hands out a fresh token of the requested type.
type TokenProvider interface {
	GetToken(ctx context.Context, desired authstate.TokenType) (string, error)
}

// Client is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	tokens     TokenProvider
	httpClient *http.Client
	limiter    *rate.Limiter
	sdkVersion string
	logger     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRateLimit paces outgoing requests to r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(r, burst)
	}
}

func WithSDKVersion(version string) Option {
	return func(c *Client) {
		c.sdkVersion = version
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// BaseURL returns the Account API base for cfg: the issuer's scheme and host.
func BaseURL(cfg config.Config) (*url.URL, error) {
	issuer := cfg.IssuerURL()
	if issuer == nil {
		return nil, fmt.Errorf("%w: issuer %q", autherrors.ErrInvalidURL, cfg.Issuer)
	}
	return &url.URL{Scheme: issuer.Scheme, Host: issuer.Host}, nil
}

func NewClient(baseURL *url.URL, tokens TokenProvider, options ...Option) (*Client, error) {
	if baseURL == nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("[NewClient] %w: base url is required", autherrors.ErrInvalidURL)
	}
	if tokens == nil {
		return nil, errors.New("[NewClient] token provider is required")
	}

	c := &Client{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: http.DefaultClient,
		sdkVersion: token.DefaultSDKVersion,
		logger:     log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	c.httpClient = token.WithSDKHeader(c.httpClient, c.sdkVersion)
	return c, nil
}

func (c *Client) FeatureFlags(ctx context.Context) (*FeatureFlagsData, error) {
	var data FeatureFlagsData
	if err := c.getEnveloped(ctx, PathFeatureFlags, nil, &data, nil); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) Permissions(ctx context.Context) (*PermissionsData, error) {
	var data PermissionsData
	if err := c.getEnveloped(ctx, PathPermissions, nil, &data, nil); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) Roles(ctx context.Context) (*RolesData, error) {
	var data RolesData
	if err := c.getEnveloped(ctx, PathRoles, nil, &data, nil); err != nil {
		return nil, err
	}
	return &data, nil
}

// Entitlements returns one page of entitlements. A pageSize of zero leaves
// the page size to the server; an empty startingAfter starts at the beginning.
func (c *Client) Entitlements(ctx context.Context, pageSize int, startingAfter string) (*EntitlementsPage, error) {
	query := url.Values{}
	if pageSize > 0 {
		query.Set("page_size", strconv.Itoa(pageSize))
	}
	if startingAfter != "" {
		query.Set("starting_after", startingAfter)
	}

	var page EntitlementsPage
	if err := c.getEnveloped(ctx, PathEntitlements, query, &page.Data, &page.Metadata); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) Entitlement(ctx context.Context, key string) (*Entitlement, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: entitlement key is required", autherrors.ErrInvalidURL)
	}
	var data Entitlement
	if err := c.getEnveloped(ctx, PathEntitlement+url.PathEscape(key), nil, &data, nil); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) UserProfile(ctx context.Context) (*UserProfile, error) {
	var profile UserProfile
	body, err := c.get(ctx, PathUserProfile, nil)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("%w: %w", autherrors.ErrDecoding, err)
	}
	return &profile, nil
}

type envelope struct {
	Success  *bool           `json:"success"`
	Data     json.RawMessage `json:"data"`
	Metadata json.RawMessage `json:"metadata"`
}

// getEnveloped decodes a {success, data, metadata} response. A missing
// success field counts as success.
func (c *Client) getEnveloped(ctx context.Context, path string, query url.Values, data, metadata any) error {
	body, err := c.get(ctx, path, query)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: %w", autherrors.ErrDecoding, err)
	}
	if env.Success != nil && !*env.Success {
		return fmt.Errorf("%w: %s reported failure", autherrors.ErrInvalidResponse, path)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%w: %s returned no data", autherrors.ErrInvalidResponse, path)
	}
	if err := json.Unmarshal(env.Data, data); err != nil {
		return fmt.Errorf("%w: %w", autherrors.ErrDecoding, err)
	}
	if metadata != nil && len(env.Metadata) > 0 {
		if err := json.Unmarshal(env.Metadata, metadata); err != nil {
			return fmt.Errorf("%w: %w", autherrors.ErrDecoding, err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	accessToken, err := c.tokens.GetToken(ctx, authstate.AccessToken)
	if err != nil {
		return nil, newBearerError(err)
	}

	u := c.baseURL.JoinPath(path)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", autherrors.ErrInvalidURL, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, autherrors.Wrapf(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, autherrors.Wrapf(err, "failed to read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error().Int("status", resp.StatusCode).Str("path", path).Msg("Account API request failed")
		return nil, &autherrors.ServerError{StatusCode: resp.StatusCode}
	}
	return body, nil
}
