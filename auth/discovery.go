package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-kinde-auth/autherrors"
)

// ProviderMetadata is the part of the OIDC discovery document the SDK uses.
type ProviderMetadata struct {
	Issuer        string
	AuthURL       string
	TokenURL      string
	UserInfoURL   string
	EndSessionURL string
}

// Discoverer fetches the provider metadata for an issuer.
type Discoverer interface {
	Discover(ctx context.Context, issuer string) (*ProviderMetadata, error)
}

// OIDCDiscoverer reads /.well-known/openid-configuration through go-oidc.
type OIDCDiscoverer struct {
	HTTPClient *http.Client
}

var _ Discoverer = OIDCDiscoverer{}

func (d OIDCDiscoverer) Discover(ctx context.Context, issuer string) (*ProviderMetadata, error) {
	if d.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, d.HTTPClient)
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, autherrors.Wrapf(err, "failed to discover provider")
	}

	var extra struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := provider.Claims(&extra); err != nil {
		return nil, autherrors.Wrapf(err, "failed to read discovery document")
	}

	endpoint := provider.Endpoint()
	if endpoint.AuthURL == "" || endpoint.TokenURL == "" {
		return nil, errors.New("discovery document has no authorization or token endpoint")
	}

	return &ProviderMetadata{
		Issuer:        issuer,
		AuthURL:       endpoint.AuthURL,
		TokenURL:      endpoint.TokenURL,
		UserInfoURL:   provider.UserInfoEndpoint(),
		EndSessionURL: extra.EndSessionEndpoint,
	}, nil
}
