package auth

import (
	"net/http"
	"time"

	"github.com/jrsteele09/go-kinde-auth/oauthmodel"
	"github.com/rs/zerolog"
)

// ControllerOption defines a function type to modify the Controller instance.
type ControllerOption func(*Controller)

// WithUserAgent sets the agent used to present authorization requests.
// Without one every flow fails with autherrors.ErrNotAuthenticated.
func WithUserAgent(agent UserAgent) ControllerOption {
	return func(c *Controller) {
		c.agent = agent
	}
}

func WithDiscoverer(d Discoverer) ControllerOption {
	return func(c *Controller) {
		c.discoverer = d
	}
}

// WithHTTPClient sets the client used for discovery and the code exchange.
func WithHTTPClient(client *http.Client) ControllerOption {
	return func(c *Controller) {
		c.httpClient = client
	}
}

func WithLogger(logger zerolog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.nowTime = nowFunc
	}
}

// WithPrivateSession sets the default for the ephemeral user agent session.
func WithPrivateSession(private bool) ControllerOption {
	return func(c *Controller) {
		c.privateSession = private
	}
}

// WithSDKVersion sets the version reported in the SDK identification header.
func WithSDKVersion(version string) ControllerOption {
	return func(c *Controller) {
		c.sdkVersion = version
	}
}

// FlowOption customises a single login, register or create org flow.
type FlowOption func(*flowOptions)

type flowOptions struct {
	params   oauthmodel.AuthorizationParameters
	useNonce bool
	private  *bool
}

func WithOrgCode(orgCode string) FlowOption {
	return func(o *flowOptions) {
		o.params.OrgCode = orgCode
	}
}

func WithOrgName(orgName string) FlowOption {
	return func(o *flowOptions) {
		o.params.OrgName = orgName
	}
}

func WithLoginHint(hint string) FlowOption {
	return func(o *flowOptions) {
		o.params.LoginHint = hint
	}
}

func WithPlanInterest(plan string) FlowOption {
	return func(o *flowOptions) {
		o.params.PlanInterest = plan
	}
}

func WithPricingTableKey(key string) FlowOption {
	return func(o *flowOptions) {
		o.params.PricingTableKey = key
	}
}

// WithNonce asks for a nonce to be sent and checked against the ID token.
func WithNonce() FlowOption {
	return func(o *flowOptions) {
		o.useNonce = true
	}
}

// WithEphemeralSession overrides the private session default for this flow.
func WithEphemeralSession(ephemeral bool) FlowOption {
	return func(o *flowOptions) {
		o.private = &ephemeral
	}
}
