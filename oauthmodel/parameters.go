package oauthmodel

import (
	"net/url"

	"golang.org/x/oauth2"
)

// FlowType selects which page the authorization server opens on.
type FlowType int

const (
	FlowLogin FlowType = iota
	FlowRegister
	FlowCreateOrg
)

func (f FlowType) String() string {
	switch f {
	case FlowRegister:
		return "register"
	case FlowCreateOrg:
		return "create_org"
	}
	return "login"
}

// Provider specific authorization parameter names.
const (
	ParamStartPage       = "start_page"
	ParamPrompt          = "prompt"
	ParamIsCreateOrg     = "is_create_org"
	ParamAudience        = "audience"
	ParamOrgCode         = "org_code"
	ParamOrgName         = "org_name"
	ParamLoginHint       = "login_hint"
	ParamPlanInterest    = "plan_interest"
	ParamPricingTableKey = "pricing_table_key"
	ParamNonce           = "nonce"
)

// AuthorizationParameters holds the provider specific parameters added to the
// authorization request. The standard OAuth2 fields (client_id, redirect_uri,
// scope, response_type, state, code_challenge) are set by oauth2.Config.
type AuthorizationParameters struct {
	// Flow decides the start_page sent to the authorization server.
	// Values: FlowLogin -> "login", FlowRegister and FlowCreateOrg -> "registration"
	Flow FlowType

	// Prompt forces the authorization server to show its login page even if
	// the user has a session there.
	// Default: "login"
	Prompt string

	// Audience is the API the access token is requested for.
	// Required: No
	// Example: "https://api.example.com"
	Audience string

	// OrgCode signs the user in to (or registers them with) a specific organization.
	// Required: No
	// Example: "org_1234567890"
	OrgCode string

	// OrgName names the organization created by a FlowCreateOrg flow.
	// Required: No
	OrgName string

	// LoginHint pre-fills the identifier on the login page.
	// Required: No
	// Example: "jane@example.com"
	LoginHint string

	// PlanInterest preselects a billing plan on registration.
	// Required: No
	PlanInterest string

	// PricingTableKey selects the pricing table shown on registration.
	// Required: No
	PricingTableKey string

	// Nonce is echoed back in the ID token and checked on completion. It is
	// only sent when a flow explicitly requests one.
	// Required: No
	Nonce string
}

// StartPage returns the start_page value for the flow.
func (p AuthorizationParameters) StartPage() string {
	if p.Flow == FlowLogin {
		return "login"
	}
	return "registration"
}

// Values encodes the non-empty parameters.
func (p AuthorizationParameters) Values() url.Values {
	v := url.Values{}
	v.Set(ParamStartPage, p.StartPage())

	prompt := p.Prompt
	if prompt == "" {
		prompt = "login"
	}
	v.Set(ParamPrompt, prompt)

	if p.Flow == FlowCreateOrg {
		v.Set(ParamIsCreateOrg, "true")
	}

	optional := map[string]string{
		ParamAudience:        p.Audience,
		ParamOrgCode:         p.OrgCode,
		ParamOrgName:         p.OrgName,
		ParamLoginHint:       p.LoginHint,
		ParamPlanInterest:    p.PlanInterest,
		ParamPricingTableKey: p.PricingTableKey,
		ParamNonce:           p.Nonce,
	}
	for name, value := range optional {
		if value != "" {
			v.Set(name, value)
		}
	}
	return v
}

// AuthCodeOptions converts the parameters into options for oauth2.Config.AuthCodeURL.
func (p AuthorizationParameters) AuthCodeOptions() []oauth2.AuthCodeOption {
	values := p.Values()
	opts := make([]oauth2.AuthCodeOption, 0, len(values))
	for name := range values {
		opts = append(opts, oauth2.SetAuthURLParam(name, values.Get(name)))
	}
	return opts
}
