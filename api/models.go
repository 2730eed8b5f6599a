package api

import "github.com/jrsteele09/go-kinde-auth/token/jwt"

// Account API feature flag types.
const (
	FlagTypeBoolean = "Boolean"
	FlagTypeString  = "String"
	FlagTypeInteger = "Integer"
)

type FeatureFlagsData struct {
	FeatureFlags []FeatureFlagItem `json:"feature_flags"`
}

// FeatureFlagItem is a flag as returned by the Account API. Key, Type and
// Value may each be missing.
type FeatureFlagItem struct {
	ID    string    `json:"id,omitempty"`
	Key   string    `json:"key,omitempty"`
	Name  string    `json:"name,omitempty"`
	Type  string    `json:"type,omitempty"` // FlagTypeBoolean, FlagTypeString or FlagTypeInteger
	Value jwt.Value `json:"value"`
}

type PermissionsData struct {
	OrgCode     string      `json:"org_code,omitempty"`
	Permissions []KeyedItem `json:"permissions"`
}

type RolesData struct {
	OrgCode string      `json:"org_code,omitempty"`
	Roles   []KeyedItem `json:"roles"`
}

// KeyedItem is a permission or role entry.
type KeyedItem struct {
	ID   string `json:"id,omitempty"`
	Key  string `json:"key,omitempty"`
	Name string `json:"name,omitempty"`
}

// Keys returns the non-empty keys in order.
func Keys(items []KeyedItem) []string {
	keys := make([]string, 0, len(items))
	for _, item := range items {
		if item.Key != "" {
			keys = append(keys, item.Key)
		}
	}
	return keys
}

type Entitlements struct {
	OrgCode      string            `json:"org_code"`
	Plans        []EntitlementPlan `json:"plans"`
	Entitlements []Entitlement     `json:"entitlements"`
}

type EntitlementPlan struct {
	Code        string `json:"code"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type Entitlement struct {
	Key   string    `json:"key"`
	Value jwt.Value `json:"value"`
	Type  string    `json:"type,omitempty"`
}

// EntitlementsMetadata carries the pagination cursor.
type EntitlementsMetadata struct {
	HasMore               bool   `json:"has_more"`
	NextPageStartingAfter string `json:"next_page_starting_after,omitempty"`
}

// EntitlementsPage is one page of the entitlements listing.
type EntitlementsPage struct {
	Data     Entitlements
	Metadata EntitlementsMetadata
}

type UserProfile struct {
	ID         string `json:"id"`
	ProvidedID string `json:"provided_id,omitempty"`
	Name       string `json:"name,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	UpdatedAt  int64  `json:"updated_at"`
	Email      string `json:"email,omitempty"`
}
