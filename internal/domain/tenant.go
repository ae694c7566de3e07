package domain

// TenantSources records where each candidate value was found during
// extraction. It is retained for diagnostic logging only and must never be
// consulted again once a tenant has been resolved.
type TenantSources struct {
	QueryAPIKey    string `json:"queryApiKey,omitempty"`
	BodyAPIKey     string `json:"bodyApiKey,omitempty"`
	HeaderAPIKey   string `json:"headerApiKey,omitempty"`
	QueryTenantID  string `json:"queryTenantId,omitempty"`
	BodyTenantID   string `json:"bodyTenantId,omitempty"`
	HeaderTenantID string `json:"headerTenantId,omitempty"`
	CookieTenantID string `json:"cookieTenantId,omitempty"`
}

// TenantExtraction is the ephemeral result of probing a request for tenant
// credentials. APIKey and TenantID hold the winning candidates after
// precedence is applied; Sources holds the full provenance trace.
type TenantExtraction struct {
	APIKey   string
	TenantID string
	Sources  TenantSources
}
