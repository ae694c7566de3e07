package domain

// Identity is the authenticated caller resolved from a bearer credential.
// It is externally issued and lives for a single request; the core never
// persists it.
type Identity struct {
	ID     string   `json:"id"`
	Email  string   `json:"email,omitempty"`
	Name   string   `json:"name,omitempty"`
	Scopes []string `json:"scopes,omitempty"`
}
