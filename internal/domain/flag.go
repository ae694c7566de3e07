package domain

import (
	"encoding/json"
	"time"
)

// FlagKey identifies a remotely toggleable feature flag.
type FlagKey string

const (
	// FlagSettingsUI gates the entire settings surface. Read default: enabled.
	FlagSettingsUI FlagKey = "settings_ui_enabled"
	// FlagAutoJoin gates the autoJoin preference. Read default: disabled.
	FlagAutoJoin FlagKey = "auto_join_v1"
	// FlagLiveLocation gates non-"off" locationSharing. Read default: disabled.
	FlagLiveLocation FlagKey = "live_location"
)

// KnownFlagKeys lists every flag the gateway recognizes, in bootstrap order.
var KnownFlagKeys = []FlagKey{FlagSettingsUI, FlagAutoJoin, FlagLiveLocation}

// IsKnownFlagKey reports whether key is one of the recognized flags.
func IsKnownFlagKey(key FlagKey) bool {
	for _, k := range KnownFlagKeys {
		if k == key {
			return true
		}
	}
	return false
}

// FeatureFlag is the persisted state of one flag. Toggled distinguishes an
// admin-written row from a bootstrap row: the bootstrap persists
// enabled=false for every key, and the read layer keeps serving the
// documented default until an admin actually toggles the flag.
type FeatureFlag struct {
	Key       FlagKey         `json:"key"`
	Enabled   bool            `json:"enabled"`
	Toggled   bool            `json:"toggled"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// FlagState is the read-layer view of one flag.
type FlagState struct {
	Enabled bool            `json:"enabled"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// FlagSnapshot is a point-in-time view of all recognized flags, taken once
// per request and consulted for every gating decision within it.
type FlagSnapshot map[FlagKey]FlagState

// Enabled reports the state of key in the snapshot, falling back to the
// documented read default when the key is absent.
func (s FlagSnapshot) Enabled(key FlagKey) bool {
	if state, ok := s[key]; ok {
		return state.Enabled
	}
	return FlagReadDefault(key)
}

// FlagReadDefault is the externally visible default for a flag that has
// never been toggled. The persisted bootstrap writes enabled=false for every
// key; only the read layer grants settings_ui_enabled its enabled default.
func FlagReadDefault(key FlagKey) bool {
	return key == FlagSettingsUI
}

// DefaultFlagSnapshot is the documented fail-open snapshot used when the
// flag store is unreachable: optional features read as disabled, the
// settings surface stays up.
func DefaultFlagSnapshot() FlagSnapshot {
	snap := make(FlagSnapshot, len(KnownFlagKeys))
	for _, key := range KnownFlagKeys {
		snap[key] = FlagState{Enabled: FlagReadDefault(key)}
	}
	return snap
}
