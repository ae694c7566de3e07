package domain

import "time"

// PluginEvent is an event created through the plugin API, scoped to the
// tenant that created it.
type PluginEvent struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	StartsAt    time.Time `json:"startsAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
