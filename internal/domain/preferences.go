package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// LocationSharing controls how much location detail other users may see.
type LocationSharing string

const (
	LocationSharingOff         LocationSharing = "off"
	LocationSharingApproximate LocationSharing = "approximate"
	LocationSharingLive        LocationSharing = "live"
)

// ProfileVisibility controls who can view a user's profile.
type ProfileVisibility string

const (
	VisibilityPublic  ProfileVisibility = "public"
	VisibilityFriends ProfileVisibility = "friends"
	VisibilityPrivate ProfileVisibility = "private"
)

const (
	// RadiusKmMin and RadiusKmMax bound the match radius preference.
	RadiusKmMin = 1
	RadiusKmMax = 100
)

var (
	levelValues     = []string{"low", "medium", "high"}
	transportValues = []string{"walk", "bike", "transit", "car"}
	weekdayValues   = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

	clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

// TimeWindow is a daily interval in 24h "HH:MM" notation. The DND window may
// wrap past midnight, so End is not required to be after Start.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// UserPreferences is the versioned settings document, one per user. It is
// never physically deleted; account deletion sanitizes it in place.
type UserPreferences struct {
	UserID              string                  `json:"userId"`
	DisplayName         string                  `json:"displayName"`
	Spontaneity         string                  `json:"spontaneity"`
	MatchStrictness     string                  `json:"matchStrictness"`
	AutoJoin            bool                    `json:"autoJoin"`
	LocationSharing     LocationSharing         `json:"locationSharing"`
	RadiusKm            int                     `json:"radiusKm"`
	TransportPreference string                  `json:"transportPreference"`
	ProfileVisibility   ProfileVisibility       `json:"profileVisibility"`
	SafetyMode          bool                    `json:"safetyMode"`
	AccessibilityNeeds  []string                `json:"accessibilityNeeds,omitempty"`
	TimeAvailability    map[string][]TimeWindow `json:"timeAvailability,omitempty"`
	DNDSchedule         *TimeWindow             `json:"dndSchedule,omitempty"`
	UpdatedAt           time.Time               `json:"updatedAt"`
}

// DefaultPreferences derives a fresh document from the verified identity.
// It is returned for first reads without being persisted.
func DefaultPreferences(identity Identity) UserPreferences {
	name := identity.Name
	if name == "" && identity.Email != "" {
		name = strings.SplitN(identity.Email, "@", 2)[0]
	}
	return UserPreferences{
		UserID:              identity.ID,
		DisplayName:         name,
		Spontaneity:         "medium",
		MatchStrictness:     "medium",
		AutoJoin:            false,
		LocationSharing:     LocationSharingOff,
		RadiusKm:            10,
		TransportPreference: "walk",
		ProfileVisibility:   VisibilityFriends,
		SafetyMode:          true,
	}
}

// Validate checks the whole document against the preference schema and
// returns one FieldError per violation.
func (p UserPreferences) Validate() []FieldError {
	var fields []FieldError

	if p.RadiusKm < RadiusKmMin || p.RadiusKm > RadiusKmMax {
		fields = append(fields, FieldError{
			Path:    "radiusKm",
			Message: fmt.Sprintf("must be between %d and %d", RadiusKmMin, RadiusKmMax),
		})
	}
	if !contains(levelValues, p.Spontaneity) {
		fields = append(fields, enumError("spontaneity", levelValues))
	}
	if !contains(levelValues, p.MatchStrictness) {
		fields = append(fields, enumError("matchStrictness", levelValues))
	}
	switch p.LocationSharing {
	case LocationSharingOff, LocationSharingApproximate, LocationSharingLive:
	default:
		fields = append(fields, enumError("locationSharing", []string{
			string(LocationSharingOff), string(LocationSharingApproximate), string(LocationSharingLive),
		}))
	}
	if !contains(transportValues, p.TransportPreference) {
		fields = append(fields, enumError("transportPreference", transportValues))
	}
	switch p.ProfileVisibility {
	case VisibilityPublic, VisibilityFriends, VisibilityPrivate:
	default:
		fields = append(fields, enumError("profileVisibility", []string{
			string(VisibilityPublic), string(VisibilityFriends), string(VisibilityPrivate),
		}))
	}

	for day, windows := range p.TimeAvailability {
		if !contains(weekdayValues, day) {
			fields = append(fields, FieldError{
				Path:    "timeAvailability." + day,
				Message: "unknown weekday",
			})
			continue
		}
		for i, w := range windows {
			fields = append(fields, w.validate(fmt.Sprintf("timeAvailability.%s[%d]", day, i))...)
		}
	}

	if p.DNDSchedule != nil {
		fields = append(fields, p.DNDSchedule.validate("dndSchedule")...)
	}

	return fields
}

func (w TimeWindow) validate(path string) []FieldError {
	var fields []FieldError
	if !clockPattern.MatchString(w.Start) {
		fields = append(fields, FieldError{Path: path + ".start", Message: "must be HH:MM"})
	}
	if !clockPattern.MatchString(w.End) {
		fields = append(fields, FieldError{Path: path + ".end", Message: "must be HH:MM"})
	}
	return fields
}

func enumError(path string, allowed []string) FieldError {
	return FieldError{Path: path, Message: "must be one of: " + strings.Join(allowed, ", ")}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// PreferencesPatch is a merge-patch over UserPreferences: nil fields are
// left untouched, present fields replace the stored value wholesale.
type PreferencesPatch struct {
	DisplayName         *string                  `json:"displayName,omitempty"`
	Spontaneity         *string                  `json:"spontaneity,omitempty"`
	MatchStrictness     *string                  `json:"matchStrictness,omitempty"`
	AutoJoin            *bool                    `json:"autoJoin,omitempty"`
	LocationSharing     *LocationSharing         `json:"locationSharing,omitempty"`
	RadiusKm            *int                     `json:"radiusKm,omitempty"`
	TransportPreference *string                  `json:"transportPreference,omitempty"`
	ProfileVisibility   *ProfileVisibility       `json:"profileVisibility,omitempty"`
	SafetyMode          *bool                    `json:"safetyMode,omitempty"`
	AccessibilityNeeds  *[]string                `json:"accessibilityNeeds,omitempty"`
	TimeAvailability    *map[string][]TimeWindow `json:"timeAvailability,omitempty"`
	DNDSchedule         *TimeWindow              `json:"dndSchedule,omitempty"`
}

// Apply shallow-merges the patch into p. The merged document must be
// re-validated as a whole before persisting.
func (patch PreferencesPatch) Apply(p *UserPreferences) {
	if patch.DisplayName != nil {
		p.DisplayName = *patch.DisplayName
	}
	if patch.Spontaneity != nil {
		p.Spontaneity = *patch.Spontaneity
	}
	if patch.MatchStrictness != nil {
		p.MatchStrictness = *patch.MatchStrictness
	}
	if patch.AutoJoin != nil {
		p.AutoJoin = *patch.AutoJoin
	}
	if patch.LocationSharing != nil {
		p.LocationSharing = *patch.LocationSharing
	}
	if patch.RadiusKm != nil {
		p.RadiusKm = *patch.RadiusKm
	}
	if patch.TransportPreference != nil {
		p.TransportPreference = *patch.TransportPreference
	}
	if patch.ProfileVisibility != nil {
		p.ProfileVisibility = *patch.ProfileVisibility
	}
	if patch.SafetyMode != nil {
		p.SafetyMode = *patch.SafetyMode
	}
	if patch.AccessibilityNeeds != nil {
		p.AccessibilityNeeds = *patch.AccessibilityNeeds
	}
	if patch.TimeAvailability != nil {
		p.TimeAvailability = *patch.TimeAvailability
	}
	if patch.DNDSchedule != nil {
		p.DNDSchedule = patch.DNDSchedule
	}
}

// EnforcePreferenceFlags neutralizes fields whose governing flag is
// disabled. It is a view transform applied at every read and on every write
// return value; the persisted document is never rewritten by it. The
// function is idempotent and operates on a copy.
func EnforcePreferenceFlags(p UserPreferences, flags FlagSnapshot) UserPreferences {
	if !flags.Enabled(FlagAutoJoin) {
		p.AutoJoin = false
	}
	if !flags.Enabled(FlagLiveLocation) {
		p.LocationSharing = LocationSharingOff
	}
	return p
}
