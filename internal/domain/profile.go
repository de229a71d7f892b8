package domain

import "time"

// Profile is the user-facing descriptive record linked to a credential.
// It holds a non-owning reference (AuthID) used only for lookup; the
// credential remains the owner of email truth and the profile copy is a
// denormalized lookup key, stored lowercase.
type Profile struct {
	ID        string     `json:"id"`
	AuthID    string     `json:"auth_id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	IsActive  bool       `json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ProfileStats aggregates counters for the stats endpoint.
type ProfileStats struct {
	TotalProfiles  int64 `json:"total_profiles"`
	RecentProfiles int64 `json:"recent_profiles"`
}
