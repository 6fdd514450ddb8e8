package models

import (
	"time"
)

// ScopeKind distinguishes the two things attendance is tracked against
type ScopeKind string

const (
	KindFacility ScopeKind = "facility"
	KindEvent    ScopeKind = "event"
)

// Scope is a facility or an event. The two share the session lifecycle and
// differ only in the policy knobs below.
type Scope struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Slug string    `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	Name string    `gorm:"size:255;not null" json:"name"`
	Kind ScopeKind `gorm:"size:16;not null;index" json:"kind"`

	// Facility-only: a disabled facility rejects every tap
	Active bool `gorm:"default:true" json:"active"`

	// nil means unlimited / no minimum / no scheduled end
	Capacity       *int       `json:"capacity"`
	MinimumMinutes *int       `json:"minimum_minutes"`
	EndTime        *time.Time `json:"end_time"`
}

// RequiresVerification reports whether check-in demands a verified identity.
// Facility doors do; event desks stay low-friction for terminal check-in.
func (s *Scope) RequiresVerification() bool {
	return s.Kind == KindFacility
}

// ExclusiveAcrossKind reports whether a user may hold an active session in at
// most one scope of this kind at a time. You can only be in one building;
// events are independent of each other.
func (s *Scope) ExclusiveAcrossKind() bool {
	return s.Kind == KindFacility
}
