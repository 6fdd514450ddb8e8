package models

import (
	"time"
)

// Attendance accumulates presence per (user, scope): total minutes across all
// closed sessions, whether the scope's minimum-attendance threshold has been
// met, and whether the one-time threshold notification already fired.
type Attendance struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID  uint `gorm:"not null;uniqueIndex:idx_attendance_user_scope" json:"user_id"`
	ScopeID uint `gorm:"not null;uniqueIndex:idx_attendance_user_scope" json:"scope_id"`

	TotalMinutes int  `gorm:"not null;default:0" json:"total_minutes"`
	Eligible     bool `gorm:"not null;default:false" json:"eligible"`

	// Flips false->true exactly once, together with the first eligibility
	// transition. Never re-armed, even if notification delivery fails.
	Notified bool `gorm:"not null;default:false" json:"notified"`
}
