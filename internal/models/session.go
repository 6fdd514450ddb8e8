package models

import (
	"time"
)

// Session is one check-in-to-check-out interval for a user within a scope.
// Created at check-in, mutated exactly once at check-out, then immutable.
type Session struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID  uint `gorm:"not null;index" json:"user_id"`
	ScopeID uint `gorm:"not null;index" json:"scope_id"`

	StartedAt time.Time  `gorm:"not null" json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`

	// Mirrors EndedAt == nil; stored so active lookups and the partial
	// unique index don't scan timestamps
	Active bool `gorm:"not null;default:true" json:"active"`

	// Whole minutes, floored; set only when the session closes
	DurationMinutes *int `json:"duration_minutes"`

	// Relationships
	User  User  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Scope Scope `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"scope"`
}
