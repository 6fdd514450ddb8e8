package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a platform member whose RFID card can be tapped at facilities and events
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name    string `gorm:"size:255;not null" json:"name"`
	Email   string `gorm:"size:255;unique;not null" json:"email"`
	CardUID string `gorm:"size:64;uniqueIndex" json:"card_uid"`

	// Set once the email OTP flow completes; facility check-in requires it
	VerifiedAt *time.Time `json:"verified_at"`

	// Which facility the user is currently checked into, if any. Denormalized
	// for O(1) "where is this person" lookups; written only in the same
	// transaction as the session it mirrors.
	CurrentFacilityID *uint  `json:"current_facility_id"`
	CurrentFacility   *Scope `gorm:"foreignKey:CurrentFacilityID" json:"-"`
}

// Verified reports whether the user completed email verification
func (u *User) Verified() bool {
	return u.VerifiedAt != nil
}
