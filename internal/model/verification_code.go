package model

import "time"

// VerificationCode holds the hash of a one-time code sent to an email
// address. At most one row exists per email, a new code replaces the
// old one. Verified marks a code that was checked through the
// verify-otp endpoint but not yet spent on a registration.
type VerificationCode struct {
	ID        int    `gorm:"primaryKey;autoIncrement"`
	Email     string `gorm:"uniqueIndex;not null"`
	CodeHash  string `gorm:"not null"`
	Verified  bool   `gorm:"default:false"`
	CreatedAt time.Time
	ExpiresAt time.Time
}
