package model

import (
	"time"

	"github.com/google/uuid"
)

// OtpPurpose enum constants
const (
	OtpPurposeSignup        = "signup"
	OtpPurposePasswordReset = "password_reset"
)

// OtpCode is a single-use, time-boxed email verification code. Expiry is
// evaluated lazily when the code is checked; nothing sweeps stale rows.
type OtpCode struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email      string     `gorm:"type:varchar(255);not null;index" json:"email"`
	Code       string     `gorm:"type:varchar(10);not null" json:"-"`
	Purpose    string     `gorm:"type:varchar(20);not null" json:"purpose"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// Usable reports whether the code can still be verified at the given time.
func (o *OtpCode) Usable(now time.Time) bool {
	return o.ConsumedAt == nil && now.Before(o.ExpiresAt)
}
