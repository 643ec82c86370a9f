package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role enum constants. Authorization is enforced centrally at the route and
// service boundary against this closed set, never via ad-hoc string checks.
const (
	RoleCitizen            = "citizen"
	RoleInspectionOfficer  = "inspection_officer"
	RoleGovernmentOfficial = "government_official"
)

// ValidRole reports whether role is one of the three known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleCitizen, RoleInspectionOfficer, RoleGovernmentOfficial:
		return true
	}
	return false
}

// User represents a registered account: a citizen, an inspection officer or a
// government official. Accounts are soft-deleted only.
type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	Email          string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password       string         `gorm:"type:varchar(255);not null" json:"-"` // bcrypt hash, never serialized
	Cnic           string         `gorm:"type:varchar(15);uniqueIndex;not null" json:"cnic"`
	Phone          string         `gorm:"type:varchar(20);not null" json:"phone"`
	Address        string         `gorm:"type:text" json:"address"`
	Role           string         `gorm:"type:varchar(30);not null;index" json:"role"`
	ProfilePicture string         `gorm:"type:text" json:"profile_picture,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}
