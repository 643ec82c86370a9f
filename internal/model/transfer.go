package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferTransaction is a citizen-initiated request to move a vehicle to a
// new owner, decided by a government official. At most one Pending transfer
// may exist per vehicle (partial unique index + locked check).
type TransferTransaction struct {
	ID                    uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	VehicleID             uuid.UUID       `gorm:"type:uuid;not null;index" json:"vehicle_id"`
	Vehicle               *Vehicle        `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	FromUserID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"from_user_id"`
	FromUser              *User           `gorm:"foreignKey:FromUserID" json:"from_user,omitempty"`
	ToUserID              uuid.UUID       `gorm:"type:uuid;not null;index" json:"to_user_id"`
	ToUser                *User           `gorm:"foreignKey:ToUserID" json:"to_user,omitempty"`
	Fee                   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"fee"`
	Status                string          `gorm:"type:varchar(20);not null;default:'Pending';index" json:"status"`
	NewRegistrationNumber string          `gorm:"type:varchar(50)" json:"new_registration_number,omitempty"`
	DecidedBy             *uuid.UUID      `gorm:"type:uuid" json:"decided_by,omitempty"`
	DecidedAt             *time.Time      `json:"decided_at,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}
