package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChallanType enum constants
const (
	ChallanTypeRegistration      = "Registration"
	ChallanTypeOwnershipTransfer = "OwnershipTransfer"
)

// ValidChallanType reports whether t is a known challan type.
func ValidChallanType(t string) bool {
	return t == ChallanTypeRegistration || t == ChallanTypeOwnershipTransfer
}

// PaymentStatus enum constants
const (
	ChallanUnpaid = "Unpaid"
	ChallanPaid   = "Paid"
)

// Challan is an issued fee tied to a vehicle and the workflow that created
// it. Immutable except for the one-way Unpaid -> Paid transition. OwnerID is
// the vehicle owner at issuance time; it does not follow later ownership
// transfers, so the debt stays with whoever incurred it.
type Challan struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	VehicleID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"vehicle_id"`
	Vehicle       *Vehicle        `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	OwnerID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"owner_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Type          string          `gorm:"type:varchar(30);not null" json:"type"`
	IssueDate     time.Time       `gorm:"not null" json:"issue_date"`
	DueDate       time.Time       `gorm:"not null" json:"due_date"`
	PaymentStatus string          `gorm:"type:varchar(20);not null;default:'Unpaid';index" json:"payment_status"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
