package model

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowStatus enum constants shared by inspections and transfers.
// Pending is the only non-terminal state.
const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

// TerminalStatus reports whether s is a terminal workflow status.
func TerminalStatus(s string) bool {
	return s == StatusApproved || s == StatusRejected
}

// InspectionRequest schedules an officer against a vehicle. At most one
// Pending request may exist per vehicle, enforced by a partial unique index
// (see database.NewConnection) on top of the locked service-level check.
type InspectionRequest struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	VehicleID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"vehicle_id"`
	Vehicle         *Vehicle   `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	OfficerID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"officer_id"`
	Officer         *User      `gorm:"foreignKey:OfficerID" json:"officer,omitempty"`
	AppointmentDate time.Time  `gorm:"not null" json:"appointment_date"`
	Status          string     `gorm:"type:varchar(20);not null;default:'Pending';index" json:"status"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
