package model

import (
	"time"

	"github.com/google/uuid"
)

// VehicleStatus enum constants
const (
	VehicleUnregistered    = "Unregistered"
	VehiclePendingApproval = "PendingApproval"
	VehicleRegistered      = "Registered"
	VehicleRejected        = "Rejected"
)

// vehicleTransitions is the allowed status graph for a vehicle. Registered
// and Rejected are terminal for the registration workflow; ownership
// transfers mutate the owner and registration number, not the status.
var vehicleTransitions = map[string][]string{
	VehicleUnregistered:    {VehiclePendingApproval},
	VehiclePendingApproval: {VehicleRegistered, VehicleRejected},
	VehicleRegistered:      {},
	VehicleRejected:        {},
}

// CanTransitionVehicle reports whether from -> to is an allowed status change.
func CanTransitionVehicle(from, to string) bool {
	for _, s := range vehicleTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Vehicle is the registry record for one physical vehicle. Chassis and engine
// numbers are globally unique and enforced by the database, not by reads.
type Vehicle struct {
	ID                 uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerID            uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner              *User      `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Make               string     `gorm:"type:varchar(100);not null" json:"make"`
	Model              string     `gorm:"type:varchar(100);not null" json:"model"`
	Year               int        `gorm:"not null" json:"year"`
	Color              string     `gorm:"type:varchar(50)" json:"color"`
	ChassisNumber      string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"chassis_number"`
	EngineNumber       string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"engine_number"`
	Status             string     `gorm:"type:varchar(30);not null;default:'Unregistered';index" json:"status"`
	RegistrationNumber *string    `gorm:"type:varchar(50);uniqueIndex" json:"registration_number"`
	RegistrationDate   *time.Time `json:"registration_date"`
	RejectionReason    string     `gorm:"type:text" json:"rejection_reason,omitempty"`
	Documents          []Document `gorm:"foreignKey:VehicleID" json:"documents,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// DocumentType enum constants
const (
	DocTypeCnic             = "CNIC"
	DocTypeDrivingLicense   = "DrivingLicense"
	DocTypeRegistrationCard = "RegistrationCard"
	DocTypeUniversityCard   = "UniversityCard"
)

// ValidDocumentType reports whether t is a known document type.
func ValidDocumentType(t string) bool {
	switch t {
	case DocTypeCnic, DocTypeDrivingLicense, DocTypeRegistrationCard, DocTypeUniversityCard:
		return true
	}
	return false
}

// Document is an uploaded supporting file for a vehicle registration.
// Immutable once stored; repeated uploads accumulate rather than replace.
type Document struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	VehicleID    uuid.UUID `gorm:"type:uuid;not null;index" json:"vehicle_id"`
	DocumentType string    `gorm:"type:varchar(30);not null" json:"document_type"`
	FileName     string    `gorm:"type:varchar(255)" json:"file_name"`
	MimeType     string    `gorm:"type:varchar(100)" json:"mime_type"`
	FileData     []byte    `gorm:"type:bytea" json:"file_data,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}
