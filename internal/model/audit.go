package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionSignup            = "SIGNUP"
	ActionRegisterVehicle   = "REGISTER_VEHICLE"
	ActionUploadDocument    = "UPLOAD_DOCUMENT"
	ActionSubmitDocuments   = "SUBMIT_DOCUMENTS"
	ActionCreateInspection  = "CREATE_INSPECTION_REQUEST"
	ActionApproveInspection = "APPROVE_INSPECTION"
	ActionRejectInspection  = "REJECT_INSPECTION"
	ActionCreateChallan     = "CREATE_CHALLAN"
	ActionPayChallan        = "PAY_CHALLAN"
	ActionInitiateTransfer  = "INITIATE_TRANSFER"
	ActionApproveTransfer   = "APPROVE_TRANSFER"
	ActionRejectTransfer    = "REJECT_TRANSFER"
	ActionUpdateProfile     = "UPDATE_PROFILE"
	ActionChangePassword    = "CHANGE_PASSWORD"
)

// AuditLog tracks who changed what and when. Rows are written inside the
// same transaction as the state change they describe and are never updated
// or deleted afterwards.
type AuditLog struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User         *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action       string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID     string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName   string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	VehicleID    *uuid.UUID `gorm:"type:uuid;index" json:"vehicle_id"`
	BeforeStatus string     `gorm:"type:varchar(30)" json:"before_status,omitempty"`
	AfterStatus  string     `gorm:"type:varchar(30)" json:"after_status,omitempty"`
	Details      string     `gorm:"type:jsonb" json:"details"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
}
