package database

import (
	"securechain/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM.
// TranslateError maps postgres unique violations to gorm.ErrDuplicatedKey so
// services can detect chassis/engine/email collisions without string checks.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.OtpCode{},
		&model.Vehicle{},
		&model.Document{},
		&model.InspectionRequest{},
		&model.Challan{},
		&model.TransferTransaction{},
		&model.AuditLog{},
	)
	if err != nil {
		logrus.WithError(err).Warn("Failed to auto-migrate models")
	}

	// Partial unique indexes backing the one-active-workflow-per-vehicle
	// invariant. AutoMigrate cannot express these.
	db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_inspection_one_pending
		ON inspection_requests (vehicle_id) WHERE status = 'Pending'`)
	db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_transfer_one_pending
		ON transfer_transactions (vehicle_id) WHERE status = 'Pending'`)

	return db, nil
}
