package repository

import (
	"context"
	"fmt"
	"time"

	"securechain/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VehicleRepository defines data access for vehicles and their documents.
type VehicleRepository interface {
	Create(ctx context.Context, vehicle *model.Vehicle) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Vehicle, error)
	GetByIDWithDocuments(ctx context.Context, id uuid.UUID) (*model.Vehicle, error)
	// GetByIDForUpdate locks the vehicle row for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Vehicle, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Vehicle, error)
	ListByStatus(ctx context.Context, status string) ([]model.Vehicle, error)
	Update(ctx context.Context, vehicle *model.Vehicle) error

	AddDocument(ctx context.Context, doc *model.Document) error
	CountDocuments(ctx context.Context, vehicleID uuid.UUID) (int64, error)

	// NextRegistrationNo issues the next registration number for the given
	// date prefix, serialized with an advisory lock.
	NextRegistrationNo(ctx context.Context, now time.Time) (string, error)
}

type vehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) VehicleRepository {
	return &vehicleRepository{db: db}
}

func (r *vehicleRepository) Create(ctx context.Context, vehicle *model.Vehicle) error {
	return GetDB(ctx, r.db).Create(vehicle).Error
}

func (r *vehicleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	if err := GetDB(ctx, r.db).Preload("Owner").First(&vehicle, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *vehicleRepository) GetByIDWithDocuments(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	if err := GetDB(ctx, r.db).Preload("Owner").Preload("Documents").First(&vehicle, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *vehicleRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&vehicle, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *vehicleRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Vehicle, error) {
	var vehicles []model.Vehicle
	err := GetDB(ctx, r.db).
		Where("owner_id = ?", ownerID).
		Order("created_at desc").
		Find(&vehicles).Error
	if err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (r *vehicleRepository) ListByStatus(ctx context.Context, status string) ([]model.Vehicle, error) {
	var vehicles []model.Vehicle
	err := GetDB(ctx, r.db).
		Preload("Owner").
		Preload("Documents").
		Where("status = ?", status).
		Order("created_at asc").
		Find(&vehicles).Error
	if err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (r *vehicleRepository) Update(ctx context.Context, vehicle *model.Vehicle) error {
	return GetDB(ctx, r.db).Save(vehicle).Error
}

func (r *vehicleRepository) AddDocument(ctx context.Context, doc *model.Document) error {
	return GetDB(ctx, r.db).Create(doc).Error
}

func (r *vehicleRepository) CountDocuments(ctx context.Context, vehicleID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Document{}).Where("vehicle_id = ?", vehicleID).Count(&count).Error
	return count, err
}

func (r *vehicleRepository) NextRegistrationNo(ctx context.Context, now time.Time) (string, error) {
	db := GetDB(ctx, r.db)
	prefix := "VR-" + now.Format("20060102") + "-"

	// Advisory lock prevents two concurrent approvals from counting the same
	// prefix and issuing duplicate numbers.
	db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix)

	var count int64
	err := db.Model(&model.Vehicle{}).
		Where("registration_number LIKE ?", prefix+"%").
		Count(&count).Error
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}
