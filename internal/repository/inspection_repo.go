package repository

import (
	"context"

	"securechain/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InspectionRepository defines data access for inspection requests.
type InspectionRepository interface {
	Create(ctx context.Context, req *model.InspectionRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.InspectionRequest, error)
	// GetByIDForUpdate locks the request row so concurrent approve/reject
	// calls serialize on the Pending check.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.InspectionRequest, error)
	CountActiveByVehicle(ctx context.Context, vehicleID uuid.UUID) (int64, error)
	ListByOfficer(ctx context.Context, officerID uuid.UUID) ([]model.InspectionRequest, error)
	LatestByVehicle(ctx context.Context, vehicleID uuid.UUID) (*model.InspectionRequest, error)
	Update(ctx context.Context, req *model.InspectionRequest) error
}

type inspectionRepository struct {
	db *gorm.DB
}

func NewInspectionRepository(db *gorm.DB) InspectionRepository {
	return &inspectionRepository{db: db}
}

func (r *inspectionRepository) Create(ctx context.Context, req *model.InspectionRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *inspectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.InspectionRequest, error) {
	var req model.InspectionRequest
	if err := GetDB(ctx, r.db).Preload("Vehicle").Preload("Officer").First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *inspectionRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.InspectionRequest, error) {
	var req model.InspectionRequest
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *inspectionRepository) CountActiveByVehicle(ctx context.Context, vehicleID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.InspectionRequest{}).
		Where("vehicle_id = ? AND status = ?", vehicleID, model.StatusPending).
		Count(&count).Error
	return count, err
}

func (r *inspectionRepository) ListByOfficer(ctx context.Context, officerID uuid.UUID) ([]model.InspectionRequest, error) {
	var reqs []model.InspectionRequest
	err := GetDB(ctx, r.db).
		Preload("Vehicle").
		Preload("Vehicle.Owner").
		Where("officer_id = ?", officerID).
		Order("appointment_date asc").
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *inspectionRepository) LatestByVehicle(ctx context.Context, vehicleID uuid.UUID) (*model.InspectionRequest, error) {
	var req model.InspectionRequest
	err := GetDB(ctx, r.db).
		Where("vehicle_id = ?", vehicleID).
		Order("created_at desc").
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *inspectionRepository) Update(ctx context.Context, req *model.InspectionRequest) error {
	return GetDB(ctx, r.db).Save(req).Error
}
