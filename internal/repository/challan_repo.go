package repository

import (
	"context"

	"securechain/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChallanRepository defines data access for challans.
type ChallanRepository interface {
	Create(ctx context.Context, challan *model.Challan) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Challan, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Challan, error)
	ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]model.Challan, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Challan, error)
	CountByVehicles(ctx context.Context, vehicleIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	Update(ctx context.Context, challan *model.Challan) error
}

type challanRepository struct {
	db *gorm.DB
}

func NewChallanRepository(db *gorm.DB) ChallanRepository {
	return &challanRepository{db: db}
}

func (r *challanRepository) Create(ctx context.Context, challan *model.Challan) error {
	return GetDB(ctx, r.db).Create(challan).Error
}

func (r *challanRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Challan, error) {
	var challan model.Challan
	if err := GetDB(ctx, r.db).Preload("Vehicle").First(&challan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &challan, nil
}

func (r *challanRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Challan, error) {
	var challan model.Challan
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&challan, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &challan, nil
}

func (r *challanRepository) ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]model.Challan, error) {
	var challans []model.Challan
	err := GetDB(ctx, r.db).
		Where("vehicle_id = ?", vehicleID).
		Order("issue_date desc").
		Find(&challans).Error
	if err != nil {
		return nil, err
	}
	return challans, nil
}

// ListByOwner filters on the owner snapshotted at issuance, so an ownership
// transfer never moves outstanding fees onto the buyer.
func (r *challanRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Challan, error) {
	var challans []model.Challan
	err := GetDB(ctx, r.db).
		Where("owner_id = ?", ownerID).
		Preload("Vehicle").
		Order("issue_date desc").
		Find(&challans).Error
	if err != nil {
		return nil, err
	}
	return challans, nil
}

// CountByVehicles returns the challan count per vehicle in a single grouped
// query. Vehicles with no challans are absent from the map.
func (r *challanRepository) CountByVehicles(ctx context.Context, vehicleIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(vehicleIDs))
	if len(vehicleIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		VehicleID uuid.UUID
		Total     int64
	}
	err := GetDB(ctx, r.db).Model(&model.Challan{}).
		Select("vehicle_id, count(*) as total").
		Where("vehicle_id IN ?", vehicleIDs).
		Group("vehicle_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.VehicleID] = row.Total
	}
	return counts, nil
}

func (r *challanRepository) Update(ctx context.Context, challan *model.Challan) error {
	return GetDB(ctx, r.db).Save(challan).Error
}
