package repository

import (
	"context"

	"securechain/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransferRepository defines data access for ownership transfers.
type TransferRepository interface {
	Create(ctx context.Context, tx *model.TransferTransaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.TransferTransaction, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.TransferTransaction, error)
	CountActiveByVehicle(ctx context.Context, vehicleID uuid.UUID) (int64, error)
	ListPending(ctx context.Context) ([]model.TransferTransaction, error)
	LatestByVehicle(ctx context.Context, vehicleID uuid.UUID) (*model.TransferTransaction, error)
	Update(ctx context.Context, tx *model.TransferTransaction) error
}

type transferRepository struct {
	db *gorm.DB
}

func NewTransferRepository(db *gorm.DB) TransferRepository {
	return &transferRepository{db: db}
}

func (r *transferRepository) Create(ctx context.Context, tx *model.TransferTransaction) error {
	return GetDB(ctx, r.db).Create(tx).Error
}

func (r *transferRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TransferTransaction, error) {
	var transfer model.TransferTransaction
	err := GetDB(ctx, r.db).
		Preload("Vehicle").
		Preload("FromUser").
		Preload("ToUser").
		First(&transfer, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (r *transferRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.TransferTransaction, error) {
	var transfer model.TransferTransaction
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&transfer, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (r *transferRepository) CountActiveByVehicle(ctx context.Context, vehicleID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.TransferTransaction{}).
		Where("vehicle_id = ? AND status = ?", vehicleID, model.StatusPending).
		Count(&count).Error
	return count, err
}

func (r *transferRepository) ListPending(ctx context.Context) ([]model.TransferTransaction, error) {
	var transfers []model.TransferTransaction
	err := GetDB(ctx, r.db).
		Preload("Vehicle").
		Preload("FromUser").
		Preload("ToUser").
		Where("status = ?", model.StatusPending).
		Order("created_at asc").
		Find(&transfers).Error
	if err != nil {
		return nil, err
	}
	return transfers, nil
}

func (r *transferRepository) LatestByVehicle(ctx context.Context, vehicleID uuid.UUID) (*model.TransferTransaction, error) {
	var transfer model.TransferTransaction
	err := GetDB(ctx, r.db).
		Where("vehicle_id = ?", vehicleID).
		Order("created_at desc").
		First(&transfer).Error
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (r *transferRepository) Update(ctx context.Context, tx *model.TransferTransaction) error {
	return GetDB(ctx, r.db).Save(tx).Error
}
