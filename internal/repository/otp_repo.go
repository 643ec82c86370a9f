package repository

import (
	"context"

	"securechain/internal/model"

	"gorm.io/gorm"
)

// OtpRepository defines data access for one-time codes.
type OtpRepository interface {
	Create(ctx context.Context, otp *model.OtpCode) error
	// Latest returns the most recently issued code for an email and purpose.
	Latest(ctx context.Context, email, purpose string) (*model.OtpCode, error)
	Update(ctx context.Context, otp *model.OtpCode) error
}

type otpRepository struct {
	db *gorm.DB
}

func NewOtpRepository(db *gorm.DB) OtpRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) Create(ctx context.Context, otp *model.OtpCode) error {
	return GetDB(ctx, r.db).Create(otp).Error
}

func (r *otpRepository) Latest(ctx context.Context, email, purpose string) (*model.OtpCode, error) {
	var otp model.OtpCode
	err := GetDB(ctx, r.db).
		Where("email = ? AND purpose = ?", email, purpose).
		Order("created_at desc").
		First(&otp).Error
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

func (r *otpRepository) Update(ctx context.Context, otp *model.OtpCode) error {
	return GetDB(ctx, r.db).Save(otp).Error
}
