package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"securechain/internal/model"
	"securechain/internal/repository"
	"securechain/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs

type CreateChallanRequest struct {
	VehicleID string          `json:"vehicleId" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Type      string          `json:"type" binding:"required"`
}

type ChallanResponse struct {
	ID            uuid.UUID       `json:"id"`
	VehicleID     uuid.UUID       `json:"vehicle_id"`
	VehicleMake   string          `json:"vehicle_make,omitempty"`
	VehicleModel  string          `json:"vehicle_model,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type"`
	IssueDate     string          `json:"issue_date"`
	DueDate       string          `json:"due_date"`
	PaymentStatus string          `json:"payment_status"`
	Overdue       bool            `json:"overdue"`
}

// ChallanService issues fees against vehicles and tracks payment. Due dates
// are compared lazily at read time; nothing runs on a timer.
type ChallanService interface {
	CreateChallan(ctx context.Context, actorID uuid.UUID, req CreateChallanRequest) (*ChallanResponse, error)
	MarkPaid(ctx context.Context, actorID, challanID uuid.UUID) (*ChallanResponse, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]ChallanResponse, error)
	ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]ChallanResponse, error)
}

type challanService struct {
	challans repository.ChallanRepository
	vehicles repository.VehicleRepository
	audit    repository.AuditRepository
	txm      repository.TransactionManager
	now      func() time.Time
}

func NewChallanService(
	challans repository.ChallanRepository,
	vehicles repository.VehicleRepository,
	audit repository.AuditRepository,
	txm repository.TransactionManager,
) ChallanService {
	return &challanService{
		challans: challans,
		vehicles: vehicles,
		audit:    audit,
		txm:      txm,
		now:      time.Now,
	}
}

func (s *challanService) CreateChallan(ctx context.Context, actorID uuid.UUID, req CreateChallanRequest) (*ChallanResponse, error) {
	vehicleID, err := uuid.Parse(req.VehicleID)
	if err != nil {
		return nil, apperror.Validation("invalid vehicle id")
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.Validation("amount must be positive")
	}
	if !model.ValidChallanType(req.Type) {
		return nil, apperror.Validation("unknown challan type %q", req.Type)
	}

	vehicle, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("vehicle not found")
		}
		return nil, apperror.Internal(err)
	}

	now := s.now()
	challan := &model.Challan{
		VehicleID:     vehicleID,
		OwnerID:       vehicle.OwnerID,
		Amount:        req.Amount,
		Type:          req.Type,
		IssueDate:     now,
		DueDate:       now.Add(challanGracePeriod()),
		PaymentStatus: model.ChallanUnpaid,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.challans.Create(txCtx, challan); createErr != nil {
			return apperror.Internal(createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"amount": req.Amount.StringFixed(2),
			"type":   req.Type,
		})
		entry := &model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionCreateChallan,
			EntityID:   challan.ID.String(),
			EntityName: req.Type,
			VehicleID:  &vehicleID,
			Details:    string(details),
		}
		if auditErr := s.audit.Log(txCtx, entry); auditErr != nil {
			return apperror.Internal(auditErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.mapChallan(challan), nil
}

func (s *challanService) MarkPaid(ctx context.Context, actorID, challanID uuid.UUID) (*ChallanResponse, error) {
	var challan *model.Challan
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		challan, txErr = s.challans.GetByIDForUpdate(txCtx, challanID)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("challan not found")
			}
			return apperror.Internal(txErr)
		}

		if challan.OwnerID != actorID {
			return apperror.Authorization("only the challan owner may pay it")
		}
		if challan.PaymentStatus != model.ChallanUnpaid {
			return apperror.InvalidState("challan is already %s", challan.PaymentStatus)
		}

		now := s.now()
		challan.PaymentStatus = model.ChallanPaid
		challan.PaidAt = &now
		if txErr = s.challans.Update(txCtx, challan); txErr != nil {
			return apperror.Internal(txErr)
		}

		entry := &model.AuditLog{
			UserID:       &actorID,
			Action:       model.ActionPayChallan,
			EntityID:     challan.ID.String(),
			VehicleID:    &challan.VehicleID,
			BeforeStatus: model.ChallanUnpaid,
			AfterStatus:  model.ChallanPaid,
			Details:      "{}",
		}
		if auditErr := s.audit.Log(txCtx, entry); auditErr != nil {
			return apperror.Internal(auditErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.mapChallan(challan), nil
}

func (s *challanService) ListByUser(ctx context.Context, userID uuid.UUID) ([]ChallanResponse, error) {
	challans, err := s.challans.ListByOwner(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	result := make([]ChallanResponse, 0, len(challans))
	for i := range challans {
		result = append(result, *s.mapChallan(&challans[i]))
	}
	return result, nil
}

func (s *challanService) ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]ChallanResponse, error) {
	challans, err := s.challans.ListByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	result := make([]ChallanResponse, 0, len(challans))
	for i := range challans {
		result = append(result, *s.mapChallan(&challans[i]))
	}
	return result, nil
}

func (s *challanService) mapChallan(challan *model.Challan) *ChallanResponse {
	resp := &ChallanResponse{
		ID:            challan.ID,
		VehicleID:     challan.VehicleID,
		Amount:        challan.Amount,
		Type:          challan.Type,
		IssueDate:     challan.IssueDate.Format(time.RFC3339),
		DueDate:       challan.DueDate.Format(time.RFC3339),
		PaymentStatus: challan.PaymentStatus,
		Overdue:       challan.PaymentStatus == model.ChallanUnpaid && s.now().After(challan.DueDate),
	}
	if challan.Vehicle != nil {
		resp.VehicleMake = challan.Vehicle.Make
		resp.VehicleModel = challan.Vehicle.Model
	}
	return resp
}
