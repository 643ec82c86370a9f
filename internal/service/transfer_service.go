package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"securechain/internal/mailer"
	"securechain/internal/model"
	"securechain/internal/repository"
	"securechain/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DTOs

type InitiateTransferRequest struct {
	VehicleID    string          `json:"vehicleId" binding:"required"`
	NewOwnerCnic string          `json:"newOwnerCnic" binding:"required"`
	TransferFee  decimal.Decimal `json:"transferFee"`
}

type ApproveTransferRequest struct {
	TransactionID         string `json:"transactionId" binding:"required"`
	NewRegistrationNumber string `json:"newRegistrationNumber" binding:"required"`
}

type RejectTransferRequest struct {
	TransactionID string `json:"transactionId" binding:"required"`
}

type TransferResponse struct {
	TransactionID         uuid.UUID       `json:"transaction_id"`
	VehicleID             uuid.UUID       `json:"vehicle_id"`
	VehicleMake           string          `json:"vehicle_make,omitempty"`
	VehicleModel          string          `json:"vehicle_model,omitempty"`
	FromUserID            uuid.UUID       `json:"from_user_id"`
	FromUserName          string          `json:"from_user_name,omitempty"`
	FromUserCnic          string          `json:"from_user_cnic,omitempty"`
	ToUserID              uuid.UUID       `json:"to_user_id"`
	ToUserName            string          `json:"to_user_name,omitempty"`
	ToUserCnic            string          `json:"to_user_cnic,omitempty"`
	Fee                   decimal.Decimal `json:"fee"`
	Status                string          `json:"status"`
	NewRegistrationNumber string          `json:"new_registration_number,omitempty"`
	CreatedAt             string          `json:"created_at"`
}

// TransferService drives the Pending -> Approved/Rejected ownership transfer
// state machine. Approval reassigns the owner and registration number in one
// transaction; party notifications are best-effort after commit.
type TransferService interface {
	InitiateTransfer(ctx context.Context, actorID uuid.UUID, req InitiateTransferRequest) (*TransferResponse, error)
	Approve(ctx context.Context, actorID uuid.UUID, req ApproveTransferRequest) (*TransferResponse, error)
	Reject(ctx context.Context, actorID uuid.UUID, req RejectTransferRequest) (*TransferResponse, error)
	ListPendingTransfers(ctx context.Context) ([]TransferResponse, error)
}

type transferService struct {
	transfers repository.TransferRepository
	vehicles  repository.VehicleRepository
	users     repository.UserRepository
	audit     repository.AuditRepository
	txm       repository.TransactionManager
	mail      mailer.Mailer
	events    EventPublisher
	now       func() time.Time
}

func NewTransferService(
	transfers repository.TransferRepository,
	vehicles repository.VehicleRepository,
	users repository.UserRepository,
	audit repository.AuditRepository,
	txm repository.TransactionManager,
	mail mailer.Mailer,
	events EventPublisher,
) TransferService {
	return &transferService{
		transfers: transfers,
		vehicles:  vehicles,
		users:     users,
		audit:     audit,
		txm:       txm,
		mail:      mail,
		events:    events,
		now:       time.Now,
	}
}

func (s *transferService) InitiateTransfer(ctx context.Context, actorID uuid.UUID, req InitiateTransferRequest) (*TransferResponse, error) {
	vehicleID, err := uuid.Parse(req.VehicleID)
	if err != nil {
		return nil, apperror.Validation("invalid vehicle id")
	}
	if req.TransferFee.IsNegative() {
		return nil, apperror.Validation("transfer fee cannot be negative")
	}

	newOwner, err := s.users.GetByCnic(ctx, req.NewOwnerCnic)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("no user with cnic %s", req.NewOwnerCnic)
		}
		return nil, apperror.Internal(err)
	}

	transfer := &model.TransferTransaction{
		VehicleID:  vehicleID,
		FromUserID: actorID,
		ToUserID:   newOwner.ID,
		Fee:        req.TransferFee,
		Status:     model.StatusPending,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		vehicle, txErr := s.vehicles.GetByIDForUpdate(txCtx, vehicleID)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("vehicle not found")
			}
			return apperror.Internal(txErr)
		}

		if vehicle.OwnerID != actorID {
			return apperror.Authorization("only the current owner can transfer this vehicle")
		}
		if vehicle.Status != model.VehicleRegistered {
			return apperror.InvalidState("vehicle is %s, only Registered vehicles can be transferred", vehicle.Status)
		}
		if vehicle.OwnerID == newOwner.ID {
			return apperror.Validation("vehicle already belongs to this cnic")
		}

		active, txErr := s.transfers.CountActiveByVehicle(txCtx, vehicleID)
		if txErr != nil {
			return apperror.Internal(txErr)
		}
		if active > 0 {
			return apperror.Conflict("a transfer is already pending for this vehicle")
		}

		if createErr := s.transfers.Create(txCtx, transfer); createErr != nil {
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return apperror.Conflict("a transfer is already pending for this vehicle")
			}
			return apperror.Internal(createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"to_user_id": newOwner.ID.String(),
			"fee":        req.TransferFee.StringFixed(2),
		})
		entry := &model.AuditLog{
			UserID:      &actorID,
			Action:      model.ActionInitiateTransfer,
			EntityID:    transfer.ID.String(),
			VehicleID:   &vehicleID,
			AfterStatus: model.StatusPending,
			Details:     string(details),
		}
		if auditErr := s.audit.Log(txCtx, entry); auditErr != nil {
			return apperror.Internal(auditErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.mapTransfer(transfer), nil
}

func (s *transferService) Approve(ctx context.Context, actorID uuid.UUID, req ApproveTransferRequest) (*TransferResponse, error) {
	transactionID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		return nil, apperror.Validation("invalid transaction id")
	}
	if req.NewRegistrationNumber == "" {
		return nil, apperror.Validation("new registration number is required")
	}

	var transfer *model.TransferTransaction
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		transfer, txErr = s.transfers.GetByIDForUpdate(txCtx, transactionID)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("transfer transaction not found")
			}
			return apperror.Internal(txErr)
		}

		// Row lock makes concurrent approve/reject serialize; the loser of
		// the race sees a terminal status here.
		if transfer.Status != model.StatusPending {
			return apperror.InvalidState("transfer is already %s", transfer.Status)
		}

		vehicle, txErr := s.vehicles.GetByIDForUpdate(txCtx, transfer.VehicleID)
		if txErr != nil {
			return apperror.Internal(txErr)
		}

		now := s.now()
		transfer.Status = model.StatusApproved
		transfer.NewRegistrationNumber = req.NewRegistrationNumber
		transfer.DecidedBy = &actorID
		transfer.DecidedAt = &now
		if txErr = s.transfers.Update(txCtx, transfer); txErr != nil {
			return apperror.Internal(txErr)
		}

		previousOwner := vehicle.OwnerID
		vehicle.OwnerID = transfer.ToUserID
		vehicle.RegistrationNumber = &req.NewRegistrationNumber
		vehicle.RegistrationDate = &now
		if txErr = s.vehicles.Update(txCtx, vehicle); txErr != nil {
			return apperror.Internal(txErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"from_user_id":            previousOwner.String(),
			"to_user_id":              transfer.ToUserID.String(),
			"new_registration_number": req.NewRegistrationNumber,
		})
		entry := &model.AuditLog{
			UserID:       &actorID,
			Action:       model.ActionApproveTransfer,
			EntityID:     transfer.ID.String(),
			VehicleID:    &vehicle.ID,
			BeforeStatus: model.StatusPending,
			AfterStatus:  model.StatusApproved,
			Details:      string(details),
		}
		if auditErr := s.audit.Log(txCtx, entry); auditErr != nil {
			return apperror.Internal(auditErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyParties(ctx, transfer, "approved",
		fmt.Sprintf("Ownership transfer approved. New registration number: %s.", req.NewRegistrationNumber))

	if s.events != nil {
		s.events.PublishEvent("transfer.approved", map[string]interface{}{
			"vehicle_id":     transfer.VehicleID.String(),
			"transaction_id": transfer.ID.String(),
		})
	}

	return s.mapTransfer(transfer), nil
}

func (s *transferService) Reject(ctx context.Context, actorID uuid.UUID, req RejectTransferRequest) (*TransferResponse, error) {
	transactionID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		return nil, apperror.Validation("invalid transaction id")
	}

	var transfer *model.TransferTransaction
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		transfer, txErr = s.transfers.GetByIDForUpdate(txCtx, transactionID)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("transfer transaction not found")
			}
			return apperror.Internal(txErr)
		}

		if transfer.Status != model.StatusPending {
			return apperror.InvalidState("transfer is already %s", transfer.Status)
		}

		now := s.now()
		transfer.Status = model.StatusRejected
		transfer.DecidedBy = &actorID
		transfer.DecidedAt = &now
		if txErr = s.transfers.Update(txCtx, transfer); txErr != nil {
			return apperror.Internal(txErr)
		}

		entry := &model.AuditLog{
			UserID:       &actorID,
			Action:       model.ActionRejectTransfer,
			EntityID:     transfer.ID.String(),
			VehicleID:    &transfer.VehicleID,
			BeforeStatus: model.StatusPending,
			AfterStatus:  model.StatusRejected,
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

	s.notifyParties(ctx, transfer, "rejected", "Ownership transfer request was rejected.")

	return s.mapTransfer(transfer), nil
}

func (s *transferService) ListPendingTransfers(ctx context.Context) ([]TransferResponse, error) {
	transfers, err := s.transfers.ListPending(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	result := make([]TransferResponse, 0, len(transfers))
	for i := range transfers {
		result = append(result, *s.mapTransfer(&transfers[i]))
	}
	return result, nil
}

// notifyParties emails both sides of a decided transfer. Failures are logged
// and never reverse the committed transition.
func (s *transferService) notifyParties(ctx context.Context, transfer *model.TransferTransaction, outcome, body string) {
	subject := "Vehicle ownership transfer " + outcome
	for _, userID := range []uuid.UUID{transfer.FromUserID, transfer.ToUserID} {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			logrus.WithError(err).WithField("user_id", userID).Warn("transfer notification: user lookup failed")
			continue
		}
		if err := s.mail.Send(user.Email, subject, body); err != nil {
			logrus.WithError(err).WithField("email", user.Email).Warn("transfer notification failed")
		}
	}
}

func (s *transferService) mapTransfer(transfer *model.TransferTransaction) *TransferResponse {
	resp := &TransferResponse{
		TransactionID:         transfer.ID,
		VehicleID:             transfer.VehicleID,
		FromUserID:            transfer.FromUserID,
		ToUserID:              transfer.ToUserID,
		Fee:                   transfer.Fee,
		Status:                transfer.Status,
		NewRegistrationNumber: transfer.NewRegistrationNumber,
		CreatedAt:             transfer.CreatedAt.Format(time.RFC3339),
	}
	if transfer.Vehicle != nil {
		resp.VehicleMake = transfer.Vehicle.Make
		resp.VehicleModel = transfer.Vehicle.Model
	}
	if transfer.FromUser != nil {
		resp.FromUserName = transfer.FromUser.Name
		resp.FromUserCnic = transfer.FromUser.Cnic
	}
	if transfer.ToUser != nil {
		resp.ToUserName = transfer.ToUser.Name
		resp.ToUserCnic = transfer.ToUser.Cnic
	}
	return resp
}
