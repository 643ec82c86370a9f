package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"securechain/internal/model"
	"securechain/internal/repository"
	"securechain/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs

type CreateInspectionRequest struct {
	VehicleID       string `json:"VehicleId" binding:"required"`
	OfficerID       string `json:"OfficerId" binding:"required"`
	AppointmentDate string `json:"AppointmentDate" binding:"required"` // RFC 3339 or YYYY-MM-DD
}

type ApproveInspectionRequest struct {
	RequestID string `json:"requestId" binding:"required"`
	// Optional bundled challan issued in the same action. Both this path and
	// the standalone createChallan endpoint are supported.
	ChallanAmount *decimal.Decimal `json:"amount,omitempty"`
	ChallanType   string           `json:"type,omitempty"`
}

type RejectInspectionRequest struct {
	RequestID string `json:"requestId" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

type InspectionResponse struct {
	InspectionID    uuid.UUID `json:"InspectionId"`
	VehicleID       uuid.UUID `json:"VehicleId"`
	OfficerID       uuid.UUID `json:"OfficerId"`
	AppointmentDate string    `json:"AppointmentDate"`
	Status          string    `json:"Status"`
	RejectionReason string    `json:"RejectionReason,omitempty"`
	VehicleMake     string    `json:"VehicleMake,omitempty"`
	VehicleModel    string    `json:"VehicleModel,omitempty"`
	OwnerName       string    `json:"OwnerName,omitempty"`
	HasChallan      bool      `json:"hasChallan"`
}

type OfficerWorklist struct {
	Pending  []InspectionResponse `json:"pending"`
	Approved []InspectionResponse `json:"approved"`
}

// InspectionService drives the Pending -> Approved/Rejected inspection state
// machine and its side effects on the vehicle registry.
type InspectionService interface {
	CreateRequest(ctx context.Context, actorID uuid.UUID, req CreateInspectionRequest) (*InspectionResponse, error)
	Approve(ctx context.Context, actorID uuid.UUID, req ApproveInspectionRequest) (*InspectionResponse, error)
	Reject(ctx context.Context, actorID uuid.UUID, req RejectInspectionRequest) (*InspectionResponse, error)
	ListByOfficer(ctx context.Context, officerID uuid.UUID) (*OfficerWorklist, error)
}

type inspectionService struct {
	inspections repository.InspectionRepository
	vehicles    repository.VehicleRepository
	challans    repository.ChallanRepository
	users       repository.UserRepository
	audit       repository.AuditRepository
	txm         repository.TransactionManager
	events      EventPublisher
	now         func() time.Time
}

func NewInspectionService(
	inspections repository.InspectionRepository,
	vehicles repository.VehicleRepository,
	challans repository.ChallanRepository,
	users repository.UserRepository,
	audit repository.AuditRepository,
	txm repository.TransactionManager,
	events EventPublisher,
) InspectionService {
	return &inspectionService{
		inspections: inspections,
		vehicles:    vehicles,
		challans:    challans,
		users:       users,
		audit:       audit,
		txm:         txm,
		events:      events,
		now:         time.Now,
	}
}

func parseAppointmentDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func (s *inspectionService) CreateRequest(ctx context.Context, actorID uuid.UUID, req CreateInspectionRequest) (*InspectionResponse, error) {
	vehicleID, err := uuid.Parse(req.VehicleID)
	if err != nil {
		return nil, apperror.Validation("invalid vehicle id")
	}
	officerID, err := uuid.Parse(req.OfficerID)
	if err != nil {
		return nil, apperror.Validation("invalid officer id")
	}
	appointment, err := parseAppointmentDate(req.AppointmentDate)
	if err != nil {
		return nil, apperror.Validation("invalid appointment date")
	}
	if appointment.Before(s.now()) {
		return nil, apperror.Validation("appointment date must be in the future")
	}

	officer, err := s.users.GetByID(ctx, officerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("officer not found")
		}
		return nil, apperror.Internal(err)
	}
	if officer.Role != model.RoleInspectionOfficer {
		return nil, apperror.Validation("assigned user is not an inspection officer")
	}

	request := &model.InspectionRequest{
		VehicleID:       vehicleID,
		OfficerID:       officerID,
		AppointmentDate: appointment,
		Status:          model.StatusPending,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		// Lock the vehicle so the one-active-request check and the insert are
		// atomic; the partial unique index backs this up.
		vehicle, txErr := s.vehicles.GetByIDForUpdate(txCtx, vehicleID)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("vehicle not found")
			}
			return apperror.Internal(txErr)
		}
		if vehicle.Status != model.VehiclePendingApproval {
			return apperror.InvalidState("vehicle is %s, inspections require PendingApproval", vehicle.Status)
		}

		active, txErr := s.inspections.CountActiveByVehicle(txCtx, vehicleID)
		if txErr != nil {
			return apperror.Internal(txErr)
		}
		if active > 0 {
			return apperror.Conflict("an inspection request is already pending for this vehicle")
		}

		if createErr := s.inspections.Create(txCtx, request); createErr != nil {
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return apperror.Conflict("an inspection request is already pending for this vehicle")
			}
			return apperror.Internal(createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"officer_id":  officerID.String(),
			"appointment": appointment.Format(time.RFC3339),
		})
		entry := &model.AuditLog{
			UserID:      &actorID,
			Action:      model.ActionCreateInspection,
			EntityID:    request.ID.String(),
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

	return mapInspectionResponse(request, false), nil
}

func (s *inspectionService) Approve(ctx context.Context, actorID uuid.UUID, req ApproveInspectionRequest) (*InspectionResponse, error) {
	requestID, err := uuid.Parse(req.RequestID)
	if err != nil {
		return nil, apperror.Validation("invalid request id")
	}
	if req.ChallanAmount != nil {
		if req.ChallanAmount.LessThanOrEqual(decimal.Zero) {
			return nil, apperror.Validation("challan amount must be positive")
		}
		if req.ChallanType == "" {
			req.ChallanType = model.ChallanTypeRegistration
		}
		if !model.ValidChallanType(req.ChallanType) {
			return nil, apperror.Validation("unknown challan type %q", req.ChallanType)
		}
	}

	var request *model.InspectionRequest
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		request, txErr = s.inspections.GetByIDForUpdate(txCtx, requestID)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("inspection request not found")
			}
			return apperror.Internal(txErr)
		}

		if request.OfficerID != actorID {
			return apperror.Authorization("only the assigned officer can decide this request")
		}
		// Losing a concurrent approve/reject race surfaces here: the row is
		// locked, so the second caller sees a terminal status.
		if request.Status != model.StatusPending {
			return apperror.InvalidState("inspection request is already %s", request.Status)
		}

		now := s.now()
		request.Status = model.StatusApproved
		request.DecidedAt = &now
		if txErr = s.inspections.Update(txCtx, request); txErr != nil {
			return apperror.Internal(txErr)
		}

		vehicle, txErr := s.vehicles.GetByIDForUpdate(txCtx, request.VehicleID)
		if txErr != nil {
			return apperror.Internal(txErr)
		}
		if !model.CanTransitionVehicle(vehicle.Status, model.VehicleRegistered) {
			return apperror.InvalidState("vehicle is %s, cannot register", vehicle.Status)
		}

		regNo, txErr := s.vehicles.NextRegistrationNo(txCtx, now)
		if txErr != nil {
			return apperror.Internal(txErr)
		}

		before := vehicle.Status
		vehicle.Status = model.VehicleRegistered
		vehicle.RegistrationNumber = &regNo
		vehicle.RegistrationDate = &now
		if txErr = s.vehicles.Update(txCtx, vehicle); txErr != nil {
			return apperror.Internal(txErr)
		}

		if req.ChallanAmount != nil {
			challan := &model.Challan{
				VehicleID:     vehicle.ID,
				OwnerID:       vehicle.OwnerID,
				Amount:        *req.ChallanAmount,
				Type:          req.ChallanType,
				IssueDate:     now,
				DueDate:       now.Add(challanGracePeriod()),
				PaymentStatus: model.ChallanUnpaid,
			}
			if txErr = s.challans.Create(txCtx, challan); txErr != nil {
				return apperror.Internal(txErr)
			}

			challanDetails, _ := json.Marshal(map[string]interface{}{
				"amount": req.ChallanAmount.StringFixed(2),
				"type":   req.ChallanType,
			})
			challanEntry := &model.AuditLog{
				UserID:     &actorID,
				Action:     model.ActionCreateChallan,
				EntityID:   challan.ID.String(),
				EntityName: req.ChallanType,
				VehicleID:  &vehicle.ID,
				Details:    string(challanDetails),
			}
			if auditErr := s.audit.Log(txCtx, challanEntry); auditErr != nil {
				return apperror.Internal(auditErr)
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"registration_number": regNo,
		})
		entry := &model.AuditLog{
			UserID:       &actorID,
			Action:       model.ActionApproveInspection,
			EntityID:     request.ID.String(),
			VehicleID:    &vehicle.ID,
			BeforeStatus: before,
			AfterStatus:  model.VehicleRegistered,
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

	if s.events != nil {
		s.events.PublishEvent("inspection.approved", map[string]interface{}{
			"vehicle_id": request.VehicleID.String(),
			"request_id": request.ID.String(),
		})
	}

	return mapInspectionResponse(request, req.ChallanAmount != nil), nil
}

func (s *inspectionService) Reject(ctx context.Context, actorID uuid.UUID, req RejectInspectionRequest) (*InspectionResponse, error) {
	requestID, err := uuid.Parse(req.RequestID)
	if err != nil {
		return nil, apperror.Validation("invalid request id")
	}
	if req.Reason == "" {
		return nil, apperror.Validation("rejection reason is required")
	}

	var request *model.InspectionRequest
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		request, txErr = s.inspections.GetByIDForUpdate(txCtx, requestID)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("inspection request not found")
			}
			return apperror.Internal(txErr)
		}

		if request.OfficerID != actorID {
			return apperror.Authorization("only the assigned officer can decide this request")
		}
		if request.Status != model.StatusPending {
			return apperror.InvalidState("inspection request is already %s", request.Status)
		}

		now := s.now()
		request.Status = model.StatusRejected
		request.RejectionReason = req.Reason
		request.DecidedAt = &now
		if txErr = s.inspections.Update(txCtx, request); txErr != nil {
			return apperror.Internal(txErr)
		}

		vehicle, txErr := s.vehicles.GetByIDForUpdate(txCtx, request.VehicleID)
		if txErr != nil {
			return apperror.Internal(txErr)
		}
		if !model.CanTransitionVehicle(vehicle.Status, model.VehicleRejected) {
			return apperror.InvalidState("vehicle is %s, cannot reject", vehicle.Status)
		}

		before := vehicle.Status
		vehicle.Status = model.VehicleRejected
		vehicle.RejectionReason = req.Reason
		if txErr = s.vehicles.Update(txCtx, vehicle); txErr != nil {
			return apperror.Internal(txErr)
		}

		details, _ := json.Marshal(map[string]interface{}{"reason": req.Reason})
		entry := &model.AuditLog{
			UserID:       &actorID,
			Action:       model.ActionRejectInspection,
			EntityID:     request.ID.String(),
			VehicleID:    &vehicle.ID,
			BeforeStatus: before,
			AfterStatus:  model.VehicleRejected,
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

	if s.events != nil {
		s.events.PublishEvent("inspection.rejected", map[string]interface{}{
			"vehicle_id": request.VehicleID.String(),
			"request_id": request.ID.String(),
		})
	}

	return mapInspectionResponse(request, false), nil
}

// ListByOfficer partitions the officer's requests into pending and approved.
// Approved rows carry hasChallan so the UI can offer a create-challan action
// only where none exists yet.
func (s *inspectionService) ListByOfficer(ctx context.Context, officerID uuid.UUID) (*OfficerWorklist, error) {
	requests, err := s.inspections.ListByOfficer(ctx, officerID)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	approvedVehicles := make([]uuid.UUID, 0, len(requests))
	for i := range requests {
		if requests[i].Status == model.StatusApproved {
			approvedVehicles = append(approvedVehicles, requests[i].VehicleID)
		}
	}
	challanCounts, err := s.challans.CountByVehicles(ctx, approvedVehicles)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	worklist := &OfficerWorklist{
		Pending:  []InspectionResponse{},
		Approved: []InspectionResponse{},
	}
	for i := range requests {
		req := &requests[i]
		switch req.Status {
		case model.StatusPending:
			worklist.Pending = append(worklist.Pending, *mapInspectionResponse(req, false))
		case model.StatusApproved:
			worklist.Approved = append(worklist.Approved, *mapInspectionResponse(req, challanCounts[req.VehicleID] > 0))
		}
	}
	return worklist, nil
}

func challanGracePeriod() time.Duration {
	if raw := os.Getenv("CHALLAN_GRACE_PERIOD"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			return d
		}
	}
	return 30 * 24 * time.Hour
}

func mapInspectionResponse(req *model.InspectionRequest, hasChallan bool) *InspectionResponse {
	resp := &InspectionResponse{
		InspectionID:    req.ID,
		VehicleID:       req.VehicleID,
		OfficerID:       req.OfficerID,
		AppointmentDate: req.AppointmentDate.Format(time.RFC3339),
		Status:          req.Status,
		RejectionReason: req.RejectionReason,
		HasChallan:      hasChallan,
	}
	if req.Vehicle != nil {
		resp.VehicleMake = req.Vehicle.Make
		resp.VehicleModel = req.Vehicle.Model
		if req.Vehicle.Owner != nil {
			resp.OwnerName = req.Vehicle.Owner.Name
		}
	}
	return resp
}
