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
	"gorm.io/gorm"
)

// EventPublisher pushes workflow events to connected dashboards. The
// websocket hub satisfies it; tests pass a recording fake.
type EventPublisher interface {
	PublishEvent(event string, payload map[string]interface{})
}

// DTOs

type RegisterVehicleRequest struct {
	Make          string `json:"make" binding:"required"`
	Model         string `json:"model" binding:"required"`
	Year          int    `json:"year" binding:"required"`
	Color         string `json:"color"`
	ChassisNumber string `json:"chassisNumber" binding:"required"`
	EngineNumber  string `json:"engineNumber" binding:"required"`
}

type DocumentResponse struct {
	ID           uuid.UUID `json:"id"`
	DocumentType string    `json:"document_type"`
	FileName     string    `json:"file_name"`
	MimeType     string    `json:"mime_type"`
	FileData     []byte    `json:"file_data,omitempty"`
}

type VehicleResponse struct {
	ID                 uuid.UUID          `json:"id"`
	OwnerID            uuid.UUID          `json:"owner_id"`
	OwnerName          string             `json:"owner_name,omitempty"`
	OwnerCnic          string             `json:"owner_cnic,omitempty"`
	Make               string             `json:"make"`
	Model              string             `json:"model"`
	Year               int                `json:"year"`
	Color              string             `json:"color"`
	ChassisNumber      string             `json:"chassis_number"`
	EngineNumber       string             `json:"engine_number"`
	Status             string             `json:"status"`
	RegistrationNumber *string            `json:"registration_number"`
	RegistrationDate   *string            `json:"registration_date,omitempty"`
	RejectionReason    string             `json:"rejection_reason,omitempty"`
	InspectionStatus   string             `json:"inspection_status,omitempty"`
	TransferStatus     string             `json:"transfer_status,omitempty"`
	Documents          []DocumentResponse `json:"documents,omitempty"`
	CreatedAt          string             `json:"created_at"`
}

// VehicleService owns the vehicle registry: draft creation, document
// submission and read projections. Status transitions beyond
// Unregistered -> PendingApproval belong to the inspection and transfer
// workflows.
type VehicleService interface {
	RegisterVehicle(ctx context.Context, ownerID uuid.UUID, req RegisterVehicleRequest) (*VehicleResponse, error)
	UploadDocument(ctx context.Context, actorID, vehicleID uuid.UUID, docType, fileName, mimeType string, data []byte) (*DocumentResponse, error)
	SubmitAllDocuments(ctx context.Context, actorID, vehicleID uuid.UUID) (*VehicleResponse, error)
	ListPending(ctx context.Context) ([]VehicleResponse, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]VehicleResponse, error)
	ListAllRegistered(ctx context.Context) ([]VehicleResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*VehicleResponse, error)
}

type vehicleService struct {
	vehicles    repository.VehicleRepository
	inspections repository.InspectionRepository
	transfers   repository.TransferRepository
	audit       repository.AuditRepository
	txm         repository.TransactionManager
	events      EventPublisher
	now         func() time.Time
}

func NewVehicleService(
	vehicles repository.VehicleRepository,
	inspections repository.InspectionRepository,
	transfers repository.TransferRepository,
	audit repository.AuditRepository,
	txm repository.TransactionManager,
	events EventPublisher,
) VehicleService {
	return &vehicleService{
		vehicles:    vehicles,
		inspections: inspections,
		transfers:   transfers,
		audit:       audit,
		txm:         txm,
		events:      events,
		now:         time.Now,
	}
}

func (s *vehicleService) RegisterVehicle(ctx context.Context, ownerID uuid.UUID, req RegisterVehicleRequest) (*VehicleResponse, error) {
	if req.Year < 1900 || req.Year > s.now().Year()+1 {
		return nil, apperror.Validation("year %d is out of range", req.Year)
	}

	vehicle := &model.Vehicle{
		OwnerID:       ownerID,
		Make:          req.Make,
		Model:         req.Model,
		Year:          req.Year,
		Color:         req.Color,
		ChassisNumber: req.ChassisNumber,
		EngineNumber:  req.EngineNumber,
		Status:        model.VehicleUnregistered,
	}

	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		// Uniqueness of chassis/engine numbers rides on the DB constraint so
		// two concurrent registrations cannot both slip through a read check.
		if createErr := s.vehicles.Create(txCtx, vehicle); createErr != nil {
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return apperror.Conflict("chassis or engine number already registered")
			}
			return apperror.Internal(createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"make":           req.Make,
			"model":          req.Model,
			"chassis_number": req.ChassisNumber,
		})
		entry := &model.AuditLog{
			UserID:      &ownerID,
			Action:      model.ActionRegisterVehicle,
			EntityID:    vehicle.ID.String(),
			EntityName:  req.Make + " " + req.Model,
			VehicleID:   &vehicle.ID,
			AfterStatus: model.VehicleUnregistered,
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

	return s.mapVehicle(ctx, vehicle, false), nil
}

func (s *vehicleService) UploadDocument(ctx context.Context, actorID, vehicleID uuid.UUID, docType, fileName, mimeType string, data []byte) (*DocumentResponse, error) {
	if !model.ValidDocumentType(docType) {
		return nil, apperror.Validation("unknown document type %q", docType)
	}
	if len(data) == 0 {
		return nil, apperror.Validation("document file is empty")
	}

	vehicle, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("vehicle not found")
		}
		return nil, apperror.Internal(err)
	}
	if vehicle.OwnerID != actorID {
		return nil, apperror.Authorization("only the owner can upload documents")
	}

	doc := &model.Document{
		VehicleID:    vehicleID,
		DocumentType: docType,
		FileName:     fileName,
		MimeType:     mimeType,
		FileData:     data,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if addErr := s.vehicles.AddDocument(txCtx, doc); addErr != nil {
			return apperror.Internal(addErr)
		}
		entry := &model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionUploadDocument,
			EntityID:   doc.ID.String(),
			EntityName: docType,
			VehicleID:  &vehicleID,
			Details:    "{}",
		}
		if auditErr := s.audit.Log(txCtx, entry); auditErr != nil {
			return apperror.Internal(auditErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &DocumentResponse{
		ID:           doc.ID,
		DocumentType: doc.DocumentType,
		FileName:     doc.FileName,
		MimeType:     doc.MimeType,
	}, nil
}

func (s *vehicleService) SubmitAllDocuments(ctx context.Context, actorID, vehicleID uuid.UUID) (*VehicleResponse, error) {
	var vehicle *model.Vehicle
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		vehicle, txErr = s.vehicles.GetByIDForUpdate(txCtx, vehicleID)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("vehicle not found")
			}
			return apperror.Internal(txErr)
		}
		if vehicle.OwnerID != actorID {
			return apperror.Authorization("only the owner can submit documents")
		}
		if !model.CanTransitionVehicle(vehicle.Status, model.VehiclePendingApproval) {
			return apperror.InvalidState("vehicle is %s, documents can only be submitted once", vehicle.Status)
		}

		count, txErr := s.vehicles.CountDocuments(txCtx, vehicleID)
		if txErr != nil {
			return apperror.Internal(txErr)
		}
		if count == 0 {
			return apperror.Validation("at least one document must be uploaded before submission")
		}

		before := vehicle.Status
		vehicle.Status = model.VehiclePendingApproval
		if txErr = s.vehicles.Update(txCtx, vehicle); txErr != nil {
			return apperror.Internal(txErr)
		}

		entry := &model.AuditLog{
			UserID:       &actorID,
			Action:       model.ActionSubmitDocuments,
			EntityID:     vehicle.ID.String(),
			EntityName:   vehicle.Make + " " + vehicle.Model,
			VehicleID:    &vehicle.ID,
			BeforeStatus: before,
			AfterStatus:  vehicle.Status,
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

	if s.events != nil {
		s.events.PublishEvent("vehicle.pending_approval", map[string]interface{}{
			"vehicle_id": vehicle.ID.String(),
			"status":     vehicle.Status,
		})
	}

	return s.mapVehicle(ctx, vehicle, false), nil
}

func (s *vehicleService) ListPending(ctx context.Context) ([]VehicleResponse, error) {
	vehicles, err := s.vehicles.ListByStatus(ctx, model.VehiclePendingApproval)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	result := make([]VehicleResponse, 0, len(vehicles))
	for i := range vehicles {
		result = append(result, *s.mapVehicle(ctx, &vehicles[i], true))
	}
	return result, nil
}

func (s *vehicleService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]VehicleResponse, error) {
	vehicles, err := s.vehicles.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	result := make([]VehicleResponse, 0, len(vehicles))
	for i := range vehicles {
		result = append(result, *s.mapVehicle(ctx, &vehicles[i], false))
	}
	return result, nil
}

func (s *vehicleService) ListAllRegistered(ctx context.Context) ([]VehicleResponse, error) {
	vehicles, err := s.vehicles.ListByStatus(ctx, model.VehicleRegistered)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	result := make([]VehicleResponse, 0, len(vehicles))
	for i := range vehicles {
		result = append(result, *s.mapVehicle(ctx, &vehicles[i], false))
	}
	return result, nil
}

func (s *vehicleService) GetByID(ctx context.Context, id uuid.UUID) (*VehicleResponse, error) {
	vehicle, err := s.vehicles.GetByIDWithDocuments(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("vehicle not found")
		}
		return nil, apperror.Internal(err)
	}
	return s.mapVehicle(ctx, vehicle, true), nil
}

// mapVehicle builds the response DTO, optionally annotated with the latest
// inspection/transfer status for the officials' queue views.
func (s *vehicleService) mapVehicle(ctx context.Context, vehicle *model.Vehicle, withWorkflow bool) *VehicleResponse {
	resp := &VehicleResponse{
		ID:                 vehicle.ID,
		OwnerID:            vehicle.OwnerID,
		Make:               vehicle.Make,
		Model:              vehicle.Model,
		Year:               vehicle.Year,
		Color:              vehicle.Color,
		ChassisNumber:      vehicle.ChassisNumber,
		EngineNumber:       vehicle.EngineNumber,
		Status:             vehicle.Status,
		RegistrationNumber: vehicle.RegistrationNumber,
		RejectionReason:    vehicle.RejectionReason,
		CreatedAt:          vehicle.CreatedAt.Format(time.RFC3339),
	}
	if vehicle.Owner != nil {
		resp.OwnerName = vehicle.Owner.Name
		resp.OwnerCnic = vehicle.Owner.Cnic
	}
	if vehicle.RegistrationDate != nil {
		d := vehicle.RegistrationDate.Format(time.RFC3339)
		resp.RegistrationDate = &d
	}
	for _, doc := range vehicle.Documents {
		resp.Documents = append(resp.Documents, DocumentResponse{
			ID:           doc.ID,
			DocumentType: doc.DocumentType,
			FileName:     doc.FileName,
			MimeType:     doc.MimeType,
			FileData:     doc.FileData,
		})
	}

	if withWorkflow {
		if req, err := s.inspections.LatestByVehicle(ctx, vehicle.ID); err == nil {
			resp.InspectionStatus = req.Status
		}
		if transfer, err := s.transfers.LatestByVehicle(ctx, vehicle.ID); err == nil {
			resp.TransferStatus = transfer.Status
		}
	}

	return resp
}
