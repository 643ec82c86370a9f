package service

import (
	"context"
	"time"

	"securechain/internal/model"
	"securechain/internal/report"
	"securechain/internal/repository"
	"securechain/pkg/apperror"
)

type AuditLogResponse struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	UserName     string `json:"user_name"`
	Action       string `json:"action"`
	EntityID     string `json:"entity_id"`
	EntityName   string `json:"entity_name"`
	VehicleID    string `json:"vehicle_id,omitempty"`
	BeforeStatus string `json:"before_status,omitempty"`
	AfterStatus  string `json:"after_status,omitempty"`
	Details      string `json:"details"`
	CreatedAt    string `json:"created_at"`
}

// AuditService is the read surface over the append-only audit trail. Writes
// happen inside the mutating services' transactions via AuditRepository.
type AuditService interface {
	List(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error)
	GeneratePdf(ctx context.Context) ([]byte, error)
}

type auditService struct {
	audit repository.AuditRepository
}

func NewAuditService(audit repository.AuditRepository) AuditService {
	return &auditService{audit: audit}
}

func (s *auditService) List(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.audit.List(ctx, page, limit)
	if err != nil {
		return nil, 0, apperror.Internal(err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for i := range logs {
		res = append(res, mapAuditResponse(&logs[i]))
	}
	return res, total, nil
}

// GeneratePdf renders the full trail as a PDF report. Formatting is an
// external concern layered on the read path; the log itself never changes.
func (s *auditService) GeneratePdf(ctx context.Context) ([]byte, error) {
	logs, err := s.audit.ListAll(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	rows := make([]report.AuditRow, 0, len(logs))
	for i := range logs {
		l := &logs[i]
		userName := "System"
		if l.User != nil {
			userName = l.User.Name
		}
		rows = append(rows, report.AuditRow{
			Timestamp: l.CreatedAt.Format("2006-01-02 15:04:05"),
			UserName:  userName,
			Action:    l.Action,
			EntityID:  l.EntityID,
			Statuses:  statusChange(l.BeforeStatus, l.AfterStatus),
		})
	}

	pdf, err := report.RenderAuditReport(rows)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return pdf, nil
}

func statusChange(before, after string) string {
	switch {
	case before == "" && after == "":
		return ""
	case before == "":
		return after
	default:
		return before + " -> " + after
	}
}

func mapAuditResponse(l *model.AuditLog) AuditLogResponse {
	resp := AuditLogResponse{
		ID:           l.ID.String(),
		Action:       l.Action,
		EntityID:     l.EntityID,
		EntityName:   l.EntityName,
		BeforeStatus: l.BeforeStatus,
		AfterStatus:  l.AfterStatus,
		Details:      l.Details,
		CreatedAt:    l.CreatedAt.Format(time.RFC3339),
		UserName:     "System",
	}
	if l.UserID != nil {
		resp.UserID = l.UserID.String()
	}
	if l.User != nil {
		resp.UserName = l.User.Name
	}
	if l.VehicleID != nil {
		resp.VehicleID = l.VehicleID.String()
	}
	return resp
}
