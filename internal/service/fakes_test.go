package service

import (
	"context"
	"fmt"
	"time"

	"securechain/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory fakes backing the service tests. They mirror the repository
// contracts, including gorm sentinel errors for missing rows and unique
// violations.

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	sent []sentMail
	fail bool
}

func (m *fakeMailer) Send(to, subject, body string) error {
	if m.fail {
		return fmt.Errorf("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

type fakeEvents struct {
	published []string
}

func (e *fakeEvents) PublishEvent(event string, payload map[string]interface{}) {
	e.published = append(e.published, event)
}

// --- users ---

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range r.users {
		if u.Email == user.Email || u.Cnic == user.Cnic {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByCnic(_ context.Context, cnic string) (*model.User, error) {
	for _, u := range r.users {
		if u.Cnic == cnic {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) ListByRole(_ context.Context, role string) ([]model.User, error) {
	var result []model.User
	for _, u := range r.users {
		if u.Role == role {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	r.users[user.ID] = user
	return nil
}

// --- otps ---

type fakeOtpRepo struct {
	codes []*model.OtpCode
}

func (r *fakeOtpRepo) Create(_ context.Context, otp *model.OtpCode) error {
	if otp.ID == uuid.Nil {
		otp.ID = uuid.New()
	}
	r.codes = append(r.codes, otp)
	return nil
}

func (r *fakeOtpRepo) Latest(_ context.Context, email, purpose string) (*model.OtpCode, error) {
	for i := len(r.codes) - 1; i >= 0; i-- {
		if r.codes[i].Email == email && r.codes[i].Purpose == purpose {
			return r.codes[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeOtpRepo) Update(_ context.Context, otp *model.OtpCode) error {
	for i, c := range r.codes {
		if c.ID == otp.ID {
			r.codes[i] = otp
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// --- vehicles ---

type fakeVehicleRepo struct {
	vehicles  map[uuid.UUID]*model.Vehicle
	documents map[uuid.UUID][]model.Document
	regSeq    int
}

func newFakeVehicleRepo() *fakeVehicleRepo {
	return &fakeVehicleRepo{
		vehicles:  make(map[uuid.UUID]*model.Vehicle),
		documents: make(map[uuid.UUID][]model.Document),
	}
}

func (r *fakeVehicleRepo) Create(_ context.Context, vehicle *model.Vehicle) error {
	for _, v := range r.vehicles {
		if v.ChassisNumber == vehicle.ChassisNumber || v.EngineNumber == vehicle.EngineNumber {
			return gorm.ErrDuplicatedKey
		}
	}
	if vehicle.ID == uuid.Nil {
		vehicle.ID = uuid.New()
	}
	r.vehicles[vehicle.ID] = vehicle
	return nil
}

func (r *fakeVehicleRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Vehicle, error) {
	if v, ok := r.vehicles[id]; ok {
		return v, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeVehicleRepo) GetByIDWithDocuments(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	v, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v.Documents = r.documents[id]
	return v, nil
}

func (r *fakeVehicleRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeVehicleRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]model.Vehicle, error) {
	var result []model.Vehicle
	for _, v := range r.vehicles {
		if v.OwnerID == ownerID {
			result = append(result, *v)
		}
	}
	return result, nil
}

func (r *fakeVehicleRepo) ListByStatus(_ context.Context, status string) ([]model.Vehicle, error) {
	var result []model.Vehicle
	for _, v := range r.vehicles {
		if v.Status == status {
			result = append(result, *v)
		}
	}
	return result, nil
}

func (r *fakeVehicleRepo) Update(_ context.Context, vehicle *model.Vehicle) error {
	r.vehicles[vehicle.ID] = vehicle
	return nil
}

func (r *fakeVehicleRepo) AddDocument(_ context.Context, doc *model.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	r.documents[doc.VehicleID] = append(r.documents[doc.VehicleID], *doc)
	return nil
}

func (r *fakeVehicleRepo) CountDocuments(_ context.Context, vehicleID uuid.UUID) (int64, error) {
	return int64(len(r.documents[vehicleID])), nil
}

func (r *fakeVehicleRepo) NextRegistrationNo(_ context.Context, now time.Time) (string, error) {
	r.regSeq++
	return fmt.Sprintf("VR-%s-%05d", now.Format("20060102"), r.regSeq), nil
}

// --- inspections ---

type fakeInspectionRepo struct {
	requests map[uuid.UUID]*model.InspectionRequest
}

func newFakeInspectionRepo() *fakeInspectionRepo {
	return &fakeInspectionRepo{requests: make(map[uuid.UUID]*model.InspectionRequest)}
}

func (r *fakeInspectionRepo) Create(_ context.Context, req *model.InspectionRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	r.requests[req.ID] = req
	return nil
}

func (r *fakeInspectionRepo) GetByID(_ context.Context, id uuid.UUID) (*model.InspectionRequest, error) {
	if req, ok := r.requests[id]; ok {
		return req, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeInspectionRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.InspectionRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeInspectionRepo) CountActiveByVehicle(_ context.Context, vehicleID uuid.UUID) (int64, error) {
	var count int64
	for _, req := range r.requests {
		if req.VehicleID == vehicleID && req.Status == model.StatusPending {
			count++
		}
	}
	return count, nil
}

func (r *fakeInspectionRepo) ListByOfficer(_ context.Context, officerID uuid.UUID) ([]model.InspectionRequest, error) {
	var result []model.InspectionRequest
	for _, req := range r.requests {
		if req.OfficerID == officerID {
			result = append(result, *req)
		}
	}
	return result, nil
}

func (r *fakeInspectionRepo) LatestByVehicle(_ context.Context, vehicleID uuid.UUID) (*model.InspectionRequest, error) {
	for _, req := range r.requests {
		if req.VehicleID == vehicleID {
			return req, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeInspectionRepo) Update(_ context.Context, req *model.InspectionRequest) error {
	r.requests[req.ID] = req
	return nil
}

// --- challans ---

type fakeChallanRepo struct {
	challans   map[uuid.UUID]*model.Challan
	countCalls int
}

func newFakeChallanRepo() *fakeChallanRepo {
	return &fakeChallanRepo{challans: make(map[uuid.UUID]*model.Challan)}
}

func (r *fakeChallanRepo) Create(_ context.Context, challan *model.Challan) error {
	if challan.ID == uuid.Nil {
		challan.ID = uuid.New()
	}
	r.challans[challan.ID] = challan
	return nil
}

func (r *fakeChallanRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Challan, error) {
	if c, ok := r.challans[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeChallanRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Challan, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeChallanRepo) ListByVehicle(_ context.Context, vehicleID uuid.UUID) ([]model.Challan, error) {
	var result []model.Challan
	for _, c := range r.challans {
		if c.VehicleID == vehicleID {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (r *fakeChallanRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]model.Challan, error) {
	var result []model.Challan
	for _, c := range r.challans {
		if c.OwnerID == ownerID {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (r *fakeChallanRepo) CountByVehicles(_ context.Context, vehicleIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	r.countCalls++
	counts := make(map[uuid.UUID]int64, len(vehicleIDs))
	for _, id := range vehicleIDs {
		for _, c := range r.challans {
			if c.VehicleID == id {
				counts[id]++
			}
		}
	}
	return counts, nil
}

func (r *fakeChallanRepo) Update(_ context.Context, challan *model.Challan) error {
	r.challans[challan.ID] = challan
	return nil
}

// --- transfers ---

type fakeTransferRepo struct {
	transfers map[uuid.UUID]*model.TransferTransaction
}

func newFakeTransferRepo() *fakeTransferRepo {
	return &fakeTransferRepo{transfers: make(map[uuid.UUID]*model.TransferTransaction)}
}

func (r *fakeTransferRepo) Create(_ context.Context, tx *model.TransferTransaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	r.transfers[tx.ID] = tx
	return nil
}

func (r *fakeTransferRepo) GetByID(_ context.Context, id uuid.UUID) (*model.TransferTransaction, error) {
	if tx, ok := r.transfers[id]; ok {
		return tx, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTransferRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.TransferTransaction, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeTransferRepo) CountActiveByVehicle(_ context.Context, vehicleID uuid.UUID) (int64, error) {
	var count int64
	for _, tx := range r.transfers {
		if tx.VehicleID == vehicleID && tx.Status == model.StatusPending {
			count++
		}
	}
	return count, nil
}

func (r *fakeTransferRepo) ListPending(_ context.Context) ([]model.TransferTransaction, error) {
	var result []model.TransferTransaction
	for _, tx := range r.transfers {
		if tx.Status == model.StatusPending {
			result = append(result, *tx)
		}
	}
	return result, nil
}

func (r *fakeTransferRepo) LatestByVehicle(_ context.Context, vehicleID uuid.UUID) (*model.TransferTransaction, error) {
	for _, tx := range r.transfers {
		if tx.VehicleID == vehicleID {
			return tx, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTransferRepo) Update(_ context.Context, tx *model.TransferTransaction) error {
	r.transfers[tx.ID] = tx
	return nil
}

// --- audit ---

type fakeAuditRepo struct {
	entries []model.AuditLog
}

func (r *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	return r.entries, int64(len(r.entries)), nil
}

func (r *fakeAuditRepo) ListAll(_ context.Context) ([]model.AuditLog, error) {
	return r.entries, nil
}

func (r *fakeAuditRepo) actions() []string {
	result := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		result = append(result, e.Action)
	}
	return result
}
