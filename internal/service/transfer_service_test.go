package service

import (
	"context"
	"testing"
	"time"

	"securechain/internal/model"
	"securechain/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transferFixture struct {
	svc       *transferService
	users     *fakeUserRepo
	vehicles  *fakeVehicleRepo
	transfers *fakeTransferRepo
	audit     *fakeAuditRepo
	mail      *fakeMailer
	events    *fakeEvents

	seller  *model.User
	buyer   *model.User
	vehicle *model.Vehicle
}

func newTransferFixture(t *testing.T) *transferFixture {
	t.Helper()
	f := &transferFixture{
		users:     newFakeUserRepo(),
		vehicles:  newFakeVehicleRepo(),
		transfers: newFakeTransferRepo(),
		audit:     &fakeAuditRepo{},
		mail:      &fakeMailer{},
		events:    &fakeEvents{},
	}
	f.svc = &transferService{
		transfers: f.transfers,
		vehicles:  f.vehicles,
		users:     f.users,
		audit:     f.audit,
		txm:       fakeTxManager{},
		mail:      f.mail,
		events:    f.events,
		now:       func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}

	ctx := context.Background()
	f.seller = &model.User{Name: "Seller", Email: "seller@x.com", Cnic: "11111-1111111-1", Role: model.RoleCitizen}
	f.buyer = &model.User{Name: "Buyer", Email: "buyer@x.com", Cnic: "22222-2222222-2", Role: model.RoleCitizen}
	require.NoError(t, f.users.Create(ctx, f.seller))
	require.NoError(t, f.users.Create(ctx, f.buyer))

	regNo := "VR-20260101-00001"
	f.vehicle = &model.Vehicle{
		OwnerID: f.seller.ID, ChassisNumber: "CH-1", EngineNumber: "EN-1",
		Status: model.VehicleRegistered, RegistrationNumber: &regNo,
	}
	require.NoError(t, f.vehicles.Create(ctx, f.vehicle))
	return f
}

func (f *transferFixture) initiate(t *testing.T) *TransferResponse {
	t.Helper()
	resp, err := f.svc.InitiateTransfer(context.Background(), f.seller.ID, InitiateTransferRequest{
		VehicleID:    f.vehicle.ID.String(),
		NewOwnerCnic: f.buyer.Cnic,
		TransferFee:  decimal.NewFromInt(2000),
	})
	require.NoError(t, err)
	return resp
}

func TestInitiateTransfer(t *testing.T) {
	t.Run("unknown cnic", func(t *testing.T) {
		f := newTransferFixture(t)
		_, err := f.svc.InitiateTransfer(context.Background(), f.seller.ID, InitiateTransferRequest{
			VehicleID:    f.vehicle.ID.String(),
			NewOwnerCnic: "00000-0000000-0",
		})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
	})

	t.Run("only the owner can transfer", func(t *testing.T) {
		f := newTransferFixture(t)
		_, err := f.svc.InitiateTransfer(context.Background(), f.buyer.ID, InitiateTransferRequest{
			VehicleID:    f.vehicle.ID.String(),
			NewOwnerCnic: f.buyer.Cnic,
		})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindAuthorization))
	})

	t.Run("vehicle must be registered", func(t *testing.T) {
		f := newTransferFixture(t)
		f.vehicle.Status = model.VehiclePendingApproval
		_, err := f.svc.InitiateTransfer(context.Background(), f.seller.ID, InitiateTransferRequest{
			VehicleID:    f.vehicle.ID.String(),
			NewOwnerCnic: f.buyer.Cnic,
		})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindInvalidState))
	})

	t.Run("self transfer", func(t *testing.T) {
		f := newTransferFixture(t)
		_, err := f.svc.InitiateTransfer(context.Background(), f.seller.ID, InitiateTransferRequest{
			VehicleID:    f.vehicle.ID.String(),
			NewOwnerCnic: f.seller.Cnic,
		})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})

	t.Run("one pending transfer per vehicle", func(t *testing.T) {
		f := newTransferFixture(t)
		f.initiate(t)
		_, err := f.svc.InitiateTransfer(context.Background(), f.seller.ID, InitiateTransferRequest{
			VehicleID:    f.vehicle.ID.String(),
			NewOwnerCnic: f.buyer.Cnic,
		})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindConflict))
	})

	t.Run("opens a pending transfer", func(t *testing.T) {
		f := newTransferFixture(t)
		resp := f.initiate(t)
		assert.Equal(t, model.StatusPending, resp.Status)
		assert.Equal(t, f.buyer.ID, resp.ToUserID)
		assert.Contains(t, f.audit.actions(), model.ActionInitiateTransfer)
	})
}

func TestApproveTransfer(t *testing.T) {
	t.Run("registration number required", func(t *testing.T) {
		f := newTransferFixture(t)
		tx := f.initiate(t)
		_, err := f.svc.Approve(context.Background(), uuid.New(), ApproveTransferRequest{
			TransactionID: tx.TransactionID.String(),
		})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})

	t.Run("reassigns owner and registration", func(t *testing.T) {
		f := newTransferFixture(t)
		tx := f.initiate(t)
		official := uuid.New()

		resp, err := f.svc.Approve(context.Background(), official, ApproveTransferRequest{
			TransactionID:         tx.TransactionID.String(),
			NewRegistrationNumber: "VR-20260301-00777",
		})
		require.NoError(t, err)
		assert.Equal(t, model.StatusApproved, resp.Status)
		assert.Equal(t, "VR-20260301-00777", resp.NewRegistrationNumber)

		assert.Equal(t, f.buyer.ID, f.vehicle.OwnerID)
		require.NotNil(t, f.vehicle.RegistrationNumber)
		assert.Equal(t, "VR-20260301-00777", *f.vehicle.RegistrationNumber)

		// Both parties are notified after commit.
		require.Len(t, f.mail.sent, 2)
		assert.ElementsMatch(t, []string{"seller@x.com", "buyer@x.com"}, []string{f.mail.sent[0].To, f.mail.sent[1].To})
		assert.Contains(t, f.events.published, "transfer.approved")
		assert.Contains(t, f.audit.actions(), model.ActionApproveTransfer)
	})

	t.Run("mail failure does not reverse the transfer", func(t *testing.T) {
		f := newTransferFixture(t)
		tx := f.initiate(t)
		f.mail.fail = true

		resp, err := f.svc.Approve(context.Background(), uuid.New(), ApproveTransferRequest{
			TransactionID:         tx.TransactionID.String(),
			NewRegistrationNumber: "VR-20260301-00778",
		})
		require.NoError(t, err)
		assert.Equal(t, model.StatusApproved, resp.Status)
		assert.Equal(t, f.buyer.ID, f.vehicle.OwnerID)
	})

	t.Run("decided transfers are terminal", func(t *testing.T) {
		f := newTransferFixture(t)
		tx := f.initiate(t)
		official := uuid.New()

		_, err := f.svc.Approve(context.Background(), official, ApproveTransferRequest{
			TransactionID:         tx.TransactionID.String(),
			NewRegistrationNumber: "VR-20260301-00779",
		})
		require.NoError(t, err)

		_, err = f.svc.Approve(context.Background(), official, ApproveTransferRequest{
			TransactionID:         tx.TransactionID.String(),
			NewRegistrationNumber: "VR-20260301-00780",
		})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindInvalidState))

		_, err = f.svc.Reject(context.Background(), official, RejectTransferRequest{TransactionID: tx.TransactionID.String()})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindInvalidState))
	})
}

func TestRejectTransfer(t *testing.T) {
	f := newTransferFixture(t)
	tx := f.initiate(t)
	official := uuid.New()

	resp, err := f.svc.Reject(context.Background(), official, RejectTransferRequest{TransactionID: tx.TransactionID.String()})
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, resp.Status)

	// Ownership is untouched.
	assert.Equal(t, f.seller.ID, f.vehicle.OwnerID)
	assert.Contains(t, f.audit.actions(), model.ActionRejectTransfer)
	require.Len(t, f.mail.sent, 2)
}

func TestListPendingTransfers(t *testing.T) {
	f := newTransferFixture(t)
	f.initiate(t)

	pending, err := f.svc.ListPendingTransfers(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, model.StatusPending, pending[0].Status)
}
