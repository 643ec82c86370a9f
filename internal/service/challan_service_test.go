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

func newChallanFixture(t *testing.T) (*challanService, *fakeVehicleRepo, *fakeAuditRepo, *model.Vehicle) {
	t.Helper()
	vehicles := newFakeVehicleRepo()
	audit := &fakeAuditRepo{}
	svc := &challanService{
		challans: newFakeChallanRepo(),
		vehicles: vehicles,
		audit:    audit,
		txm:      fakeTxManager{},
		now:      func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}

	vehicle := &model.Vehicle{OwnerID: uuid.New(), ChassisNumber: "CH-1", EngineNumber: "EN-1", Status: model.VehicleRegistered}
	require.NoError(t, vehicles.Create(context.Background(), vehicle))
	return svc, vehicles, audit, vehicle
}

func TestCreateChallan(t *testing.T) {
	svc, _, audit, vehicle := newChallanFixture(t)
	ctx := context.Background()
	officer := uuid.New()

	t.Run("amount must be positive", func(t *testing.T) {
		_, err := svc.CreateChallan(ctx, officer, CreateChallanRequest{
			VehicleID: vehicle.ID.String(), Amount: decimal.Zero, Type: model.ChallanTypeRegistration,
		})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := svc.CreateChallan(ctx, officer, CreateChallanRequest{
			VehicleID: vehicle.ID.String(), Amount: decimal.NewFromInt(500), Type: "Parking",
		})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})

	t.Run("vehicle must exist", func(t *testing.T) {
		_, err := svc.CreateChallan(ctx, officer, CreateChallanRequest{
			VehicleID: uuid.NewString(), Amount: decimal.NewFromInt(500), Type: model.ChallanTypeRegistration,
		})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
	})

	t.Run("issues with grace period", func(t *testing.T) {
		resp, err := svc.CreateChallan(ctx, officer, CreateChallanRequest{
			VehicleID: vehicle.ID.String(), Amount: decimal.NewFromInt(500), Type: model.ChallanTypeRegistration,
		})
		require.NoError(t, err)
		assert.Equal(t, model.ChallanUnpaid, resp.PaymentStatus)
		assert.False(t, resp.Overdue)

		issue, _ := time.Parse(time.RFC3339, resp.IssueDate)
		due, _ := time.Parse(time.RFC3339, resp.DueDate)
		assert.Equal(t, 30*24*time.Hour, due.Sub(issue))
		assert.Contains(t, audit.actions(), model.ActionCreateChallan)
	})
}

func TestMarkPaid(t *testing.T) {
	svc, _, audit, vehicle := newChallanFixture(t)
	ctx := context.Background()
	citizen := vehicle.OwnerID

	resp, err := svc.CreateChallan(ctx, uuid.New(), CreateChallanRequest{
		VehicleID: vehicle.ID.String(), Amount: decimal.NewFromInt(1500), Type: model.ChallanTypeRegistration,
	})
	require.NoError(t, err)

	// Settling someone else's challan is not allowed.
	_, err = svc.MarkPaid(ctx, uuid.New(), resp.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorization))

	paid, err := svc.MarkPaid(ctx, citizen, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ChallanPaid, paid.PaymentStatus)
	assert.Contains(t, audit.actions(), model.ActionPayChallan)

	// Payment is one-way.
	_, err = svc.MarkPaid(ctx, citizen, resp.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidState))
}

func TestMarkPaidUnknownChallan(t *testing.T) {
	svc, _, _, _ := newChallanFixture(t)
	_, err := svc.MarkPaid(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestChallanOverdueIsLazy(t *testing.T) {
	svc, _, _, vehicle := newChallanFixture(t)
	ctx := context.Background()

	resp, err := svc.CreateChallan(ctx, uuid.New(), CreateChallanRequest{
		VehicleID: vehicle.ID.String(), Amount: decimal.NewFromInt(500), Type: model.ChallanTypeRegistration,
	})
	require.NoError(t, err)
	assert.False(t, resp.Overdue)

	// Move the clock past the due date; nothing mutates the row.
	svc.now = func() time.Time { return time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC) }

	listed, err := svc.ListByVehicle(ctx, vehicle.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.True(t, listed[0].Overdue)
	assert.Equal(t, model.ChallanUnpaid, listed[0].PaymentStatus)
}

func TestListChallansByUser(t *testing.T) {
	svc, vehicles, _, vehicle := newChallanFixture(t)
	ctx := context.Background()

	other := &model.Vehicle{OwnerID: uuid.New(), ChassisNumber: "CH-2", EngineNumber: "EN-2", Status: model.VehicleRegistered}
	require.NoError(t, vehicles.Create(ctx, other))

	for _, v := range []*model.Vehicle{vehicle, other} {
		_, err := svc.CreateChallan(ctx, uuid.New(), CreateChallanRequest{
			VehicleID: v.ID.String(), Amount: decimal.NewFromInt(100), Type: model.ChallanTypeRegistration,
		})
		require.NoError(t, err)
	}

	mine, err := svc.ListByUser(ctx, vehicle.OwnerID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestChallanStaysWithOwnerAtIssuance(t *testing.T) {
	svc, _, _, vehicle := newChallanFixture(t)
	ctx := context.Background()
	seller := vehicle.OwnerID
	buyer := uuid.New()

	resp, err := svc.CreateChallan(ctx, uuid.New(), CreateChallanRequest{
		VehicleID: vehicle.ID.String(), Amount: decimal.NewFromInt(800), Type: model.ChallanTypeRegistration,
	})
	require.NoError(t, err)

	// An approved ownership transfer reassigns the vehicle; the unpaid
	// challan must stay visible to, and payable by, the seller.
	vehicle.OwnerID = buyer

	sellers, err := svc.ListByUser(ctx, seller)
	require.NoError(t, err)
	require.Len(t, sellers, 1)

	buyers, err := svc.ListByUser(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, buyers)

	_, err = svc.MarkPaid(ctx, buyer, resp.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorization))

	paid, err := svc.MarkPaid(ctx, seller, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ChallanPaid, paid.PaymentStatus)
}
