package service

import (
	"context"
	"testing"
	"time"

	"securechain/internal/model"
	"securechain/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthFixture() (*authService, *fakeUserRepo, *fakeOtpRepo, *fakeMailer, *fakeAuditRepo) {
	users := newFakeUserRepo()
	otps := &fakeOtpRepo{}
	audit := &fakeAuditRepo{}
	mail := &fakeMailer{}
	svc := &authService{
		users:  users,
		otps:   otps,
		audit:  audit,
		txm:    fakeTxManager{},
		mail:   mail,
		otpTTL: 5 * time.Minute,
		now:    func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
	return svc, users, otps, mail, audit
}

func validSignup() SignupRequest {
	return SignupRequest{
		Name:     "Ali Khan",
		Email:    "ali@example.com",
		Password: "secret1!pass",
		Cnic:     "12345-1234567-1",
		Phone:    "+923001234567",
		Address:  "House 1, Street 2",
		Role:     model.RoleCitizen,
	}
}

func TestSignupValidation(t *testing.T) {
	svc, _, _, _, _ := newAuthFixture()

	tests := []struct {
		name   string
		mutate func(*SignupRequest)
	}{
		{"name with digits", func(r *SignupRequest) { r.Name = "Ali123" }},
		{"short password", func(r *SignupRequest) { r.Password = "a1!" }},
		{"password without digit", func(r *SignupRequest) { r.Password = "password!" }},
		{"password without special char", func(r *SignupRequest) { r.Password = "password1" }},
		{"malformed cnic", func(r *SignupRequest) { r.Cnic = "1234567890123" }},
		{"unknown role", func(r *SignupRequest) { r.Role = "admin" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validSignup()
			tt.mutate(&req)
			_, err := svc.Signup(context.Background(), req)
			require.Error(t, err)
			assert.True(t, apperror.IsKind(err, apperror.KindValidation))
		})
	}
}

func TestSignupOtpFlow(t *testing.T) {
	svc, users, otps, mail, audit := newAuthFixture()
	ctx := context.Background()
	req := validSignup()

	// No OTP verified yet.
	_, err := svc.Signup(ctx, req)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidOtp))

	require.NoError(t, svc.SendSignupOtp(ctx, req.Email))
	require.Len(t, mail.sent, 1)
	assert.Equal(t, req.Email, mail.sent[0].To)

	code := otps.codes[0].Code
	require.Error(t, svc.VerifySignupOtp(ctx, req.Email, "000000x"))
	require.NoError(t, svc.VerifySignupOtp(ctx, req.Email, code))

	result, err := svc.Signup(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, req.Email, result.User.Email)
	assert.Equal(t, model.RoleCitizen, result.User.Role)

	// OTP is single-use.
	assert.NotNil(t, otps.codes[0].ConsumedAt)
	assert.Contains(t, audit.actions(), model.ActionSignup)

	// Stored password is hashed.
	stored, err := users.GetByEmail(ctx, req.Email)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte(req.Password)))
}

func TestSignupOtpExpiry(t *testing.T) {
	svc, _, otps, _, _ := newAuthFixture()
	ctx := context.Background()
	req := validSignup()

	require.NoError(t, svc.SendSignupOtp(ctx, req.Email))
	code := otps.codes[0].Code

	// Advance past the TTL.
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 6, 0, 0, time.UTC) }

	err := svc.VerifySignupOtp(ctx, req.Email, code)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidOtp))
}

func TestSendSignupOtpDuplicateEmail(t *testing.T) {
	svc, users, _, _, _ := newAuthFixture()
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, &model.User{
		Email: "taken@example.com", Cnic: "11111-1111111-1", Role: model.RoleCitizen,
	}))

	err := svc.SendSignupOtp(ctx, "taken@example.com")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindDuplicate))
}

func TestSignupDuplicateCnic(t *testing.T) {
	svc, users, otps, _, _ := newAuthFixture()
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, &model.User{
		Email: "other@example.com", Cnic: "12345-1234567-1", Role: model.RoleCitizen,
	}))

	req := validSignup()
	require.NoError(t, svc.SendSignupOtp(ctx, req.Email))
	require.NoError(t, svc.VerifySignupOtp(ctx, req.Email, otps.codes[0].Code))

	_, err := svc.Signup(ctx, req)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindDuplicate))
}

func TestLogin(t *testing.T) {
	svc, users, _, _, _ := newAuthFixture()
	ctx := context.Background()

	hashed, err := bcrypt.GenerateFromPassword([]byte("secret1!pass"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, &model.User{
		Name: "Ali Khan", Email: "ali@example.com", Password: string(hashed),
		Cnic: "12345-1234567-1", Role: model.RoleCitizen,
	}))

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginRequest{Email: "ali@example.com", Password: "wrong1!pass"})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindAuthentication))
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "secret1!pass"})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindAuthentication))
	})

	t.Run("success", func(t *testing.T) {
		result, err := svc.Login(ctx, LoginRequest{Email: "ali@example.com", Password: "secret1!pass"})
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		assert.Equal(t, "Ali Khan", result.User.Name)
	})
}

func TestResetPasswordFlow(t *testing.T) {
	svc, users, otps, _, audit := newAuthFixture()
	ctx := context.Background()

	hashed, _ := bcrypt.GenerateFromPassword([]byte("old1!passwd"), bcrypt.MinCost)
	require.NoError(t, users.Create(ctx, &model.User{
		Name: "Ali Khan", Email: "ali@example.com", Password: string(hashed),
		Cnic: "12345-1234567-1", Role: model.RoleCitizen,
	}))

	// Unknown account is surfaced, not silently accepted.
	err := svc.SendResetOtp(ctx, "nobody@example.com")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	require.NoError(t, svc.SendResetOtp(ctx, "ali@example.com"))
	require.NoError(t, svc.VerifyResetOtp(ctx, "ali@example.com", otps.codes[0].Code))

	err = svc.ResetPassword(ctx, "ali@example.com", "weak")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	require.NoError(t, svc.ResetPassword(ctx, "ali@example.com", "new1!passwd"))
	assert.Contains(t, audit.actions(), model.ActionChangePassword)

	user, err := users.GetByEmail(ctx, "ali@example.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("new1!passwd")))
}

func TestUpdateProfile(t *testing.T) {
	svc, users, _, _, _ := newAuthFixture()
	ctx := context.Background()

	user := &model.User{
		Name: "Ali Khan", Email: "ali@example.com",
		Cnic: "12345-1234567-1", Role: model.RoleCitizen,
	}
	require.NoError(t, users.Create(ctx, user))

	_, err := svc.UpdateProfile(ctx, user.ID, UpdateProfileRequest{Name: "Ali 9000"})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	resp, err := svc.UpdateProfile(ctx, user.ID, UpdateProfileRequest{Name: "Ali K. Khan", Phone: "+923009999999"})
	require.NoError(t, err)
	assert.Equal(t, "Ali K. Khan", resp.Name)
	assert.Equal(t, "+923009999999", resp.Phone)
	// Untouched fields survive.
	assert.Equal(t, "ali@example.com", resp.Email)
}

func TestListInspectionOfficers(t *testing.T) {
	svc, users, _, _, _ := newAuthFixture()
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, &model.User{Email: "a@x.com", Cnic: "1", Role: model.RoleCitizen}))
	require.NoError(t, users.Create(ctx, &model.User{Email: "b@x.com", Cnic: "2", Role: model.RoleInspectionOfficer}))

	officers, err := svc.ListInspectionOfficers(ctx)
	require.NoError(t, err)
	require.Len(t, officers, 1)
	assert.Equal(t, "b@x.com", officers[0].Email)
}
