package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"regexp"
	"strings"
	"time"

	"securechain/internal/mailer"
	"securechain/internal/model"
	"securechain/internal/repository"
	"securechain/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for request validation

type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Cnic     string `json:"cnic" binding:"required"`
	Phone    string `json:"phoneNumber" binding:"required"`
	Address  string `json:"addressDetails" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Name           string `json:"name"`
	Phone          string `json:"phoneNumber"`
	Address        string `json:"addressDetails"`
	ProfilePicture string `json:"profilePicture"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse returns a User without exposing the password hash.
type UserResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Cnic           string    `json:"cnic"`
	Phone          string    `json:"phone_number"`
	Address        string    `json:"address_details"`
	Role           string    `json:"role"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	CreatedAt      string    `json:"created_at"`
}

// AuthService owns identity: OTP-gated signup, login, password reset and
// profile maintenance.
type AuthService interface {
	SendSignupOtp(ctx context.Context, email string) error
	VerifySignupOtp(ctx context.Context, email, code string) error
	Signup(ctx context.Context, req SignupRequest) (*LoginResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)

	SendResetOtp(ctx context.Context, email string) error
	VerifyResetOtp(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, newPassword string) error

	GetProfile(ctx context.Context, id uuid.UUID) (*UserResponse, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*UserResponse, error)
	ListInspectionOfficers(ctx context.Context) ([]UserResponse, error)
}

type authService struct {
	users  repository.UserRepository
	otps   repository.OtpRepository
	audit  repository.AuditRepository
	txm    repository.TransactionManager
	mail   mailer.Mailer
	otpTTL time.Duration
	now    func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	otps repository.OtpRepository,
	audit repository.AuditRepository,
	txm repository.TransactionManager,
	mail mailer.Mailer,
) AuthService {
	return &authService{
		users:  users,
		otps:   otps,
		audit:  audit,
		txm:    txm,
		mail:   mail,
		otpTTL: otpTTL(),
		now:    time.Now,
	}
}

// otpTTL is the OTP validity window. Policy constant, env-overridable.
func otpTTL() time.Duration {
	if raw := os.Getenv("OTP_TTL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			return d
		}
	}
	return 5 * time.Minute
}

var (
	namePattern = regexp.MustCompile(`^[A-Za-z.\s]+$`)
	cnicPattern = regexp.MustCompile(`^\d{5}-\d{7}-\d{1}$`)
)

// validPassword enforces: at least 8 chars, one digit, one special char.
func validPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	return strings.ContainsAny(password, "0123456789") &&
		strings.ContainsAny(password, "@$!%*?&#^_-")
}

func validateCandidate(req SignupRequest) error {
	if !namePattern.MatchString(req.Name) {
		return apperror.Validation("name must contain only letters, spaces, and dots")
	}
	if !validPassword(req.Password) {
		return apperror.Validation("password must be at least 8 characters and include one digit and one special character")
	}
	if !cnicPattern.MatchString(req.Cnic) {
		return apperror.Validation("cnic must be in XXXXX-XXXXXXX-X format")
	}
	if !model.ValidRole(req.Role) {
		return apperror.Validation("unknown role %q", req.Role)
	}
	return nil
}

func generateOtpCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func (s *authService) issueOtp(ctx context.Context, email, purpose string) error {
	code, err := generateOtpCode()
	if err != nil {
		return apperror.Internal(err)
	}

	otp := &model.OtpCode{
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: s.now().Add(s.otpTTL),
	}
	if err := s.otps.Create(ctx, otp); err != nil {
		return apperror.Internal(err)
	}

	// OTP mail is the whole point of this call, so a send failure fails it.
	body := fmt.Sprintf("Your SecureChain verification code is %s. It expires in %s.", code, s.otpTTL)
	if err := s.mail.Send(email, "SecureChain verification code", body); err != nil {
		return apperror.Internal(fmt.Errorf("sending otp mail: %w", err))
	}
	return nil
}

func (s *authService) checkOtp(ctx context.Context, email, purpose, code string) (*model.OtpCode, error) {
	otp, err := s.otps.Latest(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.InvalidOtp("no verification code issued for this email")
		}
		return nil, apperror.Internal(err)
	}
	if !otp.Usable(s.now()) {
		return nil, apperror.InvalidOtp("verification code expired or already used")
	}
	if otp.Code != code {
		return nil, apperror.InvalidOtp("verification code does not match")
	}
	return otp, nil
}

func (s *authService) SendSignupOtp(ctx context.Context, email string) error {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return apperror.Duplicate("email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.Internal(err)
	}
	return s.issueOtp(ctx, email, model.OtpPurposeSignup)
}

func (s *authService) VerifySignupOtp(ctx context.Context, email, code string) error {
	otp, err := s.checkOtp(ctx, email, model.OtpPurposeSignup, code)
	if err != nil {
		return err
	}
	now := s.now()
	otp.VerifiedAt = &now
	if err := s.otps.Update(ctx, otp); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func (s *authService) Signup(ctx context.Context, req SignupRequest) (*LoginResponse, error) {
	if err := validateCandidate(req); err != nil {
		return nil, err
	}

	otp, err := s.otps.Latest(ctx, req.Email, model.OtpPurposeSignup)
	if err != nil || otp.VerifiedAt == nil || !otp.Usable(s.now()) {
		return nil, apperror.InvalidOtp("email not verified")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	user := &model.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
		Cnic:     req.Cnic,
		Phone:    req.Phone,
		Address:  req.Address,
		Role:     req.Role,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.users.Create(txCtx, user); createErr != nil {
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return apperror.Duplicate("email or cnic already registered")
			}
			return apperror.Internal(createErr)
		}

		now := s.now()
		otp.ConsumedAt = &now
		if updateErr := s.otps.Update(txCtx, otp); updateErr != nil {
			return apperror.Internal(updateErr)
		}

		details, _ := json.Marshal(map[string]interface{}{"email": user.Email, "role": user.Role})
		entry := &model.AuditLog{
			UserID:     &user.ID,
			Action:     model.ActionSignup,
			EntityID:   user.ID.String(),
			EntityName: user.Name,
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

	token, err := s.signToken(user)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	return &LoginResponse{Token: token, User: *mapUserResponse(user)}, nil
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperror.Authentication("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperror.Authentication("invalid email or password")
	}

	token, err := s.signToken(user)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	return &LoginResponse{Token: token, User: *mapUserResponse(user)}, nil
}

func (s *authService) signToken(user *model.User) (string, error) {
	ttl := 24 * time.Hour
	if raw := os.Getenv("TOKEN_TTL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			ttl = d
		}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"exp":  s.now().Add(ttl).Unix(),
	})

	// Same fallback strategy as the middleware.
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default_super_secret_key"
	}
	return token.SignedString([]byte(secret))
}

func (s *authService) SendResetOtp(ctx context.Context, email string) error {
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("no account for this email")
		}
		return apperror.Internal(err)
	}
	return s.issueOtp(ctx, email, model.OtpPurposePasswordReset)
}

func (s *authService) VerifyResetOtp(ctx context.Context, email, code string) error {
	otp, err := s.checkOtp(ctx, email, model.OtpPurposePasswordReset, code)
	if err != nil {
		return err
	}
	now := s.now()
	otp.VerifiedAt = &now
	if err := s.otps.Update(ctx, otp); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, email, newPassword string) error {
	if !validPassword(newPassword) {
		return apperror.Validation("password must be at least 8 characters and include one digit and one special character")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("no account for this email")
		}
		return apperror.Internal(err)
	}

	otp, err := s.otps.Latest(ctx, email, model.OtpPurposePasswordReset)
	if err != nil || otp.VerifiedAt == nil || !otp.Usable(s.now()) {
		return apperror.InvalidOtp("password reset not verified")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperror.Internal(err)
	}
	user.Password = string(hashed)

	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.users.Update(txCtx, user); updateErr != nil {
			return apperror.Internal(updateErr)
		}

		now := s.now()
		otp.ConsumedAt = &now
		if updateErr := s.otps.Update(txCtx, otp); updateErr != nil {
			return apperror.Internal(updateErr)
		}

		entry := &model.AuditLog{
			UserID:   &user.ID,
			Action:   model.ActionChangePassword,
			EntityID: user.ID.String(),
			Details:  "{}",
		}
		if auditErr := s.audit.Log(txCtx, entry); auditErr != nil {
			return apperror.Internal(auditErr)
		}
		return nil
	})
}

func (s *authService) GetProfile(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, apperror.Internal(err)
	}
	return mapUserResponse(user), nil
}

func (s *authService) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, apperror.Internal(err)
	}

	if req.Name != "" {
		if !namePattern.MatchString(req.Name) {
			return nil, apperror.Validation("name must contain only letters, spaces, and dots")
		}
		user.Name = req.Name
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if req.Address != "" {
		user.Address = req.Address
	}
	if req.ProfilePicture != "" {
		user.ProfilePicture = req.ProfilePicture
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.users.Update(txCtx, user); updateErr != nil {
			return apperror.Internal(updateErr)
		}
		entry := &model.AuditLog{
			UserID:     &user.ID,
			Action:     model.ActionUpdateProfile,
			EntityID:   user.ID.String(),
			EntityName: user.Name,
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

	return mapUserResponse(user), nil
}

func (s *authService) ListInspectionOfficers(ctx context.Context) ([]UserResponse, error) {
	officers, err := s.users.ListByRole(ctx, model.RoleInspectionOfficer)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	result := make([]UserResponse, 0, len(officers))
	for i := range officers {
		result = append(result, *mapUserResponse(&officers[i]))
	}
	return result, nil
}

func mapUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		Cnic:           user.Cnic,
		Phone:          user.Phone,
		Address:        user.Address,
		Role:           user.Role,
		ProfilePicture: user.ProfilePicture,
		CreatedAt:      user.CreatedAt.Format(time.RFC3339),
	}
}
