package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yigit/campuswell/internal/app/models"
	"github.com/yigit/campuswell/internal/pkg/apperrors"
	"github.com/yigit/campuswell/internal/pkg/auth"
	"github.com/yigit/campuswell/internal/pkg/email"
)

// OTPStore is the persistence the OTP service needs.
type OTPStore interface {
	Create(ctx context.Context, otp *models.OTPCode) error
	ExpirePending(ctx context.Context, email string, otpType models.OTPType) error
	Latest(ctx context.Context, email string, otpType models.OTPType) (*models.OTPCode, error)
	LatestPending(ctx context.Context, email string, otpType models.OTPType) (*models.OTPCode, error)
	CountSince(ctx context.Context, email string, otpType models.OTPType, since time.Time) (int, error)
	ClaimAttempt(ctx context.Context, id string) (int, error)
	Resolve(ctx context.Context, id string, status models.OTPStatus, verifiedAt *time.Time) (bool, error)
	Cleanup(ctx context.Context, now, cutoff time.Time) (expired, deleted int64, err error)
}

// OTPConfig holds the OTP policy.
type OTPConfig struct {
	Expiry         time.Duration
	MaxAttempts    int
	ResendCooldown time.Duration
	RequestLimit   int
	RequestWindow  time.Duration
	Retention      time.Duration
}

// DefaultOTPConfig is the policy used when no configuration overrides it.
func DefaultOTPConfig() OTPConfig {
	return OTPConfig{
		Expiry:         10 * time.Minute,
		MaxAttempts:    3,
		ResendCooldown: 60 * time.Second,
		RequestLimit:   5,
		RequestWindow:  15 * time.Minute,
		Retention:      24 * time.Hour,
	}
}

// OTPRequest describes who a code is issued to.
type OTPRequest struct {
	Email     string
	Name      string
	UserID    *string
	Type      models.OTPType
	IPAddress string
	UserAgent string
}

// OTPService issues and verifies one time codes.
type OTPService struct {
	store  OTPStore
	mailer email.EmailService
	config OTPConfig
	now    func() time.Time
	logger zerolog.Logger
}

// NewOTPService creates a new OTPService
func NewOTPService(store OTPStore, mailer email.EmailService, config OTPConfig, logger zerolog.Logger) *OTPService {
	return &OTPService{
		store:  store,
		mailer: mailer,
		config: config,
		now:    time.Now,
		logger: logger,
	}
}

// ExpiresIn is the lifetime of newly issued codes.
func (s *OTPService) ExpiresIn() time.Duration {
	return s.config.Expiry
}

// Request issues a new code for (email, type), expiring earlier pending ones, and mails it.
func (s *OTPService) Request(ctx context.Context, req OTPRequest) error {
	now := s.now()
	addr := normalizeEmail(req.Email)

	latest, err := s.store.LatestPending(ctx, addr, req.Type)
	if err != nil && !errors.Is(err, apperrors.ErrOTPNotFound) {
		return err
	}
	if latest != nil && now.Before(latest.CreatedAt.Add(s.config.ResendCooldown)) {
		return &apperrors.RateLimitError{
			Action:    "otpResend",
			ResetTime: latest.CreatedAt.Add(s.config.ResendCooldown),
		}
	}

	recent, err := s.store.CountSince(ctx, addr, req.Type, now.Add(-s.config.RequestWindow))
	if err != nil {
		return err
	}
	if recent >= s.config.RequestLimit {
		s.logger.Warn().Str("email", addr).Str("type", string(req.Type)).Int("recent", recent).Msg("OTP request limit reached")
		return &apperrors.RateLimitError{Action: "otpRequest", ResetTime: now.Add(s.config.RequestWindow)}
	}

	code, err := auth.GenerateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate OTP: %w", err)
	}
	hash, err := auth.HashPassword(code)
	if err != nil {
		return fmt.Errorf("failed to hash OTP: %w", err)
	}

	if err := s.store.ExpirePending(ctx, addr, req.Type); err != nil {
		return err
	}

	otp := &models.OTPCode{
		ID:          uuid.NewString(),
		Email:       addr,
		UserID:      req.UserID,
		Code:        hash,
		Type:        req.Type,
		Status:      models.OTPPending,
		MaxAttempts: s.config.MaxAttempts,
		ExpiresAt:   now.Add(s.config.Expiry),
		IPAddress:   optional(req.IPAddress),
		UserAgent:   optional(req.UserAgent),
		CreatedAt:   now,
	}
	if err := s.store.Create(ctx, otp); err != nil {
		return err
	}

	if err := s.mailer.SendOTP(addr, req.Name, code, req.Type, s.config.Expiry); err != nil {
		s.logger.Error().Err(err).Str("email", addr).Str("type", string(req.Type)).Msg("Failed to deliver OTP")
		return fmt.Errorf("%w: %v", apperrors.ErrOTPDeliveryFailed, err)
	}

	s.logger.Info().Str("email", addr).Str("type", string(req.Type)).Msg("OTP issued")
	return nil
}

// Verify checks code against the newest pending code of (email, type). Every call
// counts as an attempt, claimed in the store before the code is compared.
func (s *OTPService) Verify(ctx context.Context, addr string, otpType models.OTPType, code string) (*models.OTPCode, error) {
	now := s.now()
	addr = normalizeEmail(addr)

	otp, err := s.store.LatestPending(ctx, addr, otpType)
	if err != nil {
		return nil, err
	}

	if now.After(otp.ExpiresAt) {
		if _, err := s.store.Resolve(ctx, otp.ID, models.OTPExpired, nil); err != nil {
			return nil, err
		}
		return nil, apperrors.ErrOTPExpired
	}

	attempts, err := s.store.ClaimAttempt(ctx, otp.ID)
	if errors.Is(err, apperrors.ErrOTPAttemptsExceeded) {
		return nil, s.fail(ctx, otp.ID)
	}
	if err != nil {
		return nil, err
	}
	otp.Attempts = attempts

	if !auth.CheckPassword(otp.Code, strings.TrimSpace(code)) {
		remaining := otp.MaxAttempts - attempts
		if remaining <= 0 {
			return nil, s.fail(ctx, otp.ID)
		}
		return nil, &apperrors.OTPError{Err: apperrors.ErrOTPInvalid, AttemptsRemaining: remaining}
	}

	verified, err := s.store.Resolve(ctx, otp.ID, models.OTPVerified, &now)
	if err != nil {
		return nil, err
	}
	if !verified {
		// another request finished this code first
		return nil, apperrors.ErrOTPNotFound
	}
	otp.Status = models.OTPVerified
	otp.VerifiedAt = &now
	return otp, nil
}

// fail marks a code FAILED unless it already left PENDING.
func (s *OTPService) fail(ctx context.Context, id string) error {
	if _, err := s.store.Resolve(ctx, id, models.OTPFailed, nil); err != nil {
		return err
	}
	return &apperrors.OTPError{Err: apperrors.ErrOTPAttemptsExceeded}
}

// Status reports on the newest code of (email, type) without counting an attempt.
func (s *OTPService) Status(ctx context.Context, addr string, otpType models.OTPType) (*models.OTPStatusView, error) {
	otp, err := s.store.Latest(ctx, normalizeEmail(addr), otpType)
	if errors.Is(err, apperrors.ErrOTPNotFound) {
		return &models.OTPStatusView{Exists: false}, nil
	}
	if err != nil {
		return nil, err
	}

	status := otp.Status
	if status == models.OTPPending && s.now().After(otp.ExpiresAt) {
		status = models.OTPExpired
	}
	remaining := otp.MaxAttempts - otp.Attempts
	if remaining < 0 || status != models.OTPPending {
		remaining = 0
	}
	expiresAt := otp.ExpiresAt
	return &models.OTPStatusView{
		Exists:            true,
		Status:            status,
		AttemptsRemaining: remaining,
		ExpiresAt:         &expiresAt,
	}, nil
}

// Cleanup expires overdue codes and deletes finished ones past retention.
func (s *OTPService) Cleanup(ctx context.Context) (expired, deleted int64, err error) {
	now := s.now()
	return s.store.Cleanup(ctx, now, now.Add(-s.config.Retention))
}

func normalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
