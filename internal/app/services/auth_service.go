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
	"github.com/yigit/campuswell/internal/app/models/dto"
	"github.com/yigit/campuswell/internal/community"
	"github.com/yigit/campuswell/internal/pkg/apperrors"
	"github.com/yigit/campuswell/internal/pkg/auth"
	"github.com/yigit/campuswell/internal/pkg/email"
	"github.com/yigit/campuswell/internal/security/sanitize"
)

// UserStore is the user persistence used by the auth and user services.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	Exists(ctx context.Context, email, username string) (emailTaken, usernameTaken bool, err error)
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdateSettings(ctx context.Context, id, column string, value interface{}) error
	UpdateAvatar(ctx context.Context, id, url string) error
	UpdatePassword(ctx context.Context, id, hash string) error
	MarkEmailVerified(ctx context.Context, id string) error
	TouchLastActive(ctx context.Context, id string, at time.Time) error
}

// TokenStore persists refresh tokens.
type TokenStore interface {
	CreateToken(ctx context.Context, token, userID string, expiryDate time.Time) error
	GetToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeToken(ctx context.Context, token string) error
	RevokeAllUserTokens(ctx context.Context, userID string) error
}

// MemberRegistry mirrors accounts into the community member list.
type MemberRegistry interface {
	RegisterMember(ctx context.Context, profile community.MemberProfile) (*community.Member, error)
}

// RequestMeta is request context recorded with issued codes.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// AuthService handles authentication operations
type AuthService struct {
	users      UserStore
	tokens     TokenStore
	otp        *OTPService
	jwtService *auth.JWTService
	members    MemberRegistry
	mailer     email.EmailService
	now        func() time.Time
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users UserStore,
	tokens TokenStore,
	otp *OTPService,
	jwtService *auth.JWTService,
	members MemberRegistry,
	mailer email.EmailService,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		otp:        otp,
		jwtService: jwtService,
		members:    members,
		mailer:     mailer,
		now:        time.Now,
		logger:     logger,
	}
}

// Register creates an account from the basic sign-up form.
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	user, err := s.newUser(req.Email, req.Username, req.Password, req.FullName)
	if err != nil {
		return nil, err
	}
	if err := s.createUser(ctx, user); err != nil {
		return nil, err
	}

	if err := s.mailer.SendWelcomeEmail(user.Email, user.DisplayName()); err != nil {
		s.logger.Warn().Err(err).Str("userID", user.ID).Msg("Failed to send welcome email")
	}
	return s.issue(ctx, user)
}

// RegisterEnhanced creates an account from the registration wizard and sends an email
// verification code.
func (s *AuthService) RegisterEnhanced(ctx context.Context, req *dto.EnhancedRegisterRequest, meta RequestMeta) (*dto.AuthResponse, error) {
	if !req.AcceptTerms {
		return nil, apperrors.NewValidationError("acceptTerms", "You must accept the terms and conditions")
	}

	user, err := s.newUser(req.Email, req.Username, req.Password, req.FullName)
	if err != nil {
		return nil, err
	}
	if bio := sanitize.Text(req.Bio, 500); bio != "" {
		user.Bio = &bio
	}
	user.Interests = cleanList(req.Interests, 50)
	user.AcademicInfo = req.AcademicInfo.ToModel()

	if err := s.createUser(ctx, user); err != nil {
		return nil, err
	}

	resp, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	err = s.otp.Request(ctx, OTPRequest{
		Email:     user.Email,
		Name:      user.DisplayName(),
		UserID:    &user.ID,
		Type:      models.OTPEmailVerification,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	if err != nil {
		// the account exists, the code can be requested again
		s.logger.Warn().Err(err).Str("userID", user.ID).Msg("Failed to send verification code after registration")
	}
	resp.RequiresVerification = true
	return resp, nil
}

func (s *AuthService) newUser(addr, username, password, fullName string) (*models.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &models.User{
		ID:               uuid.NewString(),
		Email:            normalizeEmail(addr),
		Username:         strings.TrimSpace(username),
		Password:         hash,
		Interests:        []string{},
		Role:             models.RoleUser,
		IsActive:         true,
		PrivacySettings:  models.DefaultPrivacySettings(),
		WellnessSettings: models.DefaultWellnessSettings(),
		Preferences:      models.DefaultPreferences(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if name := sanitize.Text(fullName, 100); name != "" {
		user.FullName = &name
	}
	return user, nil
}

func (s *AuthService) createUser(ctx context.Context, user *models.User) error {
	emailTaken, usernameTaken, err := s.users.Exists(ctx, user.Email, user.Username)
	if err != nil {
		return err
	}
	if emailTaken {
		return apperrors.ErrEmailAlreadyExists
	}
	if usernameTaken {
		return apperrors.ErrUsernameAlreadyExists
	}

	if err := s.users.Create(ctx, user); err != nil {
		return err
	}

	if s.members != nil {
		_, err := s.members.RegisterMember(ctx, community.MemberProfile{
			ID:       user.ID,
			Name:     user.DisplayName(),
			Email:    user.Email,
			Role:     string(user.Role),
			JoinedAt: user.CreatedAt,
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("userID", user.ID).Msg("Failed to register community member")
		}
	}

	s.logger.Info().Str("userID", user.ID).Str("username", user.Username).Msg("User registered")
	return nil
}

// Login authenticates with an email or username and a password.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.users.GetByIdentifier(ctx, strings.TrimSpace(req.Identifier))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		s.logger.Info().Str("userID", user.ID).Msg("Login failed: wrong password")
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}
	return s.issue(ctx, user)
}

// issue creates a token pair for user and records the refresh token.
func (s *AuthService) issue(ctx context.Context, user *models.User) (*dto.AuthResponse, error) {
	pair, err := s.jwtService.GenerateTokenPair(auth.Subject{
		UserID:        user.ID,
		Email:         user.Email,
		Role:          string(user.Role),
		EmailVerified: user.EmailVerified,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	if err := s.tokens.CreateToken(ctx, pair.RefreshToken, user.ID, pair.RefreshExpiresAt); err != nil {
		return nil, err
	}
	if err := s.users.TouchLastActive(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn().Err(err).Str("userID", user.ID).Msg("Failed to update last active")
	}

	return &dto.AuthResponse{
		Token: tokenResponse(pair),
		User:  dto.NewUserResponse(user),
	}, nil
}

func tokenResponse(pair *auth.TokenPair) dto.TokenResponse {
	return dto.TokenResponse{
		AccessToken:           pair.AccessToken,
		TokenType:             "Bearer",
		ExpiresIn:             int64(pair.ExpiresIn),
		RefreshToken:          pair.RefreshToken,
		RefreshTokenExpiresIn: int64(pair.RefreshExpiresIn),
	}
}

// RefreshToken rotates a refresh token: the old one is revoked and a new pair issued.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	stored, err := s.tokens.GetToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrTokenInvalid
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	if err := s.tokens.RevokeToken(ctx, refreshToken); err != nil {
		return nil, err
	}
	resp, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	return &resp.Token, nil
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	err := s.tokens.RevokeToken(ctx, refreshToken)
	if errors.Is(err, apperrors.ErrTokenNotFound) {
		return nil
	}
	return err
}

// resolve finds the account an OTP request refers to.
func (s *AuthService) resolve(ctx context.Context, addr, username string) (*models.User, error) {
	if addr != "" {
		return s.users.GetByEmail(ctx, normalizeEmail(addr))
	}
	return s.users.GetByIdentifier(ctx, strings.TrimSpace(username))
}

func (s *AuthService) sendCode(ctx context.Context, user *models.User, otpType models.OTPType, meta RequestMeta) (*dto.OTPSentResponse, error) {
	err := s.otp.Request(ctx, OTPRequest{
		Email:     user.Email,
		Name:      user.DisplayName(),
		UserID:    &user.ID,
		Type:      otpType,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	return &dto.OTPSentResponse{
		Message:   "Verification code sent",
		Email:     MaskEmail(user.Email),
		ExpiresIn: int(s.otp.ExpiresIn().Seconds()),
	}, nil
}

// RequestLoginOTP sends a passwordless login code.
func (s *AuthService) RequestLoginOTP(ctx context.Context, req *dto.OTPRequest, meta RequestMeta) (*dto.OTPSentResponse, error) {
	user, err := s.resolve(ctx, req.Email, req.Username)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}
	return s.sendCode(ctx, user, models.OTPLogin, meta)
}

// VerifyLoginOTP exchanges a login code for tokens.
func (s *AuthService) VerifyLoginOTP(ctx context.Context, req *dto.OTPVerifyRequest) (*dto.AuthResponse, error) {
	user, err := s.resolve(ctx, req.Email, req.Username)
	if err != nil {
		return nil, err
	}
	if _, err := s.otp.Verify(ctx, user.Email, models.OTPLogin, req.Code); err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	// a delivered login code proves ownership of the address
	if !user.EmailVerified {
		if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
			return nil, err
		}
		user.EmailVerified = true
	}
	return s.issue(ctx, user)
}

// RequestEmailVerification sends an email verification code.
func (s *AuthService) RequestEmailVerification(ctx context.Context, req *dto.OTPRequest, meta RequestMeta) (*dto.OTPSentResponse, error) {
	user, err := s.resolve(ctx, req.Email, req.Username)
	if err != nil {
		return nil, err
	}
	if user.EmailVerified {
		return nil, apperrors.ErrEmailAlreadyVerified
	}
	return s.sendCode(ctx, user, models.OTPEmailVerification, meta)
}

// VerifyEmail confirms the email address with a code.
func (s *AuthService) VerifyEmail(ctx context.Context, req *dto.OTPVerifyRequest) (*dto.UserResponse, error) {
	user, err := s.resolve(ctx, req.Email, req.Username)
	if err != nil {
		return nil, err
	}
	if user.EmailVerified {
		return nil, apperrors.ErrEmailAlreadyVerified
	}
	if _, err := s.otp.Verify(ctx, user.Email, models.OTPEmailVerification, req.Code); err != nil {
		return nil, err
	}
	if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
		return nil, err
	}
	user.EmailVerified = true
	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// RequestPasswordReset sends a reset code. Unknown addresses get the same answer so
// accounts cannot be enumerated.
func (s *AuthService) RequestPasswordReset(ctx context.Context, req *dto.OTPRequest, meta RequestMeta) (*dto.OTPSentResponse, error) {
	user, err := s.resolve(ctx, req.Email, req.Username)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		s.logger.Info().Str("email", req.Email).Msg("Password reset requested for unknown account")
		return &dto.OTPSentResponse{
			Message:   "If the account exists, a reset code has been sent",
			Email:     MaskEmail(req.Email),
			ExpiresIn: int(s.otp.ExpiresIn().Seconds()),
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.sendCode(ctx, user, models.OTPPasswordReset, meta)
}

// VerifyResetOTP exchanges a reset code for a short lived reset token.
func (s *AuthService) VerifyResetOTP(ctx context.Context, req *dto.OTPVerifyRequest) (*dto.ResetTokenResponse, error) {
	user, err := s.resolve(ctx, req.Email, req.Username)
	if err != nil {
		return nil, err
	}
	if _, err := s.otp.Verify(ctx, user.Email, models.OTPPasswordReset, req.Code); err != nil {
		return nil, err
	}

	token, err := s.jwtService.GenerateResetToken(auth.Subject{UserID: user.ID, Email: user.Email, Role: string(user.Role)})
	if err != nil {
		return nil, fmt.Errorf("failed to generate reset token: %w", err)
	}
	return &dto.ResetTokenResponse{
		ResetToken: token,
		ExpiresIn:  int(s.jwtService.ResetTokenTTL().Seconds()),
	}, nil
}

// ResetPassword sets a new password and signs the user out everywhere.
func (s *AuthService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	claims, err := s.jwtService.ValidateResetToken(req.ResetToken)
	if err != nil {
		return apperrors.ErrInvalidPasswordResetToken
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, claims.UserID, hash); err != nil {
		return err
	}
	if err := s.tokens.RevokeAllUserTokens(ctx, claims.UserID); err != nil {
		return err
	}
	s.logger.Info().Str("userID", claims.UserID).Msg("Password reset")
	return nil
}

// ChangePassword replaces the password of an authenticated user.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.Password, req.CurrentPassword) {
		return apperrors.ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

// OTPStatus reports on the latest code of an address.
func (s *AuthService) OTPStatus(ctx context.Context, req *dto.OTPStatusRequest) (*models.OTPStatusView, error) {
	return s.otp.Status(ctx, req.Email, req.Type)
}

// MaskEmail hides most of the local part: "ada@uni.edu" becomes "a***@uni.edu".
func MaskEmail(addr string) string {
	local, domain, ok := strings.Cut(addr, "@")
	if !ok || local == "" {
		return "***"
	}
	return local[:1] + "***@" + domain
}

// cleanList sanitizes every entry, dropping empty ones and duplicates.
func cleanList(in []string, maxLen int) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = sanitize.Text(v, maxLen)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
