package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/campuswell/internal/app/models"
	"github.com/yigit/campuswell/internal/app/models/dto"
	"github.com/yigit/campuswell/internal/community"
	"github.com/yigit/campuswell/internal/pkg/apperrors"
	"github.com/yigit/campuswell/internal/pkg/auth"
)

type authFixture struct {
	svc     *AuthService
	users   *fakeUsers
	tokens  *fakeTokens
	mailer  *fakeMailer
	board   *community.Store
	clock   *fakeClock
	jwt     *auth.JWTService
	otpRepo *fakeOTPs
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users:   newFakeUsers(),
		tokens:  newFakeTokens(),
		mailer:  &fakeMailer{},
		clock:   newFakeClock(),
		otpRepo: &fakeOTPs{},
	}
	f.board = community.NewStore(nil, zerolog.Nop())
	f.jwt = auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  15 * time.Minute,
		RefreshTokenExp: 7 * 24 * time.Hour,
		TokenIssuer:     "campuswell-test",
	})
	otp := NewOTPService(f.otpRepo, f.mailer, DefaultOTPConfig(), zerolog.Nop())
	otp.now = f.clock.Now
	f.svc = NewAuthService(f.users, f.tokens, otp, f.jwt, f.board, f.mailer, zerolog.Nop())
	f.svc.now = f.clock.Now
	return f
}

func (f *authFixture) register(t *testing.T) *dto.AuthResponse {
	t.Helper()
	resp, err := f.svc.Register(context.Background(), &dto.RegisterRequest{
		Email:    "Ada@Uni.edu",
		Username: "ada_l",
		Password: "S3cure!pass",
		FullName: "Ada <b>Lovelace</b>",
	})
	require.NoError(t, err)
	return resp
}

func TestRegisterCreatesAccountAndTokens(t *testing.T) {
	f := newAuthFixture(t)
	resp := f.register(t)

	assert.Equal(t, "ada@uni.edu", resp.User.Email)
	require.NotNil(t, resp.User.FullName)
	assert.Equal(t, "Ada Lovelace", *resp.User.FullName)
	assert.Equal(t, "Bearer", resp.Token.TokenType)
	assert.NotEmpty(t, resp.Token.AccessToken)
	assert.Equal(t, 1, f.tokens.active(resp.User.ID))
	assert.Equal(t, []string{"ada@uni.edu"}, f.mailer.welcomes)

	claims, err := f.jwt.ValidateAndExtractClaims(resp.Token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, string(models.RoleUser), claims.Role)

	assert.Equal(t, "Ada Lovelace", f.board.AuthorInfo(resp.User.ID, false).Name, "mirrored into the community")
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, &dto.RegisterRequest{Email: "ada@uni.edu", Username: "other", Password: "S3cure!pass"})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)

	_, err = f.svc.Register(ctx, &dto.RegisterRequest{Email: "new@uni.edu", Username: "ada_l", Password: "S3cure!pass"})
	assert.ErrorIs(t, err, apperrors.ErrUsernameAlreadyExists)
}

func TestRegisterEnhancedSendsVerificationCode(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.RegisterEnhanced(ctx, &dto.EnhancedRegisterRequest{
		Email: "ada@uni.edu", Username: "ada_l", Password: "S3cure!pass",
	}, RequestMeta{})
	require.Error(t, err, "terms must be accepted")

	resp, err := f.svc.RegisterEnhanced(ctx, &dto.EnhancedRegisterRequest{
		Email:       "ada@uni.edu",
		Username:    "ada_l",
		Password:    "S3cure!pass",
		Interests:   []string{"yoga", "yoga", " "},
		AcceptTerms: true,
	}, RequestMeta{IPAddress: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	assert.True(t, resp.RequiresVerification)
	require.Len(t, f.mailer.otps, 1)
	assert.Equal(t, models.OTPEmailVerification, f.mailer.otps[0].Type)

	user := f.users.byID[resp.User.ID]
	assert.Equal(t, []string{"yoga"}, user.Interests)

	verified, err := f.svc.VerifyEmail(ctx, &dto.OTPVerifyRequest{Email: "ada@uni.edu", Code: f.mailer.lastCode()})
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)

	_, err = f.svc.RequestEmailVerification(ctx, &dto.OTPRequest{Email: "ada@uni.edu"}, RequestMeta{})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyVerified)
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t)
	ctx := context.Background()

	resp, err := f.svc.Login(ctx, &dto.LoginRequest{Identifier: "ada_l", Password: "S3cure!pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token.RefreshToken)

	_, err = f.svc.Login(ctx, &dto.LoginRequest{Identifier: "ada@uni.edu", Password: "S3cure!pass"})
	assert.NoError(t, err)

	_, err = f.svc.Login(ctx, &dto.LoginRequest{Identifier: "ada_l", Password: "wrong"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, &dto.LoginRequest{Identifier: "nobody", Password: "S3cure!pass"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials, "unknown accounts look like wrong passwords")

	f.users.byID[resp.User.ID].IsActive = false
	_, err = f.svc.Login(ctx, &dto.LoginRequest{Identifier: "ada_l", Password: "S3cure!pass"})
	assert.ErrorIs(t, err, apperrors.ErrAccountDisabled)
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t)
	ctx := context.Background()

	next, err := f.svc.RefreshToken(ctx, reg.Token.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, reg.Token.RefreshToken, next.RefreshToken)

	_, err = f.svc.RefreshToken(ctx, reg.Token.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked)

	require.NoError(t, f.svc.Logout(ctx, next.RefreshToken))
	assert.NoError(t, f.svc.Logout(ctx, "unknown"))
	assert.Zero(t, f.tokens.active(reg.User.ID))
}

func TestLoginWithOTPVerifiesEmail(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t)
	ctx := context.Background()

	sent, err := f.svc.RequestLoginOTP(ctx, &dto.OTPRequest{Username: "ada_l"}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "a***@uni.edu", sent.Email)
	assert.Equal(t, 600, sent.ExpiresIn)

	resp, err := f.svc.VerifyLoginOTP(ctx, &dto.OTPVerifyRequest{Username: "ada_l", Code: f.mailer.lastCode()})
	require.NoError(t, err)
	assert.True(t, resp.User.EmailVerified)
	assert.True(t, f.users.byID[reg.User.ID].EmailVerified)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t)
	ctx := context.Background()

	unknown, err := f.svc.RequestPasswordReset(ctx, &dto.OTPRequest{Email: "ghost@uni.edu"}, RequestMeta{})
	require.NoError(t, err)
	assert.Contains(t, unknown.Message, "If the account exists")
	assert.Empty(t, f.mailer.otps)

	_, err = f.svc.RequestPasswordReset(ctx, &dto.OTPRequest{Email: "ada@uni.edu"}, RequestMeta{})
	require.NoError(t, err)

	token, err := f.svc.VerifyResetOTP(ctx, &dto.OTPVerifyRequest{Email: "ada@uni.edu", Code: f.mailer.lastCode()})
	require.NoError(t, err)
	assert.Equal(t, 900, token.ExpiresIn)

	err = f.svc.ResetPassword(ctx, &dto.ResetPasswordRequest{ResetToken: reg.Token.AccessToken, NewPassword: "N3w!passw0rd"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidPasswordResetToken, "access tokens cannot reset passwords")

	require.NoError(t, f.svc.ResetPassword(ctx, &dto.ResetPasswordRequest{ResetToken: token.ResetToken, NewPassword: "N3w!passw0rd"}))
	assert.Zero(t, f.tokens.active(reg.User.ID), "all sessions are revoked")

	_, err = f.svc.Login(ctx, &dto.LoginRequest{Identifier: "ada_l", Password: "N3w!passw0rd"})
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t)
	ctx := context.Background()

	err := f.svc.ChangePassword(ctx, reg.User.ID, &dto.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "N3w!passw0rd"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	require.NoError(t, f.svc.ChangePassword(ctx, reg.User.ID, &dto.ChangePasswordRequest{CurrentPassword: "S3cure!pass", NewPassword: "N3w!passw0rd"}))
	_, err = f.svc.Login(ctx, &dto.LoginRequest{Identifier: "ada_l", Password: "N3w!passw0rd"})
	assert.NoError(t, err)
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a***@uni.edu", MaskEmail("ada@uni.edu"))
	assert.Equal(t, "***", MaskEmail("not-an-email"))
}
