package controllers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/yigit/campuswell/internal/app/models/dto"
	"github.com/yigit/campuswell/internal/middleware"
	"github.com/yigit/campuswell/internal/pkg/apperrors"
	"github.com/yigit/campuswell/internal/security/csrf"
	"github.com/yigit/campuswell/internal/security/ratelimit"
)

const goodCode = "424242"

// codeAuth accepts goodCode for both password and code based sign in.
type codeAuth struct {
	AuthUseCases
}

func (codeAuth) Login(_ context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	if req.Password != goodCode {
		return nil, apperrors.ErrInvalidCredentials
	}
	return &dto.AuthResponse{}, nil
}

func (codeAuth) VerifyLoginOTP(_ context.Context, req *dto.OTPVerifyRequest) (*dto.AuthResponse, error) {
	if req.Code != goodCode {
		return nil, &apperrors.OTPError{Err: apperrors.ErrOTPInvalid, AttemptsRemaining: 1}
	}
	return &dto.AuthResponse{}, nil
}

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	limiter := ratelimit.New(ratelimit.NewMemoryStore(),
		ratelimit.WithConfig(ratelimit.ActionLogin, ratelimit.Config{MaxAttempts: 2, Window: time.Minute}))
	sec := middleware.NewSecurityMiddleware(limiter, nil, csrf.NewManager(time.Minute), false, zerolog.Nop())
	ctrl := NewAuthController(codeAuth{}, sec, zerolog.Nop())

	r := gin.New()
	r.POST("/auth/login", sec.Limit(ratelimit.ActionLogin), ctrl.Login)
	r.POST("/auth/otp/verify-login", sec.Limit(ratelimit.ActionLogin), ctrl.VerifyLoginOTP)
	return r
}

func TestLoginOTPSuccessResetsLoginLimit(t *testing.T) {
	r := newAuthRouter(t)
	verify := func(code string) int {
		status, _ := call(t, r, http.MethodPost, "/auth/otp/verify-login", "",
			map[string]string{"email": "ada@uni.edu", "code": code})
		return status
	}

	assert.Equal(t, http.StatusBadRequest, verify("000000"))
	assert.Equal(t, http.StatusOK, verify(goodCode))
	assert.Equal(t, http.StatusBadRequest, verify("000000"), "the bucket starts over after a successful sign in")
	assert.Equal(t, http.StatusBadRequest, verify("000000"))
	assert.Equal(t, http.StatusTooManyRequests, verify("000000"))
}

func TestPasswordLoginSuccessResetsLoginLimit(t *testing.T) {
	r := newAuthRouter(t)
	login := func(password string) int {
		status, _ := call(t, r, http.MethodPost, "/auth/login", "",
			map[string]string{"identifier": "ada@uni.edu", "password": password})
		return status
	}

	assert.Equal(t, http.StatusUnauthorized, login("wrong"))
	assert.Equal(t, http.StatusOK, login(goodCode))
	assert.Equal(t, http.StatusUnauthorized, login("wrong"))
	assert.Equal(t, http.StatusUnauthorized, login("wrong"))
	assert.Equal(t, http.StatusTooManyRequests, login("wrong"))
}
