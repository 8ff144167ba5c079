// Package controllers handles HTTP request handling
package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/campuswell/internal/app/models"
	"github.com/yigit/campuswell/internal/app/models/dto"
	"github.com/yigit/campuswell/internal/app/services"
	"github.com/yigit/campuswell/internal/middleware"
	"github.com/yigit/campuswell/internal/security/ratelimit"
)

// AuthUseCases is the account lifecycle the auth routes expose.
type AuthUseCases interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	RegisterEnhanced(ctx context.Context, req *dto.EnhancedRegisterRequest, meta services.RequestMeta) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	RequestLoginOTP(ctx context.Context, req *dto.OTPRequest, meta services.RequestMeta) (*dto.OTPSentResponse, error)
	VerifyLoginOTP(ctx context.Context, req *dto.OTPVerifyRequest) (*dto.AuthResponse, error)
	RequestEmailVerification(ctx context.Context, req *dto.OTPRequest, meta services.RequestMeta) (*dto.OTPSentResponse, error)
	VerifyEmail(ctx context.Context, req *dto.OTPVerifyRequest) (*dto.UserResponse, error)
	RequestPasswordReset(ctx context.Context, req *dto.OTPRequest, meta services.RequestMeta) (*dto.OTPSentResponse, error)
	VerifyResetOTP(ctx context.Context, req *dto.OTPVerifyRequest) (*dto.ResetTokenResponse, error)
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error
	ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error
	OTPStatus(ctx context.Context, req *dto.OTPStatusRequest) (*models.OTPStatusView, error)
}

// AuthController handles authentication related operations
type AuthController struct {
	authService AuthUseCases
	security    *middleware.SecurityMiddleware
	logger      zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(authService AuthUseCases, security *middleware.SecurityMiddleware, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		security:    security,
		logger:      logger,
	}
}

func requestMeta(ctx *gin.Context) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: ctx.ClientIP(),
		UserAgent: ctx.Request.UserAgent(),
	}
}

// Register handles basic user registration
// @Summary Register a new user
// @Description Creates an account from email, username and password and signs the user in.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration form"
// @Success 201 {object} dto.APIResponse{data=dto.AuthResponse}
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Failure 409 {object} dto.ErrorResponse "Email or username already exists"
// @Failure 429 {object} dto.ErrorResponse "Too many attempts"
// @Router /auth/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.authService.Register(ctx.Request.Context(), &req)
	if err != nil {
		c.logger.Warn().Err(err).Str("email", req.Email).Msg("Registration failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Str("userID", resp.User.ID).Msg("User registered")
	ctx.JSON(http.StatusCreated, dto.NewMessageResponse("Registration successful", resp))
}

// RegisterEnhanced handles the multi step registration wizard
// @Summary Register with profile and academic details
// @Description Creates an account with profile, interests and academic info, then emails a verification code.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.EnhancedRegisterRequest true "Registration wizard"
// @Success 201 {object} dto.APIResponse{data=dto.AuthResponse}
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Failure 403 {object} dto.ErrorResponse "Invalid CSRF token"
// @Failure 409 {object} dto.ErrorResponse "Email or username already exists"
// @Router /auth/register/enhanced [post]
func (c *AuthController) RegisterEnhanced(ctx *gin.Context) {
	var req dto.EnhancedRegisterRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.authService.RegisterEnhanced(ctx.Request.Context(), &req, requestMeta(ctx))
	if err != nil {
		c.logger.Warn().Err(err).Str("email", req.Email).Msg("Enhanced registration failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewMessageResponse("Registration successful, check your email for a verification code", resp))
}

// Login handles user login
// @Summary User login
// @Description Authenticates with an email or username and a password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse}
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Failure 403 {object} dto.ErrorResponse "Account disabled"
// @Failure 429 {object} dto.ErrorResponse "Too many attempts"
// @Router /auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.authService.Login(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.security.ResetLimit(ctx, ratelimit.ActionLogin)
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// RefreshToken rotates a refresh token
// @Summary Refresh access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.TokenResponse}
// @Failure 401 {object} dto.ErrorResponse "Invalid, expired or revoked token"
// @Router /auth/refresh [post]
func (c *AuthController) RefreshToken(ctx *gin.Context) {
	var req dto.RefreshTokenRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	token, err := c.authService.RefreshToken(ctx.Request.Context(), req.RefreshToken)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(token))
}

// Logout revokes a refresh token
// @Summary Logout
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse
// @Router /auth/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	var req dto.RefreshTokenRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	if err := c.authService.Logout(ctx.Request.Context(), req.RefreshToken); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Logged out successfully", nil))
}

// RequestLoginOTP emails a one time login code
// @Summary Request a login code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.OTPRequest true "Account"
// @Success 200 {object} dto.APIResponse{data=dto.OTPSentResponse}
// @Failure 404 {object} dto.ErrorResponse "Unknown account"
// @Failure 429 {object} dto.ErrorResponse "Cooldown or request limit"
// @Router /auth/otp/request-login [post]
func (c *AuthController) RequestLoginOTP(ctx *gin.Context) {
	var req dto.OTPRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.authService.RequestLoginOTP(ctx.Request.Context(), &req, requestMeta(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// VerifyLoginOTP signs the user in with a one time code
// @Summary Verify a login code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.OTPVerifyRequest true "Code"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid, expired or exhausted code"
// @Router /auth/otp/verify-login [post]
func (c *AuthController) VerifyLoginOTP(ctx *gin.Context) {
	var req dto.OTPVerifyRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.authService.VerifyLoginOTP(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.security.ResetLimit(ctx, ratelimit.ActionLogin)
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// RequestEmailVerification emails a verification code
// @Summary Request an email verification code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.OTPRequest true "Account"
// @Success 200 {object} dto.APIResponse{data=dto.OTPSentResponse}
// @Failure 409 {object} dto.ErrorResponse "Email already verified"
// @Router /auth/otp/request-email-verification [post]
func (c *AuthController) RequestEmailVerification(ctx *gin.Context) {
	var req dto.OTPRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.authService.RequestEmailVerification(ctx.Request.Context(), &req, requestMeta(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// VerifyEmail confirms an email address with a code
// @Summary Verify email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.OTPVerifyRequest true "Code"
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse}
// @Router /auth/otp/verify-email [post]
func (c *AuthController) VerifyEmail(ctx *gin.Context) {
	var req dto.OTPVerifyRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	user, err := c.authService.VerifyEmail(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Email verified successfully", user))
}

// OTPStatus reports the state of the latest code for an email
// @Summary OTP status
// @Tags auth
// @Produce json
// @Param email query string true "Email"
// @Param type query string true "OTP type"
// @Success 200 {object} dto.APIResponse{data=models.OTPStatusView}
// @Router /auth/otp/status [get]
func (c *AuthController) OTPStatus(ctx *gin.Context) {
	var req dto.OTPStatusRequest
	if !middleware.BindQuery(ctx, &req) {
		return
	}

	status, err := c.authService.OTPStatus(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(status))
}

// RequestPasswordReset emails a reset code. Unknown accounts get the same answer.
// @Summary Request a password reset code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.OTPRequest true "Account"
// @Success 200 {object} dto.APIResponse{data=dto.OTPSentResponse}
// @Router /auth/password/request-reset [post]
func (c *AuthController) RequestPasswordReset(ctx *gin.Context) {
	var req dto.OTPRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.authService.RequestPasswordReset(ctx.Request.Context(), &req, requestMeta(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// VerifyResetOTP exchanges a reset code for a short lived reset token
// @Summary Verify a password reset code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.OTPVerifyRequest true "Code"
// @Success 200 {object} dto.APIResponse{data=dto.ResetTokenResponse}
// @Router /auth/password/verify-reset-otp [post]
func (c *AuthController) VerifyResetOTP(ctx *gin.Context) {
	var req dto.OTPVerifyRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	token, err := c.authService.VerifyResetOTP(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(token))
}

// ResetPassword sets a new password
// @Summary Reset password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.ResetPasswordRequest true "Reset token and new password"
// @Success 200 {object} dto.APIResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid or expired reset token"
// @Router /auth/password/reset [post]
func (c *AuthController) ResetPassword(ctx *gin.Context) {
	var req dto.ResetPasswordRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	if err := c.authService.ResetPassword(ctx.Request.Context(), &req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Password reset successfully, please sign in again", nil))
}

// ChangePassword changes the password of the signed in user
// @Summary Change password
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} dto.APIResponse
// @Router /auth/change-password [post]
func (c *AuthController) ChangePassword(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)

	var req dto.ChangePasswordRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	if err := c.authService.ChangePassword(ctx.Request.Context(), userID, &req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Password changed successfully", nil))
}
