package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/campuswell/internal/app/models/dto"
	"github.com/yigit/campuswell/internal/middleware"
	"github.com/yigit/campuswell/internal/security/csrf"
	"github.com/yigit/campuswell/internal/security/ratelimit"
)

// SecurityController issues CSRF tokens and reports rate limit state to clients.
type SecurityController struct {
	csrf     *csrf.Manager
	security *middleware.SecurityMiddleware
	logger   zerolog.Logger
}

// NewSecurityController creates a new SecurityController
func NewSecurityController(csrfManager *csrf.Manager, security *middleware.SecurityMiddleware, logger zerolog.Logger) *SecurityController {
	return &SecurityController{
		csrf:     csrfManager,
		security: security,
		logger:   logger,
	}
}

type csrfTokenQuery struct {
	FormID string `form:"formId" binding:"required,max=64"`
}

type rateLimitStatusQuery struct {
	Action     string `form:"action" binding:"required,oneof=login register emailVerification passwordReset otpRequest formSubmission"`
	Identifier string `form:"identifier" binding:"omitempty,max=254"`
}

// CSRFToken issues a token for a form together with the headers to send it in.
// The token is bound to the caller's CSRF client cookie
// @Summary Issue a CSRF token
// @Tags security
// @Produce json
// @Param formId query string true "Form id"
// @Success 200 {object} dto.APIResponse
// @Router /security/csrf-token [get]
func (c *SecurityController) CSRFToken(ctx *gin.Context) {
	var q csrfTokenQuery
	if !middleware.BindQuery(ctx, &q) {
		return
	}

	headers, err := c.csrf.SecurityHeaders(c.security.CSRFClientID(ctx), q.FormID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
		"formId":  q.FormID,
		"token":   headers[csrf.HeaderToken],
		"headers": headers,
	}))
}

// RateLimitStatus reports the caller's standing for an action without consuming an attempt.
func (c *SecurityController) RateLimitStatus(ctx *gin.Context) {
	var q rateLimitStatusQuery
	if !middleware.BindQuery(ctx, &q) {
		return
	}

	res, err := c.security.LimitStatus(ctx, ratelimit.Action(q.Action), q.Identifier)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(res))
}
