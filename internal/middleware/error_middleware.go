package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yigit/campuswell/internal/app/models/dto"
	"github.com/yigit/campuswell/internal/pkg/apperrors"
	"github.com/yigit/campuswell/internal/pkg/logger"
)

// errorDetailFor picks the message of a CustomError when one is in the chain.
func errorDetailFor(err error, code dto.ErrorCode, fallback string) *dto.ErrorDetail {
	var custom *apperrors.CustomError
	if errors.As(err, &custom) && custom.Message != "" {
		detail := dto.NewErrorDetail(code, custom.Message)
		if field, ok := custom.Details["field"].(string); ok {
			detail.WithField(field)
		}
		return detail
	}
	return dto.NewErrorDetail(code, fallback)
}

func abortWith(c *gin.Context, status int, detail *dto.ErrorDetail) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(detail))
}

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	var rateErr *apperrors.RateLimitError
	var otpErr *apperrors.OTPError

	switch {
	case errors.As(err, &rateErr):
		retryAfter := rateErr.RetryAfter(time.Now())
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		abortWith(c, http.StatusTooManyRequests, dto.NewErrorDetail(dto.ErrorCodeRateLimited, rateErr.Error()).
			WithSeverity(dto.ErrorSeverityWarning).
			WithDetails(gin.H{
				"action":     rateErr.Action,
				"retryAfter": retryAfter,
				"resetTime":  rateErr.ResetTime,
				"blocked":    rateErr.Blocked,
			}))
	case errors.Is(err, apperrors.ErrRateLimited), errors.Is(err, apperrors.ErrOTPCooldown):
		abortWith(c, http.StatusTooManyRequests, dto.NewErrorDetail(dto.ErrorCodeRateLimited, err.Error()).
			WithSeverity(dto.ErrorSeverityWarning))
	case errors.Is(err, apperrors.ErrCSRFRejected):
		abortWith(c, http.StatusForbidden, dto.NewErrorDetail(dto.ErrorCodeCSRFRejected, "Invalid or missing CSRF token"))

	case errors.As(err, &otpErr) && errors.Is(err, apperrors.ErrOTPInvalid):
		abortWith(c, http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeOTPInvalid, otpErr.Error()).
			WithDetails(gin.H{"attemptsRemaining": otpErr.AttemptsRemaining}))
	case errors.Is(err, apperrors.ErrOTPInvalid):
		abortWith(c, http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeOTPInvalid, "Invalid OTP"))
	case errors.Is(err, apperrors.ErrOTPNotFound):
		abortWith(c, http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeOTPNotFound, apperrors.ErrOTPNotFound.Error()))
	case errors.Is(err, apperrors.ErrOTPExpired):
		abortWith(c, http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeOTPExpired, apperrors.ErrOTPExpired.Error()))
	case errors.Is(err, apperrors.ErrOTPAttemptsExceeded):
		abortWith(c, http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeOTPAttemptsExceeded, apperrors.ErrOTPAttemptsExceeded.Error()).
			WithDetails(gin.H{"attemptsRemaining": 0}))
	case errors.Is(err, apperrors.ErrOTPDeliveryFailed):
		logger.Error().Err(err).Msg("OTP delivery failed")
		abortWith(c, http.StatusServiceUnavailable, dto.NewErrorDetail(dto.ErrorCodeExternalServiceError, "Failed to send verification code"))
	case errors.Is(err, apperrors.ErrInvalidPasswordResetToken):
		abortWith(c, http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeInvalidToken, apperrors.ErrInvalidPasswordResetToken.Error()))

	case errors.Is(err, apperrors.ErrUserNotFound):
		abortWith(c, http.StatusNotFound, errorDetailFor(err, dto.ErrorCodeResourceNotFound, "User not found"))
	case errors.Is(err, apperrors.ErrPostNotFound):
		abortWith(c, http.StatusNotFound, errorDetailFor(err, dto.ErrorCodeResourceNotFound, "Post not found"))
	case errors.Is(err, apperrors.ErrReplyNotFound):
		abortWith(c, http.StatusNotFound, errorDetailFor(err, dto.ErrorCodeResourceNotFound, "Reply not found"))
	case errors.Is(err, apperrors.ErrReportNotFound):
		abortWith(c, http.StatusNotFound, errorDetailFor(err, dto.ErrorCodeResourceNotFound, "Report not found"))
	case errors.Is(err, apperrors.ErrGoalNotFound):
		abortWith(c, http.StatusNotFound, errorDetailFor(err, dto.ErrorCodeResourceNotFound, "Goal not found"))
	case errors.Is(err, apperrors.ErrResourceNotFound):
		abortWith(c, http.StatusNotFound, errorDetailFor(err, dto.ErrorCodeResourceNotFound, "Resource not found"))

	case errors.Is(err, apperrors.ErrAccountDisabled):
		abortWith(c, http.StatusForbidden, dto.NewErrorDetail(dto.ErrorCodeAccountDisabled, "Account is disabled"))
	case errors.Is(err, apperrors.ErrEmailNotVerified):
		abortWith(c, http.StatusForbidden, dto.NewErrorDetail(dto.ErrorCodeEmailNotVerified, "Email not verified"))
	case errors.Is(err, apperrors.ErrPermissionDenied):
		abortWith(c, http.StatusForbidden, errorDetailFor(err, dto.ErrorCodeForbidden, "Permission denied"))

	case errors.Is(err, apperrors.ErrInvalidCredentials):
		abortWith(c, http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeInvalidCredentials, "Invalid credentials"))
	case errors.Is(err, apperrors.ErrTokenExpired):
		abortWith(c, http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeExpiredToken, "Token expired"))
	case errors.Is(err, apperrors.ErrTokenInvalid):
		abortWith(c, http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Invalid token"))
	case errors.Is(err, apperrors.ErrTokenNotFound):
		abortWith(c, http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeTokenNotFound, "Token not found"))
	case errors.Is(err, apperrors.ErrTokenRevoked):
		abortWith(c, http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Token revoked"))

	case errors.Is(err, apperrors.ErrValidationFailed):
		abortWith(c, http.StatusBadRequest, errorDetailFor(err, dto.ErrorCodeValidationFailed, "Validation failed"))
	case errors.Is(err, apperrors.ErrBadRequest):
		abortWith(c, http.StatusBadRequest, errorDetailFor(err, dto.ErrorCodeBadRequest, "Bad request"))

	case errors.Is(err, apperrors.ErrEmailAlreadyExists):
		abortWith(c, http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeResourceAlreadyExists, "Email already exists").WithField("email"))
	case errors.Is(err, apperrors.ErrUsernameAlreadyExists):
		abortWith(c, http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeResourceAlreadyExists, "Username already exists").WithField("username"))
	case errors.Is(err, apperrors.ErrEmailAlreadyVerified):
		abortWith(c, http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeConflict, "Email already verified"))
	case errors.Is(err, apperrors.ErrResourceAlreadyExists):
		abortWith(c, http.StatusConflict, errorDetailFor(err, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"))
	case errors.Is(err, apperrors.ErrConflict):
		abortWith(c, http.StatusConflict, errorDetailFor(err, dto.ErrorCodeConflict, "Conflict"))

	default:
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled error")
		abortWith(c, http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").
			WithSeverity(dto.ErrorSeverityCritical))
	}
}

// Recovery turns panics into a 500 envelope and logs the stack value.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error().
			Interface("panic", recovered).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("Recovered from panic")
		abortWith(c, http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").
			WithSeverity(dto.ErrorSeverityCritical))
	})
}

// NotFound answers unknown routes with the error envelope.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		abortWith(c, http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Route not found").
			WithDetails(c.Request.Method+" "+c.Request.URL.Path))
	}
}
