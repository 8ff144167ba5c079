package apperrors

import (
	"errors"
	"fmt"
	"time"
)

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrAccountDisabled    = errors.New("account is disabled")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")
)

// User errors
var (
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailAlreadyExists    = errors.New("email already exists")
	ErrUsernameAlreadyExists = errors.New("username already exists")
	ErrEmailNotVerified      = errors.New("email not verified")
	ErrEmailAlreadyVerified  = errors.New("email already verified")
)

// OTP errors
var (
	ErrOTPNotFound         = errors.New("no valid OTP found, please request a new one")
	ErrOTPExpired          = errors.New("OTP has expired, please request a new one")
	ErrOTPInvalid          = errors.New("invalid OTP")
	ErrOTPAttemptsExceeded = errors.New("maximum verification attempts exceeded, please request a new OTP")
	ErrOTPCooldown         = errors.New("please wait before requesting a new OTP")
	ErrOTPDeliveryFailed   = errors.New("failed to deliver OTP")

	ErrInvalidPasswordResetToken = errors.New("invalid or expired password reset token")
)

// Community errors
var (
	ErrPostNotFound   = errors.New("post not found")
	ErrReplyNotFound  = errors.New("reply not found")
	ErrReportNotFound = errors.New("report not found")
	ErrGoalNotFound   = errors.New("goal not found")
)

// Security errors
var (
	ErrRateLimited  = errors.New("too many attempts")
	ErrCSRFRejected = errors.New("invalid or missing CSRF token")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// NewValidationError wraps ErrValidationFailed with a field level message.
func NewValidationError(field, message string) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
		Details: map[string]interface{}{"field": field},
	}
}

// RateLimitError reports a rejected attempt together with the moment it may be retried.
type RateLimitError struct {
	Action    string
	ResetTime time.Time
	Blocked   bool
}

func (e *RateLimitError) Error() string {
	if e.Blocked {
		return fmt.Sprintf("%s temporarily blocked until %s", e.Action, e.ResetTime.Format(time.RFC3339))
	}
	return fmt.Sprintf("too many %s attempts, retry after %s", e.Action, e.ResetTime.Format(time.RFC3339))
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// RetryAfter returns the wait in whole seconds, never below one.
func (e *RateLimitError) RetryAfter(now time.Time) int {
	secs := int(e.ResetTime.Sub(now).Seconds())
	if secs < 1 {
		return 1
	}
	return secs
}

// OTPError carries the attempts a caller has left for the current code.
type OTPError struct {
	Err               error
	AttemptsRemaining int
}

func (e *OTPError) Error() string {
	if errors.Is(e.Err, ErrOTPInvalid) && e.AttemptsRemaining > 0 {
		return fmt.Sprintf("invalid OTP, %d attempts remaining", e.AttemptsRemaining)
	}
	return e.Err.Error()
}

func (e *OTPError) Unwrap() error {
	return e.Err
}

// Is reports whether err matches target or any of errList.
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Code    string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}
