package models

import "time"

// OTPType is the purpose a one time code was issued for.
type OTPType string

const (
	OTPEmailVerification OTPType = "EMAIL_VERIFICATION"
	OTPLogin             OTPType = "LOGIN"
	OTPPasswordReset     OTPType = "PASSWORD_RESET"
	OTPPasswordLogin     OTPType = "PASSWORD_LOGIN"
	OTPRegistration      OTPType = "REGISTRATION"
)

// OTPStatus is the lifecycle state of a code.
type OTPStatus string

const (
	OTPPending  OTPStatus = "PENDING"
	OTPVerified OTPStatus = "VERIFIED"
	OTPExpired  OTPStatus = "EXPIRED"
	OTPFailed   OTPStatus = "FAILED"
)

// OTPCode is a row of the otp_codes table. Code holds the bcrypt hash.
type OTPCode struct {
	ID          string     `db:"id"`
	Email       string     `db:"email"`
	UserID      *string    `db:"user_id"`
	Code        string     `db:"code"`
	Type        OTPType    `db:"type"`
	Status      OTPStatus  `db:"status"`
	Attempts    int        `db:"attempts"`
	MaxAttempts int        `db:"max_attempts"`
	ExpiresAt   time.Time  `db:"expires_at"`
	VerifiedAt  *time.Time `db:"verified_at"`
	IPAddress   *string    `db:"ip_address"`
	UserAgent   *string    `db:"user_agent"`
	CreatedAt   time.Time  `db:"created_at"`
}

// OTPStatusView is what clients see about their latest code.
type OTPStatusView struct {
	Exists            bool       `json:"exists"`
	Status            OTPStatus  `json:"status,omitempty"`
	AttemptsRemaining int        `json:"attemptsRemaining"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
}
