package dto

import "github.com/yigit/campuswell/internal/app/models"

// LoginRequest represents login credentials. Identifier accepts an email or a username.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required,max=254" example:"ada@uni.edu"`
	Password   string `json:"password" binding:"required,max=128" example:"S3cure!pass"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken           string `json:"accessToken"`
	TokenType             string `json:"tokenType" example:"Bearer"`
	ExpiresIn             int64  `json:"expiresIn" example:"900"`
	RefreshToken          string `json:"refreshToken,omitempty"`
	RefreshTokenExpiresIn int64  `json:"refreshTokenExpiresIn,omitempty" example:"604800"`
}

// RefreshTokenRequest represents refresh token request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RegisterRequest is the basic sign-up form.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=254" example:"ada@uni.edu"`
	Username string `json:"username" binding:"required,min=3,max=30,username" example:"ada_l"`
	Password string `json:"password" binding:"required,min=8,max=128" example:"S3cure!pass"`
	FullName string `json:"fullName" binding:"omitempty,min=2,max=100" example:"Ada Lovelace"`
}

// AcademicInfoInput is the optional academic step of the enhanced wizard.
type AcademicInfoInput struct {
	Institution    string   `json:"institution" binding:"omitempty,max=100" example:"University of Technology"`
	Major          string   `json:"major" binding:"omitempty,max=100" example:"Computer Science"`
	Year           *int     `json:"year" binding:"omitempty,min=1,max=10" example:"2"`
	Courses        []string `json:"courses" binding:"omitempty,max=30,dive,max=50"`
	GPA            *float64 `json:"gpa" binding:"omitempty,min=0,max=4" example:"3.5"`
	GraduationYear *int     `json:"graduationYear" binding:"omitempty,min=2020,max=2035" example:"2027"`
}

// ToModel converts the input into the stored academic record.
func (a *AcademicInfoInput) ToModel() *models.AcademicInfo {
	if a == nil {
		return nil
	}
	return &models.AcademicInfo{
		Institution:    a.Institution,
		Major:          a.Major,
		Year:           a.Year,
		Courses:        a.Courses,
		GPA:            a.GPA,
		GraduationYear: a.GraduationYear,
	}
}

// EnhancedRegisterRequest is the multi-step registration wizard submitted at once.
type EnhancedRegisterRequest struct {
	Email           string             `json:"email" binding:"required,email,max=254" example:"ada@uni.edu"`
	Username        string             `json:"username" binding:"required,min=3,max=30,username" example:"ada_l"`
	Password        string             `json:"password" binding:"required,min=8,max=128,strongpassword" example:"S3cure!pass"`
	ConfirmPassword string             `json:"confirmPassword" binding:"required,eqfield=Password" example:"S3cure!pass"`
	FullName        string             `json:"fullName" binding:"required,min=2,max=100" example:"Ada Lovelace"`
	Bio             string             `json:"bio" binding:"omitempty,max=500"`
	Interests       []string           `json:"interests" binding:"omitempty,max=20,dive,min=1,max=50"`
	AcademicInfo    *AcademicInfoInput `json:"academicInfo"`
	AcceptTerms     bool               `json:"acceptTerms" binding:"required" example:"true"`
}

// OTPRequest asks for a one time code. Either email or username identifies the account.
type OTPRequest struct {
	Email    string `json:"email" binding:"required_without=Username,omitempty,email" example:"ada@uni.edu"`
	Username string `json:"username" binding:"required_without=Email,omitempty,max=30" example:"ada_l"`
}

// OTPVerifyRequest submits a one time code.
type OTPVerifyRequest struct {
	Email    string `json:"email" binding:"required_without=Username,omitempty,email" example:"ada@uni.edu"`
	Username string `json:"username" binding:"required_without=Email,omitempty,max=30" example:"ada_l"`
	Code     string `json:"code" binding:"required,len=6,numeric" example:"123456"`
}

// OTPStatusRequest queries the latest code of an email.
type OTPStatusRequest struct {
	Email string         `form:"email" binding:"required,email"`
	Type  models.OTPType `form:"type" binding:"required,oneof=EMAIL_VERIFICATION LOGIN PASSWORD_RESET PASSWORD_LOGIN REGISTRATION"`
}

// ResetPasswordRequest sets a new password with a reset token.
type ResetPasswordRequest struct {
	ResetToken      string `json:"resetToken" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=128,strongpassword"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=NewPassword"`
}

// OTPSentResponse acknowledges a dispatched code.
type OTPSentResponse struct {
	Message   string `json:"message" example:"Verification code sent"`
	Email     string `json:"email" example:"a***@uni.edu"`
	ExpiresIn int    `json:"expiresIn" example:"600"`
}

// ResetTokenResponse is returned after a password reset code is verified.
type ResetTokenResponse struct {
	ResetToken string `json:"resetToken"`
	ExpiresIn  int    `json:"expiresIn" example:"900"`
}

// UserResponse is the public view of the authenticated account.
type UserResponse struct {
	ID            string               `json:"id"`
	Email         string               `json:"email"`
	Username      string               `json:"username"`
	FullName      *string              `json:"fullName,omitempty"`
	Bio           *string              `json:"bio,omitempty"`
	AvatarURL     *string              `json:"avatarUrl,omitempty"`
	Interests     []string             `json:"interests"`
	Role          models.Role          `json:"role"`
	EmailVerified bool                 `json:"emailVerified"`
	AcademicInfo  *models.AcademicInfo `json:"academicInfo,omitempty"`
}

// NewUserResponse maps a user record to its public view.
func NewUserResponse(u *models.User) UserResponse {
	interests := u.Interests
	if interests == nil {
		interests = []string{}
	}
	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		FullName:      u.FullName,
		Bio:           u.Bio,
		AvatarURL:     u.AvatarURL,
		Interests:     interests,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
		AcademicInfo:  u.AcademicInfo,
	}
}

// AuthResponse represents successful authentication response
type AuthResponse struct {
	Token TokenResponse `json:"token"`
	User  UserResponse  `json:"user"`
	// RequiresVerification is set when an email verification code was sent.
	RequiresVerification bool `json:"requiresVerification,omitempty"`
}
