package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWT errors
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token expired")
	ErrInvalidFormat = errors.New("invalid token format")
	ErrWrongPurpose  = errors.New("token issued for another purpose")
)

// Token purposes
const (
	PurposeAccess        = "access"
	PurposePasswordReset = "password_reset"
)

// JWTConfig defines JWT configuration settings
type JWTConfig struct {
	SecretKey       string
	AccessTokenExp  time.Duration
	RefreshTokenExp time.Duration
	ResetTokenExp   time.Duration
	TokenIssuer     string
}

// Subject is the identity a token is issued for.
type Subject struct {
	UserID        string
	Email         string
	Role          string
	EmailVerified bool
}

// TokenPair is an access token plus an opaque refresh token.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	ExpiresIn        int       `json:"expiresIn"`
	RefreshExpiresIn int       `json:"refreshExpiresIn"`
	RefreshExpiresAt time.Time `json:"-"`
}

// JWTService handles JWT operations
type JWTService struct {
	config JWTConfig
	now    func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(config JWTConfig) *JWTService {
	if config.ResetTokenExp <= 0 {
		config.ResetTokenExp = 15 * time.Minute
	}
	return &JWTService{
		config: config,
		now:    time.Now,
	}
}

// Claims defines JWT token content
type Claims struct {
	UserID        string `json:"userId"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"emailVerified"`
	Purpose       string `json:"purpose"`
	jwt.RegisteredClaims
}

func (s *JWTService) sign(sub Subject, purpose string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID:        sub.UserID,
		Email:         sub.Email,
		Role:          sub.Role,
		EmailVerified: sub.EmailVerified,
		Purpose:       purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.config.TokenIssuer,
			Subject:   sub.UserID,
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", purpose, err)
	}
	return signed, nil
}

// GenerateTokenPair creates an access token and a random refresh token.
func (s *JWTService) GenerateTokenPair(sub Subject) (*TokenPair, error) {
	access, err := s.sign(sub, PurposeAccess, s.config.AccessTokenExp)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     uuid.NewString(),
		ExpiresIn:        int(s.config.AccessTokenExp.Seconds()),
		RefreshExpiresIn: int(s.config.RefreshTokenExp.Seconds()),
		RefreshExpiresAt: s.now().Add(s.config.RefreshTokenExp),
	}, nil
}

// GenerateResetToken issues a short lived token that only authorizes a password reset.
func (s *JWTService) GenerateResetToken(sub Subject) (string, error) {
	return s.sign(sub, PurposePasswordReset, s.config.ResetTokenExp)
}

// ValidateToken parses and verifies a token
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.SecretKey), nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// ValidateAndExtractClaims validates an access token.
func (s *JWTService) ValidateAndExtractClaims(tokenString string) (*Claims, error) {
	return s.validatePurpose(tokenString, PurposeAccess)
}

// ValidateResetToken validates a password reset token.
func (s *JWTService) ValidateResetToken(tokenString string) (*Claims, error) {
	return s.validatePurpose(tokenString, PurposePasswordReset)
}

func (s *JWTService) validatePurpose(tokenString, purpose string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.UserID == "" || claims.Email == "" {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongPurpose
	}

	return claims, nil
}

// RefreshTokenTTL returns the refresh token lifetime.
func (s *JWTService) RefreshTokenTTL() time.Duration {
	return s.config.RefreshTokenExp
}

// ResetTokenTTL returns the password reset token lifetime.
func (s *JWTService) ResetTokenTTL() time.Duration {
	return s.config.ResetTokenExp
}

// ExtractBearerToken extracts the token from the Authorization header
func ExtractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrInvalidFormat
	}

	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")), nil
	}

	return authHeader, nil
}
