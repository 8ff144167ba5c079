package auth

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService() *JWTService {
	return NewJWTService(JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  15 * time.Minute,
		RefreshTokenExp: 7 * 24 * time.Hour,
		TokenIssuer:     "campuswell-test",
	})
}

var subject = Subject{UserID: "8d6c3c1e-1111-4c36-9a1b-3f1b0f6f0a01", Email: "ada@uni.edu", Role: "USER", EmailVerified: true}

func TestTokenPairRoundTrip(t *testing.T) {
	svc := newTestService()

	pair, err := svc.GenerateTokenPair(subject)
	require.NoError(t, err)
	assert.Equal(t, 900, pair.ExpiresIn)
	assert.Equal(t, 604800, pair.RefreshExpiresIn)
	assert.NotEmpty(t, pair.RefreshToken)

	claims, err := svc.ValidateAndExtractClaims(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, subject.UserID, claims.UserID)
	assert.Equal(t, "USER", claims.Role)
	assert.True(t, claims.EmailVerified)
	assert.Equal(t, "campuswell-test", claims.Issuer)
}

func TestExpiredAccessToken(t *testing.T) {
	svc := newTestService()
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	pair, err := svc.GenerateTokenPair(subject)
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(time.Hour) }
	_, err = svc.ValidateAndExtractClaims(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenPurposesAreNotInterchangeable(t *testing.T) {
	svc := newTestService()

	reset, err := svc.GenerateResetToken(subject)
	require.NoError(t, err)

	_, err = svc.ValidateAndExtractClaims(reset)
	assert.ErrorIs(t, err, ErrWrongPurpose)

	claims, err := svc.ValidateResetToken(reset)
	require.NoError(t, err)
	assert.Equal(t, subject.Email, claims.Email)
}

func TestTamperedToken(t *testing.T) {
	svc := newTestService()
	other := NewJWTService(JWTConfig{SecretKey: "other", AccessTokenExp: time.Minute})

	pair, err := other.GenerateTokenPair(subject)
	require.NoError(t, err)

	_, err = svc.ValidateAndExtractClaims(pair.AccessToken)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestExtractBearerToken(t *testing.T) {
	tok, err := ExtractBearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	tok, err = ExtractBearerToken("abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	_, err = ExtractBearerToken("")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		require.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("Secret#123"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, CheckPassword(string(hash), "Secret#123"))
	assert.False(t, CheckPassword(string(hash), "secret#123"))
}
