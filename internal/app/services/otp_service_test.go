package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/campuswell/internal/app/models"
	"github.com/yigit/campuswell/internal/pkg/apperrors"
)

func newTestOTPService() (*OTPService, *fakeOTPs, *fakeMailer, *fakeClock) {
	store := &fakeOTPs{}
	mailer := &fakeMailer{}
	clock := newFakeClock()
	svc := NewOTPService(store, mailer, DefaultOTPConfig(), zerolog.Nop())
	svc.now = clock.Now
	return svc, store, mailer, clock
}

func TestOTPRequestAndVerify(t *testing.T) {
	svc, store, mailer, _ := newTestOTPService()
	ctx := context.Background()

	require.NoError(t, svc.Request(ctx, OTPRequest{Email: " Ada@Uni.edu ", Type: models.OTPLogin}))
	require.Len(t, mailer.otps, 1)
	assert.Equal(t, "ada@uni.edu", mailer.otps[0].To)
	assert.Len(t, mailer.lastCode(), 6)
	assert.NotEqual(t, mailer.lastCode(), store.codes[0].Code, "only the hash is stored")

	otp, err := svc.Verify(ctx, "ada@uni.edu", models.OTPLogin, mailer.lastCode())
	require.NoError(t, err)
	assert.Equal(t, models.OTPVerified, otp.Status)
	assert.NotNil(t, otp.VerifiedAt)

	_, err = svc.Verify(ctx, "ada@uni.edu", models.OTPLogin, mailer.lastCode())
	assert.ErrorIs(t, err, apperrors.ErrOTPNotFound, "a verified code cannot be reused")
}

func TestOTPResendCooldown(t *testing.T) {
	svc, _, _, clock := newTestOTPService()
	ctx := context.Background()

	require.NoError(t, svc.Request(ctx, OTPRequest{Email: "ada@uni.edu", Type: models.OTPLogin}))

	err := svc.Request(ctx, OTPRequest{Email: "ada@uni.edu", Type: models.OTPLogin})
	var rl *apperrors.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, "otpResend", rl.Action)
	assert.Equal(t, 60, rl.RetryAfter(clock.Now()))

	// other purposes are independent
	require.NoError(t, svc.Request(ctx, OTPRequest{Email: "ada@uni.edu", Type: models.OTPPasswordReset}))

	clock.Advance(61 * time.Second)
	require.NoError(t, svc.Request(ctx, OTPRequest{Email: "ada@uni.edu", Type: models.OTPLogin}))
}

func TestOTPRequestLimit(t *testing.T) {
	svc, _, _, clock := newTestOTPService()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Request(ctx, OTPRequest{Email: "ada@uni.edu", Type: models.OTPLogin}))
		clock.Advance(61 * time.Second)
	}

	err := svc.Request(ctx, OTPRequest{Email: "ada@uni.edu", Type: models.OTPLogin})
	assert.ErrorIs(t, err, apperrors.ErrRateLimited)

	clock.Advance(15 * time.Minute)
	assert.NoError(t, svc.Request(ctx, OTPRequest{Email: "ada@uni.edu", Type: models.OTPLogin}))
}

func TestNewCodeExpiresPreviousOne(t *testing.T) {
	svc, _, mailer, clock := newTestOTPService()
	ctx := context.Background()

	require.NoError(t, svc.Request(ctx, OTPRequest{Email: "ada@uni.edu", Type: models.OTPLogin}))
	first := mailer.lastCode()
	clock.Advance(2 * time.Minute)
	require.NoError(t, svc.Request(ctx, OTPRequest{Email: "ada@uni.edu", Type: models.OTPLogin}))
	second := mailer.lastCode()

	if first != second {
		_, err := svc.Verify(ctx, "ada@uni.edu", models.OTPLogin, first)
		assert.ErrorIs(t, err, apperrors.ErrOTPInvalid)
	}
	_, err := svc.Verify(ctx, "ada@uni.edu", models.OTPLogin, second)
	assert.NoError(t, err)
}

func TestOTPAttemptsAreLimited(t *testing.T) {
	svc, _, mailer, _ := newTestOTPService()
	ctx := context.Background()
	require.NoError(t, svc.Request(ctx, OTPRequest{Email: "ada@uni.edu", Type: models.OTPLogin}))

	wrong := "000000"
	if mailer.lastCode() == wrong {
		wrong = "111111"
	}

	_, err := svc.Verify(ctx, "ada@uni.edu", models.OTPLogin, wrong)
	var otpErr *apperrors.OTPError
	require.True(t, errors.As(err, &otpErr))
	assert.Equal(t, 2, otpErr.AttemptsRemaining)

	_, err = svc.Verify(ctx, "ada@uni.edu", models.OTPLogin, wrong)
	require.True(t, errors.As(err, &otpErr))
	assert.Equal(t, 1, otpErr.AttemptsRemaining)

	_, err = svc.Verify(ctx, "ada@uni.edu", models.OTPLogin, wrong)
	assert.ErrorIs(t, err, apperrors.ErrOTPAttemptsExceeded)

	// the code is burnt even when the right value arrives afterwards
	_, err = svc.Verify(ctx, "ada@uni.edu", models.OTPLogin, mailer.lastCode())
	assert.ErrorIs(t, err, apperrors.ErrOTPNotFound)

	status, err := svc.Status(ctx, "ada@uni.edu", models.OTPLogin)
	require.NoError(t, err)
	assert.Equal(t, models.OTPFailed, status.Status)
	assert.Zero(t, status.AttemptsRemaining)
}

func TestParallelWrongGuessesShareTheAttemptBudget(t *testing.T) {
	svc, _, mailer, _ := newTestOTPService()
	ctx := context.Background()
	require.NoError(t, svc.Request(ctx, OTPRequest{Email: "ada@uni.edu", Type: models.OTPLogin}))

	wrong := "000000"
	if mailer.lastCode() == wrong {
		wrong = "111111"
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		invalid int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Verify(ctx, "ada@uni.edu", models.OTPLogin, wrong)
			assert.Error(t, err)
			if errors.Is(err, apperrors.ErrOTPInvalid) {
				mu.Lock()
				invalid++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, invalid, "only the first two compared guesses report an invalid code")

	status, err := svc.Status(ctx, "ada@uni.edu", models.OTPLogin)
	require.NoError(t, err)
	assert.Equal(t, models.OTPFailed, status.Status)

	_, err = svc.Verify(ctx, "ada@uni.edu", models.OTPLogin, mailer.lastCode())
	assert.ErrorIs(t, err, apperrors.ErrOTPNotFound)
}

func TestFailedGuessNeverOverwritesVerifiedCode(t *testing.T) {
	svc, _, mailer, _ := newTestOTPService()
	ctx := context.Background()
	require.NoError(t, svc.Request(ctx, OTPRequest{Email: "ada@uni.edu", Type: models.OTPLogin}))

	right := mailer.lastCode()
	wrong := "000000"
	if right == wrong {
		wrong = "111111"
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 10; i++ {
		code := wrong
		if i%2 == 0 {
			code = right
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Verify(ctx, "ada@uni.edu", models.OTPLogin, code); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, successes, 1, "a code verifies at most once")
	status, err := svc.Status(ctx, "ada@uni.edu", models.OTPLogin)
	require.NoError(t, err)
	if successes == 1 {
		assert.Equal(t, models.OTPVerified, status.Status)
	} else {
		assert.Equal(t, models.OTPFailed, status.Status)
	}
}

func TestOTPExpiry(t *testing.T) {
	svc, _, mailer, clock := newTestOTPService()
	ctx := context.Background()
	require.NoError(t, svc.Request(ctx, OTPRequest{Email: "ada@uni.edu", Type: models.OTPLogin}))

	status, err := svc.Status(ctx, "ada@uni.edu", models.OTPLogin)
	require.NoError(t, err)
	assert.True(t, status.Exists)
	assert.Equal(t, models.OTPPending, status.Status)
	assert.Equal(t, 3, status.AttemptsRemaining)

	clock.Advance(11 * time.Minute)
	status, err = svc.Status(ctx, "ada@uni.edu", models.OTPLogin)
	require.NoError(t, err)
	assert.Equal(t, models.OTPExpired, status.Status)

	_, err = svc.Verify(ctx, "ada@uni.edu", models.OTPLogin, mailer.lastCode())
	assert.ErrorIs(t, err, apperrors.ErrOTPExpired)
}

func TestOTPStatusUnknownAddress(t *testing.T) {
	svc, _, _, _ := newTestOTPService()
	status, err := svc.Status(context.Background(), "nobody@uni.edu", models.OTPLogin)
	require.NoError(t, err)
	assert.False(t, status.Exists)
}

func TestOTPDeliveryFailure(t *testing.T) {
	svc, _, mailer, _ := newTestOTPService()
	mailer.fail = errors.New("smtp down")

	err := svc.Request(context.Background(), OTPRequest{Email: "ada@uni.edu", Type: models.OTPLogin})
	assert.ErrorIs(t, err, apperrors.ErrOTPDeliveryFailed)
}

func TestOTPCleanup(t *testing.T) {
	svc, store, mailer, clock := newTestOTPService()
	ctx := context.Background()

	require.NoError(t, svc.Request(ctx, OTPRequest{Email: "ada@uni.edu", Type: models.OTPLogin}))
	_, err := svc.Verify(ctx, "ada@uni.edu", models.OTPLogin, mailer.lastCode())
	require.NoError(t, err)
	require.NoError(t, svc.Request(ctx, OTPRequest{Email: "bob@uni.edu", Type: models.OTPLogin}))

	clock.Advance(25 * time.Hour)
	expired, deleted, err := svc.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)
	assert.Equal(t, int64(2), deleted)
	assert.Empty(t, store.codes)
}
