package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/yigit/campuswell/internal/app/models"
	"github.com/yigit/campuswell/internal/db"
	"github.com/yigit/campuswell/internal/pkg/apperrors"
	"github.com/yigit/campuswell/internal/pkg/logger"
)

var otpColumns = []string{
	"id", "email", "user_id", "code", "type", "status", "attempts", "max_attempts",
	"expires_at", "verified_at", "ip_address", "user_agent", "created_at",
}

// OTPRepository persists one time codes.
type OTPRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewOTPRepository creates a new OTPRepository
func NewOTPRepository(q db.Querier) *OTPRepository {
	return &OTPRepository{
		db: q,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanOTP(row pgx.Row) (*models.OTPCode, error) {
	o := &models.OTPCode{}
	err := row.Scan(&o.ID, &o.Email, &o.UserID, &o.Code, &o.Type, &o.Status, &o.Attempts,
		&o.MaxAttempts, &o.ExpiresAt, &o.VerifiedAt, &o.IPAddress, &o.UserAgent, &o.CreatedAt)
	return o, err
}

// Create stores a new code.
func (r *OTPRepository) Create(ctx context.Context, otp *models.OTPCode) error {
	sql, args, err := r.sb.Insert("otp_codes").
		Columns(otpColumns...).
		Values(otp.ID, otp.Email, otp.UserID, otp.Code, otp.Type, otp.Status, otp.Attempts,
			otp.MaxAttempts, otp.ExpiresAt, otp.VerifiedAt, otp.IPAddress, otp.UserAgent, otp.CreatedAt).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create OTP SQL")
		return fmt.Errorf("failed to build create OTP query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Str("email", otp.Email).Msg("Error executing create OTP query")
		return fmt.Errorf("error creating OTP: %w", err)
	}
	return nil
}

// ExpirePending marks every pending code of (email, type) as expired.
func (r *OTPRepository) ExpirePending(ctx context.Context, email string, otpType models.OTPType) error {
	sql, args, err := r.sb.Update("otp_codes").
		Set("status", models.OTPExpired).
		Where(squirrel.Eq{"email": email, "type": otpType, "status": models.OTPPending}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build expire OTP query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Str("email", email).Msg("Error expiring pending OTPs")
		return fmt.Errorf("error expiring OTPs: %w", err)
	}
	return nil
}

// Latest returns the newest code of (email, type) regardless of status.
func (r *OTPRepository) Latest(ctx context.Context, email string, otpType models.OTPType) (*models.OTPCode, error) {
	return r.first(ctx, squirrel.Eq{"email": email, "type": otpType})
}

// LatestPending returns the newest pending code of (email, type).
func (r *OTPRepository) LatestPending(ctx context.Context, email string, otpType models.OTPType) (*models.OTPCode, error) {
	return r.first(ctx, squirrel.Eq{"email": email, "type": otpType, "status": models.OTPPending})
}

func (r *OTPRepository) first(ctx context.Context, where squirrel.Sqlizer) (*models.OTPCode, error) {
	sql, args, err := r.sb.Select(otpColumns...).
		From("otp_codes").
		Where(where).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get OTP query: %w", err)
	}

	otp, err := scanOTP(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOTPNotFound
		}
		logger.Error().Err(err).Msg("Error scanning OTP row")
		return nil, fmt.Errorf("error retrieving OTP: %w", err)
	}
	return otp, nil
}

// CountSince counts codes issued for (email, type) after since.
func (r *OTPRepository) CountSince(ctx context.Context, email string, otpType models.OTPType, since time.Time) (int, error) {
	sql, args, err := r.sb.Select("COUNT(*)").
		From("otp_codes").
		Where(squirrel.Eq{"email": email, "type": otpType}).
		Where(squirrel.GtOrEq{"created_at": since}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count OTP query: %w", err)
	}

	var count int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		logger.Error().Err(err).Str("email", email).Msg("Error counting OTP requests")
		return 0, fmt.Errorf("error counting OTPs: %w", err)
	}
	return count, nil
}

// ClaimAttempt counts one verification attempt against a pending code and returns the new
// count. The increment is conditional in the database, so parallel guesses can never use
// more than max_attempts. A code that is no longer pending or has no attempts left
// yields ErrOTPAttemptsExceeded.
func (r *OTPRepository) ClaimAttempt(ctx context.Context, id string) (int, error) {
	sql, args, err := r.sb.Update("otp_codes").
		Set("attempts", squirrel.Expr("attempts + 1")).
		Where(squirrel.Eq{"id": id, "status": models.OTPPending}).
		Where("attempts < max_attempts").
		Suffix("RETURNING attempts").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build claim OTP attempt query: %w", err)
	}

	var attempts int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrOTPAttemptsExceeded
		}
		logger.Error().Err(err).Str("otpID", id).Msg("Error claiming OTP attempt")
		return 0, fmt.Errorf("error claiming OTP attempt: %w", err)
	}
	return attempts, nil
}

// Resolve moves a pending code to its final status. It reports false when the code had
// already left PENDING, so a late failure never overwrites a verification.
func (r *OTPRepository) Resolve(ctx context.Context, id string, status models.OTPStatus, verifiedAt *time.Time) (bool, error) {
	sql, args, err := r.sb.Update("otp_codes").
		Set("status", status).
		Set("verified_at", verifiedAt).
		Where(squirrel.Eq{"id": id, "status": models.OTPPending}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build resolve OTP query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("otpID", id).Msg("Error resolving OTP")
		return false, fmt.Errorf("error resolving OTP: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Cleanup marks overdue pending codes as expired and deletes finished codes created before
// cutoff. It returns both counts.
func (r *OTPRepository) Cleanup(ctx context.Context, now, cutoff time.Time) (expired, deleted int64, err error) {
	sql, args, err := r.sb.Update("otp_codes").
		Set("status", models.OTPExpired).
		Where(squirrel.Eq{"status": models.OTPPending}).
		Where(squirrel.Lt{"expires_at": now}).
		ToSql()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to build expire OTP query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error marking expired OTPs")
		return 0, 0, fmt.Errorf("error marking expired OTPs: %w", err)
	}
	expired = tag.RowsAffected()

	sql, args, err = r.sb.Delete("otp_codes").
		Where(squirrel.Eq{"status": []models.OTPStatus{models.OTPVerified, models.OTPExpired, models.OTPFailed}}).
		Where(squirrel.Lt{"created_at": cutoff}).
		ToSql()
	if err != nil {
		return expired, 0, fmt.Errorf("failed to build delete OTP query: %w", err)
	}
	tag, err = r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error deleting old OTPs")
		return expired, 0, fmt.Errorf("error deleting old OTPs: %w", err)
	}
	return expired, tag.RowsAffected(), nil
}
