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
	"github.com/yigit/campuswell/internal/pkg/dberrors"
	"github.com/yigit/campuswell/internal/pkg/logger"
)

// Settings columns that are replaced wholesale by UpdateSettings.
const (
	SettingsPrivacy     = "privacy_settings"
	SettingsWellness    = "wellness_settings"
	SettingsPreferences = "preferences"
	SettingsAcademic    = "academic_info"
)

var userColumns = []string{
	"id", "email", "username", "password", "full_name", "bio", "avatar_url", "interests",
	"role", "email_verified", "is_active", "privacy_settings", "wellness_settings",
	"preferences", "academic_info", "last_active", "created_at", "updated_at",
}

// UserRepository handles user database operations
type UserRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(q db.Querier) *UserRepository {
	return &UserRepository{
		db: q,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.Password, &u.FullName, &u.Bio, &u.AvatarURL, &u.Interests,
		&u.Role, &u.EmailVerified, &u.IsActive, &u.PrivacySettings, &u.WellnessSettings,
		&u.Preferences, &u.AcademicInfo, &u.LastActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if u.Interests == nil {
		u.Interests = []string{}
	}
	return u, nil
}

// Create inserts a user. Duplicate email or username map to their own errors.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Interests == nil {
		user.Interests = []string{}
	}

	sql, args, err := r.sb.Insert("users").
		Columns(userColumns...).
		Values(
			user.ID, user.Email, user.Username, user.Password, user.FullName, user.Bio, user.AvatarURL,
			user.Interests, user.Role, user.EmailVerified, user.IsActive, user.PrivacySettings,
			user.WellnessSettings, user.Preferences, user.AcademicInfo, user.LastActive,
			user.CreatedAt, user.UpdatedAt,
		).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create user SQL")
		return fmt.Errorf("failed to build create user query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		switch {
		case dberrors.IsDuplicateConstraintError(err, "users_email_key"):
			return apperrors.ErrEmailAlreadyExists
		case dberrors.IsDuplicateConstraintError(err, "users_username_key"):
			return apperrors.ErrUsernameAlreadyExists
		}
		logger.Error().Err(err).Str("email", user.Email).Msg("Error executing create user query")
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

func (r *UserRepository) getBy(ctx context.Context, where squirrel.Sqlizer) (*models.User, error) {
	sql, args, err := r.sb.Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get user SQL")
		return nil, fmt.Errorf("failed to build get user query: %w", err)
	}

	user, err := scanUser(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		logger.Error().Err(err).Msg("Error scanning user row")
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, squirrel.Expr("LOWER(email) = LOWER(?)", email))
}

// GetByIdentifier looks a user up by email or username.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	return r.getBy(ctx, squirrel.Or{
		squirrel.Expr("LOWER(email) = LOWER(?)", identifier),
		squirrel.Eq{"username": identifier},
	})
}

// Exists reports which of email and username are already taken.
func (r *UserRepository) Exists(ctx context.Context, email, username string) (emailTaken, usernameTaken bool, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT
			EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1)),
			EXISTS(SELECT 1 FROM users WHERE username = $2)`,
		email, username).Scan(&emailTaken, &usernameTaken)
	if err != nil {
		logger.Error().Err(err).Msg("Error checking user existence")
		return false, false, fmt.Errorf("error checking user existence: %w", err)
	}
	return emailTaken, usernameTaken, nil
}

func (r *UserRepository) update(ctx context.Context, id string, set map[string]interface{}) error {
	set["updated_at"] = time.Now()

	sql, args, err := r.sb.Update("users").SetMap(set).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update user SQL")
		return fmt.Errorf("failed to build update user query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("userID", id).Msg("Error executing update user query")
		return fmt.Errorf("error updating user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// UpdateProfile writes the public profile fields of user.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	interests := user.Interests
	if interests == nil {
		interests = []string{}
	}
	return r.update(ctx, user.ID, map[string]interface{}{
		"full_name":        user.FullName,
		"bio":              user.Bio,
		"avatar_url":       user.AvatarURL,
		"interests":        interests,
		"privacy_settings": user.PrivacySettings,
	})
}

// UpdateSettings replaces one JSONB settings column.
func (r *UserRepository) UpdateSettings(ctx context.Context, id, column string, value interface{}) error {
	switch column {
	case SettingsPrivacy, SettingsWellness, SettingsPreferences, SettingsAcademic:
	default:
		return fmt.Errorf("unknown settings column %q", column)
	}
	return r.update(ctx, id, map[string]interface{}{column: value})
}

// UpdateAvatar sets the avatar URL.
func (r *UserRepository) UpdateAvatar(ctx context.Context, id, url string) error {
	return r.update(ctx, id, map[string]interface{}{"avatar_url": url})
}

// UpdatePassword stores a new password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.update(ctx, id, map[string]interface{}{"password": hash})
}

// MarkEmailVerified flags the email address of a user as verified.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string) error {
	return r.update(ctx, id, map[string]interface{}{"email_verified": true})
}

// UpdateRole changes the role of a user.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role models.Role) error {
	return r.update(ctx, id, map[string]interface{}{"role": role})
}

// SetActive enables or disables an account.
func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.update(ctx, id, map[string]interface{}{"is_active": active})
}

// TouchLastActive records activity without bumping updated_at.
func (r *UserRepository) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	sql, args, err := r.sb.Update("users").Set("last_active", at).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build touch user query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Str("userID", id).Msg("Error updating last active")
		return fmt.Errorf("error updating last active: %w", err)
	}
	return nil
}
