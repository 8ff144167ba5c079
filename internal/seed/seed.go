// Package seed creates the data a fresh installation needs.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yigit/campuswell/internal/app/models"
	"github.com/yigit/campuswell/internal/community"
	"github.com/yigit/campuswell/internal/pkg/auth"
)

// AdminAccount is the bootstrap administrator.
type AdminAccount struct {
	Email    string
	Username string
	Password string
}

// UserStore is the part of the user repository seeding needs.
type UserStore interface {
	Exists(ctx context.Context, email, username string) (emailTaken, usernameTaken bool, err error)
	Create(ctx context.Context, user *models.User) error
}

// MemberRegistry mirrors the admin into the community member list.
type MemberRegistry interface {
	RegisterMember(ctx context.Context, profile community.MemberProfile) (*community.Member, error)
}

// CreateDefaultData creates the administrator account if it does not exist yet.
// An empty admin email skips it. The welcome post is seeded by the community store itself.
func CreateDefaultData(ctx context.Context, admin AdminAccount, users UserStore, members MemberRegistry, lgr zerolog.Logger) error {
	admin.Email = strings.ToLower(strings.TrimSpace(admin.Email))
	if admin.Email == "" {
		lgr.Info().Msg("No admin account configured, skipping default data")
		return nil
	}
	if admin.Password == "" {
		return errors.New("admin password is required when an admin email is configured")
	}
	if admin.Username == "" {
		admin.Username = "admin"
	}

	emailTaken, usernameTaken, err := users.Exists(ctx, admin.Email, admin.Username)
	if err != nil {
		return fmt.Errorf("failed to check admin account: %w", err)
	}
	if emailTaken || usernameTaken {
		lgr.Info().Msg("Admin user already exists, skipping creation")
		return nil
	}

	hash, err := auth.HashPassword(admin.Password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	now := time.Now()
	name := "CampusWell Administrator"
	user := &models.User{
		ID:               uuid.NewString(),
		Email:            admin.Email,
		Username:         admin.Username,
		Password:         hash,
		FullName:         &name,
		Interests:        []string{},
		Role:             models.RoleAdmin,
		EmailVerified:    true,
		IsActive:         true,
		PrivacySettings:  models.DefaultPrivacySettings(),
		WellnessSettings: models.DefaultWellnessSettings(),
		Preferences:      models.DefaultPreferences(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := users.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	if members != nil {
		_, err := members.RegisterMember(ctx, community.MemberProfile{
			ID:       user.ID,
			Name:     name,
			Email:    user.Email,
			Role:     string(user.Role),
			JoinedAt: now,
		})
		if err != nil {
			return fmt.Errorf("failed to register admin as community member: %w", err)
		}
	}

	lgr.Info().Str("adminID", user.ID).Str("email", user.Email).Msg("Default admin user created successfully")
	return nil
}
