package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/rs/zerolog"

	"github.com/yigit/campuswell/internal/app/models"
	"github.com/yigit/campuswell/internal/app/models/dto"
	"github.com/yigit/campuswell/internal/app/repositories"
	"github.com/yigit/campuswell/internal/community"
	"github.com/yigit/campuswell/internal/pkg/apperrors"
	"github.com/yigit/campuswell/internal/pkg/filestorage"
	"github.com/yigit/campuswell/internal/security/sanitize"
)

const recentActivityLimit = 10

// CommunityActivity exposes the community footprint of a member.
type CommunityActivity interface {
	UserActivity(userID string, limit int) ([]community.Post, []community.Reply)
	UserStats(userID string) community.UserStats
}

// WellnessCounter exposes wellness numbers for profile statistics.
type WellnessCounter interface {
	MoodSince(ctx context.Context, userID string, since time.Time, limit uint64) ([]models.MoodEntry, error)
	CountMood(ctx context.Context, userID string) (int, error)
	GoalCounts(ctx context.Context, userID string) (active, completed int, err error)
}

// UserService manages profiles and the settings objects of an account.
type UserService struct {
	users       UserStore
	community   CommunityActivity
	wellness    WellnessCounter
	fileStorage filestorage.FileStorage
	maxAvatar   int64
	now         func() time.Time
	logger      zerolog.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	users UserStore,
	activity CommunityActivity,
	wellness WellnessCounter,
	fileStorage filestorage.FileStorage,
	maxAvatarSize int64,
	logger zerolog.Logger,
) *UserService {
	return &UserService{
		users:       users,
		community:   activity,
		wellness:    wellness,
		fileStorage: fileStorage,
		maxAvatar:   maxAvatarSize,
		now:         time.Now,
		logger:      logger,
	}
}

// GetProfile returns the full profile of userID.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*dto.ProfileResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := dto.NewProfileResponse(user)
	return &resp, nil
}

// UpdateProfile applies the fields present in req.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		name := sanitize.Text(*req.FullName, 100)
		if name == "" {
			return nil, apperrors.NewValidationError("fullName", "Full name cannot be empty")
		}
		user.FullName = &name
	}
	if req.Bio != nil {
		bio := sanitize.Text(*req.Bio, 500)
		user.Bio = &bio
	}
	if req.AvatarURL != nil {
		user.AvatarURL = req.AvatarURL
	}
	if req.Interests != nil {
		user.Interests = cleanList(req.Interests, 50)
	}
	if req.PrivacySettings != nil {
		user.PrivacySettings = *req.PrivacySettings
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info().Str("userID", userID).Msg("Profile updated")

	resp := dto.NewProfileResponse(user)
	return &resp, nil
}

// UpdateAvatar stores an uploaded image and points the profile at it. The previous
// upload is removed once the profile is updated.
func (s *UserService) UpdateAvatar(ctx context.Context, userID string, fileHeader *multipart.FileHeader) (*dto.AvatarResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	url, err := s.fileStorage.SaveImage(fileHeader, "avatars", s.maxAvatar)
	if err != nil {
		switch {
		case errors.Is(err, filestorage.ErrFileTooLarge):
			return nil, apperrors.NewValidationError("avatar", fmt.Sprintf("Avatar must be at most %d bytes", s.maxAvatar))
		case errors.Is(err, filestorage.ErrUnsupportedType):
			return nil, apperrors.NewValidationError("avatar", "Avatar must be a JPEG, PNG, GIF or WebP image")
		}
		return nil, fmt.Errorf("error storing avatar: %w", err)
	}

	if err := s.users.UpdateAvatar(ctx, userID, url); err != nil {
		if delErr := s.fileStorage.DeleteFile(url); delErr != nil {
			s.logger.Warn().Err(delErr).Str("url", url).Msg("Failed to remove orphaned avatar")
		}
		return nil, err
	}

	if user.AvatarURL != nil && *user.AvatarURL != "" && *user.AvatarURL != url {
		if err := s.fileStorage.DeleteFile(*user.AvatarURL); err != nil {
			s.logger.Warn().Err(err).Str("url", *user.AvatarURL).Msg("Failed to delete previous avatar")
		}
	}

	s.logger.Info().Str("userID", userID).Str("url", url).Msg("Avatar updated")
	return &dto.AvatarResponse{AvatarURL: url}, nil
}

// WellnessSettings returns the wellness settings of userID.
func (s *UserService) WellnessSettings(ctx context.Context, userID string) (*models.WellnessSettings, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &user.WellnessSettings, nil
}

// UpdateWellnessSettings replaces the wellness settings of userID.
func (s *UserService) UpdateWellnessSettings(ctx context.Context, userID string, req *dto.UpdateWellnessSettingsRequest) (*models.WellnessSettings, error) {
	settings := req.ToModel()
	if err := s.users.UpdateSettings(ctx, userID, repositories.SettingsWellness, settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Preferences returns the preferences of userID.
func (s *UserService) Preferences(ctx context.Context, userID string) (*models.UserPreferences, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &user.Preferences, nil
}

// UpdatePreferences replaces the preferences of userID.
func (s *UserService) UpdatePreferences(ctx context.Context, userID string, req *dto.UpdatePreferencesRequest) (*models.UserPreferences, error) {
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		return nil, apperrors.NewValidationError("timezone", "Unknown timezone")
	}
	prefs := req.ToModel()
	if err := s.users.UpdateSettings(ctx, userID, repositories.SettingsPreferences, prefs); err != nil {
		return nil, err
	}
	return &prefs, nil
}

// AcademicInfo returns the academic record of userID, empty when none was given.
func (s *UserService) AcademicInfo(ctx context.Context, userID string) (*models.AcademicInfo, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.AcademicInfo == nil {
		return &models.AcademicInfo{}, nil
	}
	return user.AcademicInfo, nil
}

// UpdateAcademicInfo replaces the academic record of userID.
func (s *UserService) UpdateAcademicInfo(ctx context.Context, userID string, req *dto.AcademicInfoInput) (*models.AcademicInfo, error) {
	info := req.ToModel()
	info.Institution = sanitize.Text(info.Institution, 100)
	info.Major = sanitize.Text(info.Major, 100)
	info.Courses = cleanList(info.Courses, 50)
	if err := s.users.UpdateSettings(ctx, userID, repositories.SettingsAcademic, info); err != nil {
		return nil, err
	}
	return info, nil
}

// PrivacySettings returns the privacy settings of userID.
func (s *UserService) PrivacySettings(ctx context.Context, userID string) (*models.PrivacySettings, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &user.PrivacySettings, nil
}

// UpdatePrivacySettings replaces the privacy settings of userID.
func (s *UserService) UpdatePrivacySettings(ctx context.Context, userID string, req *dto.UpdatePrivacySettingsRequest) (*models.PrivacySettings, error) {
	settings := req.ToModel()
	if err := s.users.UpdateSettings(ctx, userID, repositories.SettingsPrivacy, settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Activity lists recent posts, replies and mood entries of userID.
func (s *UserService) Activity(ctx context.Context, userID string) (*dto.UserActivityResponse, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	posts, replies := s.community.UserActivity(userID, recentActivityLimit)
	moods, err := s.wellness.MoodSince(ctx, userID, time.Time{}, recentActivityLimit)
	if err != nil {
		return nil, err
	}
	return &dto.UserActivityResponse{
		Posts:       posts,
		Replies:     replies,
		MoodEntries: moods,
	}, nil
}

// Stats aggregates community and wellness numbers of userID.
func (s *UserService) Stats(ctx context.Context, userID string) (*dto.UserStatsResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	moodCount, err := s.wellness.CountMood(ctx, userID)
	if err != nil {
		return nil, err
	}
	active, completed, err := s.wellness.GoalCounts(ctx, userID)
	if err != nil {
		return nil, err
	}

	cs := s.community.UserStats(userID)
	return &dto.UserStatsResponse{
		Posts:            cs.Posts,
		Replies:          cs.Replies,
		LikesReceived:    cs.Likes,
		Reputation:       cs.Reputation,
		MoodEntries:      moodCount,
		ActiveGoals:      active,
		CompletedGoals:   completed,
		DaysSinceJoining: int(s.now().Sub(user.CreatedAt).Hours() / 24),
	}, nil
}
