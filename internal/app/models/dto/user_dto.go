package dto

import (
	"time"

	"github.com/yigit/campuswell/internal/app/models"
	"github.com/yigit/campuswell/internal/community"
)

// UpdateProfileRequest replaces the editable profile fields.
type UpdateProfileRequest struct {
	FullName        *string                 `json:"fullName" binding:"omitempty,min=2,max=100"`
	Bio             *string                 `json:"bio" binding:"omitempty,max=500"`
	AvatarURL       *string                 `json:"avatarUrl" binding:"omitempty,url,max=2048"`
	Interests       []string                `json:"interests" binding:"omitempty,max=20,dive,min=1,max=50"`
	PrivacySettings *models.PrivacySettings `json:"privacySettings"`
}

// ProfileResponse is the full profile of the caller.
type ProfileResponse struct {
	UserResponse
	PrivacySettings  models.PrivacySettings  `json:"privacySettings"`
	WellnessSettings models.WellnessSettings `json:"wellnessSettings"`
	Preferences      models.UserPreferences  `json:"preferences"`
	LastActive       *time.Time              `json:"lastActive,omitempty"`
	CreatedAt        time.Time               `json:"createdAt"`
}

// NewProfileResponse maps a user record to the profile view.
func NewProfileResponse(u *models.User) ProfileResponse {
	return ProfileResponse{
		UserResponse:     NewUserResponse(u),
		PrivacySettings:  u.PrivacySettings,
		WellnessSettings: u.WellnessSettings,
		Preferences:      u.Preferences,
		LastActive:       u.LastActive,
		CreatedAt:        u.CreatedAt,
	}
}

// UpdateWellnessSettingsRequest replaces the wellness settings object.
type UpdateWellnessSettingsRequest struct {
	TrackMood             bool `json:"trackMood"`
	TrackStress           bool `json:"trackStress"`
	ShareWellnessData     bool `json:"shareWellnessData"`
	CrisisAlertsEnabled   bool `json:"crisisAlertsEnabled"`
	AllowWellnessInsights bool `json:"allowWellnessInsights"`
}

// ToModel converts the request into the stored settings.
func (r UpdateWellnessSettingsRequest) ToModel() models.WellnessSettings {
	return models.WellnessSettings(r)
}

// UpdatePreferencesRequest replaces the preferences object.
type UpdatePreferencesRequest struct {
	FeedAlgorithm string                         `json:"feedAlgorithm" binding:"required,oneof=chronological personalized"`
	PrivacyLevel  string                         `json:"privacyLevel" binding:"required,oneof=public friends private"`
	Theme         string                         `json:"theme" binding:"required,oneof=light dark auto"`
	Language      string                         `json:"language" binding:"required,min=2,max=10"`
	Timezone      string                         `json:"timezone" binding:"required,max=64"`
	Notifications models.NotificationPreferences `json:"notifications"`
}

// ToModel converts the request into the stored preferences.
func (r UpdatePreferencesRequest) ToModel() models.UserPreferences {
	return models.UserPreferences(r)
}

// UpdatePrivacySettingsRequest replaces the privacy settings object.
type UpdatePrivacySettingsRequest struct {
	AllowAnonymousPosts bool `json:"allowAnonymousPosts"`
	AllowDirectMessages bool `json:"allowDirectMessages"`
	AllowMoodTracking   bool `json:"allowMoodTracking"`
	AllowStressAnalysis bool `json:"allowStressAnalysis"`
	ShowOnlineStatus    bool `json:"showOnlineStatus"`
	AllowProfileViewing bool `json:"allowProfileViewing"`
	DataCollection      bool `json:"dataCollection"`
}

// ToModel converts the request into the stored settings.
func (r UpdatePrivacySettingsRequest) ToModel() models.PrivacySettings {
	return models.PrivacySettings(r)
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=128,strongpassword"`
}

// UserActivityResponse lists the recent footprint of the caller.
type UserActivityResponse struct {
	Posts       []community.Post   `json:"posts"`
	Replies     []community.Reply  `json:"replies"`
	MoodEntries []models.MoodEntry `json:"moodEntries"`
}

// UserStatsResponse aggregates community and wellness numbers of the caller.
type UserStatsResponse struct {
	Posts            int `json:"posts"`
	Replies          int `json:"replies"`
	LikesReceived    int `json:"likesReceived"`
	Reputation       int `json:"reputation"`
	MoodEntries      int `json:"moodEntries"`
	ActiveGoals      int `json:"activeGoals"`
	CompletedGoals   int `json:"completedGoals"`
	DaysSinceJoining int `json:"daysSinceJoining"`
}

// AvatarResponse is returned after an avatar upload.
type AvatarResponse struct {
	AvatarURL string `json:"avatarUrl"`
}
