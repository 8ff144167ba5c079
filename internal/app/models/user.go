package models

import (
	"time"
)

// User defines the user model based on the 'users' table.
// The settings objects are stored as JSONB columns and replaced wholesale on update.
type User struct {
	ID               string           `json:"id" db:"id" example:"8d6c3c1e-1111-4c36-9a1b-3f1b0f6f0a01"`
	Email            string           `json:"email" db:"email" example:"ada@uni.edu"`
	Username         string           `json:"username" db:"username" example:"ada_l"`
	Password         string           `json:"-" db:"password"`
	FullName         *string          `json:"fullName,omitempty" db:"full_name" example:"Ada Lovelace"`
	Bio              *string          `json:"bio,omitempty" db:"bio"`
	AvatarURL        *string          `json:"avatarUrl,omitempty" db:"avatar_url"`
	Interests        []string         `json:"interests" db:"interests"`
	Role             Role             `json:"role" db:"role" example:"USER"`
	EmailVerified    bool             `json:"emailVerified" db:"email_verified"`
	IsActive         bool             `json:"isActive" db:"is_active"`
	PrivacySettings  PrivacySettings  `json:"privacySettings" db:"privacy_settings"`
	WellnessSettings WellnessSettings `json:"wellnessSettings" db:"wellness_settings"`
	Preferences      UserPreferences  `json:"preferences" db:"preferences"`
	AcademicInfo     *AcademicInfo    `json:"academicInfo,omitempty" db:"academic_info"`
	LastActive       *time.Time       `json:"lastActive,omitempty" db:"last_active"`
	CreatedAt        time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time        `json:"updatedAt" db:"updated_at"`
}

// DisplayName is the name shown next to community content.
func (u *User) DisplayName() string {
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	return u.Username
}

// PrivacySettings controls what other members can see and what the platform may analyse.
type PrivacySettings struct {
	AllowAnonymousPosts bool `json:"allowAnonymousPosts"`
	AllowDirectMessages bool `json:"allowDirectMessages"`
	AllowMoodTracking   bool `json:"allowMoodTracking"`
	AllowStressAnalysis bool `json:"allowStressAnalysis"`
	ShowOnlineStatus    bool `json:"showOnlineStatus"`
	AllowProfileViewing bool `json:"allowProfileViewing"`
	DataCollection      bool `json:"dataCollection"`
}

// DefaultPrivacySettings is applied at registration.
func DefaultPrivacySettings() PrivacySettings {
	return PrivacySettings{
		AllowAnonymousPosts: true,
		AllowDirectMessages: true,
		AllowMoodTracking:   true,
		AllowStressAnalysis: true,
		ShowOnlineStatus:    true,
		AllowProfileViewing: true,
		DataCollection:      true,
	}
}

// WellnessSettings toggles the wellness tracking features.
type WellnessSettings struct {
	TrackMood             bool `json:"trackMood"`
	TrackStress           bool `json:"trackStress"`
	ShareWellnessData     bool `json:"shareWellnessData"`
	CrisisAlertsEnabled   bool `json:"crisisAlertsEnabled"`
	AllowWellnessInsights bool `json:"allowWellnessInsights"`
}

// DefaultWellnessSettings is applied at registration.
func DefaultWellnessSettings() WellnessSettings {
	return WellnessSettings{
		TrackMood:             true,
		TrackStress:           true,
		CrisisAlertsEnabled:   true,
		AllowWellnessInsights: true,
	}
}

// NotificationPreferences lists every notification channel a user can mute.
type NotificationPreferences struct {
	EmailNotifications   bool `json:"emailNotifications"`
	PushNotifications    bool `json:"pushNotifications"`
	MessageNotifications bool `json:"messageNotifications"`
	PostReactions        bool `json:"postReactions"`
	CommentReplies       bool `json:"commentReplies"`
	StudyGroupInvites    bool `json:"studyGroupInvites"`
	SessionReminders     bool `json:"sessionReminders"`
	WellnessAlerts       bool `json:"wellnessAlerts"`
	ModerationActions    bool `json:"moderationActions"`
	SystemAnnouncements  bool `json:"systemAnnouncements"`
}

// UserPreferences holds feed, display and notification preferences.
type UserPreferences struct {
	FeedAlgorithm string                  `json:"feedAlgorithm" example:"personalized"`
	PrivacyLevel  string                  `json:"privacyLevel" example:"public"`
	Theme         string                  `json:"theme" example:"light"`
	Language      string                  `json:"language" example:"en"`
	Timezone      string                  `json:"timezone" example:"UTC"`
	Notifications NotificationPreferences `json:"notifications"`
}

// DefaultPreferences is applied at registration.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		FeedAlgorithm: "personalized",
		PrivacyLevel:  "public",
		Theme:         "light",
		Language:      "en",
		Timezone:      "UTC",
		Notifications: NotificationPreferences{
			EmailNotifications:   true,
			PushNotifications:    true,
			MessageNotifications: true,
			PostReactions:        true,
			CommentReplies:       true,
			StudyGroupInvites:    true,
			SessionReminders:     true,
			WellnessAlerts:       true,
			ModerationActions:    true,
			SystemAnnouncements:  true,
		},
	}
}

// AcademicInfo is optional study information.
type AcademicInfo struct {
	Institution    string   `json:"institution,omitempty"`
	Major          string   `json:"major,omitempty"`
	Year           *int     `json:"year,omitempty"`
	Courses        []string `json:"courses,omitempty"`
	GPA            *float64 `json:"gpa,omitempty"`
	GraduationYear *int     `json:"graduationYear,omitempty"`
}

// RefreshToken is an opaque refresh token row.
type RefreshToken struct {
	Token      string    `db:"token"`
	UserID     string    `db:"user_id"`
	ExpiryDate time.Time `db:"expiry_date"`
	IsRevoked  bool      `db:"is_revoked"`
	CreatedAt  time.Time `db:"created_at"`
}
