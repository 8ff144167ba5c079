package services

import (
	"context"
	"mime/multipart"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/campuswell/internal/app/models"
	"github.com/yigit/campuswell/internal/app/models/dto"
	"github.com/yigit/campuswell/internal/app/repositories"
	"github.com/yigit/campuswell/internal/community"
	"github.com/yigit/campuswell/internal/pkg/apperrors"
	"github.com/yigit/campuswell/internal/pkg/filestorage"
)

type userFixture struct {
	svc      *UserService
	users    *fakeUsers
	wellness *fakeWellness
	board    *community.Store
	files    *fakeFiles
	clock    *fakeClock
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	f := &userFixture{
		users:    newFakeUsers(),
		wellness: newFakeWellness(),
		files:    &fakeFiles{},
		clock:    newFakeClock(),
	}
	f.board = community.NewStore(nil, zerolog.Nop(), community.WithClock(f.clock.Now))
	f.users.byID["u1"] = &models.User{
		ID:              "u1",
		Email:           "ada@uni.edu",
		Username:        "ada_l",
		Interests:       []string{},
		PrivacySettings: models.DefaultPrivacySettings(),
		Preferences:     models.DefaultPreferences(),
		CreatedAt:       f.clock.Now().Add(-10 * 24 * time.Hour),
	}
	f.svc = NewUserService(f.users, f.board, f.wellness, f.files, 1<<20, zerolog.Nop())
	f.svc.now = f.clock.Now
	return f
}

func strPtr(s string) *string { return &s }

func TestUpdateProfile(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	privacy := models.DefaultPrivacySettings()
	privacy.ShowOnlineStatus = false
	resp, err := f.svc.UpdateProfile(ctx, "u1", &dto.UpdateProfileRequest{
		Bio:             strPtr("<i>Loves</i> maths"),
		Interests:       []string{"chess", "chess", "running"},
		PrivacySettings: &privacy,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Bio)
	assert.Equal(t, "Loves maths", *resp.Bio)
	assert.Equal(t, []string{"chess", "running"}, resp.Interests)
	assert.False(t, resp.PrivacySettings.ShowOnlineStatus)

	_, err = f.svc.UpdateProfile(ctx, "u1", &dto.UpdateProfileRequest{FullName: strPtr("<b></b>")})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = f.svc.GetProfile(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestUpdateAvatarReplacesPrevious(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	first, err := f.svc.UpdateAvatar(ctx, "u1", &multipart.FileHeader{Filename: "a.png"})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/avatars/a.png", first.AvatarURL)
	assert.Empty(t, f.files.deleted)

	_, err = f.svc.UpdateAvatar(ctx, "u1", &multipart.FileHeader{Filename: "b.png"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/uploads/avatars/a.png"}, f.files.deleted)
	assert.Equal(t, "/uploads/avatars/b.png", *f.users.byID["u1"].AvatarURL)

	f.files.err = filestorage.ErrUnsupportedType
	_, err = f.svc.UpdateAvatar(ctx, "u1", &multipart.FileHeader{Filename: "c.txt"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestSettingsReplaceWholeObject(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	ws, err := f.svc.UpdateWellnessSettings(ctx, "u1", &dto.UpdateWellnessSettingsRequest{TrackMood: true})
	require.NoError(t, err)
	assert.Equal(t, models.WellnessSettings{TrackMood: true}, *ws)
	assert.Equal(t, *ws, f.users.settings[repositories.SettingsWellness])

	got, err := f.svc.WellnessSettings(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, got.TrackStress)

	_, err = f.svc.UpdatePreferences(ctx, "u1", &dto.UpdatePreferencesRequest{
		FeedAlgorithm: "chronological", PrivacyLevel: "public", Theme: "dark", Language: "en", Timezone: "Mars/Olympus",
	})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	prefs, err := f.svc.UpdatePreferences(ctx, "u1", &dto.UpdatePreferencesRequest{
		FeedAlgorithm: "chronological", PrivacyLevel: "public", Theme: "dark", Language: "en", Timezone: "Europe/Istanbul",
	})
	require.NoError(t, err)
	assert.Equal(t, "dark", prefs.Theme)

	privacy, err := f.svc.UpdatePrivacySettings(ctx, "u1", &dto.UpdatePrivacySettingsRequest{DataCollection: true})
	require.NoError(t, err)
	assert.False(t, privacy.AllowDirectMessages)
}

func TestAcademicInfo(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	empty, err := f.svc.AcademicInfo(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.AcademicInfo{}, *empty)

	year := 2
	info, err := f.svc.UpdateAcademicInfo(ctx, "u1", &dto.AcademicInfoInput{
		Institution: "University of <b>Technology</b>", Major: "CS", Year: &year, Courses: []string{"Algorithms", "Algorithms"},
	})
	require.NoError(t, err)
	assert.Equal(t, "University of Technology", info.Institution)
	assert.Equal(t, []string{"Algorithms"}, info.Courses)

	stored, err := f.svc.AcademicInfo(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, *stored.Year)
}

func TestActivityAndStats(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	post, err := f.board.CreatePost(ctx, community.NewPost{Title: "Hello", Content: "First post", Category: "general"}, "u1")
	require.NoError(t, err)
	_, _, err = f.board.TogglePostLike(ctx, post.ID, "u2")
	require.NoError(t, err)
	_, err = f.board.CreateReply(ctx, community.NewReply{PostID: post.ID, Content: "self reply"}, "u1")
	require.NoError(t, err)

	f.wellness.moods = append(f.wellness.moods, models.MoodEntry{UserID: "u1", MoodScore: 4, CreatedAt: f.clock.Now()})
	f.wellness.goals["g1"] = &models.WeeklyGoal{ID: "g1", UserID: "u1"}
	f.wellness.goals["g2"] = &models.WeeklyGoal{ID: "g2", UserID: "u1", IsCompleted: true}

	activity, err := f.svc.Activity(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, activity.Posts, 1)
	assert.Len(t, activity.Replies, 1)
	assert.Len(t, activity.MoodEntries, 1)

	stats, err := f.svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Posts)
	assert.Equal(t, 1, stats.Replies)
	assert.Equal(t, 1, stats.LikesReceived)
	assert.Equal(t, 1, stats.MoodEntries)
	assert.Equal(t, 1, stats.ActiveGoals)
	assert.Equal(t, 1, stats.CompletedGoals)
	assert.Equal(t, 10, stats.DaysSinceJoining)
}
