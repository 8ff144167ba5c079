package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/campuswell/internal/app/models/dto"
	"github.com/yigit/campuswell/internal/community"
	"github.com/yigit/campuswell/internal/pkg/apperrors"
)

func newCommunityFixture(t *testing.T) (*CommunityService, *community.Store, *fakePrefs) {
	t.Helper()
	clock := newFakeClock()
	board := community.NewStore(nil, zerolog.Nop(), community.WithClock(clock.Now))
	require.NoError(t, board.Load(context.Background()))
	_, err := board.RegisterMember(context.Background(), community.MemberProfile{ID: "u1", Name: "Ada", Role: "USER"})
	require.NoError(t, err)
	_, err = board.RegisterMember(context.Background(), community.MemberProfile{ID: "mod", Name: "Mo", Role: "MODERATOR"})
	require.NoError(t, err)

	prefs := newFakePrefs()
	svc := NewCommunityService(board, prefs, zerolog.Nop())
	svc.now = clock.Now
	return svc, board, prefs
}

func TestCreatePostSanitizesAndAddsByline(t *testing.T) {
	svc, _, _ := newCommunityFixture(t)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, "u1", &dto.CreatePostRequest{
		Title:    "Study <script>alert(1)</script>group",
		Content:  "<p>Anyone up for calculus?</p>",
		Category: "academic",
		Tags:     []string{"math", "math"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Study group", post.Title)
	assert.Equal(t, "Anyone up for calculus?", post.Content)
	assert.Equal(t, []string{"math"}, post.Tags)
	assert.Equal(t, "Ada", post.Author.Name)

	anon, err := svc.CreatePost(ctx, "u1", &dto.CreatePostRequest{Title: "Quiet question", Content: "hi", Category: "wellness", IsAnonymous: true})
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", anon.Author.Name)

	_, err = svc.CreatePost(ctx, "u1", &dto.CreatePostRequest{Title: "Empty", Content: "<b></b>", Category: "general"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = svc.CreatePost(ctx, "u1", &dto.CreatePostRequest{Title: "Nope", Content: "x", Category: "all"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	list := svc.Posts(&dto.PostListQuery{Category: "academic"}, "u1")
	require.Len(t, list.Posts, 1)
	assert.Equal(t, 1, list.Pagination.Total)
	assert.False(t, list.Pagination.HasMore)
}

func TestBannedMembersCannotWrite(t *testing.T) {
	svc, _, _ := newCommunityFixture(t)
	ctx := context.Background()

	_, err := svc.UpdateMemberStatus(ctx, "u1", "mod", &dto.UpdateMemberStatusRequest{Status: community.MemberBanned, Reason: "spam"})
	require.NoError(t, err)

	_, err = svc.CreatePost(ctx, "u1", &dto.CreatePostRequest{Title: "Hello", Content: "again", Category: "general"})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = svc.CreateReply(ctx, community.WelcomePostID, "u1", &dto.CreateReplyRequest{Content: "hi"})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = svc.UpdateMemberStatus(ctx, "mod", "mod", &dto.UpdateMemberStatusRequest{Status: community.MemberWarned, Reason: "self"})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestRepliesLikesAndReports(t *testing.T) {
	svc, _, _ := newCommunityFixture(t)
	ctx := context.Background()

	reply, err := svc.CreateReply(ctx, community.WelcomePostID, "u1", &dto.CreateReplyRequest{Content: "Glad to be here"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", reply.Author.Name)

	like, err := svc.ToggleReplyLike(ctx, reply.ID, "mod")
	require.NoError(t, err)
	assert.True(t, like.Liked)
	assert.Equal(t, 1, like.Likes)

	replies, err := svc.Replies(community.WelcomePostID, "mod")
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.True(t, replies[0].IsLiked)

	report, err := svc.Report(ctx, community.WelcomePostID, "u1", &dto.CreateReportRequest{Type: community.ReportSpam, Reason: "looks like spam"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", report.ReporterName)

	page := svc.Reports(&dto.AdminListQuery{Status: "pending"})
	assert.Equal(t, 1, page.Pagination.Total)

	_, err = svc.Report(ctx, "missing", "u1", &dto.CreateReportRequest{Type: community.ReportSpam, Reason: "spam spam"})
	assert.ErrorIs(t, err, apperrors.ErrPostNotFound)
}

func TestForumsAndOnboarding(t *testing.T) {
	svc, _, prefs := newCommunityFixture(t)
	ctx := context.Background()

	list, err := svc.Forums(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 8, list.TotalForums)
	popular := 0
	for _, f := range list.Forums {
		if f.IsPopular {
			popular++
		}
		assert.False(t, f.IsJoined)
	}
	assert.Equal(t, 3, popular)

	p, err := svc.Preferences(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, p.HasCompletedOnboarding)
	assert.Empty(t, p.Interests)

	_, err = svc.CompleteOnboarding(ctx, "u1", &dto.CompleteOnboardingRequest{SelectedForums: []string{"made-up"}})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	done, err := svc.CompleteOnboarding(ctx, "u1", &dto.CompleteOnboardingRequest{SelectedForums: []string{"academic-help", "made-up", "campus-life"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"academic-help", "campus-life"}, done.Interests)
	assert.True(t, prefs.prefs["u1"].HasCompletedOnboarding)

	feed, err := svc.PersonalizedFeed(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, feed.HasPersonalization)
	assert.Len(t, feed.PersonalizedForums, 2)
	assert.Len(t, feed.OtherForums, 6)
	for _, f := range feed.PersonalizedForums {
		assert.True(t, f.IsJoined)
		assert.Equal(t, 1, f.MemberCount)
	}

	updated, err := svc.UpdatePreferences(ctx, "u1", &dto.UpdateCommunityPreferencesRequest{Interests: []string{}})
	require.NoError(t, err)
	assert.Empty(t, updated.Interests)
	assert.True(t, updated.HasCompletedOnboarding, "onboarding stays completed")

	feed, err = svc.PersonalizedFeed(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, feed.HasPersonalization)
}

func TestAdminOperations(t *testing.T) {
	svc, board, _ := newCommunityFixture(t)
	ctx := context.Background()

	pin, err := svc.TogglePin(ctx, community.WelcomePostID, "mod")
	require.NoError(t, err)
	assert.Equal(t, board.Posts(community.PostQuery{}).Items[0].IsPinned, pin.IsPinned)

	require.NoError(t, svc.DeletePost(ctx, community.WelcomePostID, "mod", &dto.DeletePostRequest{Reason: "cleanup"}))
	_, err = svc.Post(ctx, community.WelcomePostID, "u1")
	assert.ErrorIs(t, err, apperrors.ErrPostNotFound)

	actions := svc.Actions(&dto.AdminListQuery{})
	assert.Len(t, actions, 2)
	assert.Equal(t, 0, svc.AdminStats().TotalPosts)

	members := svc.Members(&dto.AdminListQuery{Status: "active"})
	assert.Equal(t, 2, members.Pagination.Total)
}
