package community

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/campuswell/internal/pkg/apperrors"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(evt Event) {
	p.mu.Lock()
	p.events = append(p.events, evt)
	p.mu.Unlock()
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	s := NewStore(nil, zerolog.Nop(), opts...)
	require.NoError(t, s.Load(context.Background()))
	return s, clock
}

func TestLoadSeedsWelcomePost(t *testing.T) {
	s, _ := newTestStore(t)

	page := s.Posts(PostQuery{Category: CategoryAll})
	require.Len(t, page.Items, 1)
	welcome := page.Items[0]
	assert.Equal(t, WelcomePostID, welcome.ID)
	assert.Equal(t, SystemAuthorID, welcome.AuthorID)
	assert.True(t, welcome.IsPinned)
	assert.Equal(t, []string{"welcome", "introduction", "community"}, welcome.Tags)
}

func TestCreatePostAppearsFirstInRecent(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreatePost(ctx, NewPost{Title: "First", Content: "a", Category: "general"}, "u1")
	require.NoError(t, err)
	clock.Advance(time.Minute)
	second, err := s.CreatePost(ctx, NewPost{Title: "Second", Content: "b", Category: "tech"}, "u2")
	require.NoError(t, err)

	page := s.Posts(PostQuery{Category: CategoryAll, Sort: SortRecent})
	require.Len(t, page.Items, 3)
	assert.Equal(t, second.ID, page.Items[0].ID)
	assert.Equal(t, first.ID, page.Items[1].ID)
	assert.Equal(t, WelcomePostID, page.Items[2].ID)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 0, second.Likes)
	assert.NotNil(t, second.Tags)
}

func TestTogglePostLikeTwiceRestoresCount(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	post, err := s.CreatePost(ctx, NewPost{Title: "t", Content: "c", Category: "general"}, "author")
	require.NoError(t, err)

	liked, likes, err := s.TogglePostLike(ctx, post.ID, "viewer")
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 1, likes)

	page := s.Posts(PostQuery{ViewerID: "viewer", Limit: 1})
	assert.True(t, page.Items[0].IsLiked)

	liked, likes, err = s.TogglePostLike(ctx, post.ID, "viewer")
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, 0, likes)

	got, err := s.Post(ctx, post.ID, "viewer")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Likes)
	assert.False(t, got.IsLiked)
}

func TestTogglePostLikeUnknownPost(t *testing.T) {
	s, _ := newTestStore(t)
	_, _, err := s.TogglePostLike(context.Background(), "missing", "u")
	assert.ErrorIs(t, err, apperrors.ErrPostNotFound)
}

func TestPostsFilterSearchAndSort(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	a, _ := s.CreatePost(ctx, NewPost{Title: "Calculus help", Content: "limits", Category: "academic", Tags: []string{"math"}}, "u1")
	b, _ := s.CreatePost(ctx, NewPost{Title: "Room available", Content: "near campus", Category: "housing"}, "u2")
	c, _ := s.CreatePost(ctx, NewPost{Title: "Go tips", Content: "goroutines", Category: "tech", Tags: []string{"Golang"}}, "u3")

	_, _, _ = s.TogglePostLike(ctx, b.ID, "x")
	_, _, _ = s.TogglePostLike(ctx, b.ID, "y")
	_, _, _ = s.TogglePostLike(ctx, c.ID, "x")

	academic := s.Posts(PostQuery{Category: "academic"})
	require.Len(t, academic.Items, 1)
	assert.Equal(t, a.ID, academic.Items[0].ID)

	byTag := s.Posts(PostQuery{Search: "golang"})
	require.Len(t, byTag.Items, 1)
	assert.Equal(t, c.ID, byTag.Items[0].ID)

	byContent := s.Posts(PostQuery{Search: "CAMPUS"})
	require.Len(t, byContent.Items, 1)
	assert.Equal(t, b.ID, byContent.Items[0].ID)

	popular := s.Posts(PostQuery{Sort: SortPopular})
	assert.Equal(t, b.ID, popular.Items[0].ID)
	assert.Equal(t, c.ID, popular.Items[1].ID)

	paged := s.Posts(PostQuery{Limit: 2, Offset: 2})
	assert.Len(t, paged.Items, 2)
	assert.Equal(t, 4, paged.Total)

	beyond := s.Posts(PostQuery{Offset: 10})
	assert.Empty(t, beyond.Items)
}

func TestPostCountsViews(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Post(ctx, WelcomePostID, "")
	require.NoError(t, err)
	got, err := s.Post(ctx, WelcomePostID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Views)

	helpful := s.Posts(PostQuery{Sort: SortHelpful, Limit: 1})
	assert.Equal(t, WelcomePostID, helpful.Items[0].ID)

	_, err = s.Post(ctx, "nope", "")
	assert.ErrorIs(t, err, apperrors.ErrPostNotFound)
}

func TestFlushViewsWritesBatchedCounts(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryPersistence()
	s := NewStore(mem, zerolog.Nop())
	require.NoError(t, s.Load(ctx))

	for i := 0; i < 3; i++ {
		_, err := s.Post(ctx, WelcomePostID, "")
		require.NoError(t, err)
	}
	assert.Zero(t, mem.posts[WelcomePostID].Views, "views are not written per request")

	n, err := s.FlushViews(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, mem.posts[WelcomePostID].Views)

	n, err = s.FlushViews(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing pending after a flush")
}

// blockingViews holds SavePostViews until release is closed.
type blockingViews struct {
	*memoryPersistence
	started chan struct{}
	release chan struct{}
}

func (b blockingViews) SavePostViews(ctx context.Context, views map[string]int) error {
	close(b.started)
	<-b.release
	return b.memoryPersistence.SavePostViews(ctx, views)
}

func TestFlushViewsDoesNotBlockTheStore(t *testing.T) {
	ctx := context.Background()
	persistence := blockingViews{
		memoryPersistence: newMemoryPersistence(),
		started:           make(chan struct{}),
		release:           make(chan struct{}),
	}
	s := NewStore(persistence, zerolog.Nop())
	require.NoError(t, s.Load(ctx))
	_, err := s.Post(ctx, WelcomePostID, "")
	require.NoError(t, err)

	flushed := make(chan error, 1)
	go func() {
		_, err := s.FlushViews(ctx)
		flushed <- err
	}()
	<-persistence.started

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Post(ctx, WelcomePostID, "")
		_, _, _ = s.TogglePostLike(ctx, WelcomePostID, "u1")
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("store stayed locked during the view flush")
	}

	close(persistence.release)
	require.NoError(t, <-flushed)

	got, err := s.Post(ctx, WelcomePostID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Views)
	assert.Equal(t, 1, got.Likes)
}

type failingViews struct {
	*memoryPersistence
}

func (failingViews) SavePostViews(context.Context, map[string]int) error {
	return errors.New("db down")
}

func TestFailedFlushKeepsViewsPending(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryPersistence()
	s := NewStore(failingViews{memoryPersistence: mem}, zerolog.Nop())
	require.NoError(t, s.Load(ctx))
	_, err := s.Post(ctx, WelcomePostID, "")
	require.NoError(t, err)

	_, err = s.FlushViews(ctx)
	require.Error(t, err)

	s.persistence = mem
	n, err := s.FlushViews(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, mem.posts[WelcomePostID].Views)
}

func TestRepliesOrderingAndLastReply(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	post, _ := s.CreatePost(ctx, NewPost{Title: "q", Content: "?", Category: "academic"}, "asker")
	r1, err := s.CreateReply(ctx, NewReply{PostID: post.ID, Content: "first"}, "h1")
	require.NoError(t, err)
	clock.Advance(time.Second)
	r2, err := s.CreateReply(ctx, NewReply{PostID: post.ID, Content: "second"}, "h2")
	require.NoError(t, err)

	// an accepted solution sorts ahead of older replies
	s.mu.Lock()
	s.replyIndex[r2.ID].IsSolution = true
	s.mu.Unlock()

	replies, err := s.Replies(post.ID, "")
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, r2.ID, replies[0].ID)
	assert.Equal(t, r1.ID, replies[1].ID)

	got, _ := s.Post(ctx, post.ID, "")
	assert.Equal(t, 2, got.Replies)
	require.NotNil(t, got.LastReply)
	assert.Equal(t, "h2", got.LastReply.AuthorID)

	_, err = s.CreateReply(ctx, NewReply{PostID: "missing", Content: "x"}, "h1")
	assert.ErrorIs(t, err, apperrors.ErrPostNotFound)
}

func TestToggleReplyLike(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	post, _ := s.CreatePost(ctx, NewPost{Title: "q", Content: "?", Category: "general"}, "a")
	reply, _ := s.CreateReply(ctx, NewReply{PostID: post.ID, Content: "r"}, "b")

	liked, likes, err := s.ToggleReplyLike(ctx, reply.ID, "c")
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 1, likes)

	replies, _ := s.Replies(post.ID, "c")
	assert.True(t, replies[0].IsLiked)

	liked, likes, _ = s.ToggleReplyLike(ctx, reply.ID, "c")
	assert.False(t, liked)
	assert.Equal(t, 0, likes)

	_, _, err = s.ToggleReplyLike(ctx, "missing", "c")
	assert.ErrorIs(t, err, apperrors.ErrReplyNotFound)
}

func TestUserStatsAndAuthorInfo(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	_, err := s.RegisterMember(ctx, MemberProfile{ID: "ada", Name: "Ada", Email: "ada@uni.edu", Role: "MODERATOR"})
	require.NoError(t, err)

	post, _ := s.CreatePost(ctx, NewPost{Title: "t", Content: "c", Category: "general"}, "ada")
	_, _ = s.CreateReply(ctx, NewReply{PostID: post.ID, Content: "r"}, "ada")
	_, _, _ = s.TogglePostLike(ctx, post.ID, "fan")

	stats := s.UserStats("ada")
	assert.Equal(t, UserStats{Posts: 1, Replies: 1, Likes: 1, Reputation: 10 + 5 + 2}, stats)

	info := s.AuthorInfo("ada", false)
	assert.Equal(t, "Ada", info.Name)
	assert.Equal(t, 17, info.Reputation)
	assert.True(t, info.IsOnline)
	assert.True(t, info.IsModerator)

	clock.Advance(6 * time.Minute)
	assert.False(t, s.AuthorInfo("ada", false).IsOnline)

	anon := s.AuthorInfo("ada", true)
	assert.Equal(t, "Anonymous", anon.Name)
	assert.Zero(t, anon.Reputation)

	system := s.AuthorInfo(SystemAuthorID, false)
	assert.Equal(t, 1000, system.Reputation)
	assert.True(t, system.IsOnline)

	unknown := s.AuthorInfo("ghost", false)
	assert.Equal(t, "Community Member", unknown.Name)
	assert.False(t, unknown.IsOnline)
}

func TestStatsAndCategoryStats(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	clock.Advance(48 * time.Hour)
	post, _ := s.CreatePost(ctx, NewPost{Title: "t", Content: "c", Category: "tech"}, "u1")
	_, _ = s.CreateReply(ctx, NewReply{PostID: post.ID, Content: "r"}, "u2")

	st := s.Stats()
	assert.Equal(t, 2, st.TotalPosts)
	assert.Equal(t, 1, st.TotalReplies)
	assert.Equal(t, 2, st.ActiveUsers)
	assert.Equal(t, 1, st.PostsToday)
	assert.Equal(t, 2, st.PostsThisWeek)
	assert.Equal(t, 2, st.OnlineNow)

	cats := s.CategoryStats()
	require.Len(t, cats, len(Categories))
	counts := map[string]int{}
	for _, c := range cats {
		counts[c.ID] = c.Count
	}
	assert.Equal(t, 2, counts[CategoryAll])
	assert.Equal(t, 1, counts["tech"])
	assert.Equal(t, 1, counts["general"])
	assert.Equal(t, 0, counts["housing"])
}

func TestPublishesEvents(t *testing.T) {
	pub := &recordingPublisher{}
	s, _ := newTestStore(t, WithPublisher(pub))
	ctx := context.Background()

	post, _ := s.CreatePost(ctx, NewPost{Title: "t", Content: "c", Category: "general"}, "u")
	_, _ = s.CreateReply(ctx, NewReply{PostID: post.ID, Content: "r"}, "u")
	_, _, _ = s.TogglePostLike(ctx, post.ID, "v")
	require.NoError(t, s.DeletePost(ctx, post.ID, "admin", "spam"))

	assert.Equal(t, []EventType{EventPostCreated, EventReplyCreated, EventPostLiked, EventPostDeleted}, pub.types())
}

func TestConcurrentLikesAreConsistent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	post, _ := s.CreatePost(ctx, NewPost{Title: "t", Content: "c", Category: "general"}, "a")

	const users = 50
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", i)
			_, _, _ = s.TogglePostLike(ctx, post.ID, user)
			_ = s.Posts(PostQuery{ViewerID: user})
			if i%2 == 0 {
				_, _, _ = s.TogglePostLike(ctx, post.ID, user)
			}
		}(i)
	}
	wg.Wait()

	got, err := s.Post(ctx, post.ID, "")
	require.NoError(t, err)
	assert.Equal(t, users/2, got.Likes)
}

type failingPersistence struct {
	*memoryPersistence
}

func (failingPersistence) SavePostLike(context.Context, Post, string, bool) error {
	return errors.New("db down")
}

func TestWriteThroughFailureLeavesCacheUntouched(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := NewStore(failingPersistence{memoryPersistence: newMemoryPersistence()}, zerolog.Nop(), WithClock(clock.Now))
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))

	_, _, err := s.TogglePostLike(ctx, WelcomePostID, "u")
	require.Error(t, err)

	got, err := s.Post(ctx, WelcomePostID, "u")
	require.NoError(t, err)
	assert.Zero(t, got.Likes)
	assert.False(t, got.IsLiked)
}

func TestLoadHydratesFromPersistence(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryPersistence()

	first := NewStore(mem, zerolog.Nop())
	require.NoError(t, first.Load(ctx))
	post, err := first.CreatePost(ctx, NewPost{Title: "kept", Content: "c", Category: "social"}, "u1")
	require.NoError(t, err)
	_, _, err = first.TogglePostLike(ctx, post.ID, "u2")
	require.NoError(t, err)

	second := NewStore(mem, zerolog.Nop())
	require.NoError(t, second.Load(ctx))

	page := second.Posts(PostQuery{ViewerID: "u2"})
	require.Len(t, page.Items, 2)
	assert.Equal(t, post.ID, page.Items[0].ID)
	assert.Equal(t, 1, page.Items[0].Likes)
	assert.True(t, page.Items[0].IsLiked)
	assert.Equal(t, 1, second.UserStats("u1").Posts)
}
