// Package community holds the forum state: posts, replies, likes, reports and the
// moderation log.
//
// A Store is safe for concurrent use. Reads share an RWMutex, writes hold it exclusively
// for the whole mutation including the write-through to Persistence, so the cache and
// the database observe writes in the same order. View counts are the exception: they
// are counted in memory and written in batches by FlushViews without the lock.
package community

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/yigit/campuswell/internal/pkg/apperrors"
)

const (
	defaultPageSize  = 20
	defaultAdminPage = 50
	onlineWindow     = 5 * time.Minute
	dayWindow        = 24 * time.Hour
	weekWindow       = 7 * 24 * time.Hour
)

// Persistence is the durable side of the store. Every method except SavePostViews is
// called with the store lock held and must not call back into the Store.
type Persistence interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
	SavePost(ctx context.Context, post Post) error
	SavePostLike(ctx context.Context, post Post, userID string, liked bool) error
	SaveReply(ctx context.Context, reply Reply, post Post) error
	SaveReplyLike(ctx context.Context, reply Reply, userID string, liked bool) error
	DeletePost(ctx context.Context, postID string) error
	SaveReport(ctx context.Context, report Report) error
	SaveMember(ctx context.Context, member Member) error
	AppendAction(ctx context.Context, action AdminAction) error
	// SavePostViews raises the stored view count of each post to the given value. It
	// never lowers a count, so it may race with SavePost.
	SavePostViews(ctx context.Context, views map[string]int) error
}

// Store is the community state. The zero value is not usable, use NewStore.
type Store struct {
	mu sync.RWMutex

	posts      []*Post // newest first
	postIndex  map[string]*Post
	replies    []*Reply
	replyIndex map[string]*Reply
	postLikes  map[string]map[string]struct{}
	replyLikes map[string]map[string]struct{}
	reports    []*Report
	actions    []AdminAction
	members    map[string]*Member

	// posts viewed since the last FlushViews
	dirtyViews map[string]struct{}

	persistence Persistence
	publisher   Publisher
	now         func() time.Time
	logger      zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPublisher receives an Event after each committed mutation.
func WithPublisher(p Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

// NewStore creates an empty store. A nil persistence keeps everything in memory.
func NewStore(persistence Persistence, logger zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		postIndex:   make(map[string]*Post),
		replyIndex:  make(map[string]*Reply),
		postLikes:   make(map[string]map[string]struct{}),
		replyLikes:  make(map[string]map[string]struct{}),
		members:     make(map[string]*Member),
		dirtyViews:  make(map[string]struct{}),
		persistence: persistence,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the cache with the persisted state and seeds the welcome post
// when the forum is empty.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.persistence != nil {
		snap, err := s.persistence.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("failed to load community snapshot: %w", err)
		}
		s.hydrate(snap)
	}

	if len(s.posts) == 0 {
		welcome := welcomePost(s.now())
		if err := s.save(ctx, func(p Persistence) error { return p.SavePost(ctx, welcome) }); err != nil {
			return fmt.Errorf("failed to seed welcome post: %w", err)
		}
		s.insertPost(&welcome)
	}

	s.logger.Info().
		Int("posts", len(s.posts)).
		Int("replies", len(s.replies)).
		Int("members", len(s.members)).
		Msg("Community store loaded")
	return nil
}

func (s *Store) hydrate(snap *Snapshot) {
	s.posts = s.posts[:0]
	s.postIndex = make(map[string]*Post, len(snap.Posts))
	for i := range snap.Posts {
		p := snap.Posts[i]
		s.posts = append(s.posts, &p)
		s.postIndex[p.ID] = &p
	}
	sort.SliceStable(s.posts, func(i, j int) bool { return s.posts[i].CreatedAt.After(s.posts[j].CreatedAt) })

	s.replies = s.replies[:0]
	s.replyIndex = make(map[string]*Reply, len(snap.Replies))
	for i := range snap.Replies {
		r := snap.Replies[i]
		s.replies = append(s.replies, &r)
		s.replyIndex[r.ID] = &r
	}

	s.postLikes = toSets(snap.PostLikes)
	s.replyLikes = toSets(snap.ReplyLikes)

	s.reports = s.reports[:0]
	for i := range snap.Reports {
		r := snap.Reports[i]
		s.reports = append(s.reports, &r)
	}
	s.actions = append(s.actions[:0], snap.Actions...)

	s.members = make(map[string]*Member, len(snap.Members))
	for i := range snap.Members {
		m := snap.Members[i]
		s.members[m.ID] = &m
	}
}

func toSets(in map[string][]string) map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{}, len(in))
	for user, ids := range in {
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		out[user] = set
	}
	return out
}

// save runs fn against the persistence layer when one is configured.
func (s *Store) save(ctx context.Context, fn func(Persistence) error) error {
	if s.persistence == nil {
		return nil
	}
	if err := fn(s.persistence); err != nil {
		s.logger.Error().Err(err).Msg("Community write-through failed")
		return err
	}
	return nil
}

func (s *Store) publish(evt Event) {
	if s.publisher == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = s.now()
	}
	s.publisher.Publish(evt)
}

func (s *Store) insertPost(p *Post) {
	s.posts = append([]*Post{p}, s.posts...)
	s.postIndex[p.ID] = p
}

// CreatePost stores a new post at the head of the feed.
func (s *Store) CreatePost(ctx context.Context, in NewPost, authorID string) (*Post, error) {
	now := s.now()
	post := Post{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Content:     in.Content,
		AuthorID:    authorID,
		Category:    in.Category,
		Tags:        nonNil(in.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
		IsAnonymous: in.IsAnonymous,
	}

	s.mu.Lock()
	member := s.activity(authorID, now, 1, 0)
	err := s.save(ctx, func(p Persistence) error {
		if err := p.SavePost(ctx, post); err != nil {
			return err
		}
		return p.SaveMember(ctx, member)
	})
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	s.insertPost(&post)
	s.members[authorID] = &member
	out := post
	s.mu.Unlock()

	s.publish(Event{Type: EventPostCreated, Category: post.Category, PostID: post.ID, Payload: out})
	return &out, nil
}

// Posts returns one page of posts after filtering and sorting.
func (s *Store) Posts(q PostQuery) Page[Post] {
	limit, offset := pageBounds(q.Limit, q.Offset, defaultPageSize)
	search := strings.ToLower(strings.TrimSpace(q.Search))

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := lo.Filter(s.posts, func(p *Post, _ int) bool {
		if q.Category != "" && q.Category != CategoryAll && p.Category != q.Category {
			return false
		}
		if search == "" {
			return true
		}
		return strings.Contains(strings.ToLower(p.Title), search) ||
			strings.Contains(strings.ToLower(p.Content), search) ||
			lo.SomeBy(p.Tags, func(tag string) bool { return strings.Contains(strings.ToLower(tag), search) })
	})

	sort.SliceStable(matched, postLess(matched, q.Sort))

	liked := s.postLikes[q.ViewerID]
	items := lo.Map(window(matched, offset, limit), func(p *Post, _ int) Post {
		out := *p
		_, out.IsLiked = liked[p.ID]
		return out
	})
	return Page[Post]{Items: items, Total: len(matched)}
}

func postLess(posts []*Post, sortBy string) func(i, j int) bool {
	switch sortBy {
	case SortPopular:
		return func(i, j int) bool { return posts[i].Likes > posts[j].Likes }
	case SortDiscussed:
		return func(i, j int) bool { return posts[i].Replies > posts[j].Replies }
	case SortHelpful:
		return func(i, j int) bool { return posts[i].Views > posts[j].Views }
	default:
		return func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) }
	}
}

// Post returns a single post and counts the view. The count reaches Persistence on
// the next FlushViews.
func (s *Store) Post(_ context.Context, postID, viewerID string) (*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.postIndex[postID]
	if !ok {
		return nil, apperrors.ErrPostNotFound
	}

	post.Views++
	if s.persistence != nil {
		s.dirtyViews[postID] = struct{}{}
	}

	out := *post
	_, out.IsLiked = s.postLikes[viewerID][postID]
	return &out, nil
}

// FlushViews writes the view counts of posts viewed since the last flush and returns
// how many posts were written. The store lock is released before the write; on
// failure the posts stay pending for the next flush.
func (s *Store) FlushViews(ctx context.Context) (int, error) {
	if s.persistence == nil {
		return 0, nil
	}

	s.mu.Lock()
	batch := make(map[string]int, len(s.dirtyViews))
	for id := range s.dirtyViews {
		if post, ok := s.postIndex[id]; ok {
			batch[id] = post.Views
		}
	}
	s.dirtyViews = make(map[string]struct{})
	s.mu.Unlock()

	if len(batch) == 0 {
		return 0, nil
	}
	if err := s.persistence.SavePostViews(ctx, batch); err != nil {
		s.mu.Lock()
		for id := range batch {
			s.dirtyViews[id] = struct{}{}
		}
		s.mu.Unlock()
		s.logger.Error().Err(err).Int("posts", len(batch)).Msg("Failed to flush post views")
		return 0, fmt.Errorf("failed to flush post views: %w", err)
	}
	return len(batch), nil
}

// TogglePostLike flips the like of userID on a post and returns the new state.
func (s *Store) TogglePostLike(ctx context.Context, postID, userID string) (bool, int, error) {
	s.mu.Lock()
	post, ok := s.postIndex[postID]
	if !ok {
		s.mu.Unlock()
		return false, 0, apperrors.ErrPostNotFound
	}

	_, wasLiked := s.postLikes[userID][postID]
	next := *post
	next.Likes = adjust(next.Likes, !wasLiked)

	if err := s.save(ctx, func(p Persistence) error { return p.SavePostLike(ctx, next, userID, !wasLiked) }); err != nil {
		s.mu.Unlock()
		return false, 0, fmt.Errorf("failed to toggle like: %w", err)
	}
	post.Likes = next.Likes
	setMember(s.postLikes, userID, postID, !wasLiked)
	likes := post.Likes
	category := post.Category
	s.mu.Unlock()

	s.publish(Event{
		Type:     EventPostLiked,
		Category: category,
		PostID:   postID,
		Payload:  map[string]interface{}{"likes": likes},
	})
	return !wasLiked, likes, nil
}

// CreateReply appends a reply and bumps the parent post.
func (s *Store) CreateReply(ctx context.Context, in NewReply, authorID string) (*Reply, error) {
	now := s.now()

	s.mu.Lock()
	post, ok := s.postIndex[in.PostID]
	if !ok {
		s.mu.Unlock()
		return nil, apperrors.ErrPostNotFound
	}

	reply := Reply{
		ID:        uuid.NewString(),
		PostID:    in.PostID,
		Content:   in.Content,
		AuthorID:  authorID,
		CreatedAt: now,
	}
	next := *post
	next.Replies++
	next.LastReply = &LastReply{AuthorID: authorID, Timestamp: now}
	member := s.activity(authorID, now, 0, 1)

	err := s.save(ctx, func(p Persistence) error {
		if err := p.SaveReply(ctx, reply, next); err != nil {
			return err
		}
		return p.SaveMember(ctx, member)
	})
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to create reply: %w", err)
	}

	*post = next
	s.replies = append(s.replies, &reply)
	s.replyIndex[reply.ID] = &reply
	s.members[authorID] = &member
	out := reply
	category := post.Category
	s.mu.Unlock()

	s.publish(Event{Type: EventReplyCreated, Category: category, PostID: in.PostID, Payload: out})
	return &out, nil
}

// Replies lists the replies of a post, accepted solutions first then oldest first.
func (s *Store) Replies(postID, viewerID string) ([]Reply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.postIndex[postID]; !ok {
		return nil, apperrors.ErrPostNotFound
	}

	liked := s.replyLikes[viewerID]
	out := lo.FilterMap(s.replies, func(r *Reply, _ int) (Reply, bool) {
		if r.PostID != postID {
			return Reply{}, false
		}
		cp := *r
		_, cp.IsLiked = liked[r.ID]
		return cp, true
	})

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsSolution != out[j].IsSolution {
			return out[i].IsSolution
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ToggleReplyLike flips the like of userID on a reply and returns the new state.
func (s *Store) ToggleReplyLike(ctx context.Context, replyID, userID string) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reply, ok := s.replyIndex[replyID]
	if !ok {
		return false, 0, apperrors.ErrReplyNotFound
	}

	_, wasLiked := s.replyLikes[userID][replyID]
	next := *reply
	next.Likes = adjust(next.Likes, !wasLiked)

	if err := s.save(ctx, func(p Persistence) error { return p.SaveReplyLike(ctx, next, userID, !wasLiked) }); err != nil {
		return false, 0, fmt.Errorf("failed to toggle reply like: %w", err)
	}
	reply.Likes = next.Likes
	setMember(s.replyLikes, userID, replyID, !wasLiked)
	return !wasLiked, reply.Likes, nil
}

// activity returns the updated member record of userID after a post or reply.
// Unknown authors get a placeholder record.
func (s *Store) activity(userID string, now time.Time, posts, replies int) Member {
	var m Member
	if existing, ok := s.members[userID]; ok {
		m = *existing
	} else {
		m = placeholderMember(userID, now)
	}
	m.LastActive = now
	m.PostsCount += posts
	m.RepliesCount += replies
	return m
}

func placeholderMember(userID string, now time.Time) Member {
	return Member{
		ID:         userID,
		Name:       "Community Member",
		Role:       "USER",
		Status:     MemberActive,
		JoinedAt:   now,
		LastActive: now,
	}
}

func adjust(count int, up bool) int {
	if up {
		return count + 1
	}
	if count <= 0 {
		return 0
	}
	return count - 1
}

func setMember(sets map[string]map[string]struct{}, userID, id string, present bool) {
	set, ok := sets[userID]
	if !ok {
		if !present {
			return
		}
		set = make(map[string]struct{})
		sets[userID] = set
	}
	if present {
		set[id] = struct{}{}
		return
	}
	delete(set, id)
}

func pageBounds(limit, offset, def int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
