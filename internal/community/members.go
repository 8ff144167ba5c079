package community

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
)

// Category describes a forum category.
type Category struct {
	ID    string
	Name  string
	Icon  string
	Color string
}

// Categories is the fixed category list, "all" first.
var Categories = []Category{
	{ID: CategoryAll, Name: "All Posts", Icon: "📋", Color: "text-gray-600"},
	{ID: "general", Name: "General Discussion", Icon: "💬", Color: "text-blue-600"},
	{ID: "academic", Name: "Academic Help", Icon: "📚", Color: "text-green-600"},
	{ID: "wellness", Name: "Wellness & Mental Health", Icon: "💚", Color: "text-emerald-600"},
	{ID: "career", Name: "Career & Internships", Icon: "💼", Color: "text-purple-600"},
	{ID: "events", Name: "Events & Activities", Icon: "🎉", Color: "text-orange-600"},
	{ID: "housing", Name: "Housing & Roommates", Icon: "🏠", Color: "text-red-600"},
	{ID: "marketplace", Name: "Buy & Sell", Icon: "🛒", Color: "text-yellow-600"},
	{ID: "tech", Name: "Tech & Programming", Icon: "💻", Color: "text-indigo-600"},
	{ID: "social", Name: "Social & Meetups", Icon: "👥", Color: "text-pink-600"},
}

// IsCategory reports whether id names a postable category.
func IsCategory(id string) bool {
	return id != CategoryAll && lo.ContainsBy(Categories, func(c Category) bool { return c.ID == id })
}

// RegisterMember adds or refreshes the moderation record of a user. Counters and
// status of an existing member are kept.
func (s *Store) RegisterMember(ctx context.Context, profile MemberProfile) (*Member, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var m Member
	if existing, ok := s.members[profile.ID]; ok {
		m = *existing
	} else {
		m = placeholderMember(profile.ID, now)
		if !profile.JoinedAt.IsZero() {
			m.JoinedAt = profile.JoinedAt
		}
	}
	if profile.Name != "" {
		m.Name = profile.Name
	}
	if profile.Email != "" {
		m.Email = profile.Email
	}
	if profile.Role != "" {
		m.Role = profile.Role
	}
	m.LastActive = now

	if err := s.save(ctx, func(p Persistence) error { return p.SaveMember(ctx, m) }); err != nil {
		return nil, fmt.Errorf("failed to register member: %w", err)
	}
	s.members[m.ID] = &m
	out := m
	return &out, nil
}

// MemberStatus returns the status of a member, active when unknown.
func (s *Store) MemberStatus(userID string) MemberStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.members[userID]; ok {
		return m.Status
	}
	return MemberActive
}

// AuthorInfo builds the byline for content written by authorID.
func (s *Store) AuthorInfo(authorID string, anonymous bool) AuthorInfo {
	if anonymous {
		return AuthorInfo{ID: "anonymous", Name: "Anonymous"}
	}
	if authorID == SystemAuthorID {
		return AuthorInfo{ID: SystemAuthorID, Name: "CampusWell Team", Reputation: 1000, IsOnline: true, IsModerator: true}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	info := AuthorInfo{ID: authorID, Name: "Community Member"}
	if m, ok := s.members[authorID]; ok {
		info.Name = m.Name
		info.IsOnline = s.now().Sub(m.LastActive) <= onlineWindow
		info.IsModerator = m.Role == "MODERATOR" || m.Role == "ADMIN"
	}
	info.Reputation = s.userStats(authorID).Reputation
	return info
}

// UserStats returns the footprint of userID. Likes counts likes received.
func (s *Store) UserStats(userID string) UserStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userStats(userID)
}

func (s *Store) userStats(userID string) UserStats {
	var st UserStats
	for _, p := range s.posts {
		if p.AuthorID == userID {
			st.Posts++
			st.Likes += p.Likes
		}
	}
	for _, r := range s.replies {
		if r.AuthorID == userID {
			st.Replies++
			st.Likes += r.Likes
		}
	}
	st.Reputation = st.Posts*10 + st.Replies*5 + st.Likes*2
	return st
}

// Stats summarises forum activity.
func (s *Store) Stats() Stats {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	authors := make(map[string]struct{})
	st := Stats{
		TotalPosts:   len(s.posts),
		TotalReplies: len(s.replies),
		TotalUsers:   len(s.members),
	}
	for _, p := range s.posts {
		if p.AuthorID != SystemAuthorID {
			authors[p.AuthorID] = struct{}{}
		}
		age := now.Sub(p.CreatedAt)
		if age <= dayWindow {
			st.PostsToday++
		}
		if age <= weekWindow {
			st.PostsThisWeek++
		}
	}
	for _, r := range s.replies {
		authors[r.AuthorID] = struct{}{}
	}
	st.ActiveUsers = len(authors)

	for _, m := range s.members {
		idle := now.Sub(m.LastActive)
		if idle <= dayWindow {
			st.ActiveToday++
		}
		if idle <= onlineWindow {
			st.OnlineNow++
		}
	}
	return st
}

// CategoryStats counts posts per category.
func (s *Store) CategoryStats() []CategoryStat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := lo.CountValuesBy(s.posts, func(p *Post) string { return p.Category })
	return lo.Map(Categories, func(c Category, _ int) CategoryStat {
		count := counts[c.ID]
		if c.ID == CategoryAll {
			count = len(s.posts)
		}
		return CategoryStat{ID: c.ID, Name: c.Name, Icon: c.Icon, Color: c.Color, Count: count}
	})
}

// PostCount counts posts in a category.
func (s *Store) PostCount(category string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.CountBy(s.posts, func(p *Post) bool { return p.Category == category })
}

// UserActivity returns the latest posts and replies written by userID.
func (s *Store) UserActivity(userID string, limit int) ([]Post, []Reply) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := lo.FilterMap(s.posts, func(p *Post, _ int) (Post, bool) { return *p, p.AuthorID == userID })
	replies := lo.FilterMap(s.replies, func(r *Reply, _ int) (Reply, bool) { return *r, r.AuthorID == userID })
	sort.SliceStable(replies, func(i, j int) bool { return replies[i].CreatedAt.After(replies[j].CreatedAt) })
	return window(posts, 0, limit), window(replies, 0, limit)
}

// PostsSince counts posts written by userID at or after since.
func (s *Store) PostsSince(userID string, since time.Time) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.CountBy(s.posts, func(p *Post) bool {
		return p.AuthorID == userID && !p.CreatedAt.Before(since)
	})
}

func welcomePost(now time.Time) Post {
	created := now.Add(-dayWindow)
	return Post{
		ID:    WelcomePostID,
		Title: "Welcome to the Student Community Forum! 🎉",
		Content: `Hello and welcome to our student community forum!

This is a space where students can:
• Ask questions and get help with academic topics
• Share resources and study tips
• Connect with fellow students
• Discuss wellness and mental health
• Find study groups and collaboration opportunities
• Share career advice and internship opportunities

To get started:
1. Complete your profile to connect better with the community
2. Browse different categories to find topics that interest you
3. Create your first post or reply to existing discussions
4. Be respectful and follow our community guidelines

We're excited to have you here! Feel free to introduce yourself and let us know what you're studying.

Happy learning! 📚✨`,
		AuthorID:  SystemAuthorID,
		Category:  "general",
		Tags:      []string{"welcome", "introduction", "community"},
		CreatedAt: created,
		UpdatedAt: created,
		IsPinned:  true,
	}
}
