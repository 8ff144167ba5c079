package community

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/yigit/campuswell/internal/pkg/apperrors"
)

// Admin post filters.
const (
	AdminFilterAll      = "all"
	AdminFilterPinned   = "pinned"
	AdminFilterReported = "reported"
)

// AdminPosts lists posts for moderation, newest first.
func (s *Store) AdminPosts(filter string, limit, offset int) Page[Post] {
	limit, offset = pageBounds(limit, offset, defaultAdminPage)

	s.mu.RLock()
	defer s.mu.RUnlock()

	reported := lo.SliceToMap(s.reports, func(r *Report) (string, struct{}) { return r.PostID, struct{}{} })
	matched := lo.Filter(s.posts, func(p *Post, _ int) bool {
		switch filter {
		case AdminFilterPinned:
			return p.IsPinned
		case AdminFilterReported:
			_, ok := reported[p.ID]
			return ok
		default:
			return true
		}
	})
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	items := lo.Map(window(matched, offset, limit), func(p *Post, _ int) Post { return *p })
	return Page[Post]{Items: items, Total: len(matched)}
}

// TogglePostPin flips the pinned flag and logs the action.
func (s *Store) TogglePostPin(ctx context.Context, postID, adminID string) (bool, error) {
	s.mu.Lock()
	post, ok := s.postIndex[postID]
	if !ok {
		s.mu.Unlock()
		return false, apperrors.ErrPostNotFound
	}

	next := *post
	next.IsPinned = !post.IsPinned
	next.UpdatedAt = s.now()

	actionType, verb := ActionPostPinned, "pinned"
	if !next.IsPinned {
		actionType, verb = ActionPostUnpinned, "unpinned"
	}
	action := s.newAction(actionType, adminID, postID, TargetPost, "Admin action",
		fmt.Sprintf("Post %q %s", post.Title, verb))

	err := s.save(ctx, func(p Persistence) error {
		if err := p.SavePost(ctx, next); err != nil {
			return err
		}
		return p.AppendAction(ctx, action)
	})
	if err != nil {
		s.mu.Unlock()
		return false, fmt.Errorf("failed to toggle pin: %w", err)
	}
	*post = next
	s.actions = append(s.actions, action)
	category := post.Category
	s.mu.Unlock()

	s.publish(Event{
		Type:     EventPostPinned,
		Category: category,
		PostID:   postID,
		Payload:  map[string]interface{}{"isPinned": next.IsPinned},
	})
	return next.IsPinned, nil
}

// DeletePost removes a post with its replies and likes.
func (s *Store) DeletePost(ctx context.Context, postID, adminID, reason string) error {
	s.mu.Lock()
	post, ok := s.postIndex[postID]
	if !ok {
		s.mu.Unlock()
		return apperrors.ErrPostNotFound
	}

	action := s.newAction(ActionPostDeleted, adminID, postID, TargetPost, reason,
		fmt.Sprintf("Post %q deleted", post.Title))
	err := s.save(ctx, func(p Persistence) error {
		if err := p.DeletePost(ctx, postID); err != nil {
			return err
		}
		return p.AppendAction(ctx, action)
	})
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to delete post: %w", err)
	}

	s.posts = lo.Reject(s.posts, func(p *Post, _ int) bool { return p.ID == postID })
	delete(s.postIndex, postID)

	removed := make(map[string]struct{})
	s.replies = lo.Reject(s.replies, func(r *Reply, _ int) bool {
		if r.PostID != postID {
			return false
		}
		removed[r.ID] = struct{}{}
		delete(s.replyIndex, r.ID)
		return true
	})
	for _, set := range s.postLikes {
		delete(set, postID)
	}
	for _, set := range s.replyLikes {
		for id := range removed {
			delete(set, id)
		}
	}
	s.actions = append(s.actions, action)
	category := post.Category
	s.mu.Unlock()

	s.publish(Event{Type: EventPostDeleted, Category: category, PostID: postID})
	return nil
}

// CreateReport files a pending report against a post.
func (s *Store) CreateReport(ctx context.Context, in NewReport) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.postIndex[in.PostID]
	if !ok {
		return nil, apperrors.ErrPostNotFound
	}

	report := Report{
		ID:           uuid.NewString(),
		Type:         in.Type,
		PostID:       in.PostID,
		PostTitle:    post.Title,
		ReporterID:   in.ReporterID,
		ReporterName: in.ReporterName,
		Reason:       in.Reason,
		CreatedAt:    s.now(),
		Status:       ReportPending,
	}

	var author *Member
	if m, ok := s.members[post.AuthorID]; ok {
		next := *m
		next.ReportsCount++
		author = &next
	}

	err := s.save(ctx, func(p Persistence) error {
		if err := p.SaveReport(ctx, report); err != nil {
			return err
		}
		if author != nil {
			return p.SaveMember(ctx, *author)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	s.reports = append(s.reports, &report)
	if author != nil {
		s.members[author.ID] = author
	}
	out := report
	return &out, nil
}

// Reports lists reports, newest first. An empty or "all" status disables filtering.
func (s *Store) Reports(status string, limit, offset int) Page[Report] {
	limit, offset = pageBounds(limit, offset, defaultAdminPage)

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := lo.FilterMap(s.reports, func(r *Report, _ int) (Report, bool) {
		return *r, status == "" || status == "all" || string(r.Status) == status
	})
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return Page[Report]{Items: window(matched, offset, limit), Total: len(matched)}
}

// UpdateReportStatus assigns the report to adminID and moves it to status.
func (s *Store) UpdateReportStatus(ctx context.Context, reportID string, status ReportStatus, adminID, resolution string) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := lo.Find(s.reports, func(r *Report) bool { return r.ID == reportID })
	if !ok {
		return nil, apperrors.ErrReportNotFound
	}

	next := *report
	next.Status = status
	next.AssignedTo = &adminID
	if resolution != "" {
		next.Resolution = &resolution
	}
	action := s.newAction(ActionReportResolved, adminID, reportID, TargetReport, "Report status updated",
		fmt.Sprintf("Report %s marked as %s", reportID, status))

	err := s.save(ctx, func(p Persistence) error {
		if err := p.SaveReport(ctx, next); err != nil {
			return err
		}
		return p.AppendAction(ctx, action)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update report: %w", err)
	}
	*report = next
	s.actions = append(s.actions, action)
	out := next
	return &out, nil
}

// AdminActions returns the moderation log, newest first.
func (s *Store) AdminActions(limit, offset int) []AdminAction {
	limit, offset = pageBounds(limit, offset, defaultAdminPage)

	s.mu.RLock()
	defer s.mu.RUnlock()

	// walk backwards so entries sharing a timestamp stay newest first
	out := make([]AdminAction, 0, len(s.actions))
	for i := len(s.actions) - 1; i >= 0; i-- {
		out = append(out, s.actions[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return window(out, offset, limit)
}

// Members lists members, most recently joined first.
func (s *Store) Members(status string, limit, offset int) Page[Member] {
	limit, offset = pageBounds(limit, offset, defaultAdminPage)

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Member, 0, len(s.members))
	for _, m := range s.members {
		if status == "" || status == "all" || string(m.Status) == status {
			matched = append(matched, *m)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].JoinedAt.Equal(matched[j].JoinedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].JoinedAt.After(matched[j].JoinedAt)
	})
	return Page[Member]{Items: window(matched, offset, limit), Total: len(matched)}
}

// UpdateMemberStatus changes the standing of a member and logs the matching action.
func (s *Store) UpdateMemberStatus(ctx context.Context, userID string, status MemberStatus, adminID, reason string) (*Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[userID]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}

	old := member.Status
	next := *member
	next.Status = status
	if status == MemberWarned {
		next.WarningsCount++
	}

	var actionType ActionType
	switch {
	case status == MemberBanned:
		actionType = ActionUserBanned
	case status == MemberActive && old == MemberBanned:
		actionType = ActionUserUnbanned
	default:
		actionType = ActionUserWarned
	}
	action := s.newAction(actionType, adminID, userID, TargetUser, reason,
		fmt.Sprintf("User %s status changed from %s to %s", member.Name, old, status))

	err := s.save(ctx, func(p Persistence) error {
		if err := p.SaveMember(ctx, next); err != nil {
			return err
		}
		return p.AppendAction(ctx, action)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update member status: %w", err)
	}
	*member = next
	s.actions = append(s.actions, action)
	out := next
	return &out, nil
}

// AdminStats feeds the moderation dashboard.
func (s *Store) AdminStats() AdminStats {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	st := AdminStats{
		TotalPosts: len(s.posts),
		TotalUsers: len(s.members),
		PostsThisWeek: lo.CountBy(s.posts, func(p *Post) bool {
			return now.Sub(p.CreatedAt) <= weekWindow
		}),
	}
	for _, r := range s.reports {
		switch r.Status {
		case ReportPending:
			st.PendingReports++
		case ReportResolved:
			st.ResolvedReports++
		}
		if now.Sub(r.CreatedAt) <= weekWindow {
			st.ReportsThisWeek++
		}
	}
	for _, m := range s.members {
		switch m.Status {
		case MemberActive:
			st.ActiveUsers++
		case MemberBanned:
			st.BannedUsers++
		}
	}
	return st
}

func (s *Store) newAction(t ActionType, by, target string, tt TargetType, reason, details string) AdminAction {
	return AdminAction{
		ID:          uuid.NewString(),
		Type:        t,
		PerformedBy: by,
		TargetID:    target,
		TargetType:  tt,
		Reason:      reason,
		Details:     details,
		CreatedAt:   s.now(),
	}
}
