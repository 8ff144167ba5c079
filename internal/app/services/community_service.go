package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/yigit/campuswell/internal/app/models/dto"
	"github.com/yigit/campuswell/internal/app/repositories"
	"github.com/yigit/campuswell/internal/community"
	"github.com/yigit/campuswell/internal/pkg/apperrors"
	"github.com/yigit/campuswell/internal/pkg/helpers"
	"github.com/yigit/campuswell/internal/security/sanitize"
)

// CommunityBoard is the in-memory community state. *community.Store implements it.
type CommunityBoard interface {
	CreatePost(ctx context.Context, in community.NewPost, authorID string) (*community.Post, error)
	Posts(q community.PostQuery) community.Page[community.Post]
	Post(ctx context.Context, postID, viewerID string) (*community.Post, error)
	TogglePostLike(ctx context.Context, postID, userID string) (bool, int, error)
	CreateReply(ctx context.Context, in community.NewReply, authorID string) (*community.Reply, error)
	Replies(postID, viewerID string) ([]community.Reply, error)
	ToggleReplyLike(ctx context.Context, replyID, userID string) (bool, int, error)
	CreateReport(ctx context.Context, in community.NewReport) (*community.Report, error)
	Stats() community.Stats
	CategoryStats() []community.CategoryStat
	UserStats(userID string) community.UserStats
	PostCount(category string) int
	MemberStatus(userID string) community.MemberStatus
	AuthorInfo(authorID string, anonymous bool) community.AuthorInfo

	AdminPosts(filter string, limit, offset int) community.Page[community.Post]
	TogglePostPin(ctx context.Context, postID, adminID string) (bool, error)
	DeletePost(ctx context.Context, postID, adminID, reason string) error
	Reports(status string, limit, offset int) community.Page[community.Report]
	UpdateReportStatus(ctx context.Context, reportID string, status community.ReportStatus, adminID, resolution string) (*community.Report, error)
	AdminActions(limit, offset int) []community.AdminAction
	Members(status string, limit, offset int) community.Page[community.Member]
	UpdateMemberStatus(ctx context.Context, userID string, status community.MemberStatus, adminID, reason string) (*community.Member, error)
	AdminStats() community.AdminStats
}

// PreferenceStore persists forum interests and onboarding state.
type PreferenceStore interface {
	GetPreferences(ctx context.Context, userID string) (*repositories.CommunityPreferences, bool, error)
	SavePreferences(ctx context.Context, p *repositories.CommunityPreferences) error
	ForumMemberCounts(ctx context.Context) (map[string]int, error)
}

// forum is a fixed interest group; category is the post category its posts are counted from.
type forum struct {
	dto.Forum
	category string
}

var forums = []forum{
	{dto.Forum{ID: "academic-help", Name: "Academic Help", Description: "Get help with assignments, study tips, and academic guidance from fellow students", Icon: "book", Color: "bg-blue-100 text-blue-700 border-blue-200", IsPopular: true}, "academic"},
	{dto.Forum{ID: "career-guidance", Name: "Career Guidance", Description: "Discuss career paths, internships, job opportunities, and professional development", Icon: "briefcase", Color: "bg-purple-100 text-purple-700 border-purple-200", IsPopular: true}, "career"},
	{dto.Forum{ID: "mental-wellness", Name: "Mental Wellness", Description: "Share experiences, support each other, and discuss mental health resources", Icon: "heart", Color: "bg-green-100 text-green-700 border-green-200"}, "wellness"},
	{dto.Forum{ID: "tech-innovation", Name: "Tech & Innovation", Description: "Explore latest technologies, coding projects, and innovative ideas", Icon: "computer", Color: "bg-indigo-100 text-indigo-700 border-indigo-200", IsPopular: true}, "tech"},
	{dto.Forum{ID: "creative-arts", Name: "Creative Arts", Description: "Share your creative work, get feedback, and collaborate on artistic projects", Icon: "palette", Color: "bg-pink-100 text-pink-700 border-pink-200"}, "social"},
	{dto.Forum{ID: "sports-fitness", Name: "Sports & Fitness", Description: "Discuss fitness routines, sports events, and healthy lifestyle tips", Icon: "fitness", Color: "bg-orange-100 text-orange-700 border-orange-200"}, "events"},
	{dto.Forum{ID: "campus-life", Name: "Campus Life", Description: "Share campus experiences, events, and connect with fellow students", Icon: "building", Color: "bg-teal-100 text-teal-700 border-teal-200"}, "general"},
	{dto.Forum{ID: "study-groups", Name: "Study Groups", Description: "Form study groups, share notes, and collaborate on academic projects", Icon: "users", Color: "bg-cyan-100 text-cyan-700 border-cyan-200"}, "academic"},
}

// IsForum reports whether id names one of the forums.
func IsForum(id string) bool {
	return lo.ContainsBy(forums, func(f forum) bool { return f.ID == id })
}

// CommunityService adds bylines, sanitization and membership rules on top of the board.
type CommunityService struct {
	board  CommunityBoard
	prefs  PreferenceStore
	now    func() time.Time
	logger zerolog.Logger
}

// NewCommunityService creates a new CommunityService
func NewCommunityService(board CommunityBoard, prefs PreferenceStore, logger zerolog.Logger) *CommunityService {
	return &CommunityService{
		board:  board,
		prefs:  prefs,
		now:    time.Now,
		logger: logger,
	}
}

func (s *CommunityService) withAuthor(p community.Post) dto.PostResponse {
	return dto.PostResponse{Post: p, Author: s.board.AuthorInfo(p.AuthorID, p.IsAnonymous)}
}

func (s *CommunityService) replyWithAuthor(r community.Reply) dto.ReplyResponse {
	return dto.ReplyResponse{Reply: r, Author: s.board.AuthorInfo(r.AuthorID, false)}
}

func (s *CommunityService) canWrite(userID string) error {
	switch s.board.MemberStatus(userID) {
	case community.MemberSuspended:
		return apperrors.NewForbiddenError("Your account is suspended from posting")
	case community.MemberBanned:
		return apperrors.NewForbiddenError("Your account is banned from the community")
	}
	return nil
}

func cleanContent(field, value string, maxLength int) (string, error) {
	res := sanitize.Sanitize(value, sanitize.Options{
		MaxLength:        maxLength,
		AllowSQLPatterns: true,
		PreserveNewlines: true,
		FieldType:        sanitize.FieldText,
	})
	if res.SanitizedValue == "" {
		return "", apperrors.NewValidationError(field, "Content is empty after removing markup")
	}
	return res.SanitizedValue, nil
}

const (
	adminPageSize    = 50
	maxAdminPageSize = 200
)

func adminPage(q *dto.AdminListQuery) (int, int) {
	return helpers.ClampPage(q.Limit, q.Offset, adminPageSize, maxAdminPageSize)
}

// Posts lists posts with their bylines.
func (s *CommunityService) Posts(q *dto.PostListQuery, viewerID string) *dto.PostListResponse {
	limit, offset := helpers.ClampPage(q.Limit, q.Offset, helpers.DefaultPageSize, helpers.MaxPageSize)
	page := s.board.Posts(community.PostQuery{
		Category: q.Category,
		Sort:     q.Sort,
		Search:   q.Search,
		ViewerID: viewerID,
		Limit:    limit,
		Offset:   offset,
	})
	return &dto.PostListResponse{
		Posts:      lo.Map(page.Items, func(p community.Post, _ int) dto.PostResponse { return s.withAuthor(p) }),
		Pagination: helpers.NewPaginationInfo(page.Total, limit, offset, len(page.Items)),
	}
}

// CreatePost sanitizes and stores a post written by authorID.
func (s *CommunityService) CreatePost(ctx context.Context, authorID string, req *dto.CreatePostRequest) (*dto.PostResponse, error) {
	if err := s.canWrite(authorID); err != nil {
		return nil, err
	}
	if !community.IsCategory(req.Category) {
		return nil, apperrors.NewValidationError("category", "Unknown category")
	}
	title, err := cleanContent("title", req.Title, 200)
	if err != nil {
		return nil, err
	}
	content, err := cleanContent("content", req.Content, 10000)
	if err != nil {
		return nil, err
	}

	post, err := s.board.CreatePost(ctx, community.NewPost{
		Title:       title,
		Content:     content,
		Category:    req.Category,
		Tags:        cleanList(req.Tags, 30),
		IsAnonymous: req.IsAnonymous,
	}, authorID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("postID", post.ID).Str("category", post.Category).Msg("Post created")

	resp := s.withAuthor(*post)
	return &resp, nil
}

// Post returns a post and counts the view.
func (s *CommunityService) Post(ctx context.Context, postID, viewerID string) (*dto.PostResponse, error) {
	post, err := s.board.Post(ctx, postID, viewerID)
	if err != nil {
		return nil, err
	}
	resp := s.withAuthor(*post)
	return &resp, nil
}

// TogglePostLike flips the caller's like on a post.
func (s *CommunityService) TogglePostLike(ctx context.Context, postID, userID string) (*dto.LikeResponse, error) {
	liked, likes, err := s.board.TogglePostLike(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	return &dto.LikeResponse{Liked: liked, Likes: likes}, nil
}

// Replies lists the replies of a post, solution first.
func (s *CommunityService) Replies(postID, viewerID string) ([]dto.ReplyResponse, error) {
	replies, err := s.board.Replies(postID, viewerID)
	if err != nil {
		return nil, err
	}
	return lo.Map(replies, func(r community.Reply, _ int) dto.ReplyResponse { return s.replyWithAuthor(r) }), nil
}

// CreateReply sanitizes and stores a reply.
func (s *CommunityService) CreateReply(ctx context.Context, postID, authorID string, req *dto.CreateReplyRequest) (*dto.ReplyResponse, error) {
	if err := s.canWrite(authorID); err != nil {
		return nil, err
	}
	content, err := cleanContent("content", req.Content, 5000)
	if err != nil {
		return nil, err
	}
	reply, err := s.board.CreateReply(ctx, community.NewReply{PostID: postID, Content: content}, authorID)
	if err != nil {
		return nil, err
	}
	resp := s.replyWithAuthor(*reply)
	return &resp, nil
}

// ToggleReplyLike flips the caller's like on a reply.
func (s *CommunityService) ToggleReplyLike(ctx context.Context, replyID, userID string) (*dto.LikeResponse, error) {
	liked, likes, err := s.board.ToggleReplyLike(ctx, replyID, userID)
	if err != nil {
		return nil, err
	}
	return &dto.LikeResponse{Liked: liked, Likes: likes}, nil
}

// Report files a report against a post.
func (s *CommunityService) Report(ctx context.Context, postID, reporterID string, req *dto.CreateReportRequest) (*community.Report, error) {
	reason, err := cleanContent("reason", req.Reason, 1000)
	if err != nil {
		return nil, err
	}
	report, err := s.board.CreateReport(ctx, community.NewReport{
		PostID:       postID,
		ReporterID:   reporterID,
		ReporterName: s.board.AuthorInfo(reporterID, false).Name,
		Type:         req.Type,
		Reason:       reason,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("reportID", report.ID).Str("postID", postID).Str("type", string(report.Type)).Msg("Post reported")
	return report, nil
}

// Stats returns community wide numbers.
func (s *CommunityService) Stats() community.Stats {
	return s.board.Stats()
}

// Categories returns the categories with their post counts.
func (s *CommunityService) Categories() []community.CategoryStat {
	return s.board.CategoryStats()
}

// UserStats returns the community footprint of a member.
func (s *CommunityService) UserStats(userID string) community.UserStats {
	return s.board.UserStats(userID)
}

func (s *CommunityService) interests(ctx context.Context, userID string) ([]string, error) {
	prefs, ok, err := s.prefs.GetPreferences(ctx, userID)
	if err != nil || !ok {
		return nil, err
	}
	return prefs.Interests, nil
}

// forumList decorates the forums with live counts and the caller's membership.
func (s *CommunityService) forumList(ctx context.Context, joined []string) []dto.Forum {
	members, err := s.prefs.ForumMemberCounts(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Forum member counts unavailable")
		members = map[string]int{}
	}
	return lo.Map(forums, func(f forum, _ int) dto.Forum {
		out := f.Forum
		out.MemberCount = members[f.ID]
		out.PostCount = s.board.PostCount(f.category)
		out.IsJoined = lo.Contains(joined, f.ID)
		return out
	})
}

// Forums lists the forums; userID may be empty for anonymous callers.
func (s *CommunityService) Forums(ctx context.Context, userID string) (*dto.ForumListResponse, error) {
	var joined []string
	if userID != "" {
		var err error
		if joined, err = s.interests(ctx, userID); err != nil {
			return nil, err
		}
	}
	list := s.forumList(ctx, joined)
	return &dto.ForumListResponse{Forums: list, TotalForums: len(list)}, nil
}

// Preferences returns the community profile of userID.
func (s *CommunityService) Preferences(ctx context.Context, userID string) (*dto.CommunityPreferencesResponse, error) {
	prefs, ok, err := s.prefs.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &dto.CommunityPreferencesResponse{UserID: userID, Interests: []string{}, CreatedAt: s.now().UTC()}, nil
	}
	return &dto.CommunityPreferencesResponse{
		UserID:                 prefs.UserID,
		Interests:              lo.Ternary(prefs.Interests == nil, []string{}, prefs.Interests),
		HasCompletedOnboarding: prefs.HasCompletedOnboarding || len(prefs.Interests) > 0,
		CreatedAt:              prefs.CreatedAt,
	}, nil
}

func (s *CommunityService) save(ctx context.Context, userID string, interests []string, completed bool) (*repositories.CommunityPreferences, error) {
	now := s.now().UTC()
	prefs, ok, err := s.prefs.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		prefs = &repositories.CommunityPreferences{UserID: userID, CreatedAt: now}
	}
	prefs.Interests = interests
	prefs.UpdatedAt = now
	if completed && !prefs.HasCompletedOnboarding {
		prefs.HasCompletedOnboarding = true
		prefs.CompletedAt = &now
	}
	if err := s.prefs.SavePreferences(ctx, prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}

// UpdatePreferences replaces the forum interests of userID. Unknown forum ids are dropped.
func (s *CommunityService) UpdatePreferences(ctx context.Context, userID string, req *dto.UpdateCommunityPreferencesRequest) (*dto.CommunityPreferencesResponse, error) {
	interests := lo.Filter(lo.Uniq(req.Interests), func(id string, _ int) bool { return IsForum(id) })
	prefs, err := s.save(ctx, userID, interests, false)
	if err != nil {
		return nil, err
	}
	return &dto.CommunityPreferencesResponse{
		UserID:                 prefs.UserID,
		Interests:              interests,
		HasCompletedOnboarding: prefs.HasCompletedOnboarding || len(interests) > 0,
		CreatedAt:              prefs.CreatedAt,
	}, nil
}

// PersonalizedFeed splits the forums into joined and other.
func (s *CommunityService) PersonalizedFeed(ctx context.Context, userID string) (*dto.PersonalizedFeedResponse, error) {
	joined, err := s.interests(ctx, userID)
	if err != nil {
		return nil, err
	}
	mine, other := lo.FilterReject(s.forumList(ctx, joined), func(f dto.Forum, _ int) bool { return f.IsJoined })
	return &dto.PersonalizedFeedResponse{
		PersonalizedForums: mine,
		OtherForums:        other,
		HasPersonalization: len(mine) > 0,
	}, nil
}

// CompleteOnboarding saves the forums picked during onboarding. At least one must be valid.
func (s *CommunityService) CompleteOnboarding(ctx context.Context, userID string, req *dto.CompleteOnboardingRequest) (*dto.OnboardingResponse, error) {
	interests := lo.Filter(lo.Uniq(req.SelectedForums), func(id string, _ int) bool { return IsForum(id) })
	if len(interests) == 0 {
		return nil, apperrors.NewValidationError("selectedForums", "At least one valid interest must be selected")
	}
	prefs, err := s.save(ctx, userID, interests, true)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("userID", userID).Strs("interests", interests).Msg("Community onboarding completed")
	return &dto.OnboardingResponse{Interests: interests, CompletedAt: *prefs.CompletedAt}, nil
}

// AdminPosts lists posts for moderation.
func (s *CommunityService) AdminPosts(q *dto.AdminListQuery) dto.PaginatedResponse {
	limit, offset := adminPage(q)
	page := s.board.AdminPosts(q.Status, limit, offset)
	return dto.PaginatedResponse{
		Items:      lo.Map(page.Items, func(p community.Post, _ int) dto.PostResponse { return s.withAuthor(p) }),
		Pagination: helpers.NewPaginationInfo(page.Total, limit, offset, len(page.Items)),
	}
}

// TogglePin flips the pinned flag of a post.
func (s *CommunityService) TogglePin(ctx context.Context, postID, adminID string) (*dto.PinResponse, error) {
	pinned, err := s.board.TogglePostPin(ctx, postID, adminID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("postID", postID).Str("adminID", adminID).Bool("pinned", pinned).Msg("Post pin toggled")
	return &dto.PinResponse{IsPinned: pinned}, nil
}

// DeletePost removes a post and its replies.
func (s *CommunityService) DeletePost(ctx context.Context, postID, adminID string, req *dto.DeletePostRequest) error {
	if err := s.board.DeletePost(ctx, postID, adminID, sanitize.Text(req.Reason, 500)); err != nil {
		return err
	}
	s.logger.Info().Str("postID", postID).Str("adminID", adminID).Msg("Post deleted by moderator")
	return nil
}

// Reports lists reports filtered by status.
func (s *CommunityService) Reports(q *dto.AdminListQuery) dto.PaginatedResponse {
	limit, offset := adminPage(q)
	page := s.board.Reports(q.Status, limit, offset)
	return dto.PaginatedResponse{Items: page.Items, Pagination: helpers.NewPaginationInfo(page.Total, limit, offset, len(page.Items))}
}

// UpdateReport moves a report through review.
func (s *CommunityService) UpdateReport(ctx context.Context, reportID, adminID string, req *dto.UpdateReportStatusRequest) (*community.Report, error) {
	return s.board.UpdateReportStatus(ctx, reportID, req.Status, adminID, sanitize.Text(req.Resolution, 1000))
}

// Actions lists the moderation log, newest first.
func (s *CommunityService) Actions(q *dto.AdminListQuery) []community.AdminAction {
	limit, offset := adminPage(q)
	return s.board.AdminActions(limit, offset)
}

// Members lists members filtered by status.
func (s *CommunityService) Members(q *dto.AdminListQuery) dto.PaginatedResponse {
	limit, offset := adminPage(q)
	page := s.board.Members(q.Status, limit, offset)
	return dto.PaginatedResponse{Items: page.Items, Pagination: helpers.NewPaginationInfo(page.Total, limit, offset, len(page.Items))}
}

// UpdateMemberStatus changes the standing of a member. Moderators cannot change their own.
func (s *CommunityService) UpdateMemberStatus(ctx context.Context, userID, adminID string, req *dto.UpdateMemberStatusRequest) (*community.Member, error) {
	if userID == adminID {
		return nil, apperrors.NewBadRequestError("You cannot change your own status")
	}
	member, err := s.board.UpdateMemberStatus(ctx, userID, req.Status, adminID, sanitize.Text(req.Reason, 500))
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("userID", userID).Str("adminID", adminID).Str("status", string(member.Status)).Msg("Member status changed")
	return member, nil
}

// AdminStats feeds the moderation dashboard.
func (s *CommunityService) AdminStats() community.AdminStats {
	return s.board.AdminStats()
}
