package dto

import (
	"time"

	"github.com/yigit/campuswell/internal/community"
)

// --- Request DTOs ---

// CreatePostRequest represents post creation data
type CreatePostRequest struct {
	Title       string   `json:"title" binding:"required,min=3,max=200" example:"Study group for calculus?"`
	Content     string   `json:"content" binding:"required,min=1,max=10000"`
	Category    string   `json:"category" binding:"required,oneof=general academic wellness career events housing marketplace tech social" example:"academic"`
	Tags        []string `json:"tags" binding:"omitempty,max=10,dive,min=1,max=30"`
	IsAnonymous bool     `json:"isAnonymous"`
}

// CreateReplyRequest represents reply creation data
type CreateReplyRequest struct {
	Content string `json:"content" binding:"required,min=1,max=5000"`
}

// CreateReportRequest flags a post.
type CreateReportRequest struct {
	Type   community.ReportType `json:"type" binding:"required,oneof=spam harassment inappropriate off-topic other" example:"spam"`
	Reason string               `json:"reason" binding:"required,min=3,max=1000"`
}

// PostListQuery filters the post list.
type PostListQuery struct {
	Category string `form:"category" binding:"omitempty,max=30"`
	Sort     string `form:"sort" binding:"omitempty,oneof=recent popular discussed helpful"`
	Search   string `form:"search" binding:"omitempty,max=100"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
}

// AdminListQuery pages admin lists.
type AdminListQuery struct {
	Status string `form:"status" binding:"omitempty,max=20"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
}

// DeletePostRequest carries the moderation reason.
type DeletePostRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=500"`
}

// UpdateReportStatusRequest moves a report through review.
type UpdateReportStatusRequest struct {
	Status     community.ReportStatus `json:"status" binding:"required,oneof=pending reviewing resolved dismissed"`
	Resolution string                 `json:"resolution" binding:"omitempty,max=1000"`
}

// UpdateMemberStatusRequest changes the standing of a member.
type UpdateMemberStatusRequest struct {
	Status community.MemberStatus `json:"status" binding:"required,oneof=active warned suspended banned"`
	Reason string                 `json:"reason" binding:"required,min=3,max=500"`
}

// UpdateCommunityPreferencesRequest replaces the forum interests.
type UpdateCommunityPreferencesRequest struct {
	Interests []string `json:"interests" binding:"required,max=20,dive,min=1,max=50"`
}

// CompleteOnboardingRequest submits the forums chosen during onboarding.
type CompleteOnboardingRequest struct {
	SelectedForums []string `json:"selectedForums" binding:"required,min=1,max=20,dive,min=1,max=50"`
}

// --- Response DTOs ---

// PostResponse is a post with its byline.
type PostResponse struct {
	community.Post
	Author community.AuthorInfo `json:"author"`
}

// ReplyResponse is a reply with its byline.
type ReplyResponse struct {
	community.Reply
	Author community.AuthorInfo `json:"author"`
}

// PostListResponse represents a page of posts
type PostListResponse struct {
	Posts      []PostResponse `json:"posts"`
	Pagination PaginationInfo `json:"pagination"`
}

// LikeResponse is the state after a like toggle.
type LikeResponse struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

// PinResponse is the state after a pin toggle.
type PinResponse struct {
	IsPinned bool `json:"isPinned"`
}

// Forum is an interest group a member can join.
type Forum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	MemberCount int    `json:"memberCount"`
	PostCount   int    `json:"postCount"`
	IsPopular   bool   `json:"isPopular"`
	IsJoined    bool   `json:"isJoined"`
}

// ForumListResponse lists the forums with the caller's membership.
type ForumListResponse struct {
	Forums      []Forum `json:"forums"`
	TotalForums int     `json:"totalForums"`
}

// CommunityPreferencesResponse is the community profile of the caller.
type CommunityPreferencesResponse struct {
	UserID                 string    `json:"userId"`
	Interests              []string  `json:"interests"`
	HasCompletedOnboarding bool      `json:"hasCompletedOnboarding"`
	CreatedAt              time.Time `json:"createdAt"`
}

// PersonalizedFeedResponse splits forums by the caller's interests.
type PersonalizedFeedResponse struct {
	PersonalizedForums []Forum `json:"personalizedForums"`
	OtherForums        []Forum `json:"otherForums"`
	HasPersonalization bool    `json:"hasPersonalization"`
}

// OnboardingResponse confirms the saved interests.
type OnboardingResponse struct {
	Interests   []string  `json:"interests"`
	CompletedAt time.Time `json:"completedAt"`
}
