package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/campuswell/internal/app/models/dto"
	"github.com/yigit/campuswell/internal/community"
	"github.com/yigit/campuswell/internal/middleware"
)

// CommunityUseCases is the forum board as seen by members.
type CommunityUseCases interface {
	Posts(q *dto.PostListQuery, viewerID string) *dto.PostListResponse
	CreatePost(ctx context.Context, authorID string, req *dto.CreatePostRequest) (*dto.PostResponse, error)
	Post(ctx context.Context, postID, viewerID string) (*dto.PostResponse, error)
	TogglePostLike(ctx context.Context, postID, userID string) (*dto.LikeResponse, error)
	Replies(postID, viewerID string) ([]dto.ReplyResponse, error)
	CreateReply(ctx context.Context, postID, authorID string, req *dto.CreateReplyRequest) (*dto.ReplyResponse, error)
	ToggleReplyLike(ctx context.Context, replyID, userID string) (*dto.LikeResponse, error)
	Report(ctx context.Context, postID, reporterID string, req *dto.CreateReportRequest) (*community.Report, error)
	Stats() community.Stats
	Categories() []community.CategoryStat
	UserStats(userID string) community.UserStats
	Forums(ctx context.Context, userID string) (*dto.ForumListResponse, error)
	Preferences(ctx context.Context, userID string) (*dto.CommunityPreferencesResponse, error)
	UpdatePreferences(ctx context.Context, userID string, req *dto.UpdateCommunityPreferencesRequest) (*dto.CommunityPreferencesResponse, error)
	PersonalizedFeed(ctx context.Context, userID string) (*dto.PersonalizedFeedResponse, error)
	CompleteOnboarding(ctx context.Context, userID string, req *dto.CompleteOnboardingRequest) (*dto.OnboardingResponse, error)
}

// CommunityController handles community board endpoints
type CommunityController struct {
	communityService CommunityUseCases
	logger           zerolog.Logger
}

// NewCommunityController creates a new CommunityController
func NewCommunityController(communityService CommunityUseCases, logger zerolog.Logger) *CommunityController {
	return &CommunityController{
		communityService: communityService,
		logger:           logger,
	}
}

// GetPosts lists posts, pinned first
// @Summary List posts
// @Tags community
// @Produce json
// @Param category query string false "Category id or all"
// @Param sort query string false "recent, popular, discussed or helpful"
// @Param search query string false "Matches title, content and tags"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} dto.APIResponse{data=dto.PostListResponse}
// @Router /community/posts [get]
func (c *CommunityController) GetPosts(ctx *gin.Context) {
	var q dto.PostListQuery
	if !middleware.BindQuery(ctx, &q) {
		return
	}
	viewerID, _ := middleware.CurrentUserID(ctx)
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(c.communityService.Posts(&q, viewerID)))
}

// CreatePost publishes a post
// @Summary Create post
// @Tags community
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreatePostRequest true "Post"
// @Success 201 {object} dto.APIResponse{data=dto.PostResponse}
// @Failure 403 {object} dto.ErrorResponse "Member is suspended or banned"
// @Router /community/posts [post]
func (c *CommunityController) CreatePost(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	var req dto.CreatePostRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	post, err := c.communityService.CreatePost(ctx.Request.Context(), userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Str("postID", post.ID).Str("category", post.Category).Msg("Post created")
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(post))
}

// GetPost returns one post and counts the view
// @Summary Get post
// @Tags community
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} dto.APIResponse{data=dto.PostResponse}
// @Failure 404 {object} dto.ErrorResponse "Post not found"
// @Router /community/posts/{id} [get]
func (c *CommunityController) GetPost(ctx *gin.Context) {
	viewerID, _ := middleware.CurrentUserID(ctx)
	post, err := c.communityService.Post(ctx.Request.Context(), ctx.Param("id"), viewerID)
	respond(ctx, post, err)
}

func (c *CommunityController) TogglePostLike(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	like, err := c.communityService.TogglePostLike(ctx.Request.Context(), ctx.Param("id"), userID)
	respond(ctx, like, err)
}

func (c *CommunityController) GetReplies(ctx *gin.Context) {
	viewerID, _ := middleware.CurrentUserID(ctx)
	replies, err := c.communityService.Replies(ctx.Param("id"), viewerID)
	respond(ctx, replies, err)
}

// CreateReply answers a post
// @Summary Reply to a post
// @Tags community
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param request body dto.CreateReplyRequest true "Reply"
// @Success 201 {object} dto.APIResponse{data=dto.ReplyResponse}
// @Router /community/posts/{id}/replies [post]
func (c *CommunityController) CreateReply(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	var req dto.CreateReplyRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	reply, err := c.communityService.CreateReply(ctx.Request.Context(), ctx.Param("id"), userID, &req)
	created(ctx, reply, err)
}

func (c *CommunityController) ToggleReplyLike(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	like, err := c.communityService.ToggleReplyLike(ctx.Request.Context(), ctx.Param("id"), userID)
	respond(ctx, like, err)
}

// ReportPost flags a post for moderators
// @Summary Report post
// @Tags community
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param request body dto.CreateReportRequest true "Report"
// @Success 201 {object} dto.APIResponse{data=community.Report}
// @Router /community/posts/{id}/report [post]
func (c *CommunityController) ReportPost(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	var req dto.CreateReportRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	report, err := c.communityService.Report(ctx.Request.Context(), ctx.Param("id"), userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewMessageResponse("Report submitted, thank you", report))
}

func (c *CommunityController) GetStats(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(c.communityService.Stats()))
}

func (c *CommunityController) GetCategories(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(c.communityService.Categories()))
}

func (c *CommunityController) GetUserStats(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(c.communityService.UserStats(ctx.Param("id"))))
}

// GetForums lists the forums with member and post counts
// @Summary List forums
// @Tags community
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ForumListResponse}
// @Router /community/forums [get]
func (c *CommunityController) GetForums(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	list, err := c.communityService.Forums(ctx.Request.Context(), userID)
	respond(ctx, list, err)
}

func (c *CommunityController) GetPreferences(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	prefs, err := c.communityService.Preferences(ctx.Request.Context(), userID)
	respond(ctx, prefs, err)
}

func (c *CommunityController) UpdatePreferences(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	var req dto.UpdateCommunityPreferencesRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	prefs, err := c.communityService.UpdatePreferences(ctx.Request.Context(), userID, &req)
	respond(ctx, prefs, err)
}

func (c *CommunityController) GetPersonalizedFeed(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	feed, err := c.communityService.PersonalizedFeed(ctx.Request.Context(), userID)
	respond(ctx, feed, err)
}

// CompleteOnboarding stores the forums picked during onboarding
// @Summary Complete onboarding
// @Tags community
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CompleteOnboardingRequest true "Selected forums"
// @Success 200 {object} dto.APIResponse{data=dto.OnboardingResponse}
// @Failure 400 {object} dto.ErrorResponse "No known forum selected"
// @Router /community/onboarding/complete [post]
func (c *CommunityController) CompleteOnboarding(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	var req dto.CompleteOnboardingRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	done, err := c.communityService.CompleteOnboarding(ctx.Request.Context(), userID, &req)
	respond(ctx, done, err)
}
