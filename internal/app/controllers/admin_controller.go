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

// ModerationUseCases are the moderator tools of the community board.
type ModerationUseCases interface {
	AdminPosts(q *dto.AdminListQuery) dto.PaginatedResponse
	TogglePin(ctx context.Context, postID, adminID string) (*dto.PinResponse, error)
	DeletePost(ctx context.Context, postID, adminID string, req *dto.DeletePostRequest) error
	Reports(q *dto.AdminListQuery) dto.PaginatedResponse
	UpdateReport(ctx context.Context, reportID, adminID string, req *dto.UpdateReportStatusRequest) (*community.Report, error)
	Actions(q *dto.AdminListQuery) []community.AdminAction
	Members(q *dto.AdminListQuery) dto.PaginatedResponse
	UpdateMemberStatus(ctx context.Context, userID, adminID string, req *dto.UpdateMemberStatusRequest) (*community.Member, error)
	AdminStats() community.AdminStats
}

// AdminController handles moderation endpoints. Routes are restricted to moderators and admins.
type AdminController struct {
	moderation ModerationUseCases
	logger     zerolog.Logger
}

// NewAdminController creates a new AdminController
func NewAdminController(moderation ModerationUseCases, logger zerolog.Logger) *AdminController {
	return &AdminController{
		moderation: moderation,
		logger:     logger,
	}
}

func (c *AdminController) GetPosts(ctx *gin.Context) {
	var q dto.AdminListQuery
	if !middleware.BindQuery(ctx, &q) {
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(c.moderation.AdminPosts(&q)))
}

// TogglePin pins or unpins a post
// @Summary Toggle pin
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} dto.APIResponse{data=dto.PinResponse}
// @Router /community/admin/posts/{id}/pin [post]
func (c *AdminController) TogglePin(ctx *gin.Context) {
	adminID, _ := middleware.CurrentUserID(ctx)
	pin, err := c.moderation.TogglePin(ctx.Request.Context(), ctx.Param("id"), adminID)
	respond(ctx, pin, err)
}

// DeletePost removes a post with its replies
// @Summary Delete post
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param request body dto.DeletePostRequest true "Reason"
// @Success 200 {object} dto.APIResponse
// @Router /community/admin/posts/{id} [delete]
func (c *AdminController) DeletePost(ctx *gin.Context) {
	adminID, _ := middleware.CurrentUserID(ctx)
	var req dto.DeletePostRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	if err := c.moderation.DeletePost(ctx.Request.Context(), ctx.Param("id"), adminID, &req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Str("postID", ctx.Param("id")).Str("adminID", adminID).Msg("Post deleted by moderator")
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Post deleted", nil))
}

func (c *AdminController) GetReports(ctx *gin.Context) {
	var q dto.AdminListQuery
	if !middleware.BindQuery(ctx, &q) {
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(c.moderation.Reports(&q)))
}

func (c *AdminController) UpdateReport(ctx *gin.Context) {
	adminID, _ := middleware.CurrentUserID(ctx)
	var req dto.UpdateReportStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	report, err := c.moderation.UpdateReport(ctx.Request.Context(), ctx.Param("id"), adminID, &req)
	respond(ctx, report, err)
}

func (c *AdminController) GetActions(ctx *gin.Context) {
	var q dto.AdminListQuery
	if !middleware.BindQuery(ctx, &q) {
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(c.moderation.Actions(&q)))
}

func (c *AdminController) GetMembers(ctx *gin.Context) {
	var q dto.AdminListQuery
	if !middleware.BindQuery(ctx, &q) {
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(c.moderation.Members(&q)))
}

// UpdateMemberStatus warns, suspends, bans or reinstates a member
// @Summary Update member status
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body dto.UpdateMemberStatusRequest true "Status and reason"
// @Success 200 {object} dto.APIResponse{data=community.Member}
// @Failure 400 {object} dto.ErrorResponse "Moderators cannot change their own status"
// @Router /community/admin/users/{id}/status [put]
func (c *AdminController) UpdateMemberStatus(ctx *gin.Context) {
	adminID, _ := middleware.CurrentUserID(ctx)
	var req dto.UpdateMemberStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	member, err := c.moderation.UpdateMemberStatus(ctx.Request.Context(), ctx.Param("id"), adminID, &req)
	respond(ctx, member, err)
}

func (c *AdminController) GetStats(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(c.moderation.AdminStats()))
}
