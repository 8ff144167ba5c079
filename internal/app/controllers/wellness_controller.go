package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/campuswell/internal/app/models"
	"github.com/yigit/campuswell/internal/app/models/dto"
	"github.com/yigit/campuswell/internal/middleware"
)

// WellnessUseCases covers self tracking, goals and the derived dashboard data.
type WellnessUseCases interface {
	CreateMoodEntry(ctx context.Context, userID string, req *dto.CreateMoodEntryRequest) (*models.MoodEntry, error)
	CreateStressEntry(ctx context.Context, userID string, req *dto.CreateStressEntryRequest) (*models.StressEntry, error)
	CreateSleepEntry(ctx context.Context, userID string, req *dto.CreateSleepEntryRequest) (*models.SleepEntry, error)
	CreateSocialEntry(ctx context.Context, userID string, req *dto.CreateSocialEntryRequest) (*models.SocialEntry, error)
	MoodHistory(ctx context.Context, userID string, days int) (*dto.MoodHistoryResponse, error)
	Banners(ctx context.Context, userID string) ([]models.WellnessBanner, error)
	Insights(ctx context.Context, userID string) (*models.WellnessInsights, error)
	CreateGoal(ctx context.Context, userID string, req *dto.CreateGoalRequest) (*dto.GoalResponse, error)
	Goals(ctx context.Context, userID string) ([]dto.GoalResponse, error)
	UpdateGoalProgress(ctx context.Context, userID, goalID string, req *dto.UpdateGoalProgressRequest) (*dto.GoalResponse, error)
}

// WellnessController handles wellness tracking endpoints
type WellnessController struct {
	wellnessService WellnessUseCases
	logger          zerolog.Logger
}

// NewWellnessController creates a new WellnessController
func NewWellnessController(wellnessService WellnessUseCases, logger zerolog.Logger) *WellnessController {
	return &WellnessController{
		wellnessService: wellnessService,
		logger:          logger,
	}
}

func created(ctx *gin.Context, data interface{}, err error) {
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// CreateMoodEntry records a mood check-in
// @Summary Log mood
// @Tags wellness
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreateMoodEntryRequest true "Mood entry"
// @Success 201 {object} dto.APIResponse{data=models.MoodEntry}
// @Router /wellness/mood [post]
func (c *WellnessController) CreateMoodEntry(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	var req dto.CreateMoodEntryRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	entry, err := c.wellnessService.CreateMoodEntry(ctx.Request.Context(), userID, &req)
	created(ctx, entry, err)
}

func (c *WellnessController) CreateStressEntry(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	var req dto.CreateStressEntryRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	entry, err := c.wellnessService.CreateStressEntry(ctx.Request.Context(), userID, &req)
	created(ctx, entry, err)
}

func (c *WellnessController) CreateSleepEntry(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	var req dto.CreateSleepEntryRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	entry, err := c.wellnessService.CreateSleepEntry(ctx.Request.Context(), userID, &req)
	created(ctx, entry, err)
}

func (c *WellnessController) CreateSocialEntry(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	var req dto.CreateSocialEntryRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	entry, err := c.wellnessService.CreateSocialEntry(ctx.Request.Context(), userID, &req)
	created(ctx, entry, err)
}

// MoodHistory lists mood entries of the last days (30 by default)
// @Summary Mood history
// @Tags wellness
// @Security BearerAuth
// @Produce json
// @Param days query int false "Look-back window in days"
// @Success 200 {object} dto.APIResponse{data=dto.MoodHistoryResponse}
// @Router /wellness/mood/history [get]
func (c *WellnessController) MoodHistory(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	var q dto.HistoryQuery
	if !middleware.BindQuery(ctx, &q) {
		return
	}
	history, err := c.wellnessService.MoodHistory(ctx.Request.Context(), userID, q.Days)
	respond(ctx, history, err)
}

// Banners returns up to three dashboard hints
// @Summary Wellness banners
// @Tags wellness
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]models.WellnessBanner}
// @Router /wellness/banners [get]
func (c *WellnessController) Banners(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	banners, err := c.wellnessService.Banners(ctx.Request.Context(), userID)
	respond(ctx, banners, err)
}

// Insights summarizes the last 30 days
// @Summary Wellness insights
// @Tags wellness
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.APIResponse{data=models.WellnessInsights}
// @Router /wellness/insights [get]
func (c *WellnessController) Insights(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	insights, err := c.wellnessService.Insights(ctx.Request.Context(), userID)
	respond(ctx, insights, err)
}

func (c *WellnessController) CreateGoal(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	var req dto.CreateGoalRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	goal, err := c.wellnessService.CreateGoal(ctx.Request.Context(), userID, &req)
	created(ctx, goal, err)
}

func (c *WellnessController) Goals(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	goals, err := c.wellnessService.Goals(ctx.Request.Context(), userID)
	respond(ctx, goals, err)
}

// UpdateGoalProgress sets the current value of a goal and completes it when the target is reached
// @Summary Update goal progress
// @Tags wellness
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Goal ID"
// @Param request body dto.UpdateGoalProgressRequest true "Progress"
// @Success 200 {object} dto.APIResponse{data=dto.GoalResponse}
// @Failure 404 {object} dto.ErrorResponse "Goal not found"
// @Router /wellness/goals/{id}/progress [put]
func (c *WellnessController) UpdateGoalProgress(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	var req dto.UpdateGoalProgressRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	goal, err := c.wellnessService.UpdateGoalProgress(ctx.Request.Context(), userID, ctx.Param("id"), &req)
	respond(ctx, goal, err)
}
