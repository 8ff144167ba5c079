package controllers

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/campuswell/internal/app/models"
	"github.com/yigit/campuswell/internal/app/models/dto"
	"github.com/yigit/campuswell/internal/middleware"
)

// UserUseCases covers the profile and settings of the signed in user.
type UserUseCases interface {
	GetProfile(ctx context.Context, userID string) (*dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
	UpdateAvatar(ctx context.Context, userID string, fileHeader *multipart.FileHeader) (*dto.AvatarResponse, error)
	WellnessSettings(ctx context.Context, userID string) (*models.WellnessSettings, error)
	UpdateWellnessSettings(ctx context.Context, userID string, req *dto.UpdateWellnessSettingsRequest) (*models.WellnessSettings, error)
	Preferences(ctx context.Context, userID string) (*models.UserPreferences, error)
	UpdatePreferences(ctx context.Context, userID string, req *dto.UpdatePreferencesRequest) (*models.UserPreferences, error)
	AcademicInfo(ctx context.Context, userID string) (*models.AcademicInfo, error)
	UpdateAcademicInfo(ctx context.Context, userID string, req *dto.AcademicInfoInput) (*models.AcademicInfo, error)
	PrivacySettings(ctx context.Context, userID string) (*models.PrivacySettings, error)
	UpdatePrivacySettings(ctx context.Context, userID string, req *dto.UpdatePrivacySettingsRequest) (*models.PrivacySettings, error)
	Activity(ctx context.Context, userID string) (*dto.UserActivityResponse, error)
	Stats(ctx context.Context, userID string) (*dto.UserStatsResponse, error)
}

// UserController handles user profile related operations
type UserController struct {
	userService UserUseCases
	logger      zerolog.Logger
}

// NewUserController creates a new UserController
func NewUserController(userService UserUseCases, logger zerolog.Logger) *UserController {
	return &UserController{
		userService: userService,
		logger:      logger,
	}
}

// respond writes data or maps err. Every settings endpoint answers the same way.
func respond(ctx *gin.Context, data interface{}, err error) {
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// GetProfile retrieves the profile of the authenticated user
// @Summary Get user profile
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ProfileResponse}
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /users/profile [get]
func (c *UserController) GetProfile(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	profile, err := c.userService.GetProfile(ctx.Request.Context(), userID)
	respond(ctx, profile, err)
}

// UpdateProfile updates bio, interests and privacy of the authenticated user
// @Summary Update user profile
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} dto.APIResponse{data=dto.ProfileResponse}
// @Router /users/profile [put]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)

	var req dto.UpdateProfileRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	profile, err := c.userService.UpdateProfile(ctx.Request.Context(), userID, &req)
	respond(ctx, profile, err)
}

// UpdateAvatar uploads a new profile picture
// @Summary Upload avatar
// @Tags users
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param avatar formData file true "Image file"
// @Success 200 {object} dto.APIResponse{data=dto.AvatarResponse}
// @Router /users/profile/avatar [post]
func (c *UserController) UpdateAvatar(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)

	fileHeader, err := ctx.FormFile("avatar")
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Avatar file is required").WithField("avatar")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	avatar, err := c.userService.UpdateAvatar(ctx.Request.Context(), userID, fileHeader)
	if err != nil {
		c.logger.Warn().Err(err).Str("userID", userID).Msg("Avatar upload failed")
	}
	respond(ctx, avatar, err)
}

func (c *UserController) GetWellnessSettings(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	settings, err := c.userService.WellnessSettings(ctx.Request.Context(), userID)
	respond(ctx, settings, err)
}

func (c *UserController) UpdateWellnessSettings(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	var req dto.UpdateWellnessSettingsRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	settings, err := c.userService.UpdateWellnessSettings(ctx.Request.Context(), userID, &req)
	respond(ctx, settings, err)
}

func (c *UserController) GetPreferences(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	prefs, err := c.userService.Preferences(ctx.Request.Context(), userID)
	respond(ctx, prefs, err)
}

func (c *UserController) UpdatePreferences(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	var req dto.UpdatePreferencesRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	prefs, err := c.userService.UpdatePreferences(ctx.Request.Context(), userID, &req)
	respond(ctx, prefs, err)
}

func (c *UserController) GetAcademicInfo(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	info, err := c.userService.AcademicInfo(ctx.Request.Context(), userID)
	respond(ctx, info, err)
}

func (c *UserController) UpdateAcademicInfo(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	var req dto.AcademicInfoInput
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	info, err := c.userService.UpdateAcademicInfo(ctx.Request.Context(), userID, &req)
	respond(ctx, info, err)
}

func (c *UserController) GetPrivacySettings(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	settings, err := c.userService.PrivacySettings(ctx.Request.Context(), userID)
	respond(ctx, settings, err)
}

func (c *UserController) UpdatePrivacySettings(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	var req dto.UpdatePrivacySettingsRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	settings, err := c.userService.UpdatePrivacySettings(ctx.Request.Context(), userID, &req)
	respond(ctx, settings, err)
}

// GetActivity lists recent posts, replies and mood entries of the caller
// @Summary Recent activity
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.UserActivityResponse}
// @Router /users/activity [get]
func (c *UserController) GetActivity(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	activity, err := c.userService.Activity(ctx.Request.Context(), userID)
	respond(ctx, activity, err)
}

// GetStats returns counters for the caller's profile page
// @Summary User stats
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.UserStatsResponse}
// @Router /users/stats [get]
func (c *UserController) GetStats(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	stats, err := c.userService.Stats(ctx.Request.Context(), userID)
	respond(ctx, stats, err)
}
