package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/campuswell/internal/app/controllers"
	"github.com/yigit/campuswell/internal/app/models/dto"
	"github.com/yigit/campuswell/internal/middleware"
	"github.com/yigit/campuswell/internal/pkg/websocket"
	"github.com/yigit/campuswell/internal/security/ratelimit"
)

// Handlers groups everything the route table needs.
type Handlers struct {
	Auth      *controllers.AuthController
	User      *controllers.UserController
	Wellness  *controllers.WellnessController
	Community *controllers.CommunityController
	Admin     *controllers.AdminController
	Security  *controllers.SecurityController
	Feed      *websocket.Handler

	AuthMiddleware     *middleware.AuthMiddleware
	SecurityMiddleware *middleware.SecurityMiddleware
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, h Handlers) {
	authMW := h.AuthMiddleware
	sec := h.SecurityMiddleware

	router.NoRoute(middleware.NotFound())

	// API version group
	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", sec.CSRF(), sec.Limit(ratelimit.ActionRegister), h.Auth.Register)
		auth.POST("/register/enhanced", sec.CSRF(), sec.Limit(ratelimit.ActionRegister), h.Auth.RegisterEnhanced)
		auth.POST("/login", sec.Limit(ratelimit.ActionLogin), h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
		auth.POST("/logout", h.Auth.Logout)

		otp := auth.Group("/otp")
		{
			otp.POST("/request-login", sec.Limit(ratelimit.ActionOTPRequest), h.Auth.RequestLoginOTP)
			otp.POST("/verify-login", sec.Limit(ratelimit.ActionLogin), h.Auth.VerifyLoginOTP)
			otp.POST("/request-email-verification", sec.Limit(ratelimit.ActionOTPRequest), h.Auth.RequestEmailVerification)
			otp.POST("/verify-email", sec.Limit(ratelimit.ActionEmailVerification), h.Auth.VerifyEmail)
			otp.GET("/status", h.Auth.OTPStatus)
		}

		password := auth.Group("/password")
		password.Use(sec.Limit(ratelimit.ActionPasswordReset))
		{
			password.POST("/request-reset", h.Auth.RequestPasswordReset)
			password.POST("/verify-reset-otp", h.Auth.VerifyResetOTP)
			password.POST("/reset", sec.CSRF(), h.Auth.ResetPassword)
		}

		auth.POST("/password/change", authMW.JWTAuth(), h.Auth.ChangePassword)
	}

	security := v1.Group("/security")
	{
		security.GET("/csrf-token", h.Security.CSRFToken)
		security.GET("/rate-limit", h.Security.RateLimitStatus)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMW.JWTAuth())

	users := authenticated.Group("/users")
	{
		users.GET("/profile", h.User.GetProfile)
		users.PUT("/profile", h.User.UpdateProfile)
		users.POST("/profile/avatar", h.User.UpdateAvatar)
		users.GET("/wellness-settings", h.User.GetWellnessSettings)
		users.PUT("/wellness-settings", h.User.UpdateWellnessSettings)
		users.GET("/preferences", h.User.GetPreferences)
		users.PUT("/preferences", h.User.UpdatePreferences)
		users.GET("/academic-info", h.User.GetAcademicInfo)
		users.PUT("/academic-info", h.User.UpdateAcademicInfo)
		users.GET("/privacy-settings", h.User.GetPrivacySettings)
		users.PUT("/privacy-settings", h.User.UpdatePrivacySettings)
		users.GET("/activity", h.User.GetActivity)
		users.GET("/stats", h.User.GetStats)
	}

	wellness := authenticated.Group("/wellness")
	{
		wellness.POST("/mood", h.Wellness.CreateMoodEntry)
		wellness.POST("/stress", h.Wellness.CreateStressEntry)
		wellness.POST("/sleep", h.Wellness.CreateSleepEntry)
		wellness.POST("/social", h.Wellness.CreateSocialEntry)
		wellness.GET("/mood/history", h.Wellness.MoodHistory)
		wellness.GET("/banners", h.Wellness.Banners)
		wellness.GET("/insights", h.Wellness.Insights)
		wellness.POST("/goals", h.Wellness.CreateGoal)
		wellness.GET("/goals", h.Wellness.Goals)
		wellness.PUT("/goals/:id/progress", h.Wellness.UpdateGoalProgress)
	}

	// Community reads are public; a signed in reader gets isLiked flags.
	community := v1.Group("/community")
	{
		reads := community.Group("")
		reads.Use(authMW.OptionalAuth())
		{
			reads.GET("/posts", h.Community.GetPosts)
			reads.GET("/posts/:id", h.Community.GetPost)
			reads.GET("/posts/:id/replies", h.Community.GetReplies)
			reads.GET("/stats", h.Community.GetStats)
			reads.GET("/categories", h.Community.GetCategories)
			reads.GET("/users/:id/stats", h.Community.GetUserStats)
			reads.GET("/forums", h.Community.GetForums)
			reads.GET("/ws", h.Feed.HandleConnection)
		}

		members := community.Group("")
		members.Use(authMW.JWTAuth())
		{
			members.GET("/preferences", h.Community.GetPreferences)
			members.PUT("/preferences", h.Community.UpdatePreferences)
			members.GET("/personalized-feed", h.Community.GetPersonalizedFeed)
			members.POST("/onboarding/complete", h.Community.CompleteOnboarding)

			// Writing requires a verified email address.
			writes := members.Group("")
			writes.Use(authMW.EmailVerificationRequired(), sec.Limit(ratelimit.ActionFormSubmission))
			{
				writes.POST("/posts", h.Community.CreatePost)
				writes.POST("/posts/:id/like", h.Community.TogglePostLike)
				writes.POST("/posts/:id/replies", h.Community.CreateReply)
				writes.POST("/replies/:id/like", h.Community.ToggleReplyLike)
				writes.POST("/posts/:id/report", h.Community.ReportPost)
			}
		}

		admin := community.Group("/admin")
		admin.Use(authMW.JWTAuth(), authMW.ModeratorRequired())
		{
			admin.GET("/posts", h.Admin.GetPosts)
			admin.POST("/posts/:id/pin", h.Admin.TogglePin)
			admin.DELETE("/posts/:id", h.Admin.DeletePost)
			admin.GET("/reports", h.Admin.GetReports)
			admin.PUT("/reports/:id", h.Admin.UpdateReport)
			admin.GET("/actions", h.Admin.GetActions)
			admin.GET("/users", h.Admin.GetMembers)
			admin.PUT("/users/:id/status", h.Admin.UpdateMemberStatus)
			admin.GET("/stats", h.Admin.GetStats)
		}
	}

	// Health check endpoint (public)
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok"}))
	})
}
