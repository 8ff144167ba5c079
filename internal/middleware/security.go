package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yigit/campuswell/internal/app/models/dto"
	"github.com/yigit/campuswell/internal/pkg/apperrors"
	"github.com/yigit/campuswell/internal/security/csrf"
	"github.com/yigit/campuswell/internal/security/ratelimit"
)

const (
	contextRateLimitKey = "rateLimitKey"

	// bodies larger than this are not inspected for an identifier
	maxIdentifierBody = 64 << 10
)

// SecurityMiddleware guards routes with the action rate limiter, the per IP
// throttle and CSRF tokens.
type SecurityMiddleware struct {
	limiter     *ratelimit.Limiter
	ips         *ratelimit.IPLimiter
	csrf        *csrf.Manager
	csrfEnabled bool
	logger      zerolog.Logger
}

// NewSecurityMiddleware creates a SecurityMiddleware. A nil ips disables throttling.
func NewSecurityMiddleware(limiter *ratelimit.Limiter, ips *ratelimit.IPLimiter, csrfManager *csrf.Manager, csrfEnabled bool, logger zerolog.Logger) *SecurityMiddleware {
	return &SecurityMiddleware{
		limiter:     limiter,
		ips:         ips,
		csrf:        csrfManager,
		csrfEnabled: csrfEnabled,
		logger:      logger,
	}
}

// identifierFromBody peeks at the JSON body for the account the request is about
// and restores the body for the handler.
func identifierFromBody(c *gin.Context) string {
	if c.Request.Body == nil || c.Request.ContentLength > maxIdentifierBody {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIdentifierBody))
	c.Request.Body.Close()
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}

	var fields struct {
		Identifier string `json:"identifier"`
		Email      string `json:"email"`
		Username   string `json:"username"`
	}
	if json.Unmarshal(raw, &fields) != nil {
		return ""
	}
	for _, v := range []string{fields.Identifier, fields.Email, fields.Username} {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			return v
		}
	}
	return ""
}

// Limit applies the action limiter keyed by client IP and the identifier in the body.
func (m *SecurityMiddleware) Limit(action ratelimit.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if id := identifierFromBody(c); id != "" {
			key += ":" + id
		}

		res, err := m.limiter.Check(c.Request.Context(), key, action)
		if err != nil {
			// a broken limiter store must not lock everybody out
			m.logger.Error().Err(err).Str("action", string(action)).Msg("Rate limit check failed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.RemainingAttempts))
		if !res.Allowed {
			HandleAPIError(c, &apperrors.RateLimitError{
				Action:    string(action),
				ResetTime: res.ResetTime,
				Blocked:   res.IsBlocked,
			})
			return
		}

		c.Set(contextRateLimitKey, key)
		c.Next()
	}
}

// ResetLimit forgets the attempts recorded by Limit for the current request.
func (m *SecurityMiddleware) ResetLimit(c *gin.Context, action ratelimit.Action) {
	key := c.GetString(contextRateLimitKey)
	if key == "" {
		return
	}
	if err := m.limiter.Reset(c.Request.Context(), key, action); err != nil {
		m.logger.Warn().Err(err).Str("action", string(action)).Msg("Failed to reset rate limit")
	}
}

// LimitStatus reports the current state of an action for the caller without recording an attempt.
func (m *SecurityMiddleware) LimitStatus(c *gin.Context, action ratelimit.Action, identifier string) (ratelimit.Result, error) {
	key := c.ClientIP()
	if identifier != "" {
		key += ":" + strings.ToLower(identifier)
	}
	return m.limiter.Status(c.Request.Context(), key, action)
}

// Throttle rejects clients exceeding the per IP token bucket.
func (m *SecurityMiddleware) Throttle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.ips == nil || m.ips.Allow(c.ClientIP()) {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeRateLimited, "Too many requests, please slow down").
				WithSeverity(dto.ErrorSeverityWarning)))
	}
}

// CSRFClientID returns the id that scopes the caller's CSRF tokens and sets the
// HttpOnly cookie carrying it when the caller has none yet.
func (m *SecurityMiddleware) CSRFClientID(c *gin.Context) string {
	if id, ok := csrfClientCookie(c); ok {
		return id
	}
	id := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(csrf.ClientCookie, id, 0, "/", "", c.Request.TLS != nil, true)
	return id
}

func csrfClientCookie(c *gin.Context) (string, bool) {
	id, err := c.Cookie(csrf.ClientCookie)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// CSRF requires a valid single use token on state changing requests. The token
// must have been issued to the same client cookie.
func (m *SecurityMiddleware) CSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.csrfEnabled {
			c.Next()
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		clientID, _ := csrfClientCookie(c)
		formID := c.GetHeader(csrf.HeaderFormID)
		token := c.GetHeader(csrf.HeaderToken)
		if clientID == "" || formID == "" || token == "" || !m.csrf.Validate(clientID, formID, token) {
			m.logger.Warn().
				Str("event", "csrf_violation").
				Str("ip", c.ClientIP()).
				Str("path", c.Request.URL.Path).
				Msg("Rejected request without a valid CSRF token")
			HandleAPIError(c, apperrors.ErrCSRFRejected)
			return
		}
		c.Next()
	}
}

// BotDetection logs automated user agents as security events.
func (m *SecurityMiddleware) BotDetection() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ua := c.Request.UserAgent(); ratelimit.DetectBot(ua) {
			m.logger.Warn().
				Str("event", "bot_detected").
				Str("ip", c.ClientIP()).
				Str("userAgent", ua).
				Str("path", c.Request.URL.Path).
				Msg("Automated client detected")
		}
		c.Next()
	}
}

// SecurityHeaders sets the standard hardening headers on every response.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Next()
	}
}
