package web

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jonit-dev/pixelperfect/internal/auth"
	"github.com/jonit-dev/pixelperfect/internal/i18n"
	"github.com/jonit-dev/pixelperfect/internal/model"
	"github.com/jonit-dev/pixelperfect/internal/ratelimit"
)

// Context keys set by middleware.
const (
	contextUserID = "userID"
	contextLocale = "locale"
)

// contentSecurityPolicy locks scripts and styles to our own origin. Stripe's
// checkout runs on Stripe's domain after a redirect, so no third-party script
// sources are needed here.
const contentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self'; " +
	"style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' data:; " +
	"frame-ancestors 'none'"

// securityHeaders sets the baseline security headers on every response.
func (s *Server) securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		c.Next()
	}
}

// cors handles cross-origin requests for the configured origins. With no
// origins configured the API is same-origin only and no CORS headers are
// emitted.
func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" || !slices.Contains(s.cfg.AllowedOrigins, origin) {
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Stripe-Signature")
			h.Set("Access-Control-Max-Age", "86400")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// locale resolves the request locale from cookie and Accept-Language and
// stores it in the context. The cookie is set on first contact so later
// requests are stable regardless of header changes.
func (s *Server) locale() gin.HandlerFunc {
	return func(c *gin.Context) {
		locale := i18n.DetectLocale(c.Request)
		if _, err := c.Cookie(i18n.CookieName); err != nil {
			c.SetCookie(i18n.CookieName, locale.String(), 365*24*3600, "/", "", false, false)
		}
		c.Set(contextLocale, locale)
		c.Next()
	}
}

// requestLocale returns the locale resolved by the locale middleware.
func requestLocale(c *gin.Context) model.Locale {
	if v, ok := c.Get(contextLocale); ok {
		if locale, ok := v.(model.Locale); ok {
			return locale
		}
	}
	return model.DefaultLocale
}

// requireUser authenticates the bearer token and stores the user ID in the
// context. Missing and invalid tokens produce distinct messages so clients
// can tell "log in" apart from "token expired".
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := s.verifier.VerifyAuthorizationHeader(c.GetHeader("Authorization"))
		if errors.Is(err, auth.ErrMissingToken) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
			return
		}
		c.Set(contextUserID, userID)
		c.Next()
	}
}

// requireCronSecret guards the cron endpoints with the shared secret header.
func (s *Server) requireCronSecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("x-cron-secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.CronSecret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// rateLimitIP limits by client IP for public API routes.
func (s *Server) rateLimitIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.enforceLimit(c, s.publicLimiter, c.ClientIP())
	}
}

// rateLimitUser limits by authenticated user ID. Must run after requireUser.
func (s *Server) rateLimitUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.enforceLimit(c, s.userLimiter, c.GetString(contextUserID))
	}
}

// enforceLimit applies one limiter decision to the request, writing the
// X-RateLimit-* headers and aborting with 429 when over the limit.
func (s *Server) enforceLimit(c *gin.Context, limiter *ratelimit.Limiter, key string) {
	decision := limiter.Allow(key)

	h := c.Writer.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

	if !decision.Allowed {
		retryAfter := int(decision.RetryAfter.Seconds() + 0.999)
		if retryAfter < 1 {
			retryAfter = 1
		}
		h.Set("Retry-After", strconv.Itoa(retryAfter))
		h.Set("X-RateLimit-Reset", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
		return
	}
	c.Next()
}

// pathSegments splits a canonical path into its non-empty segments.
func pathSegments(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
