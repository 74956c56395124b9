package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/isafari/internal/apperr"
	"github.com/joshua-takyi/isafari/internal/helpers"
	"github.com/joshua-takyi/isafari/internal/metrics"
	"github.com/joshua-takyi/isafari/internal/models"
)

const (
	UserKey           = "user"
	RequestIDKey      = "request_id"
	SessionKey        = "session_id"
	AccessTokenCookie = "access_token"
	SessionCookie     = "isafari_sid"
	sessionMaxAge     = 60 * 60 * 24 * 365
)

// RequestID middleware adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// StructuredLogger provides structured logging middleware
func StructuredLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		requestID, _ := c.Get(RequestIDKey)
		attrs := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if claims, ok := CurrentUser(c); ok {
			attrs = append(attrs, "user_id", claims.UserID)
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("HTTP Request", attrs...)
			return
		}
		logger.Info("HTTP Request", attrs...)
	}
}

// ErrorHandler logs errors attached with c.Error. Handlers that already wrote
// a response keep it; otherwise a generic 500 is returned.
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		requestID, _ := c.Get(RequestIDKey)
		for _, e := range c.Errors {
			logger.Error("Request error",
				"request_id", requestID,
				"error", e.Error(),
				"kind", apperr.KindOf(e.Err),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)
		}
		if c.Writer.Written() {
			return
		}
		id, _ := requestID.(string)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse("internal server error", string(apperr.KindStore), id))
	}
}

// Metrics records request counts and latency per matched route.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Session gives every browser a stable anonymous id, used to count views.
func Session(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.GetHeader("X-Session-ID")
		if sid == "" {
			sid, _ = c.Cookie(SessionCookie)
		}
		if sid == "" {
			sid = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, sid, sessionMaxAge, "/", "", secure, true)
		}
		c.Set(SessionKey, sid)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	token, _ := c.Cookie(AccessTokenCookie)
	return token
}

func unauthorized(c *gin.Context, message string) {
	requestID, _ := c.Get(RequestIDKey)
	id, _ := requestID.(string)
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse(message, string(apperr.KindUnauthorized), id))
}

// AuthMiddleware accepts a bearer token or the access_token cookie and stores
// the verified claims under "user".
func AuthMiddleware(tokens *helpers.TokenIssuer, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			unauthorized(c, "authentication required")
			return
		}
		claims, err := tokens.ValidateToken(token)
		if err != nil {
			logger.Debug("rejected token", "error", err, "path", c.Request.URL.Path)
			unauthorized(c, "invalid or expired token")
			return
		}
		c.Set(UserKey, claims)
		c.Next()
	}
}

// OptionalAuth sets claims when a valid token is present and never rejects.
func OptionalAuth(tokens *helpers.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if claims, err := tokens.ValidateToken(token); err == nil {
				c.Set(UserKey, claims)
			}
		}
		c.Next()
	}
}

// RequireProvider must run after AuthMiddleware.
func RequireProvider() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentUser(c)
		if !ok {
			unauthorized(c, "authentication required")
			return
		}
		if !claims.IsProvider() {
			requestID, _ := c.Get(RequestIDKey)
			id, _ := requestID.(string)
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse("service provider account required", string(apperr.KindForbidden), id))
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (*helpers.Claims, bool) {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*helpers.Claims)
	return claims, ok
}
