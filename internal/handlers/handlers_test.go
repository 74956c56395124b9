package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/isafari/internal/apperr"
	"github.com/joshua-takyi/isafari/internal/helpers"
	"github.com/joshua-takyi/isafari/internal/middleware"
	"github.com/joshua-takyi/isafari/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decode(t *testing.T, w *httptest.ResponseRecorder) models.ApiResponse {
	t.Helper()
	var res models.ApiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestRespondErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
		kind string
	}{
		{apperr.Validation("bad date"), http.StatusBadRequest, "validation_error"},
		{apperr.Unauthorized("nope"), http.StatusUnauthorized, "unauthorized"},
		{apperr.Forbidden("not yours"), http.StatusForbidden, "forbidden"},
		{apperr.NotFound("gone"), http.StatusNotFound, "not_found"},
		{apperr.InvalidTransition("terminal"), http.StatusConflict, "invalid_transition"},
		{apperr.Conflict("again"), http.StatusConflict, "conflict"},
		{apperr.Store(errors.New("socket closed"), "failed to load booking"), http.StatusInternalServerError, "store_error"},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			r := gin.New()
			r.Use(middleware.RequestID(), middleware.ErrorHandler(quietLogger()))
			r.GET("/", func(c *gin.Context) { respondError(c, tc.err) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tc.code, w.Code)
			assert.Contains(t, w.Body.String(), `"kind":"`+tc.kind+`"`)
			assert.NotContains(t, w.Body.String(), "socket closed")
		})
	}
}

func TestPagination(t *testing.T) {
	cases := []struct {
		query               string
		page, limit, offset int
	}{
		{"", 1, 10, 0},
		{"?page=3&limit=20", 3, 20, 40},
		{"?page=-2&limit=0", 1, 10, 0},
		{"?page=2&limit=1000", 2, 100, 100},
		{"?page=abc", 1, 10, 0},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/"+tc.query, nil)
		page, limit, offset := pagination(c)
		assert.Equal(t, tc.page, page, tc.query)
		assert.Equal(t, tc.limit, limit, tc.query)
		assert.Equal(t, tc.offset, offset, tc.query)
	}
}

func TestHandlersRejectBadInputBeforeCallingServices(t *testing.T) {
	tokens := helpers.NewTokenIssuer("secret", time.Hour)
	token, err := tokens.GenerateToken("65f1c2a9e4b0a1b2c3d4e5f6", "p@example.com", "service_provider", time.Now())
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.RequestID())
	authed := r.Group("", middleware.AuthMiddleware(tokens, quietLogger()))
	r.GET("/services/:id", GetService(nil))
	authed.POST("/bookings", CreateBooking(nil))
	authed.PATCH("/bookings/:id/status", UpdateBookingStatus(nil))
	authed.POST("/stories/:id/like", LikeStory(nil))
	r.GET("/bookings/recent-activity", RecentActivity(nil))
	r.GET("/services", ListServices(nil))

	cases := []struct {
		name, method, path, body string
	}{
		{"malformed service id", http.MethodGet, "/services/not-an-id", ""},
		{"malformed booking body", http.MethodPost, "/bookings", "{"},
		{"missing status", http.MethodPatch, "/bookings/65f1c2a9e4b0a1b2c3d4e5f6/status", "{}"},
		{"malformed story id", http.MethodPost, "/stories/xyz/like", ""},
		{"non-numeric activity limit", http.MethodGet, "/bookings/recent-activity?limit=ten", ""},
		{"non-numeric price", http.MethodGet, "/services?minPrice=cheap", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			res := decode(t, w)
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.RequestID)
		})
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	r := gin.New()
	r.POST("/logout", Logout(AuthCookie{TTL: time.Hour}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/logout", nil))

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.AccessTokenCookie, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestHealth(t *testing.T) {
	r := gin.New()
	r.GET("/health", Health())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode(t, w).Success)
}
