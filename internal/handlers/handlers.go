package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/isafari/internal/apperr"
	"github.com/joshua-takyi/isafari/internal/helpers"
	"github.com/joshua-takyi/isafari/internal/middleware"
	"github.com/joshua-takyi/isafari/internal/models"
	"github.com/joshua-takyi/isafari/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:        http.StatusBadRequest,
	apperr.KindUnauthorized:      http.StatusUnauthorized,
	apperr.KindForbidden:         http.StatusForbidden,
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindInvalidTransition: http.StatusConflict,
	apperr.KindConflict:          http.StatusConflict,
	apperr.KindStore:             http.StatusInternalServerError,
}

func requestID(c *gin.Context) string {
	return c.GetString(middleware.RequestIDKey)
}

// respondError maps a service error to its status. Store errors are handed
// to the ErrorHandler middleware for logging; their cause never reaches the client.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if kind == apperr.KindStore {
		_ = c.Error(err)
	}
	c.JSON(status, models.ErrorResponse(apperr.PublicMessage(err), string(kind), requestID(c)))
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse(message, string(apperr.KindValidation), requestID(c)))
}

// currentUserID reads the authenticated user set by AuthMiddleware.
func currentUserID(c *gin.Context) (primitive.ObjectID, *helpers.Claims, bool) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("authentication required", string(apperr.KindUnauthorized), requestID(c)))
		return primitive.NilObjectID, nil, false
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("invalid user id in token", string(apperr.KindUnauthorized), requestID(c)))
		return primitive.NilObjectID, nil, false
	}
	return id, claims, true
}

func paramID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(helpers.CleanID(c.Param(name)))
	if err != nil {
		badRequest(c, "invalid "+name)
		return primitive.NilObjectID, false
	}
	return id, true
}

// pagination reads 1-based page and limit query values.
func pagination(c *gin.Context) (page, limit, offset int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultPageSize)))
	offset, limit = services.Page(page, limit)
	return offset/limit + 1, limit, offset
}

// AuthCookie controls the access_token cookie set on sign-in.
type AuthCookie struct {
	TTL    time.Duration
	Secure bool
}

func (a AuthCookie) set(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, token, int(a.TTL.Seconds()), "/", "", a.Secure, true)
}

func (a AuthCookie) clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", a.Secure, true)
}

func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"status": "ok", "time": time.Now().UTC()}, "iSafari API is running"))
	}
}
