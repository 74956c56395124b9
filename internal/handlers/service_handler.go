package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/isafari/internal/middleware"
	"github.com/joshua-takyi/isafari/internal/models"
	"github.com/joshua-takyi/isafari/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func parsePrice(c *gin.Context, key string) (float64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		badRequest(c, "invalid "+key)
		return 0, false
	}
	return v, true
}

func ListServices(l *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, offset := pagination(c)
		minPrice, ok := parsePrice(c, "minPrice")
		if !ok {
			return
		}
		maxPrice, ok := parsePrice(c, "maxPrice")
		if !ok {
			return
		}

		filter := models.ServiceFilter{
			Category: c.Query("category"),
			Location: c.Query("location"),
			Search:   c.Query("search"),
			SortBy:   c.Query("sortBy"),
			MinPrice: minPrice,
			MaxPrice: maxPrice,
		}
		if raw := c.Query("providerId"); raw != "" {
			id, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				badRequest(c, "invalid providerId")
				return
			}
			filter.ProviderID = id
		}

		list, total, err := l.List(c.Request.Context(), filter, offset, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(list, page, limit, total))
	}
}

// GetService counts one view per browser session; OptionalAuth attaches the
// viewer's user id when signed in.
func GetService(l *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		viewer := services.Viewer{
			SessionID: c.GetString(middleware.SessionKey),
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		if claims, ok := middleware.CurrentUser(c); ok {
			if uid, err := primitive.ObjectIDFromHex(claims.UserID); err == nil {
				viewer.UserID = &uid
			}
		}

		details, err := l.Get(c.Request.Context(), id, viewer)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(details, "Service retrieved successfully"))
	}
}

func MyServices(l *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUserID(c)
		if !ok {
			return
		}

		list, err := l.ListMine(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(list, "Services retrieved successfully"))
	}
}

func CreateService(l *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUserID(c)
		if !ok {
			return
		}

		var req services.CreateServiceInput
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request payload")
			return
		}

		service, err := l.Create(c.Request.Context(), userID, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(service, "Service created successfully"))
	}
}

func UpdateService(l *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUserID(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		var fields map[string]interface{}
		if err := c.ShouldBindJSON(&fields); err != nil || len(fields) == 0 {
			badRequest(c, "no fields to update")
			return
		}

		service, err := l.Update(c.Request.Context(), userID, id, fields)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(service, "Service updated successfully"))
	}
}

func DeleteService(l *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUserID(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		if err := l.Delete(c.Request.Context(), userID, id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Service deleted successfully"))
	}
}

// SetServiceStatus sets is_active from the body, or toggles it when the body
// carries no value.
func SetServiceStatus(l *services.ListingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUserID(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		var req struct {
			IsActive *bool `json:"is_active"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, "invalid request payload")
				return
			}
		}

		service, err := l.SetActive(c.Request.Context(), userID, id, req.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(service, "Service status updated successfully"))
	}
}
