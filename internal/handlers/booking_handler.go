package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/isafari/internal/apperr"
	"github.com/joshua-takyi/isafari/internal/models"
	"github.com/joshua-takyi/isafari/internal/services"
)

func CreateBooking(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUserID(c)
		if !ok {
			return
		}

		var req services.CreateBookingInput
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request payload")
			return
		}

		booking, err := b.Create(c.Request.Context(), userID, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(booking, "Booking created successfully"))
	}
}

func ListBookings(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, claims, ok := currentUserID(c)
		if !ok {
			return
		}
		page, limit, offset := pagination(c)

		bookings, total, err := b.List(c.Request.Context(), userID, models.UserType(claims.UserType), c.Query("status"), offset, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(bookings, page, limit, total))
	}
}

func GetBooking(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUserID(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		booking, err := b.Get(c.Request.Context(), userID, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(booking, "Booking retrieved successfully"))
	}
}

func UpdateBookingStatus(b *services.BookingService) gin.HandlerFunc {
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
			Status models.BookingStatus `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "status is required")
			return
		}

		booking, err := b.Transition(c.Request.Context(), userID, id, req.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(booking, "Booking status updated successfully"))
	}
}

func CancelBooking(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUserID(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		booking, err := b.Cancel(c.Request.Context(), userID, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(booking, "Booking cancelled successfully"))
	}
}

func RecentActivity(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultActivityLimit)))
		if err != nil {
			respondError(c, apperr.Validation("invalid limit"))
			return
		}

		activity, err := b.RecentActivity(c.Request.Context(), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(activity, "Recent activity retrieved successfully"))
	}
}

func ProviderAnalytics(a *services.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUserID(c)
		if !ok {
			return
		}

		analytics, err := a.ProviderAnalytics(c.Request.Context(), userID, c.DefaultQuery("timeRange", services.DefaultTimeRange))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(analytics, "Analytics retrieved successfully"))
	}
}
