package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/isafari/internal/models"
	"github.com/joshua-takyi/isafari/internal/services"
)

func PromoteService(p *services.PromotionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUserID(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		var req services.PromoteInput
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request payload")
			return
		}

		result, err := p.Promote(c.Request.Context(), userID, id, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(result, "Service promoted successfully"))
	}
}

func PromotionHistory(p *services.PromotionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUserID(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		history, err := p.History(c.Request.Context(), userID, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(history, "Promotions retrieved successfully"))
	}
}

// ReconcileService rebuilds promotion and booking counters from the ledgers.
func ReconcileService(p *services.PromotionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUserID(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		service, err := p.ReconcileService(c.Request.Context(), userID, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(service, "Service reconciled successfully"))
	}
}

func FeaturedSlides(p *services.PromotionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		slides, err := p.FeaturedSlides(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(slides, "Featured services retrieved successfully"))
	}
}

func TrendingServices(p *services.PromotionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		trending, err := p.Trending(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(trending, "Trending services retrieved successfully"))
	}
}
