package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/isafari/internal/models"
	"github.com/joshua-takyi/isafari/internal/services"
)

func UpdateMe(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUserID(c)
		if !ok {
			return
		}

		var fields map[string]interface{}
		if err := c.ShouldBindJSON(&fields); err != nil || len(fields) == 0 {
			badRequest(c, "no fields to update")
			return
		}

		user, err := u.UpdateProfile(c.Request.Context(), userID, fields)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(user, "Profile updated successfully"))
	}
}

func ListProviders(p *services.ProviderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, offset := pagination(c)

		providers, total, err := p.List(c.Request.Context(), c.Query("country"), c.Query("region"), offset, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(providers, page, limit, total))
	}
}

func GetProvider(p *services.ProviderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		provider, err := p.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(provider, "Provider retrieved successfully"))
	}
}

func UpdateProviderProfile(p *services.ProviderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUserID(c)
		if !ok {
			return
		}

		var fields map[string]interface{}
		if err := c.ShouldBindJSON(&fields); err != nil || len(fields) == 0 {
			badRequest(c, "no fields to update")
			return
		}

		provider, err := p.UpdateProfile(c.Request.Context(), userID, fields)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(provider, "Provider profile updated successfully"))
	}
}
