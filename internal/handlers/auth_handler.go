package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/isafari/internal/models"
	"github.com/joshua-takyi/isafari/internal/services"
)

func Register(u *services.UserService, cookie AuthCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req services.RegisterInput
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request payload")
			return
		}

		result, err := u.Register(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}

		cookie.set(c, result.Token)
		c.JSON(http.StatusCreated, models.SuccessResponse(result, "Account created successfully"))
	}
}

func Login(u *services.UserService, cookie AuthCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "email and password are required")
			return
		}

		result, err := u.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, err)
			return
		}

		cookie.set(c, result.Token)
		c.JSON(http.StatusOK, models.SuccessResponse(result, "Login successful"))
	}
}

// GoogleSignIn exchanges a Google ID token. Unknown accounts get the verified
// profile back so the client can complete registration.
func GoogleSignIn(u *services.UserService, cookie AuthCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			IDToken string `json:"idToken" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "idToken is required")
			return
		}

		result, err := u.GoogleSignIn(c.Request.Context(), req.IDToken)
		if err != nil {
			respondError(c, err)
			return
		}
		if result.NeedsRegistration {
			c.JSON(http.StatusOK, models.SuccessResponse(result, "Registration required"))
			return
		}

		cookie.set(c, result.Token)
		c.JSON(http.StatusOK, models.SuccessResponse(result, "Login successful"))
	}
}

func Me(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUserID(c)
		if !ok {
			return
		}

		result, err := u.Me(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(result, "User retrieved successfully"))
	}
}

func Logout(cookie AuthCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie.clear(c)
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Logged out successfully"))
	}
}
