package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/isafari/internal/middleware"
	"github.com/joshua-takyi/isafari/internal/models"
	"github.com/joshua-takyi/isafari/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func CreateReview(r *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUserID(c)
		if !ok {
			return
		}

		var req services.CreateReviewInput
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request payload")
			return
		}

		review, err := r.Create(c.Request.Context(), userID, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(review, "Review submitted successfully"))
	}
}

func ServiceReviews(r *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		page, limit, offset := pagination(c)

		reviews, total, err := r.ListForService(c.Request.Context(), id, offset, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(reviews, page, limit, total))
	}
}

func ListStories(s *services.StoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, offset := pagination(c)

		stories, total, err := s.List(c.Request.Context(), offset, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(stories, page, limit, total))
	}
}

func GetStory(s *services.StoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		var viewer *primitive.ObjectID
		if claims, ok := middleware.CurrentUser(c); ok {
			if uid, err := primitive.ObjectIDFromHex(claims.UserID); err == nil {
				viewer = &uid
			}
		}

		story, err := s.Get(c.Request.Context(), viewer, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(story, "Story retrieved successfully"))
	}
}

func CreateStory(s *services.StoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUserID(c)
		if !ok {
			return
		}

		var req services.CreateStoryInput
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request payload")
			return
		}

		story, err := s.Create(c.Request.Context(), userID, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(story, "Story submitted for review"))
	}
}

func LikeStory(s *services.StoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUserID(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		if err := s.Like(c.Request.Context(), userID, id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Story liked"))
	}
}

func CommentOnStory(s *services.StoryService) gin.HandlerFunc {
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
			Comment string `json:"comment"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request payload")
			return
		}

		comment, err := s.Comment(c.Request.Context(), userID, id, req.Comment)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(comment, "Comment added"))
	}
}

func ListNotifications(n *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUserID(c)
		if !ok {
			return
		}
		page, limit, offset := pagination(c)

		list, total, err := n.List(c.Request.Context(), userID, c.Query("unread") == "true", offset, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(list, page, limit, total))
	}
}

func MarkNotificationRead(n *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUserID(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		if err := n.MarkRead(c.Request.Context(), userID, id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Notification marked as read"))
	}
}
