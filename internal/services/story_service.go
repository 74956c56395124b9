package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joshua-takyi/isafari/internal/apperr"
	"github.com/joshua-takyi/isafari/internal/helpers"
	"github.com/joshua-takyi/isafari/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type CreateStoryInput struct {
	Title      string   `json:"title" validate:"required,max=200"`
	Story      string   `json:"story" validate:"required"`
	Location   string   `json:"location" validate:"required"`
	Duration   string   `json:"duration"`
	Highlights []string `json:"highlights"`
	Media      []string `json:"media"`
}

type StoryDetails struct {
	*models.TravelerStory
	Comments []*models.StoryComment `json:"comments"`
}

type StoryService struct {
	stories       models.StoriesRepo
	uploader      helpers.ImageUploader
	notifications *NotificationService
	logger        *slog.Logger
	now           Clock
}

func NewStoryService(stories models.StoriesRepo, uploader helpers.ImageUploader, notifications *NotificationService, logger *slog.Logger, now Clock) *StoryService {
	return &StoryService{
		stories:       stories,
		uploader:      uploader,
		notifications: notifications,
		logger:        logger,
		now:           orNow(now),
	}
}

func (ss *StoryService) List(ctx context.Context, offset, limit int) ([]*models.TravelerStory, int64, error) {
	stories, total, err := ss.stories.ListVisibleStories(ctx, offset, limit)
	if err != nil {
		return nil, 0, apperr.Store(err, "failed to list stories")
	}
	return stories, total, nil
}

// Get returns a published story with its latest comments. Authors can also
// see their own stories while they wait for approval.
func (ss *StoryService) Get(ctx context.Context, viewerID *primitive.ObjectID, id primitive.ObjectID) (*StoryDetails, error) {
	story, err := ss.stories.GetStoryByID(ctx, id)
	if err != nil {
		return nil, apperr.Store(err, "failed to load story")
	}
	if story == nil || (!story.Visible() && (viewerID == nil || *viewerID != story.UserID)) {
		return nil, apperr.NotFound("story not found")
	}
	comments, err := ss.stories.ListComments(ctx, story.ID, models.StoryCommentsPreview)
	if err != nil {
		return nil, apperr.Store(err, "failed to load comments")
	}
	return &StoryDetails{TravelerStory: story, Comments: comments}, nil
}

func (ss *StoryService) Create(ctx context.Context, userID primitive.ObjectID, in CreateStoryInput) (*models.TravelerStory, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Story = strings.TrimSpace(in.Story)
	in.Location = strings.TrimSpace(in.Location)
	if err := models.Validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	media := in.Media
	if len(media) > 0 && ss.uploader != nil {
		urls, err := ss.uploader.UploadImages(ctx, media, helpers.StoryFolder)
		if err != nil {
			return nil, apperr.Store(err, "failed to upload story media")
		}
		media = urls
	}

	story := &models.TravelerStory{
		UserID:     userID,
		Title:      in.Title,
		Story:      in.Story,
		Location:   in.Location,
		Duration:   in.Duration,
		Highlights: in.Highlights,
		Media:      media,
	}
	story.BeforeCreate(ss.now())
	if err := ss.stories.CreateStory(ctx, story); err != nil {
		return nil, apperr.Store(err, "failed to create story")
	}
	ss.logger.Info("story submitted", "story_id", story.ID.Hex(), "user_id", userID.Hex())
	return story, nil
}

// Like records one like per user per story. A repeat like is a Conflict.
func (ss *StoryService) Like(ctx context.Context, userID, storyID primitive.ObjectID) error {
	story, err := ss.visibleStory(ctx, storyID)
	if err != nil {
		return err
	}
	like := &models.StoryLike{
		ID:        primitive.NewObjectID(),
		StoryID:   story.ID,
		UserID:    userID,
		CreatedAt: ss.now(),
	}
	if err := ss.stories.CreateLike(ctx, like); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("you already liked this story")
		}
		return apperr.Store(err, "failed to like story")
	}
	if err := ss.stories.IncrementStoryCounter(ctx, story.ID, "likes_count", 1); err != nil {
		ss.logger.Error("failed to increment likes", "story_id", story.ID.Hex(), "error", err)
	}
	return nil
}

func (ss *StoryService) Comment(ctx context.Context, userID, storyID primitive.ObjectID, text string) (*models.StoryComment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("comment cannot be empty")
	}
	story, err := ss.visibleStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	now := ss.now()
	comment := &models.StoryComment{
		ID:        primitive.NewObjectID(),
		StoryID:   story.ID,
		UserID:    userID,
		Comment:   text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := ss.stories.CreateComment(ctx, comment); err != nil {
		return nil, apperr.Store(err, "failed to add comment")
	}
	if err := ss.stories.IncrementStoryCounter(ctx, story.ID, "comments_count", 1); err != nil {
		ss.logger.Error("failed to increment comments", "story_id", story.ID.Hex(), "error", err)
	}
	if story.UserID != userID {
		ss.notifications.Notify(ctx, story.UserID, models.NotificationStoryComment,
			"New comment",
			fmt.Sprintf("Someone commented on %q", story.Title),
			bson.M{"story_id": story.ID, "comment_id": comment.ID},
		)
	}
	return comment, nil
}

func (ss *StoryService) visibleStory(ctx context.Context, id primitive.ObjectID) (*models.TravelerStory, error) {
	story, err := ss.stories.GetStoryByID(ctx, id)
	if err != nil {
		return nil, apperr.Store(err, "failed to load story")
	}
	if story == nil || !story.Visible() {
		return nil, apperr.NotFound("story not found")
	}
	return story, nil
}
