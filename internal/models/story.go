package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const StoryCommentsPreview = 20

type TravelerStory struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"user_id" json:"user_id"`
	Title         string             `bson:"title" json:"title" validate:"required"`
	Story         string             `bson:"story" json:"story" validate:"required"`
	Location      string             `bson:"location" json:"location" validate:"required"`
	Duration      string             `bson:"duration,omitempty" json:"duration,omitempty"`
	Highlights    []string           `bson:"highlights" json:"highlights"`
	Media         []string           `bson:"media" json:"media"`
	IsApproved    bool               `bson:"is_approved" json:"is_approved"`
	IsActive      bool               `bson:"is_active" json:"is_active"`
	LikesCount    int64              `bson:"likes_count" json:"likes_count"`
	CommentsCount int64              `bson:"comments_count" json:"comments_count"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// BeforeCreate puts a new story in the moderation queue.
func (s *TravelerStory) BeforeCreate(now time.Time) {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	s.Title = strings.TrimSpace(s.Title)
	s.Location = strings.TrimSpace(s.Location)
	s.Duration = strings.TrimSpace(s.Duration)
	if s.Highlights == nil {
		s.Highlights = []string{}
	}
	if s.Media == nil {
		s.Media = []string{}
	}
	s.IsApproved = false
	s.IsActive = true
	s.LikesCount = 0
	s.CommentsCount = 0
	s.CreatedAt = now
	s.UpdatedAt = now
}

// Visible reports whether the story is shown publicly.
func (s *TravelerStory) Visible() bool {
	return s.IsApproved && s.IsActive
}

type StoryLike struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StoryID   primitive.ObjectID `bson:"story_id" json:"story_id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

type StoryComment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StoryID   primitive.ObjectID `bson:"story_id" json:"story_id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Comment   string             `bson:"comment" json:"comment" validate:"required"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

type StoriesRepo interface {
	CreateStory(ctx context.Context, story *TravelerStory) error
	GetStoryByID(ctx context.Context, id primitive.ObjectID) (*TravelerStory, error)
	ListVisibleStories(ctx context.Context, offset, limit int) ([]*TravelerStory, int64, error)
	// CreateLike fails with a duplicate key error when the user already liked the story.
	CreateLike(ctx context.Context, like *StoryLike) error
	CreateComment(ctx context.Context, comment *StoryComment) error
	ListComments(ctx context.Context, storyID primitive.ObjectID, limit int) ([]*StoryComment, error)
	IncrementStoryCounter(ctx context.Context, id primitive.ObjectID, field string, delta int) error
}

func (mdb *MongodbRepo) CreateStory(ctx context.Context, story *TravelerStory) error {
	col, err := mdb.GetCollection(ctx, StoriesColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	if _, err := col.InsertOne(ctx, story); err != nil {
		return fmt.Errorf("error inserting story: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) GetStoryByID(ctx context.Context, id primitive.ObjectID) (*TravelerStory, error) {
	col, err := mdb.GetCollection(ctx, StoriesColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	var story TravelerStory
	err = col.FindOne(ctx, bson.M{"_id": id}).Decode(&story)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding story: %w", err)
	}
	return &story, nil
}

func (mdb *MongodbRepo) ListVisibleStories(ctx context.Context, offset, limit int) ([]*TravelerStory, int64, error) {
	col, err := mdb.GetCollection(ctx, StoriesColName)
	if err != nil {
		return nil, 0, fmt.Errorf("error getting collection: %w", err)
	}
	query := bson.M{"is_approved": true, "is_active": true}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("error finding stories: %w", err)
	}
	defer cursor.Close(ctx)

	stories := []*TravelerStory{}
	if err := cursor.All(ctx, &stories); err != nil {
		return nil, 0, fmt.Errorf("error decoding stories: %w", err)
	}
	total, err := col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting stories: %w", err)
	}
	return stories, total, nil
}

func (mdb *MongodbRepo) CreateLike(ctx context.Context, like *StoryLike) error {
	col, err := mdb.GetCollection(ctx, StoryLikesColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	if like.ID.IsZero() {
		like.ID = primitive.NewObjectID()
	}
	if _, err := col.InsertOne(ctx, like); err != nil {
		return fmt.Errorf("error inserting story like: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) CreateComment(ctx context.Context, comment *StoryComment) error {
	col, err := mdb.GetCollection(ctx, StoryCommentsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	if _, err := col.InsertOne(ctx, comment); err != nil {
		return fmt.Errorf("error inserting story comment: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) ListComments(ctx context.Context, storyID primitive.ObjectID, limit int) ([]*StoryComment, error) {
	col, err := mdb.GetCollection(ctx, StoryCommentsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))

	cursor, err := col.Find(ctx, bson.M{"story_id": storyID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding comments: %w", err)
	}
	defer cursor.Close(ctx)

	comments := []*StoryComment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, fmt.Errorf("error decoding comments: %w", err)
	}
	return comments, nil
}

func (mdb *MongodbRepo) IncrementStoryCounter(ctx context.Context, id primitive.ObjectID, field string, delta int) error {
	switch field {
	case "likes_count", "comments_count":
	default:
		return fmt.Errorf("unknown story counter %q", field)
	}
	col, err := mdb.GetCollection(ctx, StoriesColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	if _, err := col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{field: delta}}); err != nil {
		return fmt.Errorf("error incrementing %s: %w", field, err)
	}
	return nil
}
