package models

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Review struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	BookingID  *primitive.ObjectID `bson:"booking_id,omitempty" json:"booking_id,omitempty"`
	TravelerID primitive.ObjectID  `bson:"traveler_id" json:"traveler_id"`
	ServiceID  primitive.ObjectID  `bson:"service_id" json:"service_id"`
	ProviderID primitive.ObjectID  `bson:"provider_id" json:"provider_id"`
	Rating     int                 `bson:"rating" json:"rating" validate:"min=1,max=5"`
	Comment    string              `bson:"comment,omitempty" json:"comment,omitempty"`
	// Direct marks a review left without a booking; one per service and traveler.
	Direct     bool                `bson:"direct,omitempty" json:"direct,omitempty"`
	CreatedAt  time.Time           `bson:"created_at" json:"created_at"`
}

func (r *Review) BeforeCreate(now time.Time) {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	r.Comment = strings.TrimSpace(r.Comment)
	r.CreatedAt = now
}

// RatingSummary is an average over a set of reviews.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

// RoundRating rounds to one decimal place.
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}

type ReviewsRepo interface {
	CreateReview(ctx context.Context, review *Review) error
	ListReviewsByService(ctx context.Context, serviceID primitive.ObjectID, offset, limit int) ([]*Review, int64, error)
	ListReviewsByBookings(ctx context.Context, bookingIDs []primitive.ObjectID) ([]*Review, error)
	SummarizeRatings(ctx context.Context, field string, id primitive.ObjectID) (RatingSummary, error)
}

func (mdb *MongodbRepo) CreateReview(ctx context.Context, review *Review) error {
	col, err := mdb.GetCollection(ctx, ReviewsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	if _, err := col.InsertOne(ctx, review); err != nil {
		return fmt.Errorf("error inserting review: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) ListReviewsByService(ctx context.Context, serviceID primitive.ObjectID, offset, limit int) ([]*Review, int64, error) {
	col, err := mdb.GetCollection(ctx, ReviewsColName)
	if err != nil {
		return nil, 0, fmt.Errorf("error getting collection: %w", err)
	}
	query := bson.M{"service_id": serviceID}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("error finding reviews: %w", err)
	}
	defer cursor.Close(ctx)

	reviews := []*Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, 0, fmt.Errorf("error decoding reviews: %w", err)
	}
	total, err := col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting reviews: %w", err)
	}
	return reviews, total, nil
}

func (mdb *MongodbRepo) ListReviewsByBookings(ctx context.Context, bookingIDs []primitive.ObjectID) ([]*Review, error) {
	if len(bookingIDs) == 0 {
		return []*Review{}, nil
	}
	col, err := mdb.GetCollection(ctx, ReviewsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	cursor, err := col.Find(ctx, bson.M{"booking_id": bson.M{"$in": bookingIDs}})
	if err != nil {
		return nil, fmt.Errorf("error finding reviews: %w", err)
	}
	defer cursor.Close(ctx)

	reviews := []*Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, fmt.Errorf("error decoding reviews: %w", err)
	}
	return reviews, nil
}

// SummarizeRatings averages every review whose field (service_id or
// provider_id) equals id.
func (mdb *MongodbRepo) SummarizeRatings(ctx context.Context, field string, id primitive.ObjectID) (RatingSummary, error) {
	switch field {
	case "service_id", "provider_id":
	default:
		return RatingSummary{}, fmt.Errorf("cannot summarize reviews by %q", field)
	}
	col, err := mdb.GetCollection(ctx, ReviewsColName)
	if err != nil {
		return RatingSummary{}, fmt.Errorf("error getting collection: %w", err)
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{field: id}}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"average": bson.M{"$avg": "$rating"},
			"count":   bson.M{"$sum": 1},
		}}},
	}
	cursor, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return RatingSummary{}, fmt.Errorf("error aggregating ratings: %w", err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Average float64 `bson:"average"`
		Count   int64   `bson:"count"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return RatingSummary{}, fmt.Errorf("error decoding ratings: %w", err)
	}
	if len(result) == 0 {
		return RatingSummary{}, nil
	}
	return RatingSummary{Average: RoundRating(result[0].Average), Count: result[0].Count}, nil
}
