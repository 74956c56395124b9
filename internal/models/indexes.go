package models

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var collectionIndexes = map[string][]mongo.IndexModel{
	UsersColName: {
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		},
		{
			Keys: bson.D{{Key: "google_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"google_id": bson.M{"$type": "string"}}).
				SetName("google_id_unique"),
		},
	},
	ProvidersColName: {
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("user_id_unique"),
		},
		{
			Keys:    bson.D{{Key: "is_verified", Value: 1}, {Key: "rating", Value: -1}, {Key: "total_bookings", Value: -1}},
			Options: options.Index().SetName("verified_rating_idx"),
		},
	},
	ServicesColName: {
		{
			Keys:    bson.D{{Key: "provider_id", Value: 1}},
			Options: options.Index().SetName("provider_id_idx"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "is_active", Value: 1}},
			Options: options.Index().SetName("category_active_idx"),
		},
		{
			Keys: bson.D{
				{Key: "is_featured", Value: 1},
				{Key: "featured_until", Value: 1},
				{Key: "promotion_location", Value: 1},
			},
			Options: options.Index().SetName("promotion_idx"),
		},
		{
			Keys:    bson.D{{Key: "featured_priority", Value: -1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("priority_idx"),
		},
	},
	BookingsColName: {
		{
			Keys:    bson.D{{Key: "traveler_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("traveler_created_idx"),
		},
		{
			Keys:    bson.D{{Key: "provider_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("provider_created_idx"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("status_created_idx"),
		},
	},
	PromotionsColName: {
		{
			Keys:    bson.D{{Key: "service_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("service_created_idx"),
		},
	},
	PaymentsColName: {
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("user_id_idx"),
		},
		{
			Keys:    bson.D{{Key: "payment_type", Value: 1}, {Key: "payment_status", Value: 1}},
			Options: options.Index().SetName("type_status_idx"),
		},
		{
			Keys:    bson.D{{Key: "transaction_id", Value: 1}},
			Options: options.Index().SetName("transaction_id_idx"),
		},
	},
	ReviewsColName: {
		{
			Keys:    bson.D{{Key: "service_id", Value: 1}},
			Options: options.Index().SetName("service_id_idx"),
		},
		{
			Keys:    bson.D{{Key: "provider_id", Value: 1}},
			Options: options.Index().SetName("provider_id_idx"),
		},
		{
			Keys: bson.D{{Key: "booking_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"booking_id": bson.M{"$type": "objectId"}}).
				SetName("booking_id_unique"),
		},
		{
			Keys: bson.D{{Key: "service_id", Value: 1}, {Key: "traveler_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"direct": true}).
				SetName("direct_service_traveler_unique"),
		},
	},
	NotificationsColName: {
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "is_read", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("user_read_created_idx"),
		},
	},
	StoriesColName: {
		{
			Keys:    bson.D{{Key: "is_approved", Value: 1}, {Key: "is_active", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("visible_created_idx"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("user_id_idx"),
		},
	},
	StoryLikesColName: {
		{
			Keys:    bson.D{{Key: "story_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("story_user_unique"),
		},
	},
	StoryCommentsColName: {
		{
			Keys:    bson.D{{Key: "story_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("story_created_idx"),
		},
	},
	ServiceViewsColName: {
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_at_ttl"),
		},
		{
			Keys:    bson.D{{Key: "service_id", Value: 1}, {Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("service_session_unique"),
		},
	},
}

// EnsureIndexes creates every index the repositories rely on, including the
// unique ones that turn duplicate writes into conflicts.
func (mdb *MongodbRepo) EnsureIndexes(ctx context.Context) error {
	for colName, indexes := range collectionIndexes {
		col, err := mdb.GetCollection(ctx, colName)
		if err != nil {
			return fmt.Errorf("error getting collection: %w", err)
		}
		if _, err := col.Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("error creating indexes on %s: %w", colName, err)
		}
	}
	return nil
}
