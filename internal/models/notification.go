package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	NotificationNewBooking    = "new_booking"
	NotificationBookingStatus = "booking_status"
	NotificationStoryComment  = "story_comment"
)

type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Type      string             `bson:"type" json:"type" validate:"required"`
	Title     string             `bson:"title" json:"title" validate:"required"`
	Message   string             `bson:"message" json:"message" validate:"required"`
	Data      bson.M             `bson:"data,omitempty" json:"data,omitempty"`
	IsRead    bool               `bson:"is_read" json:"is_read"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

type NotificationsRepo interface {
	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID primitive.ObjectID, unreadOnly bool, offset, limit int) ([]*Notification, int64, error)
	MarkNotificationRead(ctx context.Context, id, userID primitive.ObjectID) (bool, error)
}

func (mdb *MongodbRepo) CreateNotification(ctx context.Context, n *Notification) error {
	col, err := mdb.GetCollection(ctx, NotificationsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if _, err := col.InsertOne(ctx, n); err != nil {
		return fmt.Errorf("error inserting notification: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) ListNotifications(ctx context.Context, userID primitive.ObjectID, unreadOnly bool, offset, limit int) ([]*Notification, int64, error) {
	col, err := mdb.GetCollection(ctx, NotificationsColName)
	if err != nil {
		return nil, 0, fmt.Errorf("error getting collection: %w", err)
	}
	query := bson.M{"user_id": userID}
	if unreadOnly {
		query["is_read"] = false
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("error finding notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifications := []*Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, 0, fmt.Errorf("error decoding notifications: %w", err)
	}
	total, err := col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting notifications: %w", err)
	}
	return notifications, total, nil
}

// MarkNotificationRead only matches notifications owned by userID.
func (mdb *MongodbRepo) MarkNotificationRead(ctx context.Context, id, userID primitive.ObjectID) (bool, error) {
	col, err := mdb.GetCollection(ctx, NotificationsColName)
	if err != nil {
		return false, fmt.Errorf("error getting collection: %w", err)
	}
	res, err := col.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return false, fmt.Errorf("error marking notification read: %w", err)
	}
	return res.MatchedCount > 0, nil
}
