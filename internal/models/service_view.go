package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ViewDedupWindow is how long repeat views from one session are ignored.
const ViewDedupWindow = time.Hour

// ServiceView remembers that a session looked at a service. Documents expire
// through a TTL index once the dedup window has passed.
type ServiceView struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ServiceID  primitive.ObjectID  `bson:"service_id" json:"service_id"`
	ProviderID primitive.ObjectID  `bson:"provider_id" json:"provider_id"`
	UserID     *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	SessionID  string              `bson:"session_id" json:"session_id" validate:"required"`
	IPAddress  string              `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	UserAgent  string              `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	ViewedAt   time.Time           `bson:"viewed_at" json:"viewed_at"`
	ExpiresAt  time.Time           `bson:"expires_at" json:"expires_at"`
}

type ServiceViewsRepo interface {
	// TrackServiceView reports whether the view is new for its session.
	TrackServiceView(ctx context.Context, view *ServiceView, now time.Time) (bool, error)
}

func (mdb *MongodbRepo) TrackServiceView(ctx context.Context, view *ServiceView, now time.Time) (bool, error) {
	col, err := mdb.GetCollection(ctx, ServiceViewsColName)
	if err != nil {
		return false, fmt.Errorf("error getting collection: %w", err)
	}
	view.ViewedAt = now
	view.ExpiresAt = now.Add(ViewDedupWindow)

	// The TTL monitor runs about once a minute, so a stale marker may still
	// exist after the window. Refresh it in place when that happens.
	res, err := col.UpdateOne(ctx,
		bson.M{
			"service_id": view.ServiceID,
			"session_id": view.SessionID,
			"viewed_at":  bson.M{"$lte": now.Add(-ViewDedupWindow)},
		},
		bson.M{"$set": bson.M{"viewed_at": view.ViewedAt, "expires_at": view.ExpiresAt}},
	)
	if err != nil {
		return false, fmt.Errorf("error refreshing service view: %w", err)
	}
	if res.ModifiedCount > 0 {
		return true, nil
	}

	if view.ID.IsZero() {
		view.ID = primitive.NewObjectID()
	}
	if _, err := col.InsertOne(ctx, view); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("error inserting service view: %w", err)
	}
	return true, nil
}
