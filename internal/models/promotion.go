package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	FeaturedCost         = 50000
	FeaturedBothCost     = 80000
	TrendingCost         = 30000
	SearchBoostCost      = 20000
	DefaultPromotionDays = 30
)

// PromotionCost prices a purchase from the fixed schedule. fallback is only
// used for types outside the schedule; when it is not positive the featured
// price applies.
func PromotionCost(t PromotionType, location string, fallback float64) float64 {
	switch t {
	case PromotionFeatured:
		if location == "both" {
			return FeaturedBothCost
		}
		return FeaturedCost
	case PromotionTrending:
		return TrendingCost
	case PromotionSearchBoost:
		return SearchBoostCost
	}
	if fallback > 0 {
		return fallback
	}
	return FeaturedCost
}

// ServicePromotion is one immutable purchase in the promotion ledger.
type ServicePromotion struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ServiceID         primitive.ObjectID `bson:"service_id" json:"service_id"`
	PromotionType     PromotionType      `bson:"promotion_type" json:"promotion_type" validate:"oneof=featured trending search_boost"`
	PromotionLocation string             `bson:"promotion_location,omitempty" json:"promotion_location,omitempty"`
	DurationDays      int                `bson:"duration_days" json:"duration_days" validate:"min=1"`
	Cost              float64            `bson:"cost" json:"cost"`
	PaymentMethod     string             `bson:"payment_method,omitempty" json:"payment_method,omitempty"`
	PaymentReference  string             `bson:"payment_reference,omitempty" json:"payment_reference,omitempty"`
	StartedAt         time.Time          `bson:"started_at" json:"started_at"`
	ExpiresAt         time.Time          `bson:"expires_at" json:"expires_at"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
}

func (p *ServicePromotion) State() PromotionState {
	return PromotionState{
		Type:          p.PromotionType,
		Location:      p.PromotionLocation,
		FeaturedUntil: p.ExpiresAt,
	}
}

type PromotionsRepo interface {
	CreatePromotion(ctx context.Context, promotion *ServicePromotion) error
	LatestPromotion(ctx context.Context, serviceID primitive.ObjectID) (*ServicePromotion, error)
	ListPromotions(ctx context.Context, serviceID primitive.ObjectID) ([]*ServicePromotion, error)
}

func (mdb *MongodbRepo) CreatePromotion(ctx context.Context, promotion *ServicePromotion) error {
	col, err := mdb.GetCollection(ctx, PromotionsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	if promotion.ID.IsZero() {
		promotion.ID = primitive.NewObjectID()
	}
	if _, err := col.InsertOne(ctx, promotion); err != nil {
		return fmt.Errorf("error inserting promotion: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) LatestPromotion(ctx context.Context, serviceID primitive.ObjectID) (*ServicePromotion, error) {
	col, err := mdb.GetCollection(ctx, PromotionsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	var promotion ServicePromotion
	err = col.FindOne(ctx, bson.M{"service_id": serviceID}, opts).Decode(&promotion)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding latest promotion: %w", err)
	}
	return &promotion, nil
}

func (mdb *MongodbRepo) ListPromotions(ctx context.Context, serviceID primitive.ObjectID) ([]*ServicePromotion, error) {
	col, err := mdb.GetCollection(ctx, PromotionsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := col.Find(ctx, bson.M{"service_id": serviceID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding promotions: %w", err)
	}
	defer cursor.Close(ctx)

	promotions := []*ServicePromotion{}
	if err := cursor.All(ctx, &promotions); err != nil {
		return nil, fmt.Errorf("error decoding promotions: %w", err)
	}
	return promotions, nil
}
