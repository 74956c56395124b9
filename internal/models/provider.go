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

type ServiceProvider struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"user_id" json:"user_id"`
	BusinessName  string             `bson:"business_name" json:"business_name"`
	BusinessType  string             `bson:"business_type,omitempty" json:"business_type,omitempty"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	Location      string             `bson:"location,omitempty" json:"location,omitempty"`
	Country       string             `bson:"country,omitempty" json:"country,omitempty"`
	Region        string             `bson:"region,omitempty" json:"region,omitempty"`
	District      string             `bson:"district,omitempty" json:"district,omitempty"`
	Area          string             `bson:"area,omitempty" json:"area,omitempty"`
	LicenseNumber string             `bson:"license_number,omitempty" json:"license_number,omitempty"`
	Rating        float64            `bson:"rating" json:"rating" validate:"min=0,max=5"`
	TotalBookings int64              `bson:"total_bookings" json:"total_bookings"`
	IsVerified    bool               `bson:"is_verified" json:"is_verified"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

func (p *ServiceProvider) BeforeCreate(now time.Time) {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.BusinessName = strings.TrimSpace(p.BusinessName)
	p.CreatedAt = now
	p.UpdatedAt = now
}

// ProviderProfileFields are the columns a provider may edit on their profile.
var ProviderProfileFields = []string{
	"business_name", "business_type", "description", "location",
	"country", "region", "district", "area", "license_number",
}

type ProviderFilter struct {
	VerifiedOnly bool
	Country      string
	Region       string
}

type ProvidersRepo interface {
	CreateProvider(ctx context.Context, provider *ServiceProvider) error
	GetProviderByID(ctx context.Context, id primitive.ObjectID) (*ServiceProvider, error)
	GetProviderByUserID(ctx context.Context, userID primitive.ObjectID) (*ServiceProvider, error)
	ListProviders(ctx context.Context, filter ProviderFilter, offset, limit int) ([]*ServiceProvider, int64, error)
	UpdateProvider(ctx context.Context, id primitive.ObjectID, fields bson.M) (*ServiceProvider, error)
	IncrementProviderBookings(ctx context.Context, id primitive.ObjectID, delta int) error
	SetProviderRating(ctx context.Context, id primitive.ObjectID, rating float64) error
}

func (mdb *MongodbRepo) CreateProvider(ctx context.Context, provider *ServiceProvider) error {
	col, err := mdb.GetCollection(ctx, ProvidersColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	if _, err := col.InsertOne(ctx, provider); err != nil {
		return fmt.Errorf("error inserting provider: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) findOneProvider(ctx context.Context, filter bson.M) (*ServiceProvider, error) {
	col, err := mdb.GetCollection(ctx, ProvidersColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	var provider ServiceProvider
	err = col.FindOne(ctx, filter).Decode(&provider)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding provider: %w", err)
	}
	return &provider, nil
}

func (mdb *MongodbRepo) GetProviderByID(ctx context.Context, id primitive.ObjectID) (*ServiceProvider, error) {
	return mdb.findOneProvider(ctx, bson.M{"_id": id})
}

func (mdb *MongodbRepo) GetProviderByUserID(ctx context.Context, userID primitive.ObjectID) (*ServiceProvider, error) {
	return mdb.findOneProvider(ctx, bson.M{"user_id": userID})
}

func (mdb *MongodbRepo) ListProviders(ctx context.Context, filter ProviderFilter, offset, limit int) ([]*ServiceProvider, int64, error) {
	col, err := mdb.GetCollection(ctx, ProvidersColName)
	if err != nil {
		return nil, 0, fmt.Errorf("error getting collection: %w", err)
	}

	query := bson.M{}
	if filter.VerifiedOnly {
		query["is_verified"] = true
	}
	if filter.Country != "" {
		query["country"] = filter.Country
	}
	if filter.Region != "" {
		query["region"] = filter.Region
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "rating", Value: -1}, {Key: "total_bookings", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("error finding providers: %w", err)
	}
	defer cursor.Close(ctx)

	providers := []*ServiceProvider{}
	if err := cursor.All(ctx, &providers); err != nil {
		return nil, 0, fmt.Errorf("error decoding providers: %w", err)
	}

	total, err := col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting providers: %w", err)
	}
	return providers, total, nil
}

func (mdb *MongodbRepo) UpdateProvider(ctx context.Context, id primitive.ObjectID, fields bson.M) (*ServiceProvider, error) {
	col, err := mdb.GetCollection(ctx, ProvidersColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var provider ServiceProvider
	err = col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields}, opts).Decode(&provider)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error updating provider: %w", err)
	}
	return &provider, nil
}

func (mdb *MongodbRepo) IncrementProviderBookings(ctx context.Context, id primitive.ObjectID, delta int) error {
	col, err := mdb.GetCollection(ctx, ProvidersColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	_, err = col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"total_bookings": delta},
		"$set": bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("error incrementing provider bookings: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) SetProviderRating(ctx context.Context, id primitive.ObjectID, rating float64) error {
	col, err := mdb.GetCollection(ctx, ProvidersColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	_, err = col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"rating": rating, "updated_at": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("error updating provider rating: %w", err)
	}
	return nil
}
