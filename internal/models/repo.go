package models

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var Validate = validator.New()

const (
	UsersColName         = "users"
	ProvidersColName     = "service_providers"
	ServicesColName      = "services"
	BookingsColName      = "bookings"
	PromotionsColName    = "service_promotions"
	PaymentsColName      = "payments"
	ReviewsColName       = "reviews"
	NotificationsColName = "notifications"
	StoriesColName       = "traveler_stories"
	StoryLikesColName    = "story_likes"
	StoryCommentsColName = "story_comments"
	ServiceViewsColName  = "service_views"
)

type MongodbRepo struct {
	mongodbClient *mongo.Client
	dbName        string
}

func MongodbNewRepo(mongodbClient *mongo.Client, dbName string) *MongodbRepo {
	return &MongodbRepo{
		mongodbClient: mongodbClient,
		dbName:        dbName,
	}
}

func (mdb *MongodbRepo) GetCollection(ctx context.Context, colName string) (*mongo.Collection, error) {
	if mdb.mongodbClient == nil {
		return nil, fmt.Errorf("mongodb client is not initialized")
	}
	return mdb.mongodbClient.Database(mdb.dbName).Collection(colName), nil
}

// ParseObjectID converts a hex id coming from a path or a token.
func ParseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid id %q", id)
	}
	return oid, nil
}
