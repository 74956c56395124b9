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

type UserType string

const (
	UserTypeTraveler        UserType = "traveler"
	UserTypeServiceProvider UserType = "service_provider"
)

func (t UserType) Valid() bool {
	return t == UserTypeTraveler || t == UserTypeServiceProvider
}

type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email      string             `bson:"email" json:"email" validate:"required,email"`
	Password   string             `bson:"password,omitempty" json:"-"`
	FirstName  string             `bson:"first_name" json:"first_name"`
	LastName   string             `bson:"last_name" json:"last_name"`
	Phone      string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Country    string             `bson:"country,omitempty" json:"country,omitempty"`
	UserType   UserType           `bson:"user_type" json:"user_type" validate:"required,oneof=traveler service_provider"`
	GoogleID   string             `bson:"google_id,omitempty" json:"-"`
	AvatarURL  string             `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	IsVerified bool               `bson:"is_verified" json:"is_verified"`
	IsActive   bool               `bson:"is_active" json:"is_active"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// NormalizeEmail is applied before every write and lookup so the unique
// index behaves case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) BeforeCreate(now time.Time) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Email = NormalizeEmail(u.Email)
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.LastName = strings.TrimSpace(u.LastName)
	if u.Password == "" && u.GoogleID == "" {
		return fmt.Errorf("password is required unless signing in with google")
	}
	u.IsActive = true
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

// UserProfileFields lists the fields a user may change on their own profile.
// email and user_type are deliberately absent.
var UserProfileFields = []string{"first_name", "last_name", "phone", "country", "avatar_url"}

type UserRepo interface {
	CreateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id primitive.ObjectID) error
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*User, error)
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*User, error)
	UpdateUser(ctx context.Context, id primitive.ObjectID, fields bson.M) (*User, error)
}

func (mdb *MongodbRepo) CreateUser(ctx context.Context, user *User) error {
	col, err := mdb.GetCollection(ctx, UsersColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	if _, err := col.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("error inserting user: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	col, err := mdb.GetCollection(ctx, UsersColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	_, err = col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (mdb *MongodbRepo) findOneUser(ctx context.Context, filter bson.M) (*User, error) {
	col, err := mdb.GetCollection(ctx, UsersColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	var user User
	err = col.FindOne(ctx, filter).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding user: %w", err)
	}
	return &user, nil
}

func (mdb *MongodbRepo) GetUserByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	return mdb.findOneUser(ctx, bson.M{"_id": id})
}

func (mdb *MongodbRepo) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return mdb.findOneUser(ctx, bson.M{"email": NormalizeEmail(email)})
}

func (mdb *MongodbRepo) GetUserByGoogleID(ctx context.Context, googleID string) (*User, error) {
	return mdb.findOneUser(ctx, bson.M{"google_id": googleID})
}

func (mdb *MongodbRepo) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*User, error) {
	if len(ids) == 0 {
		return []*User{}, nil
	}
	col, err := mdb.GetCollection(ctx, UsersColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	opts := options.Find().SetProjection(bson.M{"password": 0})
	cursor, err := col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []*User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("error decoding users: %w", err)
	}
	return users, nil
}

func (mdb *MongodbRepo) UpdateUser(ctx context.Context, id primitive.ObjectID, fields bson.M) (*User, error) {
	col, err := mdb.GetCollection(ctx, UsersColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user User
	err = col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields}, opts).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error updating user: %w", err)
	}
	return &user, nil
}
