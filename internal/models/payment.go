package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PaymentType string

const (
	PaymentPremiumMembership PaymentType = "premium_membership"
	PaymentFeaturedService   PaymentType = "featured_service"
	PaymentBooking           PaymentType = "booking_payment"
)

const (
	PaymentRecordPending   = "pending"
	PaymentRecordCompleted = "completed"
	PaymentRecordFailed    = "failed"
	PaymentRecordRefunded  = "refunded"
)

type Payment struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"user_id" json:"user_id"`
	ProviderID    primitive.ObjectID `bson:"provider_id,omitempty" json:"provider_id,omitempty"`
	ServiceID     primitive.ObjectID `bson:"service_id,omitempty" json:"service_id,omitempty"`
	PaymentType   PaymentType        `bson:"payment_type" json:"payment_type" validate:"oneof=premium_membership featured_service booking_payment"`
	Amount        float64            `bson:"amount" json:"amount" validate:"gte=0"`
	Currency      string             `bson:"currency" json:"currency"`
	PaymentMethod string             `bson:"payment_method,omitempty" json:"payment_method,omitempty"`
	PaymentStatus string             `bson:"payment_status" json:"payment_status" validate:"oneof=pending completed failed refunded"`
	TransactionID string             `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	ValidFrom     time.Time          `bson:"valid_from" json:"valid_from"`
	ValidUntil    *time.Time         `bson:"valid_until,omitempty" json:"valid_until,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

type PaymentsRepo interface {
	CreatePayment(ctx context.Context, payment *Payment) error
	ListPaymentsByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]*Payment, error)
}

func (mdb *MongodbRepo) CreatePayment(ctx context.Context, payment *Payment) error {
	col, err := mdb.GetCollection(ctx, PaymentsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	if payment.ID.IsZero() {
		payment.ID = primitive.NewObjectID()
	}
	if payment.Currency == "" {
		payment.Currency = DefaultCurrency
	}
	if _, err := col.InsertOne(ctx, payment); err != nil {
		return fmt.Errorf("error inserting payment: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) ListPaymentsByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]*Payment, error) {
	col, err := mdb.GetCollection(ctx, PaymentsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))

	cursor, err := col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding payments: %w", err)
	}
	defer cursor.Close(ctx)

	payments := []*Payment{}
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("error decoding payments: %w", err)
	}
	return payments, nil
}
