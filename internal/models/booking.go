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

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// bookingTransitions is the full lifecycle; statuses without an entry are terminal.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCompleted, BookingCancelled},
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

func (s BookingStatus) Terminal() bool {
	return len(bookingTransitions[s]) == 0
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Counted reports whether a booking in this status contributes to revenue.
func (s BookingStatus) Counted() bool {
	return s == BookingConfirmed || s == BookingCompleted
}

type Booking struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TravelerID      primitive.ObjectID `bson:"traveler_id" json:"traveler_id"`
	ServiceID       primitive.ObjectID `bson:"service_id" json:"service_id"`
	ProviderID      primitive.ObjectID `bson:"provider_id" json:"provider_id"`
	BookingDate     time.Time          `bson:"booking_date" json:"booking_date"`
	StartTime       string             `bson:"start_time,omitempty" json:"start_time,omitempty"`
	EndTime         string             `bson:"end_time,omitempty" json:"end_time,omitempty"`
	Participants    int                `bson:"participants" json:"participants" validate:"min=1"`
	TotalAmount     float64            `bson:"total_amount" json:"total_amount"`
	Status          BookingStatus      `bson:"status" json:"status" validate:"oneof=pending confirmed cancelled completed"`
	PaymentStatus   PaymentStatus      `bson:"payment_status" json:"payment_status" validate:"oneof=pending paid refunded"`
	SpecialRequests string             `bson:"special_requests,omitempty" json:"special_requests,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// NewBooking prices the booking against the service as it is right now.
// total_amount is never recomputed afterwards.
func NewBooking(travelerID primitive.ObjectID, service *Service, date time.Time, participants int, now time.Time) *Booking {
	return &Booking{
		ID:            primitive.NewObjectID(),
		TravelerID:    travelerID,
		ServiceID:     service.ID,
		ProviderID:    service.ProviderID,
		BookingDate:   date,
		Participants:  participants,
		TotalAmount:   service.Price * float64(participants),
		Status:        BookingPending,
		PaymentStatus: PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

type BookingFilter struct {
	TravelerID primitive.ObjectID
	ProviderID primitive.ObjectID
	ServiceID  primitive.ObjectID
	Status     BookingStatus
	Statuses   []BookingStatus
	From       time.Time
	To         time.Time
}

func (f BookingFilter) query() bson.M {
	q := bson.M{}
	if !f.TravelerID.IsZero() {
		q["traveler_id"] = f.TravelerID
	}
	if !f.ProviderID.IsZero() {
		q["provider_id"] = f.ProviderID
	}
	if !f.ServiceID.IsZero() {
		q["service_id"] = f.ServiceID
	}
	if f.Status != "" {
		q["status"] = f.Status
	} else if len(f.Statuses) > 0 {
		q["status"] = bson.M{"$in": f.Statuses}
	}
	created := bson.M{}
	if !f.From.IsZero() {
		created["$gte"] = f.From
	}
	if !f.To.IsZero() {
		created["$lt"] = f.To
	}
	if len(created) > 0 {
		q["created_at"] = created
	}
	return q
}

type BookingsRepo interface {
	CreateBooking(ctx context.Context, booking *Booking) error
	GetBookingByID(ctx context.Context, id primitive.ObjectID) (*Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter, offset, limit int) ([]*Booking, int64, error)
	CountBookings(ctx context.Context, filter BookingFilter) (int64, error)
	DistinctTravelers(ctx context.Context, filter BookingFilter) (int, error)
	UpdateBookingStatus(ctx context.Context, id primitive.ObjectID, from, to BookingStatus) (*Booking, error)
}

func (mdb *MongodbRepo) CreateBooking(ctx context.Context, booking *Booking) error {
	col, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	if _, err := col.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("error inserting booking: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) GetBookingByID(ctx context.Context, id primitive.ObjectID) (*Booking, error) {
	col, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	var booking Booking
	err = col.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding booking: %w", err)
	}
	return &booking, nil
}

// ListBookings returns bookings newest first. A limit of 0 returns every match.
func (mdb *MongodbRepo) ListBookings(ctx context.Context, filter BookingFilter, offset, limit int) ([]*Booking, int64, error) {
	col, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return nil, 0, fmt.Errorf("error getting collection: %w", err)
	}
	query := filter.query()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("error finding bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, 0, fmt.Errorf("error decoding bookings: %w", err)
	}

	total := int64(len(bookings))
	if limit > 0 {
		if total, err = col.CountDocuments(ctx, query); err != nil {
			return nil, 0, fmt.Errorf("error counting bookings: %w", err)
		}
	}
	return bookings, total, nil
}

func (mdb *MongodbRepo) CountBookings(ctx context.Context, filter BookingFilter) (int64, error) {
	col, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return 0, fmt.Errorf("error getting collection: %w", err)
	}
	count, err := col.CountDocuments(ctx, filter.query())
	if err != nil {
		return 0, fmt.Errorf("error counting bookings: %w", err)
	}
	return count, nil
}

func (mdb *MongodbRepo) DistinctTravelers(ctx context.Context, filter BookingFilter) (int, error) {
	col, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return 0, fmt.Errorf("error getting collection: %w", err)
	}
	ids, err := col.Distinct(ctx, "traveler_id", filter.query())
	if err != nil {
		return 0, fmt.Errorf("error counting travelers: %w", err)
	}
	return len(ids), nil
}

// UpdateBookingStatus moves a booking from one status to another only if it
// is still in from. It returns nil when the booking was changed concurrently.
func (mdb *MongodbRepo) UpdateBookingStatus(ctx context.Context, id primitive.ObjectID, from, to BookingStatus) (*Booking, error) {
	col, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var booking Booking
	err = col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now()}},
		opts,
	).Decode(&booking)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error updating booking status: %w", err)
	}
	return &booking, nil
}
