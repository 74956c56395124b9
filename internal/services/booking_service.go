package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joshua-takyi/isafari/internal/apperr"
	"github.com/joshua-takyi/isafari/internal/metrics"
	"github.com/joshua-takyi/isafari/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultActivityLimit = 10
	MaxActivityLimit     = 50
)

type CreateBookingInput struct {
	ServiceID       string `json:"serviceId"`
	BookingDate     string `json:"bookingDate"`
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
	Participants    *int   `json:"participants"`
	SpecialRequests string `json:"specialRequests"`
}

type ActivityItem struct {
	ID        primitive.ObjectID `json:"id"`
	Type      string             `json:"type"`
	User      string             `json:"user"`
	Action    string             `json:"action"`
	Location  string             `json:"location"`
	Timestamp time.Time          `json:"timestamp"`
	Category  string             `json:"category"`
}

type ActivityStats struct {
	WeeklyBookings  int64 `json:"weeklyBookings"`
	ActiveTravelers int   `json:"activeTravelers"`
	Destinations    int   `json:"destinations"`
	TotalServices   int64 `json:"totalServices"`
}

type RecentActivity struct {
	Activities []ActivityItem `json:"activities"`
	Stats      ActivityStats  `json:"stats"`
}

type BookingService struct {
	bookings      models.BookingsRepo
	services      models.ServicesRepo
	providers     models.ProvidersRepo
	users         models.UserRepo
	notifications *NotificationService
	logger        *slog.Logger
	now           Clock
}

func NewBookingService(bookings models.BookingsRepo, services models.ServicesRepo, providers models.ProvidersRepo, users models.UserRepo, notifications *NotificationService, logger *slog.Logger, now Clock) *BookingService {
	return &BookingService{
		bookings:      bookings,
		services:      services,
		providers:     providers,
		users:         users,
		notifications: notifications,
		logger:        logger,
		now:           orNow(now),
	}
}

// Create books an active service for travelerID. The total is frozen at the
// service's current price.
func (bs *BookingService) Create(ctx context.Context, travelerID primitive.ObjectID, in CreateBookingInput) (*models.Booking, error) {
	serviceID, err := primitive.ObjectIDFromHex(strings.TrimSpace(in.ServiceID))
	if err != nil {
		return nil, apperr.Validation("invalid service id")
	}
	if strings.TrimSpace(in.BookingDate) == "" {
		return nil, apperr.Validation("booking date is required")
	}
	date, err := parseDate(in.BookingDate)
	if err != nil {
		return nil, err
	}
	participants := 1
	if in.Participants != nil {
		participants = *in.Participants
	}
	if participants < 1 {
		return nil, apperr.Validation("participants must be at least 1")
	}

	service, err := bs.services.GetServiceByID(ctx, serviceID)
	if err != nil {
		return nil, apperr.Store(err, "failed to load service")
	}
	if service == nil || !service.IsActive {
		return nil, apperr.NotFound("service not found or not available")
	}

	booking := models.NewBooking(travelerID, service, date, participants, bs.now())
	booking.StartTime = strings.TrimSpace(in.StartTime)
	booking.EndTime = strings.TrimSpace(in.EndTime)
	booking.SpecialRequests = strings.TrimSpace(in.SpecialRequests)
	if err := bs.bookings.CreateBooking(ctx, booking); err != nil {
		return nil, apperr.Store(err, "failed to create booking")
	}
	metrics.BookingsCreated.Inc()

	// Counters are best effort; ReconcileService rebuilds bookings_count from the ledger.
	if err := bs.services.IncrementServiceCounter(ctx, service.ID, "bookings_count", 1); err != nil {
		bs.logger.Error("failed to increment service bookings", "service_id", service.ID.Hex(), "error", err)
	}
	if err := bs.providers.IncrementProviderBookings(ctx, service.ProviderID, 1); err != nil {
		bs.logger.Error("failed to increment provider bookings", "provider_id", service.ProviderID.Hex(), "error", err)
	}

	if provider, err := bs.providers.GetProviderByID(ctx, service.ProviderID); err != nil {
		bs.logger.Error("failed to load provider for notification", "provider_id", service.ProviderID.Hex(), "error", err)
	} else if provider != nil {
		bs.notifications.Notify(ctx, provider.UserID, models.NotificationNewBooking,
			"New booking",
			fmt.Sprintf("New booking for %s with %d participant(s)", service.Title, participants),
			bson.M{"booking_id": booking.ID, "service_id": service.ID},
		)
	}

	bs.logger.Info("booking created",
		"booking_id", booking.ID.Hex(),
		"service_id", service.ID.Hex(),
		"traveler_id", travelerID.Hex(),
		"total_amount", booking.TotalAmount,
	)
	return booking, nil
}

// Transition moves a booking along its lifecycle. The owning provider drives
// it forward; only the owning traveler may cancel.
func (bs *BookingService) Transition(ctx context.Context, userID, bookingID primitive.ObjectID, next models.BookingStatus) (*models.Booking, error) {
	booking, err := bs.transition(ctx, userID, bookingID, next)
	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	metrics.BookingTransitions.WithLabelValues(string(next), outcome).Inc()
	return booking, err
}

// Cancel is Transition to cancelled.
func (bs *BookingService) Cancel(ctx context.Context, userID, bookingID primitive.ObjectID) (*models.Booking, error) {
	return bs.Transition(ctx, userID, bookingID, models.BookingCancelled)
}

func (bs *BookingService) transition(ctx context.Context, userID, bookingID primitive.ObjectID, next models.BookingStatus) (*models.Booking, error) {
	if !next.Valid() {
		return nil, apperr.InvalidTransition("unknown booking status %q", next)
	}
	booking, err := bs.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, apperr.Store(err, "failed to load booking")
	}
	if booking == nil {
		return nil, apperr.NotFound("booking not found")
	}
	if booking.Status.Terminal() {
		return nil, apperr.InvalidTransition("booking is already %s", booking.Status)
	}

	var provider *models.ServiceProvider
	if next == models.BookingCancelled {
		if booking.TravelerID != userID {
			return nil, apperr.Forbidden("only the traveler who made the booking can cancel it")
		}
	} else {
		provider, err = bs.providers.GetProviderByUserID(ctx, userID)
		if err != nil {
			return nil, apperr.Store(err, "failed to load provider profile")
		}
		if provider == nil || provider.ID != booking.ProviderID {
			return nil, apperr.Forbidden("only the provider of this booking can update its status")
		}
	}

	if !booking.Status.CanTransitionTo(next) {
		return nil, apperr.InvalidTransition("cannot move booking from %s to %s", booking.Status, next)
	}
	updated, err := bs.bookings.UpdateBookingStatus(ctx, booking.ID, booking.Status, next)
	if err != nil {
		return nil, apperr.Store(err, "failed to update booking status")
	}
	if updated == nil {
		return nil, apperr.InvalidTransition("booking was changed by another request")
	}

	bs.notifyTransition(ctx, updated, provider)
	bs.logger.Info("booking status changed",
		"booking_id", updated.ID.Hex(),
		"from", booking.Status,
		"to", next,
		"actor_id", userID.Hex(),
	)
	return updated, nil
}

// notifyTransition tells the party that did not make the change.
func (bs *BookingService) notifyTransition(ctx context.Context, booking *models.Booking, actingProvider *models.ServiceProvider) {
	data := bson.M{"booking_id": booking.ID, "status": booking.Status}
	message := fmt.Sprintf("Booking %s is now %s", booking.ID.Hex(), booking.Status)
	if actingProvider != nil {
		bs.notifications.Notify(ctx, booking.TravelerID, models.NotificationBookingStatus, "Booking updated", message, data)
		return
	}
	provider, err := bs.providers.GetProviderByID(ctx, booking.ProviderID)
	if err != nil || provider == nil {
		if err != nil {
			bs.logger.Error("failed to load provider for notification", "provider_id", booking.ProviderID.Hex(), "error", err)
		}
		return
	}
	bs.notifications.Notify(ctx, provider.UserID, models.NotificationBookingStatus, "Booking cancelled", message, data)
}

// Get returns a booking visible to its traveler or its provider.
func (bs *BookingService) Get(ctx context.Context, userID, bookingID primitive.ObjectID) (*models.Booking, error) {
	booking, err := bs.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, apperr.Store(err, "failed to load booking")
	}
	if booking == nil {
		return nil, apperr.NotFound("booking not found")
	}
	if booking.TravelerID == userID {
		return booking, nil
	}
	provider, err := bs.providers.GetProviderByUserID(ctx, userID)
	if err != nil {
		return nil, apperr.Store(err, "failed to load provider profile")
	}
	if provider == nil || provider.ID != booking.ProviderID {
		return nil, apperr.Forbidden("you do not have access to this booking")
	}
	return booking, nil
}

// List returns the caller's bookings: made by a traveler, or received by a provider.
func (bs *BookingService) List(ctx context.Context, userID primitive.ObjectID, userType models.UserType, status string, offset, limit int) ([]*models.Booking, int64, error) {
	filter := models.BookingFilter{}
	if status = strings.TrimSpace(status); status != "" {
		filter.Status = models.BookingStatus(status)
		if !filter.Status.Valid() {
			return nil, 0, apperr.Validation("invalid booking status %q", status)
		}
	}
	if userType == models.UserTypeServiceProvider {
		provider, err := providerForUser(ctx, bs.providers, userID)
		if err != nil {
			return nil, 0, err
		}
		filter.ProviderID = provider.ID
	} else {
		filter.TravelerID = userID
	}

	bookings, total, err := bs.bookings.ListBookings(ctx, filter, offset, limit)
	if err != nil {
		return nil, 0, apperr.Store(err, "failed to list bookings")
	}
	return bookings, total, nil
}

// RecentActivity is the public feed of latest confirmed bookings plus
// platform-wide counters.
func (bs *BookingService) RecentActivity(ctx context.Context, limit int) (*RecentActivity, error) {
	if limit < 1 {
		limit = DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}
	now := bs.now()
	counted := []models.BookingStatus{models.BookingConfirmed, models.BookingCompleted}

	recent, _, err := bs.bookings.ListBookings(ctx, models.BookingFilter{Statuses: counted}, 0, limit)
	if err != nil {
		return nil, apperr.Store(err, "failed to load recent bookings")
	}
	activities, err := bs.describe(ctx, recent)
	if err != nil {
		return nil, err
	}

	result := &RecentActivity{Activities: activities}
	if result.Stats.WeeklyBookings, err = bs.bookings.CountBookings(ctx, models.BookingFilter{
		Statuses: counted,
		From:     now.AddDate(0, 0, -7),
	}); err != nil {
		return nil, apperr.Store(err, "failed to count weekly bookings")
	}
	if result.Stats.ActiveTravelers, err = bs.bookings.DistinctTravelers(ctx, models.BookingFilter{
		From: now.AddDate(0, 0, -30),
	}); err != nil {
		return nil, apperr.Store(err, "failed to count travelers")
	}
	if result.Stats.Destinations, err = bs.services.DistinctServiceLocations(ctx); err != nil {
		return nil, apperr.Store(err, "failed to count destinations")
	}
	if result.Stats.TotalServices, err = bs.services.CountServices(ctx, models.ServiceFilter{ActiveOnly: true}); err != nil {
		return nil, apperr.Store(err, "failed to count services")
	}
	return result, nil
}

func (bs *BookingService) describe(ctx context.Context, bookings []*models.Booking) ([]ActivityItem, error) {
	items := make([]ActivityItem, 0, len(bookings))
	if len(bookings) == 0 {
		return items, nil
	}
	userIDs := make([]primitive.ObjectID, 0, len(bookings))
	serviceIDs := make([]primitive.ObjectID, 0, len(bookings))
	for _, b := range bookings {
		userIDs = append(userIDs, b.TravelerID)
		serviceIDs = append(serviceIDs, b.ServiceID)
	}

	users, err := bs.users.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, apperr.Store(err, "failed to load travelers")
	}
	services, err := bs.services.GetServicesByIDs(ctx, serviceIDs)
	if err != nil {
		return nil, apperr.Store(err, "failed to load services")
	}
	usersByID := make(map[primitive.ObjectID]*models.User, len(users))
	for _, u := range users {
		usersByID[u.ID] = u
	}
	servicesByID := make(map[primitive.ObjectID]*models.Service, len(services))
	for _, s := range services {
		servicesByID[s.ID] = s
	}

	for _, b := range bookings {
		item := ActivityItem{
			ID:        b.ID,
			Type:      "booking",
			User:      "A traveler",
			Action:    "booked a service",
			Timestamp: b.CreatedAt,
		}
		if u := usersByID[b.TravelerID]; u != nil {
			item.User = shortName(u)
		}
		if s := servicesByID[b.ServiceID]; s != nil {
			item.Action = "booked " + s.Title
			item.Location = s.Location
			item.Category = s.Category
		}
		items = append(items, item)
	}
	return items, nil
}

// shortName renders "First L." for public feeds.
func shortName(u *models.User) string {
	first := strings.TrimSpace(u.FirstName)
	last := strings.TrimSpace(u.LastName)
	if first == "" {
		return "A traveler"
	}
	if last == "" {
		return first
	}
	return fmt.Sprintf("%s %s.", first, strings.ToUpper(string([]rune(last)[:1])))
}
