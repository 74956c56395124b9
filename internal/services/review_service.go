package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joshua-takyi/isafari/internal/apperr"
	"github.com/joshua-takyi/isafari/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type CreateReviewInput struct {
	BookingID string `json:"bookingId"`
	ServiceID string `json:"serviceId"`
	Rating    int    `json:"rating" validate:"min=1,max=5"`
	Comment   string `json:"comment" validate:"max=2000"`
}

type ReviewService struct {
	reviews   models.ReviewsRepo
	bookings  models.BookingsRepo
	services  models.ServicesRepo
	providers models.ProvidersRepo
	logger    *slog.Logger
	now       Clock
}

func NewReviewService(reviews models.ReviewsRepo, bookings models.BookingsRepo, services models.ServicesRepo, providers models.ProvidersRepo, logger *slog.Logger, now Clock) *ReviewService {
	return &ReviewService{
		reviews:   reviews,
		bookings:  bookings,
		services:  services,
		providers: providers,
		logger:    logger,
		now:       orNow(now),
	}
}

// Create stores a review and refreshes the service and provider averages.
// A review tied to a booking needs the booking to be the caller's and to
// have been confirmed; each booking can be reviewed once. Without a booking a
// traveler may review a service once. Providers never review their own services.
func (rs *ReviewService) Create(ctx context.Context, travelerID primitive.ObjectID, in CreateReviewInput) (*models.Review, error) {
	if err := models.Validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	review := &models.Review{TravelerID: travelerID, Rating: in.Rating, Comment: in.Comment}

	if id := strings.TrimSpace(in.BookingID); id != "" {
		bookingID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, apperr.Validation("invalid booking id")
		}
		booking, err := rs.bookings.GetBookingByID(ctx, bookingID)
		if err != nil {
			return nil, apperr.Store(err, "failed to load booking")
		}
		if booking == nil {
			return nil, apperr.NotFound("booking not found")
		}
		if booking.TravelerID != travelerID {
			return nil, apperr.Forbidden("you can only review your own bookings")
		}
		if !booking.Status.Counted() {
			return nil, apperr.Validation("only confirmed or completed bookings can be reviewed")
		}
		review.BookingID = &booking.ID
		review.ServiceID = booking.ServiceID
		review.ProviderID = booking.ProviderID
	} else {
		serviceID, err := primitive.ObjectIDFromHex(strings.TrimSpace(in.ServiceID))
		if err != nil {
			return nil, apperr.Validation("a booking id or service id is required")
		}
		service, err := rs.services.GetServiceByID(ctx, serviceID)
		if err != nil {
			return nil, apperr.Store(err, "failed to load service")
		}
		if service == nil {
			return nil, apperr.NotFound("service not found")
		}
		review.ServiceID = service.ID
		review.ProviderID = service.ProviderID
		review.Direct = true
	}

	own, err := rs.providers.GetProviderByUserID(ctx, travelerID)
	if err != nil {
		return nil, apperr.Store(err, "failed to load provider")
	}
	if own != nil && own.ID == review.ProviderID {
		return nil, apperr.Forbidden("providers cannot review their own services")
	}

	review.BeforeCreate(rs.now())
	if err := rs.reviews.CreateReview(ctx, review); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if review.Direct {
				return nil, apperr.Conflict("you have already reviewed this service")
			}
			return nil, apperr.Conflict("this booking has already been reviewed")
		}
		return nil, apperr.Store(err, "failed to create review")
	}
	rs.refreshRatings(ctx, review)

	rs.logger.Info("review created",
		"review_id", review.ID.Hex(),
		"service_id", review.ServiceID.Hex(),
		"rating", review.Rating,
	)
	return review, nil
}

// refreshRatings recomputes averages from the review ledger. Failures leave
// the previous averages in place.
func (rs *ReviewService) refreshRatings(ctx context.Context, review *models.Review) {
	if summary, err := rs.reviews.SummarizeRatings(ctx, "service_id", review.ServiceID); err != nil {
		rs.logger.Error("failed to summarize service ratings", "service_id", review.ServiceID.Hex(), "error", err)
	} else if _, err := rs.services.UpdateService(ctx, review.ServiceID, bson.M{"average_rating": models.RoundRating(summary.Average)}); err != nil {
		rs.logger.Error("failed to update service rating", "service_id", review.ServiceID.Hex(), "error", err)
	}

	if summary, err := rs.reviews.SummarizeRatings(ctx, "provider_id", review.ProviderID); err != nil {
		rs.logger.Error("failed to summarize provider ratings", "provider_id", review.ProviderID.Hex(), "error", err)
	} else if err := rs.providers.SetProviderRating(ctx, review.ProviderID, models.RoundRating(summary.Average)); err != nil {
		rs.logger.Error("failed to update provider rating", "provider_id", review.ProviderID.Hex(), "error", err)
	}
}

func (rs *ReviewService) ListForService(ctx context.Context, serviceID primitive.ObjectID, offset, limit int) ([]*models.Review, int64, error) {
	reviews, total, err := rs.reviews.ListReviewsByService(ctx, serviceID, offset, limit)
	if err != nil {
		return nil, 0, apperr.Store(err, "failed to list reviews")
	}
	return reviews, total, nil
}
