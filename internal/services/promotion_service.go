package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/isafari/internal/apperr"
	"github.com/joshua-takyi/isafari/internal/metrics"
	"github.com/joshua-takyi/isafari/internal/models"
	"github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MaxPromotionDays     = 365
	DefaultPaymentMethod = "demo"
)

var promotionLocations = map[string]bool{
	"homepage":             true,
	"both":                 true,
	"homepage_slides":      true,
	"top_carousel":         true,
	"trending_section":     true,
	"increased_visibility": true,
	"search_priority":      true,
}

var defaultPromotionLocation = map[models.PromotionType]string{
	models.PromotionFeatured:    "homepage",
	models.PromotionTrending:    "trending_section",
	models.PromotionSearchBoost: "search_priority",
}

type PromoteInput struct {
	PromotionType    models.PromotionType `json:"promotion_type"`
	DurationDays     int                  `json:"duration_days"`
	Location         string               `json:"location"`
	PaymentMethod    string               `json:"payment_method"`
	PaymentReference string               `json:"payment_reference"`
	Amount           float64              `json:"amount"`
}

type PromotionResult struct {
	Service   *models.Service          `json:"service"`
	Promotion *models.ServicePromotion `json:"promotion"`
	Payment   *models.Payment          `json:"payment,omitempty"`
}

// RankedService is a promoted listing decorated with its provider.
type RankedService struct {
	*models.Service
	BusinessName   string  `json:"business_name,omitempty"`
	ProviderRating float64 `json:"provider_rating"`
}

type PromotionService struct {
	services   models.ServicesRepo
	providers  models.ProvidersRepo
	promotions models.PromotionsRepo
	payments   models.PaymentsRepo
	bookings   models.BookingsRepo
	cache      *cache.Cache
	logger     *slog.Logger
	now        Clock
}

// NewPromotionService builds the promotion engine. Ranking candidates are
// cached for cacheTTL; a non-positive TTL disables the cache.
func NewPromotionService(services models.ServicesRepo, providers models.ProvidersRepo, promotions models.PromotionsRepo, payments models.PaymentsRepo, bookings models.BookingsRepo, cacheTTL time.Duration, logger *slog.Logger, now Clock) *PromotionService {
	ps := &PromotionService{
		services:   services,
		providers:  providers,
		promotions: promotions,
		payments:   payments,
		bookings:   bookings,
		logger:     logger,
		now:        orNow(now),
	}
	if cacheTTL > 0 {
		ps.cache = cache.New(cacheTTL, 2*cacheTTL)
	}
	return ps
}

// Promote buys a time-bounded visibility boost for a service the caller owns.
func (ps *PromotionService) Promote(ctx context.Context, userID, serviceID primitive.ObjectID, in PromoteInput) (*PromotionResult, error) {
	if !in.PromotionType.Purchasable() {
		return nil, apperr.Validation("invalid promotion type %q", in.PromotionType)
	}
	if in.DurationDays == 0 {
		in.DurationDays = models.DefaultPromotionDays
	}
	if in.DurationDays < 1 || in.DurationDays > MaxPromotionDays {
		return nil, apperr.Validation("duration_days must be between 1 and %d", MaxPromotionDays)
	}
	in.Location = strings.TrimSpace(in.Location)
	if in.Location == "" {
		in.Location = defaultPromotionLocation[in.PromotionType]
	}
	if !promotionLocations[in.Location] {
		return nil, apperr.Validation("invalid promotion location %q", in.Location)
	}
	if in.PaymentMethod = strings.TrimSpace(in.PaymentMethod); in.PaymentMethod == "" {
		in.PaymentMethod = DefaultPaymentMethod
	}
	if in.PaymentReference = strings.TrimSpace(in.PaymentReference); in.PaymentReference == "" {
		in.PaymentReference = "DEMO-" + uuid.NewString()
	}

	service, provider, err := ownedService(ctx, ps.providers, ps.services, userID, serviceID)
	if err != nil {
		return nil, err
	}

	now := ps.now()
	cost := models.PromotionCost(in.PromotionType, in.Location, in.Amount)
	expires := now.AddDate(0, 0, in.DurationDays)
	promotion := &models.ServicePromotion{
		ID:                primitive.NewObjectID(),
		ServiceID:         service.ID,
		PromotionType:     in.PromotionType,
		PromotionLocation: in.Location,
		DurationDays:      in.DurationDays,
		Cost:              cost,
		PaymentMethod:     in.PaymentMethod,
		PaymentReference:  in.PaymentReference,
		StartedAt:         now,
		ExpiresAt:         expires,
		CreatedAt:         now,
	}

	updated, err := ps.services.ApplyPromotion(ctx, service.ID, promotion.State())
	if err != nil {
		return nil, apperr.Store(err, "failed to promote service")
	}
	if updated == nil {
		return nil, apperr.NotFound("service not found")
	}
	if err := ps.promotions.CreatePromotion(ctx, promotion); err != nil {
		// The service is already flagged; ReconcileService rebuilds it from the ledger.
		ps.logger.Error("promotion applied but ledger entry failed",
			"service_id", service.ID.Hex(),
			"error", err,
		)
		return nil, apperr.Store(err, "failed to record promotion")
	}

	payment := &models.Payment{
		ID:            primitive.NewObjectID(),
		UserID:        userID,
		ProviderID:    provider.ID,
		ServiceID:     service.ID,
		PaymentType:   models.PaymentFeaturedService,
		Amount:        cost,
		Currency:      service.Currency,
		PaymentMethod: in.PaymentMethod,
		PaymentStatus: models.PaymentRecordCompleted,
		TransactionID: in.PaymentReference,
		Description:   fmt.Sprintf("%s promotion for %s (%d days)", in.PromotionType, service.Title, in.DurationDays),
		ValidFrom:     now,
		ValidUntil:    &expires,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := ps.payments.CreatePayment(ctx, payment); err != nil {
		ps.logger.Error("failed to record promotion payment",
			"service_id", service.ID.Hex(),
			"promotion_id", promotion.ID.Hex(),
			"error", err,
		)
		payment = nil
	}

	ps.InvalidateRankings()
	metrics.PromotionsPurchased.WithLabelValues(string(in.PromotionType)).Inc()
	metrics.PromotionRevenue.Add(cost)
	ps.logger.Info("service promoted",
		"service_id", service.ID.Hex(),
		"type", in.PromotionType,
		"location", in.Location,
		"cost", cost,
		"expires_at", expires,
	)
	return &PromotionResult{Service: updated, Promotion: promotion, Payment: payment}, nil
}

func (ps *PromotionService) FeaturedSlides(ctx context.Context) ([]*RankedService, error) {
	return ps.ranked(ctx, models.FeaturedSlidesView)
}

func (ps *PromotionService) Trending(ctx context.Context) ([]*RankedService, error) {
	return ps.ranked(ctx, models.TrendingView)
}

func (ps *PromotionService) ranked(ctx context.Context, view models.RankedView) ([]*RankedService, error) {
	now := ps.now()
	candidates, err := ps.candidates(ctx, view, now)
	if err != nil {
		return nil, err
	}
	// Candidates may come from the cache, so the time filter runs again here.
	ranked := view.Rank(candidates, now)

	providers := map[primitive.ObjectID]*models.ServiceProvider{}
	out := make([]*RankedService, 0, len(ranked))
	for _, s := range ranked {
		provider, seen := providers[s.ProviderID]
		if !seen {
			if provider, err = ps.providers.GetProviderByID(ctx, s.ProviderID); err != nil {
				return nil, apperr.Store(err, "failed to load provider")
			}
			providers[s.ProviderID] = provider
		}
		item := &RankedService{Service: s}
		if provider != nil {
			item.BusinessName = provider.BusinessName
			item.ProviderRating = provider.Rating
		}
		out = append(out, item)
	}
	return out, nil
}

// rankedCandidates is a cached candidate set. The set is capped, so it goes
// stale as soon as its first member's promotion lapses.
type rankedCandidates struct {
	services []*models.Service
	staleAt  time.Time
}

func earliestExpiry(services []*models.Service) time.Time {
	var earliest time.Time
	for _, s := range services {
		if s.FeaturedUntil != nil && (earliest.IsZero() || s.FeaturedUntil.Before(earliest)) {
			earliest = *s.FeaturedUntil
		}
	}
	return earliest
}

func (ps *PromotionService) candidates(ctx context.Context, view models.RankedView, now time.Time) ([]*models.Service, error) {
	if ps.cache != nil {
		if cached, ok := ps.cache.Get(view.Name); ok {
			entry := cached.(rankedCandidates)
			if entry.staleAt.IsZero() || now.Before(entry.staleAt) {
				metrics.RankingCacheLookups.WithLabelValues(view.Name, "hit").Inc()
				return entry.services, nil
			}
			ps.cache.Delete(view.Name)
			metrics.RankingCacheLookups.WithLabelValues(view.Name, "stale").Inc()
		} else {
			metrics.RankingCacheLookups.WithLabelValues(view.Name, "miss").Inc()
		}
	}
	services, err := ps.services.FindPromotedServices(ctx, view, now)
	if err != nil {
		return nil, apperr.Store(err, fmt.Sprintf("failed to load %s services", view.Name))
	}
	if ps.cache != nil {
		ps.cache.SetDefault(view.Name, rankedCandidates{services: services, staleAt: earliestExpiry(services)})
	}
	return services, nil
}

// InvalidateRankings drops every cached candidate set.
func (ps *PromotionService) InvalidateRankings() {
	if ps.cache != nil {
		ps.cache.Flush()
	}
}

// History lists a service's promotion ledger, newest first, to its owner.
func (ps *PromotionService) History(ctx context.Context, userID, serviceID primitive.ObjectID) ([]*models.ServicePromotion, error) {
	if _, _, err := ownedService(ctx, ps.providers, ps.services, userID, serviceID); err != nil {
		return nil, err
	}
	promotions, err := ps.promotions.ListPromotions(ctx, serviceID)
	if err != nil {
		return nil, apperr.Store(err, "failed to list promotions")
	}
	return promotions, nil
}

// ReconcileService rebuilds the derived counters of a service from their
// ledgers: featured_priority and the live promotion from ServicePromotion,
// bookings_count from Booking.
func (ps *PromotionService) ReconcileService(ctx context.Context, userID, serviceID primitive.ObjectID) (*models.Service, error) {
	if _, _, err := ownedService(ctx, ps.providers, ps.services, userID, serviceID); err != nil {
		return nil, err
	}
	now := ps.now()

	history, err := ps.promotions.ListPromotions(ctx, serviceID)
	if err != nil {
		return nil, apperr.Store(err, "failed to list promotions")
	}
	latest, err := ps.promotions.LatestPromotion(ctx, serviceID)
	if err != nil {
		return nil, apperr.Store(err, "failed to load latest promotion")
	}
	var state *models.PromotionState
	if latest != nil && latest.ExpiresAt.After(now) {
		s := latest.State()
		state = &s
	}
	if err := ps.services.RestorePromotion(ctx, serviceID, state, int64(len(history))); err != nil {
		return nil, apperr.Store(err, "failed to restore promotion")
	}

	bookings, err := ps.bookings.CountBookings(ctx, models.BookingFilter{ServiceID: serviceID})
	if err != nil {
		return nil, apperr.Store(err, "failed to count bookings")
	}
	service, err := ps.services.UpdateService(ctx, serviceID, bson.M{"bookings_count": bookings, "updated_at": now})
	if err != nil {
		return nil, apperr.Store(err, "failed to update bookings count")
	}
	if service == nil {
		return nil, apperr.NotFound("service not found")
	}

	ps.InvalidateRankings()
	ps.logger.Info("service reconciled",
		"service_id", serviceID.Hex(),
		"featured_priority", len(history),
		"bookings_count", bookings,
		"promotion_live", state != nil,
	)
	return service, nil
}

// SweepExpired clears is_featured on services whose promotion has lapsed.
// Ranked views already ignore them; this keeps stored flags honest.
func (ps *PromotionService) SweepExpired(ctx context.Context) (int64, error) {
	cleared, err := ps.services.ClearExpiredPromotions(ctx, ps.now())
	if err != nil {
		return 0, apperr.Store(err, "failed to clear expired promotions")
	}
	if cleared > 0 {
		metrics.ExpiredPromotionsCleared.Add(float64(cleared))
		ps.InvalidateRankings()
	}
	return cleared, nil
}
