package services

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/joshua-takyi/isafari/internal/apperr"
	"github.com/joshua-takyi/isafari/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

const (
	topServicesLimit  = 5
	topCountriesLimit = 5
	trailingMonths    = 6
	unknownCountry    = "Unknown"
)

var timeRanges = map[string]time.Duration{
	"7days":  7 * 24 * time.Hour,
	"30days": 30 * 24 * time.Hour,
	"90days": 90 * 24 * time.Hour,
	"1year":  365 * 24 * time.Hour,
}

const DefaultTimeRange = "30days"

type Metric struct {
	Total  float64 `json:"total"`
	Growth float64 `json:"growth"`
	Trend  string  `json:"trend"`
}

type RatingMetric struct {
	Average float64 `json:"average"`
	Total   int     `json:"total"`
	Growth  float64 `json:"growth"`
	Trend   string  `json:"trend"`
}

type AnalyticsSummary struct {
	Revenue   Metric       `json:"revenue"`
	Bookings  Metric       `json:"bookings"`
	Customers Metric       `json:"customers"`
	Rating    RatingMetric `json:"rating"`
}

type TopService struct {
	ServiceID primitive.ObjectID `json:"service_id"`
	Name      string             `json:"name"`
	Bookings  int                `json:"bookings"`
	Revenue   float64            `json:"revenue"`
	Rating    float64            `json:"rating"`
}

type CountryShare struct {
	Country    string `json:"country"`
	Bookings   int    `json:"bookings"`
	Percentage int    `json:"percentage"`
}

type MonthlyPoint struct {
	Month    string  `json:"month"`
	Revenue  float64 `json:"revenue"`
	Bookings int     `json:"bookings"`
}

type ProviderAnalytics struct {
	TimeRange    string           `json:"timeRange"`
	Analytics    AnalyticsSummary `json:"analytics"`
	TopServices  []TopService     `json:"topServices"`
	TopCountries []CountryShare   `json:"topCountries"`
	MonthlyData  []MonthlyPoint   `json:"monthlyData"`
}

type AnalyticsService struct {
	bookings  models.BookingsRepo
	services  models.ServicesRepo
	providers models.ProvidersRepo
	users     models.UserRepo
	reviews   models.ReviewsRepo
	logger    *slog.Logger
	now       Clock
}

func NewAnalyticsService(bookings models.BookingsRepo, services models.ServicesRepo, providers models.ProvidersRepo, users models.UserRepo, reviews models.ReviewsRepo, logger *slog.Logger, now Clock) *AnalyticsService {
	return &AnalyticsService{
		bookings:  bookings,
		services:  services,
		providers: providers,
		users:     users,
		reviews:   reviews,
		logger:    logger,
		now:       orNow(now),
	}
}

// ProviderAnalytics summarizes the caller's bookings over timeRange and
// compares them against the period just before it. It never writes.
func (as *AnalyticsService) ProviderAnalytics(ctx context.Context, userID primitive.ObjectID, timeRange string) (*ProviderAnalytics, error) {
	span, ok := timeRanges[timeRange]
	if !ok {
		timeRange = DefaultTimeRange
		span = timeRanges[DefaultTimeRange]
	}
	provider, err := providerForUser(ctx, as.providers, userID)
	if err != nil {
		return nil, err
	}

	now := as.now()
	start := now.Add(-span)
	counted := []models.BookingStatus{models.BookingConfirmed, models.BookingCompleted}
	firstMonth := monthStart(now, -(trailingMonths - 1))

	var current, previous, monthly []*models.Booking
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, _, err = as.bookings.ListBookings(gctx, models.BookingFilter{ProviderID: provider.ID, From: start}, 0, 0)
		return err
	})
	g.Go(func() error {
		var err error
		previous, _, err = as.bookings.ListBookings(gctx, models.BookingFilter{
			ProviderID: provider.ID,
			Statuses:   counted,
			From:       start.Add(-span),
			To:         start,
		}, 0, 0)
		return err
	})
	g.Go(func() error {
		var err error
		monthly, _, err = as.bookings.ListBookings(gctx, models.BookingFilter{
			ProviderID: provider.ID,
			Statuses:   counted,
			From:       firstMonth,
		}, 0, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Store(err, "failed to load bookings for analytics")
	}

	confirmed := make([]*models.Booking, 0, len(current))
	for _, b := range current {
		if b.Status.Counted() {
			confirmed = append(confirmed, b)
		}
	}

	ratings, err := as.bookingRatings(ctx, current)
	if err != nil {
		return nil, err
	}
	countries, err := as.travelerCountries(ctx, current)
	if err != nil {
		return nil, err
	}

	revenue := sumRevenue(confirmed)
	previousRevenue := sumRevenue(previous)
	revenueGrowth := growth(revenue, previousRevenue)
	bookingsGrowth := growth(float64(len(confirmed)), float64(len(previous)))

	var ratingSum float64
	var ratingCount int
	for _, b := range current {
		if r, ok := ratings[b.ID]; ok {
			ratingSum += float64(r)
			ratingCount++
		}
	}
	var avgRating float64
	if ratingCount > 0 {
		avgRating = models.RoundRating(ratingSum / float64(ratingCount))
	}

	topServices, err := as.topServices(ctx, confirmed, ratings)
	if err != nil {
		return nil, err
	}

	return &ProviderAnalytics{
		TimeRange: timeRange,
		Analytics: AnalyticsSummary{
			Revenue:   Metric{Total: revenue, Growth: revenueGrowth, Trend: trend(revenueGrowth)},
			Bookings:  Metric{Total: float64(len(confirmed)), Growth: bookingsGrowth, Trend: trend(bookingsGrowth)},
			Customers: Metric{Total: float64(uniqueTravelers(current)), Trend: "neutral"},
			Rating:    RatingMetric{Average: avgRating, Total: ratingCount, Trend: "neutral"},
		},
		TopServices:  topServices,
		TopCountries: countryShares(current, countries),
		MonthlyData:  monthlySeries(monthly, now),
	}, nil
}

// bookingRatings maps booking id to the rating of the review left for it.
func (as *AnalyticsService) bookingRatings(ctx context.Context, bookings []*models.Booking) (map[primitive.ObjectID]int, error) {
	ratings := map[primitive.ObjectID]int{}
	if len(bookings) == 0 {
		return ratings, nil
	}
	ids := make([]primitive.ObjectID, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
	}
	reviews, err := as.reviews.ListReviewsByBookings(ctx, ids)
	if err != nil {
		return nil, apperr.Store(err, "failed to load reviews for analytics")
	}
	for _, r := range reviews {
		if r.BookingID != nil {
			ratings[*r.BookingID] = r.Rating
		}
	}
	return ratings, nil
}

func (as *AnalyticsService) travelerCountries(ctx context.Context, bookings []*models.Booking) (map[primitive.ObjectID]string, error) {
	countries := map[primitive.ObjectID]string{}
	if len(bookings) == 0 {
		return countries, nil
	}
	seen := map[primitive.ObjectID]bool{}
	ids := []primitive.ObjectID{}
	for _, b := range bookings {
		if !seen[b.TravelerID] {
			seen[b.TravelerID] = true
			ids = append(ids, b.TravelerID)
		}
	}
	users, err := as.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Store(err, "failed to load travelers for analytics")
	}
	for _, u := range users {
		countries[u.ID] = u.Country
	}
	return countries, nil
}

func (as *AnalyticsService) topServices(ctx context.Context, confirmed []*models.Booking, ratings map[primitive.ObjectID]int) ([]TopService, error) {
	type acc struct {
		TopService
		ratingSum   int
		ratingCount int
	}
	byService := map[primitive.ObjectID]*acc{}
	ids := []primitive.ObjectID{}
	for _, b := range confirmed {
		a, ok := byService[b.ServiceID]
		if !ok {
			a = &acc{TopService: TopService{ServiceID: b.ServiceID}}
			byService[b.ServiceID] = a
			ids = append(ids, b.ServiceID)
		}
		a.Bookings++
		a.Revenue += b.TotalAmount
		if r, ok := ratings[b.ID]; ok {
			a.ratingSum += r
			a.ratingCount++
		}
	}
	if len(ids) == 0 {
		return []TopService{}, nil
	}

	services, err := as.services.GetServicesByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Store(err, "failed to load services for analytics")
	}
	for _, s := range services {
		if a, ok := byService[s.ID]; ok {
			a.Name = s.Title
		}
	}

	out := make([]TopService, 0, len(byService))
	for _, id := range ids {
		a := byService[id]
		if a.ratingCount > 0 {
			a.Rating = models.RoundRating(float64(a.ratingSum) / float64(a.ratingCount))
		}
		out = append(out, a.TopService)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Revenue > out[j].Revenue })
	if len(out) > topServicesLimit {
		out = out[:topServicesLimit]
	}
	return out, nil
}

// countryShares counts every booking in the window, whatever its status.
func countryShares(bookings []*models.Booking, countries map[primitive.ObjectID]string) []CountryShare {
	counts := map[string]int{}
	order := []string{}
	for _, b := range bookings {
		country := countries[b.TravelerID]
		if country == "" {
			country = unknownCountry
		}
		if _, ok := counts[country]; !ok {
			order = append(order, country)
		}
		counts[country]++
	}
	out := make([]CountryShare, 0, len(order))
	for _, country := range order {
		out = append(out, CountryShare{
			Country:    country,
			Bookings:   counts[country],
			Percentage: int(math.Round(float64(counts[country]) / float64(len(bookings)) * 100)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Bookings > out[j].Bookings })
	if len(out) > topCountriesLimit {
		out = out[:topCountriesLimit]
	}
	return out
}

// monthlySeries buckets bookings into the trailing calendar months ending with
// the month of now, oldest first.
func monthlySeries(bookings []*models.Booking, now time.Time) []MonthlyPoint {
	points := make([]MonthlyPoint, trailingMonths)
	starts := make([]time.Time, trailingMonths+1)
	for i := 0; i <= trailingMonths; i++ {
		starts[i] = monthStart(now, i-(trailingMonths-1))
	}
	for i := range points {
		points[i].Month = starts[i].Format("Jan")
	}
	for _, b := range bookings {
		created := b.CreatedAt.In(now.Location())
		for i := 0; i < trailingMonths; i++ {
			if !created.Before(starts[i]) && created.Before(starts[i+1]) {
				points[i].Revenue += b.TotalAmount
				points[i].Bookings++
				break
			}
		}
	}
	return points
}

func monthStart(now time.Time, offset int) time.Time {
	return time.Date(now.Year(), now.Month()+time.Month(offset), 1, 0, 0, 0, 0, now.Location())
}

func sumRevenue(bookings []*models.Booking) float64 {
	var total float64
	for _, b := range bookings {
		total += b.TotalAmount
	}
	return total
}

func uniqueTravelers(bookings []*models.Booking) int {
	seen := map[primitive.ObjectID]bool{}
	for _, b := range bookings {
		seen[b.TravelerID] = true
	}
	return len(seen)
}

// growth is the percentage change rounded to one decimal. A zero baseline
// yields 0.
func growth(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return math.Round((current-previous)/previous*1000) / 10
}

func trend(growth float64) string {
	if growth >= 0 {
		return "up"
	}
	return "down"
}
