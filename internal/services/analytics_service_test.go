package services

import (
	"context"
	"testing"
	"time"

	"github.com/joshua-takyi/isafari/internal/apperr"
	"github.com/joshua-takyi/isafari/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seedBooking(store *memStore, service *models.Service, traveler *models.User, status models.BookingStatus, amount float64, created time.Time) *models.Booking {
	b := &models.Booking{
		ID:          primitive.NewObjectID(),
		TravelerID:  traveler.ID,
		ServiceID:   service.ID,
		ProviderID:  service.ProviderID,
		TotalAmount: amount,
		Status:      status,
		CreatedAt:   created,
	}
	store.bookings[b.ID] = b
	return b
}

func TestAnalyticsGrowthIsZeroWithoutBaseline(t *testing.T) {
	store := newMemStore()
	user, provider := store.addProvider()
	service := store.addService(provider.ID, 100, testNow.AddDate(0, -2, 0))
	traveler := store.addUser(models.UserTypeTraveler, "Kenya")
	seedBooking(store, service, traveler, models.BookingConfirmed, 300, testNow.Add(-24*time.Hour))

	svc := NewAnalyticsService(store, store, store, store, store, quietLogger(), fixedClock(testNow))
	result, err := svc.ProviderAnalytics(context.Background(), user.ID, "7days")
	require.NoError(t, err)

	assert.Equal(t, 300.0, result.Analytics.Revenue.Total)
	assert.Zero(t, result.Analytics.Revenue.Growth)
	assert.Equal(t, "up", result.Analytics.Revenue.Trend)
	assert.Zero(t, result.Analytics.Bookings.Growth)
	assert.Equal(t, "neutral", result.Analytics.Customers.Trend)
}

func TestProviderAnalytics(t *testing.T) {
	store := newMemStore()
	user, provider := store.addProvider()
	safari := store.addService(provider.ID, 100, testNow.AddDate(-1, 0, 0))
	safari.Title = "Safari"
	climb := store.addService(provider.ID, 500, testNow.AddDate(-1, 0, 0))
	climb.Title = "Kilimanjaro climb"

	kenyan := store.addUser(models.UserTypeTraveler, "Kenya")
	german := store.addUser(models.UserTypeTraveler, "Germany")
	nowhere := store.addUser(models.UserTypeTraveler, "")

	day := 24 * time.Hour
	// current 30 day window
	b1 := seedBooking(store, safari, kenyan, models.BookingConfirmed, 200, testNow.Add(-2*day))
	b2 := seedBooking(store, climb, german, models.BookingCompleted, 1000, testNow.Add(-5*day))
	seedBooking(store, safari, kenyan, models.BookingCompleted, 100, testNow.Add(-10*day))
	seedBooking(store, safari, nowhere, models.BookingPending, 400, testNow.Add(-3*day))
	seedBooking(store, climb, german, models.BookingCancelled, 500, testNow.Add(-4*day))
	// previous window
	seedBooking(store, safari, kenyan, models.BookingConfirmed, 650, testNow.Add(-40*day))
	seedBooking(store, safari, kenyan, models.BookingPending, 999, testNow.Add(-45*day))

	store.reviews = append(store.reviews,
		&models.Review{ID: primitive.NewObjectID(), BookingID: &b1.ID, ServiceID: safari.ID, ProviderID: provider.ID, Rating: 4},
		&models.Review{ID: primitive.NewObjectID(), BookingID: &b2.ID, ServiceID: climb.ID, ProviderID: provider.ID, Rating: 5},
	)

	svc := NewAnalyticsService(store, store, store, store, store, quietLogger(), fixedClock(testNow))
	result, err := svc.ProviderAnalytics(context.Background(), user.ID, "bogus")
	require.NoError(t, err)
	assert.Equal(t, "30days", result.TimeRange)

	a := result.Analytics
	assert.Equal(t, 1300.0, a.Revenue.Total)
	assert.Equal(t, 100.0, a.Revenue.Growth)
	assert.Equal(t, "up", a.Revenue.Trend)
	assert.Equal(t, 3.0, a.Bookings.Total)
	assert.Equal(t, 200.0, a.Bookings.Growth)
	assert.Equal(t, 3.0, a.Customers.Total)
	assert.Equal(t, 4.5, a.Rating.Average)
	assert.Equal(t, 2, a.Rating.Total)

	require.Len(t, result.TopServices, 2)
	assert.Equal(t, "Kilimanjaro climb", result.TopServices[0].Name)
	assert.Equal(t, 1000.0, result.TopServices[0].Revenue)
	assert.Equal(t, 5.0, result.TopServices[0].Rating)
	assert.Equal(t, "Safari", result.TopServices[1].Name)
	assert.Equal(t, 2, result.TopServices[1].Bookings)
	assert.Equal(t, 4.0, result.TopServices[1].Rating)

	require.Len(t, result.TopCountries, 3)
	assert.Equal(t, CountryShare{Country: "Kenya", Bookings: 2, Percentage: 40}, result.TopCountries[0])
	assert.Equal(t, CountryShare{Country: "Germany", Bookings: 2, Percentage: 40}, result.TopCountries[1])
	assert.Equal(t, CountryShare{Country: "Unknown", Bookings: 1, Percentage: 20}, result.TopCountries[2])

	require.Len(t, result.MonthlyData, 6)
	assert.Equal(t, "Oct", result.MonthlyData[0].Month)
	last := result.MonthlyData[5]
	assert.Equal(t, "Mar", last.Month)
	assert.Equal(t, 3, last.Bookings)
	assert.Equal(t, 1300.0, last.Revenue)
	feb := result.MonthlyData[4]
	assert.Equal(t, 1, feb.Bookings)
	assert.Equal(t, 650.0, feb.Revenue)
	assert.Zero(t, result.MonthlyData[0].Bookings)
}

func TestAnalyticsRequiresProvider(t *testing.T) {
	store := newMemStore()
	traveler := store.addUser(models.UserTypeTraveler, "")
	svc := NewAnalyticsService(store, store, store, store, store, quietLogger(), fixedClock(testNow))
	_, err := svc.ProviderAnalytics(context.Background(), traveler.ID, "30days")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestGrowth(t *testing.T) {
	assert.Zero(t, growth(10, 0))
	assert.Equal(t, 50.0, growth(150, 100))
	assert.Equal(t, -33.3, growth(2, 3))
	assert.Equal(t, "down", trend(-33.3))
	assert.Equal(t, "up", trend(0))
}
