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

func TestListProvidersOnlyVerifiedBestRatedFirst(t *testing.T) {
	store := newMemStore()
	_, low := store.addProvider()
	_, high := store.addProvider()
	_, hidden := store.addProvider()
	store.providers[low.ID].Rating = 3.9
	store.providers[high.ID].Rating = 4.8
	store.providers[hidden.ID].IsVerified = false

	svc := NewProviderService(store, store, quietLogger(), fixedClock(testNow))
	providers, total, err := svc.List(context.Background(), "", "", 0, 10)

	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, providers, 2)
	assert.Equal(t, high.ID, providers[0].ID)
	assert.Equal(t, low.ID, providers[1].ID)
}

func TestGetProviderIncludesActiveServicePreview(t *testing.T) {
	store := newMemStore()
	_, provider := store.addProvider()
	for i := 0; i < providerServicesPreview+2; i++ {
		store.addService(provider.ID, 100, testNow.Add(-time.Duration(i)*time.Hour))
	}
	inactive := store.addService(provider.ID, 100, testNow)
	store.services[inactive.ID].IsActive = false

	svc := NewProviderService(store, store, quietLogger(), fixedClock(testNow))
	details, err := svc.Get(context.Background(), provider.ID)

	require.NoError(t, err)
	assert.Equal(t, "Kilima Tours", details.BusinessName)
	assert.Len(t, details.Services, providerServicesPreview)
	for _, s := range details.Services {
		assert.True(t, s.IsActive)
	}

	_, err = svc.Get(context.Background(), primitive.NewObjectID())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUpdateProviderProfile(t *testing.T) {
	store := newMemStore()
	user, provider := store.addProvider()
	svc := NewProviderService(store, store, quietLogger(), fixedClock(testNow))
	ctx := context.Background()

	updated, err := svc.UpdateProfile(ctx, user.ID, map[string]interface{}{
		"business_name": "  Kilima Safaris ",
		"description":   "Northern circuit specialists",
	})
	require.NoError(t, err)
	assert.Equal(t, provider.ID, updated.ID)
	assert.Equal(t, "Kilima Safaris", updated.BusinessName)

	_, err = svc.UpdateProfile(ctx, user.ID, map[string]interface{}{"rating": 5})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.UpdateProfile(ctx, user.ID, map[string]interface{}{"business_name": "   "})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	traveler := store.addUser(models.UserTypeTraveler, "Kenya")
	_, err = svc.UpdateProfile(ctx, traveler.ID, map[string]interface{}{"description": "x"})
	assert.Error(t, err)
}

func TestMarkNotificationRead(t *testing.T) {
	store := newMemStore()
	owner := store.addUser(models.UserTypeTraveler, "Kenya")
	other := store.addUser(models.UserTypeTraveler, "Kenya")
	ns := NewNotificationService(store, quietLogger(), fixedClock(testNow))
	ctx := context.Background()

	ns.Notify(ctx, owner.ID, "booking_confirmed", "Booking confirmed", "See you soon", nil)
	ns.Notify(ctx, owner.ID, "booking_completed", "Trip completed", "Leave a review", nil)
	items, total, err := ns.List(ctx, owner.ID, true, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)

	err = ns.MarkRead(ctx, other.ID, items[0].ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, ns.MarkRead(ctx, owner.ID, items[0].ID))
	_, unread, err := ns.List(ctx, owner.ID, true, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	var nilService *NotificationService
	assert.NotPanics(t, func() { nilService.Notify(ctx, owner.ID, "x", "x", "x", nil) })
}
