package services

import (
	"context"
	"testing"

	"github.com/joshua-takyi/isafari/internal/apperr"
	"github.com/joshua-takyi/isafari/internal/helpers"
	"github.com/joshua-takyi/isafari/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func floatPtr(v float64) *float64 { return &v }

func newListingFixture(t *testing.T) (*memStore, *ListingService, *recordingUploader, *countingInvalidator, *models.User) {
	t.Helper()
	store := newMemStore()
	user, _ := store.addProvider()
	uploader := &recordingUploader{}
	rankings := &countingInvalidator{}
	svc := NewListingService(store, store, store, uploader, rankings, quietLogger(), fixedClock(testNow))
	return store, svc, uploader, rankings, user
}

func TestCreateListing(t *testing.T) {
	_, svc, uploader, _, user := newListingFixture(t)

	service, err := svc.Create(context.Background(), user.ID, CreateServiceInput{
		Title:           "  Zanzibar spice tour ",
		Description:     "Half day",
		Category:        "tour",
		Price:           floatPtr(45),
		MaxParticipants: 8,
		Images:          []string{"data:image/png;base64,AAAA"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Zanzibar spice tour", service.Title)
	assert.Equal(t, models.DefaultCurrency, service.Currency)
	assert.True(t, service.IsActive)
	assert.Equal(t, models.PromotionNone, service.PromotionType)
	assert.Equal(t, []string{helpers.ServiceFolder}, uploader.folders)
	require.Len(t, service.Images, 1)
}

func TestCreateListingRequiresProviderAndPrice(t *testing.T) {
	store, svc, _, _, user := newListingFixture(t)
	traveler := store.addUser(models.UserTypeTraveler, "")
	ctx := context.Background()

	_, err := svc.Create(ctx, user.ID, CreateServiceInput{Title: "x", Description: "y", Category: "z"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Create(ctx, traveler.ID, CreateServiceInput{Title: "x", Description: "y", Category: "z", Price: floatPtr(1)})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestGetCountsViewOncePerSession(t *testing.T) {
	store, svc, _, _, user := newListingFixture(t)
	provider, _ := store.GetProviderByUserID(context.Background(), user.ID)
	service := store.addService(provider.ID, 10, testNow)
	ctx := context.Background()

	first, err := svc.Get(ctx, service.ID, Viewer{SessionID: "s1"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.ViewsCount)
	assert.Equal(t, "Kilima Tours", first.BusinessName)

	again, err := svc.Get(ctx, service.ID, Viewer{SessionID: "s1"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, again.ViewsCount)

	other, err := svc.Get(ctx, service.ID, Viewer{SessionID: "s2"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, other.ViewsCount)

	_, err = svc.Get(ctx, primitive.NewObjectID(), Viewer{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUpdateAndToggleListing(t *testing.T) {
	store, svc, _, rankings, user := newListingFixture(t)
	provider, _ := store.GetProviderByUserID(context.Background(), user.ID)
	service := store.addService(provider.ID, 10, testNow)
	ctx := context.Background()

	updated, err := svc.Update(ctx, user.ID, service.ID, map[string]interface{}{"title": " Night safari ", "price": 80.0})
	require.NoError(t, err)
	assert.Equal(t, "Night safari", updated.Title)
	assert.Equal(t, 80.0, updated.Price)

	_, err = svc.Update(ctx, user.ID, service.ID, map[string]interface{}{"featured_priority": 99})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = svc.Update(ctx, user.ID, service.ID, map[string]interface{}{"price": "free"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = svc.Update(ctx, user.ID, service.ID, map[string]interface{}{"title": ""})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	toggled, err := svc.SetActive(ctx, user.ID, service.ID, nil)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	listed, total, err := svc.List(ctx, models.ServiceFilter{}, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, listed)

	mine, err := svc.ListMine(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	assert.Equal(t, 2, rankings.calls)
}

func TestDeleteListingOwnership(t *testing.T) {
	store, svc, _, _, user := newListingFixture(t)
	provider, _ := store.GetProviderByUserID(context.Background(), user.ID)
	service := store.addService(provider.ID, 10, testNow)
	otherUser, _ := store.addProvider()
	ctx := context.Background()

	err := svc.Delete(ctx, otherUser.ID, service.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	require.NoError(t, svc.Delete(ctx, user.ID, service.ID))
	err = svc.Delete(ctx, user.ID, service.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListRejectsInvertedPriceRange(t *testing.T) {
	_, svc, _, _, _ := newListingFixture(t)
	_, _, err := svc.List(context.Background(), models.ServiceFilter{MinPrice: 100, MaxPrice: 10}, 0, 10)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
