package services

import (
	"context"
	"testing"

	"github.com/joshua-takyi/isafari/internal/apperr"
	"github.com/joshua-takyi/isafari/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewUpdatesAverages(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	reviews := NewReviewService(f.store, f.store, f.store, f.store, quietLogger(), fixedClock(testNow))

	pending := f.book(t, 1)
	_, err := reviews.Create(ctx, f.traveler.ID, CreateReviewInput{BookingID: pending.ID.Hex(), Rating: 5})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Transition(ctx, f.providerUser.ID, pending.ID, models.BookingConfirmed)
	require.NoError(t, err)

	stranger := f.store.addUser(models.UserTypeTraveler, "")
	_, err = reviews.Create(ctx, stranger.ID, CreateReviewInput{BookingID: pending.ID.Hex(), Rating: 5})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	review, err := reviews.Create(ctx, f.traveler.ID, CreateReviewInput{BookingID: pending.ID.Hex(), Rating: 5, Comment: " Great guide "})
	require.NoError(t, err)
	assert.Equal(t, "Great guide", review.Comment)
	assert.Equal(t, f.service.ID, review.ServiceID)

	_, err = reviews.Create(ctx, f.traveler.ID, CreateReviewInput{BookingID: pending.ID.Hex(), Rating: 4})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = reviews.Create(ctx, stranger.ID, CreateReviewInput{ServiceID: f.service.ID.Hex(), Rating: 2})
	require.NoError(t, err)

	service, _ := f.store.GetServiceByID(ctx, f.service.ID)
	assert.Equal(t, 3.5, service.AverageRating)
	provider, _ := f.store.GetProviderByID(ctx, f.provider.ID)
	assert.Equal(t, 3.5, provider.Rating)

	_, err = reviews.Create(ctx, f.traveler.ID, CreateReviewInput{ServiceID: f.service.ID.Hex(), Rating: 6})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	listed, total, err := reviews.ListForService(ctx, f.service.ID, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, listed, 2)
}

func TestReviewRejectsOwnerAndRepeatDirectReviews(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	reviews := NewReviewService(f.store, f.store, f.store, f.store, quietLogger(), fixedClock(testNow))
	direct := CreateReviewInput{ServiceID: f.service.ID.Hex(), Rating: 5}

	for i := 0; i < 3; i++ {
		_, err := reviews.Create(ctx, f.providerUser.ID, direct)
		assert.True(t, apperr.Is(err, apperr.KindForbidden))
	}
	service, _ := f.store.GetServiceByID(ctx, f.service.ID)
	assert.Zero(t, service.AverageRating)

	review, err := reviews.Create(ctx, f.traveler.ID, CreateReviewInput{ServiceID: f.service.ID.Hex(), Rating: 4})
	require.NoError(t, err)
	assert.True(t, review.Direct)

	_, err = reviews.Create(ctx, f.traveler.ID, direct)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	booking := f.book(t, 1)
	_, err = f.svc.Transition(ctx, f.providerUser.ID, booking.ID, models.BookingConfirmed)
	require.NoError(t, err)
	_, err = reviews.Create(ctx, f.traveler.ID, CreateReviewInput{BookingID: booking.ID.Hex(), Rating: 2})
	require.NoError(t, err, "a booked review is allowed alongside a direct one")

	_, total, err := reviews.ListForService(ctx, f.service.ID, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}
