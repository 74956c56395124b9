package services

import (
	"context"
	"strings"
	"time"

	"github.com/joshua-takyi/isafari/internal/apperr"
	"github.com/joshua-takyi/isafari/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

func orNow(now Clock) Clock {
	if now == nil {
		return time.Now
	}
	return now
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	MaxPage         = 100000
)

// Page normalizes 1-based page/limit query values into offset and limit.
// page is clamped to MaxPage so the offset cannot overflow.
func Page(page, limit int) (offset, size int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return (page - 1) * limit, limit
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Validation("invalid date %q, expected ISO 8601", value)
}

func providerForUser(ctx context.Context, providers models.ProvidersRepo, userID primitive.ObjectID) (*models.ServiceProvider, error) {
	provider, err := providers.GetProviderByUserID(ctx, userID)
	if err != nil {
		return nil, apperr.Store(err, "failed to load provider profile")
	}
	if provider == nil {
		return nil, apperr.Forbidden("only service providers can do this")
	}
	return provider, nil
}

// ownedService loads a service and checks it belongs to the provider profile
// of userID.
func ownedService(ctx context.Context, providers models.ProvidersRepo, services models.ServicesRepo, userID, serviceID primitive.ObjectID) (*models.Service, *models.ServiceProvider, error) {
	provider, err := providerForUser(ctx, providers, userID)
	if err != nil {
		return nil, nil, err
	}
	service, err := services.GetServiceByID(ctx, serviceID)
	if err != nil {
		return nil, nil, apperr.Store(err, "failed to load service")
	}
	if service == nil {
		return nil, nil, apperr.NotFound("service not found")
	}
	if service.ProviderID != provider.ID {
		return nil, nil, apperr.Forbidden("service belongs to another provider")
	}
	return service, provider, nil
}

// validationError turns a validator failure into a caller-visible message.
func validationError(err error) error {
	return apperr.Validation("invalid input: %v", err)
}
