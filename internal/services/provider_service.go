package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joshua-takyi/isafari/internal/apperr"
	"github.com/joshua-takyi/isafari/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const providerServicesPreview = 10

type ProviderDetails struct {
	*models.ServiceProvider
	Services []*models.Service `json:"services"`
}

type ProviderService struct {
	providers models.ProvidersRepo
	services  models.ServicesRepo
	logger    *slog.Logger
	now       Clock
}

func NewProviderService(providers models.ProvidersRepo, services models.ServicesRepo, logger *slog.Logger, now Clock) *ProviderService {
	return &ProviderService{
		providers: providers,
		services:  services,
		logger:    logger,
		now:       orNow(now),
	}
}

// List returns verified providers, best rated first.
func (ps *ProviderService) List(ctx context.Context, country, region string, offset, limit int) ([]*models.ServiceProvider, int64, error) {
	filter := models.ProviderFilter{
		VerifiedOnly: true,
		Country:      strings.TrimSpace(country),
		Region:       strings.TrimSpace(region),
	}
	providers, total, err := ps.providers.ListProviders(ctx, filter, offset, limit)
	if err != nil {
		return nil, 0, apperr.Store(err, "failed to list providers")
	}
	return providers, total, nil
}

func (ps *ProviderService) Get(ctx context.Context, id primitive.ObjectID) (*ProviderDetails, error) {
	provider, err := ps.providers.GetProviderByID(ctx, id)
	if err != nil {
		return nil, apperr.Store(err, "failed to load provider")
	}
	if provider == nil {
		return nil, apperr.NotFound("provider not found")
	}
	services, _, err := ps.services.ListServices(ctx, models.ServiceFilter{
		ProviderID: provider.ID,
		ActiveOnly: true,
		SortBy:     "newest",
	}, 0, providerServicesPreview)
	if err != nil {
		return nil, apperr.Store(err, "failed to load provider services")
	}
	return &ProviderDetails{ServiceProvider: provider, Services: services}, nil
}

func (ps *ProviderService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, fields map[string]interface{}) (*models.ServiceProvider, error) {
	provider, err := providerForUser(ctx, ps.providers, userID)
	if err != nil {
		return nil, err
	}
	update, err := pickFields(fields, models.ProviderProfileFields)
	if err != nil {
		return nil, err
	}
	if name, ok := update["business_name"].(string); ok && name == "" {
		return nil, apperr.Validation("business_name cannot be empty")
	}
	update["updated_at"] = ps.now()

	updated, err := ps.providers.UpdateProvider(ctx, provider.ID, update)
	if err != nil {
		return nil, apperr.Store(err, "failed to update provider")
	}
	if updated == nil {
		return nil, apperr.NotFound("provider not found")
	}
	return updated, nil
}
