package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joshua-takyi/isafari/internal/apperr"
	"github.com/joshua-takyi/isafari/internal/helpers"
	"github.com/joshua-takyi/isafari/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CreateServiceInput struct {
	Title           string   `json:"title" validate:"required,max=255"`
	Description     string   `json:"description" validate:"required"`
	Category        string   `json:"category" validate:"required"`
	Subcategory     string   `json:"subcategory"`
	Price           *float64 `json:"price" validate:"required,gte=0"`
	Currency        string   `json:"currency"`
	Duration        float64  `json:"duration" validate:"gte=0"`
	MaxParticipants int      `json:"maxParticipants" validate:"gte=0"`
	Location        string   `json:"location"`
	Country         string   `json:"country"`
	Region          string   `json:"region"`
	District        string   `json:"district"`
	Area            string   `json:"area"`
	Images          []string `json:"images"`
	Amenities       []string `json:"amenities"`
}

// Viewer identifies who is looking at a listing, for view counting.
type Viewer struct {
	SessionID string
	UserID    *primitive.ObjectID
	IPAddress string
	UserAgent string
}

type ServiceDetails struct {
	*models.Service
	BusinessName     string  `json:"business_name,omitempty"`
	ProviderRating   float64 `json:"provider_rating"`
	ProviderLocation string  `json:"provider_location,omitempty"`
}

// RankingInvalidator drops cached ranking candidates after a listing changes.
type RankingInvalidator interface {
	InvalidateRankings()
}

type ListingService struct {
	providers models.ProvidersRepo
	services  models.ServicesRepo
	views     models.ServiceViewsRepo
	uploader  helpers.ImageUploader
	rankings  RankingInvalidator
	logger    *slog.Logger
	now       Clock
}

// NewListingService builds the listing service. uploader may be nil, in which
// case images must already be hosted URLs.
func NewListingService(providers models.ProvidersRepo, services models.ServicesRepo, views models.ServiceViewsRepo, uploader helpers.ImageUploader, rankings RankingInvalidator, logger *slog.Logger, now Clock) *ListingService {
	return &ListingService{
		providers: providers,
		services:  services,
		views:     views,
		uploader:  uploader,
		rankings:  rankings,
		logger:    logger,
		now:       orNow(now),
	}
}

func (ls *ListingService) Create(ctx context.Context, userID primitive.ObjectID, in CreateServiceInput) (*models.Service, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	if err := models.Validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	provider, err := providerForUser(ctx, ls.providers, userID)
	if err != nil {
		return nil, err
	}

	images, err := ls.upload(ctx, in.Images)
	if err != nil {
		return nil, err
	}

	service := &models.Service{
		ProviderID:      provider.ID,
		Title:           in.Title,
		Description:     in.Description,
		Category:        in.Category,
		Subcategory:     strings.TrimSpace(in.Subcategory),
		Price:           *in.Price,
		Currency:        strings.TrimSpace(in.Currency),
		Duration:        in.Duration,
		MaxParticipants: in.MaxParticipants,
		Location:        strings.TrimSpace(in.Location),
		Country:         in.Country,
		Region:          in.Region,
		District:        in.District,
		Area:            in.Area,
		Images:          images,
		Amenities:       in.Amenities,
	}
	service.BeforeCreate(ls.now())
	if err := ls.services.CreateService(ctx, service); err != nil {
		return nil, apperr.Store(err, "failed to create service")
	}

	ls.logger.Info("service created",
		"service_id", service.ID.Hex(),
		"provider_id", provider.ID.Hex(),
	)
	return service, nil
}

// Get returns a listing and counts the view once per session per window.
func (ls *ListingService) Get(ctx context.Context, id primitive.ObjectID, viewer Viewer) (*ServiceDetails, error) {
	service, err := ls.services.GetServiceByID(ctx, id)
	if err != nil {
		return nil, apperr.Store(err, "failed to load service")
	}
	if service == nil {
		return nil, apperr.NotFound("service not found")
	}

	if ls.countView(ctx, service, viewer) {
		if err := ls.services.IncrementServiceCounter(ctx, service.ID, "views_count", 1); err != nil {
			ls.logger.Error("failed to increment views", "service_id", service.ID.Hex(), "error", err)
		} else {
			service.ViewsCount++
		}
	}

	details := &ServiceDetails{Service: service}
	provider, err := ls.providers.GetProviderByID(ctx, service.ProviderID)
	if err != nil {
		return nil, apperr.Store(err, "failed to load provider")
	}
	if provider != nil {
		details.BusinessName = provider.BusinessName
		details.ProviderRating = provider.Rating
		details.ProviderLocation = provider.Location
	}
	return details, nil
}

func (ls *ListingService) countView(ctx context.Context, service *models.Service, viewer Viewer) bool {
	if ls.views == nil || viewer.SessionID == "" {
		return true
	}
	counted, err := ls.views.TrackServiceView(ctx, &models.ServiceView{
		ServiceID:  service.ID,
		ProviderID: service.ProviderID,
		UserID:     viewer.UserID,
		SessionID:  viewer.SessionID,
		IPAddress:  viewer.IPAddress,
		UserAgent:  viewer.UserAgent,
	}, ls.now())
	if err != nil {
		ls.logger.Error("failed to track service view", "service_id", service.ID.Hex(), "error", err)
		return false
	}
	return counted
}

// List returns active listings matching filter.
func (ls *ListingService) List(ctx context.Context, filter models.ServiceFilter, offset, limit int) ([]*models.Service, int64, error) {
	if filter.MinPrice < 0 || filter.MaxPrice < 0 {
		return nil, 0, apperr.Validation("price filters cannot be negative")
	}
	if filter.MaxPrice > 0 && filter.MinPrice > filter.MaxPrice {
		return nil, 0, apperr.Validation("minPrice cannot exceed maxPrice")
	}
	filter.ProviderID = primitive.NilObjectID
	filter.ActiveOnly = true
	services, total, err := ls.services.ListServices(ctx, filter, offset, limit)
	if err != nil {
		return nil, 0, apperr.Store(err, "failed to list services")
	}
	return services, total, nil
}

// ListMine returns every listing of the caller's provider profile, inactive ones included.
func (ls *ListingService) ListMine(ctx context.Context, userID primitive.ObjectID) ([]*models.Service, error) {
	provider, err := providerForUser(ctx, ls.providers, userID)
	if err != nil {
		return nil, err
	}
	services, _, err := ls.services.ListServices(ctx, models.ServiceFilter{ProviderID: provider.ID, SortBy: "newest"}, 0, 0)
	if err != nil {
		return nil, apperr.Store(err, "failed to list services")
	}
	return services, nil
}

func (ls *ListingService) Update(ctx context.Context, userID, serviceID primitive.ObjectID, fields map[string]interface{}) (*models.Service, error) {
	if _, _, err := ownedService(ctx, ls.providers, ls.services, userID, serviceID); err != nil {
		return nil, err
	}
	update, err := ls.editableUpdate(ctx, fields)
	if err != nil {
		return nil, err
	}
	update["updated_at"] = ls.now()

	service, err := ls.services.UpdateService(ctx, serviceID, update)
	if err != nil {
		return nil, apperr.Store(err, "failed to update service")
	}
	if service == nil {
		return nil, apperr.NotFound("service not found")
	}
	ls.invalidate()
	return service, nil
}

func (ls *ListingService) editableUpdate(ctx context.Context, fields map[string]interface{}) (bson.M, error) {
	if len(fields) == 0 {
		return nil, apperr.Validation("no fields to update")
	}
	update := bson.M{}
	for key, value := range fields {
		column, ok := models.ServiceEditableFields[key]
		if !ok {
			return nil, apperr.Validation("field %q cannot be updated", key)
		}
		if s, ok := value.(string); ok {
			value = strings.TrimSpace(s)
		}
		update[column] = value
	}

	for _, column := range []string{"title", "description", "category"} {
		if v, ok := update[column]; ok {
			s, isString := v.(string)
			if !isString || s == "" {
				return nil, apperr.Validation("%s cannot be empty", column)
			}
			if column == "title" && len(s) > 255 {
				return nil, apperr.Validation("title is too long")
			}
		}
	}
	if v, ok := update["price"]; ok {
		price, isNumber := v.(float64)
		if !isNumber || price < 0 {
			return nil, apperr.Validation("price must be a non-negative number")
		}
	}
	if v, ok := update["images"]; ok {
		images, err := stringSlice(v)
		if err != nil {
			return nil, err
		}
		if update["images"], err = ls.upload(ctx, images); err != nil {
			return nil, err
		}
	}
	return update, nil
}

func (ls *ListingService) Delete(ctx context.Context, userID, serviceID primitive.ObjectID) error {
	_, provider, err := ownedService(ctx, ls.providers, ls.services, userID, serviceID)
	if err != nil {
		return err
	}
	deleted, err := ls.services.DeleteService(ctx, serviceID, provider.ID)
	if err != nil {
		return apperr.Store(err, "failed to delete service")
	}
	if !deleted {
		return apperr.NotFound("service not found")
	}
	ls.invalidate()
	ls.logger.Info("service deleted", "service_id", serviceID.Hex(), "provider_id", provider.ID.Hex())
	return nil
}

// SetActive flips is_active, or sets it when active is given.
func (ls *ListingService) SetActive(ctx context.Context, userID, serviceID primitive.ObjectID, active *bool) (*models.Service, error) {
	service, _, err := ownedService(ctx, ls.providers, ls.services, userID, serviceID)
	if err != nil {
		return nil, err
	}
	next := !service.IsActive
	if active != nil {
		next = *active
	}
	updated, err := ls.services.UpdateService(ctx, serviceID, bson.M{"is_active": next, "updated_at": ls.now()})
	if err != nil {
		return nil, apperr.Store(err, "failed to update service status")
	}
	if updated == nil {
		return nil, apperr.NotFound("service not found")
	}
	ls.invalidate()
	return updated, nil
}

func (ls *ListingService) upload(ctx context.Context, images []string) ([]string, error) {
	if len(images) == 0 {
		return []string{}, nil
	}
	if ls.uploader == nil {
		for _, image := range images {
			if !strings.HasPrefix(strings.TrimSpace(image), "https://") {
				return nil, apperr.Validation("image uploads are not enabled, send hosted image URLs")
			}
		}
		return images, nil
	}
	urls, err := ls.uploader.UploadImages(ctx, images, helpers.ServiceFolder)
	if err != nil {
		return nil, apperr.Store(err, "failed to upload images")
	}
	return urls, nil
}

func (ls *ListingService) invalidate() {
	if ls.rankings != nil {
		ls.rankings.InvalidateRankings()
	}
}

func stringSlice(v interface{}) ([]string, error) {
	switch items := v.(type) {
	case []string:
		return items, nil
	case []interface{}:
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, apperr.Validation("images must be a list of strings")
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, apperr.Validation("images must be a list of strings")
}
