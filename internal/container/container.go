package container

import (
	"context"
	"log/slog"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/joshua-takyi/isafari/internal/config"
	"github.com/joshua-takyi/isafari/internal/helpers"
	"github.com/joshua-takyi/isafari/internal/models"
	"github.com/joshua-takyi/isafari/internal/services"
	"go.mongodb.org/mongo-driver/mongo"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *slog.Logger
	MongoDBClient *mongo.Client
	Repo          *models.MongodbRepo
	Tokens        *helpers.TokenIssuer

	UserService         *services.UserService
	ProviderService     *services.ProviderService
	ListingService      *services.ListingService
	BookingService      *services.BookingService
	PromotionService    *services.PromotionService
	AnalyticsService    *services.AnalyticsService
	ReviewService       *services.ReviewService
	StoryService        *services.StoryService
	NotificationService *services.NotificationService

	google *helpers.GoogleVerifier
}

// NewContainer wires repositories and services. Google sign-in and image
// uploads are enabled only when configured.
func NewContainer(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	mongoDBClient *mongo.Client,
	cld *cloudinary.Cloudinary,
) (*Container, error) {
	repo := models.MongodbNewRepo(mongoDBClient, cfg.MongoDBName)
	tokens := helpers.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiresIn)
	var now services.Clock

	c := &Container{
		Config:        cfg,
		Logger:        logger,
		MongoDBClient: mongoDBClient,
		Repo:          repo,
		Tokens:        tokens,
	}

	var verifier helpers.IdentityVerifier
	if cfg.GoogleEnabled() {
		google, err := helpers.NewGoogleVerifier(ctx, cfg.GoogleClientID, cfg.GoogleJWKSURL)
		if err != nil {
			return nil, err
		}
		c.google = google
		verifier = google
	} else {
		logger.Info("google sign-in disabled")
	}

	var uploader helpers.ImageUploader
	if cld != nil {
		uploader = helpers.NewCloudinaryUploader(cld)
	} else {
		logger.Info("cloudinary not configured, image uploads disabled")
	}

	c.NotificationService = services.NewNotificationService(repo, logger.With("service", "notifications"), now)
	c.UserService = services.NewUserService(repo, repo, tokens, verifier, logger.With("service", "users"), now)
	c.ProviderService = services.NewProviderService(repo, repo, logger.With("service", "providers"), now)
	c.PromotionService = services.NewPromotionService(repo, repo, repo, repo, repo, cfg.RankingCacheTTL, logger.With("service", "promotions"), now)
	c.ListingService = services.NewListingService(repo, repo, repo, uploader, c.PromotionService, logger.With("service", "listings"), now)
	c.BookingService = services.NewBookingService(repo, repo, repo, repo, c.NotificationService, logger.With("service", "bookings"), now)
	c.AnalyticsService = services.NewAnalyticsService(repo, repo, repo, repo, repo, logger.With("service", "analytics"), now)
	c.ReviewService = services.NewReviewService(repo, repo, repo, repo, logger.With("service", "reviews"), now)
	c.StoryService = services.NewStoryService(repo, uploader, c.NotificationService, logger.With("service", "stories"), now)

	return c, nil
}

// Close stops background key refresh.
func (c *Container) Close() {
	if c.google != nil {
		c.google.Close()
	}
}
