package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/isafari/internal/container"
	"github.com/joshua-takyi/isafari/internal/handlers"
	"github.com/joshua-takyi/isafari/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	cfg := container.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", "X-Session-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	cookie := handlers.AuthCookie{TTL: cfg.JWTExpiresIn, Secure: cfg.IsProduction()}
	auth := middleware.AuthMiddleware(container.Tokens, container.Logger)
	optionalAuth := middleware.OptionalAuth(container.Tokens)
	provider := middleware.RequireProvider()

	v1 := r.Group("/api/v1")
	v1.GET("/health", handlers.Health())

	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/register", handlers.Register(container.UserService, cookie))
		authRoutes.POST("/login", handlers.Login(container.UserService, cookie))
		authRoutes.POST("/google", handlers.GoogleSignIn(container.UserService, cookie))
		authRoutes.POST("/logout", handlers.Logout(cookie))
		authRoutes.GET("/me", auth, handlers.Me(container.UserService))
	}

	v1.PATCH("/users/me", auth, handlers.UpdateMe(container.UserService))

	providerRoutes := v1.Group("/providers")
	{
		providerRoutes.GET("", handlers.ListProviders(container.ProviderService))
		providerRoutes.PUT("/profile", auth, provider, handlers.UpdateProviderProfile(container.ProviderService))
		providerRoutes.GET("/:id", handlers.GetProvider(container.ProviderService))
	}

	serviceRoutes := v1.Group("/services")
	{
		serviceRoutes.GET("", handlers.ListServices(container.ListingService))
		serviceRoutes.GET("/featured/slides", handlers.FeaturedSlides(container.PromotionService))
		serviceRoutes.GET("/trending", handlers.TrendingServices(container.PromotionService))
		serviceRoutes.GET("/provider/my-services", auth, provider, handlers.MyServices(container.ListingService))
		serviceRoutes.GET("/:id", middleware.Session(cfg.IsProduction()), optionalAuth, handlers.GetService(container.ListingService))
		serviceRoutes.GET("/:id/reviews", handlers.ServiceReviews(container.ReviewService))

		owner := serviceRoutes.Group("", auth, provider)
		owner.POST("", handlers.CreateService(container.ListingService))
		owner.PUT("/:id", handlers.UpdateService(container.ListingService))
		owner.DELETE("/:id", handlers.DeleteService(container.ListingService))
		owner.PATCH("/:id/status", handlers.SetServiceStatus(container.ListingService))
		owner.POST("/:id/promote", handlers.PromoteService(container.PromotionService))
		owner.GET("/:id/promotions", handlers.PromotionHistory(container.PromotionService))
		owner.POST("/:id/reconcile", handlers.ReconcileService(container.PromotionService))
	}

	bookingRoutes := v1.Group("/bookings")
	{
		bookingRoutes.GET("/recent-activity", handlers.RecentActivity(container.BookingService))
		bookingRoutes.GET("/provider-analytics", auth, provider, handlers.ProviderAnalytics(container.AnalyticsService))

		bookingRoutes.Use(auth)
		bookingRoutes.GET("", handlers.ListBookings(container.BookingService))
		bookingRoutes.POST("", handlers.CreateBooking(container.BookingService))
		bookingRoutes.GET("/:id", handlers.GetBooking(container.BookingService))
		bookingRoutes.PATCH("/:id/status", handlers.UpdateBookingStatus(container.BookingService))
		bookingRoutes.DELETE("/:id", handlers.CancelBooking(container.BookingService))
	}

	v1.POST("/reviews", auth, handlers.CreateReview(container.ReviewService))

	storyRoutes := v1.Group("/stories")
	{
		storyRoutes.GET("", handlers.ListStories(container.StoryService))
		storyRoutes.GET("/:id", optionalAuth, handlers.GetStory(container.StoryService))
		storyRoutes.POST("", auth, handlers.CreateStory(container.StoryService))
		storyRoutes.POST("/:id/like", auth, handlers.LikeStory(container.StoryService))
		storyRoutes.POST("/:id/comment", auth, handlers.CommentOnStory(container.StoryService))
	}

	notificationRoutes := v1.Group("/notifications", auth)
	{
		notificationRoutes.GET("", handlers.ListNotifications(container.NotificationService))
		notificationRoutes.PATCH("/:id/read", handlers.MarkNotificationRead(container.NotificationService))
	}

	return r
}
