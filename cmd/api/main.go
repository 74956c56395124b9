package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/joshua-takyi/isafari/internal/config"
	"github.com/joshua-takyi/isafari/internal/connect"
	"github.com/joshua-takyi/isafari/internal/container"
	"github.com/joshua-takyi/isafari/internal/jobs"
	"github.com/joshua-takyi/isafari/internal/routes"
)

func main() {
	// Load environment variables
	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("Starting iSafari API server", "environment", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, err := connect.MongoDBConnect(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to MongoDB successfully", "database", cfg.MongoDBName)

	cld, err := connect.CloudinaryCredentials(cfg)
	if err != nil {
		logger.Error("Failed to connect to Cloudinary", "error", err)
		os.Exit(1)
	}

	appContainer, err := container.NewContainer(ctx, cfg, logger, mongoClient, cld)
	if err != nil {
		logger.Error("Failed to build dependencies", "error", err)
		os.Exit(1)
	}
	defer appContainer.Close()

	if err := appContainer.Repo.EnsureIndexes(ctx); err != nil {
		logger.Error("Failed to create indexes", "error", err)
		os.Exit(1)
	}

	scheduler, err := jobs.NewScheduler(cfg.PromotionSweepSpec, appContainer.PromotionService, logger.With("component", "jobs"))
	if err != nil {
		logger.Error("Failed to schedule jobs", "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      routes.SetupRoutes(appContainer),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to start", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Server is shutting down...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	scheduler.Stop(shutdownCtx)

	if err := connect.MongoDBDisconnect(shutdownCtx, mongoClient); err != nil {
		logger.Error("Error disconnecting from MongoDB", "error", err)
	}

	logger.Info("Server exited")
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
