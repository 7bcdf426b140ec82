package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/propbazaar/payments-service/internal/config"
	"github.com/propbazaar/payments-service/internal/infrastructure/database"
	gatewayfactory "github.com/propbazaar/payments-service/internal/infrastructure/gateway"
	httpServer "github.com/propbazaar/payments-service/internal/infrastructure/http"
	infraMessaging "github.com/propbazaar/payments-service/internal/infrastructure/messaging"
	"github.com/propbazaar/payments-service/internal/usecase"
	"github.com/propbazaar/payments-service/pkg/logger"
	"github.com/propbazaar/payments-service/pkg/messaging"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		Development: cfg.Service.Environment != "production",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	repos := database.NewRepositories(db, zapLogger)

	// Gateway settings reload from the same config file the service booted
	// with; Redis invalidation below makes rotations take effect sooner.
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/payments.yaml"
	}
	settings := config.NewGatewaySettingsLoader(
		config.FileGatewaySettings(configPath), cfg.Gateways.SettingsTTL)

	registry := gatewayfactory.NewRegistry(settings, zapLogger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional Redis wiring for remediation events and settings invalidation
	var remediation usecase.RemediationPublisher
	if cfg.Redis.Enabled {
		redisClient, err := messaging.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			zapLogger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()

		remediation = infraMessaging.NewRemediationPublisher(
			redisClient, cfg.Redis.RemediationChannel, zapLogger)

		subscriber := infraMessaging.NewSettingsSubscriber(
			redisClient, cfg.Redis.SettingsChangedChannel, settings, zapLogger)
		go func() {
			if err := subscriber.Run(ctx); err != nil {
				zapLogger.Error("Settings subscriber stopped", zap.Error(err))
			}
		}()
	}

	// Initialize services
	activation := usecase.NewActivationService(
		repos.Activation, repos.ActivationFailure, repos.Package, repos.Listing,
		remediation, zapLogger)
	reconcile := usecase.NewReconcileService(
		repos.Transaction, activation, settings, zapLogger)
	checkout := usecase.NewCheckoutService(
		repos.Transaction, repos.Package, registry, activation, settings, zapLogger)

	// Initialize HTTP server
	srv := httpServer.NewServer(cfg, zapLogger, repos, registry, checkout, reconcile, activation)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down server...")

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	zapLogger.Info("Server shut down successfully")
}
