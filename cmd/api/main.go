package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"budgetbook/internal/config"
	"budgetbook/internal/database"
	"budgetbook/internal/logger"
	"budgetbook/internal/router"
	"budgetbook/internal/services"
	"budgetbook/internal/storage"
	"budgetbook/internal/validator"
)

// @title           Budgetbook API
// @version         1.0
// @description     Budgetbook records dated, categorized expenses and reports totals per category.

// @host      localhost:8080
// @BasePath  /api/v1

const shutdownTimeout = 30 * time.Second

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if appConfig.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create database manager
	dbManager, err := database.NewManager(appConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("failed to close database", "error", err)
		}
	}()

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the item state medium
	kv, closeKV, err := storage.Open(ctx, appConfig, dbManager.DB())
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", appConfig.StorageBackend, err)
	}
	defer func() {
		if err := closeKV(); err != nil {
			log.Warnw("failed to close storage", "error", err)
		}
	}()

	// Initialize services
	store := services.NewItemStore(kv, services.WithDateLayout(appConfig.DateLayout))
	if _, err := store.Load(ctx); err != nil {
		return fmt.Errorf("failed to load budget items: %w", err)
	}
	auditService := services.NewAuditService(dbManager.DB())

	validator.Register(appConfig.Categories)

	engine, err := router.SetupRouter(router.Dependencies{
		Store:        store,
		AuditService: auditService,
		Categories:   appConfig.Categories,
		APIKey:       appConfig.APIKey,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting budgetbook server on port %s (storage: %s, database: %s)",
			appConfig.Port, appConfig.StorageBackend, appConfig.DBDriver)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
