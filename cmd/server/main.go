package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nido-app/nido-backend/internal/api"
	"github.com/nido-app/nido-backend/internal/config"
	"github.com/nido-app/nido-backend/internal/database"
	"github.com/nido-app/nido-backend/internal/marketdata"
	"github.com/nido-app/nido-backend/internal/model"
	"github.com/nido-app/nido-backend/internal/repository"
	"github.com/nido-app/nido-backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database: %s", cfg.Database.Path)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	// Create repositories
	instrumentRepo := repository.NewInstrumentRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	// Create services
	systemService := service.NewSystemService(db)
	holdingsService := service.NewHoldingsService(transactionRepo)
	ledgerService := service.NewLedgerService(
		transactionRepo,
		instrumentRepo,
		holdingRepo,
		holdingsService,
	)
	pricingService := service.NewPricingService(
		instrumentRepo,
		settingRepo,
		marketdata.NewClient(cfg.Pricing.FeedBaseURL),
		cfg.Pricing,
	)
	valuationService := service.NewValuationService(
		holdingsService,
		instrumentRepo,
		pricingService,
		cfg.Pricing.BaseCurrency,
	)
	snapshotService := service.NewSnapshotService(
		snapshotRepo,
		transactionRepo,
		valuationService,
	)

	// Periodic snapshots keep every user's timeline populated without
	// requiring them to open the app on the first of the month.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Snapshot.MonthlySpec, func() {
		snapshotService.RunScheduled(context.Background(), model.SnapshotMonthly)
	}); err != nil {
		log.Fatalf("Failed to schedule monthly snapshots: %v", err)
	}
	if _, err := scheduler.AddFunc(cfg.Snapshot.YearlySpec, func() {
		snapshotService.RunScheduled(context.Background(), model.SnapshotYearly)
	}); err != nil {
		log.Fatalf("Failed to schedule yearly snapshots: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(
		systemService,
		ledgerService,
		valuationService,
		pricingService,
		snapshotService,
		instrumentRepo,
		cfg,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
