package testutil

import (
	"database/sql"
	"testing"

	"github.com/nido-app/nido-backend/internal/config"
	"github.com/nido-app/nido-backend/internal/marketdata"
	"github.com/nido-app/nido-backend/internal/repository"
	"github.com/nido-app/nido-backend/internal/service"
)

// TestPricingConfig returns a pricing configuration pointed at the given feed
// URL, with an API key set so refreshes are considered configured.
func TestPricingConfig(feedURL string) config.PricingConfig {
	return config.PricingConfig{
		FeedBaseURL:       feedURL,
		APIKey:            "test-api-key",
		RefreshCutoffHour: 6,
		BaseCurrency:      "COP",
		ForeignCurrency:   "USD",
	}
}

func NewTestHoldingsService(t *testing.T, db *sql.DB) *service.HoldingsService {
	t.Helper()

	return service.NewHoldingsService(repository.NewTransactionRepository(db))
}

func NewTestLedgerService(t *testing.T, db *sql.DB) *service.LedgerService {
	t.Helper()

	transactionRepo := repository.NewTransactionRepository(db)
	instrumentRepo := repository.NewInstrumentRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)

	return service.NewLedgerService(
		transactionRepo,
		instrumentRepo,
		holdingRepo,
		service.NewHoldingsService(transactionRepo),
	)
}

// NewTestPricingService creates a PricingService backed by the given feed URL
// (normally a MockFeed).
func NewTestPricingService(t *testing.T, db *sql.DB, feedURL string) *service.PricingService {
	t.Helper()

	return service.NewPricingService(
		repository.NewInstrumentRepository(db),
		repository.NewSettingRepository(db),
		marketdata.NewClient(feedURL),
		TestPricingConfig(feedURL),
	)
}

// NewTestPricingServiceWithConfig creates a PricingService with a custom
// pricing configuration, for tests exercising credential handling.
func NewTestPricingServiceWithConfig(t *testing.T, db *sql.DB, cfg config.PricingConfig) *service.PricingService {
	t.Helper()

	return service.NewPricingService(
		repository.NewInstrumentRepository(db),
		repository.NewSettingRepository(db),
		marketdata.NewClient(cfg.FeedBaseURL),
		cfg,
	)
}

func NewTestValuationService(t *testing.T, db *sql.DB, pricingService *service.PricingService) *service.ValuationService {
	t.Helper()

	transactionRepo := repository.NewTransactionRepository(db)

	return service.NewValuationService(
		service.NewHoldingsService(transactionRepo),
		repository.NewInstrumentRepository(db),
		pricingService,
		"COP",
	)
}

func NewTestSnapshotService(t *testing.T, db *sql.DB, pricingService *service.PricingService) *service.SnapshotService {
	t.Helper()

	transactionRepo := repository.NewTransactionRepository(db)

	return service.NewSnapshotService(
		repository.NewSnapshotRepository(db),
		transactionRepo,
		NewTestValuationService(t, db, pricingService),
	)
}
