package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nido-app/nido-backend/internal/api/handlers"
	custommiddleware "github.com/nido-app/nido-backend/internal/api/middleware"
	"github.com/nido-app/nido-backend/internal/config"
	"github.com/nido-app/nido-backend/internal/repository"
	"github.com/nido-app/nido-backend/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	systemService *service.SystemService,
	ledgerService *service.LedgerService,
	valuationService *service.ValuationService,
	pricingService *service.PricingService,
	snapshotService *service.SnapshotService,
	instrumentRepo *repository.InstrumentRepository,
	cfg *config.Config,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		// Instrument registry and price cache are shared; no acting user.
		r.Route("/instruments", func(r chi.Router) {
			instrumentHandler := handlers.NewInstrumentHandler(instrumentRepo, pricingService)
			r.Get("/", instrumentHandler.ListInstruments)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", instrumentHandler.GetInstrument)
				r.Put("/reference-price", instrumentHandler.UpdateReferencePrice)
			})
		})

		r.Route("/prices", func(r chi.Router) {
			priceHandler := handlers.NewPriceHandler(pricingService)
			r.Get("/", priceHandler.Quotes)
			r.Post("/refresh", priceHandler.Refresh)
			r.Put("/apikey", priceHandler.SetAPIKey)
		})

		// Everything below operates on one user's ledger.
		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.RequireUser)

			r.Route("/transactions", func(r chi.Router) {
				transactionHandler := handlers.NewTransactionHandler(ledgerService)
				r.Get("/", transactionHandler.ListTransactions)
				r.Post("/", transactionHandler.CreateTransaction)

				r.Route("/{uuid}", func(r chi.Router) {
					r.Use(custommiddleware.ValidateUUIDMiddleware)
					r.Get("/", transactionHandler.GetTransaction)
					r.Put("/", transactionHandler.UpdateTransaction)
					r.Delete("/", transactionHandler.DeleteTransaction)
				})
			})

			r.Route("/portfolio", func(r chi.Router) {
				portfolioHandler := handlers.NewPortfolioHandler(valuationService)
				r.Get("/summary", portfolioHandler.PortfolioSummary)
			})

			r.Route("/snapshots", func(r chi.Router) {
				snapshotHandler := handlers.NewSnapshotHandler(snapshotService)
				r.Get("/", snapshotHandler.ListSnapshots)
				r.Post("/", snapshotHandler.CreateSnapshot)

				r.Route("/{uuid}", func(r chi.Router) {
					r.Use(custommiddleware.ValidateUUIDMiddleware)
					r.Get("/", snapshotHandler.GetSnapshot)
				})
			})
		})
	})

	return r
}
