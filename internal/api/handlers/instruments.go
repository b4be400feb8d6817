package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nido-app/nido-backend/internal/api/request"
	"github.com/nido-app/nido-backend/internal/api/response"
	"github.com/nido-app/nido-backend/internal/apperrors"
	"github.com/nido-app/nido-backend/internal/repository"
	"github.com/nido-app/nido-backend/internal/service"
)

// InstrumentHandler handles HTTP requests for the instrument registry.
type InstrumentHandler struct {
	instrumentRepo *repository.InstrumentRepository
	pricingService *service.PricingService
}

// NewInstrumentHandler creates a new InstrumentHandler with the provided dependencies.
func NewInstrumentHandler(instrumentRepo *repository.InstrumentRepository, pricingService *service.PricingService) *InstrumentHandler {
	return &InstrumentHandler{
		instrumentRepo: instrumentRepo,
		pricingService: pricingService,
	}
}

// ListInstruments handles GET requests for the investable universe.
//
// Endpoint: GET /api/instruments
// Response: 200 OK with array of Instrument
// Error: 500 Internal Server Error if retrieval fails
func (h *InstrumentHandler) ListInstruments(w http.ResponseWriter, _ *http.Request) {
	instruments, err := h.instrumentRepo.GetAll()
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveInstruments.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, instruments)
}

// GetInstrument handles GET requests for one instrument.
//
// Endpoint: GET /api/instruments/{uuid}
// Response: 200 OK with Instrument
// Error: 400 Bad Request if the ID is invalid (validated by middleware)
// Error: 404 Not Found if the instrument does not exist
func (h *InstrumentHandler) GetInstrument(w http.ResponseWriter, r *http.Request) {
	instrumentID := chi.URLParam(r, "uuid")

	instrument, err := h.instrumentRepo.GetByID(instrumentID)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveInstruments.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, instrument)
}

// UpdateReferencePrice handles PUT requests for a manual price override. The
// price enters the quote cache with source "manual" and becomes the
// instrument's reference fallback.
//
// Endpoint: PUT /api/instruments/{uuid}/reference-price
// Request Body: UpdateReferencePriceRequest
// Response: 200 OK with the resulting PriceQuote
// Error: 400 Bad Request if the ID is invalid (validated by middleware) or the price is not positive
// Error: 404 Not Found if the instrument does not exist
// Error: 500 Internal Server Error if the update fails
func (h *InstrumentHandler) UpdateReferencePrice(w http.ResponseWriter, r *http.Request) {
	instrumentID := chi.URLParam(r, "uuid")

	req, err := parseJSON[request.UpdateReferencePriceRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if !req.Price.IsPositive() {
		response.RespondError(w, http.StatusBadRequest, "validation failed", "price must be positive")
		return
	}

	quote, err := h.pricingService.SetManualPrice(r.Context(), instrumentID, req.Price)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToUpdateReferencePrice.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, quote)
}
