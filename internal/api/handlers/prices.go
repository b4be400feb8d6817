package handlers

import (
	"net/http"
	"time"

	"github.com/nido-app/nido-backend/internal/api/request"
	"github.com/nido-app/nido-backend/internal/api/response"
	"github.com/nido-app/nido-backend/internal/apperrors"
	"github.com/nido-app/nido-backend/internal/service"
)

// PriceHandler handles HTTP requests for the quote cache and price refresh.
type PriceHandler struct {
	pricingService *service.PricingService
}

// NewPriceHandler creates a new PriceHandler with the provided service dependency.
func NewPriceHandler(pricingService *service.PricingService) *PriceHandler {
	return &PriceHandler{
		pricingService: pricingService,
	}
}

// Quotes handles GET requests for the current quote cache.
//
// Endpoint: GET /api/prices
// Response: 200 OK with PriceSnapshot
func (h *PriceHandler) Quotes(w http.ResponseWriter, _ *http.Request) {
	response.RespondJSON(w, http.StatusOK, h.pricingService.Snapshot())
}

// Refresh handles POST requests to refresh quotes from the market data feed.
// The once-per-day gate applies unless force=true is passed; a gated call
// returns skipped=true without touching the network. Partial failures are
// reported in the errors array alongside whatever succeeded.
//
// Endpoint: POST /api/prices/refresh?force=
// Response: 200 OK with RefreshResult
// Error: 500 Internal Server Error if the refresh cannot run at all
func (h *PriceHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"

	var (
		result interface{}
		err    error
	)
	if force {
		result, err = h.pricingService.Refresh(r.Context())
	} else {
		result, err = h.pricingService.RefreshIfDue(r.Context(), time.Now())
	}
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRefreshPrices.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// SetAPIKey handles PUT requests to store the market data feed credential.
// The credential is encrypted at rest.
//
// Endpoint: PUT /api/prices/apikey
// Request Body: SetAPIKeyRequest
// Response: 204 No Content
// Error: 400 Bad Request if the request body is invalid or the key is empty
// Error: 500 Internal Server Error if encryption or storage fails
func (h *PriceHandler) SetAPIKey(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.SetAPIKeyRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if req.APIKey == "" {
		response.RespondError(w, http.StatusBadRequest, "validation failed", "apiKey is required")
		return
	}

	if err := h.pricingService.SetAPIKey(r.Context(), req.APIKey); err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToStoreAPIKey.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}
