package handlers

import (
	"net/http"

	"github.com/nido-app/nido-backend/internal/api/middleware"
	"github.com/nido-app/nido-backend/internal/api/response"
	"github.com/nido-app/nido-backend/internal/apperrors"
	"github.com/nido-app/nido-backend/internal/service"
)

// PortfolioHandler handles HTTP requests for the portfolio valuation endpoint.
type PortfolioHandler struct {
	valuationService *service.ValuationService
}

// NewPortfolioHandler creates a new PortfolioHandler with the provided service dependency.
func NewPortfolioHandler(valuationService *service.ValuationService) *PortfolioHandler {
	return &PortfolioHandler{
		valuationService: valuationService,
	}
}

// PortfolioSummary handles GET requests for the acting user's portfolio
// valuation: per-instrument holdings valued against current prices, totals
// and the diversification score. An empty ledger yields a valid zero-valued
// summary.
//
// Endpoint: GET /api/portfolio/summary
// Response: 200 OK with PortfolioValuation
// Error: 500 Internal Server Error if the valuation fails
func (h *PortfolioHandler) PortfolioSummary(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	valuation, err := h.valuationService.Summary(userID)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToGetPortfolioSummary.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, valuation)
}
