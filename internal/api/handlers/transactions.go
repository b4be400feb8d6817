package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nido-app/nido-backend/internal/api/middleware"
	"github.com/nido-app/nido-backend/internal/api/request"
	"github.com/nido-app/nido-backend/internal/api/response"
	"github.com/nido-app/nido-backend/internal/apperrors"
	"github.com/nido-app/nido-backend/internal/model"
	"github.com/nido-app/nido-backend/internal/service"
	"github.com/nido-app/nido-backend/internal/validation"
)

// TransactionHandler handles HTTP requests for ledger endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the ledgerService.
type TransactionHandler struct {
	ledgerService *service.LedgerService
}

// NewTransactionHandler creates a new TransactionHandler with the provided service dependency.
func NewTransactionHandler(ledgerService *service.LedgerService) *TransactionHandler {
	return &TransactionHandler{
		ledgerService: ledgerService,
	}
}

// ListTransactions handles GET requests to retrieve the acting user's ledger
// in chronological order, optionally filtered by instrument and date range.
//
// Endpoint: GET /api/transactions?instrumentId=&from=&to=
// Response: 200 OK with array of TransactionResponse
// Error: 400 Bad Request if a filter value is malformed or from is after to
// Error: 500 Internal Server Error if retrieval fails
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	filter := model.TransactionFilter{}

	if instrumentID := r.URL.Query().Get("instrumentId"); instrumentID != "" {
		if err := validation.ValidateUUID(instrumentID); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid instrumentId filter", err.Error())
			return
		}
		filter.InstrumentID = instrumentID
	}
	if from := r.URL.Query().Get("from"); from != "" {
		parsed, err := validation.ParseOccurredAt(from)
		if err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid from filter", err.Error())
			return
		}
		filter.From = parsed
	}
	if to := r.URL.Query().Get("to"); to != "" {
		parsed, err := validation.ParseOccurredAt(to)
		if err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid to filter", err.Error())
			return
		}
		filter.To = parsed
	}

	transactions, err := h.ledgerService.List(userID, filter)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveTransactions.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, transactions)
}

// GetTransaction handles GET requests to retrieve a single owned transaction.
//
// Endpoint: GET /api/transactions/{uuid}
// Response: 200 OK with Transaction
// Error: 400 Bad Request if the ID is invalid (validated by middleware)
// Error: 404 Not Found if the transaction does not exist or belongs to another user
// Error: 500 Internal Server Error if retrieval fails
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	transactionID := chi.URLParam(r, "uuid")

	transaction, err := h.ledgerService.Get(userID, transactionID)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveTransaction.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, transaction)
}

// CreateTransaction handles POST requests to append one event to the ledger.
//
// Endpoint: POST /api/transactions
// Request Body: CreateTransactionRequest
// Response: 201 Created with Transaction
// Error: 400 Bad Request if validation fails or the request body is invalid
// Error: 404 Not Found if the instrument does not exist
// Error: 409 Conflict if a sell exceeds the units held
// Error: 500 Internal Server Error if the append fails
func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	req, err := parseJSON[request.CreateTransactionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	transaction, err := h.ledgerService.Append(r.Context(), userID, req)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToCreateTransaction.Error())
		return
	}

	response.RespondJSON(w, http.StatusCreated, transaction)
}

// UpdateTransaction handles PUT requests for a corrective edit of an owned
// transaction. Kind and instrument are not editable.
//
// Endpoint: PUT /api/transactions/{uuid}
// Request Body: UpdateTransactionRequest (all fields optional)
// Response: 200 OK with updated Transaction
// Error: 400 Bad Request if the ID is invalid (validated by middleware) or validation fails
// Error: 404 Not Found if the transaction does not exist or belongs to another user
// Error: 500 Internal Server Error if the update fails
func (h *TransactionHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	transactionID := chi.URLParam(r, "uuid")

	req, err := parseJSON[request.UpdateTransactionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	transaction, err := h.ledgerService.Amend(r.Context(), userID, transactionID, req)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToUpdateTransaction.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, transaction)
}

// DeleteTransaction handles DELETE requests to remove an owned transaction.
//
// Endpoint: DELETE /api/transactions/{uuid}
// Response: 204 No Content on successful deletion
// Error: 400 Bad Request if the ID is invalid (validated by middleware)
// Error: 404 Not Found if the transaction does not exist or belongs to another user
// Error: 500 Internal Server Error if the deletion fails
func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	transactionID := chi.URLParam(r, "uuid")

	if err := h.ledgerService.Remove(r.Context(), userID, transactionID); err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToDeleteTransaction.Error())
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}
