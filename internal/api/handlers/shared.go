// Package handlers contains the HTTP layer adapters. Handlers parse requests,
// delegate to services and translate domain errors to status codes; no
// business logic lives here.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nido-app/nido-backend/internal/api/response"
	"github.com/nido-app/nido-backend/internal/apperrors"
	"github.com/nido-app/nido-backend/internal/validation"
)

// parseJSON decodes a request body into the given type, rejecting unknown fields.
func parseJSON[T any](r *http.Request) (T, error) {
	var payload T
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(&payload)
	return payload, err
}

// respondServiceError translates domain errors to HTTP status codes:
//
//	validation failures                          -> 400
//	not-found sentinels, foreign-owner resources -> 404
//	insufficient units on a sell                 -> 409
//	everything else                              -> 500 with the fallback message
//
// Ownership failures deliberately read as 404 so the API does not confirm
// that a transaction ID exists under another user.
func respondServiceError(w http.ResponseWriter, err error, fallback string) {
	var validationErr *validation.Error
	switch {
	case errors.As(err, &validationErr):
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())

	case errors.Is(err, validation.ErrInvalidUUID),
		errors.Is(err, apperrors.ErrInvalidDateRange):
		response.RespondError(w, http.StatusBadRequest, fallback, err.Error())

	case errors.Is(err, apperrors.ErrInstrumentNotFound):
		response.RespondError(w, http.StatusNotFound, apperrors.ErrInstrumentNotFound.Error(), err.Error())

	case errors.Is(err, apperrors.ErrTransactionNotFound), errors.Is(err, apperrors.ErrNotOwner):
		response.RespondError(w, http.StatusNotFound, apperrors.ErrTransactionNotFound.Error(), "")

	case errors.Is(err, apperrors.ErrSnapshotNotFound):
		response.RespondError(w, http.StatusNotFound, apperrors.ErrSnapshotNotFound.Error(), err.Error())

	case errors.Is(err, apperrors.ErrInsufficientUnits):
		response.RespondError(w, http.StatusConflict, apperrors.ErrInsufficientUnits.Error(), err.Error())

	default:
		response.RespondError(w, http.StatusInternalServerError, fallback, err.Error())
	}
}
