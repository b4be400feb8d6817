package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nido-app/nido-backend/internal/api/middleware"
	"github.com/nido-app/nido-backend/internal/api/request"
	"github.com/nido-app/nido-backend/internal/api/response"
	"github.com/nido-app/nido-backend/internal/apperrors"
	"github.com/nido-app/nido-backend/internal/model"
	"github.com/nido-app/nido-backend/internal/service"
)

// SnapshotHandler handles HTTP requests for the snapshot timeline.
type SnapshotHandler struct {
	snapshotService *service.SnapshotService
}

// NewSnapshotHandler creates a new SnapshotHandler with the provided service dependency.
func NewSnapshotHandler(snapshotService *service.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{
		snapshotService: snapshotService,
	}
}

// ListSnapshots handles GET requests for the acting user's snapshot timeline,
// oldest first.
//
// Endpoint: GET /api/snapshots
// Response: 200 OK with array of PortfolioSnapshot
// Error: 500 Internal Server Error if retrieval fails
func (h *SnapshotHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	snapshots, err := h.snapshotService.List(userID)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveSnapshots.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, snapshots)
}

// GetSnapshot handles GET requests for one snapshot on the timeline.
//
// Endpoint: GET /api/snapshots/{uuid}
// Response: 200 OK with PortfolioSnapshot
// Error: 400 Bad Request if the ID is invalid (validated by middleware)
// Error: 404 Not Found if the snapshot does not exist or belongs to another user
func (h *SnapshotHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	snapshotID := chi.URLParam(r, "uuid")

	snapshot, err := h.snapshotService.Get(userID, snapshotID)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveSnapshots.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, snapshot)
}

// CreateSnapshot handles POST requests to capture the acting user's current
// portfolio state onto the immutable timeline. An empty portfolio produces a
// valid zero-valued snapshot.
//
// Endpoint: POST /api/snapshots
// Request Body: CreateSnapshotRequest (kind defaults to "manual")
// Response: 201 Created with PortfolioSnapshot
// Error: 400 Bad Request if the kind is invalid
// Error: 500 Internal Server Error if the capture fails
func (h *SnapshotHandler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	// An empty body means a manual snapshot.
	req, err := parseJSON[request.CreateSnapshotRequest](r)
	if err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	kind := req.Kind
	if kind == "" {
		kind = model.SnapshotManual
	}

	snapshot, err := h.snapshotService.TakeSnapshot(r.Context(), userID, kind)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToCreateSnapshot.Error())
		return
	}

	response.RespondJSON(w, http.StatusCreated, snapshot)
}
