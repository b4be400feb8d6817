package middleware

import (
	"context"
	"net/http"

	"github.com/nido-app/nido-backend/internal/api/response"
	"github.com/nido-app/nido-backend/internal/validation"
)

type contextKey string

const userIDKey contextKey = "userID"

// RequireUser extracts the acting user from the X-User-ID header and stores
// it in the request context. Every ledger and portfolio route requires it;
// there is no ambient current-user state anywhere below the HTTP layer.
// Returns 400 Bad Request when the header is missing or not a UUID.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")

		if userID == "" {
			response.RespondError(w, http.StatusBadRequest, "X-User-ID header is required", "")
			return
		}

		if err := validation.ValidateUUID(userID); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid user ID", err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the acting user ID stored by RequireUser, or "" when the
// middleware did not run.
func UserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}
