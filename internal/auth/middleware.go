package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/flightprep/lms/internal/model"
)

// RequireAuth checks the bearer token, loads the caller, and stores the
// user in the request context. Inactive or unknown users are rejected.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			writeAuthError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		userID, err := a.verifyToken(tokenString)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		user, err := a.users.GetUserByID(userID)
		if err != nil {
			slog.Error("failed to load token subject", "user_id", userID, "error", err)
			writeAuthError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		if user == nil || !user.Active {
			writeAuthError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole returns middleware that rejects callers lacking one of the
// allowed roles. Runs after RequireAuth, before any storage access.
func RequireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeAuthError(w, http.StatusForbidden, "administrator access required")
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": msg,
	})
}
