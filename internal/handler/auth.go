package handler

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/flightprep/lms/internal/i18n"
)

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	user, err := h.store.GetUserByEmail(req.Email)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		h.renderLoginError(w, r)
		return
	}
	if user == nil || !user.Active {
		h.renderLoginError(w, r)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.renderLoginError(w, r)
		return
	}

	token, err := h.auth.IssueToken(user)
	if err != nil {
		slog.Error("failed to issue token", "error", err)
		respondJSON(w, http.StatusInternalServerError, adminResponse{Success: false, Message: "internal error"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

func (h *Handler) renderLoginError(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusUnauthorized, adminResponse{
		Success: false,
		Message: appI18n.T(r.Context(), "LoginError"),
	})
}
