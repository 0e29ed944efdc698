package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/flightprep/lms/internal/apperr"
)

// adminResponse is the uniform shape returned by every admin mutation, so
// the caller can render the message without separate error-path code.
type adminResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	QuestionID string `json:"question_id,omitempty"`
	ExamID     string `json:"exam_id,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// respondError maps the error taxonomy to HTTP status codes with the
// uniform {success, message} shape.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindAuthorization:
		status = http.StatusForbidden
	case apperr.KindNotFound:
		status = http.StatusNotFound
	}
	if status == http.StatusBadGateway {
		slog.Error("dependency error", "error", err)
	}
	respondJSON(w, status, adminResponse{Success: false, Message: err.Error()})
}

// decodeAndValidate parses a JSON body into dst and validates it, producing
// a field-level validation error before any external call is made.
func (h *Handler) decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperr.Validation("field %s failed on the %s rule", fe.Field(), fe.Tag())
		}
		return apperr.Validation("invalid request")
	}
	return nil
}
