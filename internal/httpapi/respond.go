package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/prodraft/draft-series-backend/internal/service"
)

type errorBody struct {
	Error    string `json:"error"`
	Category string `json:"category"`
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// respondError maps the service taxonomy onto HTTP statuses. Every failure
// is structured; nothing ambiguous leaves this function.
func respondError(w http.ResponseWriter, log *zap.Logger, err error) {
	var status int
	var category string
	switch {
	case errors.Is(err, service.ErrValidation):
		status, category = http.StatusBadRequest, "validation"
	case errors.Is(err, service.ErrModeration):
		status, category = http.StatusBadRequest, "moderation"
	case errors.Is(err, service.ErrConflict):
		status, category = http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrPrecondition):
		status, category = http.StatusPreconditionFailed, "precondition"
	case errors.Is(err, service.ErrNotFound):
		status, category = http.StatusNotFound, "not_found"
	default:
		status, category = http.StatusInternalServerError, "internal"
		log.Error("request failed", zap.Error(err))
	}
	respond(w, status, errorBody{Error: err.Error(), Category: category})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json body", service.ErrValidation)
	}
	return nil
}
