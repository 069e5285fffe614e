package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pawsuite/pawsuite/internal/shared"
)

// JSON writes a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Error maps a domain error onto an HTTP status and JSON body.
func Error(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	code := ""
	switch {
	case errors.Is(err, shared.ErrNotFound):
		status = http.StatusNotFound
		code = "NOT_FOUND"
	case errors.Is(err, shared.ErrValidation):
		status = http.StatusUnprocessableEntity
		code = "VALIDATION"
	case errors.Is(err, shared.ErrStatusConflict):
		status = http.StatusConflict
		code = "STATUS_CONFLICT"
	case errors.Is(err, shared.ErrInsufficientStock):
		status = http.StatusConflict
		code = "INSUFFICIENT_STOCK"
	case errors.Is(err, shared.ErrPaymentExceedsTotal):
		status = http.StatusUnprocessableEntity
		code = "PAYMENT_EXCEEDS_TOTAL"
	case errors.Is(err, shared.ErrDuplicateEntry):
		status = http.StatusConflict
		code = "DUPLICATE_ENTRY"
	case errors.Is(err, shared.ErrNoItems):
		status = http.StatusUnprocessableEntity
		code = "NO_ITEMS"
	}
	if status == http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", slog.Any("error", err))
	}
	JSON(w, status, errorBody{Error: err.Error(), Code: code})
}

// Decode parses a JSON request body into dst.
func Decode(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return shared.Validationf("invalid request body: %v", err)
	}
	return nil
}
