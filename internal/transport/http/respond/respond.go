package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mercatolabs/fulfillment/internal/service/models/apperror"
)

type errorResponse struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// Error maps a domain error to an HTTP status and writes it as JSON.
func Error(w http.ResponseWriter, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		slog.Error("Unhandled error in http handler", "error", err)
		JSON(w, http.StatusInternalServerError, errorResponse{
			Code:    "internal",
			Message: "internal server error",
		})

		return
	}

	JSON(w, statusForCode(appErr.Code), errorResponse{
		Code:    string(appErr.Code),
		Field:   appErr.Field,
		Message: appErr.Message,
	})
}

// BadRequest writes a plain validation error, used for malformed payloads
// before any domain code is involved.
func BadRequest(w http.ResponseWriter, message string) {
	JSON(w, http.StatusBadRequest, errorResponse{
		Code:    string(apperror.CodeValidation),
		Message: message,
	})
}

func statusForCode(code apperror.Code) int {
	switch code {
	case apperror.CodeValidation, apperror.CodeCurrencyMismatch, apperror.CodeDivideByZero:
		return http.StatusBadRequest
	case apperror.CodeNotFound:
		return http.StatusNotFound
	case apperror.CodeConflict:
		return http.StatusConflict
	case apperror.CodeInvalidTransition, apperror.CodeCouponInvalid,
		apperror.CodeUsageLimitReached, apperror.CodeUserLimitReached:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
