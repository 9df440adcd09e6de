package respond

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mercatolabs/fulfillment/internal/service/models/apperror"
)

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", apperror.Validation("field", "bad"), http.StatusBadRequest},
		{"currency mismatch", apperror.New(apperror.CodeCurrencyMismatch, "currency", "bad"), http.StatusBadRequest},
		{"not found", apperror.NotFound("order", "missing"), http.StatusNotFound},
		{"conflict", apperror.ErrConflict, http.StatusConflict},
		{"invalid transition", apperror.InvalidTransition("status", "nope"), http.StatusUnprocessableEntity},
		{"coupon invalid", apperror.New(apperror.CodeCouponInvalid, "coupon", "expired"), http.StatusUnprocessableEntity},
		{"usage limit", apperror.New(apperror.CodeUsageLimitReached, "maxUsageCount", "cap"), http.StatusUnprocessableEntity},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, errors.New("pq: connection refused"))

	assert.NotContains(t, rec.Body.String(), "connection refused")
}
