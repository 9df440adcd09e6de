package applycoupon

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mercatolabs/fulfillment/internal/service/models/order"
	"github.com/mercatolabs/fulfillment/internal/transport/http/converters"
	"github.com/mercatolabs/fulfillment/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	ApplyCoupon(ctx context.Context, orderID, packageID int64, couponCode string, by order.Executor) (*order.Order, error)
}

// applyCouponRequest represents an apply coupon request.
type applyCouponRequest struct {
	PackageID    int64  `json:"packageId"  validate:"gt=0"`
	CouponCode   string `json:"couponCode" validate:"required"`
	ExecutorType string `json:"executorType"`
	ExecutorID   int64  `json:"executorId"`
}

// Validate validates the apply coupon request.
func (r *applyCouponRequest) Validate() error {
	return validator.New().Struct(r)
}

// ApplyCoupon handles the apply coupon request.
func ApplyCoupon(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		respond.BadRequest(w, "invalid order id")

		return
	}

	req := applyCouponRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, err.Error())
		slog.Error("Error decoding request body for apply coupon", "error", err)

		return
	}

	if err := req.Validate(); err != nil {
		respond.BadRequest(w, err.Error())
		slog.Error("Error validating request body for apply coupon", "error", err)

		return
	}

	by := order.Executor{Type: order.ExecutorBuyer, ID: req.ExecutorID}
	if t := order.ExecutorType(req.ExecutorType); t == order.ExecutorSeller || t == order.ExecutorAdmin {
		by = order.Executor{Type: t, ID: req.ExecutorID}
	}

	o, err := service.ApplyCoupon(r.Context(), orderID, req.PackageID, req.CouponCode, by)
	if err != nil {
		respond.Error(w, err)
		slog.Error("Error applying coupon", "order_id", orderID, "coupon", req.CouponCode, "error", err)

		return
	}

	respond.JSON(w, http.StatusOK, converters.OrderToResponse(o))
}
