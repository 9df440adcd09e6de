package orderactions

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mercatolabs/fulfillment/internal/service/models/order"
	"github.com/mercatolabs/fulfillment/internal/transport/http/converters"
	"github.com/mercatolabs/fulfillment/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	MarkAsPaid(ctx context.Context, orderID int64, by order.Executor) (*order.Order, error)
	MarkAsCOD(ctx context.Context, orderID int64, by order.Executor) (*order.Order, error)
	ConfirmPackage(ctx context.Context, orderID, packageID int64, by order.Executor) (*order.Order, error)
	RejectPackage(ctx context.Context, orderID, packageID int64, reason string, by order.Executor) (*order.Order, error)
	AssignShipping(ctx context.Context, orderID, packageID, shippingID int64, by order.Executor) (*order.Order, error)
	ShipPackage(ctx context.Context, orderID, packageID int64, by order.Executor) (*order.Order, error)
	MarkPackageAsDelivered(ctx context.Context, orderID, packageID int64, by order.Executor) (*order.Order, error)
	CompleteOrder(ctx context.Context, orderID int64, by order.Executor) (*order.Order, error)
	CancelOrder(ctx context.Context, orderID int64, reason string, by order.Executor) (*order.Order, error)
	ExpireOrder(ctx context.Context, orderID int64) (*order.Order, error)
}

// actionRequest is the common body of order transition requests. Executor
// fields identify who triggers the transition; Reason is used by reject and
// cancel, ShippingID by shipping assignment.
type actionRequest struct {
	ExecutorType string `json:"executorType"`
	ExecutorID   int64  `json:"executorId"`
	Reason       string `json:"reason,omitempty"`
	ShippingID   int64  `json:"shippingId,omitempty"`
}

func (r *actionRequest) executor() order.Executor {
	switch order.ExecutorType(r.ExecutorType) {
	case order.ExecutorBuyer, order.ExecutorSeller, order.ExecutorAdmin:
		return order.Executor{Type: order.ExecutorType(r.ExecutorType), ID: r.ExecutorID}
	default:
		return order.SystemExecutor
	}
}

func decodeAction(r *http.Request) (actionRequest, error) {
	req := actionRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return actionRequest{}, err
	}

	return req, nil
}

func orderID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
}

func packageID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "packageID"), 10, 64)
}

// run decodes the shared action body, executes the transition and writes the
// updated aggregate.
func run(w http.ResponseWriter, r *http.Request, action string,
	fn func(ctx context.Context, req actionRequest, oid int64) (*order.Order, error),
) {
	oid, err := orderID(r)
	if err != nil {
		respond.BadRequest(w, "invalid order id")

		return
	}

	req, err := decodeAction(r)
	if err != nil {
		respond.BadRequest(w, err.Error())
		slog.Error("Error decoding order action request", "action", action, "error", err)

		return
	}

	o, err := fn(r.Context(), req, oid)
	if err != nil {
		respond.Error(w, err)
		slog.Error("Error executing order action", "action", action, "order_id", oid, "error", err)

		return
	}

	respond.JSON(w, http.StatusOK, converters.OrderToResponse(o))
}

// MarkAsPaid handles the payment confirmation request.
func MarkAsPaid(w http.ResponseWriter, r *http.Request, service service) {
	run(w, r, "pay", func(ctx context.Context, req actionRequest, oid int64) (*order.Order, error) {
		return service.MarkAsPaid(ctx, oid, req.executor())
	})
}

// MarkAsCOD handles the cash on delivery selection request.
func MarkAsCOD(w http.ResponseWriter, r *http.Request, service service) {
	run(w, r, "cod", func(ctx context.Context, req actionRequest, oid int64) (*order.Order, error) {
		return service.MarkAsCOD(ctx, oid, req.executor())
	})
}

// ConfirmPackage handles the seller package confirmation request.
func ConfirmPackage(w http.ResponseWriter, r *http.Request, service service) {
	run(w, r, "confirm_package", func(ctx context.Context, req actionRequest, oid int64) (*order.Order, error) {
		pid, err := packageID(r)
		if err != nil {
			return nil, err
		}

		return service.ConfirmPackage(ctx, oid, pid, req.executor())
	})
}

// RejectPackage handles the seller package rejection request.
func RejectPackage(w http.ResponseWriter, r *http.Request, service service) {
	run(w, r, "reject_package", func(ctx context.Context, req actionRequest, oid int64) (*order.Order, error) {
		pid, err := packageID(r)
		if err != nil {
			return nil, err
		}

		return service.RejectPackage(ctx, oid, pid, req.Reason, req.executor())
	})
}

// AssignShipping handles the shipping assignment request.
func AssignShipping(w http.ResponseWriter, r *http.Request, service service) {
	run(w, r, "assign_shipping", func(ctx context.Context, req actionRequest, oid int64) (*order.Order, error) {
		pid, err := packageID(r)
		if err != nil {
			return nil, err
		}

		return service.AssignShipping(ctx, oid, pid, req.ShippingID, req.executor())
	})
}

// ShipPackage handles the carrier pickup request.
func ShipPackage(w http.ResponseWriter, r *http.Request, service service) {
	run(w, r, "ship_package", func(ctx context.Context, req actionRequest, oid int64) (*order.Order, error) {
		pid, err := packageID(r)
		if err != nil {
			return nil, err
		}

		return service.ShipPackage(ctx, oid, pid, req.executor())
	})
}

// MarkPackageAsDelivered handles the package delivery request.
func MarkPackageAsDelivered(w http.ResponseWriter, r *http.Request, service service) {
	run(w, r, "deliver_package", func(ctx context.Context, req actionRequest, oid int64) (*order.Order, error) {
		pid, err := packageID(r)
		if err != nil {
			return nil, err
		}

		return service.MarkPackageAsDelivered(ctx, oid, pid, req.executor())
	})
}

// CompleteOrder handles the order completion request.
func CompleteOrder(w http.ResponseWriter, r *http.Request, service service) {
	run(w, r, "complete", func(ctx context.Context, req actionRequest, oid int64) (*order.Order, error) {
		return service.CompleteOrder(ctx, oid, req.executor())
	})
}

// CancelOrder handles the order cancellation request.
func CancelOrder(w http.ResponseWriter, r *http.Request, service service) {
	run(w, r, "cancel", func(ctx context.Context, req actionRequest, oid int64) (*order.Order, error) {
		return service.CancelOrder(ctx, oid, req.Reason, req.executor())
	})
}

// ExpireOrder handles the expiration request for unpaid orders.
func ExpireOrder(w http.ResponseWriter, r *http.Request, service service) {
	run(w, r, "expire", func(ctx context.Context, req actionRequest, oid int64) (*order.Order, error) {
		return service.ExpireOrder(ctx, oid)
	})
}
