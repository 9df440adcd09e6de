package listorders

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mercatolabs/fulfillment/internal/dal/interfaces/iorderrepo"
	"github.com/mercatolabs/fulfillment/internal/service/models/order"
	"github.com/mercatolabs/fulfillment/internal/transport/http/converters"
	"github.com/mercatolabs/fulfillment/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	GetOrder(ctx context.Context, orderID int64) (*order.Order, error)
	ListOrders(ctx context.Context, filter *iorderrepo.QueryOrdersModel) ([]*order.Order, error)
}

// ListOrders handles the list orders request. Filters come from query
// parameters: ids, user_ids, statuses, limit, offset.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	filter, err := filterFromQuery(r)
	if err != nil {
		respond.BadRequest(w, err.Error())
		slog.Error("Error parsing list orders query", "error", err)

		return
	}

	orders, err := service.ListOrders(r.Context(), filter)
	if err != nil {
		respond.Error(w, err)
		slog.Error("Error listing orders", "error", err)

		return
	}

	respond.JSON(w, http.StatusOK, converters.OrdersToResponse(orders))
}

// GetOrder handles the get order request, returning the full aggregate with
// packages, items and the tracking ledger.
func GetOrder(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		respond.BadRequest(w, "invalid order id")

		return
	}

	o, err := service.GetOrder(r.Context(), orderID)
	if err != nil {
		respond.Error(w, err)
		slog.Error("Error getting order", "order_id", orderID, "error", err)

		return
	}

	respond.JSON(w, http.StatusOK, converters.OrderToResponse(o))
}

func filterFromQuery(r *http.Request) (*iorderrepo.QueryOrdersModel, error) {
	q := r.URL.Query()

	ids, err := parseInt64List(q.Get("ids"))
	if err != nil {
		return nil, err
	}
	userIDs, err := parseInt64List(q.Get("user_ids"))
	if err != nil {
		return nil, err
	}

	var statuses []string
	if raw := q.Get("statuses"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status, ok := order.ParseStatus(strings.TrimSpace(s))
			if !ok {
				return nil, fmt.Errorf("unknown order status %q", s)
			}
			statuses = append(statuses, string(status))
		}
	}

	limit, err := parseIntOrZero(q.Get("limit"))
	if err != nil {
		return nil, err
	}
	offset, err := parseIntOrZero(q.Get("offset"))
	if err != nil {
		return nil, err
	}

	return &iorderrepo.QueryOrdersModel{
		Ids:      ids,
		UserIds:  userIDs,
		Statuses: statuses,
		Limit:    limit,
		Offset:   offset,
	}, nil
}

func parseInt64List(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	out := make([]int64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}

	return out, nil
}

func parseIntOrZero(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}

	return strconv.Atoi(raw)
}
