package iorderrepo

import (
	"context"

	"github.com/mercatolabs/fulfillment/internal/service/models/order"
)

// QueryOrdersModel represents filter parameters for querying orders.
type QueryOrdersModel struct {
	Ids      []int64
	UserIds  []int64
	Statuses []string
	Limit    int
	Offset   int
}

// IOrderRepository is the persistence contract of the order aggregate.
type IOrderRepository interface {
	// GetByID loads the full aggregate: packages, items, discounts,
	// checkouts and trackings.
	GetByID(ctx context.Context, id int64) (*order.Order, error)

	// Insert persists a new aggregate and assigns identities.
	Insert(ctx context.Context, o *order.Order) error

	// Update saves the aggregate with an optimistic concurrency check on the
	// version column. A lost race returns apperror.ErrConflict.
	Update(ctx context.Context, o *order.Order) error

	// Query lists orders without their child collections.
	Query(ctx context.Context, filter *QueryOrdersModel) ([]*order.Order, error)
}
