package orderpackage

import (
	"time"

	"github.com/mercatolabs/fulfillment/internal/service/models/currency"
	"github.com/mercatolabs/fulfillment/internal/service/models/money"
	"github.com/mercatolabs/fulfillment/internal/service/models/orderitem"
)

// RestoreParams carries persisted state back into an OrderPackage. Used by
// the data access layer only; application code goes through New and the
// mutation methods.
type RestoreParams struct {
	ID                     int64
	OrderID                int64
	StoreID                int64
	BuyerID                int64
	Status                 Status
	Currency               currency.Currency
	Items                  []orderitem.OrderItem
	Discounts              []Discount
	Checkouts              []Checkout
	SubTotal               money.Money
	TotalDiscount          money.Money
	ShippingFee            money.Money
	TotalAmount            money.Money
	IsShippingPaidBySeller bool
	ShippingID             *int64
	RejectionReason        string
	ConfirmedAt            *time.Time
	RejectedAt             *time.Time
	ShippedAt              *time.Time
	DeliveredAt            *time.Time
	CompletedAt            *time.Time
	CancelledAt            *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Restore rehydrates a package from persisted state without running any
// invariant checks: the stored state is trusted.
func Restore(p RestoreParams) *OrderPackage {
	return &OrderPackage{
		id:                     p.ID,
		orderID:                p.OrderID,
		storeID:                p.StoreID,
		buyerID:                p.BuyerID,
		status:                 p.Status,
		currency:               p.Currency,
		items:                  p.Items,
		discounts:              p.Discounts,
		checkouts:              p.Checkouts,
		subTotal:               p.SubTotal,
		totalDiscount:          p.TotalDiscount,
		shippingFee:            p.ShippingFee,
		totalAmount:            p.TotalAmount,
		isShippingPaidBySeller: p.IsShippingPaidBySeller,
		shippingID:             p.ShippingID,
		rejectionReason:        p.RejectionReason,
		confirmedAt:            p.ConfirmedAt,
		rejectedAt:             p.RejectedAt,
		shippedAt:              p.ShippedAt,
		deliveredAt:            p.DeliveredAt,
		completedAt:            p.CompletedAt,
		cancelledAt:            p.CancelledAt,
		createdAt:              p.CreatedAt,
		updatedAt:              p.UpdatedAt,
	}
}

// SetID assigns the persistence identity after the first insert.
func (p *OrderPackage) SetID(id int64) { p.id = id }

// SetOrderID links the package to its owning order after the order row is
// inserted.
func (p *OrderPackage) SetOrderID(orderID int64) { p.orderID = orderID }
