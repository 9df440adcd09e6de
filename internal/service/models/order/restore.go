package order

import (
	"time"

	"github.com/mercatolabs/fulfillment/internal/service/models/currency"
	"github.com/mercatolabs/fulfillment/internal/service/models/money"
	"github.com/mercatolabs/fulfillment/internal/service/models/orderpackage"
)

// RestoreParams carries persisted state back into an Order. Used by the data
// access layer only.
type RestoreParams struct {
	ID              int64
	ShortID         string
	UserID          int64
	DeliveryAddress string
	Status          Status
	Currency        currency.Currency
	TotalAmount     money.Money
	Packages        []*orderpackage.OrderPackage
	Trackings       []OrderTracking
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	PaidAt          *time.Time
	ExpiredAt       time.Time
}

// Restore rehydrates an order from persisted state without invariant checks.
func Restore(p RestoreParams) *Order {
	return &Order{
		id:              p.ID,
		shortID:         p.ShortID,
		userID:          p.UserID,
		deliveryAddress: p.DeliveryAddress,
		status:          p.Status,
		currency:        p.Currency,
		totalAmount:     p.TotalAmount,
		packages:        p.Packages,
		trackings:       p.Trackings,
		version:         p.Version,
		createdAt:       p.CreatedAt,
		updatedAt:       p.UpdatedAt,
		paidAt:          p.PaidAt,
		expiredAt:       p.ExpiredAt,
	}
}

// SetID assigns the persistence identity after the first insert and links
// child records to it.
func (o *Order) SetID(id int64) {
	o.id = id
	for _, p := range o.packages {
		p.SetOrderID(id)
	}
	for i := range o.trackings {
		o.trackings[i].OrderID = id
	}
}

// BumpVersion increments the optimistic concurrency token after a successful
// save.
func (o *Order) BumpVersion() { o.version++ }

// NewTrackings returns the ledger entries that have not been persisted yet
// (those without an id).
func (o *Order) NewTrackings() []OrderTracking {
	var out []OrderTracking
	for _, t := range o.trackings {
		if t.ID == 0 {
			out = append(out, t)
		}
	}

	return out
}
