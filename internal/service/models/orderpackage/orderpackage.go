package orderpackage

import (
	"fmt"
	"time"

	"github.com/mercatolabs/fulfillment/internal/service/models/apperror"
	"github.com/mercatolabs/fulfillment/internal/service/models/currency"
	"github.com/mercatolabs/fulfillment/internal/service/models/money"
	"github.com/mercatolabs/fulfillment/internal/service/models/orderitem"
)

// Discount is a discount applied to a package, traced back to the coupon
// that produced it.
type Discount struct {
	ID       int64       `json:"id"`
	CouponID int64       `json:"couponId"`
	Code     string      `json:"code"`
	Amount   money.Money `json:"amount"`
}

// Checkout records a payment attempt against a package.
type Checkout struct {
	ID            int64       `json:"id"`
	PaymentMethod string      `json:"paymentMethod"`
	Amount        money.Money `json:"amount"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// OrderPackage is the per-vendor sub-order of an order. It owns its items,
// discounts and checkouts, and keeps subTotal, totalDiscount and totalAmount
// consistent after every mutation:
//
//	totalAmount = subTotal - totalDiscount + (seller pays shipping ? 0 : shippingFee)
//
// All mutating methods guard the current status and return a domain error
// naming the offending field when the guard fails.
type OrderPackage struct {
	id                     int64
	orderID                int64
	storeID                int64
	buyerID                int64
	status                 Status
	currency               currency.Currency
	items                  []orderitem.OrderItem
	discounts              []Discount
	checkouts              []Checkout
	subTotal               money.Money
	totalDiscount          money.Money
	shippingFee            money.Money
	totalAmount            money.Money
	isShippingPaidBySeller bool
	shippingID             *int64
	rejectionReason        string
	confirmedAt            *time.Time
	rejectedAt             *time.Time
	shippedAt              *time.Time
	deliveredAt            *time.Time
	completedAt            *time.Time
	cancelledAt            *time.Time
	createdAt              time.Time
	updatedAt              time.Time
}

// New creates a pending package for one store.
func New(storeID, buyerID int64, cur currency.Currency, now time.Time) *OrderPackage {
	return &OrderPackage{
		storeID:       storeID,
		buyerID:       buyerID,
		status:        StatusPending,
		currency:      cur,
		subTotal:      money.Zero(cur),
		totalDiscount: money.Zero(cur),
		shippingFee:   money.Zero(cur),
		totalAmount:   money.Zero(cur),
		createdAt:     now,
		updatedAt:     now,
	}
}

func (p *OrderPackage) ID() int64                   { return p.id }
func (p *OrderPackage) OrderID() int64              { return p.orderID }
func (p *OrderPackage) StoreID() int64              { return p.storeID }
func (p *OrderPackage) BuyerID() int64              { return p.buyerID }
func (p *OrderPackage) Status() Status              { return p.status }
func (p *OrderPackage) Currency() currency.Currency { return p.currency }
func (p *OrderPackage) SubTotal() money.Money       { return p.subTotal }
func (p *OrderPackage) TotalDiscount() money.Money  { return p.totalDiscount }
func (p *OrderPackage) ShippingFee() money.Money    { return p.shippingFee }
func (p *OrderPackage) TotalAmount() money.Money    { return p.totalAmount }
func (p *OrderPackage) IsShippingPaidBySeller() bool {
	return p.isShippingPaidBySeller
}
func (p *OrderPackage) ShippingID() *int64      { return p.shippingID }
func (p *OrderPackage) RejectionReason() string { return p.rejectionReason }
func (p *OrderPackage) ConfirmedAt() *time.Time { return p.confirmedAt }
func (p *OrderPackage) RejectedAt() *time.Time  { return p.rejectedAt }
func (p *OrderPackage) ShippedAt() *time.Time   { return p.shippedAt }
func (p *OrderPackage) DeliveredAt() *time.Time { return p.deliveredAt }
func (p *OrderPackage) CompletedAt() *time.Time { return p.completedAt }
func (p *OrderPackage) CancelledAt() *time.Time { return p.cancelledAt }
func (p *OrderPackage) CreatedAt() time.Time    { return p.createdAt }
func (p *OrderPackage) UpdatedAt() time.Time    { return p.updatedAt }

// Items returns a copy of the item list. Mutation goes through AddItem only.
func (p *OrderPackage) Items() []orderitem.OrderItem {
	out := make([]orderitem.OrderItem, len(p.items))
	copy(out, p.items)

	return out
}

// Discounts returns a copy of the applied discounts.
func (p *OrderPackage) Discounts() []Discount {
	out := make([]Discount, len(p.discounts))
	copy(out, p.discounts)

	return out
}

// Checkouts returns a copy of the recorded checkouts.
func (p *OrderPackage) Checkouts() []Checkout {
	out := make([]Checkout, len(p.checkouts))
	copy(out, p.checkouts)

	return out
}

// ProductIDs lists the product ids of all items. Used for coupon scope checks.
func (p *OrderPackage) ProductIDs() []int64 {
	ids := make([]int64, 0, len(p.items))
	for _, it := range p.items {
		ids = append(ids, it.ProductID)
	}

	return ids
}

func (p *OrderPackage) requirePending(op string) error {
	if p.status != StatusPending {
		return apperror.InvalidTransition("status",
			fmt.Sprintf("%s is only allowed while the package is pending, current status is %s", op, p.status))
	}

	return nil
}

// AddItem appends an item while the package is still pending and recomputes
// the totals.
func (p *OrderPackage) AddItem(item orderitem.OrderItem, now time.Time) error {
	if err := p.requirePending("adding an item"); err != nil {
		return err
	}
	if item.UnitPrice.Currency != p.currency {
		return apperror.New(apperror.CodeCurrencyMismatch, "unitPrice",
			fmt.Sprintf("item currency %s does not match package currency %s", item.UnitPrice.Currency, p.currency))
	}

	p.items = append(p.items, item)

	return p.recalculateTotals(now)
}

// ApplyDiscount records a discount while the package is still pending and
// recomputes the totals.
func (p *OrderPackage) ApplyDiscount(d Discount, now time.Time) error {
	if err := p.requirePending("applying a discount"); err != nil {
		return err
	}
	if d.Amount.Currency != p.currency {
		return apperror.New(apperror.CodeCurrencyMismatch, "amount",
			fmt.Sprintf("discount currency %s does not match package currency %s", d.Amount.Currency, p.currency))
	}

	p.discounts = append(p.discounts, d)

	return p.recalculateTotals(now)
}

// SetShippingFee sets the shipping fee and who pays it, then recomputes the
// totals. Only allowed while pending.
func (p *OrderPackage) SetShippingFee(fee money.Money, paidBySeller bool, now time.Time) error {
	if err := p.requirePending("setting the shipping fee"); err != nil {
		return err
	}
	if fee.Currency != p.currency {
		return apperror.New(apperror.CodeCurrencyMismatch, "shippingFee",
			fmt.Sprintf("shipping fee currency %s does not match package currency %s", fee.Currency, p.currency))
	}

	p.shippingFee = fee
	p.isShippingPaidBySeller = paidBySeller

	return p.recalculateTotals(now)
}

// RecordCheckout appends a payment record. Rejected and cancelled packages
// accept no payments.
func (p *OrderPackage) RecordCheckout(c Checkout, now time.Time) error {
	if p.status == StatusRejected || p.status == StatusCancelled {
		return apperror.InvalidTransition("status",
			fmt.Sprintf("cannot record a checkout on a %s package", p.status))
	}

	p.checkouts = append(p.checkouts, c)
	p.updatedAt = now

	return nil
}

// recalculateTotals re-derives subTotal, totalDiscount and totalAmount from
// the current items, discounts and shipping fee. The total discount is capped
// at the subtotal so the total never goes negative.
func (p *OrderPackage) recalculateTotals(now time.Time) error {
	subTotal := money.Zero(p.currency)
	for _, item := range p.items {
		var err error
		subTotal, err = subTotal.Add(item.LineTotal())
		if err != nil {
			return err
		}
	}

	totalDiscount := money.Zero(p.currency)
	for _, d := range p.discounts {
		var err error
		totalDiscount, err = totalDiscount.Add(d.Amount)
		if err != nil {
			return err
		}
	}
	if exceeds, err := totalDiscount.GreaterThan(subTotal); err != nil {
		return err
	} else if exceeds {
		totalDiscount = subTotal
	}

	total, err := subTotal.Subtract(totalDiscount)
	if err != nil {
		return err
	}
	if !p.isShippingPaidBySeller {
		total, err = total.Add(p.shippingFee)
		if err != nil {
			return err
		}
	}

	p.subTotal = subTotal
	p.totalDiscount = totalDiscount
	p.totalAmount = total
	p.updatedAt = now

	return nil
}

// Confirm moves the package from pending to confirmed. An empty package
// cannot be confirmed.
func (p *OrderPackage) Confirm(now time.Time) error {
	if p.status != StatusPending {
		return apperror.InvalidTransition("status",
			fmt.Sprintf("cannot confirm a %s package", p.status))
	}
	if len(p.items) == 0 {
		return apperror.Validation("items", "cannot confirm a package with no items")
	}

	p.status = StatusConfirmed
	p.confirmedAt = &now
	p.updatedAt = now

	return nil
}

// Reject declines the package with a mandatory reason.
func (p *OrderPackage) Reject(reason string, now time.Time) error {
	if reason == "" {
		return apperror.Validation("reason", "rejection reason must not be empty")
	}
	if !p.status.IsRejectable() {
		return apperror.InvalidTransition("status",
			fmt.Sprintf("cannot reject a %s package", p.status))
	}

	p.status = StatusRejected
	p.rejectionReason = reason
	p.rejectedAt = &now
	p.updatedAt = now

	return nil
}

// AssignShipping attaches a shipping order and moves the package to
// ready-to-ship. Only allowed from confirmed.
func (p *OrderPackage) AssignShipping(shippingID int64, now time.Time) error {
	if p.status != StatusConfirmed {
		return apperror.InvalidTransition("status",
			fmt.Sprintf("cannot assign shipping to a %s package", p.status))
	}

	p.shippingID = &shippingID
	p.status = StatusReadyToShip
	p.updatedAt = now

	return nil
}

// Ship marks the package as handed to the carrier.
func (p *OrderPackage) Ship(now time.Time) error {
	if p.status != StatusReadyToShip {
		return apperror.InvalidTransition("status",
			fmt.Sprintf("cannot ship a %s package", p.status))
	}
	if p.shippingID == nil {
		return apperror.Validation("shippingId", "cannot ship without an assigned shipping order")
	}

	p.status = StatusShipped
	p.shippedAt = &now
	p.updatedAt = now

	return nil
}

// MarkAsDelivered marks the package as delivered to the buyer.
func (p *OrderPackage) MarkAsDelivered(now time.Time) error {
	if p.status != StatusShipped {
		return apperror.InvalidTransition("status",
			fmt.Sprintf("cannot deliver a %s package", p.status))
	}

	p.status = StatusDelivered
	p.deliveredAt = &now
	p.updatedAt = now

	return nil
}

// Complete finishes a delivered package.
func (p *OrderPackage) Complete(now time.Time) error {
	if p.status != StatusDelivered {
		return apperror.InvalidTransition("status",
			fmt.Sprintf("cannot complete a %s package", p.status))
	}

	p.status = StatusCompleted
	p.completedAt = &now
	p.updatedAt = now

	return nil
}

// Cancel cancels the package with a reason while it is still cancellable.
func (p *OrderPackage) Cancel(reason string, now time.Time) error {
	if reason == "" {
		return apperror.Validation("reason", "cancellation reason must not be empty")
	}
	if !p.status.IsCancellable() {
		return apperror.InvalidTransition("status",
			fmt.Sprintf("cannot cancel a %s package", p.status))
	}

	p.status = StatusCancelled
	p.rejectionReason = reason
	p.cancelledAt = &now
	p.updatedAt = now

	return nil
}
