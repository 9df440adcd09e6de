package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mercatolabs/fulfillment/internal/service/models/apperror"
	"github.com/mercatolabs/fulfillment/internal/service/models/currency"
	"github.com/mercatolabs/fulfillment/internal/service/models/event"
	"github.com/mercatolabs/fulfillment/internal/service/models/money"
	"github.com/mercatolabs/fulfillment/internal/service/models/orderpackage"
)

// Order is the aggregate root of the fulfillment domain. It owns its
// per-vendor packages and the tracking ledger, coordinates cross-package
// status aggregation and keeps the invariant
//
//	totalAmount = sum of totalAmount over non-rejected packages
//
// after every mutation. Orders are created through New only and accumulate
// integration events that the unit of work turns into outbox rows.
type Order struct {
	id              int64
	shortID         string
	userID          int64
	deliveryAddress string
	status          Status
	currency        currency.Currency
	totalAmount     money.Money
	packages        []*orderpackage.OrderPackage
	trackings       []OrderTracking
	events          []event.Event
	version         int64
	createdAt       time.Time
	updatedAt       time.Time
	paidAt          *time.Time
	expiredAt       time.Time
}

// New creates an order in the created state. expiresIn bounds how long the
// buyer has to pay before the order can be expired.
func New(userID int64, deliveryAddress string, cur currency.Currency, expiresIn time.Duration, now time.Time) (*Order, error) {
	if deliveryAddress == "" {
		return nil, apperror.Validation("deliveryAddress", "delivery address must not be empty")
	}
	if expiresIn <= 0 {
		return nil, apperror.Validation("expiresIn", "expiration window must be positive")
	}

	o := &Order{
		shortID:         newShortID(),
		userID:          userID,
		deliveryAddress: deliveryAddress,
		status:          StatusCreated,
		currency:        cur,
		totalAmount:     money.Zero(cur),
		createdAt:       now,
		updatedAt:       now,
		expiredAt:       now.Add(expiresIn),
	}
	o.appendTracking(TrackingOrderCreated, Executor{Type: ExecutorBuyer, ID: userID}, "order created", now)

	return o, nil
}

// newShortID derives a human-friendly order reference.
func newShortID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

func (o *Order) ID() int64                   { return o.id }
func (o *Order) ShortID() string             { return o.shortID }
func (o *Order) UserID() int64               { return o.userID }
func (o *Order) DeliveryAddress() string     { return o.deliveryAddress }
func (o *Order) Status() Status              { return o.status }
func (o *Order) Currency() currency.Currency { return o.currency }
func (o *Order) TotalAmount() money.Money    { return o.totalAmount }
func (o *Order) Version() int64              { return o.version }
func (o *Order) CreatedAt() time.Time        { return o.createdAt }
func (o *Order) UpdatedAt() time.Time        { return o.updatedAt }
func (o *Order) PaidAt() *time.Time          { return o.paidAt }
func (o *Order) ExpiredAt() time.Time        { return o.expiredAt }

// Packages returns the package list. The slice is a copy; the packages
// themselves are mutated only through the aggregate.
func (o *Order) Packages() []*orderpackage.OrderPackage {
	out := make([]*orderpackage.OrderPackage, len(o.packages))
	copy(out, o.packages)

	return out
}

// Trackings returns a copy of the audit ledger.
func (o *Order) Trackings() []OrderTracking {
	out := make([]OrderTracking, len(o.trackings))
	copy(out, o.trackings)

	return out
}

// Events returns the integration events raised since the last ClearEvents.
func (o *Order) Events() []event.Event {
	out := make([]event.Event, len(o.events))
	copy(out, o.events)

	return out
}

// ClearEvents drops the accumulated events. The unit of work calls this after
// turning them into outbox rows.
func (o *Order) ClearEvents() { o.events = nil }

func (o *Order) raise(ev event.Event) {
	o.events = append(o.events, ev)
}

func (o *Order) appendTracking(t TrackingType, by Executor, message string, now time.Time) {
	o.trackings = append(o.trackings, OrderTracking{
		OrderID:      o.id,
		Type:         t,
		ExecutorType: by.Type,
		ExecutorID:   by.ID,
		Message:      message,
		CreatedAt:    now,
	})
}

// Package finds a package by id.
func (o *Order) Package(packageID int64) (*orderpackage.OrderPackage, error) {
	for _, p := range o.packages {
		if p.ID() == packageID {
			return p, nil
		}
	}

	return nil, apperror.NotFound("package", fmt.Sprintf("package %d does not belong to order %d", packageID, o.id))
}

// AddPackage attaches a package while the order has not been paid yet and
// recomputes the order total.
func (o *Order) AddPackage(p *orderpackage.OrderPackage, now time.Time) error {
	if o.status != StatusCreated {
		return apperror.InvalidTransition("status",
			fmt.Sprintf("cannot add a package to a %s order", o.status))
	}
	if p.Currency() != o.currency {
		return apperror.New(apperror.CodeCurrencyMismatch, "currency",
			fmt.Sprintf("package currency %s does not match order currency %s", p.Currency(), o.currency))
	}

	o.packages = append(o.packages, p)

	return o.recalculateTotal(now)
}

// recalculateTotal sums package totals, excluding rejected packages.
func (o *Order) recalculateTotal(now time.Time) error {
	total := money.Zero(o.currency)
	for _, p := range o.packages {
		if p.Status() == orderpackage.StatusRejected {
			continue
		}
		var err error
		total, err = total.Add(p.TotalAmount())
		if err != nil {
			return err
		}
	}

	o.totalAmount = total
	o.updatedAt = now

	return nil
}

// MarkAsPaid records a successful payment for the whole order.
func (o *Order) MarkAsPaid(by Executor, now time.Time) error {
	if o.status != StatusCreated {
		return apperror.InvalidTransition("status",
			fmt.Sprintf("cannot mark a %s order as paid", o.status))
	}

	o.status = StatusPaid
	o.paidAt = &now
	o.updatedAt = now
	o.appendTracking(TrackingOrderPaid, by, "order paid", now)
	o.raise(event.OrderPaid{
		OrderID:         o.id,
		UserID:          o.userID,
		TotalPriceCents: o.totalAmount.AmountCents,
		Currency:        o.currency.String(),
		PaidAt:          now,
	})

	// Packages may all have been decided while payment was pending.
	o.maybeAutoConfirm(now)

	return nil
}

// MarkAsCOD selects cash-on-delivery payment. COD orders are capped at the
// given ceiling.
func (o *Order) MarkAsCOD(ceiling money.Money, by Executor, now time.Time) error {
	if o.status != StatusCreated {
		return apperror.InvalidTransition("status",
			fmt.Sprintf("cannot mark a %s order as cash on delivery", o.status))
	}
	exceeds, err := o.totalAmount.GreaterThan(ceiling)
	if err != nil {
		return err
	}
	if exceeds {
		return apperror.Validation("totalAmount",
			fmt.Sprintf("order total %s exceeds the cash-on-delivery ceiling of %s", o.totalAmount, ceiling))
	}

	o.status = StatusCOD
	o.updatedAt = now
	o.appendTracking(TrackingCODPlaced, by, "cash on delivery selected", now)
	o.raise(event.OrderCODPlaced{
		OrderID:         o.id,
		UserID:          o.userID,
		TotalPriceCents: o.totalAmount.AmountCents,
		Currency:        o.currency.String(),
	})

	// Packages may all have been decided while payment was pending.
	o.maybeAutoConfirm(now)

	return nil
}

// ConfirmPackage confirms one package on behalf of its seller. Once every
// package is either confirmed or rejected, with at least one confirmed, the
// order itself auto-advances to confirmed.
func (o *Order) ConfirmPackage(packageID int64, by Executor, now time.Time) error {
	p, err := o.Package(packageID)
	if err != nil {
		return err
	}
	if err := p.Confirm(now); err != nil {
		return err
	}

	o.updatedAt = now
	o.appendTracking(TrackingPackageConfirmed, by,
		fmt.Sprintf("package %d confirmed", packageID), now)
	o.raise(event.PackageConfirmed{OrderID: o.id, PackageID: packageID, StoreID: p.StoreID()})

	o.maybeAutoConfirm(now)

	return nil
}

// maybeAutoConfirm advances the order once every package has been decided.
// The order must have been paid (or placed as COD) first.
func (o *Order) maybeAutoConfirm(now time.Time) {
	if o.status != StatusPaid && o.status != StatusCOD {
		return
	}

	confirmed := 0
	for _, p := range o.packages {
		switch p.Status() {
		case orderpackage.StatusConfirmed:
			confirmed++
		case orderpackage.StatusRejected:
		default:
			return
		}
	}
	if confirmed == 0 {
		return
	}

	o.status = StatusConfirmed
	o.updatedAt = now
	o.appendTracking(TrackingOrderConfirmed, SystemExecutor, "all packages decided, order confirmed", now)
	o.raise(event.OrderConfirmed{OrderID: o.id, ConfirmedAt: now})
}

// RejectPackage rejects one package and removes its contribution from the
// order total. If every package ends up rejected the order auto-cancels.
func (o *Order) RejectPackage(packageID int64, reason string, by Executor, now time.Time) error {
	p, err := o.Package(packageID)
	if err != nil {
		return err
	}
	if err := p.Reject(reason, now); err != nil {
		return err
	}
	if err := o.recalculateTotal(now); err != nil {
		return err
	}

	o.appendTracking(TrackingPackageRejected, by,
		fmt.Sprintf("package %d rejected: %s", packageID, reason), now)
	o.raise(event.PackageRejected{OrderID: o.id, PackageID: packageID, StoreID: p.StoreID(), Reason: reason})

	allRejected := true
	for _, pkg := range o.packages {
		if pkg.Status() != orderpackage.StatusRejected {
			allRejected = false
			break
		}
	}
	if allRejected && o.status.IsCancellable() {
		o.status = StatusCancelled
		o.updatedAt = now
		o.appendTracking(TrackingOrderCancelled, SystemExecutor, "all packages rejected", now)
		o.raise(event.OrderCancelled{OrderID: o.id, Reason: "all packages rejected"})
	} else {
		o.maybeAutoConfirm(now)
	}

	return nil
}

// AssignShipping attaches a shipping order to a confirmed package. Shipping
// operations require the order itself to be confirmed, so a package cannot
// move toward delivery while payment is still outstanding.
func (o *Order) AssignShipping(packageID, shippingID int64, by Executor, now time.Time) error {
	if o.status != StatusConfirmed {
		return apperror.InvalidTransition("status",
			fmt.Sprintf("cannot assign shipping on a %s order", o.status))
	}

	p, err := o.Package(packageID)
	if err != nil {
		return err
	}
	if err := p.AssignShipping(shippingID, now); err != nil {
		return err
	}

	o.updatedAt = now
	o.appendTracking(TrackingShippingAssigned, by,
		fmt.Sprintf("shipping %d assigned to package %d", shippingID, packageID), now)

	return nil
}

// ShipPackage marks a package as handed to the carrier. Like AssignShipping
// it is only allowed once the order is confirmed.
func (o *Order) ShipPackage(packageID int64, by Executor, now time.Time) error {
	if o.status != StatusConfirmed {
		return apperror.InvalidTransition("status",
			fmt.Sprintf("cannot ship a package of a %s order", o.status))
	}

	p, err := o.Package(packageID)
	if err != nil {
		return err
	}
	if err := p.Ship(now); err != nil {
		return err
	}

	o.updatedAt = now
	o.appendTracking(TrackingPackageShipped, by,
		fmt.Sprintf("package %d shipped", packageID), now)
	o.raise(event.PackageShipped{OrderID: o.id, PackageID: packageID, ShippingID: *p.ShippingID()})

	return nil
}

// MarkPackageAsDelivered marks one package as delivered. Once every package
// is delivered or rejected, the order advances to delivered.
func (o *Order) MarkPackageAsDelivered(packageID int64, by Executor, now time.Time) error {
	p, err := o.Package(packageID)
	if err != nil {
		return err
	}
	if err := p.MarkAsDelivered(now); err != nil {
		return err
	}

	o.updatedAt = now
	o.appendTracking(TrackingPackageDelivered, by,
		fmt.Sprintf("package %d delivered", packageID), now)

	allDone := true
	for _, pkg := range o.packages {
		if pkg.Status() != orderpackage.StatusDelivered && pkg.Status() != orderpackage.StatusRejected {
			allDone = false
			break
		}
	}
	if allDone && o.status == StatusConfirmed {
		o.status = StatusDelivered
		o.appendTracking(TrackingOrderDelivered, SystemExecutor, "all packages delivered", now)
		o.raise(event.OrderDelivered{OrderID: o.id, DeliveredAt: now})
	}

	return nil
}

// Complete finishes a delivered order, completing every delivered package.
func (o *Order) Complete(by Executor, now time.Time) error {
	if o.status != StatusDelivered {
		return apperror.InvalidTransition("status",
			fmt.Sprintf("cannot complete a %s order", o.status))
	}

	for _, p := range o.packages {
		if p.Status() != orderpackage.StatusDelivered {
			continue
		}
		if err := p.Complete(now); err != nil {
			return err
		}
	}

	o.status = StatusCompleted
	o.updatedAt = now
	o.appendTracking(TrackingOrderCompleted, by, "order completed", now)
	o.raise(event.OrderCompleted{OrderID: o.id, CompletedAt: now})

	return nil
}

// Cancel cancels the order and every package that can still be cancelled.
func (o *Order) Cancel(reason string, by Executor, now time.Time) error {
	if reason == "" {
		return apperror.Validation("reason", "cancellation reason must not be empty")
	}
	if !o.status.IsCancellable() {
		return apperror.InvalidTransition("status",
			fmt.Sprintf("cannot cancel a %s order", o.status))
	}

	for _, p := range o.packages {
		if !p.Status().IsCancellable() {
			continue
		}
		if err := p.Cancel(reason, now); err != nil {
			return err
		}
	}

	o.status = StatusCancelled
	o.updatedAt = now
	o.appendTracking(TrackingOrderCancelled, by, reason, now)
	o.raise(event.OrderCancelled{OrderID: o.id, Reason: reason})

	return nil
}

// MarkAsExpired expires an order whose payment window has passed.
func (o *Order) MarkAsExpired(now time.Time) error {
	if o.status != StatusCreated {
		return apperror.InvalidTransition("status",
			fmt.Sprintf("cannot expire a %s order", o.status))
	}
	if now.Before(o.expiredAt) {
		return apperror.Validation("expiredAt", "payment window has not passed yet")
	}

	for _, p := range o.packages {
		if !p.Status().IsCancellable() {
			continue
		}
		if err := p.Cancel("order expired", now); err != nil {
			return err
		}
	}

	o.status = StatusExpired
	o.updatedAt = now
	o.appendTracking(TrackingOrderExpired, SystemExecutor, "payment window passed", now)
	o.raise(event.OrderExpired{OrderID: o.id, ExpiredAt: now})

	return nil
}

// ApplyCouponDiscount records a validated coupon discount on one package and
// recomputes the order total. The caller is responsible for validating the
// coupon and marking it used within the same transaction.
func (o *Order) ApplyCouponDiscount(packageID int64, d orderpackage.Discount, by Executor, now time.Time) error {
	p, err := o.Package(packageID)
	if err != nil {
		return err
	}
	if err := p.ApplyDiscount(d, now); err != nil {
		return err
	}
	if err := o.recalculateTotal(now); err != nil {
		return err
	}

	o.appendTracking(TrackingCouponApplied, by,
		fmt.Sprintf("coupon %s applied to package %d", d.Code, packageID), now)

	return nil
}

// RaiseCreated emits the order-created event once the persistence identity is
// known.
func (o *Order) RaiseCreated(now time.Time) {
	o.raise(event.OrderCreated{
		OrderID:         o.id,
		ShortID:         o.shortID,
		UserID:          o.userID,
		TotalPriceCents: o.totalAmount.AmountCents,
		Currency:        o.currency.String(),
		CreatedAt:       now,
	})
}
