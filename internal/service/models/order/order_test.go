package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercatolabs/fulfillment/internal/service/models/apperror"
	"github.com/mercatolabs/fulfillment/internal/service/models/currency"
	"github.com/mercatolabs/fulfillment/internal/service/models/event"
	"github.com/mercatolabs/fulfillment/internal/service/models/money"
	"github.com/mercatolabs/fulfillment/internal/service/models/orderitem"
	"github.com/mercatolabs/fulfillment/internal/service/models/orderpackage"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

var buyer = Executor{Type: ExecutorBuyer, ID: 1}
var seller = Executor{Type: ExecutorSeller, ID: 7}

func newPackage(t *testing.T, id int64, priceCents int64) *orderpackage.OrderPackage {
	t.Helper()

	p := orderpackage.New(7, 1, currency.CurrencyVND, testNow)
	p.SetID(id)

	item, err := orderitem.New(100, 200, 1, money.MustNew(priceCents, currency.CurrencyVND), false, orderitem.ProductSnapshot{}, testNow)
	require.NoError(t, err)
	require.NoError(t, p.AddItem(item, testNow))

	return p
}

func newOrder(t *testing.T, packagePrices ...int64) *Order {
	t.Helper()

	o, err := New(1, "12 Hang Bai, Hanoi", currency.CurrencyVND, 48*time.Hour, testNow)
	require.NoError(t, err)

	for i, price := range packagePrices {
		require.NoError(t, o.AddPackage(newPackage(t, int64(i+1), price), testNow))
	}

	return o
}

func TestNew(t *testing.T) {
	o := newOrder(t)

	assert.Equal(t, StatusCreated, o.Status())
	assert.Len(t, o.ShortID(), 10)
	assert.Equal(t, testNow.Add(48*time.Hour), o.ExpiredAt())
	require.Len(t, o.Trackings(), 1)
	assert.Equal(t, TrackingOrderCreated, o.Trackings()[0].Type)
}

func TestNewValidation(t *testing.T) {
	_, err := New(1, "", currency.CurrencyVND, time.Hour, testNow)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = New(1, "12 Hang Bai, Hanoi", currency.CurrencyVND, 0, testNow)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestAddPackageRecalculatesTotal(t *testing.T) {
	o := newOrder(t, 1000, 1500)
	assert.Equal(t, int64(2500), o.TotalAmount().AmountCents)
}

func TestAddPackageCurrencyMismatch(t *testing.T) {
	o := newOrder(t)

	p := orderpackage.New(7, 1, currency.CurrencyUSD, testNow)
	assert.True(t, apperror.IsCode(o.AddPackage(p, testNow), apperror.CodeCurrencyMismatch))
}

func TestAddPackageOnlyWhileCreated(t *testing.T) {
	o := newOrder(t, 1000)
	require.NoError(t, o.MarkAsPaid(buyer, testNow))

	err := o.AddPackage(newPackage(t, 2, 500), testNow)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))
}

func TestMarkAsPaid(t *testing.T) {
	o := newOrder(t, 1000)

	require.NoError(t, o.MarkAsPaid(buyer, testNow))
	assert.Equal(t, StatusPaid, o.Status())
	require.NotNil(t, o.PaidAt())

	events := o.Events()
	require.Len(t, events, 1)
	assert.Equal(t, event.TypeOrderPaid, events[0].EventType())

	assert.True(t, apperror.IsCode(o.MarkAsPaid(buyer, testNow), apperror.CodeInvalidTransition))
}

func TestMarkAsCODWithinCeiling(t *testing.T) {
	ceiling := money.MustNew(2_000_000, currency.CurrencyVND)

	o := newOrder(t, 1_999_999)
	require.NoError(t, o.MarkAsCOD(ceiling, buyer, testNow))
	assert.Equal(t, StatusCOD, o.Status())
}

func TestMarkAsCODExceedsCeiling(t *testing.T) {
	ceiling := money.MustNew(2_000_000, currency.CurrencyVND)

	o := newOrder(t, 2_100_000)
	err := o.MarkAsCOD(ceiling, buyer, testNow)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	assert.Equal(t, StatusCreated, o.Status())
}

func TestAutoConfirmWhenAllPackagesDecided(t *testing.T) {
	o := newOrder(t, 1000, 1500)
	require.NoError(t, o.MarkAsPaid(buyer, testNow))

	require.NoError(t, o.ConfirmPackage(1, seller, testNow))
	assert.Equal(t, StatusPaid, o.Status(), "one package still pending")

	require.NoError(t, o.RejectPackage(2, "out of stock", seller, testNow))
	assert.Equal(t, StatusConfirmed, o.Status(), "all packages decided with one confirmed")
}

func TestNoAutoConfirmBeforePayment(t *testing.T) {
	o := newOrder(t, 1000)

	require.NoError(t, o.ConfirmPackage(1, seller, testNow))
	assert.Equal(t, StatusCreated, o.Status())
}

func TestRejectPackageRemovesFromTotal(t *testing.T) {
	o := newOrder(t, 1000, 1500)

	require.NoError(t, o.RejectPackage(2, "out of stock", seller, testNow))
	assert.Equal(t, int64(1000), o.TotalAmount().AmountCents)
}

func TestAllPackagesRejectedCancelsOrder(t *testing.T) {
	o := newOrder(t, 1000, 1500)
	require.NoError(t, o.MarkAsPaid(buyer, testNow))

	require.NoError(t, o.RejectPackage(1, "out of stock", seller, testNow))
	require.NoError(t, o.RejectPackage(2, "out of stock", seller, testNow))

	assert.Equal(t, StatusCancelled, o.Status())
	assert.Equal(t, int64(0), o.TotalAmount().AmountCents)
}

func TestDeliveryFlowAndAutoDeliver(t *testing.T) {
	o := newOrder(t, 1000, 1500)
	require.NoError(t, o.MarkAsPaid(buyer, testNow))
	require.NoError(t, o.ConfirmPackage(1, seller, testNow))
	require.NoError(t, o.ConfirmPackage(2, seller, testNow))
	require.Equal(t, StatusConfirmed, o.Status())

	for _, id := range []int64{1, 2} {
		require.NoError(t, o.AssignShipping(id, 40+id, seller, testNow))
		require.NoError(t, o.ShipPackage(id, seller, testNow))
	}

	require.NoError(t, o.MarkPackageAsDelivered(1, SystemExecutor, testNow))
	assert.Equal(t, StatusConfirmed, o.Status(), "second package still in transit")

	require.NoError(t, o.MarkPackageAsDelivered(2, SystemExecutor, testNow))
	assert.Equal(t, StatusDelivered, o.Status())
}

func TestShippingRequiresConfirmedOrder(t *testing.T) {
	o := newOrder(t, 1000)

	// The only package is confirmed, but the order is still unpaid.
	require.NoError(t, o.ConfirmPackage(1, seller, testNow))
	require.Equal(t, StatusCreated, o.Status())

	err := o.AssignShipping(1, 41, seller, testNow)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))
	err = o.ShipPackage(1, seller, testNow)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))

	// Payment lands, the pending auto-confirm fires and shipping opens up.
	require.NoError(t, o.MarkAsPaid(buyer, testNow))
	assert.Equal(t, StatusConfirmed, o.Status())
	require.NoError(t, o.AssignShipping(1, 41, seller, testNow))
}

func TestComplete(t *testing.T) {
	o := newOrder(t, 1000)
	require.NoError(t, o.MarkAsPaid(buyer, testNow))
	require.NoError(t, o.ConfirmPackage(1, seller, testNow))
	require.NoError(t, o.AssignShipping(1, 41, seller, testNow))
	require.NoError(t, o.ShipPackage(1, seller, testNow))
	require.NoError(t, o.MarkPackageAsDelivered(1, SystemExecutor, testNow))

	require.NoError(t, o.Complete(buyer, testNow))
	assert.Equal(t, StatusCompleted, o.Status())
	assert.Equal(t, orderpackage.StatusCompleted, o.Packages()[0].Status())

	o2 := newOrder(t, 1000)
	assert.True(t, apperror.IsCode(o2.Complete(buyer, testNow), apperror.CodeInvalidTransition))
}

func TestCancelCascadesToPackages(t *testing.T) {
	o := newOrder(t, 1000, 1500)
	require.NoError(t, o.MarkAsPaid(buyer, testNow))
	require.NoError(t, o.ConfirmPackage(1, seller, testNow))

	require.NoError(t, o.Cancel("changed my mind", buyer, testNow))
	assert.Equal(t, StatusCancelled, o.Status())
	for _, p := range o.Packages() {
		assert.Equal(t, orderpackage.StatusCancelled, p.Status())
	}

	assert.True(t, apperror.IsCode(o.Cancel("again", buyer, testNow), apperror.CodeInvalidTransition))
}

func TestCancelRequiresReason(t *testing.T) {
	o := newOrder(t, 1000)
	assert.True(t, apperror.IsCode(o.Cancel("", buyer, testNow), apperror.CodeValidation))
}

func TestMarkAsExpired(t *testing.T) {
	o := newOrder(t, 1000)

	err := o.MarkAsExpired(testNow.Add(time.Hour))
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation), "window not passed yet")

	require.NoError(t, o.MarkAsExpired(testNow.Add(49*time.Hour)))
	assert.Equal(t, StatusExpired, o.Status())
	assert.Equal(t, orderpackage.StatusCancelled, o.Packages()[0].Status())

	o2 := newOrder(t, 1000)
	require.NoError(t, o2.MarkAsPaid(buyer, testNow))
	err = o2.MarkAsExpired(testNow.Add(49 * time.Hour))
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition), "paid orders never expire")
}

func TestApplyCouponDiscount(t *testing.T) {
	o := newOrder(t, 2500)

	err := o.ApplyCouponDiscount(1, orderpackage.Discount{
		CouponID: 9,
		Code:     "SAVE5",
		Amount:   money.MustNew(500, currency.CurrencyVND),
	}, buyer, testNow)
	require.NoError(t, err)

	assert.Equal(t, int64(2000), o.TotalAmount().AmountCents)
	assert.Equal(t, int64(500), o.Packages()[0].TotalDiscount().AmountCents)
}

func TestPackageNotFound(t *testing.T) {
	o := newOrder(t, 1000)
	assert.True(t, apperror.IsCode(o.ConfirmPackage(99, seller, testNow), apperror.CodeNotFound))
}

func TestEveryTransitionAppendsOneTracking(t *testing.T) {
	o := newOrder(t, 1000)
	require.Len(t, o.Trackings(), 1)

	require.NoError(t, o.MarkAsPaid(buyer, testNow))
	require.Len(t, o.Trackings(), 2)

	// Confirming the only package also auto-confirms the order: one entry
	// for the package, one for the automatic order transition.
	require.NoError(t, o.ConfirmPackage(1, seller, testNow))
	trackings := o.Trackings()
	require.Len(t, trackings, 4)
	assert.Equal(t, TrackingPackageConfirmed, trackings[2].Type)
	assert.Equal(t, TrackingOrderConfirmed, trackings[3].Type)
	assert.Equal(t, ExecutorSystem, trackings[3].ExecutorType)
}

func TestRaiseCreatedCarriesIdentity(t *testing.T) {
	o := newOrder(t, 1000)
	o.SetID(42)
	o.RaiseCreated(testNow)

	events := o.Events()
	require.Len(t, events, 1)
	created, ok := events[0].(event.OrderCreated)
	require.True(t, ok)
	assert.Equal(t, int64(42), created.OrderID)

	o.ClearEvents()
	assert.Empty(t, o.Events())
}
