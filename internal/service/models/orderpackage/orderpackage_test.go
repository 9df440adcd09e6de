package orderpackage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercatolabs/fulfillment/internal/service/models/apperror"
	"github.com/mercatolabs/fulfillment/internal/service/models/currency"
	"github.com/mercatolabs/fulfillment/internal/service/models/money"
	"github.com/mercatolabs/fulfillment/internal/service/models/orderitem"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func item(t *testing.T, priceCents int64, quantity int) orderitem.OrderItem {
	t.Helper()

	it, err := orderitem.New(100, 200, quantity, money.MustNew(priceCents, currency.CurrencyVND), false, orderitem.ProductSnapshot{}, testNow)
	require.NoError(t, err)

	return it
}

func pendingPackage(t *testing.T) *OrderPackage {
	t.Helper()

	p := New(7, 1, currency.CurrencyVND, testNow)
	require.NoError(t, p.AddItem(item(t, 1000, 1), testNow))

	return p
}

func TestTotalsWithDiscountAndBuyerPaidShipping(t *testing.T) {
	p := New(7, 1, currency.CurrencyVND, testNow)

	// Two items for 10.00 and 15.00, a 5.00 discount and 3.00 shipping paid
	// by the buyer.
	require.NoError(t, p.AddItem(item(t, 1000, 1), testNow))
	require.NoError(t, p.AddItem(item(t, 1500, 1), testNow))
	require.NoError(t, p.ApplyDiscount(Discount{CouponID: 1, Code: "SAVE5", Amount: money.MustNew(500, currency.CurrencyVND)}, testNow))
	require.NoError(t, p.SetShippingFee(money.MustNew(300, currency.CurrencyVND), false, testNow))

	assert.Equal(t, int64(2500), p.SubTotal().AmountCents)
	assert.Equal(t, int64(500), p.TotalDiscount().AmountCents)
	assert.Equal(t, int64(2300), p.TotalAmount().AmountCents)
}

func TestSellerPaidShippingExcludedFromTotal(t *testing.T) {
	p := pendingPackage(t)

	require.NoError(t, p.SetShippingFee(money.MustNew(300, currency.CurrencyVND), true, testNow))
	assert.Equal(t, int64(1000), p.TotalAmount().AmountCents)
}

func TestDiscountCappedAtSubTotal(t *testing.T) {
	p := pendingPackage(t)

	require.NoError(t, p.ApplyDiscount(Discount{Code: "BIG", Amount: money.MustNew(5000, currency.CurrencyVND)}, testNow))
	assert.Equal(t, int64(1000), p.TotalDiscount().AmountCents)
	assert.Equal(t, int64(0), p.TotalAmount().AmountCents)
}

func TestAddItemCurrencyMismatch(t *testing.T) {
	p := pendingPackage(t)

	it, err := orderitem.New(100, 200, 1, money.MustNew(100, currency.CurrencyUSD), false, orderitem.ProductSnapshot{}, testNow)
	require.NoError(t, err)

	assert.True(t, apperror.IsCode(p.AddItem(it, testNow), apperror.CodeCurrencyMismatch))
}

func TestMutationsOnlyWhilePending(t *testing.T) {
	p := pendingPackage(t)
	require.NoError(t, p.Confirm(testNow))

	assert.True(t, apperror.IsCode(p.AddItem(item(t, 100, 1), testNow), apperror.CodeInvalidTransition))
	assert.True(t, apperror.IsCode(p.ApplyDiscount(Discount{Amount: money.MustNew(1, currency.CurrencyVND)}, testNow), apperror.CodeInvalidTransition))
	assert.True(t, apperror.IsCode(p.SetShippingFee(money.MustNew(1, currency.CurrencyVND), false, testNow), apperror.CodeInvalidTransition))
}

func TestConfirmEmptyPackage(t *testing.T) {
	p := New(7, 1, currency.CurrencyVND, testNow)
	assert.True(t, apperror.IsCode(p.Confirm(testNow), apperror.CodeValidation))
}

func TestRejectRequiresReason(t *testing.T) {
	p := pendingPackage(t)

	assert.True(t, apperror.IsCode(p.Reject("", testNow), apperror.CodeValidation))
	require.NoError(t, p.Reject("out of stock", testNow))
	assert.Equal(t, StatusRejected, p.Status())
	assert.Equal(t, "out of stock", p.RejectionReason())
}

func TestHappyPathLifecycle(t *testing.T) {
	p := pendingPackage(t)

	require.NoError(t, p.Confirm(testNow))
	require.NoError(t, p.AssignShipping(42, testNow))
	assert.Equal(t, StatusReadyToShip, p.Status())
	require.NotNil(t, p.ShippingID())
	assert.Equal(t, int64(42), *p.ShippingID())

	require.NoError(t, p.Ship(testNow))
	require.NoError(t, p.MarkAsDelivered(testNow))
	require.NoError(t, p.Complete(testNow))
	assert.Equal(t, StatusCompleted, p.Status())
	assert.NotNil(t, p.CompletedAt())
}

func TestNoBackwardTransitions(t *testing.T) {
	p := pendingPackage(t)
	require.NoError(t, p.Confirm(testNow))
	require.NoError(t, p.AssignShipping(42, testNow))
	require.NoError(t, p.Ship(testNow))

	assert.True(t, apperror.IsCode(p.Confirm(testNow), apperror.CodeInvalidTransition))
	assert.True(t, apperror.IsCode(p.AssignShipping(43, testNow), apperror.CodeInvalidTransition))
	assert.True(t, apperror.IsCode(p.Reject("late", testNow), apperror.CodeInvalidTransition))
	assert.True(t, apperror.IsCode(p.Cancel("late", testNow), apperror.CodeInvalidTransition))
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	p := pendingPackage(t)
	require.NoError(t, p.Reject("out of stock", testNow))

	assert.True(t, apperror.IsCode(p.Confirm(testNow), apperror.CodeInvalidTransition))
	assert.True(t, apperror.IsCode(p.Ship(testNow), apperror.CodeInvalidTransition))
	assert.True(t, apperror.IsCode(p.Cancel("x", testNow), apperror.CodeInvalidTransition))
	assert.True(t, apperror.IsCode(p.RecordCheckout(Checkout{}, testNow), apperror.CodeInvalidTransition))
}

func TestCancelWhileCancellable(t *testing.T) {
	p := pendingPackage(t)
	require.NoError(t, p.Confirm(testNow))
	require.NoError(t, p.Cancel("buyer changed their mind", testNow))
	assert.Equal(t, StatusCancelled, p.Status())
	assert.NotNil(t, p.CancelledAt())
}

func TestRecordCheckout(t *testing.T) {
	p := pendingPackage(t)

	require.NoError(t, p.RecordCheckout(Checkout{
		PaymentMethod: "card",
		Amount:        money.MustNew(1000, currency.CurrencyVND),
		CreatedAt:     testNow,
	}, testNow))
	assert.Len(t, p.Checkouts(), 1)
}

func TestAccessorsReturnCopies(t *testing.T) {
	p := pendingPackage(t)

	items := p.Items()
	items[0].Quantity = 99
	assert.Equal(t, 1, p.Items()[0].Quantity)
}
