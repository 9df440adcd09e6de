package orderitem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercatolabs/fulfillment/internal/service/models/apperror"
	"github.com/mercatolabs/fulfillment/internal/service/models/currency"
	"github.com/mercatolabs/fulfillment/internal/service/models/money"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	item, err := New(100, 200, 3, money.MustNew(250, currency.CurrencyVND), false, ProductSnapshot{
		Title:    "Ceramic mug",
		ImageURL: "https://img.example.com/mug.png",
		SkuName:  "White / 350ml",
	}, testNow)
	require.NoError(t, err)

	assert.Equal(t, int64(100), item.ProductID)
	assert.Equal(t, int64(200), item.SkuID)
	assert.Equal(t, 3, item.Quantity)
	assert.Equal(t, "Ceramic mug", item.ProductSnapshot.Title)
	assert.Equal(t, testNow, item.CreatedAt)
}

func TestNewRejectsNonPositiveQuantity(t *testing.T) {
	for _, quantity := range []int{0, -1} {
		_, err := New(100, 200, quantity, money.MustNew(250, currency.CurrencyVND), false, ProductSnapshot{}, testNow)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	}
}

func TestLineTotal(t *testing.T) {
	item, err := New(100, 200, 4, money.MustNew(250, currency.CurrencyVND), false, ProductSnapshot{}, testNow)
	require.NoError(t, err)

	total := item.LineTotal()
	assert.True(t, total.Equals(money.MustNew(1000, currency.CurrencyVND)))
}
