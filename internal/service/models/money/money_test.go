package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercatolabs/fulfillment/internal/service/models/apperror"
	"github.com/mercatolabs/fulfillment/internal/service/models/currency"
)

func TestNew(t *testing.T) {
	m, err := New(1500, currency.CurrencyVND)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), m.AmountCents)
	assert.Equal(t, currency.CurrencyVND, m.Currency)

	_, err = New(-1, currency.CurrencyVND)
	assert.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestAddSubtractRoundTrip(t *testing.T) {
	a := MustNew(1000, currency.CurrencyVND)
	b := MustNew(250, currency.CurrencyVND)

	sum, err := a.Add(b)
	require.NoError(t, err)

	back, err := sum.Subtract(b)
	require.NoError(t, err)
	assert.True(t, back.Equals(a))
}

func TestAddCurrencyMismatch(t *testing.T) {
	a := MustNew(1000, currency.CurrencyVND)
	b := MustNew(1000, currency.CurrencyUSD)

	_, err := a.Add(b)
	assert.True(t, apperror.IsCode(err, apperror.CodeCurrencyMismatch))
}

func TestSubtractNegativeResult(t *testing.T) {
	a := MustNew(100, currency.CurrencyVND)
	b := MustNew(200, currency.CurrencyVND)

	_, err := a.Subtract(b)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestMultiply(t *testing.T) {
	m := MustNew(300, currency.CurrencyVND)

	res, err := m.Multiply(3)
	require.NoError(t, err)
	assert.Equal(t, int64(900), res.AmountCents)

	_, err = m.Multiply(-1)
	assert.Error(t, err)
}

func TestDivide(t *testing.T) {
	m := MustNew(1001, currency.CurrencyVND)

	res, err := m.Divide(3)
	require.NoError(t, err)
	assert.Equal(t, int64(333), res.AmountCents, "division truncates toward zero")

	_, err = m.Divide(0)
	assert.True(t, apperror.IsCode(err, apperror.CodeDivideByZero))
}

func TestSumEmptyActsAsIdentity(t *testing.T) {
	zero, err := Sum(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), zero.AmountCents)
	assert.Equal(t, currency.CurrencyNone, zero.Currency)

	total, err := zero.Add(MustNew(500, currency.CurrencyVND))
	require.NoError(t, err)
	assert.True(t, total.Equals(MustNew(500, currency.CurrencyVND)))
}

func TestSum(t *testing.T) {
	total, err := Sum([]Money{
		MustNew(100, currency.CurrencyVND),
		MustNew(200, currency.CurrencyVND),
		MustNew(300, currency.CurrencyVND),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(600), total.AmountCents)
	assert.Equal(t, currency.CurrencyVND, total.Currency)

	_, err = Sum([]Money{
		MustNew(100, currency.CurrencyVND),
		MustNew(200, currency.CurrencyUSD),
	})
	assert.Error(t, err)
}

func TestApplyPercentageDiscount(t *testing.T) {
	m := MustNew(999, currency.CurrencyVND)

	res, err := m.ApplyPercentageDiscount(10)
	require.NoError(t, err)
	// 99.9 truncates to 99, leaving 900.
	assert.Equal(t, int64(900), res.AmountCents)

	full, err := m.ApplyPercentageDiscount(100)
	require.NoError(t, err)
	assert.Equal(t, int64(0), full.AmountCents)

	_, err = m.ApplyPercentageDiscount(101)
	assert.Error(t, err)
}

func TestApplyServiceFee(t *testing.T) {
	m := MustNew(1000, currency.CurrencyVND)

	res, err := m.ApplyServiceFee(9.9)
	require.NoError(t, err)
	assert.Equal(t, int64(1099), res.AmountCents)

	_, err = m.ApplyServiceFee(-1)
	assert.Error(t, err)
}

func TestPercentOf(t *testing.T) {
	m := MustNew(2500, currency.CurrencyVND)

	res, err := m.PercentOf(9.9)
	require.NoError(t, err)
	assert.Equal(t, int64(247), res.AmountCents, "247.5 truncates to 247")
}

func TestComparisons(t *testing.T) {
	a := MustNew(100, currency.CurrencyVND)
	b := MustNew(200, currency.CurrencyVND)

	less, err := a.LessThan(b)
	require.NoError(t, err)
	assert.True(t, less)

	greater, err := b.GreaterThan(a)
	require.NoError(t, err)
	assert.True(t, greater)

	_, err = a.LessThan(MustNew(100, currency.CurrencyUSD))
	assert.Error(t, err)
}
