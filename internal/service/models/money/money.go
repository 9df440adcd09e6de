package money

import (
	"fmt"

	"github.com/mercatolabs/fulfillment/internal/service/models/apperror"
	"github.com/mercatolabs/fulfillment/internal/service/models/currency"
)

// Money is an exact, currency-tagged amount in the smallest currency unit.
// It is immutable: every operation returns a new value.
type Money struct {
	AmountCents int64             `json:"amountCents"`
	Currency    currency.Currency `json:"currency"`
}

// New creates a Money value. Negative amounts are rejected at construction.
func New(amountCents int64, cur currency.Currency) (Money, error) {
	if amountCents < 0 {
		return Money{}, apperror.Validation("amountCents", "amount must not be negative")
	}

	return Money{AmountCents: amountCents, Currency: cur}, nil
}

// MustNew creates a Money value and panics on a negative amount. Intended for
// constants and tests.
func MustNew(amountCents int64, cur currency.Currency) Money {
	m, err := New(amountCents, cur)
	if err != nil {
		panic(err)
	}

	return m
}

// Zero returns the zero amount in the given currency.
func Zero(cur currency.Currency) Money {
	return Money{AmountCents: 0, Currency: cur}
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.AmountCents, m.Currency)
}

// IsZero reports whether the amount is zero regardless of currency.
func (m Money) IsZero() bool {
	return m.AmountCents == 0
}

// sameCurrency checks the currency contract of binary operations. A
// currency-less zero (see Sum) acts as the identity and matches anything.
func (m Money) sameCurrency(other Money) error {
	if m.Currency == currency.CurrencyNone || other.Currency == currency.CurrencyNone {
		return nil
	}
	if m.Currency != other.Currency {
		return apperror.New(apperror.CodeCurrencyMismatch, "currency",
			fmt.Sprintf("cannot operate on %s and %s", m.Currency, other.Currency))
	}

	return nil
}

// resolveCurrency picks the concrete currency of a binary result.
func (m Money) resolveCurrency(other Money) currency.Currency {
	if m.Currency != currency.CurrencyNone {
		return m.Currency
	}

	return other.Currency
}

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}

	return Money{AmountCents: m.AmountCents + other.AmountCents, Currency: m.resolveCurrency(other)}, nil
}

// Subtract returns m - other. The result must not be negative.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	if m.AmountCents < other.AmountCents {
		return Money{}, apperror.Validation("amountCents", "subtraction result must not be negative")
	}

	return Money{AmountCents: m.AmountCents - other.AmountCents, Currency: m.resolveCurrency(other)}, nil
}

// Multiply returns m * factor.
func (m Money) Multiply(factor int64) (Money, error) {
	if factor < 0 {
		return Money{}, apperror.Validation("factor", "factor must not be negative")
	}

	return Money{AmountCents: m.AmountCents * factor, Currency: m.Currency}, nil
}

// Divide returns m / divisor, truncating toward zero.
func (m Money) Divide(divisor int64) (Money, error) {
	if divisor == 0 {
		return Money{}, apperror.New(apperror.CodeDivideByZero, "divisor", "division by zero")
	}
	if divisor < 0 {
		return Money{}, apperror.Validation("divisor", "divisor must not be negative")
	}

	return Money{AmountCents: m.AmountCents / divisor, Currency: m.Currency}, nil
}

// Equals reports whether amounts and currencies match.
func (m Money) Equals(other Money) bool {
	return m.AmountCents == other.AmountCents && m.Currency == other.Currency
}

// LessThan reports m < other.
func (m Money) LessThan(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}

	return m.AmountCents < other.AmountCents, nil
}

// GreaterThan reports m > other.
func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}

	return m.AmountCents > other.AmountCents, nil
}

// Sum adds up a list of amounts. Summing an empty list yields a currency-less
// zero: it compares equal to no concrete currency but acts as the identity for
// further additions. Callers that need a concrete currency must supply at
// least one element or start from Zero(cur).
func Sum(amounts []Money) (Money, error) {
	total := Money{AmountCents: 0, Currency: currency.CurrencyNone}
	for _, a := range amounts {
		var err error
		total, err = total.Add(a)
		if err != nil {
			return Money{}, err
		}
	}

	return total, nil
}

// ApplyPercentageDiscount reduces the amount by pct percent, truncating toward
// zero on the smallest-unit amount. The result never goes below zero.
func (m Money) ApplyPercentageDiscount(pct float64) (Money, error) {
	if pct < 0 || pct > 100 {
		return Money{}, apperror.Validation("percentage", "percentage must be between 0 and 100")
	}

	discount := int64(float64(m.AmountCents) * pct / 100)
	remaining := m.AmountCents - discount
	if remaining < 0 {
		remaining = 0
	}

	return Money{AmountCents: remaining, Currency: m.Currency}, nil
}

// ApplyServiceFee adds a fee of ratePercent percent, truncating toward zero.
func (m Money) ApplyServiceFee(ratePercent float64) (Money, error) {
	if ratePercent < 0 {
		return Money{}, apperror.Validation("ratePercent", "rate must not be negative")
	}

	fee := int64(float64(m.AmountCents) * ratePercent / 100)

	return Money{AmountCents: m.AmountCents + fee, Currency: m.Currency}, nil
}

// PercentOf returns pct percent of the amount, truncating toward zero.
func (m Money) PercentOf(pct float64) (Money, error) {
	if pct < 0 {
		return Money{}, apperror.Validation("percentage", "percentage must not be negative")
	}

	return Money{AmountCents: int64(float64(m.AmountCents) * pct / 100), Currency: m.Currency}, nil
}
