package currency

import (
	"database/sql/driver"
	"errors"
)

type Currency string

const (
	// CurrencyVND is the reference currency of the marketplace.
	CurrencyVND Currency = "VND"
	CurrencyUSD Currency = "USD"

	// CurrencyNone marks a currency-less zero, produced only by summing an
	// empty list of amounts.
	CurrencyNone Currency = ""
)

var ErrInvalidCurrency = errors.New("invalid currency")

func (c Currency) String() string {
	return string(c)
}

func (c Currency) Value() (driver.Value, error) {
	return c.String(), nil
}

func ParseCurrency(s string) (Currency, error) {
	switch s {
	case CurrencyVND.String():
		return CurrencyVND, nil
	case CurrencyUSD.String():
		return CurrencyUSD, nil
	default:
		return "", ErrInvalidCurrency
	}
}
