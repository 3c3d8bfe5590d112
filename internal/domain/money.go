package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyCode is an ISO-4217 style currency code from the fixed set the
// tracker supports.
type CurrencyCode string

const (
	USD CurrencyCode = "USD"
	EUR CurrencyCode = "EUR"
	GBP CurrencyCode = "GBP"
	JPY CurrencyCode = "JPY"
	CNY CurrencyCode = "CNY"
	SGD CurrencyCode = "SGD"
	MYR CurrencyCode = "MYR"
)

// SupportedCurrencies lists every currency the system accepts, in
// declaration order.
var SupportedCurrencies = []CurrencyCode{USD, EUR, GBP, JPY, CNY, SGD, MYR}

// ParseCurrency normalizes a raw code and reports whether it is one of the
// supported currencies.
func ParseCurrency(raw string) (CurrencyCode, bool) {
	code := CurrencyCode(strings.ToUpper(strings.TrimSpace(raw)))
	for _, c := range SupportedCurrencies {
		if c == code {
			return c, true
		}
	}
	return "", false
}

// MonetaryAmount is a non-negative value in a specific currency.
type MonetaryAmount struct {
	Value    decimal.Decimal `json:"value"`
	Currency CurrencyCode    `json:"currency"`
}

// NewMonetaryAmount builds a MonetaryAmount from a float. Values produced
// by extraction or the model are always non-negative by contract.
func NewMonetaryAmount(value float64, currency CurrencyCode) MonetaryAmount {
	return MonetaryAmount{Value: decimal.NewFromFloat(value), Currency: currency}
}
