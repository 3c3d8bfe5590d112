// Package currency implements the fixed-rate conversion layer every
// monetary aggregate passes through exactly once before figures in
// different currencies are combined.
package currency

import (
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// rates holds units of each currency per one US dollar. Conversion is
// two-hop: source → USD → target.
var rates = map[domain.CurrencyCode]decimal.Decimal{
	domain.USD: decimal.NewFromFloat(1.0),
	domain.EUR: decimal.NewFromFloat(0.92),
	domain.GBP: decimal.NewFromFloat(0.79),
	domain.JPY: decimal.NewFromFloat(149.50),
	domain.CNY: decimal.NewFromFloat(7.24),
	domain.SGD: decimal.NewFromFloat(1.34),
	domain.MYR: decimal.NewFromFloat(4.47),
}

// rateFor returns the per-USD rate for a code. An unknown code is treated
// as rate 1.0 (identity with the base). This permissive default is
// deliberate: an unrecognized code converts as if it were the base unit
// rather than failing the whole aggregate.
func rateFor(code domain.CurrencyCode) decimal.Decimal {
	if r, ok := rates[code]; ok {
		return r
	}
	return decimal.NewFromInt(1)
}

// Convert converts value from one currency to another. Convert(x, C, C)
// returns x unchanged for every C.
func Convert(value decimal.Decimal, from, to domain.CurrencyCode) decimal.Decimal {
	if from == to {
		return value
	}
	inBase := value.Div(rateFor(from))
	return inBase.Mul(rateFor(to))
}

// ConvertAmount converts a MonetaryAmount into the target currency.
func ConvertAmount(a domain.MonetaryAmount, to domain.CurrencyCode) domain.MonetaryAmount {
	return domain.MonetaryAmount{
		Value:    Convert(a.Value, a.Currency, to),
		Currency: to,
	}
}
