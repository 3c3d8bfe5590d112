package currency

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

func TestConvert_Identity(t *testing.T) {
	values := []float64{0, 0.01, 1, 42.42, 999999}

	for _, c := range domain.SupportedCurrencies {
		for _, v := range values {
			x := decimal.NewFromFloat(v)
			got := Convert(x, c, c)
			if !got.Equal(x) {
				t.Errorf("Convert(%v, %s, %s) = %v, want %v", x, c, c, got, x)
			}
		}
	}
}

func TestConvert_RoundTrip(t *testing.T) {
	tolerance := decimal.NewFromFloat(0.0001)
	x := decimal.NewFromFloat(123.45)

	for _, from := range domain.SupportedCurrencies {
		for _, to := range domain.SupportedCurrencies {
			back := Convert(Convert(x, from, to), to, from)
			if back.Sub(x).Abs().GreaterThan(tolerance) {
				t.Errorf("round trip %s->%s->%s: got %v, want %v", from, to, from, back, x)
			}
		}
	}
}

func TestConvert_TwoHopThroughBase(t *testing.T) {
	// 92 EUR is 100 USD at the fixed table, which is 134 SGD.
	got := Convert(decimal.NewFromInt(92), domain.EUR, domain.SGD)
	want := decimal.NewFromInt(134)
	if got.Sub(want).Abs().GreaterThan(decimal.NewFromFloat(0.0001)) {
		t.Errorf("Convert(92, EUR, SGD) = %v, want %v", got, want)
	}
}

func TestConvert_UnknownCodeIsIdentityWithBase(t *testing.T) {
	// Unknown codes carry rate 1.0 by design, so converting an unknown
	// currency to USD returns the value unchanged.
	x := decimal.NewFromFloat(55.5)
	got := Convert(x, domain.CurrencyCode("XXX"), domain.USD)
	if !got.Equal(x) {
		t.Errorf("Convert(55.5, XXX, USD) = %v, want %v", got, x)
	}
}

func TestConvertAmount(t *testing.T) {
	a := domain.NewMonetaryAmount(100, domain.USD)
	got := ConvertAmount(a, domain.MYR)
	if got.Currency != domain.MYR {
		t.Fatalf("currency = %s, want MYR", got.Currency)
	}
	want := decimal.NewFromFloat(447)
	if got.Value.Sub(want).Abs().GreaterThan(decimal.NewFromFloat(0.0001)) {
		t.Errorf("value = %v, want %v", got.Value, want)
	}
}
