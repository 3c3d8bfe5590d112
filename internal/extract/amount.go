package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// extractedAmount carries the parsed amount plus the matched span so the
// description cleaner can strip it.
type extractedAmount struct {
	monetary         domain.MonetaryAmount
	explicitCurrency bool
}

// Bare numbers outside this window are treated as noise, not amounts.
const (
	minPlausibleAmount = 0.01
	maxPlausibleAmount = 999999
)

var (
	// Two-character minor symbols reserved for a specific code. Checked
	// before the general symbol pattern so "RM30" never parses as a bare
	// number with leftover text.
	minorSymbolRe = regexp.MustCompile(`(?i)\b(RM|S\$)\s?(\d+(?:[.,]\d{1,2})?)`)

	// General symbol- or code-prefixed amounts: $5, €4.50, GBP 12.
	symbolAmountRe = regexp.MustCompile(`(?i)([$€£¥]|USD|EUR|GBP|JPY|CNY|SGD|MYR)\s?(\d+(?:[.,]\d{1,2})?)`)

	// Amount followed by a currency name or word: "5 dollars", "30 ringgit".
	amountWordRe = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d{1,2})?)\s*(dollars?|bucks?|euros?|pounds?|quid|yen|yuan|ringgit|rm)\b`)

	// Bare number within the plausible magnitude window.
	bareNumberRe = regexp.MustCompile(`\b(\d+(?:[.,]\d{1,2})?)\b`)
)

var minorSymbolCurrency = map[string]domain.CurrencyCode{
	"RM": domain.MYR,
	"S$": domain.SGD,
}

var currencyWords = map[string]domain.CurrencyCode{
	"dollar": domain.USD, "dollars": domain.USD,
	"buck": domain.USD, "bucks": domain.USD,
	"euro": domain.EUR, "euros": domain.EUR,
	"pound": domain.GBP, "pounds": domain.GBP, "quid": domain.GBP,
	"yen": domain.JPY, "yuan": domain.CNY,
	"ringgit": domain.MYR, "rm": domain.MYR,
}

// extractAmount tries the amount patterns in strict priority order; the
// first match wins and later patterns are not tried. It returns the parsed
// amount (nil if none) and the matched text span for description cleaning.
func extractAmount(text string, defaultCurrency domain.CurrencyCode) (*extractedAmount, string) {
	if m := minorSymbolRe.FindStringSubmatch(text); m != nil {
		code := minorSymbolCurrency[strings.ToUpper(m[1])]
		if v, ok := parseAmountValue(m[2]); ok {
			return &extractedAmount{
				monetary:         domain.NewMonetaryAmount(v, code),
				explicitCurrency: true,
			}, m[0]
		}
	}

	if m := symbolAmountRe.FindStringSubmatch(text); m != nil {
		code := resolveSymbol(m[1], defaultCurrency)
		if v, ok := parseAmountValue(m[2]); ok {
			return &extractedAmount{
				monetary:         domain.NewMonetaryAmount(v, code),
				explicitCurrency: true,
			}, m[0]
		}
	}

	if m := amountWordRe.FindStringSubmatch(text); m != nil {
		code := currencyWords[strings.ToLower(m[2])]
		if v, ok := parseAmountValue(m[1]); ok {
			return &extractedAmount{
				monetary:         domain.NewMonetaryAmount(v, code),
				explicitCurrency: true,
			}, m[0]
		}
	}

	for _, m := range bareNumberRe.FindAllStringSubmatch(text, -1) {
		v, ok := parseAmountValue(m[1])
		if !ok || v < minPlausibleAmount || v > maxPlausibleAmount {
			continue
		}
		return &extractedAmount{
			monetary: domain.NewMonetaryAmount(v, defaultCurrency),
		}, m[0]
	}

	return nil, ""
}

// resolveSymbol maps a symbol or code prefix to a currency. A bare "$"
// means the caller's home currency, not USD.
func resolveSymbol(sym string, defaultCurrency domain.CurrencyCode) domain.CurrencyCode {
	switch sym {
	case "$":
		return defaultCurrency
	case "€":
		return domain.EUR
	case "£":
		return domain.GBP
	case "¥":
		return domain.JPY
	}
	if code, ok := domain.ParseCurrency(sym); ok {
		return code
	}
	return defaultCurrency
}

func parseAmountValue(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
