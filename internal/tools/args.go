package tools

import (
	"fmt"
	"time"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/extract"
	"github.com/dvloznov/finance-assistant/internal/store"
)

// Argument access is deliberately strict: a present-but-wrong-typed value
// is a validation error, never silently ignored, so malformed calls fail
// before any store access.

func optionalString(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func requireString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing required argument %q: %w", key, domain.ErrValidation)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string: %w", key, domain.ErrValidation)
	}
	return s, nil
}

func optionalNumber(args map[string]any, key string) (float64, bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		return n, true, nil
	case int:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	default:
		return 0, false, fmt.Errorf("argument %q must be a number: %w", key, domain.ErrValidation)
	}
}

func requireNumber(args map[string]any, key string) (float64, error) {
	v, ok, err := optionalNumber(args, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("missing required argument %q: %w", key, domain.ErrValidation)
	}
	return v, nil
}

func optionalBool(args map[string]any, key string) (bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("argument %q must be a boolean: %w", key, domain.ErrValidation)
	}
	return b, nil
}

// parsePeriod validates a "YYYY-MM" period string.
func parsePeriod(raw string) (string, error) {
	if _, err := time.Parse("2006-01", raw); err != nil {
		return "", fmt.Errorf("period %q must be formatted YYYY-MM: %w", raw, domain.ErrValidation)
	}
	return raw, nil
}

func parseDate(raw string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be formatted YYYY-MM-DD: %w", raw, domain.ErrValidation)
	}
	return d, nil
}

// cloneWithout copies args minus one key, leaving the original intact.
func cloneWithout(args map[string]any, key string) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if k == key {
			continue
		}
		out[k] = v
	}
	return out
}

// recordFilter builds a store filter from the common optional narrowing
// arguments (category, period, start_date, end_date, min_amount,
// max_amount, limit).
func recordFilter(userID string, kind domain.RecordKind, args map[string]any) (store.Filter, error) {
	f := store.Filter{UserID: userID, Kind: kind}

	if raw, ok := optionalString(args, "category"); ok {
		name, valid := extract.ValidCategory(raw)
		if !valid {
			return f, fmt.Errorf("unknown category %q: %w", raw, domain.ErrValidation)
		}
		f.Category = name
	}
	if raw, ok := optionalString(args, "period"); ok {
		period, err := parsePeriod(raw)
		if err != nil {
			return f, err
		}
		f.Period = period
	}
	if raw, ok := optionalString(args, "start_date"); ok {
		d, err := parseDate(raw)
		if err != nil {
			return f, err
		}
		f.Start = d
	}
	if raw, ok := optionalString(args, "end_date"); ok {
		d, err := parseDate(raw)
		if err != nil {
			return f, err
		}
		f.End = d
	}
	if v, ok, err := optionalNumber(args, "min_amount"); err != nil {
		return f, err
	} else if ok {
		f.MinAmount = &v
	}
	if v, ok, err := optionalNumber(args, "max_amount"); err != nil {
		return f, err
	} else if ok {
		f.MaxAmount = &v
	}
	if v, ok, err := optionalNumber(args, "limit"); err != nil {
		return f, err
	} else if ok {
		if v < 1 {
			return f, fmt.Errorf("limit must be positive: %w", domain.ErrValidation)
		}
		f.Limit = int(v)
	}
	return f, nil
}
