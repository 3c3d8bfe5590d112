package delegate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// objectRe matches a flat JSON object with no nested braces, which is the
// shape of every item the parsing prompts request.
var objectRe = regexp.MustCompile(`\{[^{}]*\}`)

// cleanModelJSON strips Markdown fences and surrounding junk the model
// sometimes wraps around its JSON, keeping only the outermost array.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only from the first '[' to the last ']' if junk surrounds the array.
	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

// parseObjectArray parses a model response expected to contain a JSON
// array of objects, repairing truncated output where possible:
//
//  1. strict parse of the cleaned text;
//  2. on failure, truncate at the last fully-closed object (the last
//     "}," boundary), close the array and re-parse;
//  3. on failure, regex-extract every object that carries all required
//     fields and reassemble them into a fresh array;
//  4. if nothing is salvageable, the original parse failure propagates as
//     ErrMalformedOutput, never an empty result for non-empty input.
func parseObjectArray(raw string, required []string) ([]map[string]any, error) {
	s := cleanModelJSON(raw)
	if s == "" {
		return nil, fmt.Errorf("parseObjectArray: empty model output: %w", domain.ErrMalformedOutput)
	}

	var items []map[string]any
	strictErr := json.Unmarshal([]byte(s), &items)
	if strictErr == nil {
		return items, nil
	}

	// Truncated mid-object: keep everything up to the last closed object.
	if idx := strings.LastIndex(s, "},"); idx != -1 {
		repaired := s[:idx+1] + "]"
		if !strings.HasPrefix(repaired, "[") {
			repaired = "[" + repaired
		}
		items = nil
		if err := json.Unmarshal([]byte(repaired), &items); err == nil {
			return items, nil
		}
	}

	// Last resort: harvest every complete object with the required fields.
	var salvaged []string
	for _, candidate := range objectRe.FindAllString(s, -1) {
		var obj map[string]any
		if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
			continue
		}
		if hasFields(obj, required) {
			salvaged = append(salvaged, candidate)
		}
	}
	if len(salvaged) > 0 {
		reassembled := "[" + strings.Join(salvaged, ",") + "]"
		items = nil
		if err := json.Unmarshal([]byte(reassembled), &items); err == nil {
			return items, nil
		}
	}

	return nil, fmt.Errorf("parseObjectArray: %v: %w", strictErr, domain.ErrMalformedOutput)
}

func hasFields(obj map[string]any, required []string) bool {
	for _, f := range required {
		if _, ok := obj[f]; !ok {
			return false
		}
	}
	return true
}

// Loose-payload field getters in the style of the statement transform
// code: the remote service is probabilistic, so no field's presence or
// type is ever assumed.

func getStringField(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func getFloat64Field(m map[string]any, key string) (float64, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
