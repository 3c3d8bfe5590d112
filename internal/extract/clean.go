package extract

import (
	"regexp"
	"strings"
)

// Words stripped from descriptions: transaction-action verbs and the
// prepositions that typically surround amounts and dates.
var stopwords = map[string]bool{
	"spent": true, "paid": true, "bought": true, "buy": true, "purchased": true,
	"got": true, "grabbed": true, "ordered": true, "cost": true,
	"on": true, "at": true, "for": true, "in": true, "from": true, "to": true,
	"the": true, "a": true, "an": true, "of": true, "with": true,
}

// Leftover temporal fragments once the matched date span is removed
// ("last" from "last monday" when the weekday was consumed, etc.).
var temporalLeftoverRe = regexp.MustCompile(`(?i)\b(last|this|ago|days?|night)\b`)

var nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}' ]+`)

// cleanDescription strips the matched amount and date spans, temporal
// leftovers around a matched date, prepositions and action verbs, then Title Cases the
// remainder. If nothing survives, the original text capitalized is used
// instead so a record never ends up with an empty description.
func cleanDescription(text, amountSpan, dateSpan string) string {
	s := text
	if amountSpan != "" {
		s = strings.Replace(s, amountSpan, " ", 1)
	}
	if dateSpan != "" {
		s = strings.Replace(s, dateSpan, " ", 1)
		// Leftovers are only stripped around a consumed date span;
		// without one, these words are part of the description.
		s = temporalLeftoverRe.ReplaceAllString(s, " ")
	}
	s = nonWordRe.ReplaceAllString(s, " ")

	var kept []string
	for _, word := range strings.Fields(s) {
		if stopwords[strings.ToLower(word)] {
			continue
		}
		kept = append(kept, word)
	}

	if len(kept) == 0 {
		return capitalize(strings.TrimSpace(text))
	}
	return titleCase(strings.Join(kept, " "))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = capitalize(strings.ToLower(w))
	}
	return strings.Join(words, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
