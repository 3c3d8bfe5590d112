package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	daysAgoRe  = regexp.MustCompile(`(?i)\b(\d+)\s+days?\s+ago\b`)
	weekdayRe  = regexp.MustCompile(`(?i)\b(last\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	numericDRe = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2}|\d{4}))?\b`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// extractDate recognizes relative and numeric date phrases. It returns the
// resolved date and the matched span, or (nil, "") when no phrase matched.
// An invalid day/month combination is rejected, falling through to no date.
func extractDate(text string, today time.Time) (*time.Time, string) {
	lower := strings.ToLower(text)

	if idx := strings.Index(lower, "yesterday"); idx >= 0 {
		d := today.AddDate(0, 0, -1)
		return &d, text[idx : idx+len("yesterday")]
	}
	if idx := strings.Index(lower, "last night"); idx >= 0 {
		d := today.AddDate(0, 0, -1)
		return &d, text[idx : idx+len("last night")]
	}
	if idx := strings.Index(lower, "today"); idx >= 0 {
		d := today
		return &d, text[idx : idx+len("today")]
	}

	if m := daysAgoRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			d := today.AddDate(0, 0, -n)
			return &d, m[0]
		}
	}

	if m := weekdayRe.FindStringSubmatch(text); m != nil {
		target := weekdays[strings.ToLower(m[2])]
		// Nearest past occurrence; a weekday naming today means a week ago.
		delta := int(today.Weekday()-target+7) % 7
		if delta == 0 {
			delta = 7
		}
		if m[1] != "" {
			// "last monday" is the occurrence one week earlier still.
			delta += 7
		}
		d := today.AddDate(0, 0, -delta)
		return &d, m[0]
	}

	if m := numericDRe.FindStringSubmatch(text); m != nil {
		if d, ok := parseDayMonth(m[1], m[2], m[3], today); ok {
			return &d, m[0]
		}
	}

	return nil, ""
}

// parseDayMonth parses a day/month pair with an optional 2- or 4-digit
// year. Two-digit years are normalized into the 2000s. Combinations the
// calendar rejects (day 31 in a 30-day month, Feb 30) return ok=false.
func parseDayMonth(dayStr, monthStr, yearStr string, today time.Time) (time.Time, bool) {
	day, _ := strconv.Atoi(dayStr)
	month, _ := strconv.Atoi(monthStr)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	year := today.Year()
	if yearStr != "" {
		y, _ := strconv.Atoi(yearStr)
		if y < 100 {
			y += 2000
		}
		year = y
	}

	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, today.Location())
	// time.Date normalizes overflow (Apr 31 -> May 1); reject those.
	if d.Day() != day || d.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return d, true
}
