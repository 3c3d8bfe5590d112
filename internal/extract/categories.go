package extract

import (
	"regexp"
	"strings"
)

// DefaultCategory is the documented default an invalid or unmatched
// category coerces to.
const DefaultCategory = "Other"

// categoryDef binds a category name to its keyword list. The slice order
// is the tie-break: when two categories score equally, the one declared
// first wins. Iteration order is therefore explicit and deterministic.
type categoryDef struct {
	name     string
	keywords []string
}

var categoryTable = []categoryDef{
	{"Food & Dining", []string{"coffee", "lunch", "dinner", "breakfast", "restaurant", "cafe", "meal", "pizza", "burger", "snack", "drinks", "bar"}},
	{"Groceries", []string{"grocery", "groceries", "supermarket", "market", "vegetables", "fruit", "milk", "bread"}},
	{"Transport", []string{"taxi", "uber", "grab", "bus", "train", "mrt", "fuel", "petrol", "parking", "fare", "toll"}},
	{"Shopping", []string{"clothes", "shoes", "mall", "amazon", "shopping", "gift", "electronics"}},
	{"Entertainment", []string{"movie", "cinema", "netflix", "spotify", "game", "concert", "tickets"}},
	{"Bills & Utilities", []string{"electricity", "water", "internet", "phone", "bill", "rent", "utilities", "insurance"}},
	{"Health", []string{"doctor", "pharmacy", "medicine", "clinic", "hospital", "dentist", "gym"}},
	{"Travel", []string{"flight", "hotel", "airbnb", "trip", "vacation", "visa"}},
	{"Education", []string{"book", "books", "course", "tuition", "school", "exam"}},
}

const (
	wholeWordScore = 2
	substringScore = 1
)

// AllowedCategories returns every category name in declaration order,
// including the default. Used to constrain delegate output.
func AllowedCategories() []string {
	names := make([]string, 0, len(categoryTable)+1)
	for _, def := range categoryTable {
		names = append(names, def.name)
	}
	return append(names, DefaultCategory)
}

// ValidCategory reports whether name is in the allowed set, ignoring case
// and surrounding whitespace.
func ValidCategory(name string) (string, bool) {
	norm := strings.ToLower(strings.TrimSpace(name))
	for _, allowed := range AllowedCategories() {
		if strings.ToLower(allowed) == norm {
			return allowed, true
		}
	}
	return "", false
}

// inferCategory keyword-scores the text against the category table. An
// exact whole-word match outscores a substring match; the highest
// cumulative score wins and ties resolve to the earliest declared
// category. Returns "" when nothing matched.
func inferCategory(text string) string {
	lower := strings.ToLower(text)

	best := ""
	bestScore := 0
	for _, def := range categoryTable {
		score := 0
		for _, kw := range def.keywords {
			if wholeWordRe(kw).MatchString(lower) {
				score += wholeWordScore
			} else if strings.Contains(lower, kw) {
				score += substringScore
			}
		}
		if score > bestScore {
			best = def.name
			bestScore = score
		}
	}
	return best
}

func wholeWordRe(kw string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
}

// Income sources form a second fixed set, used by income classification.
var incomeSources = []categoryDef{
	{"Salary", []string{"salary", "payroll", "wage", "wages", "paycheck"}},
	{"Freelance", []string{"freelance", "contract", "gig", "client", "invoice"}},
	{"Investment", []string{"dividend", "interest", "stocks", "investment", "capital"}},
	{"Business", []string{"business", "sales", "revenue", "shop"}},
	{"Gift", []string{"gift", "angpao", "bonus", "present"}},
}

// DefaultIncomeSource is the coercion target for unrecognized sources.
const DefaultIncomeSource = "Other Income"

// AllowedIncomeSources returns the fixed income source set in declaration
// order, including the default.
func AllowedIncomeSources() []string {
	names := make([]string, 0, len(incomeSources)+1)
	for _, def := range incomeSources {
		names = append(names, def.name)
	}
	return append(names, DefaultIncomeSource)
}

// InferIncomeSource keyword-scores text against the income source table,
// with the same scoring and tie-break rules as inferCategory. Returns the
// default source when nothing matched.
func InferIncomeSource(text string) string {
	lower := strings.ToLower(text)

	best := DefaultIncomeSource
	bestScore := 0
	for _, def := range incomeSources {
		score := 0
		for _, kw := range def.keywords {
			if wholeWordRe(kw).MatchString(lower) {
				score += wholeWordScore
			} else if strings.Contains(lower, kw) {
				score += substringScore
			}
		}
		if score > bestScore {
			best = def.name
			bestScore = score
		}
	}
	return best
}
