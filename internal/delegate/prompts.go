package delegate

import (
	"strings"
	"time"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/extract"
)

// itemFields are the fields every parsed item object must carry. They are
// also the required set for truncation repair.
var itemFields = []string{"description", "amount"}

func buildItemSchemaPrompt(defaultCurrency domain.CurrencyCode) string {
	var b strings.Builder
	b.WriteString("Each object must have these fields:\n")
	b.WriteString("- \"description\": string, short cleaned merchant or purpose\n")
	b.WriteString("- \"amount\": number, always positive\n")
	b.WriteString("- \"currency\": string, one of ")
	for i, c := range domain.SupportedCurrencies {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(c))
	}
	b.WriteString("; default to \"" + string(defaultCurrency) + "\" when the text has no currency\n")
	b.WriteString("- \"date\": string \"YYYY-MM-DD\" or null when the text has no date\n")
	b.WriteString("- \"category\": string, one of the categories below\n\n")
	b.WriteString(buildCategoriesPrompt())
	return b.String()
}

// buildCategoriesPrompt lists the fixed category set and constrains what
// the model may output, in the statement-parser prompt style.
func buildCategoriesPrompt() string {
	var b strings.Builder
	b.WriteString("Use ONLY the following categories:\n")
	for _, name := range extract.AllowedCategories() {
		b.WriteString("  - " + name + "\n")
	}
	b.WriteString("\nCATEGORY ASSIGNMENT RULES:\n")
	b.WriteString("1. Category must be EXACTLY one of the names above.\n")
	b.WriteString("2. If you are unsure, use \"" + extract.DefaultCategory + "\".\n")
	return b.String()
}

func strictJSONRules() string {
	return "Return ONLY valid raw JSON.\n" +
		"Do NOT wrap the response in code fences.\n" +
		"Do NOT use ```json or any Markdown.\n" +
		"Output must begin with \"[\" and end with \"]\".\n"
}

func buildCategorizePrompt(text string, defaultCurrency domain.CurrencyCode) string {
	return "You are a personal-finance extraction assistant.\n\n" +
		"Task:\n" +
		"- Interpret the user's expense note below.\n" +
		"- Output STRICT JSON only: a JSON array containing exactly ONE object.\n\n" +
		buildItemSchemaPrompt(defaultCurrency) + "\n" +
		strictJSONRules() + "\n" +
		"Expense note:\n" + text + "\n"
}

func buildMultiItemPrompt(text string, defaultCurrency domain.CurrencyCode, fallbackDate time.Time) string {
	return "You are a personal-finance extraction assistant.\n\n" +
		"Task:\n" +
		"- The text below may describe SEVERAL separate expenses.\n" +
		"- Output STRICT JSON only: a JSON array with one object per expense.\n" +
		"- When an expense has no date, use \"" + fallbackDate.Format("2006-01-02") + "\".\n\n" +
		buildItemSchemaPrompt(defaultCurrency) + "\n" +
		strictJSONRules() + "\n" +
		"Text:\n" + text + "\n"
}

func buildReceiptPrompt(defaultCurrency domain.CurrencyCode) string {
	return "You are a receipt parser for a personal-finance tracker.\n\n" +
		"Task:\n" +
		"- Parse the attached receipt image.\n" +
		"- Output STRICT JSON only: a JSON array with one object per line item,\n" +
		"  or a single object for the receipt total when line items are unreadable.\n\n" +
		buildItemSchemaPrompt(defaultCurrency) + "\n" +
		strictJSONRules()
}

func buildIncomeSourcePrompt(text string) string {
	var b strings.Builder
	b.WriteString("Classify the income described below into exactly one source.\n")
	b.WriteString("Answer with the source name ONLY, no punctuation.\n\n")
	b.WriteString("Allowed sources:\n")
	for _, name := range extract.AllowedIncomeSources() {
		b.WriteString("  - " + name + "\n")
	}
	b.WriteString("\nIncome:\n" + text + "\n")
	return b.String()
}

// ConverseSystemPrompt is the fixed system instruction for the tool-calling
// conversation loop. The contextPeriod is threaded in so period-scoped
// questions never silently default to the server's current month.
func ConverseSystemPrompt(defaultCurrency domain.CurrencyCode, contextPeriod string) string {
	var b strings.Builder
	b.WriteString("You are a personal-finance assistant with access to the user's financial data through tools.\n")
	b.WriteString("Call tools to answer questions about expenses, income, budgets and subscriptions; never invent figures.\n")
	b.WriteString("The user's home currency is " + string(defaultCurrency) + ".\n")
	if contextPeriod != "" {
		b.WriteString("The user is currently looking at the period " + contextPeriod + "; pass it to period-scoped tools unless they name another period.\n")
	}
	b.WriteString("Destructive operations require a confirmed second call; preview first with confirm=false.\n")
	return b.String()
}
