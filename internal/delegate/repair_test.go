package delegate

import (
	"errors"
	"testing"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

func TestParseObjectArray_StrictParse(t *testing.T) {
	raw := `[{"description":"coffee","amount":5},{"description":"lunch","amount":12}]`

	items, err := parseObjectArray(raw, []string{"description", "amount"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
}

func TestParseObjectArray_StripsMarkdownFences(t *testing.T) {
	raw := "```json\n[{\"description\":\"coffee\",\"amount\":5}]\n```"

	items, err := parseObjectArray(raw, []string{"description", "amount"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
}

func TestParseObjectArray_TruncatedMidObject(t *testing.T) {
	// Two fully-closed objects followed by a partial third and no closing
	// bracket, the known streamed-output failure mode. Repair must yield
	// exactly 2 items, never 3 and never 0.
	raw := `[{"description":"coffee","amount":5},{"description":"lunch","amount":12},{"description":"din`

	items, err := parseObjectArray(raw, []string{"description", "amount"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want exactly 2", len(items))
	}
	if items[1]["description"] != "lunch" {
		t.Errorf("second item = %v, want lunch", items[1]["description"])
	}
}

func TestParseObjectArray_RegexSalvage(t *testing.T) {
	// Broken array structure, but two complete objects are embedded; the
	// one missing a required field is dropped.
	raw := `garbage {"description":"coffee","amount":5} noise {"description":"no amount"} {"description":"taxi","amount":9} [`

	items, err := parseObjectArray(raw, []string{"description", "amount"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
}

func TestParseObjectArray_UnsalvageablePropagates(t *testing.T) {
	_, err := parseObjectArray(`{{{{ not json at all`, []string{"description"})
	if !errors.Is(err, domain.ErrMalformedOutput) {
		t.Fatalf("err = %v, want ErrMalformedOutput", err)
	}

	_, err = parseObjectArray("", []string{"description"})
	if !errors.Is(err, domain.ErrMalformedOutput) {
		t.Fatalf("err = %v, want ErrMalformedOutput for empty input", err)
	}
}
