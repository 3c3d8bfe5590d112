package domain

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// NoContinuationToken is the sentinel echoed back when the reasoning
// service requested a tool call without a continuation token. The token is
// always present on a result, never dropped.
const NoContinuationToken = "no-token"

// ToolCall is a request, emitted by the reasoning service, to execute one
// named operation with the given arguments.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`

	// ContinuationToken is an opaque pass-through value the service uses to
	// correlate the result with its internal state. When the service omits
	// it, NoContinuationToken is substituted.
	ContinuationToken string `json:"continuation_token"`
}

// ToolResult is the request-scoped payload produced by executing one tool
// call. Err carries a user-reportable failure for that single call; the
// payload is nil in that case.
type ToolResult struct {
	Name              string         `json:"name"`
	ContinuationToken string         `json:"continuation_token"`
	Payload           map[string]any `json:"payload,omitempty"`
	Err               string         `json:"error,omitempty"`

	// Currency tags monetary payloads with the target currency every figure
	// was converted into before aggregation.
	Currency CurrencyCode `json:"currency,omitempty"`
}

// ConversationTurn is one entry in the append-only conversation log. Turns
// are only ever appended, never rewritten.
type ConversationTurn struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// ChartType enumerates the chart shapes the rendering layer can draw.
type ChartType string

const (
	ChartBar  ChartType = "bar"
	ChartLine ChartType = "line"
	ChartPie  ChartType = "pie"
)

// ChartPayload is the structured side payload handed to the (out-of-scope)
// chart rendering layer. All values in Data are already converted into
// Currency.
type ChartPayload struct {
	Type     ChartType    `json:"type"`
	Title    string       `json:"title"`
	Currency CurrencyCode `json:"currency"`
	Series   []string     `json:"series"`
	Data     []ChartPoint `json:"data"`
}

// ChartPoint is one labelled value of a chart series.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}
