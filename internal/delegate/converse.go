package delegate

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// Converse runs one reasoning-service turn over the full conversation
// history with the fixed tool schema attached. It returns the model's text
// (empty when it only requested tools) and any tool-call requests, each
// carrying its continuation token (the sentinel when the service omitted
// one).
func (c *Client) Converse(ctx context.Context, system string, history []domain.ConversationTurn, tools []*genai.Tool) (string, []domain.ToolCall, error) {
	contents := historyToContents(history)

	cc := &genai.GenerateContentConfig{
		Tools: tools,
	}
	if system != "" {
		cc.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	resp, err := c.generateContent(ctx, contents, cc)
	if err != nil {
		if cerr := cancelled(ctx); cerr != nil {
			return "", nil, cerr
		}
		return "", nil, fmt.Errorf("Converse: generate content: %v: %w", err, domain.ErrRemoteService)
	}

	calls := resp.FunctionCalls()
	toolCalls := make([]domain.ToolCall, 0, len(calls))
	for _, fc := range calls {
		token := fc.ID
		if token == "" {
			token = domain.NoContinuationToken
		}
		toolCalls = append(toolCalls, domain.ToolCall{
			Name:              fc.Name,
			Args:              fc.Args,
			ContinuationToken: token,
		})
	}

	text := resp.Text()
	if text == "" && len(toolCalls) == 0 {
		return "", nil, fmt.Errorf("Converse: empty response from model: %w", domain.ErrRemoteService)
	}
	return text, toolCalls, nil
}

// historyToContents maps the append-only conversation log onto genai
// contents. Tool-call turns become model FunctionCall parts; tool-result
// turns become user FunctionResponse parts with the original continuation
// token echoed back.
func historyToContents(history []domain.ConversationTurn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))

	for _, turn := range history {
		switch {
		case turn.Role == domain.RoleAssistant && len(turn.ToolCalls) > 0:
			parts := make([]*genai.Part, 0, len(turn.ToolCalls)+1)
			if turn.Content != "" {
				parts = append(parts, &genai.Part{Text: turn.Content})
			}
			for _, call := range turn.ToolCalls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   wireToken(call.ContinuationToken),
					Name: call.Name,
					Args: call.Args,
				}})
			}
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: parts})

		case turn.Role == domain.RoleTool:
			parts := make([]*genai.Part, 0, len(turn.ToolResults))
			for _, result := range turn.ToolResults {
				payload := result.Payload
				if result.Err != "" {
					payload = map[string]any{"error": result.Err}
				}
				parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       wireToken(result.ContinuationToken),
					Name:     result.Name,
					Response: payload,
				}})
			}
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: parts})

		case turn.Role == domain.RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: turn.Content}},
			})

		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: turn.Content}},
			})
		}
	}

	return contents
}

// wireToken maps the internal sentinel back to an absent wire ID.
func wireToken(token string) string {
	if token == domain.NoContinuationToken {
		return ""
	}
	return token
}
