package llm

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicCompleter serves completions from Anthropic's Messages API.
type AnthropicCompleter struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicCompleter reads ANTHROPIC_API_KEY from the environment.
func NewAnthropicCompleter(model string) *AnthropicCompleter {
	cl := anthropic.NewClient(
		anthropicopt.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")),
	)
	if model == "" {
		model = "claude-3-5-sonnet-latest"
	}
	return &AnthropicCompleter{client: &cl, model: model, maxTokens: 2048}
}

// inputSchema is the subset of JSON Schema the Messages API takes
// directly on a tool definition.
type inputSchema struct {
	Properties map[string]any `json:"properties"`
	Required   []string       `json:"required"`
}

func (a *AnthropicCompleter) Complete(ctx context.Context, messages []Message, tools []ToolSpec) (*Message, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
	}

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case RoleUser:
			params.Messages = append(params.Messages,
				anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: json.RawMessage(tc.Arguments),
					},
				})
			}
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(blocks...))
		case RoleTool:
			params.Messages = append(params.Messages,
				anthropic.NewUserMessage(anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false)))
		}
	}

	for _, t := range tools {
		var schema inputSchema
		if err := json.Unmarshal(t.Parameters, &schema); err != nil {
			schema = inputSchema{}
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: schema.Properties,
					Required:   schema.Required,
				},
			},
		})
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	out := &Message{Role: RoleAssistant}
	var text strings.Builder
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(v.Text)
		case anthropic.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        v.ID,
				Name:      v.Name,
				Arguments: string(v.Input),
			})
		}
	}
	out.Content = text.String()
	return out, nil
}
