// Package llm abstracts chat completion providers behind a single
// tool-aware interface so the tutor loop does not care which vendor
// serves it.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a provider-requested tool invocation. Arguments is the
// raw JSON argument object as produced by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is one turn of a conversation. Tool results carry the
// ToolCallID they answer; assistant turns may carry ToolCalls.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

// ToolSpec describes a callable tool to the model. Parameters is a
// JSON Schema object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Completer produces the next assistant turn for a conversation,
// optionally requesting tool calls from the given specs.
type Completer interface {
	Complete(ctx context.Context, messages []Message, tools []ToolSpec) (*Message, error)
}

// NewCompleter selects a provider implementation by name. API keys come
// from the environment the way each vendor SDK expects.
func NewCompleter(provider, model string) (Completer, error) {
	switch provider {
	case "openai", "":
		return NewOpenAICompleter(model), nil
	case "anthropic", "claude":
		return NewAnthropicCompleter(model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
