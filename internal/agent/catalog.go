package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"greektutor/internal/apierr"
	"greektutor/internal/llm"
)

// Tool is one callable tutor tool: the spec shown to the model, the
// argument names that must be present, and the handler that runs it.
type Tool struct {
	Spec     llm.ToolSpec
	Required []string
	Handler  func(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// Catalog is an explicit tool registry. Dispatch validates the tool
// name and required arguments before invoking anything; an unknown
// name is an error, never a silent no-op.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{tools: make(map[string]Tool)}
}

// Register adds a tool under its lower-cased name. Duplicate names
// return an error.
func (c *Catalog) Register(tool Tool) error {
	key := strings.ToLower(strings.TrimSpace(tool.Spec.Name))
	if key == "" {
		return fmt.Errorf("tool name is empty")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool %s has no handler", tool.Spec.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tools[key]; exists {
		return fmt.Errorf("tool %s already registered", tool.Spec.Name)
	}
	c.tools[key] = tool
	c.order = append(c.order, key)
	return nil
}

// Lookup returns the tool if present.
func (c *Catalog) Lookup(name string) (Tool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tool, ok := c.tools[strings.ToLower(strings.TrimSpace(name))]
	return tool, ok
}

// Specs returns the tool specifications in registration order.
func (c *Catalog) Specs() []llm.ToolSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()

	specs := make([]llm.ToolSpec, 0, len(c.order))
	for _, key := range c.order {
		specs = append(specs, c.tools[key].Spec)
	}
	return specs
}

// Dispatch parses rawArgs, checks the tool exists and its required
// arguments are present, runs the handler and returns its result as a
// JSON string.
func (c *Catalog) Dispatch(ctx context.Context, name, rawArgs string) (string, error) {
	tool, ok := c.Lookup(name)
	if !ok {
		return "", apierr.Validation("unknown tool %q", name)
	}

	args := make(map[string]interface{})
	if strings.TrimSpace(rawArgs) != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return "", apierr.Validation("tool %s: malformed arguments", name)
		}
	}
	for _, req := range tool.Required {
		if _, present := args[req]; !present {
			return "", apierr.Validation("tool %s: missing required argument %q", name, req)
		}
	}

	result, err := tool.Handler(ctx, args)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("tool %s: failed to encode result: %w", name, err)
	}
	return string(out), nil
}

// objectSchema builds a JSON Schema object for a tool's parameters.
func objectSchema(props map[string]interface{}, required ...string) json.RawMessage {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	raw, _ := json.Marshal(schema)
	return raw
}

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// intArg handles the float64 values encoding/json produces for numbers.
func intArg(args map[string]interface{}, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func floatArg(args map[string]interface{}, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func boolArg(args map[string]interface{}, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

func stringSliceArg(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intSliceArg(args map[string]interface{}, key string) []int {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]int, 0, len(raw))
	for _, item := range raw {
		if n, ok := item.(float64); ok {
			out = append(out, int(n))
		}
	}
	return out
}
