package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/amayadev/amaya/pkg/logger"
)

// Tool is one function the model may call during generation. Parameters is a
// JSON schema object with "properties" and "required" keys.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Execute     func(ctx context.Context, args map[string]any) (string, error)
}

// SchemaProperties returns the schema's properties object.
func (t Tool) SchemaProperties() map[string]any {
	if props, ok := t.Parameters["properties"].(map[string]any); ok {
		return props
	}
	return map[string]any{}
}

// SchemaRequired returns the schema's required field names.
func (t Tool) SchemaRequired() []string {
	switch req := t.Parameters["required"].(type) {
	case []string:
		return req
	case []any:
		names := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				names = append(names, s)
			}
		}
		return names
	}
	return nil
}

// Toolset is the registry of tools offered to a generator.
type Toolset struct {
	tools  []Tool
	byName map[string]Tool
}

// NewToolset builds a registry from the given tools.
func NewToolset(tools ...Tool) *Toolset {
	ts := &Toolset{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		ts.tools = append(ts.tools, t)
		ts.byName[t.Name] = t
	}
	return ts
}

// All returns the registered tools in registration order.
func (ts *Toolset) All() []Tool {
	if ts == nil {
		return nil
	}
	return ts.tools
}

// Empty reports whether no tools are registered.
func (ts *Toolset) Empty() bool {
	return ts == nil || len(ts.tools) == 0
}

// Execute decodes rawArgs and runs the named tool. Execution failures are
// returned as result text rather than an error: the model should see what
// went wrong and recover, not abort the whole generation.
func (ts *Toolset) Execute(ctx context.Context, name string, rawArgs []byte) string {
	tool, ok := ts.byName[name]
	if !ok {
		return fmt.Sprintf("error: unknown tool %q", name)
	}

	args := map[string]any{}
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return fmt.Sprintf("error: invalid arguments for %s: %v", name, err)
		}
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		logger.WarnCF("providers", "tool call failed",
			map[string]any{"tool": name, "error": err.Error()})
		return fmt.Sprintf("error: %v", err)
	}
	logger.DebugCF("providers", "tool call ok", map[string]any{"tool": name})
	return result
}

// stringArg extracts a required string argument.
func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", key)
	}
	return s, nil
}

// optionalStringArg extracts an optional string argument.
func optionalStringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// numberArg extracts a numeric argument. JSON numbers decode as float64.
func numberArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
