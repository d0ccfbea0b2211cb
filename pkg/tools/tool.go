// Package tools defines the external-action adapters agents may invoke and
// the registry that hands them out by name. Tools are stateless beyond
// their configuration and immutable once registered.
package tools

import (
	"context"
	"fmt"

	"github.com/dataeval/dingomark/pkg/providers"
)

// Tool is one named external capability (a GitHub query, a content
// generation call). Execute returns the text the LLM sees, or an error.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Mutating is an optional marker for tools that write to an external
// system. A mutating tool runs at most once per invocation: a transient
// failure is not retried because the write may already have landed.
type Mutating interface {
	Mutating() bool
}

// DuplicateToolError reports a second registration under the same name.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q already registered", e.Name)
}

// UnknownToolError reports a lookup for a name nobody registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// ToolExecutionError wraps any failure from a tool's underlying external
// call so the orchestrator can report which adapter broke.
type ToolExecutionError struct {
	ToolName string
	Err      error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.ToolName, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

// Definition converts a tool to the provider wire shape.
func Definition(t Tool) providers.ToolDefinition {
	return providers.ToolDefinition{
		Type: "function",
		Function: providers.ToolFunctionDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		},
	}
}

// Helpers shared by the concrete tools.

func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
