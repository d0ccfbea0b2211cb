package tools

import (
	"context"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/dataeval/dingomark/pkg/logger"
	"github.com/dataeval/dingomark/pkg/providers"
)

// Registry holds the full tool set. Registration happens once at service
// construction; after that the registry is read-only and safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	retry providers.RetryPolicy
}

func NewRegistry(retry providers.RetryPolicy) *Registry {
	return &Registry{
		tools: make(map[string]Tool),
		retry: retry,
	}
}

func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name()]; exists {
		return &DuplicateToolError{Name: tool.Name()}
	}
	r.tools[tool.Name()] = tool
	return nil
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// ByNames resolves a tool subset in the given order. Any missing name fails
// the whole lookup.
func (r *Registry) ByNames(names ...string) ([]Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(names))
	for _, name := range names {
		tool, ok := r.tools[name]
		if !ok {
			return nil, &UnknownToolError{Name: name}
		}
		out = append(out, tool)
	}
	return out, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs a tool by name. Transient external failures are retried with
// the registry's policy; every failure is wrapped in ToolExecutionError so
// the orchestrator can attribute it.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	tool, ok := r.Get(name)
	if !ok {
		return "", &UnknownToolError{Name: name}
	}
	return ExecuteTool(ctx, r.retry, tool, args)
}

// ExecuteTool runs one tool with retry for transient failure classes;
// Mutating tools run at most once. The result is checked for
// well-formedness only (non-empty valid UTF-8); its meaning belongs to
// the caller.
func ExecuteTool(ctx context.Context, policy providers.RetryPolicy, tool Tool, args map[string]any) (string, error) {
	name := tool.Name()
	logger.InfoCF("tool", "tool execution started",
		map[string]any{"tool": name, "args": args})

	if m, ok := tool.(Mutating); ok && m.Mutating() {
		policy.MaxAttempts = 1
	}

	var result string
	err := providers.Retry(ctx, policy, "tool", func() error {
		var execErr error
		result, execErr = tool.Execute(ctx, args)
		return execErr
	})
	if err != nil {
		logger.ErrorCF("tool", "tool execution failed",
			map[string]any{"tool": name, "error": err.Error()})
		return "", &ToolExecutionError{ToolName: name, Err: err}
	}

	if result == "" || !utf8.ValidString(result) {
		return "", &ToolExecutionError{
			ToolName: name,
			Err:      &providers.ProviderError{Reason: providers.ReasonMalformed, Wrapped: errEmptyResult},
		}
	}

	logger.DebugCF("tool", "tool execution finished",
		map[string]any{"tool": name, "result_chars": len(result)})
	return result, nil
}

var errEmptyResult = errForm("tool produced empty or non-UTF-8 output")

type errForm string

func (e errForm) Error() string { return string(e) }
