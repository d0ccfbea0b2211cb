package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataeval/dingomark/pkg/providers"
)

type fakeTool struct {
	name    string
	execute func(ctx context.Context, args map[string]any) (string, error)
}

func (f *fakeTool) Name() string                { return f.name }
func (f *fakeTool) Description() string         { return "fake tool for tests" }
func (f *fakeTool) Parameters() map[string]any  { return map[string]any{"type": "object"} }
func (f *fakeTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	return f.execute(ctx, args)
}

func newTestRegistry(t *testing.T, tools ...Tool) *Registry {
	t.Helper()
	r := NewRegistry(providers.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond})
	for _, tool := range tools {
		require.NoError(t, r.Register(tool))
	}
	return r
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	r := newTestRegistry(t, &fakeTool{name: "echo"})

	err := r.Register(&fakeTool{name: "echo"})
	var dup *DuplicateToolError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "echo", dup.Name)
}

func TestRegistryByNames(t *testing.T) {
	r := newTestRegistry(t, &fakeTool{name: "a"}, &fakeTool{name: "b"})

	got, err := r.ByNames("b", "a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Name())
	assert.Equal(t, "a", got[1].Name())

	_, err = r.ByNames("a", "missing")
	var unknown *UnknownToolError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "missing", unknown.Name)
}

func TestRegistryExecuteWrapsFailures(t *testing.T) {
	boom := errors.New("invalid api key")
	r := newTestRegistry(t, &fakeTool{
		name: "broken",
		execute: func(context.Context, map[string]any) (string, error) {
			return "", boom
		},
	})

	_, err := r.Execute(context.Background(), "broken", nil)
	var toolErr *ToolExecutionError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "broken", toolErr.ToolName)

	var provErr *providers.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, providers.ReasonUnauthorized, provErr.Reason)
}

func TestRegistryExecuteRetriesTransientFailures(t *testing.T) {
	calls := 0
	r := newTestRegistry(t, &fakeTool{
		name: "flaky",
		execute: func(context.Context, map[string]any) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("connection reset by peer")
			}
			return "recovered", nil
		},
	})

	result, err := r.Execute(context.Background(), "flaky", nil)
	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, 3, calls)
}

type mutatingFakeTool struct{ fakeTool }

func (m *mutatingFakeTool) Mutating() bool { return true }

func TestRegistryExecuteDoesNotRetryMutatingTools(t *testing.T) {
	calls := 0
	r := newTestRegistry(t, &mutatingFakeTool{fakeTool{
		name: "poster",
		execute: func(context.Context, map[string]any) (string, error) {
			calls++
			return "", errors.New("connection reset by peer")
		},
	}})

	_, err := r.Execute(context.Background(), "poster", nil)
	var toolErr *ToolExecutionError
	require.ErrorAs(t, err, &toolErr)
	// The write may have landed server-side; replaying it could post twice.
	assert.Equal(t, 1, calls)
}

func TestRegistryExecuteDoesNotRetryAuthFailures(t *testing.T) {
	calls := 0
	r := newTestRegistry(t, &fakeTool{
		name: "locked",
		execute: func(context.Context, map[string]any) (string, error) {
			calls++
			return "", errors.New("401 unauthorized")
		},
	})

	_, err := r.Execute(context.Background(), "locked", nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRegistryExecuteRejectsEmptyResult(t *testing.T) {
	r := newTestRegistry(t, &fakeTool{
		name: "mute",
		execute: func(context.Context, map[string]any) (string, error) {
			return "", nil
		},
	})

	_, err := r.Execute(context.Background(), "mute", nil)
	var toolErr *ToolExecutionError
	require.ErrorAs(t, err, &toolErr)

	var provErr *providers.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, providers.ReasonMalformed, provErr.Reason)
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Execute(context.Background(), "nope", nil)
	var unknown *UnknownToolError
	require.ErrorAs(t, err, &unknown)
}

func TestRegistryNamesSorted(t *testing.T) {
	r := newTestRegistry(t, &fakeTool{name: "zeta"}, &fakeTool{name: "alpha"})
	assert.Equal(t, []string{"alpha", "zeta"}, r.Names())
}

func TestDefinitionShape(t *testing.T) {
	def := Definition(&fakeTool{name: "echo"})
	assert.Equal(t, "function", def.Type)
	assert.Equal(t, "echo", def.Function.Name)
	assert.NotEmpty(t, def.Function.Description)
	assert.Equal(t, "object", def.Function.Parameters["type"])
}
