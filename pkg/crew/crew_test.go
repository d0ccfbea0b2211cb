package crew

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataeval/dingomark/pkg/config"
	"github.com/dataeval/dingomark/pkg/providers"
	"github.com/dataeval/dingomark/pkg/tools"
)

// scriptedProvider replays canned responses and records every Chat call so
// tests can assert on ordering and prompt content.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []*providers.LLMResponse
	errs      []error
	calls     []chatCall
	block     bool
}

type chatCall struct {
	messages []providers.Message
	tools    []providers.ToolDefinition
}

func (s *scriptedProvider) Chat(ctx context.Context, messages []providers.Message, tools []providers.ToolDefinition, model string, options map[string]any) (*providers.LLMResponse, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, chatCall{messages: messages, tools: tools})

	idx := len(s.calls) - 1
	if idx < len(s.errs) && s.errs[idx] != nil {
		return nil, s.errs[idx]
	}
	if idx < len(s.responses) {
		return s.responses[idx], nil
	}
	return &providers.LLMResponse{Content: "default answer", FinishReason: "stop"}, nil
}

func (s *scriptedProvider) GetDefaultModel() string { return "scripted-model" }

func (s *scriptedProvider) agentOfCall(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= len(s.calls) || len(s.calls[i].messages) == 0 {
		return ""
	}
	// The system prompt opens with "You are <role>."
	return s.calls[i].messages[0].Content
}

func textResponse(content string) *providers.LLMResponse {
	return &providers.LLMResponse{Content: content, FinishReason: "stop"}
}

func toolCallResponse(name string, args map[string]any) *providers.LLMResponse {
	return &providers.LLMResponse{
		ToolCalls: []providers.ToolCall{
			{ID: "call-1", Type: "function", Name: name, Arguments: args},
		},
		FinishReason: "tool_calls",
	}
}

func testAgent(name, role string, delegation bool) *Agent {
	return &Agent{
		Name:            name,
		Role:            role,
		Goal:            "help with tests",
		AllowDelegation: delegation,
		MaxIterations:   3,
	}
}

func TestNewCrewHierarchicalRequiresOneManager(t *testing.T) {
	provider := &scriptedProvider{}

	tests := []struct {
		name    string
		agents  []*Agent
		wantErr bool
	}{
		{
			name:   "exactly one manager",
			agents: []*Agent{testAgent("lead", "a lead", true), testAgent("worker", "a worker", false)},
		},
		{
			name:    "no manager",
			agents:  []*Agent{testAgent("a", "a", false), testAgent("b", "b", false)},
			wantErr: true,
		},
		{
			name:    "two managers",
			agents:  []*Agent{testAgent("a", "a", true), testAgent("b", "b", true)},
			wantErr: true,
		},
		{
			name:    "manager with no workers",
			agents:  []*Agent{testAgent("a", "a", true)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCrew(tt.agents, Hierarchical, provider, Options{})
			if tt.wantErr {
				var confErr *config.ConfigurationError
				require.ErrorAs(t, err, &confErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewCrewRejectsDuplicateNames(t *testing.T) {
	_, err := NewCrew(
		[]*Agent{testAgent("twin", "a", false), testAgent("twin", "b", false)},
		Sequential, &scriptedProvider{}, Options{},
	)
	var confErr *config.ConfigurationError
	require.ErrorAs(t, err, &confErr)
}

func TestRunSequentialOrderAndContext(t *testing.T) {
	provider := &scriptedProvider{
		responses: []*providers.LLMResponse{
			textResponse("strategy: focus on data engineers"),
			textResponse("blog post draft"),
		},
	}
	strategist := testAgent("strategist", "a marketing strategist", false)
	writer := testAgent("writer", "a content writer", false)
	c, err := NewCrew([]*Agent{strategist, writer}, Sequential, provider, Options{})
	require.NoError(t, err)

	tasks := []*Task{
		NewTask("Plan the campaign", "a strategy", strategist),
		NewTask("Write the content", "a draft", writer),
	}
	require.NoError(t, c.RunSequential(context.Background(), tasks))

	assert.Equal(t, TaskCompleted, tasks[0].Status)
	assert.Equal(t, TaskCompleted, tasks[1].Status)
	assert.Equal(t, "strategy: focus on data engineers", tasks[0].Output)

	// Invocation order follows list order.
	assert.Contains(t, provider.agentOfCall(0), "a marketing strategist")
	assert.Contains(t, provider.agentOfCall(1), "a content writer")

	// The second task sees the first task's output.
	secondPrompt := provider.calls[1].messages[1].Content
	assert.Contains(t, secondPrompt, "strategy: focus on data engineers")
}

func TestRunSequentialReorderingReordersInvocations(t *testing.T) {
	provider := &scriptedProvider{}
	a := testAgent("a", "agent alpha", false)
	b := testAgent("b", "agent beta", false)
	c, err := NewCrew([]*Agent{a, b}, Sequential, provider, Options{})
	require.NoError(t, err)

	tasks := []*Task{NewTask("second first", "", b), NewTask("first second", "", a)}
	require.NoError(t, c.RunSequential(context.Background(), tasks))

	assert.Contains(t, provider.agentOfCall(0), "agent beta")
	assert.Contains(t, provider.agentOfCall(1), "agent alpha")
}

func TestRunSequentialStopsOnFirstFailure(t *testing.T) {
	provider := &scriptedProvider{
		errs: []error{errors.New("invalid api key")},
	}
	a := testAgent("a", "agent a", false)
	b := testAgent("b", "agent b", false)
	c, err := NewCrew([]*Agent{a, b}, Sequential, provider, Options{})
	require.NoError(t, err)

	tasks := []*Task{NewTask("one", "", a), NewTask("two", "", b)}
	err = c.RunSequential(context.Background(), tasks)
	require.Error(t, err)

	assert.Equal(t, TaskFailed, tasks[0].Status)
	assert.Error(t, tasks[0].Err)
	assert.Equal(t, TaskPending, tasks[1].Status)
	assert.Len(t, provider.calls, 1)
}

func TestAgentRejectsMalformedFinalAnswer(t *testing.T) {
	agent := testAgent("solo", "a solo agent", false)

	for name, content := range map[string]string{
		"empty":         "   ",
		"invalid utf-8": "result: \xff\xfe",
	} {
		t.Run(name, func(t *testing.T) {
			provider := &scriptedProvider{responses: []*providers.LLMResponse{textResponse(content)}}
			c, err := NewCrew([]*Agent{agent}, Sequential, provider, Options{})
			require.NoError(t, err)

			task := NewTask("do something", "", agent)
			err = c.RunSequential(context.Background(), []*Task{task})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "malformed")
			assert.Equal(t, TaskFailed, task.Status)
		})
	}
}

func TestRunSequentialRejectsForeignAgent(t *testing.T) {
	provider := &scriptedProvider{}
	member := testAgent("member", "a member", false)
	outsider := testAgent("outsider", "an outsider", false)
	c, err := NewCrew([]*Agent{member}, Sequential, provider, Options{})
	require.NoError(t, err)

	task := NewTask("do something", "", outsider)
	err = c.RunSequential(context.Background(), []*Task{task})

	var confErr *config.ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, TaskFailed, task.Status)
	assert.Empty(t, provider.calls)
}

func TestAgentToolLoop(t *testing.T) {
	echo := &fakeCrewTool{name: "echo", result: "tool says hi"}
	provider := &scriptedProvider{
		responses: []*providers.LLMResponse{
			toolCallResponse("echo", map[string]any{"text": "hi"}),
			textResponse("final answer using tool output"),
		},
	}
	agent := testAgent("solo", "a solo agent", false)
	agent.Tools = []tools.Tool{echo}

	c, err := NewCrew([]*Agent{agent}, Sequential, provider, Options{})
	require.NoError(t, err)

	task := NewTask("use your tool", "", agent)
	require.NoError(t, c.RunSequential(context.Background(), []*Task{task}))
	assert.Equal(t, "final answer using tool output", task.Output)
	assert.Equal(t, 1, echo.calls)

	// Second call carries the assistant tool-call message and the tool reply.
	secondCall := provider.calls[1].messages
	require.GreaterOrEqual(t, len(secondCall), 4)
	assert.Equal(t, "assistant", secondCall[2].Role)
	assert.Equal(t, "tool", secondCall[3].Role)
	assert.Equal(t, "tool says hi", secondCall[3].Content)
}

func TestAgentUnknownToolFedBack(t *testing.T) {
	provider := &scriptedProvider{
		responses: []*providers.LLMResponse{
			toolCallResponse("nonexistent", nil),
			textResponse("recovered without the tool"),
		},
	}
	agent := testAgent("solo", "a solo agent", false)
	c, err := NewCrew([]*Agent{agent}, Sequential, provider, Options{})
	require.NoError(t, err)

	task := NewTask("try a bad tool", "", agent)
	require.NoError(t, c.RunSequential(context.Background(), []*Task{task}))

	toolReply := provider.calls[1].messages[3]
	assert.Equal(t, "tool", toolReply.Role)
	assert.Contains(t, toolReply.Content, "unknown tool")
}

func TestAgentIterationBudgetExhausted(t *testing.T) {
	echo := &fakeCrewTool{name: "echo", result: "again"}
	provider := &scriptedProvider{
		responses: []*providers.LLMResponse{
			toolCallResponse("echo", nil),
			toolCallResponse("echo", nil),
			toolCallResponse("echo", nil),
		},
	}
	agent := testAgent("looper", "a looping agent", false)
	agent.Tools = []tools.Tool{echo}
	agent.MaxIterations = 3

	c, err := NewCrew([]*Agent{agent}, Sequential, provider, Options{})
	require.NoError(t, err)

	task := NewTask("loop forever", "", agent)
	err = c.RunSequential(context.Background(), []*Task{task})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted")
	assert.Equal(t, TaskFailed, task.Status)
	assert.Len(t, provider.calls, 3)
}

func TestRunHierarchicalDelegation(t *testing.T) {
	provider := &scriptedProvider{
		responses: []*providers.LLMResponse{
			toolCallResponse("delegate_work", map[string]any{
				"agent": "analyst", "task": "analyze octocat",
			}),
			textResponse("analysis: octocat is highly active"), // worker run
			textResponse("campaign plan built on the analysis"), // manager final
		},
	}
	manager := testAgent("lead", "a team lead", true)
	manager.MaxIterations = 5
	analyst := testAgent("analyst", "an analyst", false)

	c, err := NewCrew([]*Agent{manager, analyst}, Hierarchical, provider, Options{})
	require.NoError(t, err)

	task := NewTask("run the campaign", "a plan", nil)
	require.NoError(t, c.RunHierarchical(context.Background(), task))

	assert.Equal(t, TaskCompleted, task.Status)
	assert.Equal(t, "campaign plan built on the analysis", task.Output)
	assert.Same(t, manager, task.Agent)

	// Call 1 is the manager, call 2 the delegated worker, call 3 the manager
	// again with the worker's result in a tool message.
	assert.Contains(t, provider.agentOfCall(0), "a team lead")
	assert.Contains(t, provider.agentOfCall(1), "an analyst")
	managerResume := provider.calls[2].messages
	assert.Equal(t, "tool", managerResume[3].Role)
	assert.Contains(t, managerResume[3].Content, "highly active")
}

func TestRunHierarchicalRejectsUnknownDelegate(t *testing.T) {
	provider := &scriptedProvider{
		responses: []*providers.LLMResponse{
			toolCallResponse("delegate_work", map[string]any{
				"agent": "ghost", "task": "do something",
			}),
			textResponse("done without delegation"),
		},
	}
	manager := testAgent("lead", "a team lead", true)
	worker := testAgent("worker", "a worker", false)
	c, err := NewCrew([]*Agent{manager, worker}, Hierarchical, provider, Options{})
	require.NoError(t, err)

	task := NewTask("try delegating to nobody", "", nil)
	require.NoError(t, c.RunHierarchical(context.Background(), task))

	// The rejection is fed back to the manager, not fatal.
	toolReply := provider.calls[1].messages[3]
	assert.Equal(t, "tool", toolReply.Role)
	assert.Contains(t, toolReply.Content, "unknown team member")
	assert.Equal(t, TaskCompleted, task.Status)
}

func TestRunHierarchicalManagerNotADelegationTarget(t *testing.T) {
	provider := &scriptedProvider{
		responses: []*providers.LLMResponse{
			toolCallResponse("delegate_work", map[string]any{
				"agent": "lead", "task": "delegate to yourself",
			}),
			textResponse("understood"),
		},
	}
	manager := testAgent("lead", "a team lead", true)
	worker := testAgent("worker", "a worker", false)
	c, err := NewCrew([]*Agent{manager, worker}, Hierarchical, provider, Options{})
	require.NoError(t, err)

	task := NewTask("self delegation", "", nil)
	require.NoError(t, c.RunHierarchical(context.Background(), task))

	toolReply := provider.calls[1].messages[3]
	assert.Contains(t, toolReply.Content, "cannot be a delegation target")
}

func TestTimeoutMarksTaskFailed(t *testing.T) {
	provider := &scriptedProvider{block: true}
	agent := testAgent("slow", "a slow agent", false)
	c, err := NewCrew([]*Agent{agent}, Sequential, provider, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	task := NewTask("never finishes", "", agent)
	err = c.RunSequential(ctx, []*Task{task})

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, TaskFailed, task.Status)
	assert.NotEqual(t, TaskRunning, task.Status)
}

// fakeCrewTool is a minimal tools.Tool for loop tests.
type fakeCrewTool struct {
	name   string
	result string
	calls  int
}

func (f *fakeCrewTool) Name() string               { return f.name }
func (f *fakeCrewTool) Description() string        { return "test tool" }
func (f *fakeCrewTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (f *fakeCrewTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	f.calls++
	return f.result, nil
}
