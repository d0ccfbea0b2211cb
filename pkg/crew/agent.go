package crew

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dataeval/dingomark/pkg/logger"
	"github.com/dataeval/dingomark/pkg/providers"
	"github.com/dataeval/dingomark/pkg/tools"
)

// Agent is a named role with a goal, a tool set and an iteration budget.
// Agents are configured once and shared read-only between runs; all mutable
// run state lives on the Task.
type Agent struct {
	Name            string
	Role            string
	Goal            string
	Backstory       string
	Tools           []tools.Tool
	AllowDelegation bool
	MaxIterations   int
}

func (a *Agent) systemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.\n", a.Role)
	fmt.Fprintf(&b, "Your goal: %s\n", a.Goal)
	if a.Backstory != "" {
		fmt.Fprintf(&b, "Background: %s\n", a.Backstory)
	}
	b.WriteString("Use the available tools when they help. When you have enough information, answer directly with your final result.")
	return b.String()
}

// runAgent drives one agent through the chat/tool loop until it produces a
// final answer or exhausts its iteration budget. extraTools are appended to
// the agent's own set (used to hand the manager its delegation tool).
func (c *Crew) runAgent(ctx context.Context, agent *Agent, prompt string, extraTools []tools.Tool) (string, error) {
	toolset := make([]tools.Tool, 0, len(agent.Tools)+len(extraTools))
	toolset = append(toolset, agent.Tools...)
	toolset = append(toolset, extraTools...)

	byName := make(map[string]tools.Tool, len(toolset))
	defs := make([]providers.ToolDefinition, 0, len(toolset))
	for _, tool := range toolset {
		byName[tool.Name()] = tool
		defs = append(defs, tools.Definition(tool))
	}

	messages := []providers.Message{
		{Role: "system", Content: agent.systemPrompt()},
		{Role: "user", Content: prompt},
	}

	options := map[string]any{
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
	}

	for iteration := 1; iteration <= agent.MaxIterations; iteration++ {
		logger.DebugCF("crew", "agent iteration",
			map[string]any{
				"agent":     agent.Name,
				"iteration": iteration,
				"max":       agent.MaxIterations,
				"messages":  len(messages),
			})

		response, err := c.provider.Chat(ctx, messages, defs, c.model, options)
		if err != nil {
			logger.ErrorCF("crew", "LLM call failed",
				map[string]any{"agent": agent.Name, "iteration": iteration, "error": err.Error()})
			if classified := providers.ClassifyError(err); classified != nil {
				return "", fmt.Errorf("agent %s: %w", agent.Name, classified)
			}
			return "", err
		}

		if len(response.ToolCalls) == 0 {
			content := strings.TrimSpace(response.Content)
			if content == "" || !utf8.ValidString(content) {
				return "", fmt.Errorf("agent %s returned an empty or malformed answer", agent.Name)
			}
			logger.InfoCF("crew", "agent finished",
				map[string]any{"agent": agent.Name, "iterations": iteration, "chars": len(content)})
			return content, nil
		}

		assistantMsg := providers.Message{Role: "assistant", Content: response.Content}
		for _, tc := range response.ToolCalls {
			name, args := normalizeCall(tc)
			argsJSON, _ := json.Marshal(args)
			assistantMsg.ToolCalls = append(assistantMsg.ToolCalls, providers.ToolCall{
				ID:   tc.ID,
				Type: "function",
				Name: name,
				Function: &providers.FunctionCall{
					Name:      name,
					Arguments: string(argsJSON),
				},
			})
		}
		messages = append(messages, assistantMsg)

		for _, tc := range response.ToolCalls {
			name, args := normalizeCall(tc)
			logger.InfoCF("crew", "agent requested tool",
				map[string]any{"agent": agent.Name, "tool": name, "iteration": iteration})

			content := c.executeAgentTool(ctx, byName, name, args)
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			messages = append(messages, providers.Message{
				Role:       "tool",
				Content:    content,
				ToolCallID: tc.ID,
			})
		}
	}

	return "", fmt.Errorf("agent %s exhausted %d iterations without a final answer", agent.Name, agent.MaxIterations)
}

// executeAgentTool resolves and runs one requested tool. Failures are
// reported back to the model as tool output rather than aborting the run;
// the agent can correct course or give up on its own.
func (c *Crew) executeAgentTool(ctx context.Context, byName map[string]tools.Tool, name string, args map[string]any) string {
	tool, ok := byName[name]
	if !ok {
		err := &tools.UnknownToolError{Name: name}
		return "Error: " + err.Error()
	}
	result, err := tools.ExecuteTool(ctx, c.retry, tool, args)
	if err != nil {
		return "Error: " + err.Error()
	}
	return result
}

// normalizeCall extracts the tool name and arguments regardless of whether
// the adapter populated the flat fields or the nested function call.
func normalizeCall(tc providers.ToolCall) (string, map[string]any) {
	name := tc.Name
	args := tc.Arguments
	if tc.Function != nil {
		if name == "" {
			name = tc.Function.Name
		}
		if args == nil && tc.Function.Arguments != "" {
			args = make(map[string]any)
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				args = map[string]any{}
			}
		}
	}
	if args == nil {
		args = map[string]any{}
	}
	return name, args
}
