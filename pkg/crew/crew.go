package crew

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dataeval/dingomark/pkg/config"
	"github.com/dataeval/dingomark/pkg/logger"
	"github.com/dataeval/dingomark/pkg/providers"
	"github.com/dataeval/dingomark/pkg/tools"
)

type Mode string

const (
	Sequential   Mode = "sequential"
	Hierarchical Mode = "hierarchical"
)

// Options carries the LLM runtime knobs shared by every agent in the crew.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Retry       providers.RetryPolicy
}

// Crew is a fixed set of agents plus the process that coordinates them. In
// hierarchical mode exactly one agent carries the delegation flag and acts
// as manager; every other agent is a delegation target.
type Crew struct {
	agents  map[string]*Agent
	mode    Mode
	manager *Agent

	provider    providers.LLMProvider
	model       string
	maxTokens   int
	temperature float64
	retry       providers.RetryPolicy
}

func NewCrew(agents []*Agent, mode Mode, provider providers.LLMProvider, opts Options) (*Crew, error) {
	if len(agents) == 0 {
		return nil, &config.ConfigurationError{Field: "crew.agents", Reason: "at least one agent required"}
	}
	if mode != Sequential && mode != Hierarchical {
		return nil, &config.ConfigurationError{Field: "crew.mode", Reason: fmt.Sprintf("unsupported mode %q", mode)}
	}

	byName := make(map[string]*Agent, len(agents))
	var manager *Agent
	for _, agent := range agents {
		if agent.Name == "" {
			return nil, &config.ConfigurationError{Field: "crew.agents", Reason: "agent with empty name"}
		}
		if agent.MaxIterations < 1 {
			return nil, &config.ConfigurationError{
				Field:  "crew.agents",
				Reason: fmt.Sprintf("agent %s has no iteration budget", agent.Name),
			}
		}
		if _, dup := byName[agent.Name]; dup {
			return nil, &config.ConfigurationError{
				Field:  "crew.agents",
				Reason: fmt.Sprintf("duplicate agent name %s", agent.Name),
			}
		}
		byName[agent.Name] = agent
		if agent.AllowDelegation {
			if manager != nil {
				return nil, &config.ConfigurationError{
					Field:  "crew.agents",
					Reason: fmt.Sprintf("both %s and %s allow delegation, exactly one manager required", manager.Name, agent.Name),
				}
			}
			manager = agent
		}
	}

	if mode == Hierarchical {
		if manager == nil {
			return nil, &config.ConfigurationError{
				Field:  "crew.agents",
				Reason: "hierarchical mode requires exactly one delegation-enabled agent",
			}
		}
		if len(agents) < 2 {
			return nil, &config.ConfigurationError{
				Field:  "crew.agents",
				Reason: "hierarchical mode requires at least one worker besides the manager",
			}
		}
	}

	model := opts.Model
	if model == "" {
		model = provider.GetDefaultModel()
	}

	return &Crew{
		agents:      byName,
		mode:        mode,
		manager:     manager,
		provider:    provider,
		model:       model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		retry:       opts.Retry,
	}, nil
}

func (c *Crew) Mode() Mode { return c.mode }

func (c *Crew) Agent(name string) (*Agent, bool) {
	a, ok := c.agents[name]
	return a, ok
}

// RunSequential executes tasks in strict list order. Each completed task's
// output is appended to the context handed to later tasks. The first hard
// error stops the run; the failing task is marked failed, the rest stay
// pending.
func (c *Crew) RunSequential(ctx context.Context, tasks []*Task) error {
	bound := remainingBound(ctx)
	var priorOutputs []string

	for i, task := range tasks {
		if err := c.checkMember(task.Agent); err != nil {
			task.fail(err)
			return err
		}

		task.Status = TaskRunning
		logger.InfoCF("crew", "task started",
			map[string]any{"task": task.ID, "agent": task.Agent.Name, "position": i + 1, "of": len(tasks)})

		output, err := c.runAgent(ctx, task.Agent, taskPrompt(task, priorOutputs), nil)
		if err != nil {
			err = asTimeout(ctx, err, "task for "+task.Agent.Name, bound)
			task.fail(err)
			logger.ErrorCF("crew", "task failed",
				map[string]any{"task": task.ID, "agent": task.Agent.Name, "error": err.Error()})
			return err
		}

		task.complete(output)
		priorOutputs = append(priorOutputs, output)
	}
	return nil
}

// RunHierarchical hands the task to the manager, whose tool set is extended
// with delegate_work over the worker agents. The loop is bounded by the
// manager's iteration budget and the ctx deadline.
func (c *Crew) RunHierarchical(ctx context.Context, task *Task) error {
	if c.mode != Hierarchical {
		err := &config.ConfigurationError{Field: "crew.mode", Reason: "crew was not built for hierarchical runs"}
		task.fail(err)
		return err
	}
	if task.Agent != nil && task.Agent != c.manager {
		err := &config.ConfigurationError{
			Field:  "crew.agents",
			Reason: fmt.Sprintf("hierarchical task must run under manager %s", c.manager.Name),
		}
		task.fail(err)
		return err
	}
	task.Agent = c.manager

	bound := remainingBound(ctx)
	task.Status = TaskRunning
	logger.InfoCF("crew", "hierarchical task started",
		map[string]any{"task": task.ID, "manager": c.manager.Name, "workers": len(c.agents) - 1})

	delegate := newDelegateTool(c)
	output, err := c.runAgent(ctx, c.manager, taskPrompt(task, nil), []tools.Tool{delegate})
	if err != nil {
		err = asTimeout(ctx, err, "task for "+c.manager.Name, bound)
		task.fail(err)
		return err
	}

	task.complete(output)
	return nil
}

func (c *Crew) checkMember(agent *Agent) error {
	if agent == nil {
		return &config.ConfigurationError{Field: "crew.tasks", Reason: "task has no agent"}
	}
	if member, ok := c.agents[agent.Name]; !ok || member != agent {
		return &config.ConfigurationError{
			Field:  "crew.tasks",
			Reason: fmt.Sprintf("agent %s is not part of this crew", agent.Name),
		}
	}
	return nil
}

// remainingBound samples the ctx deadline at run start so a later
// TimeoutError can report the invocation bound instead of zero.
func remainingBound(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		return time.Until(deadline).Round(time.Millisecond)
	}
	return 0
}

// asTimeout converts a deadline-driven failure into TimeoutError so callers
// see the invocation bound, not the transport detail.
func asTimeout(ctx context.Context, err error, op string, bound time.Duration) error {
	if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return err
	}
	return &TimeoutError{Op: op, Limit: bound}
}

func taskPrompt(task *Task, priorOutputs []string) string {
	var b strings.Builder
	b.WriteString(task.Description)
	if task.ExpectedOutput != "" {
		b.WriteString("\n\nExpected output: ")
		b.WriteString(task.ExpectedOutput)
	}
	if len(priorOutputs) > 0 {
		b.WriteString("\n\nResults from earlier work:\n")
		for i, out := range priorOutputs {
			fmt.Fprintf(&b, "\n--- result %d ---\n%s\n", i+1, out)
		}
	}
	return b.String()
}
