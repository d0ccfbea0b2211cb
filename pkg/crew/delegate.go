package crew

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// delegateTool lets the manager hand a sub-task to a worker agent by name.
// It exists only for the duration of a hierarchical run; workers never see
// it, and the manager cannot delegate to itself.
type delegateTool struct {
	crew *Crew
}

func newDelegateTool(c *Crew) *delegateTool {
	return &delegateTool{crew: c}
}

func (d *delegateTool) Name() string { return "delegate_work" }

func (d *delegateTool) Description() string {
	workers := d.workerNames()
	return fmt.Sprintf("Delegate a sub-task to one of your team members: %s. The worker runs the task with its own tools and returns its result.",
		strings.Join(workers, ", "))
}

func (d *delegateTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent": map[string]any{
				"type":        "string",
				"enum":        d.workerNames(),
				"description": "Name of the team member to delegate to",
			},
			"task": map[string]any{
				"type":        "string",
				"description": "What the team member should do",
			},
			"context": map[string]any{
				"type":        "string",
				"description": "Relevant findings so far, so the worker has what it needs",
			},
		},
		"required": []string{"agent", "task"},
	}
}

func (d *delegateTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	name, _ := args["agent"].(string)
	taskText, _ := args["task"].(string)
	if taskText == "" {
		return "", fmt.Errorf("delegation requires a task description")
	}

	worker, ok := d.crew.agents[name]
	if !ok {
		return "", fmt.Errorf("unknown team member %q, available: %s",
			name, strings.Join(d.workerNames(), ", "))
	}
	if worker == d.crew.manager {
		return "", fmt.Errorf("%q is the manager and cannot be a delegation target", name)
	}

	prompt := taskText
	if extra, _ := args["context"].(string); extra != "" {
		prompt += "\n\nContext from the manager:\n" + extra
	}
	return d.crew.runAgent(ctx, worker, prompt, nil)
}

func (d *delegateTool) workerNames() []string {
	names := make([]string, 0, len(d.crew.agents))
	for name, agent := range d.crew.agents {
		if agent == d.crew.manager {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
