package crew

import "github.com/google/uuid"

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Task is one unit of agent work. Tasks are created per invocation, owned
// by it, and never reused across runs.
type Task struct {
	ID             string
	Description    string
	ExpectedOutput string
	Agent          *Agent
	Status         TaskStatus
	Output         string
	Err            error
}

func NewTask(description, expectedOutput string, agent *Agent) *Task {
	return &Task{
		ID:             uuid.NewString(),
		Description:    description,
		ExpectedOutput: expectedOutput,
		Agent:          agent,
		Status:         TaskPending,
	}
}

func (t *Task) complete(output string) {
	t.Status = TaskCompleted
	t.Output = output
}

func (t *Task) fail(err error) {
	t.Status = TaskFailed
	t.Err = err
}
