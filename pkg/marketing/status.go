package marketing

import (
	"sort"
	"time"
)

type AgentStatus struct {
	Role  string   `json:"role"`
	Goal  string   `json:"goal"`
	Tools []string `json:"tools"`
}

type TeamStatus struct {
	Agents      map[string]AgentStatus `json:"agents"`
	Tools       []string               `json:"tools"`
	Status      string                 `json:"status"`
	LastUpdated time.Time              `json:"last_updated"`
}

// Status reports the team composition: who is on it, what each member is
// for, and which tools they carry.
func (s *Service) Status() TeamStatus {
	agents := make(map[string]AgentStatus, len(s.agents))
	for name, agent := range s.agents {
		toolNames := make([]string, 0, len(agent.Tools))
		for _, tool := range agent.Tools {
			toolNames = append(toolNames, tool.Name())
		}
		sort.Strings(toolNames)
		agents[name] = AgentStatus{
			Role:  agent.Role,
			Goal:  agent.Goal,
			Tools: toolNames,
		}
	}
	return TeamStatus{
		Agents:      agents,
		Tools:       s.registry.Names(),
		Status:      "ready",
		LastUpdated: time.Now().UTC(),
	}
}
