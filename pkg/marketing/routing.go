package marketing

import (
	"fmt"

	"github.com/dataeval/dingomark/pkg/config"
	"github.com/dataeval/dingomark/pkg/crew"
)

// Operation is the closed set of things the service can be asked to do.
// Routing from operation to agent sequence is a fixed table validated at
// startup, not free-form dispatch.
type Operation string

const (
	OpAnalyzeUsers    Operation = "analyze_users"
	OpContentCampaign Operation = "content_campaign"
	OpEngagement      Operation = "community_engagement"
	OpComprehensive   Operation = "comprehensive_campaign"
	OpGenerateContent Operation = "generate_content"
)

type route struct {
	agents []string
	mode   crew.Mode
}

var routingTable = map[Operation]route{
	OpAnalyzeUsers:    {agents: []string{AgentDataAnalyst}, mode: crew.Sequential},
	OpContentCampaign: {agents: []string{AgentMarketingStrategist, AgentContentCreator}, mode: crew.Sequential},
	OpEngagement:      {agents: []string{AgentDataAnalyst, AgentCommunityManager}, mode: crew.Sequential},
	OpComprehensive:   {agents: []string{AgentMarketingStrategist}, mode: crew.Hierarchical},
	// OpGenerateContent bypasses the crew and calls the generation tool
	// directly; it has no route entry.
}

// taskSpec is one rendered task description with its expected output. The
// agent binding comes from the routing table, never from the caller.
type taskSpec struct {
	description    string
	expectedOutput string
}

// routedTasks binds one task per spec to the agents the routing table
// names for the operation, in table order.
func (s *Service) routedTasks(op Operation, specs ...taskSpec) ([]*crew.Task, error) {
	r, ok := routingTable[op]
	if !ok {
		return nil, &config.ConfigurationError{
			Field:  "routing",
			Reason: fmt.Sprintf("operation %s has no route", op),
		}
	}
	if len(specs) != len(r.agents) {
		return nil, &config.ConfigurationError{
			Field:  "routing",
			Reason: fmt.Sprintf("operation %s routes to %d agents, got %d tasks", op, len(r.agents), len(specs)),
		}
	}
	tasks := make([]*crew.Task, len(specs))
	for i, spec := range specs {
		tasks[i] = crew.NewTask(spec.description, spec.expectedOutput, s.agents[r.agents[i]])
	}
	return tasks, nil
}

// ParseOperation validates an operation name from the outside world.
func ParseOperation(s string) (Operation, error) {
	switch Operation(s) {
	case OpAnalyzeUsers, OpContentCampaign, OpEngagement, OpComprehensive, OpGenerateContent:
		return Operation(s), nil
	}
	return "", &crew.ValidationError{Field: "operation", Reason: fmt.Sprintf("unknown operation %q", s)}
}

// validateRouting checks at startup that every routed agent exists.
func validateRouting(agents map[string]*crew.Agent) error {
	for op, r := range routingTable {
		if len(r.agents) == 0 {
			return &config.ConfigurationError{
				Field:  "routing",
				Reason: fmt.Sprintf("operation %s has no agents", op),
			}
		}
		for _, name := range r.agents {
			if _, ok := agents[name]; !ok {
				return &config.ConfigurationError{
					Field:  "routing",
					Reason: fmt.Sprintf("operation %s routes to unknown agent %s", op, name),
				}
			}
		}
		if r.mode == crew.Hierarchical {
			if len(r.agents) != 1 || !agents[r.agents[0]].AllowDelegation {
				return &config.ConfigurationError{
					Field:  "routing",
					Reason: fmt.Sprintf("hierarchical operation %s must route to the delegation-enabled agent", op),
				}
			}
		}
	}
	return nil
}
