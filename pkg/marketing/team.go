package marketing

import (
	"time"

	"github.com/dataeval/dingomark/pkg/config"
	"github.com/dataeval/dingomark/pkg/crew"
	"github.com/dataeval/dingomark/pkg/github"
	"github.com/dataeval/dingomark/pkg/providers"
	"github.com/dataeval/dingomark/pkg/tools"
)

// Agent names are the stable identifiers the routing table and the
// delegation tool refer to.
const (
	AgentDataAnalyst         = "data_analyst"
	AgentContentCreator      = "content_creator"
	AgentCommunityManager    = "community_manager"
	AgentMarketingStrategist = "marketing_strategist"
)

// BuildRegistry wires the five marketing tools against the configured
// GitHub client and LLM provider.
func BuildRegistry(cfg *config.Config, provider providers.LLMProvider, gh *github.Client) (*tools.Registry, error) {
	retry := providers.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay(),
	}
	registry := tools.NewRegistry(retry)

	budget := tools.NewPostBudget(
		cfg.Campaign.MaxDailyPosts,
		time.Duration(cfg.Campaign.MinIntervalMinutes)*time.Minute,
	)

	all := []tools.Tool{
		tools.NewGitHubAnalysisTool(gh, cfg.GitHub.Repository),
		tools.NewGitHubInteractionTool(gh, cfg.GitHub.Repository, budget),
		tools.NewContentGenerationTool(provider, cfg.LLM.Model),
		tools.NewContentOptimizationTool(provider, cfg.LLM.Model),
		tools.NewContentAnalysisTool(provider, cfg.LLM.Model),
	}
	for _, tool := range all {
		if err := registry.Register(tool); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// buildAgents creates the four-member team. The strategist is the only
// delegation-enabled agent and gets the full tool set; the others carry the
// tools their role needs.
func buildAgents(registry *tools.Registry) (map[string]*crew.Agent, error) {
	analystTools, err := registry.ByNames("github_analysis")
	if err != nil {
		return nil, err
	}
	creatorTools, err := registry.ByNames("content_generation", "content_optimization", "content_analysis")
	if err != nil {
		return nil, err
	}
	managerTools, err := registry.ByNames("github_interaction", "github_analysis")
	if err != nil {
		return nil, err
	}
	strategistTools, err := registry.ByNames(registry.Names()...)
	if err != nil {
		return nil, err
	}

	return map[string]*crew.Agent{
		AgentDataAnalyst: {
			Name: AgentDataAnalyst,
			Role: "a data analyst",
			Goal: "analyze GitHub user behavior and community trends to ground marketing decisions in data",
			Backstory: "You have spent years studying open-source communities. You dig insights out of " +
				"GitHub activity, spot promising target users, and turn raw numbers into advice the team can act on.",
			Tools:         analystTools,
			MaxIterations: 3,
		},
		AgentContentCreator: {
			Name: AgentContentCreator,
			Role: "a content creator",
			Goal: "produce technical content and marketing material that draws the target audience in",
			Backstory: "You write blog posts, tutorials and campaign copy that developers actually want to read. " +
				"You know the voice of technical communities and balance depth with approachability.",
			Tools:         creatorTools,
			MaxIterations: 3,
		},
		AgentCommunityManager: {
			Name: AgentCommunityManager,
			Goal: "manage community interactions and grow awareness of and participation in the project",
			Role: "a community manager",
			Backstory: "You look after the project's open-source community: answering on GitHub, joining " +
				"discussions, and building relationships so every user feels heard.",
			Tools:         managerTools,
			MaxIterations: 3,
		},
		AgentMarketingStrategist: {
			Name: AgentMarketingStrategist,
			Role: "a marketing strategist",
			Goal: "define and execute marketing strategy, coordinating the team toward its goals",
			Backstory: "You run marketing for open-source projects. You synthesize data, content and community " +
				"signals into plans, and you delegate work to the right specialist at the right time.",
			Tools:           strategistTools,
			AllowDelegation: true,
			MaxIterations:   5,
		},
	}, nil
}
