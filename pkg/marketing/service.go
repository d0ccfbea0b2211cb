// Package marketing wires the agent team, the routing table and the
// persistence behind the campaign operations.
package marketing

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dataeval/dingomark/pkg/config"
	"github.com/dataeval/dingomark/pkg/crew"
	"github.com/dataeval/dingomark/pkg/logger"
	"github.com/dataeval/dingomark/pkg/providers"
	"github.com/dataeval/dingomark/pkg/store"
	"github.com/dataeval/dingomark/pkg/tools"
)

type Service struct {
	registry     *tools.Registry
	agents       map[string]*crew.Agent
	sequential   *crew.Crew
	hierarchical *crew.Crew
	store        *store.Store
	timeout      time.Duration
}

func NewService(cfg *config.Config, provider providers.LLMProvider, registry *tools.Registry, st *store.Store) (*Service, error) {
	agents, err := buildAgents(registry)
	if err != nil {
		return nil, err
	}
	if err := validateRouting(agents); err != nil {
		return nil, err
	}

	members := make([]*crew.Agent, 0, len(agents))
	for _, a := range agents {
		members = append(members, a)
	}

	opts := crew.Options{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Retry: providers.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay(),
		},
	}

	sequential, err := crew.NewCrew(members, crew.Sequential, provider, opts)
	if err != nil {
		return nil, err
	}
	hierarchical, err := crew.NewCrew(members, crew.Hierarchical, provider, opts)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Campaign.Timeout()
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	logger.InfoCF("marketing", "marketing team initialized",
		map[string]any{"agents": len(agents), "tools": len(registry.Names())})

	return &Service{
		registry:     registry,
		agents:       agents,
		sequential:   sequential,
		hierarchical: hierarchical,
		store:        st,
		timeout:      timeout,
	}, nil
}

// TaskReport is the per-task slice of an operation result.
type TaskReport struct {
	ID     string `json:"id"`
	Agent  string `json:"agent"`
	Status string `json:"status"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

type OperationResult struct {
	RunID       string        `json:"run_id"`
	Operation   Operation     `json:"operation"`
	Result      string        `json:"result"`
	TaskOutputs []TaskReport  `json:"task_outputs,omitempty"`
	Duration    time.Duration `json:"duration"`
}

const userAnalysisTemplate = `Analyze the following GitHub users and produce a report for each one.
Users: {users}
Analysis depth: {depth}

For each user cover:
1. Technical background and areas of interest
2. Activity and influence assessment
3. Relevance to our data-quality project
4. A recommended engagement strategy

Finish with a combined target-user profile and marketing recommendations. Reply in {language}.`

func (s *Service) AnalyzeTargetUsers(ctx context.Context, req *UserAnalysisRequest) (*OperationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	desc, err := crew.RenderTemplate(userAnalysisTemplate, map[string]string{
		"users":    strings.Join(req.Users, ", "),
		"depth":    req.Depth,
		"language": req.Language,
	})
	if err != nil {
		return nil, err
	}
	tasks, err := s.routedTasks(OpAnalyzeUsers,
		taskSpec{desc, "a detailed analysis per user plus combined recommendations"})
	if err != nil {
		return nil, err
	}
	return s.runSequential(ctx, OpAnalyzeUsers, req, tasks)
}

const contentStrategyTemplate = `Create a content marketing strategy for the following campaign.
Campaign name: {name}
Target audience: {audience}
Topics: {topics}
Content types: {content_types}
Duration: {duration}
Keywords: {keywords}

The strategy must include:
1. A content calendar and publishing plan
2. Concrete requirements per content type
3. An SEO keyword strategy
4. A social media promotion plan`

const contentCreationTemplate = `Following the strategist's plan, create the campaign content:

1. A technical blog post on "{primary_topic}"
2. Three to five social media posts
3. One email marketing template

All content must target {audience}, show the project's value, carry real technical depth, and be optimized for search.`

func (s *Service) CreateContentCampaign(ctx context.Context, req *ContentCampaignRequest) (*OperationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	strategyDesc, err := crew.RenderTemplate(contentStrategyTemplate, map[string]string{
		"name":          req.Name,
		"audience":      req.TargetAudience,
		"topics":        strings.Join(req.Topics, ", "),
		"content_types": strings.Join(req.ContentTypes, ", "),
		"duration":      req.Duration,
		"keywords":      orNone(strings.Join(req.Keywords, ", ")),
	})
	if err != nil {
		return nil, err
	}
	creationDesc, err := crew.RenderTemplate(contentCreationTemplate, map[string]string{
		"primary_topic": req.Topics[0],
		"audience":      req.TargetAudience,
	})
	if err != nil {
		return nil, err
	}

	tasks, err := s.routedTasks(OpContentCampaign,
		taskSpec{strategyDesc, "a content strategy and execution plan"},
		taskSpec{creationDesc, "a complete content package: blog post, social posts and email template"})
	if err != nil {
		return nil, err
	}
	return s.runSequential(ctx, OpContentCampaign, req, tasks)
}

const communityAnalysisTemplate = `Assess the current state of the project's GitHub community:

1. Overall community activity
2. Active contributors and users
3. Recent issues and discussions
4. Community health and engagement

Close with concrete engagement suggestions.`

const engagementTemplate = `Using the community analysis, run the engagement activity:

1. Respond to recent issues and discussions
2. Interact with active users
3. Share useful technical pointers
4. Invite users to contribute

Interaction types: {interaction_types}
Target interactions: {target_count}
Engagement level: {level}

Every interaction must be genuine and add value for the recipient.`

func (s *Service) ExecuteCommunityEngagement(ctx context.Context, req *EngagementRequest) (*OperationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	engagementDesc, err := crew.RenderTemplate(engagementTemplate, map[string]string{
		"interaction_types": strings.Join(req.InteractionTypes, ", "),
		"target_count":      strconv.Itoa(req.TargetCount),
		"level":             req.Level,
	})
	if err != nil {
		return nil, err
	}

	tasks, err := s.routedTasks(OpEngagement,
		taskSpec{communityAnalysisTemplate, "a community status report with engagement suggestions"},
		taskSpec{engagementDesc, "an engagement report listing every interaction performed"})
	if err != nil {
		return nil, err
	}
	return s.runSequential(ctx, OpEngagement, req, tasks)
}

const comprehensiveTemplate = `Run a comprehensive marketing campaign end to end:

1. Analysis: profile the target users, assess project status, find marketing opportunities.
2. Content: create a technical blog post, social media posts and email material.
3. Community: engage target users, join relevant discussions, build relationships.
4. Review: summarize what was done and how to improve.

Campaign name: {name}
Objectives: {objectives}
Target audience: {audience}
Duration: {duration}
Budget level: {budget}
Priority channels: {channels}

Delegate the specialist work to your team and coordinate the phases.`

func (s *Service) RunComprehensiveCampaign(ctx context.Context, req *ComprehensiveRequest) (*OperationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	desc, err := crew.RenderTemplate(comprehensiveTemplate, map[string]string{
		"name":       req.Name,
		"objectives": strings.Join(req.Objectives, ", "),
		"audience":   req.TargetAudience,
		"duration":   req.Duration,
		"budget":     req.BudgetLevel,
		"channels":   strings.Join(req.PriorityChannels, ", "),
	})
	if err != nil {
		return nil, err
	}

	task := crew.NewTask(desc,
		"a campaign execution report covering every phase",
		nil)

	runID := uuid.NewString()
	if err := s.startRun(runID, OpComprehensive, req); err != nil {
		return nil, err
	}
	started := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	runErr := s.hierarchical.RunHierarchical(runCtx, task)
	result := &OperationResult{
		RunID:       runID,
		Operation:   OpComprehensive,
		TaskOutputs: taskReports([]*crew.Task{task}),
		Duration:    time.Since(started),
	}
	if runErr != nil {
		s.failRun(runID, runErr)
		return nil, runErr
	}
	result.Result = task.Output
	s.finishRun(runID, result.Result)
	return result, nil
}

// GenerateContent skips the crew and drives the generation tool directly.
func (s *Service) GenerateContent(ctx context.Context, req *GenerateContentRequest) (*OperationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	if err := s.startRun(runID, OpGenerateContent, req); err != nil {
		return nil, err
	}
	started := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	output, err := s.registry.Execute(runCtx, "content_generation", map[string]any{
		"content_type":    req.ContentType,
		"topic":           req.Topic,
		"target_audience": req.TargetAudience,
		"tone":            req.Tone,
		"length":          req.Length,
		"language":        req.Language,
		"keywords":        strings.Join(req.Keywords, ", "),
	})
	if err != nil {
		s.failRun(runID, err)
		return nil, err
	}

	s.finishRun(runID, output)
	return &OperationResult{
		RunID:     runID,
		Operation: OpGenerateContent,
		Result:    output,
		Duration:  time.Since(started),
	}, nil
}

// ExecuteOperation dispatches a stored request by operation name. The
// scheduler uses it to replay persisted schedule payloads.
func (s *Service) ExecuteOperation(ctx context.Context, op Operation, requestJSON []byte) (*OperationResult, error) {
	switch op {
	case OpAnalyzeUsers:
		var req UserAnalysisRequest
		if err := unmarshalRequest(requestJSON, &req); err != nil {
			return nil, err
		}
		return s.AnalyzeTargetUsers(ctx, &req)
	case OpContentCampaign:
		var req ContentCampaignRequest
		if err := unmarshalRequest(requestJSON, &req); err != nil {
			return nil, err
		}
		return s.CreateContentCampaign(ctx, &req)
	case OpEngagement:
		var req EngagementRequest
		if err := unmarshalRequest(requestJSON, &req); err != nil {
			return nil, err
		}
		return s.ExecuteCommunityEngagement(ctx, &req)
	case OpComprehensive:
		var req ComprehensiveRequest
		if err := unmarshalRequest(requestJSON, &req); err != nil {
			return nil, err
		}
		return s.RunComprehensiveCampaign(ctx, &req)
	case OpGenerateContent:
		var req GenerateContentRequest
		if err := unmarshalRequest(requestJSON, &req); err != nil {
			return nil, err
		}
		return s.GenerateContent(ctx, &req)
	}
	return nil, &crew.ValidationError{Field: "operation", Reason: "unknown operation " + string(op)}
}

func (s *Service) Runs(limit int) ([]store.Run, error) {
	return s.store.ListRuns(limit)
}

func (s *Service) runSequential(ctx context.Context, op Operation, req any, tasks []*crew.Task) (*OperationResult, error) {
	runID := uuid.NewString()
	if err := s.startRun(runID, op, req); err != nil {
		return nil, err
	}
	started := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	runErr := s.sequential.RunSequential(runCtx, tasks)
	result := &OperationResult{
		RunID:       runID,
		Operation:   op,
		TaskOutputs: taskReports(tasks),
		Duration:    time.Since(started),
	}
	if runErr != nil {
		s.failRun(runID, runErr)
		return nil, runErr
	}
	result.Result = tasks[len(tasks)-1].Output
	s.finishRun(runID, result.Result)
	return result, nil
}

func (s *Service) startRun(runID string, op Operation, req any) error {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return err
	}
	logger.InfoCF("marketing", "operation started",
		map[string]any{"run_id": runID, "operation": string(op)})
	return s.store.StartRun(runID, string(op), string(reqJSON))
}

func (s *Service) finishRun(runID, result string) {
	if err := s.store.FinishRun(runID, result); err != nil {
		logger.ErrorCF("marketing", "failed to record run completion",
			map[string]any{"run_id": runID, "error": err.Error()})
	}
}

func (s *Service) failRun(runID string, runErr error) {
	logger.ErrorCF("marketing", "operation failed",
		map[string]any{"run_id": runID, "error": runErr.Error()})
	if err := s.store.FailRun(runID, runErr.Error()); err != nil {
		logger.ErrorCF("marketing", "failed to record run failure",
			map[string]any{"run_id": runID, "error": err.Error()})
	}
}

func taskReports(tasks []*crew.Task) []TaskReport {
	reports := make([]TaskReport, 0, len(tasks))
	for _, t := range tasks {
		r := TaskReport{
			ID:     t.ID,
			Status: string(t.Status),
			Output: t.Output,
		}
		if t.Agent != nil {
			r.Agent = t.Agent.Name
		}
		if t.Err != nil {
			r.Error = t.Err.Error()
		}
		reports = append(reports, r)
	}
	return reports
}

func unmarshalRequest(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return &crew.ValidationError{Field: "request", Reason: "malformed request payload: " + err.Error()}
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

