package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataeval/dingomark/pkg/github"
)

func newGitHubStub(t *testing.T, routes map[string]any) *github.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
		}
		json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(srv.Close)
	return github.NewClient("test-token", 100, 10, github.WithBaseURL(srv.URL))
}

func TestGitHubAnalysisUser(t *testing.T) {
	now := time.Now().UTC()
	client := newGitHubStub(t, map[string]any{
		"/users/octocat": map[string]any{
			"login": "octocat", "name": "Octo Cat",
			"followers": 150, "following": 9, "public_repos": 8,
		},
		"/users/octocat/repos": []map[string]any{
			{"name": "dingo", "language": "Python", "stargazers_count": 40},
			{"name": "notes", "language": "Python", "stargazers_count": 2},
			{"name": "site", "language": "JavaScript", "stargazers_count": 5},
		},
		"/users/octocat/events/public": []map[string]any{
			{"type": "PushEvent", "created_at": now.AddDate(0, 0, -2)},
			{"type": "IssuesEvent", "created_at": now.AddDate(0, 0, -90)},
		},
	})

	tool := NewGitHubAnalysisTool(client, "DataEval/dingo")
	report, err := tool.Execute(context.Background(), map[string]any{
		"analysis_type": "user",
		"username":      "octocat",
		"lookback_days": 30,
	})
	require.NoError(t, err)

	assert.Contains(t, report, "User octocat")
	assert.Contains(t, report, "Total stars across 3 scanned repos: 47")
	assert.Contains(t, report, "Python, JavaScript")
	assert.Contains(t, report, "Events in last 30 days: 1")
	assert.Contains(t, report, "worth prioritizing")
	assert.Contains(t, report, "Python developer")
}

func TestGitHubAnalysisRequiresTarget(t *testing.T) {
	client := newGitHubStub(t, nil)
	tool := NewGitHubAnalysisTool(client, "")

	_, err := tool.Execute(context.Background(), map[string]any{"analysis_type": "user"})
	require.Error(t, err)

	_, err = tool.Execute(context.Background(), map[string]any{"analysis_type": "repo"})
	require.Error(t, err)

	_, err = tool.Execute(context.Background(), map[string]any{"analysis_type": "community"})
	require.Error(t, err)

	_, err = tool.Execute(context.Background(), map[string]any{"analysis_type": "orbit"})
	require.Error(t, err)
}

func TestGitHubAnalysisCommunity(t *testing.T) {
	now := time.Now().UTC()
	client := newGitHubStub(t, map[string]any{
		"/repos/DataEval/dingo": map[string]any{
			"full_name": "DataEval/dingo", "stargazers_count": 900,
			"forks_count": 60, "open_issues_count": 12,
		},
		"/repos/DataEval/dingo/issues": []map[string]any{
			{"number": 1, "created_at": now.AddDate(0, 0, -1), "user": map[string]any{"login": "alice"}},
			{"number": 2, "created_at": now.AddDate(0, 0, -3), "user": map[string]any{"login": "bob"}},
			{"number": 3, "created_at": now.AddDate(0, 0, -200), "user": map[string]any{"login": "alice"}},
		},
	})

	tool := NewGitHubAnalysisTool(client, "DataEval/dingo")
	report, err := tool.Execute(context.Background(), map[string]any{
		"analysis_type": "community",
	})
	require.NoError(t, err)
	assert.Contains(t, report, "Community DataEval/dingo")
	assert.Contains(t, report, "participants (recent sample): 2")
	assert.Contains(t, report, "Issues opened in last 30 days: 2")
}

func TestGitHubInteractionComment(t *testing.T) {
	client := newGitHubStub(t, map[string]any{
		"/repos/DataEval/dingo/issues/7/comments": map[string]any{
			"id": 1, "html_url": "https://github.com/DataEval/dingo/issues/7#issuecomment-1",
		},
	})
	budget := NewPostBudget(10, 0)
	tool := NewGitHubInteractionTool(client, "DataEval/dingo", budget)

	result, err := tool.Execute(context.Background(), map[string]any{
		"interaction_type": "comment",
		"target_id":        7,
		"content":          "Thanks for the report, we are looking into it.",
	})
	require.NoError(t, err)
	assert.Contains(t, result, "issue #7")
}

func TestGitHubInteractionIssueSplitsTitle(t *testing.T) {
	client := newGitHubStub(t, map[string]any{
		"/repos/DataEval/dingo/issues": map[string]any{"number": 42},
	})
	tool := NewGitHubInteractionTool(client, "DataEval/dingo", NewPostBudget(10, 0))

	result, err := tool.Execute(context.Background(), map[string]any{
		"interaction_type": "issue",
		"content":          "# Community call for feedback\nWe would love to hear how you use the tool.",
	})
	require.NoError(t, err)
	assert.Contains(t, result, "issue #42")
	assert.Contains(t, result, "Community call for feedback")
}

func TestGitHubInteractionValidation(t *testing.T) {
	tool := NewGitHubInteractionTool(newGitHubStub(t, nil), "DataEval/dingo", NewPostBudget(10, 0))

	_, err := tool.Execute(context.Background(), map[string]any{
		"interaction_type": "comment",
		"content":          "hi",
	})
	require.Error(t, err, "comment without target_id")

	_, err = tool.Execute(context.Background(), map[string]any{
		"interaction_type": "issue",
	})
	require.Error(t, err, "empty content")

	_, err = tool.Execute(context.Background(), map[string]any{
		"interaction_type": "star",
		"content":          "x",
	})
	require.Error(t, err, "unsupported interaction")
}

func TestPostBudgetDailyCap(t *testing.T) {
	b := NewPostBudget(2, 0)
	require.NoError(t, b.Allow())
	b.Commit()
	require.NoError(t, b.Allow())
	b.Commit()

	err := b.Allow()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daily post limit")
}

func TestPostBudgetMinInterval(t *testing.T) {
	b := NewPostBudget(10, time.Hour)
	current := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return current }

	require.NoError(t, b.Allow())
	b.Commit()

	current = current.Add(10 * time.Minute)
	err := b.Allow()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval")

	current = current.Add(55 * time.Minute)
	require.NoError(t, b.Allow())
}

func TestPostBudgetResetsAtDayBoundary(t *testing.T) {
	b := NewPostBudget(1, 0)
	current := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return current }

	require.NoError(t, b.Allow())
	b.Commit()
	require.Error(t, b.Allow())

	current = current.Add(2 * time.Hour)
	require.NoError(t, b.Allow())
}

func TestPostBudgetAllowConsumesNothing(t *testing.T) {
	b := NewPostBudget(1, time.Hour)

	// Allow alone never spends the slot or starts the interval clock.
	require.NoError(t, b.Allow())
	require.NoError(t, b.Allow())

	b.Commit()
	require.Error(t, b.Allow())
}

func TestFailedPostDoesNotBurnBudget(t *testing.T) {
	var posts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts++
		if posts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"number": 9})
	}))
	t.Cleanup(srv.Close)
	client := github.NewClient("test-token", 100, 10, github.WithBaseURL(srv.URL))

	tool := NewGitHubInteractionTool(client, "DataEval/dingo", NewPostBudget(1, time.Hour))
	args := map[string]any{
		"interaction_type": "issue",
		"content":          "# Heads up\nA failed attempt must not count against the budget.",
	}

	_, err := tool.Execute(context.Background(), args)
	require.Error(t, err)

	// Immediate retry by the caller: the slot and interval are untouched.
	result, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)
	assert.Contains(t, result, "issue #9")

	// Only the successful post consumed the daily slot.
	_, err = tool.Execute(context.Background(), args)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")
}
