package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataeval/dingomark/pkg/config"
	"github.com/dataeval/dingomark/pkg/crew"
	"github.com/dataeval/dingomark/pkg/github"
	"github.com/dataeval/dingomark/pkg/marketing"
	"github.com/dataeval/dingomark/pkg/providers"
	"github.com/dataeval/dingomark/pkg/store"
	"github.com/dataeval/dingomark/pkg/tools"
)

type cannedLLM struct{ content string }

func (c *cannedLLM) Chat(ctx context.Context, messages []providers.Message, toolDefs []providers.ToolDefinition, model string, options map[string]any) (*providers.LLMResponse, error) {
	return &providers.LLMResponse{Content: c.content, FinishReason: "stop"}, nil
}

func (c *cannedLLM) GetDefaultModel() string { return "canned" }

func newTestAPI(t *testing.T, apiKey string) (*httptest.Server, *store.Store) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Retry.MaxAttempts = 1
	cfg.Campaign.TimeoutSeconds = 30

	llm := &cannedLLM{content: "octocat is a strong advocate for the project"}
	registry, err := marketing.BuildRegistry(cfg, llm, github.NewClient("unused", 10, 1))
	require.NoError(t, err)

	st, err := store.New(filepath.Join(t.TempDir(), "gateway.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc, err := marketing.NewService(cfg, llm, registry, st)
	require.NoError(t, err)

	api := NewAPIServer(svc, st, apiKey)
	ts := httptest.NewServer(api.Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, Envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func TestHealthIsPublic(t *testing.T) {
	ts, _ := newTestAPI(t, "secret")

	resp, env := doJSON(t, http.MethodGet, ts.URL+"/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.Timestamp)

	_, err := time.Parse(time.RFC3339, env.Timestamp)
	assert.NoError(t, err)
}

func TestAuthRequiredOnProtectedRoutes(t *testing.T) {
	ts, _ := newTestAPI(t, "secret")

	resp, env := doJSON(t, http.MethodGet, ts.URL+"/api/v1/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, env.Success)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/v1/status", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, env = doJSON(t, http.MethodGet, ts.URL+"/api/v1/status", "secret", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
}

func TestOpenModeWhenNoKeyConfigured(t *testing.T) {
	ts, _ := newTestAPI(t, "")

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/v1/status", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAnalyzeUsersEndpoint(t *testing.T) {
	ts, st := newTestAPI(t, "")

	resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/v1/analyze/users", "",
		map[string]any{"user_list": []string{"octocat"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	data, err := json.Marshal(env.Data)
	require.NoError(t, err)
	assert.Contains(t, string(data), "octocat is a strong advocate")

	runs, err := st.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunCompleted, runs[0].Status)
}

func TestValidationErrorsMapTo400(t *testing.T) {
	ts, _ := newTestAPI(t, "")

	resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/v1/analyze/users", "",
		map[string]any{"user_list": []string{}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "user_list")

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/campaigns/content", "",
		map[string]any{"name": "x", "target_audience": "devs", "topics": []string{"q"},
			"content_types": []string{"billboard"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMalformedBodyIs400(t *testing.T) {
	ts, _ := newTestAPI(t, "")

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/analyze/users",
		bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusForMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&crew.ValidationError{Field: "x", Reason: "y"}, http.StatusBadRequest},
		{&crew.TimeoutError{Op: "campaign", Limit: time.Second}, http.StatusGatewayTimeout},
		{&tools.ToolExecutionError{ToolName: "github_analysis", Err: errors.New("boom")}, http.StatusBadGateway},
		{&providers.ProviderError{Reason: providers.ReasonTransient, Wrapped: errors.New("reset")}, http.StatusBadGateway},
		{&config.ConfigurationError{Field: "crew", Reason: "bad"}, http.StatusInternalServerError},
		{errors.New("something else"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), "error %v", tc.err)
	}
}

func TestScheduleLifecycle(t *testing.T) {
	ts, _ := newTestAPI(t, "")

	resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/v1/schedules", "",
		map[string]any{
			"name":      "weekly analysis",
			"operation": "analyze_users",
			"cron_expr": "0 8 * * 1",
			"request":   map[string]any{"user_list": []string{"octocat"}},
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, env.Success)

	var created store.Schedule
	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.NotEmpty(t, created.ID)
	require.NotNil(t, created.NextRunAt)
	assert.True(t, created.NextRunAt.After(time.Now()))

	resp, env = doJSON(t, http.MethodGet, ts.URL+"/api/v1/schedules", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err = json.Marshal(env.Data)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "weekly analysis")

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/schedules/"+created.ID, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/schedules/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestScheduleRejectsBadCronAndOperation(t *testing.T) {
	ts, _ := newTestAPI(t, "")

	resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/v1/schedules", "",
		map[string]any{"name": "x", "operation": "analyze_users", "cron_expr": "not a cron"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, env.Error, "cron")

	resp, env = doJSON(t, http.MethodPost, ts.URL+"/api/v1/schedules", "",
		map[string]any{"name": "x", "operation": "launch_rockets", "cron_expr": "@daily"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, env.Error, "operation")
}

func TestRunsEndpointValidatesLimit(t *testing.T) {
	ts, _ := newTestAPI(t, "")

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/v1/runs?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env := doJSON(t, http.MethodGet, ts.URL+"/api/v1/runs?limit=5", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
}
