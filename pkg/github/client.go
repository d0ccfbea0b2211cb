// Package github is a thin adapter over the GitHub REST API for the calls
// the marketing tools need: user/repo reads and issue/comment writes. All
// requests pass through a shared rate limiter and errors are classified so
// callers can tell transient failures from authorization or not-found ones.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/dataeval/dingomark/pkg/logger"
	"github.com/dataeval/dingomark/pkg/providers"
)

const defaultBaseURL = "https://api.github.com"

type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type Option func(*Client)

// WithBaseURL points the client at a non-default API host (tests, GHE).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient builds a GitHub client. requestsPerSecond and burst gate every
// outbound call so campaign bursts stay inside GitHub's rate limits.
func NewClient(token string, requestsPerSecond float64, burst int, opts ...Option) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	if burst < 1 {
		burst = 1
	}
	c := &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type User struct {
	Login       string     `json:"login"`
	Name        string     `json:"name"`
	Bio         string     `json:"bio"`
	Company     string     `json:"company"`
	Location    string     `json:"location"`
	Followers   int        `json:"followers"`
	Following   int        `json:"following"`
	PublicRepos int        `json:"public_repos"`
	CreatedAt   *time.Time `json:"created_at"`
}

type Repository struct {
	Name            string    `json:"name"`
	FullName        string    `json:"full_name"`
	Description     string    `json:"description"`
	Language        string    `json:"language"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	OpenIssuesCount int       `json:"open_issues_count"`
	Topics          []string  `json:"topics"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Event struct {
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Repo      struct {
		Name string `json:"name"`
	} `json:"repo"`
}

type Issue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	Body      string    `json:"body"`
	HTMLURL   string    `json:"html_url"`
	Comments  int       `json:"comments"`
	CreatedAt time.Time `json:"created_at"`
	User      struct {
		Login string `json:"login"`
	} `json:"user"`
}

type Comment struct {
	ID      int64  `json:"id"`
	Body    string `json:"body"`
	HTMLURL string `json:"html_url"`
}

func (c *Client) GetUser(ctx context.Context, username string) (*User, error) {
	var u User
	if err := c.get(ctx, fmt.Sprintf("/users/%s", username), &u); err != nil {
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}
	return &u, nil
}

func (c *Client) ListUserRepos(ctx context.Context, username string, limit int) ([]Repository, error) {
	var repos []Repository
	path := fmt.Sprintf("/users/%s/repos?sort=updated&per_page=%d", username, clampPerPage(limit))
	if err := c.get(ctx, path, &repos); err != nil {
		return nil, fmt.Errorf("list repos for %s: %w", username, err)
	}
	return repos, nil
}

func (c *Client) ListUserEvents(ctx context.Context, username string, limit int) ([]Event, error) {
	var events []Event
	path := fmt.Sprintf("/users/%s/events/public?per_page=%d", username, clampPerPage(limit))
	if err := c.get(ctx, path, &events); err != nil {
		return nil, fmt.Errorf("list events for %s: %w", username, err)
	}
	return events, nil
}

func (c *Client) GetRepository(ctx context.Context, fullName string) (*Repository, error) {
	var r Repository
	if err := c.get(ctx, fmt.Sprintf("/repos/%s", fullName), &r); err != nil {
		return nil, fmt.Errorf("get repository %s: %w", fullName, err)
	}
	return &r, nil
}

func (c *Client) ListIssues(ctx context.Context, fullName string, limit int) ([]Issue, error) {
	var issues []Issue
	path := fmt.Sprintf("/repos/%s/issues?state=all&sort=updated&per_page=%d", fullName, clampPerPage(limit))
	if err := c.get(ctx, path, &issues); err != nil {
		return nil, fmt.Errorf("list issues for %s: %w", fullName, err)
	}
	return issues, nil
}

func (c *Client) CreateIssue(ctx context.Context, fullName, title, body string) (*Issue, error) {
	var issue Issue
	payload := map[string]string{"title": title, "body": body}
	if err := c.post(ctx, fmt.Sprintf("/repos/%s/issues", fullName), payload, &issue); err != nil {
		return nil, fmt.Errorf("create issue in %s: %w", fullName, err)
	}
	return &issue, nil
}

func (c *Client) CreateIssueComment(ctx context.Context, fullName string, issueNumber int, body string) (*Comment, error) {
	var comment Comment
	payload := map[string]string{"body": body}
	path := fmt.Sprintf("/repos/%s/issues/%d/comments", fullName, issueNumber)
	if err := c.post(ctx, path, payload, &comment); err != nil {
		return nil, fmt.Errorf("comment on %s#%d: %w", fullName, issueNumber, err)
	}
	return &comment, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	return c.do(ctx, http.MethodPost, path, payload, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &providers.ProviderError{Reason: providers.ReasonTransient, Wrapped: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &providers.ProviderError{Reason: providers.ReasonTransient, Wrapped: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.DebugCF("github", "API error response",
			map[string]any{"method": method, "path": path, "status": resp.StatusCode})
		return classifyStatus(resp.StatusCode, method, path)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &providers.ProviderError{
			Reason:  providers.ReasonMalformed,
			Wrapped: fmt.Errorf("decode %s %s response: %w", method, path, err),
		}
	}
	return nil
}

func classifyStatus(status int, method, path string) error {
	err := fmt.Errorf("github %s %s: HTTP %d", method, path, status)
	var reason providers.FailureReason
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		reason = providers.ReasonUnauthorized
	case status == http.StatusNotFound:
		reason = providers.ReasonNotFound
	case status == http.StatusTooManyRequests:
		reason = providers.ReasonRateLimited
	case status >= 500:
		reason = providers.ReasonTransient
	case status == http.StatusUnprocessableEntity || status == http.StatusBadRequest:
		reason = providers.ReasonMalformed
	default:
		reason = providers.ReasonUnknown
	}
	return &providers.ProviderError{Reason: reason, Wrapped: err}
}

func clampPerPage(n int) int {
	if n < 1 {
		return 30
	}
	if n > 100 {
		return 100
	}
	return n
}
