package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dataeval/dingomark/pkg/github"
)

// PostBudget enforces the outreach limits: a daily cap on outbound posts
// and a minimum spacing between consecutive ones. Counters reset at the
// UTC day boundary.
type PostBudget struct {
	mu          sync.Mutex
	maxDaily    int
	minInterval time.Duration
	day         time.Time
	count       int
	lastPost    time.Time
	now         func() time.Time
}

func NewPostBudget(maxDaily int, minInterval time.Duration) *PostBudget {
	return &PostBudget{
		maxDaily:    maxDaily,
		minInterval: minInterval,
		now:         time.Now,
	}
}

// rollover resets the counter at the UTC day boundary. Caller holds mu.
func (b *PostBudget) rollover(now time.Time) {
	today := now.Truncate(24 * time.Hour)
	if !today.Equal(b.day) {
		b.day = today
		b.count = 0
	}
}

// Allow reports whether one more post may go out now. It consumes nothing;
// Commit records the post once it has actually landed, so a failed API
// call does not burn a slot.
func (b *PostBudget) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now().UTC()
	b.rollover(now)

	if b.maxDaily > 0 && b.count >= b.maxDaily {
		return fmt.Errorf("daily post limit of %d reached", b.maxDaily)
	}
	if b.minInterval > 0 && !b.lastPost.IsZero() {
		if wait := b.minInterval - now.Sub(b.lastPost); wait > 0 {
			return fmt.Errorf("minimum post interval not elapsed, retry in %s", wait.Round(time.Second))
		}
	}
	return nil
}

// Commit counts a post that succeeded.
func (b *PostBudget) Commit() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now().UTC()
	b.rollover(now)
	b.count++
	b.lastPost = now
}

// GitHubInteractionTool performs outbound actions (issue comments, new
// issues) against the configured community repository. Every action passes
// through the post budget first.
type GitHubInteractionTool struct {
	client *github.Client
	repo   string
	budget *PostBudget
}

func NewGitHubInteractionTool(client *github.Client, repo string, budget *PostBudget) *GitHubInteractionTool {
	return &GitHubInteractionTool{client: client, repo: repo, budget: budget}
}

func (t *GitHubInteractionTool) Name() string { return "github_interaction" }

// Mutating marks the tool as writing to GitHub; a transient failure is not
// retried because the post may already have landed.
func (t *GitHubInteractionTool) Mutating() bool { return true }

func (t *GitHubInteractionTool) Description() string {
	return "Interact on GitHub: comment on an issue or open a new issue in the target repository."
}

func (t *GitHubInteractionTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"interaction_type": map[string]any{
				"type":        "string",
				"enum":        []string{"comment", "issue"},
				"description": "Kind of interaction",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Comment body, or issue text with the title on the first line",
			},
			"target_id": map[string]any{
				"type":        "integer",
				"description": "Issue number, required for interaction_type=comment",
			},
			"repository": map[string]any{
				"type":        "string",
				"description": "owner/repo override; defaults to the configured repository",
			},
		},
		"required": []string{"interaction_type", "content"},
	}
}

func (t *GitHubInteractionTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	interaction := stringArg(args, "interaction_type", "")
	content := stringArg(args, "content", "")
	repo := stringArg(args, "repository", t.repo)

	if content == "" {
		return "", fmt.Errorf("content must not be empty")
	}
	if repo == "" {
		return "", fmt.Errorf("no target repository configured")
	}
	if err := t.budget.Allow(); err != nil {
		return "", err
	}

	switch interaction {
	case "comment":
		target := intArg(args, "target_id", 0)
		if target <= 0 {
			return "", fmt.Errorf("interaction_type=comment requires target_id")
		}
		comment, err := t.client.CreateIssueComment(ctx, repo, target, content)
		if err != nil {
			return "", err
		}
		t.budget.Commit()
		return fmt.Sprintf("Commented on %s issue #%d: %s", repo, target, comment.HTMLURL), nil
	case "issue":
		title, body := splitIssueContent(content)
		issue, err := t.client.CreateIssue(ctx, repo, title, body)
		if err != nil {
			return "", err
		}
		t.budget.Commit()
		return fmt.Sprintf("Opened issue #%d in %s: %s", issue.Number, repo, title), nil
	default:
		return "", fmt.Errorf("unsupported interaction_type %q", interaction)
	}
}

// splitIssueContent treats the first line as the title, with an optional
// leading markdown heading marker.
func splitIssueContent(content string) (title, body string) {
	title, body, _ = strings.Cut(content, "\n")
	title = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(title), "# "))
	return title, strings.TrimSpace(body)
}
