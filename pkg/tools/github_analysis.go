package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dataeval/dingomark/pkg/github"
)

const (
	defaultLookbackDays = 30
	maxReposScanned     = 20
	maxEventsScanned    = 50
	maxIssuesScanned    = 20
)

// GitHubAnalysisTool inspects users, repositories or the configured
// community through the GitHub REST API and produces a plain-text report
// the agents can reason over.
type GitHubAnalysisTool struct {
	client    *github.Client
	community string
}

func NewGitHubAnalysisTool(client *github.Client, communityRepo string) *GitHubAnalysisTool {
	return &GitHubAnalysisTool{client: client, community: communityRepo}
}

func (t *GitHubAnalysisTool) Name() string { return "github_analysis" }

func (t *GitHubAnalysisTool) Description() string {
	return "Analyze GitHub users, repositories or the target community: profile, languages, stars, and recent activity."
}

func (t *GitHubAnalysisTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"analysis_type": map[string]any{
				"type":        "string",
				"enum":        []string{"user", "repo", "community"},
				"description": "What to analyze",
			},
			"username": map[string]any{
				"type":        "string",
				"description": "GitHub login, required for analysis_type=user",
			},
			"repository": map[string]any{
				"type":        "string",
				"description": "owner/repo, required for analysis_type=repo",
			},
			"lookback_days": map[string]any{
				"type":        "integer",
				"description": "Recent-activity window in days (default 30)",
			},
		},
		"required": []string{"analysis_type"},
	}
}

func (t *GitHubAnalysisTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	analysisType := stringArg(args, "analysis_type", "user")
	lookback := intArg(args, "lookback_days", defaultLookbackDays)
	if lookback < 1 {
		lookback = defaultLookbackDays
	}

	switch analysisType {
	case "user":
		username := stringArg(args, "username", "")
		if username == "" {
			return "", fmt.Errorf("analysis_type=user requires a username")
		}
		return t.analyzeUser(ctx, username, lookback)
	case "repo":
		repository := stringArg(args, "repository", "")
		if repository == "" {
			return "", fmt.Errorf("analysis_type=repo requires a repository (owner/repo)")
		}
		return t.analyzeRepository(ctx, repository, lookback)
	case "community":
		if t.community == "" {
			return "", fmt.Errorf("no community repository configured")
		}
		return t.analyzeCommunity(ctx, lookback)
	default:
		return "", fmt.Errorf("unsupported analysis_type %q", analysisType)
	}
}

func (t *GitHubAnalysisTool) analyzeUser(ctx context.Context, username string, lookbackDays int) (string, error) {
	user, err := t.client.GetUser(ctx, username)
	if err != nil {
		return "", err
	}

	repos, err := t.client.ListUserRepos(ctx, username, maxReposScanned)
	if err != nil {
		return "", err
	}

	totalStars := 0
	languages := make(map[string]int)
	for _, repo := range repos {
		totalStars += repo.StargazersCount
		if repo.Language != "" {
			languages[repo.Language]++
		}
	}

	events, err := t.client.ListUserEvents(ctx, username, maxEventsScanned)
	if err != nil {
		return "", err
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -lookbackDays)
	recent := 0
	for _, ev := range events {
		if ev.CreatedAt.After(cutoff) {
			recent++
		}
	}

	activityScore := clampScore(float64(recent) * 2)
	influenceScore := clampScore(float64(user.Followers)*0.1 + float64(totalStars)*0.05)

	var b strings.Builder
	fmt.Fprintf(&b, "User %s analysis:\n", username)
	if user.Name != "" {
		fmt.Fprintf(&b, "- Name: %s\n", user.Name)
	}
	if user.Company != "" {
		fmt.Fprintf(&b, "- Company: %s\n", user.Company)
	}
	if user.Location != "" {
		fmt.Fprintf(&b, "- Location: %s\n", user.Location)
	}
	fmt.Fprintf(&b, "- Followers: %d, following: %d, public repos: %d\n",
		user.Followers, user.Following, user.PublicRepos)
	fmt.Fprintf(&b, "- Total stars across %d scanned repos: %d\n", len(repos), totalStars)
	fmt.Fprintf(&b, "- Main languages: %s\n", topLanguages(languages, 3))
	fmt.Fprintf(&b, "- Events in last %d days: %d\n", lookbackDays, recent)
	fmt.Fprintf(&b, "- Activity score: %.1f/100, influence score: %.1f/100\n",
		activityScore, influenceScore)
	fmt.Fprintf(&b, "- Engagement recommendation: %s", userRecommendation(languages, user.Followers, activityScore))
	return b.String(), nil
}

func (t *GitHubAnalysisTool) analyzeRepository(ctx context.Context, fullName string, lookbackDays int) (string, error) {
	repo, err := t.client.GetRepository(ctx, fullName)
	if err != nil {
		return "", err
	}

	issues, err := t.client.ListIssues(ctx, fullName, maxIssuesScanned)
	if err != nil {
		return "", err
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -lookbackDays)
	recentIssues := 0
	for _, issue := range issues {
		if issue.CreatedAt.After(cutoff) {
			recentIssues++
		}
	}

	activityScore := clampScore(float64(recentIssues) * 5)
	popularityScore := clampScore(float64(repo.StargazersCount) / 10)

	var b strings.Builder
	fmt.Fprintf(&b, "Repository %s analysis:\n", fullName)
	if repo.Description != "" {
		fmt.Fprintf(&b, "- Description: %s\n", repo.Description)
	}
	fmt.Fprintf(&b, "- Stars: %d, forks: %d, open issues: %d\n",
		repo.StargazersCount, repo.ForksCount, repo.OpenIssuesCount)
	if repo.Language != "" {
		fmt.Fprintf(&b, "- Primary language: %s\n", repo.Language)
	}
	if len(repo.Topics) > 0 {
		fmt.Fprintf(&b, "- Topics: %s\n", strings.Join(repo.Topics, ", "))
	}
	fmt.Fprintf(&b, "- Issues opened in last %d days: %d\n", lookbackDays, recentIssues)
	fmt.Fprintf(&b, "- Activity score: %.1f/100, popularity score: %.1f/100",
		activityScore, popularityScore)
	return b.String(), nil
}

func (t *GitHubAnalysisTool) analyzeCommunity(ctx context.Context, lookbackDays int) (string, error) {
	repo, err := t.client.GetRepository(ctx, t.community)
	if err != nil {
		return "", err
	}

	issues, err := t.client.ListIssues(ctx, t.community, maxIssuesScanned)
	if err != nil {
		return "", err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -lookbackDays)
	recentIssues := 0
	participants := make(map[string]int)
	for _, issue := range issues {
		if issue.User.Login != "" {
			participants[issue.User.Login]++
		}
		if issue.CreatedAt.After(cutoff) {
			recentIssues++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Community %s analysis:\n", t.community)
	fmt.Fprintf(&b, "- Stars: %d, forks: %d, open issues: %d\n",
		repo.StargazersCount, repo.ForksCount, repo.OpenIssuesCount)
	fmt.Fprintf(&b, "- Distinct issue participants (recent sample): %d\n", len(participants))
	fmt.Fprintf(&b, "- Issues opened in last %d days: %d\n", lookbackDays, recentIssues)
	fmt.Fprintf(&b, "- Community activity: %s", activityLabel(recentIssues))
	return b.String(), nil
}

func topLanguages(counts map[string]int, n int) string {
	if len(counts) == 0 {
		return "unknown"
	}
	type langCount struct {
		lang  string
		count int
	}
	ranked := make([]langCount, 0, len(counts))
	for lang, count := range counts {
		ranked = append(ranked, langCount{lang, count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].lang < ranked[j].lang
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	names := make([]string, len(ranked))
	for i, lc := range ranked {
		names[i] = lc.lang
	}
	return strings.Join(names, ", ")
}

func userRecommendation(languages map[string]int, followers int, activityScore float64) string {
	var parts []string
	switch {
	case activityScore > 70:
		parts = append(parts, "highly active, suitable for direct outreach")
	case activityScore > 30:
		parts = append(parts, "moderately active, engage with valuable content")
	default:
		parts = append(parts, "low activity, needs especially compelling content")
	}
	if languages["Python"] > 0 {
		parts = append(parts, "Python developer, likely interested in data-quality tooling")
	}
	if languages["Jupyter Notebook"] > 0 {
		parts = append(parts, "data-science background, ideal target user")
	}
	if followers > 100 {
		parts = append(parts, "has reach, worth prioritizing")
	}
	return strings.Join(parts, "; ")
}

func activityLabel(recentIssues int) string {
	switch {
	case recentIssues >= 10:
		return "high"
	case recentIssues >= 3:
		return "moderate"
	default:
		return "low"
	}
}

func clampScore(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}
