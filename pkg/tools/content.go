package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/dataeval/dingomark/pkg/providers"
)

// contentTool is the shared LLM plumbing behind the three content tools.
// Each concrete tool only builds a prompt; the completion call and the
// empty-response check live here.
type contentTool struct {
	provider providers.LLMProvider
	model    string
}

func (c *contentTool) complete(ctx context.Context, prompt string) (string, error) {
	model := c.model
	if model == "" {
		model = c.provider.GetDefaultModel()
	}
	resp, err := c.provider.Chat(ctx, []providers.Message{
		{Role: "user", Content: prompt},
	}, nil, model, nil)
	if err != nil {
		return "", err
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("model returned no content")
	}
	return resp.Content, nil
}

// ContentGenerationTool writes marketing content (blog posts, social posts,
// emails, tutorials) against a topic and audience.
type ContentGenerationTool struct {
	contentTool
}

func NewContentGenerationTool(provider providers.LLMProvider, model string) *ContentGenerationTool {
	return &ContentGenerationTool{contentTool{provider: provider, model: model}}
}

func (t *ContentGenerationTool) Name() string { return "content_generation" }

func (t *ContentGenerationTool) Description() string {
	return "Generate technical marketing content: blog posts, social media posts, emails or tutorials."
}

func (t *ContentGenerationTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content_type": map[string]any{
				"type":        "string",
				"enum":        []string{"blog", "social", "email", "tutorial"},
				"description": "Kind of content to produce",
			},
			"topic": map[string]any{
				"type":        "string",
				"description": "Subject of the content",
			},
			"target_audience": map[string]any{
				"type":        "string",
				"description": "Who the content is for (default: developers)",
			},
			"tone": map[string]any{
				"type":        "string",
				"description": "Voice of the content: professional, friendly, humorous, formal",
			},
			"length": map[string]any{
				"type":        "string",
				"enum":        []string{"short", "medium", "long"},
				"description": "Target length",
			},
			"language": map[string]any{
				"type":        "string",
				"description": "Output language (default: English)",
			},
			"keywords": map[string]any{
				"type":        "string",
				"description": "Comma-separated keywords to weave in",
			},
		},
		"required": []string{"content_type", "topic"},
	}
}

func (t *ContentGenerationTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	contentType := stringArg(args, "content_type", "")
	topic := stringArg(args, "topic", "")
	if contentType == "" || topic == "" {
		return "", fmt.Errorf("content_type and topic are required")
	}
	prompt := buildGenerationPrompt(
		contentType,
		topic,
		stringArg(args, "target_audience", "developers"),
		stringArg(args, "tone", "professional"),
		stringArg(args, "length", "medium"),
		stringArg(args, "language", "English"),
		stringArg(args, "keywords", ""),
	)
	return t.complete(ctx, prompt)
}

var typeGuidance = map[string]string{
	"blog":     "Write a well-structured technical blog post with an introduction, body and conclusion.",
	"social":   "Write a concise, engaging social media post with relevant hashtags.",
	"email":    "Write a professional email with a subject line and body.",
	"tutorial": "Write a step-by-step tutorial with explanations and code examples.",
}

var lengthGuidance = map[string]string{
	"short":  "concise, 200-500 words",
	"medium": "moderate, 500-1000 words",
	"long":   "in-depth, 1000-2000 words",
}

func buildGenerationPrompt(contentType, topic, audience, tone, length, language, keywords string) string {
	guidance, ok := typeGuidance[contentType]
	if !ok {
		guidance = "Write high-quality content."
	}
	lengthHint, ok := lengthGuidance[length]
	if !ok {
		lengthHint = lengthGuidance["medium"]
	}
	if keywords == "" {
		keywords = "no specific requirements"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "As a professional content creator for %s, create %s content on the following topic.\n\n", audience, contentType)
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	fmt.Fprintf(&b, "Target audience: %s\n", audience)
	fmt.Fprintf(&b, "Tone: %s\n", tone)
	fmt.Fprintf(&b, "Length: %s\n", lengthHint)
	fmt.Fprintf(&b, "Language: %s\n", language)
	fmt.Fprintf(&b, "Keywords: %s\n\n", keywords)
	fmt.Fprintf(&b, "Requirements: %s\n", guidance)
	b.WriteString("Match the audience's expertise, keep the requested tone, deliver practical value, and weave keywords in naturally. Output the content directly without extra commentary.")
	return b.String()
}

// ContentOptimizationTool rewrites existing content for SEO, readability or
// engagement.
type ContentOptimizationTool struct {
	contentTool
}

func NewContentOptimizationTool(provider providers.LLMProvider, model string) *ContentOptimizationTool {
	return &ContentOptimizationTool{contentTool{provider: provider, model: model}}
}

func (t *ContentOptimizationTool) Name() string { return "content_optimization" }

func (t *ContentOptimizationTool) Description() string {
	return "Optimize existing content for SEO, readability or engagement."
}

func (t *ContentOptimizationTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content": map[string]any{
				"type":        "string",
				"description": "The content to optimize",
			},
			"optimization_type": map[string]any{
				"type":        "string",
				"enum":        []string{"seo", "readability", "engagement"},
				"description": "Optimization focus (default: seo)",
			},
			"target_audience": map[string]any{
				"type":        "string",
				"description": "Who the content is for (default: developers)",
			},
			"keywords": map[string]any{
				"type":        "string",
				"description": "SEO keywords, comma separated",
			},
		},
		"required": []string{"content"},
	}
}

var optimizationGuidance = map[string]string{
	"seo":         "improve search ranking: place keywords sensibly, sharpen the title and meta description",
	"readability": "improve readability: tighten paragraph structure, use clear headings and lists",
	"engagement":  "improve engagement: add hooks and interactive elements, make it more compelling",
}

func (t *ContentOptimizationTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	content := stringArg(args, "content", "")
	if content == "" {
		return "", fmt.Errorf("content is required")
	}
	optType := stringArg(args, "optimization_type", "seo")
	guidance, ok := optimizationGuidance[optType]
	if !ok {
		guidance = "improve the content overall"
	}
	keywords := stringArg(args, "keywords", "")
	if keywords == "" {
		keywords = "no specific requirements"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Optimize the following content (%s).\n\n", optType)
	fmt.Fprintf(&b, "Original content:\n%s\n\n", content)
	fmt.Fprintf(&b, "Goal: %s\n", guidance)
	fmt.Fprintf(&b, "Target audience: %s\n", stringArg(args, "target_audience", "developers"))
	fmt.Fprintf(&b, "Keywords: %s\n\n", keywords)
	b.WriteString("Preserve the core information and value, tailor it to the audience, and weave keywords in naturally. Output the optimized content followed by a short list of what changed.")
	return t.complete(ctx, b.String())
}

// ContentAnalysisTool produces a quality / SEO / engagement report for a
// piece of content.
type ContentAnalysisTool struct {
	contentTool
}

func NewContentAnalysisTool(provider providers.LLMProvider, model string) *ContentAnalysisTool {
	return &ContentAnalysisTool{contentTool{provider: provider, model: model}}
}

func (t *ContentAnalysisTool) Name() string { return "content_analysis" }

func (t *ContentAnalysisTool) Description() string {
	return "Analyze content quality, SEO effectiveness and expected engagement."
}

func (t *ContentAnalysisTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content": map[string]any{
				"type":        "string",
				"description": "The content to analyze",
			},
			"analysis_type": map[string]any{
				"type":        "string",
				"description": "Analysis focus (default: comprehensive)",
			},
		},
		"required": []string{"content"},
	}
}

func (t *ContentAnalysisTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	content := stringArg(args, "content", "")
	if content == "" {
		return "", fmt.Errorf("content is required")
	}
	analysisType := stringArg(args, "analysis_type", "comprehensive")

	var b strings.Builder
	fmt.Fprintf(&b, "Run a %s analysis of the following content.\n\n", analysisType)
	fmt.Fprintf(&b, "Content:\n%s\n\n", content)
	b.WriteString(`Cover these dimensions:
1. Content quality (score 1-10): accuracy, structure, clarity of language.
2. SEO: keyword density, title optimization, content structure.
3. Expected engagement: appeal, interaction potential, shareability.
4. Improvement suggestions: concrete changes, how to apply them, expected effect.

Produce a detailed report.`)
	return t.complete(ctx, b.String())
}
