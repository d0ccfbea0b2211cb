package marketing

import (
	"fmt"
	"strings"

	"github.com/dataeval/dingomark/pkg/crew"
)

// Request validation happens before any task is created or external call
// made. A failed validation costs nothing but the parse.

type UserAnalysisRequest struct {
	Users    []string `json:"user_list"`
	Depth    string   `json:"analysis_depth,omitempty"`
	Language string   `json:"language,omitempty"`
}

func (r *UserAnalysisRequest) Validate() error {
	if len(r.Users) == 0 {
		return &crew.ValidationError{Field: "user_list", Reason: "must not be empty"}
	}
	for i, u := range r.Users {
		if strings.TrimSpace(u) == "" {
			return &crew.ValidationError{Field: "user_list", Reason: fmt.Sprintf("entry %d is empty", i)}
		}
	}
	if r.Depth == "" {
		r.Depth = "standard"
	}
	switch r.Depth {
	case "basic", "standard", "deep":
	default:
		return &crew.ValidationError{Field: "analysis_depth", Reason: "must be basic, standard or deep"}
	}
	if r.Language == "" {
		r.Language = "English"
	}
	return nil
}

type ContentCampaignRequest struct {
	Name           string   `json:"name"`
	TargetAudience string   `json:"target_audience"`
	Topics         []string `json:"topics"`
	ContentTypes   []string `json:"content_types,omitempty"`
	Duration       string   `json:"duration,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
}

var validContentTypes = map[string]bool{
	"blog": true, "social": true, "email": true, "tutorial": true,
}

func (r *ContentCampaignRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &crew.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(r.TargetAudience) == "" {
		return &crew.ValidationError{Field: "target_audience", Reason: "must not be empty"}
	}
	if len(r.Topics) == 0 {
		return &crew.ValidationError{Field: "topics", Reason: "must not be empty"}
	}
	if len(r.ContentTypes) == 0 {
		r.ContentTypes = []string{"blog", "social"}
	}
	for _, ct := range r.ContentTypes {
		if !validContentTypes[ct] {
			return &crew.ValidationError{Field: "content_types", Reason: fmt.Sprintf("unsupported content type %q", ct)}
		}
	}
	if r.Duration == "" {
		r.Duration = "1 month"
	}
	return nil
}

type EngagementRequest struct {
	InteractionTypes []string `json:"interaction_types,omitempty"`
	TargetCount      int      `json:"target_count,omitempty"`
	Level            string   `json:"engagement_level,omitempty"`
}

func (r *EngagementRequest) Validate() error {
	if len(r.InteractionTypes) == 0 {
		r.InteractionTypes = []string{"comment", "issue"}
	}
	for _, it := range r.InteractionTypes {
		if it != "comment" && it != "issue" {
			return &crew.ValidationError{Field: "interaction_types", Reason: fmt.Sprintf("unsupported interaction type %q", it)}
		}
	}
	if r.TargetCount == 0 {
		r.TargetCount = 10
	}
	if r.TargetCount < 1 || r.TargetCount > 100 {
		return &crew.ValidationError{Field: "target_count", Reason: "must be between 1 and 100"}
	}
	if r.Level == "" {
		r.Level = "moderate"
	}
	switch r.Level {
	case "light", "moderate", "intensive":
	default:
		return &crew.ValidationError{Field: "engagement_level", Reason: "must be light, moderate or intensive"}
	}
	return nil
}

type ComprehensiveRequest struct {
	Name             string   `json:"name"`
	Objectives       []string `json:"objectives"`
	TargetAudience   string   `json:"target_audience"`
	Duration         string   `json:"duration"`
	BudgetLevel      string   `json:"budget_level,omitempty"`
	PriorityChannels []string `json:"priority_channels,omitempty"`
}

func (r *ComprehensiveRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &crew.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if len(r.Objectives) == 0 {
		return &crew.ValidationError{Field: "objectives", Reason: "must not be empty"}
	}
	if strings.TrimSpace(r.TargetAudience) == "" {
		return &crew.ValidationError{Field: "target_audience", Reason: "must not be empty"}
	}
	if strings.TrimSpace(r.Duration) == "" {
		return &crew.ValidationError{Field: "duration", Reason: "must not be empty"}
	}
	if r.BudgetLevel == "" {
		r.BudgetLevel = "medium"
	}
	switch r.BudgetLevel {
	case "low", "medium", "high":
	default:
		return &crew.ValidationError{Field: "budget_level", Reason: "must be low, medium or high"}
	}
	if len(r.PriorityChannels) == 0 {
		r.PriorityChannels = []string{"github", "social"}
	}
	return nil
}

type GenerateContentRequest struct {
	ContentType    string   `json:"content_type"`
	Topic          string   `json:"topic"`
	TargetAudience string   `json:"target_audience,omitempty"`
	Tone           string   `json:"tone,omitempty"`
	Length         string   `json:"length,omitempty"`
	Language       string   `json:"language,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
}

func (r *GenerateContentRequest) Validate() error {
	if !validContentTypes[r.ContentType] {
		return &crew.ValidationError{Field: "content_type", Reason: "must be blog, social, email or tutorial"}
	}
	if strings.TrimSpace(r.Topic) == "" {
		return &crew.ValidationError{Field: "topic", Reason: "must not be empty"}
	}
	if r.TargetAudience == "" {
		r.TargetAudience = "developers"
	}
	if r.Tone == "" {
		r.Tone = "professional"
	}
	if r.Length == "" {
		r.Length = "medium"
	}
	switch r.Length {
	case "short", "medium", "long":
	default:
		return &crew.ValidationError{Field: "length", Reason: "must be short, medium or long"}
	}
	if r.Language == "" {
		r.Language = "English"
	}
	return nil
}
