package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// ConfigurationError marks an invalid service setup. It is fatal at startup
// and never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

type ServerConfig struct {
	Host   string `json:"host" env:"DINGOMARK_SERVER_HOST"`
	Port   int    `json:"port" env:"DINGOMARK_SERVER_PORT"`
	APIKey string `json:"api_key" env:"DINGOMARK_SERVER_API_KEY"`
}

type LLMConfig struct {
	// Provider selects the chat backend: "openai" or "anthropic".
	Provider       string  `json:"provider" env:"DINGOMARK_LLM_PROVIDER"`
	Model          string  `json:"model" env:"DINGOMARK_LLM_MODEL"`
	APIKey         string  `json:"api_key" env:"DINGOMARK_LLM_API_KEY"`
	BaseURL        string  `json:"base_url" env:"DINGOMARK_LLM_BASE_URL"`
	MaxTokens      int     `json:"max_tokens" env:"DINGOMARK_LLM_MAX_TOKENS"`
	Temperature    float64 `json:"temperature" env:"DINGOMARK_LLM_TEMPERATURE"`
	MaxConcurrent  int     `json:"max_concurrent" env:"DINGOMARK_LLM_MAX_CONCURRENT"`
	TimeoutSeconds int     `json:"timeout_seconds" env:"DINGOMARK_LLM_TIMEOUT_SECONDS"`
}

type GitHubConfig struct {
	Token string `json:"token" env:"DINGOMARK_GITHUB_TOKEN"`
	// Repository is the target project in "owner/repo" form.
	Repository        string  `json:"repository" env:"DINGOMARK_GITHUB_REPOSITORY"`
	RequestsPerSecond float64 `json:"requests_per_second" env:"DINGOMARK_GITHUB_REQUESTS_PER_SECOND"`
	Burst             int     `json:"burst" env:"DINGOMARK_GITHUB_BURST"`
}

type RetryConfig struct {
	MaxAttempts int `json:"max_attempts" env:"DINGOMARK_RETRY_MAX_ATTEMPTS"`
	BaseDelayMS int `json:"base_delay_ms" env:"DINGOMARK_RETRY_BASE_DELAY_MS"`
}

func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

type CampaignConfig struct {
	MaxDailyPosts      int `json:"max_daily_posts" env:"DINGOMARK_CAMPAIGN_MAX_DAILY_POSTS"`
	MinIntervalMinutes int `json:"min_interval_minutes" env:"DINGOMARK_CAMPAIGN_MIN_INTERVAL_MINUTES"`
	// TimeoutSeconds bounds one crew invocation end to end.
	TimeoutSeconds int `json:"timeout_seconds" env:"DINGOMARK_CAMPAIGN_TIMEOUT_SECONDS"`
}

func (c CampaignConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type StoreConfig struct {
	Path string `json:"path" env:"DINGOMARK_STORE_PATH"`
}

type SchedulerConfig struct {
	Enabled             bool `json:"enabled" env:"DINGOMARK_SCHEDULER_ENABLED"`
	PollIntervalSeconds int  `json:"poll_interval_seconds" env:"DINGOMARK_SCHEDULER_POLL_INTERVAL_SECONDS"`
}

func (s SchedulerConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalSeconds) * time.Second
}

type LogConfig struct {
	Level string `json:"level" env:"DINGOMARK_LOG_LEVEL"`
	File  string `json:"file" env:"DINGOMARK_LOG_FILE"`
}

type Config struct {
	Server    ServerConfig    `json:"server"`
	LLM       LLMConfig       `json:"llm"`
	GitHub    GitHubConfig    `json:"github"`
	Retry     RetryConfig     `json:"retry"`
	Campaign  CampaignConfig  `json:"campaign"`
	Store     StoreConfig     `json:"store"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Log       LogConfig       `json:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
		LLM: LLMConfig{
			Provider:       "openai",
			Model:          "gpt-4o",
			MaxTokens:      4096,
			Temperature:    0.7,
			MaxConcurrent:  4,
			TimeoutSeconds: 120,
		},
		GitHub: GitHubConfig{
			Repository:        "DataEval/dingo",
			RequestsPerSecond: 1,
			Burst:             5,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelayMS: 500,
		},
		Campaign: CampaignConfig{
			MaxDailyPosts:      10,
			MinIntervalMinutes: 60,
			TimeoutSeconds:     300,
		},
		Store: StoreConfig{
			Path: defaultStorePath(),
		},
		Scheduler: SchedulerConfig{
			Enabled:             true,
			PollIntervalSeconds: 30,
		},
		Log: LogConfig{
			Level: "INFO",
		},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "dingomark.db"
	}
	return filepath.Join(home, ".dingomark", "dingomark.db")
}

// LoadConfig reads the JSON config file if it exists, then applies
// environment overrides on top. A missing file is not an error; the
// defaults plus environment are enough to run.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// fall through to env-only config
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings the service cannot run without.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ConfigurationError{Field: "server.port", Reason: fmt.Sprintf("invalid port %d", c.Server.Port)}
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return &ConfigurationError{Field: "llm.provider", Reason: fmt.Sprintf("unknown provider %q", c.LLM.Provider)}
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return &ConfigurationError{Field: "llm.api_key", Reason: "missing API key"}
	}
	if strings.TrimSpace(c.GitHub.Token) == "" {
		return &ConfigurationError{Field: "github.token", Reason: "missing token"}
	}
	if repo := c.GitHub.Repository; len(strings.Split(repo, "/")) != 2 {
		return &ConfigurationError{Field: "github.repository", Reason: fmt.Sprintf("want owner/repo, got %q", repo)}
	}
	if c.LLM.MaxConcurrent < 1 {
		return &ConfigurationError{Field: "llm.max_concurrent", Reason: "must be at least 1"}
	}
	if c.Retry.MaxAttempts < 1 {
		return &ConfigurationError{Field: "retry.max_attempts", Reason: "must be at least 1"}
	}
	return nil
}

// SaveConfig writes the config as indented JSON, creating parent
// directories as needed.
func SaveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
