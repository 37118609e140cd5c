package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort          = 8012
	defaultEnv           = "development"
	defaultDataDir       = "data/essay_summarizer"
	defaultArxivBase     = "https://export.arxiv.org/api/query"
	defaultMaxResults    = 10
	defaultFetchTimeout  = 30
	defaultLLMProvider   = "ollama"
	defaultOllamaBase    = "http://localhost:11434"
	defaultOllamaModel   = "deepseek-r1:32b"
	defaultLLMTimeout    = 120
	defaultPushEndpoint  = "http://localhost:8011/push"
	defaultDigestHour    = 7
	defaultTopicDelaySec = 5
	defaultVerifyTTLMin  = 10
	defaultMaxAttempts   = 5
	defaultSMTPPort      = 587
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                `yaml:"port"`
	Env            string             `yaml:"env"` // "development" | "production"
	DataDir        string             `yaml:"data_dir"`
	RedisURL       string             `yaml:"redis_url"` // optional; empty means in-memory short-lived stores
	AllowedOrigins []string           `yaml:"allowed_origins"`
	Arxiv          ArxivConfig        `yaml:"arxiv"`
	LLM            LLMConfig          `yaml:"llm"`
	Push           PushConfig         `yaml:"push"`
	Mail           MailConfig         `yaml:"mail"`
	Schedule       ScheduleConfig     `yaml:"schedule"`
	Verification   VerificationConfig `yaml:"verification"`
}

// ArxivConfig describes the paper-search API client.
type ArxivConfig struct {
	BaseURL        string `yaml:"base_url"`
	MaxResults     int    `yaml:"max_results"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// LLMConfig selects and configures the summarization backend.
type LLMConfig struct {
	Provider       string `yaml:"provider"` // "ollama" | "openai"
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// PushConfig wires the chat-platform push collaborator.
type PushConfig struct {
	Enable   bool   `yaml:"enable"`
	Endpoint string `yaml:"endpoint"`
}

// MailConfig holds SMTP settings for the email channel.
type MailConfig struct {
	Enable     bool   `yaml:"enable"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Pass       string `yaml:"pass"`
	From       string `yaml:"from"`
	SenderName string `yaml:"sender_name"`
	SSL        bool   `yaml:"ssl"`
	AttachPDFs bool   `yaml:"attach_pdfs"`
}

// ScheduleConfig controls the daily digest run.
type ScheduleConfig struct {
	Hour              int  `yaml:"hour"`
	Minute            int  `yaml:"minute"`
	TopicDelaySeconds int  `yaml:"topic_delay_seconds"`
	NotifyOnEmpty     bool `yaml:"notify_on_empty"` // scheduled run with zero new papers: send a notice or stay silent
}

// VerificationConfig tunes the email verification flow.
type VerificationConfig struct {
	TTLMinutes  int `yaml:"ttl_minutes"`
	MaxAttempts int `yaml:"max_attempts"`
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool { return c.Env != "production" }

// FetchTimeout returns the arXiv client timeout as a duration.
func (c ArxivConfig) FetchTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Timeout returns the summarizer call timeout as a duration.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TTL returns the verification session lifetime as a duration.
func (c VerificationConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// TopicDelay returns the pause between per-topic runs in the daily batch.
func (c ScheduleConfig) TopicDelay() time.Duration {
	return time.Duration(c.TopicDelaySeconds) * time.Second
}

// Load reads YAML configuration from path (if present), applies defaults
// and environment overrides.
func Load(path string) (*AppConfig, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err) && path == DefaultConfigPath:
			// running without a config file is fine
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.normalize()
	return cfg, nil
}

func defaults() *AppConfig {
	return &AppConfig{
		Port:    defaultPort,
		Env:     defaultEnv,
		DataDir: defaultDataDir,
		Arxiv: ArxivConfig{
			BaseURL:        defaultArxivBase,
			MaxResults:     defaultMaxResults,
			TimeoutSeconds: defaultFetchTimeout,
		},
		LLM: LLMConfig{
			Provider:       defaultLLMProvider,
			BaseURL:        defaultOllamaBase,
			Model:          defaultOllamaModel,
			TimeoutSeconds: defaultLLMTimeout,
		},
		Push: PushConfig{
			Enable:   true,
			Endpoint: defaultPushEndpoint,
		},
		Mail: MailConfig{
			Port: defaultSMTPPort,
		},
		Schedule: ScheduleConfig{
			Hour:              defaultDigestHour,
			Minute:            0,
			TopicDelaySeconds: defaultTopicDelaySec,
		},
		Verification: VerificationConfig{
			TTLMinutes:  defaultVerifyTTLMin,
			MaxAttempts: defaultMaxAttempts,
		},
	}
}

func (c *AppConfig) applyEnvOverrides() {
	if v := os.Getenv("CECILIA_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("CECILIA_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("CECILIA_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("CECILIA_REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("EMAIL_SMTP_HOST"); v != "" {
		c.Mail.Host = v
	}
	if v := os.Getenv("EMAIL_SMTP_USER"); v != "" {
		c.Mail.User = v
	}
	if v := os.Getenv("EMAIL_SMTP_PASS"); v != "" {
		c.Mail.Pass = v
	}
}

func (c *AppConfig) normalize() {
	if c.Arxiv.MaxResults <= 0 {
		c.Arxiv.MaxResults = defaultMaxResults
	}
	if c.Arxiv.TimeoutSeconds <= 0 {
		c.Arxiv.TimeoutSeconds = defaultFetchTimeout
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
	if c.Verification.TTLMinutes <= 0 {
		c.Verification.TTLMinutes = defaultVerifyTTLMin
	}
	if c.Verification.MaxAttempts <= 0 {
		c.Verification.MaxAttempts = defaultMaxAttempts
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = defaultSMTPPort
	}
	if c.Mail.From == "" {
		c.Mail.From = c.Mail.User
	}
}
