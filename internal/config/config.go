// File: internal/config/config.go

// Package config defines the application configuration, loaded via viper
// from config.yaml, environment variables (WEBPILOT_ prefix) and defaults.
package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
)

// Config is the root configuration object.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	Session     SessionConfig     `mapstructure:"session" yaml:"session"`
	Model       ModelConfig       `mapstructure:"model" yaml:"model"`
	Agent       AgentConfig       `mapstructure:"agent" yaml:"agent"`
	Coordinates CoordinatesConfig `mapstructure:"coordinates" yaml:"coordinates"`
}

// LoggerConfig controls the zap logger setup.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the console colors for each log level.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// SessionConfig holds the remote browser session settings.
type SessionConfig struct {
	// APIBaseURL is the root of the session provisioning API.
	APIBaseURL string `mapstructure:"api_base_url" yaml:"api_base_url"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`

	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`

	UseProxy     bool `mapstructure:"use_proxy" yaml:"use_proxy"`
	SolveCaptcha bool `mapstructure:"solve_captcha" yaml:"solve_captcha"`
	BlockAds     bool `mapstructure:"block_ads" yaml:"block_ads"`

	// ShowCursor overlays a visual pointer in the live session view so an
	// operator can follow the agent's mouse.
	ShowCursor bool `mapstructure:"show_cursor" yaml:"show_cursor"`

	// TimeoutMS is the server-side session idle timeout in milliseconds.
	TimeoutMS int `mapstructure:"timeout_ms" yaml:"timeout_ms"`

	// ConnectTimeout bounds establishing the CDP connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`

	// BlockedDomains lists hostnames the agent must never navigate to.
	// Matching covers the hostname and all of its subdomains.
	BlockedDomains []string `mapstructure:"blocked_domains" yaml:"blocked_domains"`
}

// Viewport returns the configured session dimensions.
func (s SessionConfig) Viewport() schemas.Viewport {
	return schemas.Viewport{Width: s.Width, Height: s.Height}
}

// ModelConfig holds the LLM provider settings.
type ModelConfig struct {
	Provider   string        `mapstructure:"provider" yaml:"provider"`
	Model      string        `mapstructure:"model" yaml:"model"`
	APIKey     string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint   string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`

	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	TopP        float32 `mapstructure:"top_p" yaml:"top_p"`
	TopK        int     `mapstructure:"top_k" yaml:"top_k"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`

	// RequestsPerMinute throttles model calls. Zero disables throttling.
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// AgentConfig controls the task loop.
type AgentConfig struct {
	MaxIterations int    `mapstructure:"max_iterations" yaml:"max_iterations"`
	StartURL      string `mapstructure:"start_url" yaml:"start_url"`

	// SafetyMode is "auto" (acknowledge provider safety checks with a
	// warning) or "prompt" (ask the operator).
	SafetyMode string `mapstructure:"safety_mode" yaml:"safety_mode"`

	Termination TerminationConfig `mapstructure:"termination" yaml:"termination"`
}

// TerminationConfig holds the heuristic stop conditions. The pattern lists
// live in configuration so deployments can tune them without a rebuild.
type TerminationConfig struct {
	CompletionPatterns []string `mapstructure:"completion_patterns" yaml:"completion_patterns"`
	FailurePatterns    []string `mapstructure:"failure_patterns" yaml:"failure_patterns"`

	// RepetitionThreshold is the word-overlap ratio above which a message
	// counts as a repeat of a recent one.
	RepetitionThreshold float64 `mapstructure:"repetition_threshold" yaml:"repetition_threshold"`
	// RepetitionWindow is how many recent assistant messages to compare.
	RepetitionWindow int `mapstructure:"repetition_window" yaml:"repetition_window"`
}

// CoordinatesConfig selects the model coordinate space handling.
type CoordinatesConfig struct {
	// Policy is "scale" or "normalized".
	Policy string `mapstructure:"policy" yaml:"policy"`
	// Strict rejects out-of-range coordinates instead of clamping them.
	Strict bool `mapstructure:"strict" yaml:"strict"`
}

// SetDefaults registers every default value on the given viper instance.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "webpilot-cli")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Session --
	v.SetDefault("session.api_base_url", "https://api.steel.dev")
	v.SetDefault("session.width", 1024)
	v.SetDefault("session.height", 768)
	v.SetDefault("session.use_proxy", false)
	v.SetDefault("session.solve_captcha", false)
	v.SetDefault("session.block_ads", true)
	v.SetDefault("session.show_cursor", true)
	v.SetDefault("session.timeout_ms", 900000)
	v.SetDefault("session.connect_timeout", "30s")
	v.SetDefault("session.blocked_domains", []string{})

	// -- Model --
	v.SetDefault("model.provider", "gemini")
	v.SetDefault("model.model", "gemini-2.5-computer-use-preview-10-2025")
	v.SetDefault("model.api_timeout", "120s")
	v.SetDefault("model.temperature", 0.0)
	v.SetDefault("model.max_tokens", 8192)
	v.SetDefault("model.requests_per_minute", 0)

	// -- Agent --
	v.SetDefault("agent.max_iterations", 50)
	v.SetDefault("agent.start_url", "https://www.google.com")
	v.SetDefault("agent.safety_mode", "auto")
	v.SetDefault("agent.termination.repetition_threshold", 0.8)
	v.SetDefault("agent.termination.repetition_window", 3)
	v.SetDefault("agent.termination.completion_patterns", []string{
		`task\s+(completed|finished|done|accomplished)`,
		`successfully\s+(completed|finished|accomplished)`,
		`here\s+(is|are)\s+(the|your)\s+(result|summary|answer)`,
		`to\s+summarize`,
		`in\s+conclusion`,
		`final\s+(answer|result|summary)`,
	})
	v.SetDefault("agent.termination.failure_patterns", []string{
		`cannot\s+(complete|proceed|access|continue)`,
		`unable\s+to\s+(complete|proceed|access|continue)`,
		`blocked\s+by\s+(captcha|security|authentication)`,
		`giving\s+up`,
		`no\s+longer\s+able`,
		`have\s+tried\s+multiple\s+approaches`,
	})

	// -- Coordinates --
	v.SetDefault("coordinates.policy", "scale")
	v.SetDefault("coordinates.strict", false)
}

// NewConfigFromViper unmarshals and validates the configuration.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Sensitive values come from well-known env vars when not set in the
	// config file.
	v.BindEnv("session.api_key", "WEBPILOT_SESSION_API_KEY", "STEEL_API_KEY")
	v.BindEnv("model.api_key", "WEBPILOT_MODEL_API_KEY", "GEMINI_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field constraints and compiles anything that must
// be well formed before the loop starts.
func (c *Config) Validate() error {
	if c.Session.Width <= 0 || c.Session.Height <= 0 {
		return fmt.Errorf("session dimensions must be positive, got %dx%d", c.Session.Width, c.Session.Height)
	}
	if c.Agent.MaxIterations <= 0 {
		return fmt.Errorf("agent.max_iterations must be a positive integer")
	}
	switch c.Agent.SafetyMode {
	case "auto", "prompt":
	default:
		return fmt.Errorf("agent.safety_mode must be \"auto\" or \"prompt\", got %q", c.Agent.SafetyMode)
	}
	switch c.Coordinates.Policy {
	case "scale", "normalized":
	default:
		return fmt.Errorf("coordinates.policy must be \"scale\" or \"normalized\", got %q", c.Coordinates.Policy)
	}
	if t := c.Agent.Termination.RepetitionThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("agent.termination.repetition_threshold must be in (0, 1], got %v", t)
	}
	if c.Agent.Termination.RepetitionWindow < 0 {
		return fmt.Errorf("agent.termination.repetition_window must be non-negative")
	}
	for _, pattern := range append(
		append([]string{}, c.Agent.Termination.CompletionPatterns...),
		c.Agent.Termination.FailurePatterns...) {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid termination pattern %q: %w", pattern, err)
		}
	}
	return nil
}
