package config

import (
	"errors"
	"fmt"
	"time"
)

// Defaults applied by Default and by Load for omitted fields.
const (
	DefaultListen         = "127.0.0.1:8080"
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultEndpointPath   = "/chat/completions"
	DefaultModel          = "gpt-4.1-mini"
	DefaultAPIKeyEnv      = "OPENAI_API_KEY"
	DefaultLLMTimeout     = 60 * time.Second
	DefaultMaxFailures    = 3
	DefaultCooldown       = time.Minute
	DefaultMaxSourceBytes = 64 * 1024
	DefaultMaxSourceLines = 2000
)

// Config represents a codestory.yaml configuration file.
// All values are optional; CLI flags override file values.
type Config struct {
	Listen  string        `yaml:"listen"`
	Log     LogConfig     `yaml:"log"`
	LLM     LLMConfig     `yaml:"llm"`
	Limits  LimitsConfig  `yaml:"limits"`
	Adapter AdapterConfig `yaml:"adapter"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// LLMConfig configures the OpenAI-compatible provider.
type LLMConfig struct {
	BaseURL      string            `yaml:"base_url"`
	EndpointPath string            `yaml:"endpoint_path"`
	Model        string            `yaml:"model"`
	APIKey       string            `yaml:"api_key"`
	APIKeyEnv    string            `yaml:"api_key_env"`
	DisableAuth  bool              `yaml:"disable_auth"`
	ExtraHeaders map[string]string `yaml:"extra_headers,omitempty"`
	Temperature  *float64          `yaml:"temperature,omitempty"`
	MaxTokens    int               `yaml:"max_tokens"`
	Timeout      Duration          `yaml:"timeout"`
	MaxFailures  *int              `yaml:"max_failures,omitempty"`
	Cooldown     Duration          `yaml:"cooldown"`
}

// LimitsConfig bounds accepted source snippets.
type LimitsConfig struct {
	MaxSourceBytes int `yaml:"max_source_bytes"`
	MaxSourceLines int `yaml:"max_source_lines"`
}

// AdapterConfig configures completion event publishing.
// An empty Type disables publishing.
type AdapterConfig struct {
	Type     string            `yaml:"type"`
	URL      string            `yaml:"url"`
	Channel  string            `yaml:"channel,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Timeout  Duration          `yaml:"timeout,omitempty"`
	Retries  *int              `yaml:"retries,omitempty"`
	Encoding string            `yaml:"encoding,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills omitted fields.
func (c *Config) ApplyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = DefaultBaseURL
	}
	if c.LLM.EndpointPath == "" {
		c.LLM.EndpointPath = DefaultEndpointPath
	}
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultModel
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = DefaultAPIKeyEnv
	}
	if c.LLM.Timeout.Duration <= 0 {
		c.LLM.Timeout.Duration = DefaultLLMTimeout
	}
	if c.LLM.MaxFailures == nil {
		n := DefaultMaxFailures
		c.LLM.MaxFailures = &n
	}
	if c.LLM.Cooldown.Duration <= 0 {
		c.LLM.Cooldown.Duration = DefaultCooldown
	}
	if c.Limits.MaxSourceBytes <= 0 {
		c.Limits.MaxSourceBytes = DefaultMaxSourceBytes
	}
	if c.Limits.MaxSourceLines <= 0 {
		c.Limits.MaxSourceLines = DefaultMaxSourceLines
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.LLM.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens must be >= 0, got %d", c.LLM.MaxTokens))
	}
	if t := c.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, fmt.Errorf("llm.temperature must be within [0, 2], got %v", *t))
	}
	if c.LLM.MaxFailures != nil && *c.LLM.MaxFailures < 0 {
		errs = append(errs, fmt.Errorf("llm.max_failures must be >= 0, got %d", *c.LLM.MaxFailures))
	}

	switch c.Adapter.Type {
	case "":
	case "webhook", "redis":
		if c.Adapter.URL == "" {
			errs = append(errs, fmt.Errorf("adapter.url is required for %s adapter", c.Adapter.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("adapter.type %q is invalid (must be webhook or redis)", c.Adapter.Type))
	}
	switch c.Adapter.Encoding {
	case "", "json", "msgpack":
	default:
		errs = append(errs, fmt.Errorf("adapter.encoding %q is invalid (must be json or msgpack)", c.Adapter.Encoding))
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		errs = append(errs, fmt.Errorf("adapter.retries must be >= 0, got %d", *c.Adapter.Retries))
	}

	return errors.Join(errs...)
}
