package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/codestory/adapter"
	"github.com/pithecene-io/codestory/adapter/redis"
	"github.com/pithecene-io/codestory/adapter/webhook"
	"github.com/pithecene-io/codestory/analysis"
	"github.com/pithecene-io/codestory/cli/config"
	"github.com/pithecene-io/codestory/llm"
	"github.com/pithecene-io/codestory/log"
	"github.com/pithecene-io/codestory/metrics"
)

// loadConfig loads --config and applies flag overrides. Problems are usage
// errors.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsageError)
	}

	if c.IsSet("model") {
		cfg.LLM.Model = c.String("model")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("listen") {
		cfg.Listen = c.String("listen")
	}

	if err := cfg.Validate(); err != nil {
		return nil, cli.Exit(fmt.Sprintf("invalid config: %v", err), exitUsageError)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsageError)
	}
	return log.NewLogger(level), nil
}

// newLLMClient builds the provider client behind a failure guard.
// The key comes from llm.api_key, falling back to the llm.api_key_env
// environment variable.
func newLLMClient(cfg config.LLMConfig) (llm.Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" && cfg.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
	}

	client, err := llm.NewOpenAIClient(llm.Options{
		BaseURL:      cfg.BaseURL,
		EndpointPath: cfg.EndpointPath,
		Model:        cfg.Model,
		APIKey:       apiKey,
		DisableAuth:  cfg.DisableAuth,
		ExtraHeaders: cfg.ExtraHeaders,
		Timeout:      cfg.Timeout.Duration,
	})
	if err != nil {
		if apiKey == "" && !cfg.DisableAuth {
			return nil, cli.Exit(fmt.Sprintf("%v (set llm.api_key or $%s)", err, cfg.APIKeyEnv), exitUsageError)
		}
		return nil, cli.Exit(err.Error(), exitUsageError)
	}

	maxFailures := config.DefaultMaxFailures
	if cfg.MaxFailures != nil {
		maxFailures = *cfg.MaxFailures
	}
	return llm.Guarded(client, llm.NewGuard(maxFailures, cfg.Cooldown.Duration)), nil
}

// newAdapter builds the completion event adapter. An empty type disables
// publishing.
func newAdapter(cfg config.AdapterConfig) (adapter.Adapter, error) {
	switch cfg.Type {
	case "":
		return adapter.Nop{}, nil
	case "webhook":
		retries := webhook.DefaultRetries
		if cfg.Retries != nil {
			retries = *cfg.Retries
		}
		return webhook.New(webhook.Config{
			URL:      cfg.URL,
			Headers:  cfg.Headers,
			Timeout:  cfg.Timeout.Duration,
			Retries:  retries,
			Encoding: cfg.Encoding,
		})
	case "redis":
		retries := redis.DefaultRetries
		if cfg.Retries != nil {
			retries = *cfg.Retries
		}
		return redis.New(redis.Config{
			URL:      cfg.URL,
			Channel:  cfg.Channel,
			Timeout:  cfg.Timeout.Duration,
			Retries:  retries,
			Encoding: cfg.Encoding,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type %q", cfg.Type)
	}
}

// newAnalyzer wires the provider, limits and event adapter from cfg.
func newAnalyzer(cfg *config.Config, collector *metrics.Collector, logger *log.Logger) (*analysis.Analyzer, error) {
	client, err := newLLMClient(cfg.LLM)
	if err != nil {
		return nil, err
	}
	pub, err := newAdapter(cfg.Adapter)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("adapter: %v", err), exitUsageError)
	}

	a, err := analysis.New(analysis.Options{
		Client:         client,
		Model:          cfg.LLM.Model,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		MaxSourceBytes: cfg.Limits.MaxSourceBytes,
		MaxSourceLines: cfg.Limits.MaxSourceLines,
		Metrics:        collector,
		Adapter:        pub,
		Logger:         logger,
	})
	if err != nil {
		_ = pub.Close()
		return nil, err
	}
	return a, nil
}
