// Package redis publishes analysis completion events on a Redis pub/sub
// channel. Retries with exponential backoff on connection errors.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/codestory/adapter"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "codestory:analysis_completed"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// Config configures the Redis pub/sub adapter.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default: codestory:analysis_completed).
	Channel string
	// Timeout is the per-publish timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
	// Encoding is json (default) or msgpack.
	Encoding string
}

// Adapter publishes completion events via Redis PUBLISH.
type Adapter struct {
	config  Config
	client  *goredis.Client
	backoff func(int) time.Duration
}

// New creates a Redis pub/sub adapter from the given config.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if _, _, err := adapter.Encode(&adapter.AnalysisCompletedEvent{}, cfg.Encoding); err != nil {
		return nil, fmt.Errorf("redis adapter: %w", err)
	}

	return &Adapter{
		config:  cfg,
		client:  goredis.NewClient(opts),
		backoff: adapter.Backoff,
	}, nil
}

// Publish sends the encoded event to the configured channel.
func (a *Adapter) Publish(ctx context.Context, event *adapter.AnalysisCompletedEvent) error {
	body, _, err := adapter.Encode(event, a.config.Encoding)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	return adapter.Retry(ctx, "redis", a.config.Retries, a.backoff, func(ctx context.Context) error {
		publishCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
		err := a.client.Publish(publishCtx, a.config.Channel, body).Err()
		if errors.Is(err, goredis.ErrClosed) {
			return adapter.Permanent(err)
		}
		return err
	})
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
