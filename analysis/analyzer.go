// Package analysis turns a source snippet into an aligned explanation:
// prompt, provider call, lenient decode, alignment, metrics and the
// completion event.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/codestory/adapter"
	"github.com/pithecene-io/codestory/align"
	"github.com/pithecene-io/codestory/llm"
	"github.com/pithecene-io/codestory/log"
	"github.com/pithecene-io/codestory/metrics"
	"github.com/pithecene-io/codestory/types"
)

// Input validation errors.
var (
	ErrEmptySource    = errors.New("source is empty")
	ErrSourceTooLarge = errors.New("source too large")
)

// DefaultPublishTimeout bounds delivery of one completion event.
const DefaultPublishTimeout = 30 * time.Second

// Request is one analysis request.
type Request struct {
	Code string `json:"code"`
	// Language is an optional hint passed to the model.
	Language string `json:"language,omitempty"`
}

// Result is a finished analysis. It is not modified after Analyze returns.
type Result struct {
	ID          string             `json:"id" yaml:"id"`
	Model       string             `json:"model" yaml:"model"`
	Language    string             `json:"language,omitempty" yaml:"language,omitempty"`
	Source      string             `json:"source" yaml:"source"`
	Explanation *types.Explanation `json:"explanation" yaml:"explanation"`
	Alignment   *align.Snapshot    `json:"alignment" yaml:"alignment"`
	CreatedAt   time.Time          `json:"created_at" yaml:"created_at"`
	Duration    time.Duration      `json:"-" yaml:"-"`
	DurationMs  int64              `json:"duration_ms" yaml:"duration_ms"`
}

// Options configures an Analyzer.
type Options struct {
	Client      llm.Client
	Model       string
	Temperature *float64
	MaxTokens   int

	// Non-positive limits are not enforced.
	MaxSourceBytes int
	MaxSourceLines int

	// Optional collaborators; nil values fall back to no-ops.
	Metrics        *metrics.Collector
	Adapter        adapter.Adapter
	Logger         *log.Logger
	PublishTimeout time.Duration
}

// Analyzer runs analyses. Safe for concurrent use.
type Analyzer struct {
	opts    Options
	logger  *log.Logger
	adapter adapter.Adapter
	now     func() time.Time

	mu         sync.Mutex
	closed     bool
	publishing sync.WaitGroup
}

// New creates an Analyzer. Client is required.
func New(opts Options) (*Analyzer, error) {
	if opts.Client == nil {
		return nil, errors.New("analysis: llm client is required")
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = DefaultPublishTimeout
	}
	a := &Analyzer{
		opts:    opts,
		logger:  opts.Logger,
		adapter: opts.Adapter,
		now:     time.Now,
	}
	if a.logger == nil {
		a.logger = log.NewNop()
	}
	if a.adapter == nil {
		a.adapter = adapter.Nop{}
	}
	return a, nil
}

// Model returns the configured model name.
func (a *Analyzer) Model() string { return a.opts.Model }

// Validate checks a request against the source limits.
func (a *Analyzer) Validate(req Request) error {
	if strings.TrimSpace(req.Code) == "" {
		return ErrEmptySource
	}
	if limit := a.opts.MaxSourceBytes; limit > 0 && len(req.Code) > limit {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrSourceTooLarge, len(req.Code), limit)
	}
	if limit := a.opts.MaxSourceLines; limit > 0 {
		if n := len(align.SplitLines(req.Code)); n > limit {
			return fmt.Errorf("%w: %d lines exceeds limit of %d", ErrSourceTooLarge, n, limit)
		}
	}
	return nil
}

// Analyze explains req.Code and aligns the model's annotations to it.
// A failed completion event never fails the analysis.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	if err := a.Validate(req); err != nil {
		a.opts.Metrics.IncAnalysisRejected()
		return nil, err
	}

	start := a.now()
	id := uuid.NewString()
	logger := a.logger.With("analysis_id", id)
	a.opts.Metrics.IncAnalysisStarted()

	messages, err := BuildMessages(req.Code, req.Language)
	if err != nil {
		a.opts.Metrics.IncAnalysisFailed()
		return nil, err
	}

	resp, err := a.opts.Client.Chat(ctx, llm.ChatRequest{
		Model:       a.opts.Model,
		Messages:    messages,
		Temperature: a.opts.Temperature,
		MaxTokens:   a.opts.MaxTokens,
		Schema:      &llm.Schema{Name: SchemaName, Schema: explanationSchema},
	})
	if err != nil {
		a.recordProviderError(err)
		a.opts.Metrics.IncAnalysisFailed()
		logger.Warn("llm call failed", map[string]any{"error": err.Error()})
		return nil, fmt.Errorf("analysis: %w", err)
	}

	exp, err := DecodeExplanation(resp.Content)
	if err != nil {
		a.opts.Metrics.IncLLMInvalid()
		a.opts.Metrics.IncAnalysisFailed()
		logger.Warn("undecodable completion", map[string]any{
			"finish_reason": resp.FinishReason,
			"content_bytes": len(resp.Content),
		})
		return nil, fmt.Errorf("analysis: %w", err)
	}
	a.opts.Metrics.IncLLMSuccess()

	snap := align.Build(req.Code, len(exp.Walkthrough), exp.Annotations)
	st := snap.Stats()
	a.opts.Metrics.AbsorbAlignStats(st.Received, st.Normalized, st.Adjusted, st.Aligned, st.Dropped, st.UncoveredSteps)

	model := resp.Model
	if model == "" {
		model = a.opts.Model
	}
	elapsed := a.now().Sub(start)
	result := &Result{
		ID:          id,
		Model:       model,
		Language:    strings.TrimSpace(req.Language),
		Source:      req.Code,
		Explanation: exp,
		Alignment:   snap,
		CreatedAt:   start.UTC(),
		Duration:    elapsed,
		DurationMs:  elapsed.Milliseconds(),
	}
	a.opts.Metrics.IncAnalysisCompleted()

	logger.Info("analysis completed", map[string]any{
		"model":       model,
		"lines":       snap.TotalLines(),
		"steps":       snap.NumSteps(),
		"received":    st.Received,
		"aligned":     st.Aligned,
		"adjusted":    st.Adjusted,
		"dropped":     st.Dropped,
		"issues":      exp.Issues.Total(),
		"duration_ms": result.DurationMs,
	})

	a.publish(ctx, logger, result)
	return result, nil
}

func (a *Analyzer) recordProviderError(err error) {
	switch {
	case errors.Is(err, llm.ErrRateLimited):
		a.opts.Metrics.IncLLMRateLimited()
	case errors.Is(err, llm.ErrResponseInvalid):
		a.opts.Metrics.IncLLMInvalid()
	default:
		a.opts.Metrics.IncLLMFailure()
	}
}

// publish delivers the completion event in the background. The caller's
// cancellation does not abort delivery; Close waits for it. Events for
// analyses finishing after Close are dropped.
func (a *Analyzer) publish(ctx context.Context, logger *log.Logger, result *Result) {
	if _, ok := a.adapter.(adapter.Nop); ok {
		return
	}
	event := CompletionEvent(result)

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		logger.Warn("completion event dropped: analyzer closed", nil)
		return
	}
	a.publishing.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.publishing.Done()
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.opts.PublishTimeout)
		defer cancel()
		if err := a.adapter.Publish(pubCtx, event); err != nil {
			a.opts.Metrics.IncEventPublishFailed()
			logger.Warn("completion event not published", map[string]any{"error": err.Error()})
			return
		}
		a.opts.Metrics.IncEventPublished()
	}()
}

// Close waits for in-flight completion events and closes the adapter.
// Calls after the first do nothing.
func (a *Analyzer) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.publishing.Wait()
	return a.adapter.Close()
}

// CompletionEvent builds the event published for result.
func CompletionEvent(result *Result) *adapter.AnalysisCompletedEvent {
	exp := result.Explanation
	high := 0
	for _, group := range [][]types.IssueItem{exp.Issues.Performance, exp.Issues.Security, exp.Issues.Maintainability} {
		for _, item := range group {
			if item.Severity == types.SeverityHigh || item.Severity == types.SeverityCritical {
				high++
			}
		}
	}
	st := result.Alignment.Stats()
	return &adapter.AnalysisCompletedEvent{
		ContractVersion: types.ContractVersion,
		EventType:       adapter.EventTypeAnalysisCompleted,
		AnalysisID:      result.ID,
		Model:           result.Model,
		Language:        result.Language,
		SourceLines:     result.Alignment.TotalLines(),
		Steps:           result.Alignment.NumSteps(),
		Annotations:     st.Received,
		Aligned:         st.Aligned,
		IssuesTotal:     exp.Issues.Total(),
		IssuesHigh:      high,
		IssueCounts:     exp.Issues.Count(),
		Timestamp:       result.CreatedAt.Format(time.RFC3339),
		DurationMs:      result.DurationMs,
	}
}

// Holder keeps the most recent Result. Each analysis replaces it wholesale;
// readers never see a partially built Result.
type Holder struct {
	current atomic.Pointer[Result]
}

// Load returns the current Result or nil.
func (h *Holder) Load() *Result { return h.current.Load() }

// Store replaces the current Result.
func (h *Holder) Store(r *Result) { h.current.Store(r) }
