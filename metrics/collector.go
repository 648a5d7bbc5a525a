// Package metrics accumulates process-wide analysis counters.
//
// The Collector is a leaf package with no internal dependencies. Alignment
// counters are absorbed from align.Stats after each analysis rather than
// recorded live, so a failed analysis never contributes partial counts.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Analysis lifecycle
	AnalysesStarted   int64 `json:"analyses_started" yaml:"analyses_started"`
	AnalysesCompleted int64 `json:"analyses_completed" yaml:"analyses_completed"`
	AnalysesFailed    int64 `json:"analyses_failed" yaml:"analyses_failed"`
	AnalysesRejected  int64 `json:"analyses_rejected" yaml:"analyses_rejected"`

	// Provider calls
	LLMSuccess     int64 `json:"llm_success" yaml:"llm_success"`
	LLMFailure     int64 `json:"llm_failure" yaml:"llm_failure"`
	LLMRateLimited int64 `json:"llm_rate_limited" yaml:"llm_rate_limited"`
	LLMInvalid     int64 `json:"llm_invalid_response" yaml:"llm_invalid_response"`

	// Alignment (absorbed from align.Stats)
	AnnotationsReceived   int64 `json:"annotations_received" yaml:"annotations_received"`
	AnnotationsNormalized int64 `json:"annotations_normalized" yaml:"annotations_normalized"`
	AnnotationsAdjusted   int64 `json:"annotations_adjusted" yaml:"annotations_adjusted"`
	AnnotationsAligned    int64 `json:"annotations_aligned" yaml:"annotations_aligned"`
	AnnotationsDropped    int64 `json:"annotations_dropped" yaml:"annotations_dropped"`
	UncoveredSteps        int64 `json:"uncovered_steps" yaml:"uncovered_steps"`

	// Completion events
	EventsPublished    int64 `json:"events_published" yaml:"events_published"`
	EventsPublishError int64 `json:"events_publish_failed" yaml:"events_publish_failed"`

	// Dimensions (informational, set at construction)
	Model   string `json:"model" yaml:"model"`
	Adapter string `json:"adapter" yaml:"adapter"`
}

// Collector accumulates counters for the lifetime of a process.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex
	s  Snapshot
}

// NewCollector creates a Collector with dimension labels.
// adapter is empty when completion events are disabled.
func NewCollector(model, adapter string) *Collector {
	return &Collector{s: Snapshot{Model: model, Adapter: adapter}}
}

func (c *Collector) inc(field func(*Snapshot) *int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	*field(&c.s)++
	c.mu.Unlock()
}

// --- Analysis lifecycle ---

// IncAnalysisStarted records an accepted analysis request.
func (c *Collector) IncAnalysisStarted() {
	c.inc(func(s *Snapshot) *int64 { return &s.AnalysesStarted })
}

// IncAnalysisCompleted records a successful analysis.
func (c *Collector) IncAnalysisCompleted() {
	c.inc(func(s *Snapshot) *int64 { return &s.AnalysesCompleted })
}

// IncAnalysisFailed records an analysis that failed after being accepted.
func (c *Collector) IncAnalysisFailed() {
	c.inc(func(s *Snapshot) *int64 { return &s.AnalysesFailed })
}

// IncAnalysisRejected records a request refused by input validation.
func (c *Collector) IncAnalysisRejected() {
	c.inc(func(s *Snapshot) *int64 { return &s.AnalysesRejected })
}

// --- Provider ---

// IncLLMSuccess records a usable completion.
func (c *Collector) IncLLMSuccess() {
	c.inc(func(s *Snapshot) *int64 { return &s.LLMSuccess })
}

// IncLLMFailure records a transport, upstream or guard failure.
func (c *Collector) IncLLMFailure() {
	c.inc(func(s *Snapshot) *int64 { return &s.LLMFailure })
}

// IncLLMRateLimited records an HTTP 429 from the provider.
func (c *Collector) IncLLMRateLimited() {
	c.inc(func(s *Snapshot) *int64 { return &s.LLMRateLimited })
}

// IncLLMInvalid records a completion that could not be decoded.
func (c *Collector) IncLLMInvalid() {
	c.inc(func(s *Snapshot) *int64 { return &s.LLMInvalid })
}

// --- Events ---

// IncEventPublished records a delivered completion event.
func (c *Collector) IncEventPublished() {
	c.inc(func(s *Snapshot) *int64 { return &s.EventsPublished })
}

// IncEventPublishFailed records a completion event that could not be delivered.
func (c *Collector) IncEventPublishFailed() {
	c.inc(func(s *Snapshot) *int64 { return &s.EventsPublishError })
}

// --- Alignment ---

// AbsorbAlignStats adds one analysis' alignment counters.
// Arguments are plain ints to keep this package free of the align package.
func (c *Collector) AbsorbAlignStats(received, normalized, adjusted, aligned, dropped, uncovered int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.s.AnnotationsReceived += int64(received)
	c.s.AnnotationsNormalized += int64(normalized)
	c.s.AnnotationsAdjusted += int64(adjusted)
	c.s.AnnotationsAligned += int64(aligned)
	c.s.AnnotationsDropped += int64(dropped)
	c.s.UncoveredSteps += int64(uncovered)
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns a point-in-time copy of all counters.
// The Collector can continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}
