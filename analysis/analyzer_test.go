package analysis

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/pithecene-io/codestory/adapter"
	"github.com/pithecene-io/codestory/llm"
	"github.com/pithecene-io/codestory/metrics"
	"github.com/pithecene-io/codestory/types"
)

const sampleSource = "func sum(xs []int) int {\n\n\ttotal := 0\n\tfor _, x := range xs {\n\t\ttotal += x\n\t}\n\n\treturn total\n}\n"

const sampleCompletion = `{
  "summary": "Adds up a slice.",
  "walkthrough": ["Loop over the slice.", "Set up the accumulator.", "Return the total."],
  "risk_overview": "Integer overflow is unchecked.",
  "issues": {
    "performance": [],
    "security": [],
    "maintainability": [{"message": "No doc comment", "severity": "low", "explanation": "exported later"}]
  },
  "suggestions": ["Document the function."],
  "annotations": [
    {"start_line": 4, "end_line": 7, "step_index": 1, "note": "loop"},
    {"start_line": 1, "end_line": 3, "step_index": 0, "note": "setup"},
    {"start_line": 8, "end_line": 99, "step_index": 2, "note": "return"},
    {"start_line": 9, "end_line": 9, "step_index": 3, "note": "extra"}
  ]
}`

// fakeClient returns a fixed completion and records the last request.
type fakeClient struct {
	mu      sync.Mutex
	content string
	model   string
	err     error
	last    llm.ChatRequest
	calls   int
}

func (f *fakeClient) Chat(_ context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = req
	if f.err != nil {
		return llm.ChatResponse{}, f.err
	}
	return llm.ChatResponse{Content: f.content, FinishReason: "stop", Model: f.model}, nil
}

// recordingAdapter captures published events.
type recordingAdapter struct {
	mu     sync.Mutex
	events []*adapter.AnalysisCompletedEvent
	err    error
	closed bool
	// late counts Publish calls made after Close.
	late int
}

func (r *recordingAdapter) Publish(_ context.Context, e *adapter.AnalysisCompletedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.late++
	}
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *recordingAdapter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func newTestAnalyzer(t *testing.T, client llm.Client, opts Options) *Analyzer {
	t.Helper()
	opts.Client = client
	if opts.Model == "" {
		opts.Model = "gpt-test"
	}
	a, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestNew_RequiresClient(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without client")
	}
}

func TestAnalyze_Success(t *testing.T) {
	client := &fakeClient{content: sampleCompletion, model: "gpt-test-2026"}
	m := metrics.NewCollector("gpt-test", "")
	temp := 0.2
	a := newTestAnalyzer(t, client, Options{Metrics: m, Temperature: &temp, MaxTokens: 2000})

	res, err := a.Analyze(t.Context(), Request{Code: sampleSource, Language: " go "})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if res.ID == "" || res.Model != "gpt-test-2026" || res.Language != "go" {
		t.Errorf("result header = %q %q %q", res.ID, res.Model, res.Language)
	}
	if res.Source != sampleSource {
		t.Error("source not kept")
	}
	if res.Explanation.Summary != "Adds up a slice." {
		t.Errorf("summary = %q", res.Explanation.Summary)
	}

	snap := res.Alignment
	if snap.TotalLines() != 9 || snap.NumSteps() != 3 {
		t.Fatalf("lines/steps = %d/%d, want 9/3", snap.TotalLines(), snap.NumSteps())
	}
	want := []types.Annotation{
		{StartLine: 1, EndLine: 3, Note: "setup"},
		{StartLine: 4, EndLine: 7, Note: "loop"},
		{StartLine: 8, EndLine: 9, Note: "return"},
	}
	got := snap.Canonical()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("canonical[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
	if hl, ok := snap.HighlightRangeForStep(1); !ok || hl.StartLine != 4 || hl.EndLine != 6 {
		t.Errorf("highlight step 1 = %+v/%v, want 4-6", hl, ok)
	}

	if client.last.Model != "gpt-test" || client.last.Schema == nil || client.last.Schema.Name != SchemaName {
		t.Errorf("request = %+v", client.last)
	}
	if client.last.Temperature == nil || *client.last.Temperature != 0.2 || client.last.MaxTokens != 2000 {
		t.Errorf("sampling = %v/%d", client.last.Temperature, client.last.MaxTokens)
	}
	if !strings.HasPrefix(client.last.Messages[1].Content, "1 | func sum") {
		t.Errorf("user message = %q", client.last.Messages[1].Content)
	}

	s := m.Snapshot()
	if s.AnalysesStarted != 1 || s.AnalysesCompleted != 1 || s.LLMSuccess != 1 {
		t.Errorf("lifecycle metrics = %+v", s)
	}
	if s.AnnotationsReceived != 4 || s.AnnotationsAligned != 3 || s.AnnotationsDropped != 1 || s.AnnotationsAdjusted != 1 {
		t.Errorf("alignment metrics = %+v", s)
	}
}

func TestAnalyze_Validation(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		opts    Options
		wantErr error
	}{
		{name: "empty", code: "", wantErr: ErrEmptySource},
		{name: "whitespace", code: " \n\t\n", wantErr: ErrEmptySource},
		{name: "too many bytes", code: strings.Repeat("x", 11), opts: Options{MaxSourceBytes: 10}, wantErr: ErrSourceTooLarge},
		{name: "too many lines", code: "a\nb\nc\n", opts: Options{MaxSourceLines: 2}, wantErr: ErrSourceTooLarge},
		{name: "at line limit", code: "a\nb\n", opts: Options{MaxSourceLines: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{content: `{"walkthrough": []}`}
			m := metrics.NewCollector("m", "")
			tt.opts.Metrics = m
			a := newTestAnalyzer(t, client, tt.opts)

			_, err := a.Analyze(t.Context(), Request{Code: tt.code})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if client.calls != 0 {
					t.Error("provider called for rejected input")
				}
				if got := m.Snapshot().AnalysesRejected; got != 1 {
					t.Errorf("AnalysesRejected = %d, want 1", got)
				}
			}
		})
	}
}

func TestAnalyze_ProviderErrors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(metrics.Snapshot) bool
	}{
		{"rate limited", llm.ErrRateLimited, func(s metrics.Snapshot) bool { return s.LLMRateLimited == 1 }},
		{"upstream", &llm.UpstreamError{Status: 502}, func(s metrics.Snapshot) bool { return s.LLMFailure == 1 }},
		{"guard open", llm.ErrUnavailable, func(s metrics.Snapshot) bool { return s.LLMFailure == 1 }},
		{"invalid response", llm.ErrResponseInvalid, func(s metrics.Snapshot) bool { return s.LLMInvalid == 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.NewCollector("m", "")
			a := newTestAnalyzer(t, &fakeClient{err: tt.err}, Options{Metrics: m})

			_, err := a.Analyze(t.Context(), Request{Code: sampleSource})
			if !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want wrapping %v", err, tt.err)
			}
			s := m.Snapshot()
			if !tt.check(s) || s.AnalysesFailed != 1 || s.AnalysesCompleted != 0 {
				t.Errorf("metrics = %+v", s)
			}
		})
	}
}

func TestAnalyze_UndecodableCompletion(t *testing.T) {
	m := metrics.NewCollector("m", "")
	a := newTestAnalyzer(t, &fakeClient{content: "Sorry, I can't do that."}, Options{Metrics: m})

	_, err := a.Analyze(t.Context(), Request{Code: sampleSource})
	if !errors.Is(err, llm.ErrResponseInvalid) {
		t.Fatalf("err = %v, want ErrResponseInvalid", err)
	}
	if s := m.Snapshot(); s.LLMInvalid != 1 || s.AnalysesFailed != 1 {
		t.Errorf("metrics = %+v", s)
	}
}

func TestAnalyze_PublishesCompletionEvent(t *testing.T) {
	rec := &recordingAdapter{}
	m := metrics.NewCollector("m", "test")
	a := newTestAnalyzer(t, &fakeClient{content: sampleCompletion}, Options{Metrics: m, Adapter: rec})

	res, err := a.Analyze(t.Context(), Request{Code: sampleSource, Language: "go"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if len(rec.events) != 1 {
		t.Fatalf("events = %d, want 1", len(rec.events))
	}
	e := rec.events[0]
	if e.EventType != adapter.EventTypeAnalysisCompleted || e.AnalysisID != res.ID || e.ContractVersion != types.ContractVersion {
		t.Errorf("event header = %+v", e)
	}
	if e.SourceLines != 9 || e.Steps != 3 || e.Annotations != 4 || e.Aligned != 3 || e.IssuesTotal != 1 || e.IssuesHigh != 0 {
		t.Errorf("event counts = %+v", e)
	}
	if !rec.closed {
		t.Error("adapter not closed")
	}
	if got := m.Snapshot().EventsPublished; got != 1 {
		t.Errorf("EventsPublished = %d, want 1", got)
	}
}

func TestAnalyze_PublishFailureDoesNotFailAnalysis(t *testing.T) {
	rec := &recordingAdapter{err: errors.New("broker down")}
	m := metrics.NewCollector("m", "test")
	a := newTestAnalyzer(t, &fakeClient{content: sampleCompletion}, Options{Metrics: m, Adapter: rec})

	if _, err := a.Analyze(t.Context(), Request{Code: sampleSource}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	_ = a.Close()
	if got := m.Snapshot().EventsPublishError; got != 1 {
		t.Errorf("EventsPublishError = %d, want 1", got)
	}
}

func TestAnalyze_PublishOutlivesCanceledRequest(t *testing.T) {
	rec := &recordingAdapter{}
	a := newTestAnalyzer(t, &fakeClient{content: sampleCompletion}, Options{Adapter: rec})

	ctx, cancel := context.WithCancel(t.Context())
	if _, err := a.Analyze(ctx, Request{Code: sampleSource}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	cancel()
	_ = a.Close()
	if len(rec.events) != 1 {
		t.Errorf("events = %d, want 1", len(rec.events))
	}
}

func TestAnalyze_AfterCloseDropsEvent(t *testing.T) {
	rec := &recordingAdapter{}
	a := newTestAnalyzer(t, &fakeClient{content: sampleCompletion}, Options{Adapter: rec})

	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := a.Analyze(t.Context(), Request{Code: sampleSource}); err != nil {
		t.Fatalf("Analyze after Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != 0 {
		t.Errorf("events = %d, want 0", len(rec.events))
	}
}

func TestAnalyze_ConcurrentWithClose(t *testing.T) {
	rec := &recordingAdapter{}
	a := newTestAnalyzer(t, &fakeClient{content: sampleCompletion}, Options{Adapter: rec})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := a.Analyze(t.Context(), Request{Code: sampleSource}); err != nil {
				t.Errorf("Analyze: %v", err)
			}
		}()
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	wg.Wait()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.late != 0 {
		t.Errorf("%d events published after the adapter was closed", rec.late)
	}
	if len(rec.events) > 8 {
		t.Errorf("events = %d, want at most 8", len(rec.events))
	}
}

func TestCompletionEvent_CountsHighSeverity(t *testing.T) {
	a := newTestAnalyzer(t, &fakeClient{content: `{
		"walkthrough": ["only"],
		"issues": {"security": [
			{"message": "a", "severity": "critical"},
			{"message": "b", "severity": "high"},
			{"message": "c", "severity": "low"}
		]}
	}`}, Options{})
	res, err := a.Analyze(t.Context(), Request{Code: "x := 1\n"})
	if err != nil {
		t.Fatal(err)
	}
	e := CompletionEvent(res)
	if e.IssuesTotal != 3 || e.IssuesHigh != 2 {
		t.Errorf("issues total/high = %d/%d, want 3/2", e.IssuesTotal, e.IssuesHigh)
	}
	wantCounts := map[string]int{"performance": 0, "security": 3, "maintainability": 0}
	if !reflect.DeepEqual(e.IssueCounts, wantCounts) {
		t.Errorf("issue counts = %v, want %v", e.IssueCounts, wantCounts)
	}
	if e.Steps != 1 || e.Aligned != 0 {
		t.Errorf("steps/aligned = %d/%d", e.Steps, e.Aligned)
	}
}

func TestHolder(t *testing.T) {
	var h Holder
	if h.Load() != nil {
		t.Fatal("zero Holder should be empty")
	}
	first := &Result{ID: "one"}
	second := &Result{ID: "two"}
	h.Store(first)
	h.Store(second)
	if got := h.Load(); got != second {
		t.Errorf("Load = %v, want second result", got)
	}
}
