package adapter_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pithecene-io/codestory/adapter"
	"github.com/pithecene-io/codestory/adapter/adaptertest"
)

func testEvent() *adapter.AnalysisCompletedEvent {
	return &adapter.AnalysisCompletedEvent{
		ContractVersion: "0.4.0",
		EventType:       adapter.EventTypeAnalysisCompleted,
		AnalysisID:      "3f1c2d7e-0000-4000-8000-000000000001",
		Model:           "gpt-test",
		Language:        "go",
		SourceLines:     42,
		Steps:           4,
		Annotations:     5,
		Aligned:         4,
		IssuesTotal:     3,
		IssuesHigh:      1,
		IssueCounts:     map[string]int{"performance": 1, "security": 2, "maintainability": 0},
		Timestamp:       "2026-02-07T12:00:00Z",
		DurationMs:      1500,
	}
}

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		encoding    string
		contentType string
	}{
		{"", "application/json"},
		{adapter.EncodingJSON, "application/json"},
		{adapter.EncodingMsgpack, "application/msgpack"},
	}
	for _, tt := range tests {
		t.Run("encoding="+tt.encoding, func(t *testing.T) {
			body, ct, err := adapter.Encode(testEvent(), tt.encoding)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if ct != tt.contentType {
				t.Errorf("content type = %q, want %q", ct, tt.contentType)
			}
			if got := adaptertest.Decode(t, body, tt.encoding); !reflect.DeepEqual(got, testEvent()) {
				t.Errorf("decoded = %+v", got)
			}
		})
	}
}

func TestEncode_UnknownEncoding(t *testing.T) {
	if _, _, err := adapter.Encode(testEvent(), "xml"); err == nil {
		t.Fatal("expected error for unknown encoding")
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 500 * time.Millisecond},
		{2, time.Second},
		{3, 2 * time.Second},
	}
	for _, tt := range tests {
		if got := adapter.Backoff(tt.attempt); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

// recordBackoff returns a zero-delay backoff that records the retry indexes
// it was asked for.
func recordBackoff(waits *[]int) func(int) time.Duration {
	return func(i int) time.Duration {
		*waits = append(*waits, i)
		return 0
	}
}

func TestRetry(t *testing.T) {
	errTransient := errors.New("transient")
	errFatal := errors.New("fatal")

	tests := []struct {
		name         string
		retries      int
		failures     int
		fail         error
		wantErr      string
		wantAttempts int
		wantWaits    []int
	}{
		{name: "first attempt succeeds", retries: 3, wantAttempts: 1},
		{name: "succeeds after retries", retries: 3, failures: 2, fail: errTransient, wantAttempts: 3, wantWaits: []int{1, 2}},
		{name: "exhausts retries", retries: 2, failures: 10, fail: errTransient, wantErr: "test: failed after 3 attempts: transient", wantAttempts: 3, wantWaits: []int{1, 2}},
		{name: "permanent error stops at once", retries: 5, failures: 10, fail: adapter.Permanent(errFatal), wantErr: "test: fatal", wantAttempts: 1},
		{name: "zero retries", retries: 0, failures: 1, fail: errTransient, wantErr: "test: failed after 1 attempts: transient", wantAttempts: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var waits []int
			attempts := 0
			err := adapter.Retry(t.Context(), "test", tt.retries, recordBackoff(&waits), func(context.Context) error {
				attempts++
				if attempts <= tt.failures {
					return tt.fail
				}
				return nil
			})

			switch {
			case tt.wantErr == "" && err != nil:
				t.Fatalf("Retry = %v, want nil", err)
			case tt.wantErr != "" && (err == nil || err.Error() != tt.wantErr):
				t.Fatalf("Retry = %v, want %q", err, tt.wantErr)
			}
			if attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
			if !reflect.DeepEqual(waits, tt.wantWaits) {
				t.Errorf("backoff indexes = %v, want %v", waits, tt.wantWaits)
			}
		})
	}
}

func TestRetry_PermanentKeepsCause(t *testing.T) {
	errFatal := errors.New("fatal")
	err := adapter.Retry(t.Context(), "test", 3, nil, func(context.Context) error {
		return adapter.Permanent(errFatal)
	})
	if !errors.Is(err, errFatal) {
		t.Errorf("Retry = %v, want wrapped %v", err, errFatal)
	}
	if adapter.Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}

func TestRetry_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	attempts := 0
	err := adapter.Retry(ctx, "test", 3, func(int) time.Duration { return time.Hour }, func(context.Context) error {
		attempts++
		cancel()
		return errors.New("transient")
	})
	if err == nil || !strings.Contains(err.Error(), "during backoff") {
		t.Fatalf("Retry = %v, want backoff cancellation", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetry_ContextAlreadyDone(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	called := false
	err := adapter.Retry(ctx, "test", 3, nil, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Errorf("Retry = %v, called = %v", err, called)
	}
}

func TestNop(t *testing.T) {
	var a adapter.Adapter = adapter.Nop{}
	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Errorf("Publish = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
}
