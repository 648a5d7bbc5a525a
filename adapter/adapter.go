// Package adapter defines the completion-event boundary.
//
// Adapters publish analysis completion notifications to downstream systems.
// The server owns adapter lifecycle; users provide configuration only.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// EventTypeAnalysisCompleted is the event_type of every published event.
const EventTypeAnalysisCompleted = "analysis_completed"

// Supported payload encodings.
const (
	EncodingJSON    = "json"
	EncodingMsgpack = "msgpack"
)

// AnalysisCompletedEvent is the payload published when an analysis finishes.
type AnalysisCompletedEvent struct {
	ContractVersion string `json:"contract_version" msgpack:"contract_version"`
	EventType       string `json:"event_type" msgpack:"event_type"`
	AnalysisID      string `json:"analysis_id" msgpack:"analysis_id"`
	Model           string `json:"model" msgpack:"model"`
	Language        string `json:"language,omitempty" msgpack:"language,omitempty"`
	SourceLines     int    `json:"source_lines" msgpack:"source_lines"`
	Steps           int    `json:"steps" msgpack:"steps"`
	Annotations     int    `json:"annotations" msgpack:"annotations"`
	Aligned         int    `json:"aligned" msgpack:"aligned"`
	IssuesTotal     int    `json:"issues_total" msgpack:"issues_total"`
	IssuesHigh      int    `json:"issues_high" msgpack:"issues_high"`
	// IssueCounts maps each issue category to its number of findings.
	IssueCounts map[string]int `json:"issue_counts" msgpack:"issue_counts"`
	Timestamp   string         `json:"timestamp" msgpack:"timestamp"` // RFC 3339
	DurationMs  int64          `json:"duration_ms" msgpack:"duration_ms"`
}

// Adapter publishes completion events to a downstream system.
type Adapter interface {
	// Publish sends one event. Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *AnalysisCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// Encode serializes event with the named encoding and returns the
// payload with its content type. An empty encoding means JSON.
func Encode(event *AnalysisCompletedEvent, encoding string) ([]byte, string, error) {
	switch encoding {
	case "", EncodingJSON:
		body, err := json.Marshal(event)
		if err != nil {
			return nil, "", fmt.Errorf("marshal event: %w", err)
		}
		return body, "application/json", nil
	case EncodingMsgpack:
		body, err := msgpack.Marshal(event)
		if err != nil {
			return nil, "", fmt.Errorf("marshal event: %w", err)
		}
		return body, "application/msgpack", nil
	default:
		return nil, "", fmt.Errorf("unknown encoding %q", encoding)
	}
}

// Backoff returns the delay before retry attempt i (1-based):
// 500ms, 1s, 2s, ...
func Backoff(i int) time.Duration {
	if i < 1 {
		return 0
	}
	return time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
}

// Nop discards every event. Used when no adapter is configured.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, *AnalysisCompletedEvent) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }

var _ Adapter = Nop{}
