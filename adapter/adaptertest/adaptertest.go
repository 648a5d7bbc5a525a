// Package adaptertest decodes published completion events for adapter
// tests and receivers.
package adaptertest

import (
	"encoding/json"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/codestory/adapter"
)

// Decode is the inverse of adapter.Encode. It fails the test on an unknown
// encoding or a malformed payload.
func Decode(tb testing.TB, data []byte, encoding string) *adapter.AnalysisCompletedEvent {
	tb.Helper()
	var event adapter.AnalysisCompletedEvent
	var err error
	switch encoding {
	case "", adapter.EncodingJSON:
		err = json.Unmarshal(data, &event)
	case adapter.EncodingMsgpack:
		err = msgpack.Unmarshal(data, &event)
	default:
		tb.Fatalf("unknown encoding %q", encoding)
	}
	if err != nil {
		tb.Fatalf("decode %s event: %v", encoding, err)
	}
	return &event
}
