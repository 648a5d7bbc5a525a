// Package types holds the wire shapes shared by the analyzer, the alignment
// engine and the rendering surfaces.
package types

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Annotation is a validated line range tied to one walkthrough step.
// Lines are 1-based and inclusive: 1 <= StartLine <= EndLine <= total lines.
type Annotation struct {
	StartLine int    `json:"start_line" yaml:"start_line"`
	EndLine   int    `json:"end_line" yaml:"end_line"`
	Note      string `json:"note" yaml:"note"`
}

// Raw converts a normalized annotation back into its untrusted form.
func (a Annotation) Raw() RawAnnotation {
	return RawAnnotation{
		StartLine: Number(float64(a.StartLine)),
		EndLine:   Number(float64(a.EndLine)),
		Note:      LooseString{Value: a.Note, Valid: true},
	}
}

// RawAnnotation is an annotation exactly as the model emitted it.
// Decoding never fails: every field accepts any JSON value and the
// normalizer decides what to make of it.
type RawAnnotation struct {
	StartLine LooseNumber `json:"start_line"`
	EndLine   LooseNumber `json:"end_line"`
	Note      LooseString `json:"note"`
	// StepIndex is the step the model claims the range belongs to.
	// Alignment derives the pairing from file order and does not read it.
	StepIndex LooseNumber `json:"step_index"`
}

// LooseNumber is a numeric field of unknown JSON type.
//
// Valid is false when the field was absent, null, or held a value with no
// numeric reading (objects, arrays, unparseable strings). A valid value may
// still be non-finite ("Infinity" parses to +Inf); callers check that.
type LooseNumber struct {
	Value float64
	Valid bool
}

// Number returns a valid LooseNumber holding v.
func Number(v float64) LooseNumber {
	return LooseNumber{Value: v, Valid: true}
}

// Float returns the value when it is present and finite.
func (n LooseNumber) Float() (float64, bool) {
	if !n.Valid || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return 0, false
	}
	return n.Value, true
}

// UnmarshalJSON implements json.Unmarshaler. It never returns an error.
func (n *LooseNumber) UnmarshalJSON(data []byte) error {
	*n = LooseNumber{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case 'n': // null
		return nil
	case 't':
		*n = Number(1)
	case 'f':
		*n = Number(0)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*n = parseNumeric(s)
	case '{', '[':
		return nil
	default:
		v, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return nil
		}
		*n = Number(v)
	}
	return nil
}

// MarshalJSON implements json.Marshaler. Absent or non-finite values encode
// as null.
func (n LooseNumber) MarshalJSON() ([]byte, error) {
	v, ok := n.Float()
	if !ok {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'f', -1, 64), nil
}

// parseNumeric reads a numeric string the way a browser would coerce it:
// surrounding whitespace is ignored and the empty string reads as zero.
func parseNumeric(s string) LooseNumber {
	s = strings.TrimSpace(s)
	if s == "" {
		return Number(0)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return LooseNumber{}
	}
	return Number(v)
}

// LooseString is a text field of unknown JSON type.
// Non-string scalars keep their JSON spelling; null and absence leave it empty.
type LooseString struct {
	Value string
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler. It never returns an error.
func (s *LooseString) UnmarshalJSON(data []byte) error {
	*s = LooseString{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return nil
		}
		*s = LooseString{Value: v, Valid: true}
		return nil
	}
	*s = LooseString{Value: string(data), Valid: true}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s LooseString) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}
