package types //nolint:revive // types is a valid package name

import (
	"encoding/json"
	"math"
	"testing"
)

func TestLooseNumber_Unmarshal(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantValue float64
	}{
		{"integer", `7`, true, 7},
		{"float", `3.5`, true, 3.5},
		{"negative", `-2`, true, -2},
		{"numeric string", `"3"`, true, 3},
		{"padded string", `"  12 "`, true, 12},
		{"empty string", `""`, true, 0},
		{"garbage string", `"line five"`, false, 0},
		{"true", `true`, true, 1},
		{"false", `false`, true, 0},
		{"null", `null`, false, 0},
		{"object", `{"line": 3}`, false, 0},
		{"array", `[3]`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n LooseNumber
			if err := json.Unmarshal([]byte(tt.input), &n); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.input, err)
			}
			if n.Valid != tt.wantValid {
				t.Fatalf("Valid = %v, want %v", n.Valid, tt.wantValid)
			}
			if n.Valid && n.Value != tt.wantValue {
				t.Errorf("Value = %v, want %v", n.Value, tt.wantValue)
			}
		})
	}
}

func TestLooseNumber_FloatRejectsNonFinite(t *testing.T) {
	var n LooseNumber
	if err := json.Unmarshal([]byte(`"Infinity"`), &n); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if !n.Valid || !math.IsInf(n.Value, 1) {
		t.Fatalf("expected valid +Inf, got %+v", n)
	}
	if _, ok := n.Float(); ok {
		t.Error("Float() should reject +Inf")
	}
}

func TestRawAnnotation_DecodesAnyShape(t *testing.T) {
	payload := `[
		{"start_line": "3", "end_line": 5, "note": "loop"},
		{"start_line": 1},
		{"end_line": [1, 2], "note": 42, "step_index": "x"},
		{}
	]`

	var raw []RawAnnotation
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if len(raw) != 4 {
		t.Fatalf("len = %d, want 4", len(raw))
	}

	if v, ok := raw[0].StartLine.Float(); !ok || v != 3 {
		t.Errorf("raw[0].StartLine = %v/%v, want 3", v, ok)
	}
	if raw[0].Note.Value != "loop" {
		t.Errorf("raw[0].Note = %q, want loop", raw[0].Note.Value)
	}
	if raw[1].EndLine.Valid {
		t.Error("raw[1].EndLine should be absent")
	}
	if raw[2].EndLine.Valid {
		t.Error("raw[2].EndLine array should be invalid")
	}
	if raw[2].Note.Value != "42" {
		t.Errorf("raw[2].Note = %q, want 42", raw[2].Note.Value)
	}
	if raw[3].StartLine.Valid || raw[3].Note.Valid {
		t.Errorf("raw[3] should be empty, got %+v", raw[3])
	}
}

func TestAnnotation_Raw(t *testing.T) {
	a := Annotation{StartLine: 2, EndLine: 4, Note: "n"}
	raw := a.Raw()

	start, ok := raw.StartLine.Float()
	if !ok || start != 2 {
		t.Errorf("StartLine = %v/%v, want 2", start, ok)
	}
	end, ok := raw.EndLine.Float()
	if !ok || end != 4 {
		t.Errorf("EndLine = %v/%v, want 4", end, ok)
	}
	if raw.Note.Value != "n" {
		t.Errorf("Note = %q, want n", raw.Note.Value)
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"low", SeverityLow},
		{"HIGH", SeverityHigh},
		{" Critical ", SeverityCritical},
		{"medium", SeverityMedium},
		{"severe", SeverityMedium},
		{"", SeverityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseSeverity(tt.in); got != tt.want {
				t.Errorf("ParseSeverity(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
