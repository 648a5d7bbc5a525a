package render

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{"json lowercase", "json", FormatJSON, false},
		{"json uppercase", "JSON", FormatJSON, false},
		{"table", "table", FormatTable, false},
		{"yaml", "yaml", FormatYAML, false},
		{"empty", "", "", false},
		{"invalid", "xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFormat_InvalidErrorMessage(t *testing.T) {
	_, err := ParseFormat("xml")
	if err == nil || !strings.Contains(err.Error(), "json, table, or yaml") {
		t.Errorf("error message should mention valid formats, got: %v", err)
	}
}

func TestRenderer_JSONAndYAML(t *testing.T) {
	data := map[string]string{"key": "value"}
	tests := []struct {
		format Format
		want   []string
	}{
		{FormatJSON, []string{`"key": "value"`}},
		{FormatYAML, []string{"key: value"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewRendererWithWriter(tt.format, false, &buf).Render(data); err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q: %s", want, buf.String())
				}
			}
		})
	}
}

func TestRenderer_Table_Struct(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, true, &buf)

	type TestStruct struct {
		Name   string `json:"name"`
		Value  int    `json:"value,omitempty"`
		hidden string
	}

	if err := r.Render(TestStruct{Name: "test", Value: 42, hidden: "x"}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "name:") || !strings.Contains(got, "test") {
		t.Errorf("missing name field: %s", got)
	}
	if !strings.Contains(got, "value:") || !strings.Contains(got, "42") {
		t.Errorf("missing value field: %s", got)
	}
	if strings.Contains(got, "hidden") {
		t.Errorf("unexported field rendered: %s", got)
	}
}

func TestRenderer_Table_Slice(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, true, &buf)

	type Item struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := r.Render([]Item{{ID: "1", Name: "first"}, {ID: "2", Name: "second"}}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "id") || !strings.Contains(lines[2], "second") {
		t.Errorf("table = %q", buf.String())
	}
}

func TestRenderer_Table_EmptySlice(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRendererWithWriter(FormatTable, true, &buf).Render([]string{}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "(no results)") {
		t.Errorf("empty slice should show '(no results)', got: %s", buf.String())
	}
}

type sectioned struct{}

func (sectioned) Sections() []Section {
	return []Section{
		{Title: "Overview", Rows: [][]string{{"model:", "gpt-test"}}},
		{Title: "Steps", Headers: []string{"#", "lines"}, Rows: [][]string{{"1", "3-5"}, {"2", "-"}}},
		{Title: "Issues"},
	}
}

func TestRenderer_Table_Sections(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRendererWithWriter(FormatTable, true, &buf).Render(sectioned{}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	want := "Overview\nmodel:  gpt-test\n\nSteps\n#  LINES\n1  3-5\n2  -\n\nIssues\n(none)\n"
	if buf.String() != want {
		t.Errorf("sections:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestRenderer_ColorOnlyInTable(t *testing.T) {
	var colored, plain bytes.Buffer
	if err := NewRendererWithWriter(FormatTable, false, &colored).Render(sectioned{}); err != nil {
		t.Fatal(err)
	}
	if err := NewRendererWithWriter(FormatTable, true, &plain).Render(sectioned{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Error("color enabled but no escape codes written")
	}
	if strings.Contains(plain.String(), "\x1b[") {
		t.Error("--no-color output contains escape codes")
	}

	var jsonColor, jsonPlain bytes.Buffer
	_ = NewRendererWithWriter(FormatJSON, false, &jsonColor).Render(map[string]string{"k": "v"})
	_ = NewRendererWithWriter(FormatJSON, true, &jsonPlain).Render(map[string]string{"k": "v"})
	if jsonColor.String() != jsonPlain.String() {
		t.Error("--no-color should not affect JSON output")
	}
}

func TestIsTerminal_NonFileWriter(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("IsTerminal(buffer) = true, want false")
	}
}
