package analysis

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/pithecene-io/codestory/align"
	"github.com/pithecene-io/codestory/llm"
)

const systemTemplate = `You are a senior software engineer explaining code to a colleague.
{{- if .Language}}
The snippet is written in {{.Language}}.
{{- end}}

Respond with a single JSON object and nothing else. Fields:
- summary: two or three sentences on what the code does.
- walkthrough: ordered steps, each one short paragraph, following the code top to bottom.
- risk_overview: one paragraph on the main risks.
- issues: findings grouped as performance, security and maintainability; each has message, severity (low, medium, high, critical) and explanation.
- suggestions: concrete improvements.
- annotations: one entry per walkthrough step, in the same order, with start_line and end_line (1-based, inclusive, as numbered in the source), step_index (0-based) and a short note.

Source lines are prefixed with their number and a "|" separator. The numbers are not part of the code.`

var systemTmpl = template.Must(template.New("system").Parse(systemTemplate))

// SchemaName is the json_schema name sent with every request.
const SchemaName = "code_explanation"

// BuildMessages returns the system and user messages for one snippet.
func BuildMessages(code, language string) ([]llm.Message, error) {
	var sys bytes.Buffer
	if err := systemTmpl.Execute(&sys, struct{ Language string }{strings.TrimSpace(language)}); err != nil {
		return nil, fmt.Errorf("prompt: render system template: %w", err)
	}
	return []llm.Message{
		{Role: "system", Content: sys.String()},
		{Role: "user", Content: NumberLines(code)},
	}, nil
}

// NumberLines prefixes each source line with its right-aligned 1-based number.
func NumberLines(code string) string {
	lines := align.SplitLines(code)
	width := len(fmt.Sprint(len(lines)))
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%*d | %s\n", width, i+1, line)
	}
	return b.String()
}
