// Package report renders finished analyses for export.
package report

import (
	"fmt"
	"strings"

	"github.com/pithecene-io/codestory/analysis"
	"github.com/pithecene-io/codestory/types"
)

// Markdown renders a result as a Markdown document: summary, walkthrough
// with the highlighted line range of each step, risk overview, issues by
// category and suggestions. Empty sections are omitted.
func Markdown(result *analysis.Result) string {
	var b strings.Builder
	exp := result.Explanation
	if exp == nil {
		exp = &types.Explanation{}
	}

	b.WriteString("# Code explanation\n\n")
	meta := []string{"Model: " + result.Model}
	if result.Language != "" {
		meta = append(meta, "Language: "+result.Language)
	}
	if !result.CreatedAt.IsZero() {
		meta = append(meta, "Generated: "+result.CreatedAt.Format("2006-01-02 15:04 MST"))
	}
	fmt.Fprintf(&b, "_%s_\n\n", strings.Join(meta, " · "))

	if s := strings.TrimSpace(exp.Summary); s != "" {
		fmt.Fprintf(&b, "## Summary\n\n%s\n\n", s)
	}

	if len(exp.Walkthrough) > 0 {
		b.WriteString("## Walkthrough\n\n")
		for i, step := range exp.Walkthrough {
			fmt.Fprintf(&b, "%d. %s%s\n", i+1, strings.TrimSpace(step), stepLines(result, i))
		}
		b.WriteString("\n")
	}

	if s := strings.TrimSpace(exp.RiskOverview); s != "" {
		fmt.Fprintf(&b, "## Risk overview\n\n%s\n\n", s)
	}

	if exp.Issues.Total() > 0 {
		b.WriteString("## Issues\n\n")
		writeIssues(&b, "Performance", exp.Issues.Performance)
		writeIssues(&b, "Security", exp.Issues.Security)
		writeIssues(&b, "Maintainability", exp.Issues.Maintainability)
	}

	if len(exp.Suggestions) > 0 {
		b.WriteString("## Suggestions\n\n")
		for _, s := range exp.Suggestions {
			fmt.Fprintf(&b, "- %s\n", strings.TrimSpace(s))
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// stepLines returns " (lines a-b)" for a step with a highlight range.
func stepLines(result *analysis.Result, step int) string {
	if result.Alignment == nil {
		return ""
	}
	r, ok := result.Alignment.HighlightRangeForStep(step)
	if !ok {
		return ""
	}
	if r.StartLine == r.EndLine {
		return fmt.Sprintf(" _(line %d)_", r.StartLine)
	}
	return fmt.Sprintf(" _(lines %d–%d)_", r.StartLine, r.EndLine)
}

func writeIssues(b *strings.Builder, title string, items []types.IssueItem) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- **[%s]** %s", it.Severity, strings.TrimSpace(it.Message))
		if e := strings.TrimSpace(it.Explanation); e != "" {
			fmt.Fprintf(b, ": %s", e)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}
