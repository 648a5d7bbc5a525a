package cmd

import (
	"strconv"
	"strings"

	"github.com/pithecene-io/codestory/align"
	"github.com/pithecene-io/codestory/analysis"
	"github.com/pithecene-io/codestory/cli/render"
	"github.com/pithecene-io/codestory/types"
)

// resultView lays out an analysis result for table output. JSON and YAML
// encode the result unchanged.
type resultView analysis.Result

// Sections implements render.Sectioned.
func (v *resultView) Sections() []render.Section {
	exp := v.Explanation
	if exp == nil {
		exp = &types.Explanation{}
	}
	language := v.Language
	if language == "" {
		language = "-"
	}

	overview := render.Section{
		Title: "Overview",
		Rows: [][]string{
			{"id:", v.ID},
			{"model:", v.Model},
			{"language:", language},
			{"duration:", strconv.FormatInt(v.DurationMs, 10) + "ms"},
		},
	}

	walkthrough := render.Section{Title: "Walkthrough", Headers: []string{"#", "lines", "step"}}
	for i, step := range exp.Walkthrough {
		lines := "-"
		if v.Alignment != nil {
			lines = formatRange(v.Alignment.HighlightRangeForStep(i))
		}
		walkthrough.Rows = append(walkthrough.Rows, []string{strconv.Itoa(i + 1), lines, oneLine(step)})
	}

	issues := render.Section{Title: "Issues", Headers: []string{"category", "severity", "message"}}
	for _, group := range []struct {
		name  string
		items []types.IssueItem
	}{
		{"performance", exp.Issues.Performance},
		{"security", exp.Issues.Security},
		{"maintainability", exp.Issues.Maintainability},
	} {
		for _, item := range group.items {
			issues.Rows = append(issues.Rows, []string{group.name, string(item.Severity), oneLine(item.Message)})
		}
	}

	suggestions := render.Section{Title: "Suggestions"}
	for _, s := range exp.Suggestions {
		suggestions.Rows = append(suggestions.Rows, []string{"-", oneLine(s)})
	}

	sections := []render.Section{
		overview,
		textSection("Summary", exp.Summary),
		walkthrough,
		textSection("Risk overview", exp.RiskOverview),
		issues,
		suggestions,
	}
	if v.Alignment != nil {
		sections = append(sections, statsSection(v.Alignment.Stats()))
	}
	return sections
}

// alignView is the output of the align command.
type alignView struct {
	align.View `yaml:",inline"`
}

// Sections implements render.Sectioned.
func (v alignView) Sections() []render.Section {
	overview := render.Section{
		Title: "Overview",
		Rows: [][]string{
			{"lines:", strconv.Itoa(v.TotalLines)},
			{"steps:", strconv.Itoa(v.NumSteps)},
		},
	}

	ranges := render.Section{Title: "Steps", Headers: []string{"#", "range", "highlight", "note"}}
	for i := range v.NumSteps {
		canonical, highlight, note := "-", "-", ""
		if i < len(v.CanonicalRanges) {
			canonical = formatRange(v.CanonicalRanges[i], true)
			highlight = formatRange(v.HighlightRanges[i], true)
			note = oneLine(v.CanonicalRanges[i].Note)
		}
		ranges.Rows = append(ranges.Rows, []string{strconv.Itoa(i + 1), canonical, highlight, note})
	}

	return []render.Section{overview, ranges, statsSection(v.Stats)}
}

func statsSection(s align.Stats) render.Section {
	return render.Section{
		Title: "Alignment",
		Rows: [][]string{
			{"received:", strconv.Itoa(s.Received)},
			{"normalized:", strconv.Itoa(s.Normalized)},
			{"adjusted:", strconv.Itoa(s.Adjusted)},
			{"aligned:", strconv.Itoa(s.Aligned)},
			{"dropped:", strconv.Itoa(s.Dropped)},
			{"uncovered steps:", strconv.Itoa(s.UncoveredSteps)},
		},
	}
}

func textSection(title, text string) render.Section {
	s := render.Section{Title: title}
	if text = strings.TrimSpace(text); text != "" {
		s.Rows = [][]string{{text}}
	}
	return s
}

// formatRange prints a range as "a-b", a single line as "a", and a missing
// range as "-".
func formatRange(a types.Annotation, ok bool) string {
	switch {
	case !ok:
		return "-"
	case a.StartLine == a.EndLine:
		return strconv.Itoa(a.StartLine)
	default:
		return strconv.Itoa(a.StartLine) + "-" + strconv.Itoa(a.EndLine)
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
