package align

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"

	"github.com/pithecene-io/codestory/types"
)

// Stats summarizes how raw annotations fared on the way to alignment.
type Stats struct {
	// Received is the number of raw annotations in the model output.
	Received int `json:"received" yaml:"received"`
	// Normalized is the number that survived normalization.
	Normalized int `json:"normalized" yaml:"normalized"`
	// Adjusted counts annotations whose bounds were defaulted, clamped or floored.
	Adjusted int `json:"adjusted" yaml:"adjusted"`
	// Aligned is the number kept as a step range.
	Aligned int `json:"aligned" yaml:"aligned"`
	// Dropped counts normalized annotations beyond the step count.
	Dropped int `json:"dropped" yaml:"dropped"`
	// UncoveredSteps counts steps without a range.
	UncoveredSteps int `json:"uncovered_steps" yaml:"uncovered_steps"`
}

// Snapshot is the alignment of one analysis. It is immutable after Build;
// accessors return copies so readers cannot disturb each other.
type Snapshot struct {
	lines      []string
	numSteps   int
	canonical  []types.Annotation
	highlights []types.Annotation
	lineToStep map[int]int
	stats      Stats
}

// Build aligns raw model annotations against source text for a walkthrough
// of walkthroughLength steps.
func Build(source string, walkthroughLength int, raw []types.RawAnnotation) *Snapshot {
	lines := SplitLines(source)
	if walkthroughLength < 0 {
		walkthroughLength = 0
	}

	normalized, adjusted := normalize(raw, len(lines))
	canonical, lineToStep := Align(normalized, walkthroughLength, len(lines))

	highlights := make([]types.Annotation, len(canonical))
	for i, ann := range canonical {
		highlights[i] = TrimRange(lines, ann)
	}

	return &Snapshot{
		lines:      lines,
		numSteps:   walkthroughLength,
		canonical:  canonical,
		highlights: highlights,
		lineToStep: lineToStep,
		stats: Stats{
			Received:       len(raw),
			Normalized:     len(normalized),
			Adjusted:       adjusted,
			Aligned:        len(canonical),
			Dropped:        len(normalized) - len(canonical),
			UncoveredSteps: walkthroughLength - len(canonical),
		},
	}
}

// TotalLines returns the number of source lines.
func (s *Snapshot) TotalLines() int { return len(s.lines) }

// NumSteps returns the walkthrough length the snapshot was built for.
func (s *Snapshot) NumSteps() int { return s.numSteps }

// Lines returns the source lines; index 0 is line 1.
func (s *Snapshot) Lines() []string { return slices.Clone(s.lines) }

// Canonical returns the untrimmed range of each highlightable step.
func (s *Snapshot) Canonical() []types.Annotation { return slices.Clone(s.canonical) }

// LineToStep returns a copy of the line → step index.
func (s *Snapshot) LineToStep() map[int]int { return maps.Clone(s.lineToStep) }

// Stats returns the build statistics.
func (s *Snapshot) Stats() Stats { return s.stats }

// StepForLine returns the step that owns a 1-based line.
func (s *Snapshot) StepForLine(line int) (int, bool) {
	step, ok := s.lineToStep[line]
	return step, ok
}

// RangeForStep returns the untrimmed range of a step.
func (s *Snapshot) RangeForStep(step int) (types.Annotation, bool) {
	if step < 0 || step >= len(s.canonical) {
		return types.Annotation{}, false
	}
	return s.canonical[step], true
}

// HighlightRangeForStep returns the range to highlight for a step, with
// leading and trailing blank lines trimmed. Steps without a range report
// false.
func (s *Snapshot) HighlightRangeForStep(step int) (types.Annotation, bool) {
	if step < 0 || step >= len(s.highlights) {
		return types.Annotation{}, false
	}
	return s.highlights[step], true
}

// View is the exported form of a snapshot consumed by rendering layers.
// Line keys in PerLineStepIndex are decimal strings so the map survives
// JSON and YAML unchanged.
type View struct {
	TotalLines       int                `json:"total_lines" yaml:"total_lines"`
	NumSteps         int                `json:"num_steps" yaml:"num_steps"`
	CanonicalRanges  []types.Annotation `json:"canonical_ranges" yaml:"canonical_ranges"`
	HighlightRanges  []types.Annotation `json:"highlight_ranges" yaml:"highlight_ranges"`
	PerLineStepIndex map[string]int     `json:"per_line_step_index" yaml:"per_line_step_index"`
	Stats            Stats              `json:"stats" yaml:"stats"`
}

// View returns the exported form of the snapshot.
func (s *Snapshot) View() View {
	perLine := make(map[string]int, len(s.lineToStep))
	for line, step := range s.lineToStep {
		perLine[strconv.Itoa(line)] = step
	}
	return View{
		TotalLines:       len(s.lines),
		NumSteps:         s.numSteps,
		CanonicalRanges:  slices.Clone(s.canonical),
		HighlightRanges:  slices.Clone(s.highlights),
		PerLineStepIndex: perLine,
		Stats:            s.stats,
	}
}

// MarshalJSON implements json.Marshaler.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.View())
}

// MarshalYAML implements yaml.Marshaler.
func (s *Snapshot) MarshalYAML() (any, error) {
	return s.View(), nil
}
