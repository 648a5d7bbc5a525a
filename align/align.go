package align

import (
	"slices"
	"strings"

	"github.com/pithecene-io/codestory/types"
)

// Align reduces normalized annotations to at most one range per step.
//
// Annotations are stably sorted by start line and the i-th one becomes the
// range of step i; a model-supplied step index plays no part. Steps beyond
// the annotation count get no range, and annotations beyond numSteps are
// dropped. The returned index maps each covered line to the lowest step
// whose range contains it.
func Align(normalized []types.Annotation, numSteps, totalLines int) ([]types.Annotation, map[int]int) {
	canonical := []types.Annotation{}
	lineToStep := map[int]int{}
	if numSteps <= 0 || totalLines <= 0 || len(normalized) == 0 {
		return canonical, lineToStep
	}

	sorted := slices.Clone(normalized)
	slices.SortStableFunc(sorted, func(a, b types.Annotation) int {
		return a.StartLine - b.StartLine
	})
	if len(sorted) > numSteps {
		sorted = sorted[:numSteps]
	}
	canonical = sorted

	for step, ann := range canonical {
		for line := ann.StartLine; line <= ann.EndLine; line++ {
			if _, taken := lineToStep[line]; !taken {
				lineToStep[line] = step
			}
		}
	}
	return canonical, lineToStep
}

// TrimRange shrinks ann so that it neither starts nor ends on a blank line.
// lines holds the source with lines[0] as line 1. A range with no content
// collapses to its first line. The result never extends past ann.
func TrimRange(lines []string, ann types.Annotation) types.Annotation {
	start, end := ann.StartLine, ann.EndLine

	for start <= end && isBlank(lines, start) {
		start++
	}
	if start > end {
		return types.Annotation{StartLine: ann.StartLine, EndLine: ann.StartLine, Note: ann.Note}
	}
	for end > start && isBlank(lines, end) {
		end--
	}
	return types.Annotation{StartLine: start, EndLine: end, Note: ann.Note}
}

// isBlank reports whether 1-based line n is empty after trimming.
// Lines outside the source count as blank.
func isBlank(lines []string, n int) bool {
	if n < 1 || n > len(lines) {
		return true
	}
	return strings.TrimSpace(lines[n-1]) == ""
}

// SplitLines breaks source text into lines. CRLF and lone CR count as line
// breaks, a final newline ends the last line instead of opening a new one,
// and empty text has no lines.
func SplitLines(source string) []string {
	if source == "" {
		return []string{}
	}
	source = strings.ReplaceAll(source, "\r\n", "\n")
	source = strings.ReplaceAll(source, "\r", "\n")
	source = strings.TrimSuffix(source, "\n")
	return strings.Split(source, "\n")
}
