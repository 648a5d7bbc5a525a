// Package align pairs walkthrough steps with source line ranges.
//
// Model output is untrusted. Normalize is the single place where raw
// annotations become bounded, typed ranges; Align reduces them to one range
// per step in file order and indexes which step owns each line; TrimRange
// shrinks a range for display. Nothing in this package returns an error:
// malformed input degrades to smaller results.
package align

import (
	"math"

	"fortio.org/safecast"

	"github.com/pithecene-io/codestory/types"
)

// Normalize converts raw model annotations into ranges inside
// [1, totalLines]. Missing or non-finite starts default to line 1, missing
// ends default to the start, and out-of-range values are clamped rather
// than rejected. An empty source (totalLines < 1) yields an empty list.
func Normalize(raw []types.RawAnnotation, totalLines int) []types.Annotation {
	out, _ := normalize(raw, totalLines)
	return out
}

// normalize is Normalize that also counts items whose bounds had to be
// defaulted, clamped or floored.
func normalize(raw []types.RawAnnotation, totalLines int) ([]types.Annotation, int) {
	out := make([]types.Annotation, 0, len(raw))
	if totalLines < 1 {
		return out, 0
	}

	adjusted := 0
	for _, r := range raw {
		ann, changed := normalizeOne(r, totalLines)
		if changed {
			adjusted++
		}
		out = append(out, ann)
	}
	return out, adjusted
}

func normalizeOne(r types.RawAnnotation, totalLines int) (types.Annotation, bool) {
	limit := float64(totalLines)
	changed := false

	start, ok := r.StartLine.Float()
	if !ok {
		start = 1
		changed = true
	}
	end, ok := r.EndLine.Float()
	if !ok {
		end = start
	}

	clampedStart := math.Floor(clamp(start, 1, limit))
	// clampedStart is integral, so flooring end cannot drop below it.
	clampedEnd := math.Floor(clamp(end, clampedStart, limit))
	if clampedStart != start || clampedEnd != end {
		changed = true
	}

	return types.Annotation{
		StartLine: toLine(clampedStart),
		EndLine:   toLine(clampedEnd),
		Note:      r.Note.Value,
	}, changed
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// toLine converts an already-bounded, integral float line number to int.
func toLine(v float64) int {
	line, err := safecast.Convert[int](v)
	if err != nil {
		return 1
	}
	return line
}
