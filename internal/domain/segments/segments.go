package segments

import (
	"math"

	"github.com/forPelevin/h8less/internal/types"
)

// DefaultTarget is the category the analysis service uses for flagged speech.
// Everything else (currently "non-hate") is dropped by Normalize.
const DefaultTarget = "hate"

// Normalize keeps the raw segments classified as target and maps them to
// Segment, preserving input order. Values are copied as-is: no clamping or
// sorting happens here, the timeline guards against bad ranges.
func Normalize(raw []types.RawSegment, target string) []types.Segment {
	out := make([]types.Segment, 0, len(raw))
	for _, r := range raw {
		if r.ClassPredicted != target {
			continue
		}
		out = append(out, types.Segment{
			Start: r.Start,
			End:   r.End,
			Score: r.Probability,
			Label: r.Text,
		})
	}
	return out
}

// Summarize computes coverage and mean confidence. Coverage is the sum of the
// individual segment lengths, so overlapping segments count twice and the
// ratio may exceed 1. An unknown duration divides by 1.
func Summarize(segs []types.Segment, duration float64) types.Summary {
	if len(segs) == 0 {
		return types.Summary{}
	}
	var flagged, scores float64
	for _, s := range segs {
		flagged += s.End - s.Start
		scores += s.Score
	}
	return types.Summary{
		CoverageRatio:     flagged / denominator(duration),
		AverageConfidence: scores / float64(len(segs)),
	}
}

func denominator(duration float64) float64 {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return 1
	}
	return duration
}
