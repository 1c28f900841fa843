package segments

import (
	"math"
	"testing"

	"github.com/forPelevin/h8less/internal/types"
)

func TestNormalize_FiltersAndMaps(t *testing.T) {
	raw := []types.RawSegment{
		{Start: 10, End: 20, ClassPredicted: "hate", Probability: 0.8, Text: "x"},
		{Start: 5, End: 8, ClassPredicted: "neutral", Probability: 0.9, Text: "y"},
	}
	got := Normalize(raw, DefaultTarget)
	if len(got) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(got))
	}
	want := types.Segment{Start: 10, End: 20, Score: 0.8, Label: "x"}
	if got[0] != want {
		t.Fatalf("unexpected segment: %+v, want %+v", got[0], want)
	}
}

func TestNormalize_PreservesOrder(t *testing.T) {
	raw := []types.RawSegment{
		{Start: 30, End: 31, ClassPredicted: "hate", Text: "c"},
		{Start: 0, End: 1, ClassPredicted: "non-hate", Text: "skip"},
		{Start: 2, End: 3, ClassPredicted: "hate", Text: "a"},
		{Start: 15, End: 16, ClassPredicted: "hate", Text: "b"},
	}
	got := Normalize(raw, DefaultTarget)
	labels := ""
	for _, s := range got {
		labels += s.Label
	}
	if labels != "cab" {
		t.Fatalf("expected input order cab, got %q", labels)
	}
}

func TestNormalize_NoMatchesIsEmptyNotNil(t *testing.T) {
	tests := []struct {
		name string
		raw  []types.RawSegment
	}{
		{"nil input", nil},
		{"no target", []types.RawSegment{{ClassPredicted: "non-hate"}}},
		{"case sensitive", []types.RawSegment{{ClassPredicted: "HATE"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw, DefaultTarget)
			if got == nil || len(got) != 0 {
				t.Fatalf("expected empty non-nil slice, got %#v", got)
			}
		})
	}
}

func TestNormalize_CustomTarget(t *testing.T) {
	raw := []types.RawSegment{
		{ClassPredicted: "hate"},
		{ClassPredicted: "non-hate", Text: "kept"},
	}
	got := Normalize(raw, "non-hate")
	if len(got) != 1 || got[0].Label != "kept" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestSummarize_Empty(t *testing.T) {
	for _, d := range []float64{0, 100} {
		s := Summarize(nil, d)
		if s.CoverageRatio != 0 || s.AverageConfidence != 0 {
			t.Fatalf("duration %v: expected zero summary, got %+v", d, s)
		}
	}
}

func TestSummarize_Scenario(t *testing.T) {
	segs := []types.Segment{{Start: 10, End: 20, Score: 0.8, Label: "x"}}
	s := Summarize(segs, 100)
	if !almostEqual(s.CoverageRatio, 0.10) {
		t.Fatalf("coverage = %v, want 0.10", s.CoverageRatio)
	}
	if !almostEqual(s.AverageConfidence, 0.8) {
		t.Fatalf("average confidence = %v, want 0.8", s.AverageConfidence)
	}
}

func TestSummarize_OverlapIsDoubleCounted(t *testing.T) {
	segs := []types.Segment{
		{Start: 0, End: 10, Score: 0.5},
		{Start: 5, End: 15, Score: 0.7},
	}
	s := Summarize(segs, 20)
	if !almostEqual(s.CoverageRatio, 1.0) {
		t.Fatalf("coverage = %v, want 1.0", s.CoverageRatio)
	}
}

func TestSummarize_OrderIndependent(t *testing.T) {
	a := []types.Segment{
		{Start: 1, End: 4, Score: 0.9},
		{Start: 10, End: 12.5, Score: 0.6},
		{Start: 40, End: 41, Score: 0.75},
	}
	b := []types.Segment{a[2], a[0], a[1]}
	sa, sb := Summarize(a, 60), Summarize(b, 60)
	if !almostEqual(sa.CoverageRatio, sb.CoverageRatio) || !almostEqual(sa.AverageConfidence, sb.AverageConfidence) {
		t.Fatalf("summary depends on order: %+v vs %+v", sa, sb)
	}
}

func TestSummarize_UnknownDurationDividesByOne(t *testing.T) {
	segs := []types.Segment{{Start: 2, End: 5, Score: 1}}
	for _, d := range []float64{0, -3, math.NaN(), math.Inf(1)} {
		s := Summarize(segs, d)
		if !almostEqual(s.CoverageRatio, 3) {
			t.Fatalf("duration %v: coverage = %v, want 3", d, s.CoverageRatio)
		}
	}
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
