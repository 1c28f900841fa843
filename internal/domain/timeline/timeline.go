package timeline

import (
	"fmt"
	"math"
	"strconv"

	"github.com/forPelevin/h8less/internal/domain/segments"
	"github.com/forPelevin/h8less/internal/types"
)

// Project places a segment on a bar spanning [0, duration]. Until the
// duration is known (0 right after upload) every segment gets the zero
// placement. Out-of-range segments are cut to the visible part of the bar.
func Project(seg types.Segment, duration float64) types.Placement {
	if !finite(duration) || duration <= 0 {
		return types.Placement{}
	}
	lo := clamp(seg.Start/duration, 0, 1)
	hi := clamp(seg.End/duration, 0, 1)
	if hi <= lo {
		return types.Placement{OffsetFraction: lo}
	}
	return types.Placement{OffsetFraction: lo, WidthFraction: hi - lo}
}

// Activate returns the seek issued when a segment is clicked. The target is
// always the segment start in seconds, whatever the current position is.
func Activate(seg types.Segment) types.SeekCommand {
	return types.SeekCommand{TargetSeconds: seg.Start, Unit: types.SeekSeconds}
}

// maxSeconds keeps the int64 conversion in FormatTimestamp exact.
const maxSeconds = 1 << 53

// FormatTimestamp renders seconds as M:SS, truncating both parts.
func FormatTimestamp(seconds float64) string {
	if !finite(seconds) || seconds < 0 {
		seconds = 0
	}
	if seconds > maxSeconds {
		seconds = maxSeconds
	}
	total := int64(math.Floor(seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// FormatEntry is the segment list line: `0:10 – 0:20: "text" (80.0%)`.
func FormatEntry(seg types.Segment) string {
	return fmt.Sprintf("%s – %s: \"%s\" (%s%%)",
		FormatTimestamp(seg.Start), FormatTimestamp(seg.End), seg.Label, percent(seg.Score, 1))
}

// FormatTitle is the hover text of a timeline marker.
func FormatTitle(seg types.Segment) string {
	return fmt.Sprintf("%s–%s (%s%%)", FormatTimestamp(seg.Start), FormatTimestamp(seg.End), percent(seg.Score, 0))
}

func SummaryLines(sum types.Summary) []string {
	return []string{
		fmt.Sprintf("%s%% of the video contains hate speech", percent(sum.CoverageRatio, 1)),
		fmt.Sprintf("Model average confidence: %s%%", percent(sum.AverageConfidence, 1)),
	}
}

// Render is the whole view as a pure function of segments and duration.
func Render(segs []types.Segment, duration float64) types.Report {
	sum := segments.Summarize(segs, duration)
	rep := types.Report{
		Duration: duration,
		Summary:  sum,
		Lines:    SummaryLines(sum),
		Entries:  make([]types.ReportEntry, 0, len(segs)),
	}
	for i, s := range segs {
		rep.Entries = append(rep.Entries, types.ReportEntry{
			Index:     i,
			Segment:   s,
			Text:      FormatEntry(s),
			Title:     FormatTitle(s),
			Placement: Project(s, duration),
			Seek:      Activate(s),
		})
	}
	return rep
}

func percent(ratio float64, decimals int) string {
	if !finite(ratio) {
		ratio = 0
	}
	return strconv.FormatFloat(ratio*100, 'f', decimals, 64)
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func clamp(x, a, b float64) float64 {
	switch {
	case math.IsNaN(x) || x < a:
		return a
	case x > b:
		return b
	}
	return x
}
