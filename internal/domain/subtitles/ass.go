// Package subtitles renders flagged segments as a subtitle track so a player
// shows a warning while a flagged passage plays.
package subtitles

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/forPelevin/h8less/internal/types"
)

const (
	lineChars = 42
	maxLines  = 3
)

type cue struct {
	Start time.Duration
	End   time.Duration
	Lines []string
}

// cues skips segments that would produce an empty or inverted cue.
func cues(segs []types.Segment) []cue {
	out := make([]cue, 0, len(segs))
	for _, s := range segs {
		if !finite(s.Start) || !finite(s.End) {
			continue
		}
		start, end := dur(s.Start), dur(s.End)
		if start < 0 {
			start = 0
		}
		if end <= start {
			continue
		}
		score := s.Score
		if !finite(score) {
			score = 0
		}
		header := fmt.Sprintf("Flagged (%.0f%%)", score*100)
		lines := append([]string{header}, wrap(s.Label)...)
		out = append(out, cue{Start: start, End: end, Lines: lines})
	}
	return out
}

// wrap breaks text into lines of at most lineChars runes on word boundaries.
// Text beyond maxLines is cut with an ellipsis.
func wrap(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var out []string
	cur := ""
	for _, w := range words {
		next := w
		if cur != "" {
			next = cur + " " + w
		}
		if cur != "" && len([]rune(next)) > lineChars {
			out = append(out, cur)
			cur = w
			continue
		}
		cur = next
	}
	out = append(out, cur)
	if len(out) > maxLines {
		out = out[:maxLines]
		out[maxLines-1] += " …"
	}
	return out
}

// RenderASS returns an ASS script with one dialogue event per segment.
func RenderASS(segs []types.Segment) string {
	var b strings.Builder
	b.WriteString(assHeader())
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, c := range cues(segs) {
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(c.Start))
		b.WriteString(",")
		b.WriteString(assTime(c.End))
		b.WriteString(",Flag,,0,0,0,,")
		for i, ln := range c.Lines {
			if i > 0 {
				b.WriteString("\\N")
			}
			b.WriteString(sanitizeASS(ln))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func assHeader() string {
	return strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: 1920
PlayResY: 1080
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Flag, Inter, 54, &H00FFFFFF, &H000000FF, &H004D48E5, &H64000000, 1,0,0,0,100,100,0,0,3,4,0,8, 80,80,60,1
`)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
