package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/h8less/internal/types"
)

// RenderVTT returns a WebVTT track, the format browsers accept in <track>.
func RenderVTT(segs []types.Segment) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n")
	for i, c := range cues(segs) {
		fmt.Fprintf(&b, "\n%d\n%s --> %s line:0\n", i+1, vttTime(c.Start), vttTime(c.End))
		for _, ln := range c.Lines {
			b.WriteString(sanitizeVTT(ln))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func vttTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hs, ms, s, int(d/time.Millisecond))
}

// sanitizeVTT escapes markup and keeps "-->" out of cue text.
func sanitizeVTT(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return strings.TrimSpace(s)
}
