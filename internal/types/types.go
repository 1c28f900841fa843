package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// RawSegment is one classified transcript segment as returned by the
// analysis service.
type RawSegment struct {
	ID             int     `json:"id,omitempty"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	ClassPredicted string  `json:"class_predicted"`
	Probability    float64 `json:"probability"`
	Text           string  `json:"text"`
}

// AnalysisResponse is the analysis service payload. The service may also
// answer with a bare array of segments; UnmarshalJSON accepts both.
type AnalysisResponse struct {
	Data []RawSegment `json:"data"`
}

func (r *AnalysisResponse) UnmarshalJSON(b []byte) error {
	var arr []RawSegment
	if err := json.Unmarshal(b, &arr); err == nil {
		r.Data = arr
		return nil
	}
	var obj struct {
		Data *[]RawSegment `json:"data"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if obj.Data == nil {
		return fmt.Errorf("response has no data field")
	}
	r.Data = *obj.Data
	return nil
}

// Segment is a flagged time interval in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

type Summary struct {
	CoverageRatio     float64 `json:"coverage_ratio"`
	AverageConfidence float64 `json:"average_confidence"`
}

// Placement is the horizontal position of a segment on the timeline, both
// values expressed as fractions of the bar width.
type Placement struct {
	OffsetFraction float64 `json:"offset_fraction"`
	WidthFraction  float64 `json:"width_fraction"`
}

type SeekUnit string

// SeekSeconds means TargetSeconds is an absolute offset in seconds, not a
// fraction of the media duration.
const SeekSeconds SeekUnit = "seconds"

type SeekCommand struct {
	TargetSeconds float64  `json:"target_seconds"`
	Unit          SeekUnit `json:"unit"`
}

// Video is the media currently attached to the display session.
type Video struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Path       string    `json:"-"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type ReportEntry struct {
	Index     int         `json:"index"`
	Segment   Segment     `json:"segment"`
	Text      string      `json:"text"`
	Title     string      `json:"title"`
	Placement Placement   `json:"placement"`
	Seek      SeekCommand `json:"seek"`
}

type Report struct {
	Duration float64       `json:"duration"`
	Summary  Summary       `json:"summary"`
	Lines    []string      `json:"lines"`
	Entries  []ReportEntry `json:"entries"`
}
