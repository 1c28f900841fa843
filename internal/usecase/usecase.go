package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/forPelevin/h8less/internal/domain/segments"
	"github.com/forPelevin/h8less/internal/domain/timeline"
	"github.com/forPelevin/h8less/internal/ports"
	"github.com/forPelevin/h8less/internal/session"
	"github.com/forPelevin/h8less/internal/types"
)

// FailureMessage is what the user sees for any analysis failure.
const FailureMessage = "An error occurred while analyzing the video."

type Deps struct {
	Analyzer ports.Analyzer
	Session  *session.Session
	// Store is optional. Without it Input.Path must point to a local file.
	Store ports.Store
	// Prober is optional. Without it the duration stays 0 until reported.
	Prober ports.MediaProber
	Log    *slog.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Session == nil {
		d.Session = session.New()
	}
	if d.Log == nil {
		d.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return Usecase{d: d}
}

type Input struct {
	Filename string
	Body     io.Reader
	Path     string
	Target   string
}

type Result struct {
	Video    types.Video
	Raw      int
	Segments []types.Segment
	Duration float64
}

// Job is an accepted upload waiting for its analysis.
type Job struct {
	u      Usecase
	video  types.Video
	prev   *types.Video
	target string
}

func (j *Job) Video() types.Video { return j.video }

// Begin marks the session busy and takes ownership of the upload. It must
// run while the request body is still readable; Run may happen later.
func (u Usecase) Begin(in Input) (*Job, error) {
	prev := u.d.Session.Snapshot().Video
	if err := u.d.Session.Begin(); err != nil {
		return nil, err
	}

	target := in.Target
	if target == "" {
		target = segments.DefaultTarget
	}

	var (
		v   types.Video
		err error
	)
	switch {
	case u.d.Store != nil:
		v, err = u.d.Store.Save(in.Filename, in.Body)
	case in.Path != "":
		v = types.Video{ID: uuid.NewString(), Filename: filepath.Base(in.Path), Path: in.Path, UploadedAt: time.Now().UTC()}
		if in.Filename != "" {
			v.Filename = in.Filename
		}
	default:
		err = errors.New("no upload store and no input path")
	}
	if err != nil {
		u.fail(err)
		return nil, fmt.Errorf("accept upload: %w", err)
	}
	return &Job{u: u, video: v, prev: prev, target: target}, nil
}

// Run sends the video for analysis and publishes the result. Either the
// whole normalized segment list lands in the session or nothing does.
func (j *Job) Run(ctx context.Context) (Result, error) {
	u := j.u
	started := time.Now()

	raw, err := j.analyze(ctx)
	if err != nil {
		j.discard()
		u.fail(err)
		return Result{}, err
	}
	segs := segments.Normalize(raw, j.target)
	duration := u.probe(ctx, j.video.Path)

	if err := u.d.Session.Complete(j.video, segs, duration); err != nil {
		j.discard()
		return Result{}, fmt.Errorf("publish result: %w", err)
	}
	if j.prev != nil && u.d.Store != nil {
		if err := u.d.Store.Remove(j.prev.ID); err != nil {
			u.d.Log.Warn("remove previous upload", slog.String("video", j.prev.ID), slog.Any("error", err))
		}
	}

	u.d.Log.Info("analysis complete",
		slog.String("video", j.video.ID),
		slog.Int("raw_segments", len(raw)),
		slog.Int("flagged_segments", len(segs)),
		slog.Float64("duration", duration),
		slog.Duration("took", time.Since(started)),
	)
	return Result{Video: j.video, Raw: len(raw), Segments: segs, Duration: duration}, nil
}

// Analyze is Begin followed by Run.
func (u Usecase) Analyze(ctx context.Context, in Input) (Result, error) {
	job, err := u.Begin(in)
	if err != nil {
		return Result{}, err
	}
	return job.Run(ctx)
}

// Report renders the current session.
func (u Usecase) Report() (session.State, types.Report) {
	st := u.d.Session.Snapshot()
	return st, timeline.Render(st.Segments, st.Duration)
}

func (u Usecase) SetDuration(videoID string, seconds float64) error {
	return u.d.Session.SetDuration(videoID, seconds)
}

func (u Usecase) Session() *session.Session { return u.d.Session }

func (j *Job) analyze(ctx context.Context) ([]types.RawSegment, error) {
	var (
		rc  io.ReadCloser
		err error
	)
	if j.u.d.Store != nil {
		rc, _, err = j.u.d.Store.Open(j.video.ID)
	} else {
		rc, err = os.Open(j.video.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()
	return j.u.d.Analyzer.Analyze(ctx, j.video.Filename, rc)
}

func (j *Job) discard() {
	if j.u.d.Store == nil {
		return
	}
	if err := j.u.d.Store.Remove(j.video.ID); err != nil {
		j.u.d.Log.Warn("remove failed upload", slog.String("video", j.video.ID), slog.Any("error", err))
	}
}

func (u Usecase) probe(ctx context.Context, path string) float64 {
	if u.d.Prober == nil {
		return 0
	}
	d, err := u.d.Prober.ProbeDuration(ctx, path)
	if err != nil {
		u.d.Log.Warn("probe duration", slog.String("path", path), slog.Any("error", err))
		return 0
	}
	return d.Seconds()
}

func (u Usecase) fail(err error) {
	u.d.Log.Debug("analysis failed", slog.String("error", err.Error()))
	if ferr := u.d.Session.Fail(FailureMessage); ferr != nil {
		u.d.Log.Error("reset session", slog.Any("error", ferr))
	}
}
