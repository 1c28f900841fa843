package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forPelevin/h8less/internal/domain/segments"
	"github.com/forPelevin/h8less/internal/domain/subtitles"
	"github.com/forPelevin/h8less/internal/domain/timeline"
	"github.com/forPelevin/h8less/internal/ports"
	"github.com/forPelevin/h8less/internal/ports/adapters/analyzer"
	"github.com/forPelevin/h8less/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/h8less/internal/types"
	"github.com/forPelevin/h8less/internal/usecase"
)

type Config struct {
	InputVideo string
	Target     string
	// JSON prints the report as JSON instead of text lines.
	JSON bool
	// ReportOut, when set, also writes the JSON report to that path.
	ReportOut string
	// SubtitlesOut, when set, writes the flagged segments as a subtitle
	// track: WebVTT for a .vtt path, ASS otherwise.
	SubtitlesOut string
	Logf         func(format string, args ...any)

	// FFprobePath is used to learn the media duration. Empty disables probing.
	FFprobePath string

	BaseURL      string
	AllowedHosts []string
	Timeout      time.Duration
}

func (c Config) Validate() error {
	if c.InputVideo == "" {
		return errors.New("input is empty")
	}
	fi, err := os.Stat(c.InputVideo)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if fi.IsDir() {
		return fmt.Errorf("input is a directory: %s", c.InputVideo)
	}
	if c.Timeout < 0 {
		return errors.New("timeout must be >= 0")
	}
	return analyzer.ValidateBaseURL(c.BaseURL, c.AllowedHosts)
}

func Run(ctx context.Context, cfg Config, w io.Writer) error {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	deps := usecase.Deps{
		Analyzer: analyzer.New(cfg.BaseURL, cfg.Timeout),
	}
	if cfg.FFprobePath != "" {
		deps.Prober = ffmpeg.New(cfg.FFprobePath)
	}
	uc := usecase.New(deps)

	target := cfg.Target
	if target == "" {
		target = segments.DefaultTarget
	}
	logf("uploading %s for analysis (target class %q)", filepath.Base(cfg.InputVideo), target)

	res, err := uc.Analyze(ctx, usecase.Input{Path: cfg.InputVideo, Target: target})
	if err != nil {
		return err
	}
	logf("received %d segments, %d flagged", res.Raw, len(res.Segments))
	if res.Duration <= 0 {
		logf("media duration unknown; coverage is relative to 1s")
	}

	_, rep := uc.Report()
	if cfg.ReportOut != "" {
		b, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		if err := writeFile(cfg.ReportOut, b); err != nil {
			return err
		}
		logf("report written: %s", cfg.ReportOut)
	}
	if cfg.SubtitlesOut != "" {
		track := subtitles.RenderASS(res.Segments)
		if strings.EqualFold(filepath.Ext(cfg.SubtitlesOut), ".vtt") {
			track = subtitles.RenderVTT(res.Segments)
		}
		if err := writeFile(cfg.SubtitlesOut, []byte(track)); err != nil {
			return err
		}
		logf("subtitles written (%d cues): %s", len(res.Segments), cfg.SubtitlesOut)
	}

	if cfg.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		return nil
	}
	return printText(w, res.Video, rep)
}

func printText(w io.Writer, v types.Video, rep types.Report) error {
	if _, err := fmt.Fprintf(w, "%s (%s)\n", v.Filename, timeline.FormatTimestamp(rep.Duration)); err != nil {
		return err
	}
	for _, line := range rep.Lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if len(rep.Entries) == 0 {
		_, err := fmt.Fprintln(w, "No flagged segments.")
		return err
	}
	for _, e := range rep.Entries {
		if _, err := fmt.Fprintln(w, e.Text); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, b []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, b, 0o644)
}

// ensure adapters implement ports
var _ ports.Analyzer = (*analyzer.Adapter)(nil)
var _ ports.MediaProber = (*ffmpeg.Adapter)(nil)
