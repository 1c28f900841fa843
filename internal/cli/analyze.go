package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/h8less/internal/pipeline"
	"github.com/forPelevin/h8less/internal/ports/adapters/analyzer"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <video>",
		Short: "Analyze a local video and print the flagged segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0])
		},
	}
	cmd.Flags().Bool("json", false, "Print the report as JSON")
	cmd.Flags().String("ffprobe", getenvDefault("H8LESS_FFPROBE", "ffprobe"), "ffprobe binary used to learn the duration (empty disables)")
	cmd.Flags().String("out", "", "Also write the JSON report to this file")
	cmd.Flags().String("subtitles", "", "Write flagged segments as a subtitle track (.ass, or .vtt)")

	// Hidden tuning flag (internal)
	cmd.Flags().Duration("timeout", analyzer.DefaultTimeout, "Analysis request timeout")
	_ = cmd.Flags().MarkHidden("timeout")
	return cmd
}

func runAnalyze(cmd *cobra.Command, input string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	ffprobePath, _ := cmd.Flags().GetString("ffprobe")
	out, _ := cmd.Flags().GetString("out")
	subs, _ := cmd.Flags().GetString("subtitles")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	target, _ := cmd.Flags().GetString("target")

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	cfg := pipeline.Config{
		InputVideo:   absIn,
		Target:       target,
		JSON:         asJSON,
		ReportOut:    out,
		SubtitlesOut: subs,
		FFprobePath:  ffprobePath,
		BaseURL:      os.Getenv("H8LESS_API_URL"),
		AllowedHosts: analyzer.SplitHosts(os.Getenv("H8LESS_ALLOWED_HOSTS")),
		Timeout:      timeout,
		Logf: func(format string, args ...any) {
			fmt.Fprintf(stderr, format+"\n", args...)
		},
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout+time.Minute)
	defer cancel()

	return pipeline.Run(ctx, cfg, cmd.OutOrStdout())
}
