package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forPelevin/h8less/internal/ports/adapters/analyzer"
	"github.com/forPelevin/h8less/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/h8less/internal/ports/adapters/uploads"
	"github.com/forPelevin/h8less/internal/server"
	"github.com/forPelevin/h8less/internal/usecase"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web UI",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("addr", getenvDefault("H8LESS_ADDR", server.DefaultAddr), "Listen address")
	cmd.Flags().String("upload-dir", getenvDefault("H8LESS_UPLOAD_DIR", ""), "Directory for uploaded videos (default: a temp dir)")
	cmd.Flags().String("ffprobe", getenvDefault("H8LESS_FFPROBE", ""), "ffprobe binary used to learn durations server-side (empty: the browser reports them)")
	cmd.Flags().Int64("max-upload-mb", 2048, "Maximum upload size in MiB")

	// Hidden tuning flag (internal)
	cmd.Flags().Duration("timeout", analyzer.DefaultTimeout, "Analysis request timeout")
	_ = cmd.Flags().MarkHidden("timeout")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	uploadDir, _ := cmd.Flags().GetString("upload-dir")
	ffprobePath, _ := cmd.Flags().GetString("ffprobe")
	maxMB, _ := cmd.Flags().GetInt64("max-upload-mb")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	target, _ := cmd.Flags().GetString("target")
	level, _ := cmd.Flags().GetString("log-level")

	log, err := newLogger(cmd.ErrOrStderr(), level)
	if err != nil {
		return err
	}

	baseURL := os.Getenv("H8LESS_API_URL")
	allowed := analyzer.SplitHosts(os.Getenv("H8LESS_ALLOWED_HOSTS"))
	if err := analyzer.ValidateBaseURL(baseURL, allowed); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if maxMB <= 0 {
		return fmt.Errorf("config: max upload must be > 0")
	}

	if uploadDir == "" {
		tmp, err := os.MkdirTemp("", "h8less-uploads-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tmp)
		uploadDir = tmp
	}
	uploadDir, err = filepath.Abs(uploadDir)
	if err != nil {
		return err
	}
	store, err := uploads.New(uploadDir)
	if err != nil {
		return err
	}

	deps := usecase.Deps{
		Analyzer: analyzer.New(baseURL, timeout),
		Store:    store,
		Log:      log,
	}
	if ffprobePath != "" {
		deps.Prober = ffmpeg.New(ffprobePath)
	}
	uc := usecase.New(deps)

	srv := server.New(server.Config{
		Addr:           addr,
		Target:         target,
		MaxUploadBytes: maxMB << 20,
		Log:            log,
	}, uc, store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting",
		slog.String("api_url", baseURL),
		slog.String("upload_dir", uploadDir),
		slog.Duration("timeout", timeout),
	)
	return srv.Run(ctx)
}
