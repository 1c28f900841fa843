// Package server hosts the browser UI and its JSON API on top of the
// analysis usecase.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/forPelevin/h8less/internal/ports"
	"github.com/forPelevin/h8less/internal/usecase"
)

const (
	DefaultAddr           = ":8080"
	DefaultMaxUploadBytes = 2 << 30
	shutdownTimeout       = 10 * time.Second
)

type Config struct {
	Addr   string
	Target string
	// MaxUploadBytes caps the multipart body of POST /api/analyze.
	MaxUploadBytes int64
	Log            *slog.Logger
}

type Server struct {
	cfg   Config
	uc    usecase.Usecase
	store ports.Store
	hub   *Hub
	log   *slog.Logger

	// analyses outlive their request; they stop with baseCtx
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(cfg Config, uc usecase.Usecase, store ports.Store) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Log == nil {
		cfg.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:     cfg,
		uc:      uc,
		store:   store,
		hub:     NewHub(cfg.Log),
		log:     cfg.Log,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handlePage)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/media/{id}", s.handleMedia)
	r.Get("/media/{id}/flags.vtt", s.handleFlagsTrack)

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/duration", s.handleDuration)
		r.Get("/session", s.handleSession)
		r.Get("/segments/{index}/seek", s.handleSeek)
	})
	return r
}

// Run serves until ctx is done, then shuts down and cancels analyses still
// in flight.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx, s.uc.Session())

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutCtx)
	s.Close()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close cancels running analyses and waits for them to record their outcome.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.DebugContext(r.Context(), "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
