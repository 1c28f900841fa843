package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mdobak/go-xerrors"

	"github.com/forPelevin/h8less/internal/domain/subtitles"
	"github.com/forPelevin/h8less/internal/httputil"
	"github.com/forPelevin/h8less/internal/ports"
	"github.com/forPelevin/h8less/internal/session"
	"github.com/forPelevin/h8less/internal/types"
	"github.com/forPelevin/h8less/internal/usecase"
)

// multipart parts above this size spill to temp files
const formMemory = 32 << 20

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	st, rep := s.uc.Report()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplate.Execute(w, newPageData(st, rep)); err != nil {
		s.log.ErrorContext(r.Context(), "render page", slog.Any("error", xerrors.New(err)))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.uc.Session().Snapshot().Busy {
		httputil.WriteError(w, http.StatusConflict, "busy", session.ErrBusy.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, "too_large", "video is too large")
			return
		}
		httputil.WriteError(w, http.StatusBadRequest, "bad_form", "expected a multipart form with a file field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "missing_file", "no video selected")
		return
	}
	defer file.Close()

	job, err := s.uc.Begin(usecase.Input{Filename: hdr.Filename, Body: file, Target: s.cfg.Target})
	switch {
	case errors.Is(err, session.ErrBusy):
		httputil.WriteError(w, http.StatusConflict, "busy", err.Error())
		return
	case err != nil:
		s.log.ErrorContext(ctx, "accept upload", slog.Any("error", xerrors.New(err)))
		httputil.WriteError(w, http.StatusInternalServerError, "upload_failed", usecase.FailureMessage)
		return
	}

	video := job.Video()
	s.log.InfoContext(ctx, "analysis started",
		slog.String("video", video.ID),
		slog.String("filename", video.Filename),
		slog.Int64("size", hdr.Size),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := job.Run(s.baseCtx); err != nil {
			s.log.ErrorContext(s.baseCtx, "analysis failed",
				slog.String("video", video.ID),
				slog.Any("error", xerrors.New(err)),
			)
		}
	}()

	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"video_id": video.ID})
}

type durationRequest struct {
	VideoID string  `json:"video_id"`
	Seconds float64 `json:"seconds"`
}

func (s *Server) handleDuration(w http.ResponseWriter, r *http.Request) {
	var req durationRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := s.uc.SetDuration(req.VideoID, req.Seconds); err != nil {
		if errors.Is(err, session.ErrStaleVideo) {
			httputil.WriteError(w, http.StatusConflict, "stale_video", err.Error())
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]float64{"duration": s.uc.Session().Snapshot().Duration})
}

type sessionResponse struct {
	Version  uint64       `json:"version"`
	Busy     bool         `json:"busy"`
	Video    *types.Video `json:"video,omitempty"`
	Duration float64      `json:"duration"`
	Failure  string       `json:"failure,omitempty"`
	Report   types.Report `json:"report"`
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	st, rep := s.uc.Report()
	httputil.WriteJSON(w, http.StatusOK, sessionResponse{
		Version:  st.Version,
		Busy:     st.Busy,
		Video:    st.Video,
		Duration: st.Duration,
		Failure:  st.Failure,
		Report:   rep,
	})
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_index", "segment index must be an integer")
		return
	}
	_, rep := s.uc.Report()
	if idx < 0 || idx >= len(rep.Entries) {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "no such segment")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rep.Entries[idx].Seek)
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	rc, v, err := s.store.Open(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.log.ErrorContext(r.Context(), "open media", slog.Any("error", xerrors.New(err)))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer rc.Close()
	http.ServeContent(w, r, v.Filename, v.UploadedAt, rc)
}

// handleFlagsTrack serves the flagged segments of the current video as a
// WebVTT track for the player.
func (s *Server) handleFlagsTrack(w http.ResponseWriter, r *http.Request) {
	st := s.uc.Session().Snapshot()
	if st.Video == nil || st.Video.ID != chi.URLParam(r, "id") {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/vtt; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(subtitles.RenderVTT(st.Segments)))
}
