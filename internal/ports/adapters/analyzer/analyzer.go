package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"
	"time"

	"github.com/forPelevin/h8less/internal/types"
)

// ErrAnalysisFailed is the only error class the adapter reports. Network
// errors, non-2xx answers and malformed bodies all wrap it.
var ErrAnalysisFailed = errors.New("analysis request failed")

const (
	analyzePath = "/analyze"
	formField   = "file"

	// DefaultTimeout covers transcription plus classification of a long video.
	DefaultTimeout = 10 * time.Minute
)

type Adapter struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

func New(baseURL string, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Adapter{
		baseURL: normalizeBaseURL(baseURL),
		timeout: timeout,
		client:  &http.Client{},
	}
}

// Analyze posts the video as multipart form data and returns the raw
// classified segments. The body is streamed, not buffered.
func (a *Adapter) Analyze(ctx context.Context, filename string, video io.Reader) ([]types.RawSegment, error) {
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, filename, video))
	}()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, a.baseURL+analyzePath, pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		pr.Close()
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: timeout after %s", ErrAnalysisFailed, a.timeout)
		}
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		if readErr != nil {
			return nil, fmt.Errorf("%w: status %d and read body failed: %v", ErrAnalysisFailed, resp.StatusCode, readErr)
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrAnalysisFailed, resp.StatusCode, truncate(redactSecrets(string(rb)), 400))
	}

	var out types.AnalysisResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrAnalysisFailed, err)
	}
	if out.Data == nil {
		out.Data = []types.RawSegment{}
	}
	return out.Data, nil
}

func writeForm(mw *multipart.Writer, filename string, video io.Reader) error {
	part, err := mw.CreateFormFile(formField, filepath.Base(filename))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, video); err != nil {
		return err
	}
	return mw.Close()
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

// redactSecrets masks credentials a proxy in front of the service might echo
// back in an error page.
func redactSecrets(s string) string {
	if s == "" {
		return s
	}
	s = bearerTokenRE.ReplaceAllString(s, "Bearer [REDACTED]")
	s = authHeaderRE.ReplaceAllString(s, "${1}[REDACTED]")
	return apiKeyFieldRE.ReplaceAllString(s, "${1}[REDACTED]")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
