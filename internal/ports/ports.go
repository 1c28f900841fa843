package ports

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/forPelevin/h8less/internal/types"
)

// Analyzer sends a video to the remote analysis service.
type Analyzer interface {
	Analyze(ctx context.Context, filename string, video io.Reader) ([]types.RawSegment, error)
}

// MediaProber reports the duration of a local media file.
type MediaProber interface {
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}

// ErrNotFound is returned by Store for unknown ids.
var ErrNotFound = errors.New("upload not found")

// Store keeps the uploaded video so it can be played back.
type Store interface {
	Save(filename string, r io.Reader) (types.Video, error)
	Open(id string) (io.ReadSeekCloser, types.Video, error)
	Remove(id string) error
}
