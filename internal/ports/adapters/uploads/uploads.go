package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/forPelevin/h8less/internal/ports"
	"github.com/forPelevin/h8less/internal/types"
)

var ErrNotFound = ports.ErrNotFound

// Dir stores uploaded videos as flat files named <id>-<name><ext>.
type Dir struct {
	root string
	now  func() time.Time

	mu    sync.RWMutex
	files map[string]types.Video
}

func New(root string) (*Dir, error) {
	if root == "" {
		return nil, errors.New("upload dir is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Dir{root: root, now: time.Now, files: make(map[string]types.Video)}, nil
}

func (d *Dir) Save(filename string, r io.Reader) (types.Video, error) {
	id := uuid.NewString()
	path := filepath.Join(d.root, id+"-"+storedName(filename))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return types.Video{}, fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return types.Video{}, fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return types.Video{}, fmt.Errorf("close upload: %w", err)
	}

	v := types.Video{
		ID:         id,
		Filename:   filepath.Base(filename),
		Path:       path,
		UploadedAt: d.now().UTC(),
	}
	d.mu.Lock()
	d.files[id] = v
	d.mu.Unlock()
	return v, nil
}

func (d *Dir) Open(id string) (io.ReadSeekCloser, types.Video, error) {
	d.mu.RLock()
	v, ok := d.files[id]
	d.mu.RUnlock()
	if !ok {
		return nil, types.Video{}, ErrNotFound
	}
	f, err := os.Open(v.Path)
	if err != nil {
		return nil, types.Video{}, fmt.Errorf("open upload: %w", err)
	}
	return f, v, nil
}

func (d *Dir) Remove(id string) error {
	d.mu.Lock()
	v, ok := d.files[id]
	delete(d.files, id)
	d.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	if err := os.Remove(v.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

func storedName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(base))
	name := normalizePathSegment(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" {
		name = "video"
	}
	if normalizePathSegment(strings.TrimPrefix(ext, ".")) != strings.TrimPrefix(ext, ".") {
		ext = ""
	}
	return name + ext
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
