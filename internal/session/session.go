// Package session holds the state of the single display session: the current
// video, its flagged segments, the media duration and the busy flag.
//
// Every transition replaces all fields under one lock and publishes the new
// snapshot to subscribers, so views can be recomputed from State alone.
package session

import (
	"errors"
	"math"
	"sync"

	"github.com/forPelevin/h8less/internal/types"
)

var (
	// ErrBusy is returned by Begin while an analysis is in flight.
	ErrBusy = errors.New("an analysis is already in progress")
	// ErrStaleVideo is returned when a duration is reported for a video that
	// is no longer the current one.
	ErrStaleVideo = errors.New("video is not the current one")
	ErrNotBusy    = errors.New("no analysis in progress")
)

// State is an immutable snapshot. Video is nil until the first successful
// analysis. While Busy, Video and Segments are empty.
type State struct {
	Version  uint64          `json:"version"`
	Busy     bool            `json:"busy"`
	Video    *types.Video    `json:"video,omitempty"`
	Segments []types.Segment `json:"segments"`
	Duration float64         `json:"duration"`
	// Failure is set by Fail and cleared by the next Begin.
	Failure string `json:"failure,omitempty"`
}

type Session struct {
	mu   sync.Mutex
	cur  State
	prev State // restored by Fail
	subs map[int]chan State
	next int
}

func New() *Session {
	return &Session{
		cur:  State{Segments: []types.Segment{}},
		subs: make(map[int]chan State),
	}
}

// Begin moves the session to busy. Only one analysis may be in flight.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur.Busy {
		return ErrBusy
	}
	s.prev = s.cur
	s.set(State{Busy: true, Segments: []types.Segment{}})
	return nil
}

// Complete attaches the analysed video and its segments. The duration starts
// at 0 unless it is already known (probed before completion).
func (s *Session) Complete(v types.Video, segs []types.Segment, duration float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cur.Busy {
		return ErrNotBusy
	}
	if !validDuration(duration) {
		duration = 0
	}
	s.set(State{
		Video:    &v,
		Segments: append([]types.Segment{}, segs...),
		Duration: duration,
	})
	return nil
}

// Fail leaves the previous video and segments as they were and records a
// user-facing failure message.
func (s *Session) Fail(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cur.Busy {
		return ErrNotBusy
	}
	st := s.prev
	st.Busy = false
	st.Failure = msg
	s.set(st)
	return nil
}

// SetDuration records the media duration reported by the player. Invalid
// values are ignored; a duration for another video yields ErrStaleVideo.
func (s *Session) SetDuration(videoID string, seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur.Video == nil || s.cur.Video.ID != videoID {
		return ErrStaleVideo
	}
	if !validDuration(seconds) || seconds == s.cur.Duration {
		return nil
	}
	st := s.cur
	st.Duration = seconds
	s.set(st)
	return nil
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.clone()
}

// Subscribe returns a channel receiving each new snapshot. A slow subscriber
// only sees the latest state. The returned func unsubscribes.
func (s *Session) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	ch := make(chan State, 1)
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// set must be called with mu held.
func (s *Session) set(st State) {
	st.Version = s.cur.Version + 1
	s.cur = st
	for _, ch := range s.subs {
		snap := st.clone()
		select {
		case ch <- snap:
		default:
			// drop the stale pending snapshot
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (st State) clone() State {
	out := st
	out.Segments = append([]types.Segment{}, st.Segments...)
	if st.Video != nil {
		v := *st.Video
		out.Video = &v
	}
	return out
}

func validDuration(d float64) bool {
	return d >= 0 && !math.IsNaN(d) && !math.IsInf(d, 0)
}
