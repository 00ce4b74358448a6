package app

import (
	"sync/atomic"
	"time"

	"github.com/attunehid/attune/internal/dispatch"
	"github.com/attunehid/attune/internal/event"
)

// SessionStats accumulates per-session action counts. It is a
// dispatch.Sink, so every successful execution lands here; runners and
// listeners report failures through RecordError.
type SessionStats struct {
	started  time.Time
	total    atomic.Uint64
	errors   atomic.Uint64
	bySource [4]atomic.Uint64
}

// NewSessionStats starts counting from now.
func NewSessionStats() *SessionStats {
	return &SessionStats{started: time.Now()}
}

// RecordAction implements dispatch.Sink.
func (s *SessionStats) RecordAction(r dispatch.Record) {
	s.total.Add(1)
	if int(r.Source) < len(s.bySource) {
		s.bySource[r.Source].Add(1)
	}
}

// RecordError counts a pipeline error.
func (s *SessionStats) RecordError() {
	s.errors.Add(1)
}

// Started returns when the session began.
func (s *SessionStats) Started() time.Time {
	return s.started
}

// Summary is a point-in-time view of the session counters.
type Summary struct {
	Started  time.Time
	Elapsed  time.Duration
	Total    uint64
	Errors   uint64
	BySource map[string]uint64
}

// Snapshot returns the current counters. Sources with zero actions are
// omitted from BySource.
func (s *SessionStats) Snapshot() Summary {
	by := make(map[string]uint64, len(s.bySource))
	for i := range s.bySource {
		if n := s.bySource[i].Load(); n > 0 {
			by[event.Source(i).String()] = n
		}
	}
	return Summary{
		Started:  s.started,
		Elapsed:  time.Since(s.started),
		Total:    s.total.Load(),
		Errors:   s.errors.Load(),
		BySource: by,
	}
}
