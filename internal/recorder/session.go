// session.go — the canonical session record.
// One record per process, created at startup, enabled once, then mutated in
// place by the controller for the rest of the process lifetime. The
// controller is the only writer; everything else reads snapshots.
package recorder

import (
	"sync"
	"time"

	"github.com/reelcap/reelcap/internal/overlay"
)

// Session is the process-lifetime capture session record.
//
// Invariants:
//   - state == idle ⇒ outputPath == "" and startTime unset
//   - outputPath != "" ⇒ state == stopped and a capture completed
//   - startTime set whenever state ∈ {recording, stopped} after a capture
type Session struct {
	mu         sync.RWMutex
	id         string
	enabled    bool
	position   overlay.Position
	state      State
	startTime  time.Time
	stopTime   time.Time
	outputPath string
}

// Snapshot is a point-in-time read of the session record.
type Snapshot struct {
	ID         string
	Enabled    bool
	Position   overlay.Position
	State      State
	StartTime  time.Time
	StopTime   time.Time
	OutputPath string
}

// NewSession returns a fresh, not-yet-enabled session in the idle state.
func NewSession() *Session {
	return &Session{state: StateIdle, position: overlay.DefaultPosition}
}

// Snapshot returns a consistent copy of the record.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		ID:         s.id,
		Enabled:    s.enabled,
		Position:   s.position,
		State:      s.state,
		StartTime:  s.startTime,
		StopTime:   s.stopTime,
		OutputPath: s.outputPath,
	}
}

// enable flips the session on and assigns its id. Controller-only.
func (s *Session) enable(id string, pos overlay.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	s.enabled = true
	s.position = pos
}

// disable rolls back a failed enable so it can be retried. Controller-only.
func (s *Session) disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = ""
	s.enabled = false
}

// beginCapture resets the record for a new capture. Fields from a previous
// stopped capture are cleared, never carried over. Controller-only.
func (s *Session) beginCapture(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateRecording
	s.startTime = now
	s.stopTime = time.Time{}
	s.outputPath = ""
}

// endCapture marks the capture finalized. outputPath may be "" when the
// artifact reference could not be retrieved; the state still becomes
// stopped. Controller-only.
func (s *Session) endCapture(now time.Time, outputPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateStopped
	s.stopTime = now
	s.outputPath = outputPath
}

// Elapsed returns the capture duration so far: (stopTime or now) − startTime,
// zero when no capture has started.
func (s Snapshot) Elapsed(now time.Time) time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	end := s.StopTime
	if end.IsZero() {
		end = now
	}
	d := end.Sub(s.StartTime)
	if d < 0 {
		return 0
	}
	return d
}
