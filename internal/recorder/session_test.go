package recorder

import (
	"testing"
	"time"

	"github.com/reelcap/reelcap/internal/overlay"
)

func TestSessionStartsIdle(t *testing.T) {
	s := NewSession()
	snap := s.Snapshot()
	if snap.Enabled {
		t.Fatal("new session is enabled")
	}
	if snap.State != StateIdle {
		t.Fatalf("new session state = %s", snap.State)
	}
	if snap.OutputPath != "" || !snap.StartTime.IsZero() {
		t.Fatal("new session carries capture fields")
	}
}

func TestSessionCaptureLifecycle(t *testing.T) {
	s := NewSession()
	s.enable("sess-1", overlay.PositionBottomLeft)

	start := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	s.beginCapture(start)
	snap := s.Snapshot()
	if snap.State != StateRecording {
		t.Fatalf("state = %s after beginCapture", snap.State)
	}
	if !snap.StopTime.IsZero() || snap.OutputPath != "" {
		t.Fatal("beginCapture did not clear prior capture fields")
	}

	stop := start.Add(42 * time.Second)
	s.endCapture(stop, "/tmp/out.webm")
	snap = s.Snapshot()
	if snap.State != StateStopped {
		t.Fatalf("state = %s after endCapture", snap.State)
	}
	if snap.OutputPath != "/tmp/out.webm" {
		t.Fatalf("output path = %q", snap.OutputPath)
	}
	if got := snap.Elapsed(stop.Add(time.Hour)); got != 42*time.Second {
		t.Fatalf("elapsed after stop = %s, want 42s", got)
	}

	// A new capture clears the previous artifact.
	s.beginCapture(stop.Add(time.Minute))
	snap = s.Snapshot()
	if snap.OutputPath != "" || !snap.StopTime.IsZero() {
		t.Fatal("second beginCapture carried over stopped capture fields")
	}
}

func TestSnapshotElapsed(t *testing.T) {
	now := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)

	var snap Snapshot
	if snap.Elapsed(now) != 0 {
		t.Fatal("elapsed without start time should be zero")
	}

	snap.StartTime = now.Add(-90 * time.Second)
	if got := snap.Elapsed(now); got != 90*time.Second {
		t.Fatalf("running elapsed = %s, want 90s", got)
	}

	snap.StartTime = now.Add(time.Minute)
	if snap.Elapsed(now) != 0 {
		t.Fatal("negative elapsed should clamp to zero")
	}
}
