// status.go — read-only session status reporting.
package recorder

import (
	"os"
	"time"
)

// ArtifactInfo describes a finalized capture artifact on disk.
type ArtifactInfo struct {
	Format          string  `json:"format"`
	SizeBytes       int64   `json:"size_bytes"`
	DurationSeconds float64 `json:"duration_seconds"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
}

// Status is the full session status as reported to clients.
type Status struct {
	Enabled        bool          `json:"enabled"`
	SessionID      string        `json:"session_id,omitempty"`
	Position       string        `json:"position,omitempty"`
	State          State         `json:"state"`
	ElapsedSeconds float64       `json:"elapsed_seconds"`
	StartTime      string        `json:"start_time,omitempty"`
	StopTime       string        `json:"stop_time,omitempty"`
	OutputPath     string        `json:"output_path,omitempty"`
	Artifact       *ArtifactInfo `json:"artifact,omitempty"`
}

// Reporter builds Status values from session snapshots. It never mutates
// anything and never blocks on the controller lock; a status read during a
// transition sees the last committed snapshot.
type Reporter struct {
	session   *Session
	resources *ResourceManager
	width     int
	height    int
	now       func() time.Time
}

// NewReporter returns a status reporter over the session record.
func NewReporter(session *Session, resources *ResourceManager, width, height int) *Reporter {
	return &Reporter{session: session, resources: resources, width: width, height: height}
}

func (r *Reporter) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

// Report assembles the current status. Artifact details are included only
// when the session is stopped and the file is statable; a stat failure is
// logged and the artifact block omitted rather than failing the status
// read.
func (r *Reporter) Report() Status {
	snap := r.session.Snapshot()
	now := r.clock()

	st := Status{
		Enabled:        snap.Enabled,
		SessionID:      snap.ID,
		State:          snap.State,
		ElapsedSeconds: snap.Elapsed(now).Seconds(),
		OutputPath:     snap.OutputPath,
	}
	if snap.Enabled {
		st.Position = string(snap.Position)
	}
	if !snap.StartTime.IsZero() {
		st.StartTime = snap.StartTime.UTC().Format(time.RFC3339)
	}
	if !snap.StopTime.IsZero() {
		st.StopTime = snap.StopTime.UTC().Format(time.RFC3339)
	}

	if snap.State == StateStopped && snap.OutputPath != "" {
		if fi, err := os.Stat(snap.OutputPath); err == nil {
			st.Artifact = &ArtifactInfo{
				Format:          "webm",
				SizeBytes:       fi.Size(),
				DurationSeconds: snap.Elapsed(now).Seconds(),
				Width:           r.width,
				Height:          r.height,
			}
		} else {
			log.Debugf("artifact stat %s: %v", snap.OutputPath, err)
		}
	}
	return st
}

// EnvironmentAlive reports whether the session should have a live browser
// environment but does not. Used to surface resource loss on status reads.
func (r *Reporter) EnvironmentAlive() bool {
	snap := r.session.Snapshot()
	if !snap.Enabled {
		return true
	}
	return r.resources.Alive()
}
