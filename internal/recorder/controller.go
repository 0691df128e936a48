// controller.go — serialized capture orchestration.
// The controller owns every mutation of the session record and every
// environment swap. All entry points (MCP tools, the watchdog, shutdown)
// funnel through one mutex, so transitions never interleave.
package recorder

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reelcap/reelcap/internal/browser"
	"github.com/reelcap/reelcap/internal/overlay"
)

// EnableResult is the outcome of enabling capture.
type EnableResult struct {
	SessionID      string           `json:"session_id"`
	Position       overlay.Position `json:"position"`
	CaptureStarted bool             `json:"capture_started"`
}

// ControlResult is the outcome of an accepted control action.
type ControlResult struct {
	PreviousState   State    `json:"previous_state"`
	CurrentState    State    `json:"current_state"`
	OutputPath      string   `json:"output_path,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	Message         string   `json:"message,omitempty"`
}

// Controller drives the session through the transition table, swapping
// environments and arming the watchdog as side effects.
type Controller struct {
	mu        sync.Mutex
	session   *Session
	resources *ResourceManager
	watchdog  *Watchdog
	overlay   *overlay.Orchestrator

	outputDir   string
	width       int
	height      int
	fps         int
	maxDuration time.Duration

	now func() time.Time
}

// ControllerOptions carries the capture parameters fixed at startup.
type ControllerOptions struct {
	OutputDir   string
	Width       int
	Height      int
	FPS         int
	MaxDuration time.Duration
}

// NewController wires the session, resource manager, and watchdog together.
func NewController(session *Session, resources *ResourceManager, ov *overlay.Orchestrator, opts ControllerOptions) *Controller {
	return &Controller{
		session:     session,
		resources:   resources,
		watchdog:    NewWatchdog(),
		overlay:     ov,
		outputDir:   opts.OutputDir,
		width:       opts.Width,
		height:      opts.Height,
		fps:         opts.FPS,
		maxDuration: opts.MaxDuration,
	}
}

func (c *Controller) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// Enable turns the session on: assigns an id, creates the initial plain
// environment, installs the overlay injector, and optionally starts the
// first capture immediately. Enabling twice is rejected; the environment
// cannot be reconfigured without restarting the process.
func (c *Controller) Enable(pos overlay.Position, autoStart bool) (*EnableResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.session.Snapshot()
	if snap.Enabled {
		return nil, ErrAlreadyEnabled
	}

	id := uuid.NewString()
	c.session.enable(id, pos)
	c.resources.SetInjector(func(p browser.Page) {
		c.overlay.Inject(p, pos, id)
		s := c.session.Snapshot()
		c.overlay.PushState(p, string(s.State), s.Elapsed(c.clock()))
	})

	if err := c.resources.EnsureEnvironment(); err != nil {
		c.session.disable()
		return nil, err
	}
	log.Infof("capture enabled, session %s, indicator %s", id, pos)

	res := &EnableResult{SessionID: id, Position: pos}
	if autoStart {
		if _, err := c.handleLocked(ActionRecord); err != nil {
			// The session stays enabled; the client can retry with an
			// explicit record action.
			return nil, err
		}
		res.CaptureStarted = true
	}
	return res, nil
}

// Handle applies one control action under the controller lock.
func (c *Controller) Handle(action Action) (*ControlResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handleLocked(action)
}

func (c *Controller) handleLocked(action Action) (*ControlResult, error) {
	snap := c.session.Snapshot()
	next, err := Validate(snap.State, action, snap.Enabled)
	if err != nil {
		return nil, err
	}

	// Idempotent stop: nothing to tear down, report the existing artifact.
	if action == ActionStop && snap.State == StateStopped {
		d := snap.Elapsed(c.clock()).Seconds()
		return &ControlResult{
			PreviousState:   snap.State,
			CurrentState:    StateStopped,
			OutputPath:      snap.OutputPath,
			DurationSeconds: &d,
			Message:         "capture already stopped",
		}, nil
	}

	// record while recording carries an implicit auto-stop of the capture
	// in flight before the new one begins.
	if action == ActionRecord && snap.State == StateRecording {
		if _, err := c.stopLocked(snap, "capture finalized"); err != nil {
			return nil, err
		}
		snap = c.session.Snapshot()
	}

	if next == StateRecording {
		return c.startLocked(snap)
	}
	msg := "capture finalized"
	if action == ActionPause {
		msg = "capture finalized; resume will start a new capture"
	}
	return c.stopLocked(snap, msg)
}

// startLocked begins a new capture: swap in a capture environment, stamp
// the session, arm the watchdog, push the indicator.
func (c *Controller) startLocked(prev Snapshot) (*ControlResult, error) {
	spec := browser.CaptureSpec{
		Dir:    c.outputDir,
		Width:  c.width,
		Height: c.height,
		FPS:    c.fps,
	}
	if err := c.resources.BeginCapture(spec); err != nil {
		return nil, err
	}
	c.session.beginCapture(c.clock())
	if c.maxDuration > 0 {
		c.watchdog.Arm(c.maxDuration, c.autoStop)
	}
	c.pushOverlay()
	log.Infof("capture started (%s -> %s)", prev.State, StateRecording)
	return &ControlResult{
		PreviousState: prev.State,
		CurrentState:  StateRecording,
		Message:       "capture started",
	}, nil
}

// stopLocked finalizes the active capture: disarm first so a watchdog fire
// cannot race the swap, then end the capture and stamp the session.
func (c *Controller) stopLocked(prev Snapshot, msg string) (*ControlResult, error) {
	c.watchdog.Disarm()
	path, err := c.resources.EndCapture()
	now := c.clock()
	c.session.endCapture(now, path)
	c.pushOverlay()
	if err != nil {
		// The capture finalized but the follow-up environment failed; the
		// session record is consistent, the error surfaces to the caller.
		return nil, err
	}
	snap := c.session.Snapshot()
	d := snap.Elapsed(now).Seconds()
	log.Infof("capture stopped after %.1fs, artifact %s", d, path)
	return &ControlResult{
		PreviousState:   prev.State,
		CurrentState:    StateStopped,
		OutputPath:      path,
		DurationSeconds: &d,
		Message:         msg,
	}, nil
}

// autoStop is the watchdog fire path. It goes through the same serialized
// stop as an explicit request; if the user stopped in the meantime the
// idempotent stop makes this a no-op.
func (c *Controller) autoStop() {
	log.Warningf("max capture duration reached, stopping")
	if _, err := c.Handle(ActionStop); err != nil {
		log.Errorf("auto-stop: %v", err)
	}
}

// pushOverlay fans the current state out to every open page.
func (c *Controller) pushOverlay() {
	snap := c.session.Snapshot()
	elapsed := snap.Elapsed(c.clock())
	for _, p := range c.resources.Pages() {
		c.overlay.PushState(p, string(snap.State), elapsed)
	}
}

// Shutdown finalizes any active capture and tears the environment down.
// Called once at process exit.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchdog.Disarm()
	snap := c.session.Snapshot()
	if snap.State == StateRecording {
		if _, err := c.stopLocked(snap, "capture finalized at shutdown"); err != nil {
			log.Errorf("shutdown stop: %v", err)
		}
	}
	c.resources.Teardown()
}
