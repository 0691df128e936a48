// Package recorder coordinates the capture session: a pure transition
// validator, the process-lifetime session record, the environment-swap
// resource manager, the max-duration watchdog, and the controller that
// ties them together.
package recorder

import "fmt"

// State is the capture session state.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateStopped   State = "stopped"
)

// Action is a capture control action.
type Action string

const (
	ActionRecord Action = "record"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionStop   Action = "stop"
)

// ParseAction validates an action string.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionRecord, ActionPause, ActionResume, ActionStop:
		return Action(s), nil
	}
	return "", fmt.Errorf("invalid action %q: must be one of record, pause, resume, stop", s)
}

// Rejection is a protocol-level refusal: the request was understood but is
// not valid in the current session state. State is left unchanged and the
// client must change state (or enable capture) before retrying.
type Rejection struct {
	Code    string
	Message string
}

func (r *Rejection) Error() string { return r.Message }

var (
	ErrAlreadyEnabled = &Rejection{
		Code:    "already_enabled",
		Message: "capture is already enabled for this session",
	}
	ErrNotEnabled = &Rejection{
		Code:    "not_enabled",
		Message: "capture is not enabled; call capture_enable first",
	}
	ErrInvalidTransition = &Rejection{
		Code:    "invalid_transition",
		Message: "nothing to resume: resume is only valid after a pause or stop",
	}
	ErrNoActiveCapture = &Rejection{
		Code:    "no_active_capture",
		Message: "no active capture",
	}
)

// Validate is the pure transition decision: given the current state and an
// action, it returns the target state or a Rejection. It has no side
// effects.
//
// record is accepted from every state. When the session is already
// recording, the contract is an implicit auto-stop: the controller must
// finalize the in-flight capture before starting the new one. That is a
// side-effecting precondition owned by the controller, not a validation
// failure.
//
// stop is idempotent: stopping an already-stopped session succeeds and
// leaves the state unchanged.
func Validate(current State, action Action, enabled bool) (State, error) {
	if !enabled {
		return current, ErrNotEnabled
	}
	switch action {
	case ActionRecord:
		return StateRecording, nil
	case ActionPause:
		if current != StateRecording {
			return current, ErrNoActiveCapture
		}
		return StateStopped, nil
	case ActionResume:
		if current != StateStopped {
			return current, ErrInvalidTransition
		}
		return StateRecording, nil
	case ActionStop:
		switch current {
		case StateRecording, StateStopped:
			return StateStopped, nil
		default:
			return current, ErrNoActiveCapture
		}
	}
	return current, fmt.Errorf("unknown action %q", action)
}
