// watchdog.go — max-duration auto-stop timer.
package recorder

import (
	"sync"
	"time"
)

// Watchdog is a single-shot timer bound to the active capture. At most one
// timer is pending: Arm replaces any existing one, Disarm cancels. A
// generation counter guards against a stale fire sneaking in between a
// Disarm and the start of the next capture.
type Watchdog struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewWatchdog returns a disarmed watchdog.
func NewWatchdog() *Watchdog {
	return &Watchdog{}
}

// Arm schedules onFire after d, replacing any pending timer. onFire runs on
// the timer goroutine.
func (w *Watchdog) Arm(d time.Duration, onFire func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.gen++
	gen := w.gen
	w.timer = time.AfterFunc(d, func() {
		w.mu.Lock()
		live := w.gen == gen
		if live {
			w.timer = nil
		}
		w.mu.Unlock()
		if live {
			onFire()
		}
	})
}

// Disarm cancels any pending timer. A fire already past its generation
// check may still run; callers that care use the same serialized stop path
// the fire does, so a late fire degrades to an idempotent stop.
func (w *Watchdog) Disarm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gen++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Armed reports whether a timer is pending.
func (w *Watchdog) Armed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.timer != nil
}
