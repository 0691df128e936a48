// Package overlay maintains the in-page capture indicator: a small
// always-on-top pill showing recording state and elapsed time, with pause
// and stop controls that are live only while recording.
//
// All pushes into the page are best-effort. A closed page, a page without
// the indicator, or a CSP that rejects the script must never fail the
// action that triggered the push.
package overlay

import (
	"fmt"
	"time"

	"github.com/op/go-logging"

	"github.com/reelcap/reelcap/internal/browser"
)

var log = logging.MustGetLogger("reelcap")

// Position is one of the four corners the indicator can occupy.
type Position string

const (
	PositionTopLeft     Position = "top-left"
	PositionTopRight    Position = "top-right"
	PositionBottomLeft  Position = "bottom-left"
	PositionBottomRight Position = "bottom-right"
)

// DefaultPosition is used when the caller does not pick a corner.
const DefaultPosition = PositionTopRight

// ParsePosition validates a position string. Empty input selects the
// default.
func ParsePosition(s string) (Position, error) {
	switch Position(s) {
	case "":
		return DefaultPosition, nil
	case PositionTopLeft, PositionTopRight, PositionBottomLeft, PositionBottomRight:
		return Position(s), nil
	}
	return "", fmt.Errorf("invalid position %q: must be one of top-left, top-right, bottom-left, bottom-right", s)
}

// css returns the fixed-position offsets for the corner. The 16px inset
// keeps the pill clear of browser chrome and scrollbars.
func (p Position) css() string {
	switch p {
	case PositionTopLeft:
		return "top:16px;left:16px;"
	case PositionBottomLeft:
		return "bottom:16px;left:16px;"
	case PositionBottomRight:
		return "bottom:16px;right:16px;"
	default:
		return "top:16px;right:16px;"
	}
}

// Orchestrator injects the indicator and pushes state updates into pages.
type Orchestrator struct{}

// New returns an overlay orchestrator.
func New() *Orchestrator {
	return &Orchestrator{}
}

// Inject installs the indicator on a page: it registers the script to run
// before any document script on future navigations (so client-side
// navigation keeps the indicator without re-injection), and applies it
// immediately so an already-loaded page shows the indicator without
// waiting for the next navigation. Both steps are best-effort.
func (o *Orchestrator) Inject(p browser.Page, pos Position, sessionID string) {
	js := Script(pos, sessionID)
	if err := p.EvalOnNewDocument(js); err != nil {
		log.Debugf("overlay install hook: %v", err)
	}
	if err := p.Eval(js); err != nil {
		log.Debugf("overlay immediate apply: %v", err)
	}
}

// PushState updates the indicator on a page. state is one of
// idle/recording/stopped; elapsed seeds the readout, which self-ticks
// client-side while recording. Fire-and-forget.
func (o *Orchestrator) PushState(p browser.Page, state string, elapsed time.Duration) {
	secs := int(elapsed.Seconds())
	js := fmt.Sprintf(
		`() => { if (window.__reelcap) window.__reelcap.update(%q, %d); }`,
		state, secs,
	)
	if err := p.Eval(js); err != nil {
		log.Debugf("overlay push %s: %v", state, err)
	}
}

// FormatElapsed renders a duration as m:ss, the format the readout uses.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// Script returns the self-contained indicator script for a corner and
// session. Running it twice is a no-op (guarded on window.__reelcap), so
// re-injection after navigation or an environment swap never stacks
// indicators.
func Script(pos Position, sessionID string) string {
	return fmt.Sprintf(`() => {
  if (window.__reelcap) return;
  const make = () => {
    if (!document.body || document.getElementById('__reelcap-overlay')) return;
    const host = document.createElement('div');
    host.id = '__reelcap-overlay';
    host.setAttribute('data-session', %q);
    host.style.cssText = 'position:fixed;%sz-index:2147483647;' +
      'display:flex;align-items:center;gap:6px;padding:4px 10px;border-radius:14px;' +
      'background:rgba(20,20,20,0.82);color:#fff;font:12px/1.4 system-ui,sans-serif;' +
      'pointer-events:auto;user-select:none;';
    host.innerHTML =
      '<span id="__reelcap-dot" style="width:8px;height:8px;border-radius:50%%;background:#888;"></span>' +
      '<span id="__reelcap-label">Not recording</span>' +
      '<span id="__reelcap-time" style="font-variant-numeric:tabular-nums;"></span>' +
      '<button id="__reelcap-pause" disabled style="all:unset;cursor:pointer;opacity:0.4;">&#10073;&#10073;</button>' +
      '<button id="__reelcap-stop" disabled style="all:unset;cursor:pointer;opacity:0.4;">&#9632;</button>';
    document.body.appendChild(host);
    host.querySelector('#__reelcap-pause').addEventListener('click', () => {
      window.__reelcap.requested = 'pause';
    });
    host.querySelector('#__reelcap-stop').addEventListener('click', () => {
      window.__reelcap.requested = 'stop';
    });
  };
  const fmt = (s) => Math.floor(s / 60) + ':' + String(s %% 60).padStart(2, '0');
  window.__reelcap = {
    state: 'idle',
    seconds: 0,
    timer: null,
    requested: null,
    update(state, seconds) {
      make();
      this.state = state;
      this.seconds = seconds;
      const host = document.getElementById('__reelcap-overlay');
      if (!host) return;
      const dot = host.querySelector('#__reelcap-dot');
      const label = host.querySelector('#__reelcap-label');
      const time = host.querySelector('#__reelcap-time');
      const pause = host.querySelector('#__reelcap-pause');
      const stop = host.querySelector('#__reelcap-stop');
      if (this.timer) { clearInterval(this.timer); this.timer = null; }
      if (state === 'recording') {
        dot.style.background = '#e53935';
        label.textContent = 'REC';
        time.textContent = fmt(this.seconds);
        pause.disabled = false; stop.disabled = false;
        pause.style.opacity = '1'; stop.style.opacity = '1';
        this.timer = setInterval(() => {
          this.seconds += 1;
          time.textContent = fmt(this.seconds);
        }, 1000);
      } else if (state === 'stopped') {
        dot.style.background = '#555';
        label.textContent = 'Stopped';
        time.textContent = fmt(this.seconds);
        pause.disabled = true; stop.disabled = true;
        pause.style.opacity = '0.4'; stop.style.opacity = '0.4';
      } else {
        dot.style.background = '#888';
        label.textContent = 'Not recording';
        time.textContent = '';
        pause.disabled = true; stop.disabled = true;
        pause.style.opacity = '0.4'; stop.style.opacity = '0.4';
      }
    },
  };
  if (document.readyState === 'loading') {
    document.addEventListener('DOMContentLoaded', make);
  } else {
    make();
  }
  window.__reelcap.update('idle', 0);
}`, sessionID, pos.css())
}
