// resources.go — capture environment lifecycle.
// The capture backend is configured at environment-creation time, so
// starting or stopping a capture means swapping the whole environment.
// ResourceManager isolates that two-phase protocol (teardown with state
// capture, then create with restore) so it never leaks into the transition
// rules.
package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/op/go-logging"

	"github.com/reelcap/reelcap/internal/browser"
)

var log = logging.MustGetLogger("reelcap")

// flushGrace bounds how long EndCapture waits for the finalized artifact to
// appear on disk before giving up and returning the path anyway.
const flushGrace = 1500 * time.Millisecond

// ResourceError wraps a failure to create, destroy, or read the browser
// environment. These surface on the triggering operation; they mean the
// request genuinely failed.
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("capture environment %s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// ResourceManager owns the live environment and performs the swaps.
// The controller serializes mutations, but status reads arrive on other
// goroutines (and the watchdog stop runs on the timer goroutine), so the
// handle itself is guarded.
type ResourceManager struct {
	factory browser.Factory
	grace   time.Duration

	mu     sync.RWMutex
	inject func(browser.Page)
	env    browser.Environment
}

// NewResourceManager returns a manager with no live environment yet.
func NewResourceManager(factory browser.Factory) *ResourceManager {
	return &ResourceManager{factory: factory, grace: flushGrace}
}

// SetInjector installs the per-page hook (overlay injection) that runs for
// every page of every environment the manager creates. Must be set before
// the first environment exists.
func (m *ResourceManager) SetInjector(fn func(browser.Page)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inject = fn
}

// Alive reports whether a live environment exists.
func (m *ResourceManager) Alive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.env != nil
}

// Pages returns the live environment's pages, or nil.
func (m *ResourceManager) Pages() []browser.Page {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.env == nil {
		return nil
	}
	return m.env.Pages()
}

// EnsureEnvironment creates a plain (non-capturing) environment with a
// single blank page if none is live yet.
func (m *ResourceManager) EnsureEnvironment() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.env != nil {
		return nil
	}
	return m.recreate(nil, nil)
}

// BeginCapture swaps the live environment for a capture-configured one:
// records currently-open page URLs, tears the environment down, creates a
// new one with the capture spec (which implicitly starts capture), restores
// one page per recorded URL (or one blank page), and re-attaches the
// overlay hook so every restored and future page is injected.
func (m *ResourceManager) BeginCapture(spec browser.CaptureSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	urls := m.openURLs()
	m.teardown()
	return m.recreate(&spec, urls)
}

// EndCapture finalizes the active capture: reads the artifact reference
// from the live environment, tears the environment down to force
// finalization, waits for the artifact to flush, then recreates a plain
// environment with the same pages so the session stays navigable. Returns
// "" when no page ever opened (nothing was captured).
//
// Teardown failures are logged and treated as "already stopped" — stop
// must always succeed from the client's perspective. Only the failure to
// recreate the follow-up environment is surfaced.
func (m *ResourceManager) EndCapture() (string, error) {
	m.mu.Lock()
	var ref string
	var ok bool
	if m.env != nil {
		ref, ok = m.env.ArtifactRef()
	}
	urls := m.openURLs()
	m.teardown()
	m.mu.Unlock()

	// The flush wait touches no shared state; status reads stay
	// responsive while it runs.
	if ok {
		m.awaitFlush(ref)
	}

	m.mu.Lock()
	err := m.recreate(nil, urls)
	m.mu.Unlock()
	if err != nil {
		// The capture itself finalized; report the path alongside the
		// recreation failure so the caller still learns where it went.
		return ref, err
	}
	if !ok {
		return "", nil
	}
	return ref, nil
}

// Teardown closes the live environment, swallowing errors. Used by
// EndCapture and at process shutdown.
func (m *ResourceManager) Teardown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardown()
}

// teardown assumes m.mu is held.
func (m *ResourceManager) teardown() {
	if m.env == nil {
		return
	}
	if err := m.env.Close(); err != nil {
		// Already-closed environments land here; the capture is stopped
		// either way.
		log.Warningf("environment teardown: %v", err)
	}
	m.env = nil
}

// openURLs records the URLs of currently-open pages, excluding blank
// placeholders. Assumes m.mu is held.
func (m *ResourceManager) openURLs() []string {
	if m.env == nil {
		return nil
	}
	var urls []string
	for _, p := range m.env.Pages() {
		u := p.URL()
		if u == "" || u == browser.BlankURL {
			continue
		}
		urls = append(urls, u)
	}
	return urls
}

// recreate builds a new environment (capturing when spec is non-nil),
// registers the injection hook, and restores pages: one per URL, or a
// single blank page when there is nothing to restore. Assumes m.mu is held.
func (m *ResourceManager) recreate(spec *browser.CaptureSpec, urls []string) error {
	env, err := m.factory.Create(spec)
	if err != nil {
		return &ResourceError{Op: "create", Err: err}
	}
	m.env = env
	if m.inject != nil {
		env.OnPage(m.inject)
	}

	restored := 0
	for _, u := range urls {
		if _, err := env.OpenPage(u); err != nil {
			log.Warningf("restore page %s: %v", u, err)
			continue
		}
		restored++
	}
	if restored == 0 {
		if _, err := env.OpenPage(browser.BlankURL); err != nil {
			m.teardown()
			return &ResourceError{Op: "open page", Err: err}
		}
	}
	return nil
}

// awaitFlush waits for the artifact at path to appear, up to the grace
// interval. Encoders that finalize synchronously return immediately via the
// stat fast path; the directory watch covers slower flushes.
func (m *ResourceManager) awaitFlush(path string) {
	if _, err := os.Stat(path); err == nil {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Debugf("flush watch: %v", err)
		time.Sleep(m.grace)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		log.Debugf("flush watch %s: %v", filepath.Dir(path), err)
		time.Sleep(m.grace)
		return
	}

	// Re-check after the watch is in place so a write between the first
	// stat and Add is not missed.
	if _, err := os.Stat(path); err == nil {
		return
	}

	deadline := time.NewTimer(m.grace)
	defer deadline.Stop()
	for {
		select {
		case ev := <-watcher.Events:
			if ev.Name == path && ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				return
			}
		case err := <-watcher.Errors:
			log.Debugf("flush watch: %v", err)
			return
		case <-deadline.C:
			log.Warningf("artifact %s not flushed within %s", path, m.grace)
			return
		}
	}
}
