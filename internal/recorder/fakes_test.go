// fakes_test.go — in-memory browser fakes for recorder tests.
package recorder

import (
	"fmt"
	"sync"

	"github.com/reelcap/reelcap/internal/browser"
)

type fakePage struct {
	url    string
	evals  []string
	closed bool
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) Eval(js string, args ...any) error {
	p.evals = append(p.evals, js)
	return nil
}

func (p *fakePage) EvalOnNewDocument(js string) error { return nil }

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

type fakeEnvironment struct {
	mu        sync.Mutex
	capturing bool
	artifact  string
	pages     []*fakePage
	hooks     []func(browser.Page)
	closed    bool
	openErr   error
}

func (e *fakeEnvironment) Pages() []browser.Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]browser.Page, len(e.pages))
	for i, p := range e.pages {
		out[i] = p
	}
	return out
}

func (e *fakeEnvironment) OpenPage(url string) (browser.Page, error) {
	e.mu.Lock()
	if e.openErr != nil {
		err := e.openErr
		e.mu.Unlock()
		return nil, err
	}
	p := &fakePage{url: url}
	e.pages = append(e.pages, p)
	hooks := append([]func(browser.Page){}, e.hooks...)
	e.mu.Unlock()
	for _, h := range hooks {
		h(p)
	}
	return p, nil
}

func (e *fakeEnvironment) OnPage(hook func(browser.Page)) {
	e.mu.Lock()
	e.hooks = append(e.hooks, hook)
	pages := append([]*fakePage{}, e.pages...)
	e.mu.Unlock()
	for _, p := range pages {
		hook(p)
	}
}

func (e *fakeEnvironment) ArtifactRef() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.capturing || len(e.pages) == 0 {
		return "", false
	}
	return e.artifact, true
}

func (e *fakeEnvironment) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("already closed")
	}
	e.closed = true
	return nil
}

type fakeFactory struct {
	mu        sync.Mutex
	created   []*fakeEnvironment
	createErr error
	artifacts int
}

func (f *fakeFactory) Create(spec *browser.CaptureSpec) (browser.Environment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	env := &fakeEnvironment{}
	if spec != nil {
		env.capturing = true
		f.artifacts++
		env.artifact = fmt.Sprintf("%s/capture-%d.webm", spec.Dir, f.artifacts)
	}
	f.created = append(f.created, env)
	return env, nil
}

func (f *fakeFactory) last() *fakeEnvironment {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.created) == 0 {
		return nil
	}
	return f.created[len(f.created)-1]
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}
