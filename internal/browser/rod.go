// rod.go — go-rod backed Environment and Factory.
// Launches a Chromium per environment; capture-configured environments
// stream CDP screencast frames to a scratch directory and finalize them
// into the artifact on Close via the external encoder.
package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("reelcap")

// RodFactory creates rod-backed environments.
type RodFactory struct {
	// Bin is an explicit Chromium binary path; empty means the launcher's
	// own resolution.
	Bin      string
	Headless bool
	Width    int
	Height   int
	// Encoder finalizes screencast frames into the artifact. Nil defaults
	// to FFmpegEncoder.
	Encoder Encoder
}

// Create launches a browser. A non-nil spec arms frame capture for every
// page the environment will open.
func (f *RodFactory) Create(spec *CaptureSpec) (Environment, error) {
	l := launcher.New().Headless(f.Headless)
	if f.Bin != "" {
		l = l.Bin(f.Bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	env := &rodEnvironment{
		browser:  b,
		launcher: l,
		spec:     spec,
		encoder:  f.Encoder,
		width:    f.Width,
		height:   f.Height,
	}
	if env.encoder == nil {
		env.encoder = FFmpegEncoder{}
	}

	if spec != nil {
		framesDir, artifact, err := prepareCapture(spec)
		if err != nil {
			_ = b.Close()
			l.Cleanup()
			return nil, err
		}
		env.framesDir = framesDir
		env.artifact = artifact
	}

	return env, nil
}

// prepareCapture ensures the output directory exists and allocates the
// scratch frames directory plus the artifact path. The output directory is
// created first so a failure leaves no scratch directory behind.
func prepareCapture(spec *CaptureSpec) (framesDir, artifact string, err error) {
	if err := os.MkdirAll(spec.Dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output directory: %w", err)
	}
	framesDir, err = os.MkdirTemp("", "reelcap-frames-*")
	if err != nil {
		return "", "", fmt.Errorf("create frames directory: %w", err)
	}
	return framesDir, CaptureFilePath(spec.Dir, time.Now()), nil
}

type rodEnvironment struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	spec     *CaptureSpec
	encoder  Encoder
	width    int
	height   int

	mu        sync.Mutex
	pages     []Page
	hooks     []func(Page)
	framesDir string
	artifact  string
	frameSeq  int
	opened    bool
	closed    bool
}

func (e *rodEnvironment) Pages() []Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Page, len(e.pages))
	copy(out, e.pages)
	return out
}

func (e *rodEnvironment) OnPage(hook func(Page)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks = append(e.hooks, hook)
}

func (e *rodEnvironment) OpenPage(url string) (Page, error) {
	p, err := e.browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	if e.width > 0 && e.height > 0 {
		if err := (proto.EmulationSetDeviceMetricsOverride{
			Width:             e.width,
			Height:            e.height,
			DeviceScaleFactor: 1.0,
			Mobile:            false,
		}).Call(p); err != nil {
			log.Warningf("set viewport: %v", err)
		}
	}

	rp := &rodPage{page: p}

	if e.spec != nil {
		e.startScreencast(rp)
	}

	e.mu.Lock()
	e.pages = append(e.pages, rp)
	e.opened = true
	hooks := make([]func(Page), len(e.hooks))
	copy(hooks, e.hooks)
	e.mu.Unlock()

	for _, hook := range hooks {
		hook(rp)
	}
	return rp, nil
}

// startScreencast begins streaming frames from the page into the frames
// directory. Frame ordering across pages is by arrival; captures in this
// system are effectively single-page-at-a-time.
func (e *rodEnvironment) startScreencast(rp *rodPage) {
	wait := rp.page.EachEvent(func(ev *proto.PageScreencastFrame) {
		_ = proto.PageScreencastFrameAck{SessionID: ev.SessionID}.Call(rp.page)
		e.writeFrame(ev.Data)
	})
	go wait()

	quality := 80
	everyNth := 1
	start := proto.PageStartScreencast{
		Format:        proto.PageStartScreencastFormatJpeg,
		Quality:       &quality,
		EveryNthFrame: &everyNth,
	}
	if e.spec.Width > 0 {
		start.MaxWidth = &e.spec.Width
	}
	if e.spec.Height > 0 {
		start.MaxHeight = &e.spec.Height
	}
	if err := start.Call(rp.page); err != nil {
		log.Warningf("start screencast: %v", err)
	}
}

func (e *rodEnvironment) writeFrame(data []byte) {
	e.mu.Lock()
	seq := e.frameSeq
	e.frameSeq++
	dir := e.framesDir
	closed := e.closed
	e.mu.Unlock()
	if closed || dir == "" {
		return
	}
	if err := os.WriteFile(framePath(dir, seq), data, 0o644); err != nil {
		log.Warningf("write frame: %v", err)
	}
}

// framePath names frame seq within dir, matching the pattern the encoder
// consumes.
func framePath(dir string, seq int) string {
	return filepath.Join(dir, fmt.Sprintf("frame-%06d.jpg", seq))
}

func (e *rodEnvironment) ArtifactRef() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.spec == nil || !e.opened {
		return "", false
	}
	return e.artifact, true
}

// Close tears the browser down and, for a capturing environment with at
// least one recorded frame, finalizes the artifact.
func (e *rodEnvironment) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	framesDir := e.framesDir
	artifact := e.artifact
	frames := e.frameSeq
	e.mu.Unlock()

	err := e.browser.Close()
	e.launcher.Cleanup()

	if e.spec != nil && framesDir != "" {
		if frames > 0 {
			if encErr := e.encoder.Encode(framesDir, artifact, e.spec.FPS); encErr != nil {
				log.Errorf("finalize capture %s: %v", artifact, encErr)
				if err == nil {
					err = encErr
				}
			}
		}
		if rmErr := os.RemoveAll(framesDir); rmErr != nil {
			log.Warningf("remove frames directory: %v", rmErr)
		}
	}
	return err
}

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *rodPage) Eval(js string, args ...any) error {
	_, err := p.page.Evaluate(&rod.EvalOptions{
		JS:           js,
		JSArgs:       args,
		ByValue:      true,
		AwaitPromise: true,
	})
	return err
}

func (p *rodPage) EvalOnNewDocument(js string) error {
	_, err := proto.PageAddScriptToEvaluateOnNewDocument{Source: js}.Call(p.page)
	return err
}

func (p *rodPage) Close() error {
	return p.page.Close()
}
