// Package browser owns the automation environment that capture runs inside.
// The capture backend can only be configured at environment-creation time,
// so the orchestration layer works against the Environment/Factory
// interfaces here and swaps whole environments to toggle capture.
package browser

// CaptureSpec configures frame capture for an environment. It is fixed at
// creation time: a non-nil spec means every page in the environment records
// from the moment it opens.
type CaptureSpec struct {
	// Dir is the directory the finalized artifact is written to.
	Dir string
	// Width and Height bound the captured frame size.
	Width  int
	Height int
	// FPS is the capture frame rate.
	FPS int
}

// Page is one open page of an environment.
type Page interface {
	// URL returns the page's current URL, or "" if it cannot be read.
	URL() string
	// Eval runs a JS function expression in the page.
	Eval(js string, args ...any) error
	// EvalOnNewDocument registers a script that runs before any document
	// script on every future navigation of this page.
	EvalOnNewDocument(js string) error
	// Close closes the page.
	Close() error
}

// Environment is a live browser instance plus its open pages.
type Environment interface {
	// Pages returns the currently open pages.
	Pages() []Page
	// OpenPage opens a new page at the given URL.
	OpenPage(url string) (Page, error)
	// OnPage registers a hook that runs for every page opened after the
	// registration, including pages opened by OpenPage.
	OnPage(hook func(Page))
	// ArtifactRef returns the path the active capture will finalize to.
	// The second return is false when the environment is not capturing or
	// no page was ever opened.
	ArtifactRef() (string, bool)
	// Close tears the environment down. For a capturing environment this
	// finalizes the artifact.
	Close() error
}

// Factory creates environments. A nil spec creates a plain, non-capturing
// environment.
type Factory interface {
	Create(spec *CaptureSpec) (Environment, error)
}

// BlankURL is the placeholder page URL. Pages at this URL are not restored
// across environment swaps.
const BlankURL = "about:blank"
