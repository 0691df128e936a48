package browser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPrepareCapture(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "recordings")
	framesDir, artifact, err := prepareCapture(&CaptureSpec{Dir: dir})
	if err != nil {
		t.Fatalf("prepareCapture: %v", err)
	}
	defer func() { _ = os.RemoveAll(framesDir) }()

	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Fatalf("output dir not created: %v", err)
	}
	if fi, err := os.Stat(framesDir); err != nil || !fi.IsDir() {
		t.Fatalf("frames dir not created: %v", err)
	}
	if filepath.Dir(artifact) != dir || !strings.HasSuffix(artifact, ".webm") {
		t.Fatalf("artifact path = %q", artifact)
	}
}

func TestPrepareCaptureBadOutputDirLeavesNoScratch(t *testing.T) {
	// A regular file where the output directory should go makes MkdirAll
	// fail before any scratch directory is allocated.
	base := t.TempDir()
	blocker := filepath.Join(base, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	before := countScratchDirs(t)
	_, _, err := prepareCapture(&CaptureSpec{Dir: filepath.Join(blocker, "recordings")})
	if err == nil {
		t.Fatal("prepareCapture succeeded with an unusable output dir")
	}
	if after := countScratchDirs(t); after != before {
		t.Fatalf("scratch dirs leaked: %d -> %d", before, after)
	}
}

func countScratchDirs(t *testing.T) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "reelcap-frames-*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	return len(matches)
}

func TestFramePathMatchesEncoderPattern(t *testing.T) {
	got := framePath("/tmp/frames", 7)
	want := filepath.Join("/tmp/frames", "frame-000007.jpg")
	if got != want {
		t.Fatalf("framePath = %q, want %q", got, want)
	}
}
