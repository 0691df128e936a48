// encoder.go — external encoder boundary.
// Format conversion is delegated to an external binary; this file is the
// only place that invokes it.
package browser

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Encoder finalizes a directory of screencast frames into a video artifact.
type Encoder interface {
	Encode(framesDir, outPath string, fps int) error
}

// FFmpegEncoder shells out to ffmpeg to assemble frames into a VP9 webm.
type FFmpegEncoder struct {
	// Bin is an explicit ffmpeg path; empty means "ffmpeg" on PATH.
	Bin string
}

func (e FFmpegEncoder) Encode(framesDir, outPath string, fps int) error {
	bin := e.Bin
	if bin == "" {
		bin = "ffmpeg"
	}
	if fps <= 0 {
		fps = 15
	}
	pattern := filepath.Join(framesDir, "frame-%06d.jpg")
	// #nosec G204 -- bin is operator-configured; arguments are internal paths
	cmd := exec.Command(bin,
		"-y",
		"-framerate", strconv.Itoa(fps),
		"-i", pattern,
		"-c:v", "libvpx-vp9",
		"-pix_fmt", "yuv420p",
		outPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("encode %s: %w: %s", outPath, err, tail(out, 300))
	}
	return nil
}

// tail returns the last n bytes of b as a string.
func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return "..." + string(b[len(b)-n:])
}
