// filename.go — deterministic artifact naming.
package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CaptureFilename returns the artifact name for a capture started at ts:
// capture--YYYY-MM-DD-HHmmss.webm
func CaptureFilename(ts time.Time) string {
	return fmt.Sprintf("capture--%s.webm", ts.Format("2006-01-02-150405"))
}

// CaptureFilePath joins dir with the capture filename for ts. If that path
// already exists (two captures within the same second), it re-stamps with
// nanosecond precision.
func CaptureFilePath(dir string, ts time.Time) string {
	path := filepath.Join(dir, CaptureFilename(ts))
	if _, err := os.Stat(path); err == nil {
		path = filepath.Join(dir, fmt.Sprintf("capture--%s.webm", ts.Format("2006-01-02-150405.000000000")))
	}
	return path
}
