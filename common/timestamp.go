package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// captureTimestampLayout renders wall-clock time as HH-MM-SS.mmm.
const captureTimestampLayout = "15-04-05.000"

// CaptureTimestamp formats t as HH-MM-SS-mmm, the base name used for capture output files.
//
// Parameters:
//   - t: the capture time
//
// Returns:
//   - string: the formatted timestamp
func CaptureTimestamp(t time.Time) string {
	return strings.Replace(t.Format(captureTimestampLayout), ".", "-", 1)
}

// UniqueCapturePath builds dir/<timestamp>.<ext>, adding a numeric suffix when the file already exists.
//
// Parameters:
//   - dir: the output directory
//   - t: the capture time
//   - ext: file extension without the leading dot
//
// Returns:
//   - string: a path that did not exist at the time of the call
func UniqueCapturePath(dir string, t time.Time, ext string) string {
	base := CaptureTimestamp(t)
	path := filepath.Join(dir, base+"."+ext)
	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(dir, fmt.Sprintf("%s-%d.%s", base, i, ext))
	}
}
