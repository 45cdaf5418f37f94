package fetcher

import (
	"os/exec"
	"path/filepath"

	"github.com/jmylchreest/linkmagico/internal/logger"
)

// chromeCandidates lists Chrome/Chromium binary names and install paths,
// most common first.
var chromeCandidates = []string{
	"google-chrome-stable",
	"google-chrome",
	"chromium",
	"chromium-browser",
	"chrome",
	"headless-shell",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/snap/bin/chromium",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
}

// FindChromePath returns the first Chrome binary found on PATH or at a
// well-known location, or "" when there is none.
func FindChromePath() string {
	for _, name := range chromeCandidates {
		path, err := exec.LookPath(name)
		if err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		logger.Debug("found Chrome binary", "path", path)
		return path
	}
	return ""
}
