package browser

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ErrNoBrowser is returned when no Chromium-family browser could be
// located on the machine.
var ErrNoBrowser = fmt.Errorf("no Chromium-family browser found, install Chrome, Chromium or Yandex Browser")

var linuxCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"yandex-browser",
	"yandex-browser-stable",
}

var windowsCandidates = []string{
	`Google\Chrome\Application\chrome.exe`,
	`Chromium\Application\chrome.exe`,
	`Yandex\YandexBrowser\Application\browser.exe`,
}

var darwinCandidates = []string{
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
	"/Applications/Yandex.app/Contents/MacOS/Yandex",
}

// FindBrowser probes the OS for an installed Chromium-family browser
// and returns the path to its binary. The CHROME_PATH environment
// variable wins over probing.
func FindBrowser() (string, error) {
	if path := os.Getenv("CHROME_PATH"); path != "" {
		return path, nil
	}

	switch runtime.GOOS {
	case "windows":
		return findWindowsBrowser()
	case "darwin":
		for _, path := range darwinCandidates {
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	default:
		for _, name := range linuxCandidates {
			path, err := exec.LookPath(name)
			if err == nil {
				return path, nil
			}
		}
	}
	return "", ErrNoBrowser
}

func findWindowsBrowser() (string, error) {
	var roots []string
	for _, env := range []string{"ProgramFiles", "ProgramFiles(x86)", "LocalAppData"} {
		if dir := os.Getenv(env); dir != "" {
			roots = append(roots, dir)
		}
	}
	for _, root := range roots {
		for _, rel := range windowsCandidates {
			path := filepath.Join(root, rel)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}
	return "", ErrNoBrowser
}
