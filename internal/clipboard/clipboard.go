// Package clipboard copies text to the system clipboard via the platform's
// native utility. Used by the copy command to hand exports and template
// overviews to other tools.
package clipboard

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Copy copies text to the system clipboard
func Copy(text string) error {
	switch runtime.GOOS {
	case "darwin":
		return pipeTo(text, "pbcopy")
	case "windows":
		return pipeTo(text, "cmd", "/c", "clip")
	case "linux":
		return copyLinux(text)
	default:
		return fmt.Errorf("clipboard not supported on %s", runtime.GOOS)
	}
}

// copyLinux tries the common X11 and Wayland clipboard utilities in turn
func copyLinux(text string) error {
	candidates := [][]string{
		{"xclip", "-selection", "clipboard"},
		{"xsel", "--clipboard", "--input"},
		{"wl-copy"},
	}

	var lastErr error
	for _, c := range candidates {
		if !commandAvailable(c[0]) {
			continue
		}
		if err := pipeTo(text, c[0], c[1:]...); err == nil {
			return nil
		} else {
			lastErr = fmt.Errorf("%s failed: %w", c[0], err)
		}
	}

	if lastErr != nil {
		return lastErr
	}
	return fmt.Errorf("no clipboard utility found; install xclip, xsel or wl-clipboard")
}

func pipeTo(text string, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}

func commandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
