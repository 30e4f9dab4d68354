//go:build darwin
// +build darwin

package setter

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// darwinOS implements Setter for macOS.
type darwinOS struct{}

// getOS returns a new instance of the darwinOS struct.
func getOS() Setter {
	return &darwinOS{}
}

// Apply sets the desktop wallpaper on macOS. Spanning every desktop needs
// System Events automation permission; when that is denied we still update
// the current desktop through Finder and report a warning.
func (d *darwinOS) Apply(path string, mode ScalingMode, allDesktops bool) (string, error) {
	if allDesktops {
		script := fmt.Sprintf(`
                tell application "System Events"
                        set picture of every desktop to POSIX file "%s"
                end tell
        `, path)
		if err := exec.Command("osascript", "-e", script).Run(); err != nil {
			if ferr := d.applyCurrent(path); ferr != nil {
				return "", ferr
			}
			return "updated current desktop only; grant automation permission for all desktops", nil
		}
		return "", nil
	}
	return "", d.applyCurrent(path)
}

// applyCurrent sets the wallpaper of the active desktop via Finder, which
// needs no extra permission.
func (d *darwinOS) applyCurrent(path string) error {
	script := fmt.Sprintf(`
                tell application "Finder"
                        set desktop picture to POSIX file "%s"
                end tell
        `, path)
	if err := exec.Command("osascript", "-e", script).Run(); err != nil {
		return fmt.Errorf("failed to set wallpaper: %w", err)
	}
	return nil
}

// DesktopDimensions returns the desktop dimensions on macOS.
func (d *darwinOS) DesktopDimensions() (int, int, error) {
	// Use `system_profiler` to get screen resolution
	out, err := exec.Command("system_profiler", "SPDisplaysDataType").Output()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get screen resolution: %w", err)
	}

	// Parse the output to extract the resolution
	lines := strings.Split(string(out), "\n")
	for _, line := range lines {
		if strings.Contains(line, "Resolution:") {
			parts := strings.Split(line, ":")
			if len(parts) == 2 {
				resolution := strings.TrimSpace(parts[1])
				dimensions := strings.Split(resolution, " x ")
				if len(dimensions) == 2 {
					width, _ := strconv.Atoi(dimensions[0])
					height, _ := strconv.Atoi(strings.Fields(dimensions[1])[0])
					return width, height, nil
				}
			}
		}
	}

	return 0, 0, fmt.Errorf("failed to parse screen resolution")
}
