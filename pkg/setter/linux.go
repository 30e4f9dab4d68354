//go:build linux
// +build linux

package setter

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// linuxOS implements Setter for Linux, supporting X11 and some Wayland
// compositors.
type linuxOS struct{}

// getOS returns a new instance of the linuxOS struct.
func getOS() Setter {
	return &linuxOS{}
}

// Apply sets the desktop wallpaper on Linux. Multi-desktop spanning is only
// meaningful on KDE, where the plasma script already writes every desktop;
// other environments apply globally, so allDesktops is accepted silently.
func (l *linuxOS) Apply(path string, mode ScalingMode, allDesktops bool) (string, error) {
	desktopEnv := os.Getenv("XDG_CURRENT_DESKTOP")
	if desktopEnv == "" {
		desktopEnv = os.Getenv("DESKTOP_SESSION")
	}
	desktopEnv = strings.ToLower(desktopEnv)

	if os.Getenv("WAYLAND_DISPLAY") != "" {
		// Wayland
		switch {
		case strings.Contains(desktopEnv, "gnome") || strings.Contains(desktopEnv, "mutter"):
			return "", l.applyGNOME(path, mode)
		case strings.Contains(desktopEnv, "sway"):
			return "scaling mode not supported by swaybg", l.applySway(path)
		default:
			return "", fmt.Errorf("unsupported Wayland compositor: %s", desktopEnv)
		}
	}

	// X11
	switch {
	case strings.Contains(desktopEnv, "gnome") || strings.Contains(desktopEnv, "unity") || strings.Contains(desktopEnv, "cinnamon"):
		return "", l.applyGNOME(path, mode)
	case strings.Contains(desktopEnv, "kde"):
		return "", l.applyKDE(path)
	case strings.Contains(desktopEnv, "xfce"):
		return "", l.applyXFCE(path)
	default:
		return "", fmt.Errorf("unsupported X11 desktop environment: %s", desktopEnv)
	}
}

// gnomeOption maps a ScalingMode to GNOME's picture-options value.
func gnomeOption(mode ScalingMode) string {
	switch mode {
	case ModeFit:
		return "scaled"
	case ModeStretch:
		return "stretched"
	case ModeCenter:
		return "centered"
	case ModeTile:
		return "wallpaper"
	default:
		return "zoom"
	}
}

// applyGNOME sets the wallpaper for GNOME-based desktop environments.
func (l *linuxOS) applyGNOME(path string, mode ScalingMode) error {
	uri := fmt.Sprintf("file://%s", path)
	for _, key := range []string{"picture-uri", "picture-uri-dark"} {
		if err := exec.Command("gsettings", "set", "org.gnome.desktop.background", key, uri).Run(); err != nil {
			return fmt.Errorf("gsettings set %s: %w", key, err)
		}
	}
	return exec.Command("gsettings", "set", "org.gnome.desktop.background", "picture-options", gnomeOption(mode)).Run()
}

// applyKDE sets the wallpaper for KDE via the plasma scripting interface.
func (l *linuxOS) applyKDE(path string) error {
	plasmashellProc, err := exec.Command("pgrep", "-f", "plasmashell").Output()
	if err != nil {
		return fmt.Errorf("failed to find plasmashell process: %w", err)
	}

	plasmashellPID := strings.TrimSpace(string(plasmashellProc))

	dbusSendCmd := fmt.Sprintf(`dbus-send --session \
        --dest=org.kde.plasmashell \
        /PlasmaShell,%s \
        org.kde.PlasmaShell.evaluateScript \
        'string:
            var allDesktops = desktops();
            for (i=0;i<allDesktops.length;i++) {
                d = allDesktops[i];
                d.wallpaperPlugin = "org.kde.image";
                d.currentConfigGroup = Array("Wallpaper", "org.kde.image", "General");
                d.writeConfig("Image", "file://%s");
            }
        '`, plasmashellPID, path)

	return exec.Command("sh", "-c", dbusSendCmd).Run()
}

// applyXFCE sets the wallpaper for XFCE.
func (l *linuxOS) applyXFCE(path string) error {
	if _, err := l.getXFCEDesktopConfigFile(); err != nil {
		return err
	}

	return exec.Command("xfconf-query",
		"--channel", "xfce4-desktop",
		"--property", "/backdrop/screen0/monitor0/workspace0/last-image",
		"--set", path).Run()
}

// getXFCEDesktopConfigFile retrieves the path to the XFCE desktop configuration file.
func (l *linuxOS) getXFCEDesktopConfigFile() (string, error) {
	defaultConfigFile := filepath.Join(os.Getenv("HOME"), ".config", "xfce4", "xfconf", "xfce-perchannel-xml", "xfce4-desktop.xml")
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile, nil
	}

	return "", fmt.Errorf("could not find XFCE desktop configuration file")
}

// applySway sets the wallpaper for Sway. Requires swaybg to be installed.
func (l *linuxOS) applySway(path string) error {
	return exec.Command("swaybg", "-i", path, "-m", "fill").Start()
}

// DesktopDimensions returns the desktop dimensions on Linux.
func (l *linuxOS) DesktopDimensions() (int, int, error) {
	// Use `xdpyinfo` to get screen resolution
	out, err := exec.Command("xdpyinfo").Output()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get screen resolution: %w", err)
	}

	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "dimensions:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		dimensions := strings.Split(fields[1], "x")
		if len(dimensions) == 2 {
			width, _ := strconv.Atoi(dimensions[0])
			height, _ := strconv.Atoi(dimensions[1])
			return width, height, nil
		}
	}

	return 0, 0, fmt.Errorf("failed to parse screen resolution")
}
