//go:build windows
// +build windows

package setter

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

const (
	spiSetDeskWallpaper  = 0x0014
	spifUpdateINIFile    = 0x01
	spifSendChange       = 0x02
	smCXScreen           = 0
	smCYScreen           = 1
	desktopControlKeyReg = `Control Panel\Desktop`
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSystemParametersInf = user32.NewProc("SystemParametersInfoW")
	procGetSystemMetrics    = user32.NewProc("GetSystemMetrics")
)

// windowsOS implements Setter for Windows.
type windowsOS struct{}

// getOS returns a new instance of the windowsOS struct.
func getOS() Setter {
	return &windowsOS{}
}

// Apply sets the desktop wallpaper on Windows. The scaling mode is written to
// the registry before the SystemParametersInfo call so the shell picks it up
// in the same refresh. Windows applies one wallpaper to every desktop, so
// allDesktops is always satisfied.
func (w *windowsOS) Apply(path string, mode ScalingMode, allDesktops bool) (string, error) {
	if err := w.setStyle(mode); err != nil {
		return "", err
	}

	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return "", fmt.Errorf("invalid wallpaper path: %w", err)
	}
	ret, _, callErr := procSystemParametersInf.Call(
		uintptr(spiSetDeskWallpaper),
		0,
		uintptr(unsafe.Pointer(pathPtr)),
		uintptr(spifUpdateINIFile|spifSendChange),
	)
	if ret == 0 {
		return "", fmt.Errorf("failed to set wallpaper: %v", callErr)
	}
	return "", nil
}

// setStyle writes the WallpaperStyle / TileWallpaper registry values that
// control how Windows scales the image.
func (w *windowsOS) setStyle(mode ScalingMode) error {
	var style, tile string
	switch mode {
	case ModeFit:
		style, tile = "6", "0"
	case ModeStretch:
		style, tile = "2", "0"
	case ModeCenter:
		style, tile = "0", "0"
	case ModeTile:
		style, tile = "0", "1"
	default: // fill
		style, tile = "10", "0"
	}

	key, err := registry.OpenKey(registry.CURRENT_USER, desktopControlKeyReg, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("opening desktop registry key: %w", err)
	}
	defer key.Close()

	if err := key.SetStringValue("WallpaperStyle", style); err != nil {
		return err
	}
	return key.SetStringValue("TileWallpaper", tile)
}

// DesktopDimensions returns the primary screen size on Windows.
func (w *windowsOS) DesktopDimensions() (int, int, error) {
	width, _, _ := procGetSystemMetrics.Call(uintptr(smCXScreen))
	height, _, _ := procGetSystemMetrics.Call(uintptr(smCYScreen))
	if width == 0 || height == 0 {
		return 0, 0, fmt.Errorf("failed to get screen metrics")
	}
	return int(width), int(height), nil
}
