// Package setter applies an image file as the desktop background. Each OS
// has its own implementation behind the Setter interface; failures that only
// degrade the result (wrong scaling mode, single desktop updated) surface as
// warnings, not errors.
package setter

// Setter is the wallpaper application contract.
type Setter interface {
	// Apply sets the wallpaper. The returned warning is non-fatal advice for
	// the user ("updated current desktop only; grant automation permission
	// for all desktops"); err means the wallpaper did not change.
	Apply(path string, mode ScalingMode, allDesktops bool) (warning string, err error)
	// DesktopDimensions returns the primary screen size in pixels.
	DesktopDimensions() (int, int, error)
}

// ForCurrentOS returns the Setter for the platform this binary was built for.
func ForCurrentOS() Setter {
	return getOS()
}
