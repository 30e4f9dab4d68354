package setter

import "fmt"

// ScalingMode is the desktop-background display policy. Fit and Center leave
// uncovered screen area, so they need a composited matte behind the image.
type ScalingMode int

const (
	// ModeFill scales the image to cover the screen, cropping overflow.
	ModeFill ScalingMode = iota
	// ModeFit scales the image to be fully visible, letterboxed.
	ModeFit
	// ModeStretch distorts the image to the exact screen size.
	ModeStretch
	// ModeCenter shows the image unscaled in the middle of the screen.
	ModeCenter
	// ModeTile repeats the image across the screen.
	ModeTile
)

func (m ScalingMode) String() string {
	switch m {
	case ModeFill:
		return "fill"
	case ModeFit:
		return "fit"
	case ModeStretch:
		return "stretch"
	case ModeCenter:
		return "center"
	case ModeTile:
		return "tile"
	default:
		return fmt.Sprintf("ScalingMode(%d)", int(m))
	}
}

// ParseScalingMode maps a persisted mode name back to the enum.
func ParseScalingMode(s string) (ScalingMode, error) {
	switch s {
	case "fill":
		return ModeFill, nil
	case "fit":
		return ModeFit, nil
	case "stretch":
		return ModeStretch, nil
	case "center":
		return ModeCenter, nil
	case "tile":
		return ModeTile, nil
	default:
		return ModeFill, fmt.Errorf("unknown scaling mode %q", s)
	}
}

// NeedsMatte reports whether the mode leaves screen area uncovered and
// therefore wants a composited background behind the image.
func (m ScalingMode) NeedsMatte() bool {
	return m == ModeFit || m == ModeCenter
}
