// Package compositor prepares downloaded images for display. Fit and Center
// modes leave bare screen area, so the compositor paints a blurred
// fill-scaled copy of the image behind the letterboxed foreground. SmartFill
// crops to the most interesting region instead of the geometric center.
package compositor

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/muesli/smartcrop"
)

const (
	matteBlurSigma = 18.0
	jpegQuality    = 95
)

// Compositor renders wallpaper images sized for one screen.
type Compositor struct {
	resampler imaging.ResampleFilter
	smartFill bool
}

// New returns a Compositor. smartFill enables saliency-based cropping for
// fill-scaled output.
func New(smartFill bool) *Compositor {
	return &Compositor{resampler: imaging.Lanczos, smartFill: smartFill}
}

// SmartFillEnabled reports whether fill-mode images should be routed through
// the compositor for saliency cropping.
func (c *Compositor) SmartFillEnabled() bool {
	return c.smartFill
}

// Matte decodes imgBytes and composites it fit-scaled over a blurred
// fill-scaled matte of itself at the given screen size, returning JPEG bytes.
func (c *Compositor) Matte(imgBytes []byte, width, height int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	matte := imaging.Blur(imaging.Fill(img, width, height, imaging.Center, c.resampler), matteBlurSigma)
	fg := imaging.Fit(img, width, height, c.resampler)
	out := imaging.PasteCenter(matte, fg)

	return encodeJPEG(out)
}

// Fill decodes imgBytes and scales it to cover the screen, cropping
// overflow. With smartFill enabled the crop window follows the image's most
// interesting region rather than the center.
func (c *Compositor) Fill(imgBytes []byte, width, height int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	if c.smartFill {
		if cropped, err := c.smartCrop(img, width, height); err == nil {
			return encodeJPEG(cropped)
		}
		// fall back to the center crop on analyzer failure
	}
	return encodeJPEG(imaging.Fill(img, width, height, imaging.Center, c.resampler))
}

// smartCrop finds the best crop window for the target size and resizes it.
func (c *Compositor) smartCrop(img image.Image, width, height int) (image.Image, error) {
	r := &resizer{resampler: c.resampler}
	analyzer := smartcrop.NewAnalyzer(r)

	topCrop, err := analyzer.FindBestCrop(img, width, height)
	if err != nil {
		return nil, fmt.Errorf("finding best crop: %w", err)
	}

	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	sub, ok := img.(subImager)
	if !ok {
		return nil, fmt.Errorf("image type %T does not support cropping", img)
	}
	return r.Resize(sub.SubImage(topCrop), uint(width), uint(height)), nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}
	return buf.Bytes(), nil
}

// resizer implements the smartcrop.Resizer interface.
type resizer struct {
	resampler imaging.ResampleFilter
}

func (r *resizer) Resize(img image.Image, width, height uint) image.Image {
	return imaging.Resize(img, int(width), int(height), r.resampler)
}
