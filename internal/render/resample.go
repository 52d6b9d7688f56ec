package render

import (
	"image"

	"golang.org/x/image/draw"
)

// Resample scales a shaded layer to the requested output size. Aggregation
// may run at a capped resolution; the image is then stretched to the plot
// size the client asked for.
func Resample(img *image.NRGBA, width, height int) *image.NRGBA {
	if img.Bounds().Dx() == width && img.Bounds().Dy() == height {
		return img
	}
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(out, out.Bounds(), img, img.Bounds(), draw.Src, nil)
	return out
}
