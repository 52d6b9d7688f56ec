package render

import (
	"image"
	"image/color"
)

// Shade turns a count grid into an NRGBA image: counts are normalized to
// intensities, intensities looked up in the colormap, and the whole layer
// scaled by alpha. Zero-count cells stay fully transparent so the basemap
// shows through.
func Shade(g *Grid, norm Normalizer, cmap *Colormap, alpha float64) *image.NRGBA {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	layerAlpha := uint8(alpha*255 + 0.5)

	img := image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height))
	intensities := norm(g)
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			t := intensities[row*g.Width+col]
			if t <= 0 {
				continue
			}
			c := cmap.At(t)
			img.SetNRGBA(col, row, color.NRGBA{R: c.R, G: c.G, B: c.B, A: layerAlpha})
		}
	}
	return img
}
