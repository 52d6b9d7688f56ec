package render

import "image/color"

// Anchor ramps for the built-in palettes. fire matches the upstream
// renderer's default; viridis/inferno/plasma use the matplotlib quintile
// colors; blues is the ColorBrewer sequential ramp.

func init() {
	RegisterColormap(NewColormap("fire",
		color.NRGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xff},
		color.NRGBA{R: 0x8b, G: 0x00, B: 0x00, A: 0xff},
		color.NRGBA{R: 0xff, G: 0x45, B: 0x00, A: 0xff},
		color.NRGBA{R: 0xff, G: 0xd7, B: 0x00, A: 0xff},
		color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	))
	RegisterColormap(NewColormap("viridis",
		color.NRGBA{R: 0x44, G: 0x01, B: 0x54, A: 0xff},
		color.NRGBA{R: 0x3b, G: 0x52, B: 0x8b, A: 0xff},
		color.NRGBA{R: 0x21, G: 0x91, B: 0x8c, A: 0xff},
		color.NRGBA{R: 0x5e, G: 0xc9, B: 0x62, A: 0xff},
		color.NRGBA{R: 0xfd, G: 0xe7, B: 0x25, A: 0xff},
	))
	RegisterColormap(NewColormap("inferno",
		color.NRGBA{R: 0x00, G: 0x00, B: 0x04, A: 0xff},
		color.NRGBA{R: 0x57, G: 0x10, B: 0x6e, A: 0xff},
		color.NRGBA{R: 0xbc, G: 0x37, B: 0x54, A: 0xff},
		color.NRGBA{R: 0xf9, G: 0x8e, B: 0x09, A: 0xff},
		color.NRGBA{R: 0xfc, G: 0xff, B: 0xa4, A: 0xff},
	))
	RegisterColormap(NewColormap("plasma",
		color.NRGBA{R: 0x0d, G: 0x08, B: 0x87, A: 0xff},
		color.NRGBA{R: 0x7e, G: 0x03, B: 0xa8, A: 0xff},
		color.NRGBA{R: 0xcc, G: 0x47, B: 0x78, A: 0xff},
		color.NRGBA{R: 0xf8, G: 0x95, B: 0x40, A: 0xff},
		color.NRGBA{R: 0xf0, G: 0xf9, B: 0x21, A: 0xff},
	))
	RegisterColormap(NewColormap("blues",
		color.NRGBA{R: 0xf7, G: 0xfb, B: 0xff, A: 0xff},
		color.NRGBA{R: 0xc6, G: 0xdb, B: 0xef, A: 0xff},
		color.NRGBA{R: 0x6b, G: 0xae, B: 0xd6, A: 0xff},
		color.NRGBA{R: 0x21, G: 0x71, B: 0xb5, A: 0xff},
		color.NRGBA{R: 0x08, G: 0x30, B: 0x6b, A: 0xff},
	))
	RegisterColormap(NewColormap("gray",
		color.NRGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xff},
		color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	))
}
