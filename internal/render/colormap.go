package render

import (
	"fmt"
	"image/color"
	"sort"
)

// Colormap interpolates linearly between anchor colors over [0, 1].
type Colormap struct {
	name    string
	anchors []color.NRGBA
}

// NewColormap builds a colormap from at least two anchors, evenly spaced.
func NewColormap(name string, anchors ...color.NRGBA) *Colormap {
	if len(anchors) < 2 {
		panic(fmt.Sprintf("colormap %q needs at least two anchors", name))
	}
	return &Colormap{name: name, anchors: anchors}
}

// Name returns the registered name.
func (c *Colormap) Name() string { return c.name }

// At looks up the color for an intensity in [0, 1]. Out-of-range inputs are
// clamped.
func (c *Colormap) At(t float64) color.NRGBA {
	if t <= 0 {
		return c.anchors[0]
	}
	if t >= 1 {
		return c.anchors[len(c.anchors)-1]
	}
	pos := t * float64(len(c.anchors)-1)
	i := int(pos)
	frac := pos - float64(i)
	a, b := c.anchors[i], c.anchors[i+1]
	return color.NRGBA{
		R: lerp8(a.R, b.R, frac),
		G: lerp8(a.G, b.G, frac),
		B: lerp8(a.B, b.B, frac),
		A: lerp8(a.A, b.A, frac),
	}
}

func lerp8(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}

// ColormapRegistry holds the palettes selectable per session. Populated by
// init, read-only afterwards.
var ColormapRegistry = map[string]*Colormap{}

// RegisterColormap adds a palette to the registry.
func RegisterColormap(c *Colormap) {
	ColormapRegistry[c.name] = c
}

// ColormapByName retrieves a registered palette.
func ColormapByName(name string) (*Colormap, error) {
	c, ok := ColormapRegistry[name]
	if !ok {
		return nil, fmt.Errorf("unknown colormap %q", name)
	}
	return c, nil
}

// ColormapNames lists the registered palettes in sorted order. The list is
// the allowed set of the colormap selector field.
func ColormapNames() []string {
	names := make([]string, 0, len(ColormapRegistry))
	for name := range ColormapRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
