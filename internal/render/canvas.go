package render

import (
	"fmt"

	"github.com/jengzang/taxi-explorer-go/internal/spatial"
)

// Grid is a row-major count raster. Row 0 is the northern edge so the grid
// maps directly onto image coordinates.
type Grid struct {
	Width  int
	Height int
	Counts []uint32
}

// NewGrid allocates a zeroed count grid.
func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		Counts: make([]uint32, width*height),
	}
}

// At returns the count at a cell. Out-of-range cells read as zero.
func (g *Grid) At(col, row int) uint32 {
	if col < 0 || col >= g.Width || row < 0 || row >= g.Height {
		return 0
	}
	return g.Counts[row*g.Width+col]
}

// Peak returns the largest cell count.
func (g *Grid) Peak() uint32 {
	var peak uint32
	for _, c := range g.Counts {
		if c > peak {
			peak = c
		}
	}
	return peak
}

// Total returns the sum of all cell counts.
func (g *Grid) Total() uint64 {
	var total uint64
	for _, c := range g.Counts {
		total += uint64(c)
	}
	return total
}

// NonzeroFraction returns the share of cells holding at least one point.
func (g *Grid) NonzeroFraction() float64 {
	if len(g.Counts) == 0 {
		return 0
	}
	nonzero := 0
	for _, c := range g.Counts {
		if c > 0 {
			nonzero++
		}
	}
	return float64(nonzero) / float64(len(g.Counts))
}

// Canvas bins streamed Web-Mercator points into a count grid over a fixed
// extent. Points outside the extent are skipped, not clamped.
type Canvas struct {
	Width  int
	Height int
	Bounds spatial.BBox

	grid    *Grid
	binW    float64
	binH    float64
	skipped uint64
}

// NewCanvas validates the raster dimensions and extent.
func NewCanvas(width, height int, bounds spatial.BBox) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas size %dx%d must be positive", width, height)
	}
	if !bounds.Valid() {
		return nil, fmt.Errorf("canvas bounds %+v have no area", bounds)
	}
	return &Canvas{
		Width:  width,
		Height: height,
		Bounds: bounds,
		grid:   NewGrid(width, height),
		binW:   bounds.Width() / float64(width),
		binH:   bounds.Height() / float64(height),
	}, nil
}

// Add bins one point. Safe to call from a streaming scan callback.
func (c *Canvas) Add(x, y float64) {
	if !c.Bounds.Contains(x, y) {
		c.skipped++
		return
	}
	col := int((x - c.Bounds.MinX) / c.binW)
	row := c.Height - 1 - int((y-c.Bounds.MinY)/c.binH)
	if col >= c.Width {
		col = c.Width - 1
	}
	if row < 0 {
		row = 0
	}
	c.grid.Counts[row*c.Width+col]++
}

// Grid returns the accumulated counts.
func (c *Canvas) Grid() *Grid { return c.grid }

// Skipped returns how many points fell outside the extent.
func (c *Canvas) Skipped() uint64 { return c.skipped }
