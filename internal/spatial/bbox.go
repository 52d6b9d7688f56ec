package spatial

// BBox is an axis-aligned extent in Web-Mercator meters.
type BBox struct {
	MinX float64 `json:"min_x" form:"min_x"`
	MinY float64 `json:"min_y" form:"min_y"`
	MaxX float64 `json:"max_x" form:"max_x"`
	MaxY float64 `json:"max_y" form:"max_y"`
}

// NYCExtent is the default viewport: lower Manhattan and the inner boroughs.
func NYCExtent() BBox {
	return BBox{MinX: -8242000, MinY: 4965000, MaxX: -8210000, MaxY: 4990000}
}

// Width returns the horizontal extent in meters.
func (b BBox) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical extent in meters.
func (b BBox) Height() float64 { return b.MaxY - b.MinY }

// IsZero reports whether the box is the zero value.
func (b BBox) IsZero() bool {
	return b.MinX == 0 && b.MinY == 0 && b.MaxX == 0 && b.MaxY == 0
}

// Valid reports whether the box has positive area.
func (b BBox) Valid() bool {
	return b.MaxX > b.MinX && b.MaxY > b.MinY
}

// Contains reports whether the point lies inside the box. The lower and left
// edges are inclusive, the upper and right exclusive, so adjacent boxes
// partition points without double counting.
func (b BBox) Contains(x, y float64) bool {
	return x >= b.MinX && x < b.MaxX && y >= b.MinY && y < b.MaxY
}

// Intersect returns the overlap of two boxes. The result may be invalid if
// they are disjoint.
func (b BBox) Intersect(other BBox) BBox {
	out := b
	if other.MinX > out.MinX {
		out.MinX = other.MinX
	}
	if other.MinY > out.MinY {
		out.MinY = other.MinY
	}
	if other.MaxX < out.MaxX {
		out.MaxX = other.MaxX
	}
	if other.MaxY < out.MaxY {
		out.MaxY = other.MaxY
	}
	return out
}

// Pad grows the box by a fraction of its size on every side.
func (b BBox) Pad(frac float64) BBox {
	dx := b.Width() * frac
	dy := b.Height() * frac
	return BBox{MinX: b.MinX - dx, MinY: b.MinY - dy, MaxX: b.MaxX + dx, MaxY: b.MaxY + dy}
}

// Center returns the midpoint of the box.
func (b BBox) Center() (x, y float64) {
	return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2
}
