package spatial

import (
	"math"
	"strconv"
	"strings"
)

// Slippy-map tile arithmetic. The server never fetches tiles; it names the
// tiles a client should lay under a rendered view.

const (
	tileSize = 256
	maxZoom  = 19
)

// Tile addresses one slippy-map tile.
type Tile struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
}

// URL expands a {z}/{x}/{y} template for this tile.
func (t Tile) URL(template string) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(t.Z),
		"{x}", strconv.Itoa(t.X),
		"{y}", strconv.Itoa(t.Y),
	)
	return r.Replace(template)
}

// TileAt returns the tile containing a Web-Mercator point at the given zoom.
func TileAt(x, y float64, zoom int) Tile {
	n := float64(int(1) << uint(zoom))
	tx := int(math.Floor((x + halfWorld) / worldSize * n))
	ty := int(math.Floor((halfWorld - y) / worldSize * n))
	max := int(n) - 1
	if tx < 0 {
		tx = 0
	}
	if tx > max {
		tx = max
	}
	if ty < 0 {
		ty = 0
	}
	if ty > max {
		ty = max
	}
	return Tile{Z: zoom, X: tx, Y: ty}
}

// ZoomFor picks the smallest zoom whose tile resolution is at least as fine
// as the view resolution, so the basemap is never blurrier than the data
// layer.
func ZoomFor(b BBox, pixelWidth int) int {
	if !b.Valid() || pixelWidth <= 0 {
		return 0
	}
	viewRes := b.Width() / float64(pixelWidth)
	for z := 0; z <= maxZoom; z++ {
		tileRes := worldSize / (tileSize * float64(int(1)<<uint(z)))
		if tileRes <= viewRes {
			return z
		}
	}
	return maxZoom
}

// TilesFor enumerates the tiles covering the box at the given zoom, row by
// row from the northwest corner.
func TilesFor(b BBox, zoom int) []Tile {
	if !b.Valid() {
		return nil
	}
	nw := TileAt(b.MinX, b.MaxY, zoom)
	se := TileAt(b.MaxX, b.MinY, zoom)

	tiles := make([]Tile, 0, (se.X-nw.X+1)*(se.Y-nw.Y+1))
	for ty := nw.Y; ty <= se.Y; ty++ {
		for tx := nw.X; tx <= se.X; tx++ {
			tiles = append(tiles, Tile{Z: zoom, X: tx, Y: ty})
		}
	}
	return tiles
}
