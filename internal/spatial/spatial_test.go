package spatial

import (
	"math"
	"testing"
)

func TestMercatorRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		lon, lat float64
	}{
		{"origin", 0, 0},
		{"manhattan", -73.99, 40.73},
		{"jfk", -73.78, 40.64},
		{"southern hemisphere", 151.21, -33.87},
		{"date line", 179.9, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := MercatorFromLonLat(tt.lon, tt.lat)
			lon, lat := LonLatFromMercator(x, y)
			if math.Abs(lon-tt.lon) > 1e-9 || math.Abs(lat-tt.lat) > 1e-9 {
				t.Errorf("round trip (%v, %v) -> (%v, %v)", tt.lon, tt.lat, lon, lat)
			}
		})
	}
}

func TestMercatorKnownValues(t *testing.T) {
	x, y := MercatorFromLonLat(0, 0)
	if x != 0 || y != 0 {
		t.Errorf("origin projects to (%v, %v), want (0, 0)", x, y)
	}

	// x is linear in longitude.
	x, _ = MercatorFromLonLat(-74, 40.7)
	if math.Abs(x-(-8237642.32)) > 1 {
		t.Errorf("x(-74) = %v, want about -8237642.32", x)
	}

	// The default NYC extent must contain midtown.
	mx, my := MercatorFromLonLat(-73.985, 40.758)
	if !NYCExtent().Contains(mx, my) {
		t.Errorf("midtown (%v, %v) outside NYC extent %+v", mx, my, NYCExtent())
	}
}

func TestMercatorClampsLatitude(t *testing.T) {
	_, yMax := MercatorFromLonLat(0, MaxMercatorLat)
	_, yOver := MercatorFromLonLat(0, 89.9)
	if yOver != yMax {
		t.Errorf("lat beyond limit not clamped: %v != %v", yOver, yMax)
	}
	if math.IsInf(yOver, 0) || math.IsNaN(yOver) {
		t.Errorf("clamped projection not finite: %v", yOver)
	}
}

func TestBBox(t *testing.T) {
	b := BBox{MinX: 0, MinY: 0, MaxX: 10, MaxY: 20}

	if b.Width() != 10 || b.Height() != 20 {
		t.Errorf("Width/Height = (%v, %v), want (10, 20)", b.Width(), b.Height())
	}
	if !b.Valid() || b.IsZero() {
		t.Error("box should be valid and nonzero")
	}
	if (BBox{}).Valid() || !(BBox{}).IsZero() {
		t.Error("zero box should be invalid and zero")
	}

	// Half-open edges.
	if !b.Contains(0, 0) {
		t.Error("lower-left corner should be inside")
	}
	if b.Contains(10, 20) {
		t.Error("upper-right corner should be outside")
	}

	got := b.Intersect(BBox{MinX: 5, MinY: -5, MaxX: 15, MaxY: 15})
	want := BBox{MinX: 5, MinY: 0, MaxX: 10, MaxY: 15}
	if got != want {
		t.Errorf("Intersect = %+v, want %+v", got, want)
	}
	if b.Intersect(BBox{MinX: 100, MinY: 100, MaxX: 110, MaxY: 110}).Valid() {
		t.Error("disjoint intersection should be invalid")
	}

	cx, cy := b.Center()
	if cx != 5 || cy != 10 {
		t.Errorf("Center = (%v, %v), want (5, 10)", cx, cy)
	}

	p := b.Pad(0.1)
	if p.MinX != -1 || p.MaxX != 11 || p.MinY != -2 || p.MaxY != 22 {
		t.Errorf("Pad(0.1) = %+v", p)
	}
}

func TestTileAt(t *testing.T) {
	// Zoom 0 is a single world tile.
	if got := TileAt(0, 0, 0); got != (Tile{Z: 0, X: 0, Y: 0}) {
		t.Errorf("TileAt(origin, 0) = %+v", got)
	}

	// Zoom 1 quadrants: x grows east, y grows south.
	tests := []struct {
		x, y float64
		want Tile
	}{
		{-1e6, 1e6, Tile{Z: 1, X: 0, Y: 0}},
		{1e6, 1e6, Tile{Z: 1, X: 1, Y: 0}},
		{-1e6, -1e6, Tile{Z: 1, X: 0, Y: 1}},
		{1e6, -1e6, Tile{Z: 1, X: 1, Y: 1}},
	}
	for _, tt := range tests {
		if got := TileAt(tt.x, tt.y, 1); got != tt.want {
			t.Errorf("TileAt(%v, %v, 1) = %+v, want %+v", tt.x, tt.y, got, tt.want)
		}
	}

	// Out-of-world coordinates clamp to the edge tiles.
	if got := TileAt(worldSize, 0, 2); got.X != 3 {
		t.Errorf("east overflow tile X = %d, want 3", got.X)
	}
}

func TestZoomFor(t *testing.T) {
	// The NYC extent at typical plot width needs zoom 12:
	// 32 km over 600 px is ~53 m/px, between zoom 11 (76 m/px)
	// and zoom 12 (38 m/px) tile resolutions.
	if got := ZoomFor(NYCExtent(), 600); got != 12 {
		t.Errorf("ZoomFor(NYC, 600) = %d, want 12", got)
	}

	// More pixels over the same extent needs a deeper zoom.
	z1 := ZoomFor(NYCExtent(), 300)
	z2 := ZoomFor(NYCExtent(), 1200)
	if z2 <= z1 {
		t.Errorf("zoom not increasing with resolution: %d <= %d", z2, z1)
	}

	if got := ZoomFor(BBox{}, 600); got != 0 {
		t.Errorf("ZoomFor(invalid) = %d, want 0", got)
	}
}

func TestTilesFor(t *testing.T) {
	tiles := TilesFor(NYCExtent(), 12)
	if len(tiles) == 0 {
		t.Fatal("no tiles for NYC extent")
	}
	if len(tiles) > 25 {
		t.Errorf("NYC extent at zoom 12 covered by %d tiles, expected a small grid", len(tiles))
	}

	// The tile under the extent's center must be in the cover.
	cx, cy := NYCExtent().Center()
	center := TileAt(cx, cy, 12)
	found := false
	for _, tile := range tiles {
		if tile == center {
			found = true
		}
		if tile.Z != 12 {
			t.Fatalf("tile %+v has wrong zoom", tile)
		}
	}
	if !found {
		t.Errorf("center tile %+v not in cover", center)
	}

	if TilesFor(BBox{}, 12) != nil {
		t.Error("invalid box should produce no tiles")
	}
}

func TestTileURL(t *testing.T) {
	tile := Tile{Z: 12, X: 1205, Y: 1539}
	got := tile.URL("https://tile.openstreetmap.org/{z}/{x}/{y}.png")
	want := "https://tile.openstreetmap.org/12/1205/1539.png"
	if got != want {
		t.Errorf("URL = %q, want %q", got, want)
	}
}

func TestHaversine(t *testing.T) {
	// One degree of latitude is ~111.19 km on the mean-radius sphere.
	d := HaversineDistance(40, -74, 41, -74)
	if math.Abs(d-111195) > 100 {
		t.Errorf("1 degree latitude = %v m, want ~111195", d)
	}

	if HaversineDistance(40.7, -74, 40.7, -74) != 0 {
		t.Error("zero distance expected for identical points")
	}

	if km := HaversineKm(40, -74, 41, -74); math.Abs(km-d/1000) > 1e-9 {
		t.Errorf("HaversineKm = %v, want %v", km, d/1000)
	}
}
