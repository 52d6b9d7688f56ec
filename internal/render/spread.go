package render

// Spread dilates every nonzero cell over a square neighborhood, taking the
// maximum count. Single points become visible blobs in zoomed-in, sparse
// views.
func Spread(g *Grid, radius int) *Grid {
	if radius <= 0 {
		return g
	}
	out := NewGrid(g.Width, g.Height)
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			var peak uint32
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					if c := g.At(col+dx, row+dy); c > peak {
						peak = c
					}
				}
			}
			out.Counts[row*g.Width+col] = peak
		}
	}
	return out
}

// DynSpread spreads with growing radius until the nonzero fraction of the
// grid reaches threshold or the radius cap is hit. Dense views pass through
// untouched.
func DynSpread(g *Grid, maxRadius int, threshold float64) *Grid {
	out := g
	for radius := 1; radius <= maxRadius; radius++ {
		if out.NonzeroFraction() >= threshold {
			break
		}
		out = Spread(g, radius)
	}
	return out
}
