package stats

// Histogram divides [Min(values), Max(values)] into bins equal-width buckets
// and counts the values falling in each. It returns the bin edges (bins+1
// entries) and the per-bin counts. Values landing on the upper edge go into
// the last bin.
func Histogram(values []float64, bins int) (edges []float64, counts []int) {
	if bins < 1 {
		bins = 1
	}
	edges = make([]float64, bins+1)
	counts = make([]int, bins)
	if len(values) == 0 {
		return edges, counts
	}

	lo, hi := Min(values), Max(values)
	width := (hi - lo) / float64(bins)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[bins] = hi

	if width == 0 {
		counts[0] = len(values)
		return edges, counts
	}

	for _, v := range values {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		counts[i]++
	}
	return edges, counts
}

// EqualizeCDF builds a histogram-equalization lookup over values: the
// returned function maps an input to (0, 1] via the empirical cumulative
// distribution, linearly interpolated between the upper bin edges. Inputs
// inside or below the first bin map to that bin's share of the mass; inputs
// at or above the maximum map to 1.
func EqualizeCDF(values []float64, bins int) func(float64) float64 {
	if len(values) == 0 {
		return func(float64) float64 { return 0 }
	}

	edges, counts := Histogram(values, bins)
	lo, hi := edges[0], edges[len(edges)-1]
	if hi == lo {
		return func(x float64) float64 {
			if x < lo {
				return 0
			}
			return 1
		}
	}

	// Interpolation knots are the upper bin edges, as in the reference
	// equalization: the lowest observed value lands on the first bin's
	// cumulative share, never on zero.
	knots := edges[1:]
	cdf := make([]float64, len(counts))
	total := 0
	for i, c := range counts {
		total += c
		cdf[i] = float64(total)
	}
	for i := range cdf {
		cdf[i] /= float64(total)
	}

	return func(x float64) float64 {
		if x <= knots[0] {
			return cdf[0]
		}
		if x >= knots[len(knots)-1] {
			return 1
		}
		// Linear scan: bins is small (256 by default).
		for i := 1; i < len(knots); i++ {
			if x <= knots[i] {
				t := (x - knots[i-1]) / (knots[i] - knots[i-1])
				return cdf[i-1] + t*(cdf[i]-cdf[i-1])
			}
		}
		return 1
	}
}
