package render

import (
	"fmt"
	"math"

	"github.com/jengzang/taxi-explorer-go/internal/stats"
)

// A Normalizer maps raw cell counts to intensities in [0, 1]. Zero-count
// cells always map to exactly 0 so shading can keep them transparent.
type Normalizer func(*Grid) []float64

const eqHistBins = 256

// NormalizerByName resolves one of "linear", "log", "eqhist".
func NormalizerByName(name string) (Normalizer, error) {
	switch name {
	case "linear":
		return NormalizeLinear, nil
	case "log":
		return NormalizeLog, nil
	case "eqhist":
		return NormalizeEqHist, nil
	}
	return nil, fmt.Errorf("unknown normalizer %q", name)
}

// NormalizeLinear scales counts by the grid peak.
func NormalizeLinear(g *Grid) []float64 {
	out := make([]float64, len(g.Counts))
	peak := g.Peak()
	if peak == 0 {
		return out
	}
	scale := 1 / float64(peak)
	for i, c := range g.Counts {
		out[i] = float64(c) * scale
	}
	return out
}

// NormalizeLog scales log1p(count) by log1p(peak), compressing the head of
// heavy-tailed distributions.
func NormalizeLog(g *Grid) []float64 {
	out := make([]float64, len(g.Counts))
	peak := g.Peak()
	if peak == 0 {
		return out
	}
	scale := 1 / math.Log1p(float64(peak))
	for i, c := range g.Counts {
		if c > 0 {
			out[i] = math.Log1p(float64(c)) * scale
		}
	}
	return out
}

// NormalizeEqHist equalizes the histogram of the nonzero counts, so sparse
// outer regions and saturated hotspots both keep visible structure. This is
// the pipeline default.
func NormalizeEqHist(g *Grid) []float64 {
	out := make([]float64, len(g.Counts))
	nonzero := make([]float64, 0, len(g.Counts))
	for _, c := range g.Counts {
		if c > 0 {
			nonzero = append(nonzero, float64(c))
		}
	}
	if len(nonzero) == 0 {
		return out
	}

	cdf := stats.EqualizeCDF(nonzero, eqHistBins)
	for i, c := range g.Counts {
		if c > 0 {
			out[i] = cdf(float64(c))
		}
	}
	return out
}
