package deviation

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AxisStats describes the distribution of one axis' absolute differences.
type AxisStats struct {
	Mean   float64
	StdDev float64
	Max    float64
}

// Stats describes the deviation distribution of a run.
type Stats struct {
	X, Y, Z AxisStats
	// MeanMax and P95Max describe the largest per-axis difference of each
	// point, the quantity the threshold is compared against.
	MeanMax float64
	P95Max  float64
}

// ComputeStats returns zero Stats for an empty slice.
func ComputeStats(records []Record) Stats {
	if len(records) == 0 {
		return Stats{}
	}

	xs := make([]float64, len(records))
	ys := make([]float64, len(records))
	zs := make([]float64, len(records))
	maxes := make([]float64, len(records))
	for i, r := range records {
		xs[i], ys[i], zs[i] = r.Diff.X, r.Diff.Y, r.Diff.Z
		maxes[i] = r.MaxDiff()
	}

	sort.Float64s(maxes)
	return Stats{
		X:       axisStats(xs),
		Y:       axisStats(ys),
		Z:       axisStats(zs),
		MeanMax: stat.Mean(maxes, nil),
		P95Max:  stat.Quantile(0.95, stat.Empirical, maxes, nil),
	}
}

func axisStats(v []float64) AxisStats {
	a := AxisStats{
		Mean: stat.Mean(v, nil),
		Max:  floats.Max(v),
	}
	// The sample standard deviation needs two observations.
	if len(v) > 1 {
		a.StdDev = stat.StdDev(v, nil)
	}
	return a
}
