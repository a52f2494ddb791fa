package deviation

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pointdiff/internal/pointcloud"
)

func scenarioPairs() []pointcloud.Pair {
	return []pointcloud.Pair{{
		Key:    pointcloud.Key{PixelX: "1", PixelY: "1"},
		First:  pointcloud.Point{X: 0, Y: 0, Z: 0},
		Second: pointcloud.Point{X: 0, Y: 0, Z: 2},
	}}
}

func TestAnalyze_ScenarioExceeds(t *testing.T) {
	res, err := Analyze(scenarioPairs(), 1.0)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	assert.Equal(t, pointcloud.Point{X: 0, Y: 0, Z: 2}, rec.Diff)
	assert.True(t, rec.Exceeds)
	assert.Equal(t, Summary{Threshold: 1, Total: 1, Exceeding: 1, ExceedingPercentage: 100, AgreementScore: 0}, res.Summary)
}

func TestAnalyze_ScenarioWithin(t *testing.T) {
	res, err := Analyze(scenarioPairs(), 3.0)
	require.NoError(t, err)

	assert.False(t, res.Records[0].Exceeds)
	assert.Equal(t, 0, res.Summary.Exceeding)
	assert.Equal(t, 0.0, res.Summary.ExceedingPercentage)
	assert.Equal(t, 1.0, res.Summary.AgreementScore)
}

func TestExceeds_StrictBoundary(t *testing.T) {
	tests := []struct {
		name string
		diff pointcloud.Point
		want bool
	}{
		{"all equal to threshold", pointcloud.Point{X: 1, Y: 1, Z: 1}, false},
		{"x just above", pointcloud.Point{X: math.Nextafter(1, 2)}, true},
		{"y above", pointcloud.Point{Y: 1.5}, true},
		{"z above", pointcloud.Point{Z: 1.5}, true},
		{"all below", pointcloud.Point{X: 0.9, Y: 0.5, Z: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Exceeds(tt.diff, 1); got != tt.want {
				t.Errorf("Exceeds(%+v, 1) = %v, want %v", tt.diff, got, tt.want)
			}
		})
	}
}

func TestEvaluate_AbsoluteDifferences(t *testing.T) {
	recs := Evaluate([]pointcloud.Pair{{
		First:  pointcloud.Point{X: 1, Y: -2, Z: 3},
		Second: pointcloud.Point{X: 4, Y: 2, Z: 2.5},
	}}, 3.5)

	require.Len(t, recs, 1)
	assert.Equal(t, pointcloud.Point{X: 3, Y: 4, Z: 0.5}, recs[0].Diff)
	assert.Equal(t, 4.0, recs[0].MaxDiff())
	assert.True(t, recs[0].Exceeds)
}

func TestSummarize_ZeroTotal(t *testing.T) {
	_, err := Summarize(nil, 1)
	assert.True(t, errors.Is(err, ErrDivisionUndefined))

	_, err = Analyze([]pointcloud.Pair{}, 1)
	assert.True(t, errors.Is(err, ErrDivisionUndefined))
}

func TestAnalyze_InvalidThreshold(t *testing.T) {
	for _, th := range []float64{-0.1, math.NaN(), math.Inf(1)} {
		_, err := Analyze(scenarioPairs(), th)
		assert.Truef(t, errors.Is(err, ErrInvalidThreshold), "threshold %v: error %v", th, err)
	}
	_, err := Analyze(scenarioPairs(), 0)
	assert.NoError(t, err, "zero threshold is valid")
}

// Property: lowering the threshold never lowers the exceedance percentage.
func TestExceedingPercentage_Monotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pairs := make([]pointcloud.Pair, 200)
	for i := range pairs {
		pairs[i] = pointcloud.Pair{
			First:  pointcloud.Point{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()},
			Second: pointcloud.Point{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()},
		}
	}

	prev := -1.0
	for th := 1.0; th >= 0; th -= 0.05 {
		res, err := Analyze(pairs, math.Max(th, 0))
		require.NoError(t, err)
		if res.Summary.ExceedingPercentage < prev {
			t.Fatalf("percentage dropped from %v to %v at threshold %v", prev, res.Summary.ExceedingPercentage, th)
		}
		prev = res.Summary.ExceedingPercentage
	}
}

func TestPartition(t *testing.T) {
	pairs := []pointcloud.Pair{
		{Key: pointcloud.Key{PixelX: "a"}, Second: pointcloud.Point{X: 5}},
		{Key: pointcloud.Key{PixelX: "b"}},
		{Key: pointcloud.Key{PixelX: "c"}, Second: pointcloud.Point{Z: 5}},
		{Key: pointcloud.Key{PixelX: "d"}, Second: pointcloud.Point{Y: 0.5}},
	}
	res, err := Analyze(pairs, 1)
	require.NoError(t, err)

	below, above := res.Partition()
	keys := func(rs []Record) (out []string) {
		for _, r := range rs {
			out = append(out, r.Key.PixelX)
		}
		return out
	}
	assert.Equal(t, []string{"b", "d"}, keys(below))
	assert.Equal(t, []string{"a", "c"}, keys(above))
	assert.InDelta(t, 50.0, res.Summary.ExceedingPercentage, 1e-12)
	assert.InDelta(t, 0.5, res.Summary.AgreementScore, 1e-12)
}
