// Package deviation measures how far each merged point moved between two
// exports and summarises how many moved further than a threshold.
package deviation

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/pointdiff/internal/monitoring"
	"github.com/banshee-data/pointdiff/internal/pointcloud"
)

var (
	// ErrDivisionUndefined is returned when a summary is requested over zero
	// records; the ratios have no value.
	ErrDivisionUndefined = errors.New("summary undefined for zero points")
	// ErrInvalidThreshold is returned for a negative or non-finite threshold.
	ErrInvalidThreshold = errors.New("invalid threshold")
)

// Record is a merged point with its per-axis absolute differences.
type Record struct {
	Key     pointcloud.Key
	First   pointcloud.Point
	Second  pointcloud.Point
	Diff    pointcloud.Point // |First - Second| per axis
	Exceeds bool
}

// MaxDiff returns the largest of the three axis differences.
func (r Record) MaxDiff() float64 {
	return math.Max(r.Diff.X, math.Max(r.Diff.Y, r.Diff.Z))
}

// Summary holds the run's headline figures.
type Summary struct {
	Threshold           float64
	Total               int
	Exceeding           int
	ExceedingPercentage float64 // 0..100
	AgreementScore      float64 // 1 - Exceeding/Total
}

// Result is the full output of Analyze.
type Result struct {
	Threshold float64
	Records   []Record
	Summary   Summary
	Stats     Stats
}

// Exceeds reports whether any axis difference is strictly greater than
// threshold. A difference equal to the threshold is within tolerance.
func Exceeds(diff pointcloud.Point, threshold float64) bool {
	return diff.X > threshold || diff.Y > threshold || diff.Z > threshold
}

// ValidateThreshold rejects negative, NaN and infinite thresholds.
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold < 0 {
		return fmt.Errorf("%w: %v (must be a finite number >= 0)", ErrInvalidThreshold, threshold)
	}
	return nil
}

// Evaluate computes the per-axis differences for each pair and flags those
// exceeding threshold.
func Evaluate(pairs []pointcloud.Pair, threshold float64) []Record {
	records := make([]Record, len(pairs))
	for i, p := range pairs {
		d := p.First.Sub(p.Second)
		diff := pointcloud.Point{X: math.Abs(d.X), Y: math.Abs(d.Y), Z: math.Abs(d.Z)}
		records[i] = Record{
			Key:     p.Key,
			First:   p.First,
			Second:  p.Second,
			Diff:    diff,
			Exceeds: Exceeds(diff, threshold),
		}
	}
	return records
}

// Summarize counts records and derives the exceedance percentage and the
// agreement score. It fails with ErrDivisionUndefined for zero records.
func Summarize(records []Record, threshold float64) (Summary, error) {
	s := Summary{Threshold: threshold, Total: len(records)}
	if s.Total == 0 {
		return s, ErrDivisionUndefined
	}
	for _, r := range records {
		if r.Exceeds {
			s.Exceeding++
		}
	}
	frac := float64(s.Exceeding) / float64(s.Total)
	s.ExceedingPercentage = 100 * frac
	s.AgreementScore = 1 - frac
	return s, nil
}

// Analyze evaluates pairs against threshold and summarises the result.
func Analyze(pairs []pointcloud.Pair, threshold float64) (*Result, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}

	records := Evaluate(pairs, threshold)
	summary, err := Summarize(records, threshold)
	if err != nil {
		return nil, err
	}

	monitoring.Debugf("threshold %g: %d of %d points exceed", threshold, summary.Exceeding, summary.Total)
	return &Result{
		Threshold: threshold,
		Records:   records,
		Summary:   summary,
		Stats:     ComputeStats(records),
	}, nil
}

// Partition splits records into those within threshold and those exceeding
// it, preserving order.
func (r *Result) Partition() (below, above []Record) {
	for _, rec := range r.Records {
		if rec.Exceeds {
			above = append(above, rec)
		} else {
			below = append(below, rec)
		}
	}
	return below, above
}
