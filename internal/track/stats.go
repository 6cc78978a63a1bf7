package track

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// RunStatistics holds aggregate statistics for one linking-and-fitting
// run, for reporting and the run store.
type RunStatistics struct {
	TrackCount     int     `json:"track_count"`
	DetectionCount int     `json:"detection_count"`
	FailedFits     int     `json:"failed_fits"`
	AvgLength      float64 `json:"avg_track_length"`
	MedianLength   float64 `json:"median_track_length"`
	MaxLength      int     `json:"max_track_length"`

	// Motion regime distribution over successfully fitted tracks.
	ClassCounts map[MotionClass]int `json:"class_counts"`

	AlphaMean  float64 `json:"alpha_mean"`
	AlphaStdev float64 `json:"alpha_stdev"`
	DMean      float64 `json:"diffusion_coefficient_mean"`
}

// ComputeRunStatistics aggregates per-track analyses into run-level
// statistics. Failed fits count toward track totals but not toward the
// α/D distributions.
func ComputeRunStatistics(tracks *Tracks, analyses []*TrackAnalysis) *RunStatistics {
	stats := &RunStatistics{
		ClassCounts: make(map[MotionClass]int),
	}
	if tracks != nil {
		stats.DetectionCount = len(tracks.Rows)
	}

	var lengths []float64
	var alphas []float64
	var ds []float64
	for _, a := range analyses {
		stats.TrackCount++
		lengths = append(lengths, float64(a.Length))
		if a.Length > stats.MaxLength {
			stats.MaxLength = a.Length
		}
		if a.Err != nil {
			stats.FailedFits++
			continue
		}
		stats.ClassCounts[a.Class]++
		alphas = append(alphas, a.Fit.Alpha)
		ds = append(ds, a.Fit.DiffusionCoefficient)
	}

	if len(lengths) > 0 {
		stats.AvgLength = stat.Mean(lengths, nil)
		sort.Float64s(lengths)
		stats.MedianLength = stat.Quantile(0.5, stat.Empirical, lengths, nil)
	}
	if len(alphas) > 0 {
		stats.AlphaMean = stat.Mean(alphas, nil)
		stats.DMean = stat.Mean(ds, nil)
	}
	if len(alphas) > 1 {
		stats.AlphaStdev = stat.StdDev(alphas, nil)
	}
	return stats
}
