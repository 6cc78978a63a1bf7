package track

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticTracks builds a tracks table with two ballistic particles and
// one single-detection track that is too short to analyze.
func syntheticTracks() *Tracks {
	tracks := &Tracks{Dims: Dims2D}
	addRow := func(id, frame int, y, x float64, length int) {
		tracks.Rows = append(tracks.Rows, TrackedDetection{
			Detection: Detection{Frame: frame, Y: y, X: x, Z: math.NaN(), Visible: true},
			TrackID:   id,
			Length:    length,
		})
	}
	for f := 0; f < 12; f++ {
		addRow(1, f, 0, float64(f), 12)            // directed, v = 1
		addRow(2, f, 20, 20+0.5*float64(f), 12)    // directed, v = 0.5
	}
	addRow(3, 0, 40, 40, 1) // too short for MSD
	return tracks
}

func TestAnalyzeTrack_Directed(t *testing.T) {
	t.Parallel()

	cfg := DefaultAnalysisConfig()
	cfg.Fit.Delta = 1

	a := AnalyzeTrack(syntheticTracks(), 1, cfg)
	require.NoError(t, a.Err)
	assert.Equal(t, 12, a.Length)
	assert.InDelta(t, 2.0, a.Fit.Alpha, 0.2)
	assert.Equal(t, MotionDirected, a.Class)
}

func TestFitTracks_PerTrackIsolation(t *testing.T) {
	t.Parallel()

	cfg := DefaultAnalysisConfig()
	cfg.Fit.Delta = 1

	analyses, err := FitTracks(context.Background(), syntheticTracks(), cfg, nil)
	require.NoError(t, err)
	require.Len(t, analyses, 3)

	assert.NoError(t, analyses[0].Err)
	assert.NoError(t, analyses[1].Err)

	// The one-detection track fails alone without poisoning the batch.
	var insufficient *InsufficientDataError
	require.ErrorAs(t, analyses[2].Err, &insufficient)
	assert.Nil(t, analyses[2].Fit)
}

func TestFitTracks_ProgressAndOrdering(t *testing.T) {
	t.Parallel()

	cfg := DefaultAnalysisConfig()
	cfg.Fit.Delta = 1
	cfg.Workers = 1

	var done int
	progress := func(d, total int) {
		done = d
		assert.Equal(t, 3, total)
	}
	analyses, err := FitTracks(context.Background(), syntheticTracks(), cfg, progress)
	require.NoError(t, err)
	assert.Equal(t, 3, done)
	assert.Equal(t, []int{1, 2, 3}, []int{analyses[0].TrackID, analyses[1].TrackID, analyses[2].TrackID})
}

func TestFitTracks_Cancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FitTracks(ctx, syntheticTracks(), DefaultAnalysisConfig(), nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFitTracks_NoTracks(t *testing.T) {
	t.Parallel()

	var insufficient *InsufficientDataError
	_, err := FitTracks(context.Background(), &Tracks{Dims: Dims2D}, DefaultAnalysisConfig(), nil)
	require.ErrorAs(t, err, &insufficient)
}

func TestComputeRunStatistics(t *testing.T) {
	t.Parallel()

	cfg := DefaultAnalysisConfig()
	cfg.Fit.Delta = 1
	tracks := syntheticTracks()
	analyses, err := FitTracks(context.Background(), tracks, cfg, nil)
	require.NoError(t, err)

	stats := ComputeRunStatistics(tracks, analyses)
	assert.Equal(t, 3, stats.TrackCount)
	assert.Equal(t, len(tracks.Rows), stats.DetectionCount)
	assert.Equal(t, 1, stats.FailedFits)
	assert.Equal(t, 12, stats.MaxLength)
	assert.InDelta(t, (12+12+1)/3.0, stats.AvgLength, 1e-12)
	assert.Equal(t, 2, stats.ClassCounts[MotionDirected])
}
