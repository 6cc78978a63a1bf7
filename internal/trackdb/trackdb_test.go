package trackdb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeroth-me/particletrack/internal/track"
)

func openTestDB(t *testing.T) *TrackDB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRun() (*track.Tracks, []*track.TrackAnalysis) {
	tracks := &track.Tracks{
		Dims: track.Dims2D,
		Rows: []track.TrackedDetection{
			{Detection: track.Detection{Frame: 0, Y: 1, X: 2, Z: math.NaN(), Area: 4, MeanIntensity: 10}, TrackID: 1, Length: 2},
			{Detection: track.Detection{Frame: 1, Y: 1.5, X: 2.5, Z: math.NaN(), Area: 4, MeanIntensity: 11}, TrackID: 1, Length: 2},
			{Detection: track.Detection{Frame: 0, Y: 9, X: 9, Z: math.NaN(), Area: 1, MeanIntensity: 5}, TrackID: 2, Length: 1},
		},
	}
	analyses := []*track.TrackAnalysis{
		{
			TrackID: 1, Length: 2,
			Fit:   &track.FitResult{DiffusionCoefficient: 0.5, Alpha: 1.1},
			Class: track.MotionDiffusive,
		},
		{
			TrackID: 2, Length: 1,
			Err: &track.InsufficientDataError{Op: "msd", Detail: "too short"},
		},
	}
	return tracks, analyses
}

func TestRunRoundTrip(t *testing.T) {
	db := openTestDB(t)

	params := RunParams{SearchRange: 2, Memory: 1, AdaptiveStop: 0.95, Delta: 3.8, MSDLimit: 25, Notes: "test run"}
	id, err := db.InsertRun(params)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	run, err := db.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)
	assert.Equal(t, params, run.Params)
	assert.False(t, run.Created.IsZero())
}

func TestSaveAndLoadResults(t *testing.T) {
	db := openTestDB(t)

	id, err := db.InsertRun(RunParams{SearchRange: 2, AdaptiveStop: 0.95, Delta: 3.8, MSDLimit: 25})
	require.NoError(t, err)

	tracks, analyses := sampleRun()
	require.NoError(t, db.SaveResults(id, tracks, analyses))

	results, err := db.GetTrackResults(id)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 1, results[0].TrackID)
	assert.InDelta(t, 1.1, results[0].Alpha, 1e-12)
	assert.InDelta(t, 0.5, results[0].DiffusionCoefficient, 1e-12)
	assert.Equal(t, track.MotionDiffusive, results[0].MotionClass)
	assert.Empty(t, results[0].FitError)

	assert.Equal(t, 2, results[1].TrackID)
	assert.Contains(t, results[1].FitError, "insufficient data")

	points, err := db.GetTrackPoints(id, 1)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 0, points[0].Frame)
	assert.InDelta(t, 2.5, points[1].X, 1e-12)
	assert.True(t, math.IsNaN(points[0].Z))
}

func TestGetRun_Missing(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetRun("no-such-run")
	require.Error(t, err)
}
