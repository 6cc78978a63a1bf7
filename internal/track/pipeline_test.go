package track

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPipeline_EndToEnd drives the full measure → link → fit chain over
// a synthetic stack: two single-pixel particles, one drifting right by
// one pixel per frame and one stationary.
func TestPipeline_EndToEnd(t *testing.T) {
	t.Parallel()

	const frames = 12
	images := NewArray(frames, 32, 32)
	masks := NewIntArray(frames, 32, 32)
	for f := 0; f < frames; f++ {
		images.Frame(f).Set(5, 5+f, 200)
		masks.Frame(f).Set(5, 5+f, 1)
		images.Frame(f).Set(20, 20, 150)
		masks.Frame(f).Set(20, 20, 2)
	}

	table, err := MeasureStack(context.Background(), images, masks, nil)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2*frames)

	tracks, err := Link(table.FilterVisible(), DefaultLinkerConfig())
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, tracks.TrackIDs())
	for _, r := range tracks.Rows {
		assert.Equal(t, frames, r.Length)
	}

	cfg := DefaultAnalysisConfig()
	cfg.Fit.Delta = 1
	analyses, err := FitTracks(context.Background(), tracks, cfg, nil)
	require.NoError(t, err)
	require.Len(t, analyses, 2)

	// The drifting particle is ballistic.
	require.NoError(t, analyses[0].Err)
	assert.InDelta(t, 2.0, analyses[0].Fit.Alpha, 0.2)
	assert.Equal(t, MotionDirected, analyses[0].Class)

	// Round-trip the tracks table through the persisted CSV format.
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tracks))
	restored, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, restored.Rows, len(tracks.Rows))
	for i := range tracks.Rows {
		assert.Equal(t, tracks.Rows[i].TrackID, restored.Rows[i].TrackID)
		assert.Equal(t, tracks.Rows[i].Frame, restored.Rows[i].Frame)
		assert.InDelta(t, tracks.Rows[i].Y, restored.Rows[i].Y, 1e-9)
		assert.InDelta(t, tracks.Rows[i].X, restored.Rows[i].X, 1e-9)
	}
}
