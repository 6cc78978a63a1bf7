package track

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linearTrack builds x(t) = v·t, y(t) = 0 positions for n frames.
func linearTrack(n int, v float64) [][]float64 {
	pos := make([][]float64, n)
	for i := range pos {
		pos[i] = []float64{v * float64(i), 0}
	}
	return pos
}

func TestMSD_LinearTrajectory(t *testing.T) {
	t.Parallel()

	series, err := MSD(linearTrack(10, 1), 5)
	require.NoError(t, err)
	require.Len(t, series.MSD, 5)

	// For x(t) = t every displacement at lag τ is exactly τ, so
	// msd[τ] = τ².
	for i, lag := range series.Lags {
		assert.Equal(t, i+1, lag)
		assert.InDelta(t, float64(lag*lag), series.MSD[i], 1e-12)
		assert.InDelta(t, float64(lag), series.MeanDisp[i][0], 1e-12)
		assert.InDelta(t, 0.0, series.MeanDisp[i][1], 1e-12)
	}
}

func TestMSD_LimitCappedAtTrackLength(t *testing.T) {
	t.Parallel()

	series, err := MSD(linearTrack(4, 1), 25)
	require.NoError(t, err)
	assert.Len(t, series.MSD, 3)

	series, err = MSD(linearTrack(4, 1), 0)
	require.NoError(t, err)
	assert.Len(t, series.MSD, 3, "limit ≤ 0 selects the default, still capped")
}

func TestMSD_NaNGapsSkipped(t *testing.T) {
	t.Parallel()

	pos := linearTrack(6, 1)
	pos[2] = []float64{math.NaN(), math.NaN()}

	series, err := MSD(pos, 2)
	require.NoError(t, err)

	// Lag 1 loses the two displacements touching the gap but the
	// remaining ones are still exactly 1.
	assert.InDelta(t, 1.0, series.MSD[0], 1e-12)
	assert.InDelta(t, 4.0, series.MSD[1], 1e-12)
}

func TestMSD_Idempotent(t *testing.T) {
	t.Parallel()

	pos := [][]float64{
		{0.1, 0.7}, {0.9, 0.2}, {1.4, 1.1}, {2.2, 0.6}, {3.0, 1.9},
	}
	first, err := MSD(pos, 3)
	require.NoError(t, err)
	second, err := MSD(pos, 3)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("MSD not idempotent (-first +second):\n%s", diff)
	}
}

func TestMSD_ThreeAxes(t *testing.T) {
	t.Parallel()

	pos := [][]float64{
		{0, 0, 0},
		{1, 1, 1},
		{2, 2, 2},
	}
	series, err := MSD(pos, 1)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, series.MSD[0], 1e-12)
}

func TestMSD_InputValidation(t *testing.T) {
	t.Parallel()

	var insufficient *InsufficientDataError
	_, err := MSD(linearTrack(1, 1), 5)
	require.ErrorAs(t, err, &insufficient)

	var shapeErr *InputShapeError
	_, err = MSD([][]float64{{1}, {2}}, 5)
	require.ErrorAs(t, err, &shapeErr)

	_, err = MSD([][]float64{{1, 2}, {1, 2, 3}}, 5)
	require.ErrorAs(t, err, &shapeErr)
}
