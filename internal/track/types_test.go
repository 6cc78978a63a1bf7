package track

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_FilterVisible(t *testing.T) {
	t.Parallel()

	table := &Table{Dims: Dims2D, Rows: []Detection{
		{Frame: 0, Y: 1, X: 1, Visible: true},
		{Frame: 0, Y: 2, X: 2, Visible: false},
		{Frame: 1, Y: 3, X: 3, Visible: true},
	}}

	filtered := table.FilterVisible()
	require.Len(t, filtered.Rows, 2)
	assert.Equal(t, 1.0, filtered.Rows[0].Y)
	assert.Equal(t, 3.0, filtered.Rows[1].Y)
	assert.Len(t, table.Rows, 3, "source table must not be mutated")
}

func TestTracks_PositionsFillsGapsWithNaN(t *testing.T) {
	t.Parallel()

	tracks := &Tracks{Dims: Dims2D, Rows: []TrackedDetection{
		{Detection: Detection{Frame: 2, Y: 1, X: 10}, TrackID: 1},
		{Detection: Detection{Frame: 4, Y: 1, X: 12}, TrackID: 1},
	}}

	pos := tracks.Positions(1)
	require.Len(t, pos, 3)
	assert.Equal(t, []float64{10, 1}, pos[0])
	assert.True(t, math.IsNaN(pos[1][0]))
	assert.True(t, math.IsNaN(pos[1][1]))
	assert.Equal(t, []float64{12, 1}, pos[2])
}

func TestTracks_PositionsUnknownTrack(t *testing.T) {
	t.Parallel()

	tracks := &Tracks{Dims: Dims2D}
	assert.Nil(t, tracks.Positions(9))
}

func TestArray_FrameView(t *testing.T) {
	t.Parallel()

	stack := NewArray(2, 3, 3)
	stack.Frame(1).Set(2, 2, 9)
	assert.Equal(t, 9.0, stack.Data[2*9-1+0], "frame views share backing storage")
	assert.Equal(t, 9.0, stack.Frame(1).At(2, 2))
}
