package track

import (
	"fmt"
	"math"
)

// MSDSeries is the time-averaged mean-squared-displacement curve of one
// track, indexed by lag 1..len(MSD). Per-axis mean displacement and mean
// squared displacement are kept alongside the scalar curve.
type MSDSeries struct {
	Lags       []int
	MeanDisp   [][]float64 // [lag][axis] mean displacement
	MeanSquare [][]float64 // [lag][axis] mean squared displacement
	MSD        []float64   // per-lag sum over axes of MeanSquare
}

// DefaultMSDLimit is the default maximum lag.
const DefaultMSDLimit = 25

// MSD computes the time-averaged mean-squared displacement of an ordered
// position matrix (one row per frame, 2 or 3 position columns). Gaps must
// be NaN rows rather than dropped rows so lag alignment is preserved;
// NaN displacements are skipped in the per-lag means. limit ≤ 0 selects
// DefaultMSDLimit, and the effective limit is capped at len(pos)-1.
//
// MSD is a pure function: repeated calls on the same input produce
// identical output.
func MSD(pos [][]float64, limit int) (*MSDSeries, error) {
	if len(pos) < 2 {
		return nil, &InsufficientDataError{Op: "msd", Detail: "position matrix needs at least 2 rows"}
	}
	nAxes := len(pos[0])
	if nAxes != 2 && nAxes != 3 {
		return nil, &InputShapeError{Op: "msd", Detail: fmt.Sprintf("position matrix has %d columns, want 2 or 3", nAxes)}
	}
	for _, row := range pos {
		if len(row) != nAxes {
			return nil, &InputShapeError{Op: "msd", Detail: "ragged position matrix"}
		}
	}

	if limit <= 0 {
		limit = DefaultMSDLimit
	}
	if max := len(pos) - 1; limit > max {
		limit = max
	}

	series := &MSDSeries{
		Lags:       make([]int, limit),
		MeanDisp:   make([][]float64, limit),
		MeanSquare: make([][]float64, limit),
		MSD:        make([]float64, limit),
	}
	for lag := 1; lag <= limit; lag++ {
		mean := make([]float64, nAxes)
		meanSq := make([]float64, nAxes)
		for axis := 0; axis < nAxes; axis++ {
			sum, sumSq := 0.0, 0.0
			n := 0
			for i := lag; i < len(pos); i++ {
				d := pos[i][axis] - pos[i-lag][axis]
				if math.IsNaN(d) {
					continue
				}
				sum += d
				sumSq += d * d
				n++
			}
			if n == 0 {
				mean[axis] = math.NaN()
				meanSq[axis] = math.NaN()
			} else {
				mean[axis] = sum / float64(n)
				meanSq[axis] = sumSq / float64(n)
			}
		}
		total := 0.0
		for _, v := range meanSq {
			total += v
		}
		series.Lags[lag-1] = lag
		series.MeanDisp[lag-1] = mean
		series.MeanSquare[lag-1] = meanSq
		series.MSD[lag-1] = total
	}
	return series, nil
}
