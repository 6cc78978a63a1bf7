package track

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Histogram bins a 1-D numeric sequence at a fixed binsize. Edges start
// at min(data) and advance by binsize until they cover max(data)+binsize,
// so no sample is ever lost to the final bin boundary. NaN samples are
// dropped before range computation when more than one sample exists. A
// constant sequence (min == max) has its span forced to 1 before binning
// rather than failing.
//
// Both the linking-quality views and the statistics layer bin through
// this routine so their bucket semantics stay identical.
func Histogram(data []float64, binsize float64) (counts, edges []float64, err error) {
	if binsize <= 0 {
		return nil, nil, fmt.Errorf("histogram: binsize must be positive, got %v", binsize)
	}
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("histogram: empty data")
	}

	values := make([]float64, 0, len(data))
	if len(data) > 1 {
		for _, v := range data {
			if !math.IsNaN(v) {
				values = append(values, v)
			}
		}
	} else {
		values = append(values, data[0])
	}
	if len(values) == 0 {
		return nil, nil, fmt.Errorf("histogram: all %d samples are NaN", len(data))
	}

	sort.Float64s(values)
	vmin, vmax := values[0], values[len(values)-1]
	if math.IsNaN(vmin) || math.IsNaN(vmax) {
		return nil, nil, fmt.Errorf("histogram: range is NaN (min=%v max=%v binsize=%v)", vmin, vmax, binsize)
	}
	if vmin == vmax {
		vmax = vmin + 1
	}

	for e := vmin; ; e += binsize {
		edges = append(edges, e)
		if e >= vmax+binsize {
			break
		}
	}

	counts = stat.Histogram(nil, edges, values, nil)
	return counts, edges, nil
}
