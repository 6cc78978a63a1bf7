package track

import "math"

// Dims tags whether a dataset carries 2-D (y, x) or 3-D (z, y, x)
// positions. It is selected once per dataset, not per call.
type Dims int

const (
	Dims2D Dims = 2
	Dims3D Dims = 3
)

// Array is a dense row-major float array with an explicit shape.
// Intensity stacks arrive as [T, H, W] (or [H, W] for a single frame).
type Array struct {
	Shape []int
	Data  []float64
}

// IntArray is a dense row-major integer array, used for label masks.
type IntArray struct {
	Shape []int
	Data  []int
}

// NewArray allocates a zero-filled array with the given shape.
func NewArray(shape ...int) *Array {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return &Array{Shape: append([]int(nil), shape...), Data: make([]float64, n)}
}

// NewIntArray allocates a zero-filled integer array with the given shape.
func NewIntArray(shape ...int) *IntArray {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return &IntArray{Shape: append([]int(nil), shape...), Data: make([]int, n)}
}

// NDim returns the number of axes.
func (a *Array) NDim() int { return len(a.Shape) }

// At returns the element at (y, x) of a 2-D array.
func (a *Array) At(y, x int) float64 { return a.Data[y*a.Shape[1]+x] }

// Set writes the element at (y, x) of a 2-D array.
func (a *Array) Set(y, x int, v float64) { a.Data[y*a.Shape[1]+x] = v }

// Frame returns a 2-D view of frame i of a [T, H, W] stack.
// The returned array shares backing storage with the stack.
func (a *Array) Frame(i int) *Array {
	h, w := a.Shape[1], a.Shape[2]
	return &Array{Shape: []int{h, w}, Data: a.Data[i*h*w : (i+1)*h*w]}
}

// NDim returns the number of axes.
func (m *IntArray) NDim() int { return len(m.Shape) }

// At returns the element at (y, x) of a 2-D mask.
func (m *IntArray) At(y, x int) int { return m.Data[y*m.Shape[1]+x] }

// Set writes the element at (y, x) of a 2-D mask.
func (m *IntArray) Set(y, x, v int) { m.Data[y*m.Shape[1]+x] = v }

// Frame returns a 2-D view of frame i of a [T, H, W] mask stack.
func (m *IntArray) Frame(i int) *IntArray {
	h, w := m.Shape[1], m.Shape[2]
	return &IntArray{Shape: []int{h, w}, Data: m.Data[i*h*w : (i+1)*h*w]}
}

// BBox is a component bounding box in pixel coordinates,
// min-inclusive and max-exclusive.
type BBox struct {
	MinY, MinX int
	MaxY, MaxX int
}

// Detection is one measured object instance in a single frame.
// Detections are created by MeasureRegions and immutable thereafter.
type Detection struct {
	Frame int
	Label int // component id within the frame's mask, not unique across frames

	// Centroid. Z is NaN for 2-D data.
	Z, Y, X float64

	Area               float64
	Radius             float64 // sqrt(Area/pi), always derived from Area
	EquivalentDiameter float64
	Perimeter          float64
	Solidity           float64

	MeanIntensity float64
	MaxIntensity  float64
	MinIntensity  float64

	BBox BBox

	// Visible marks rows accepted by caller-side filtering. Measurement
	// sets it true; the linker consumes only visible rows.
	Visible bool
}

// Table is an ordered sequence of detections in frame-major order.
type Table struct {
	Dims Dims
	Rows []Detection
}

// FilterVisible returns a copy of the table holding only visible rows.
func (t *Table) FilterVisible() *Table {
	out := &Table{Dims: t.Dims, Rows: make([]Detection, 0, len(t.Rows))}
	for _, r := range t.Rows {
		if r.Visible {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// TrackedDetection is a detection with linking results attached.
type TrackedDetection struct {
	Detection
	TrackID int // contiguous, 1-based, stable within one linking run
	Length  int // detection count for this track id
}

// Tracks is a detections table with track identities assigned.
type Tracks struct {
	Dims Dims
	Rows []TrackedDetection
}

// TrackIDs returns the distinct track ids in order of first appearance.
func (tr *Tracks) TrackIDs() []int {
	seen := make(map[int]bool)
	ids := make([]int, 0)
	for _, r := range tr.Rows {
		if !seen[r.TrackID] {
			seen[r.TrackID] = true
			ids = append(ids, r.TrackID)
		}
	}
	return ids
}

// Positions returns the ordered position matrix for one track, one row
// per frame between the track's first and last observation. Frames where
// the track was not observed become NaN rows so that lag alignment is
// preserved for MSD computation.
func (tr *Tracks) Positions(trackID int) [][]float64 {
	var rows []TrackedDetection
	for _, r := range tr.Rows {
		if r.TrackID == trackID {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	nAxes := 2
	if tr.Dims == Dims3D {
		nAxes = 3
	}

	first, last := rows[0].Frame, rows[len(rows)-1].Frame
	pos := make([][]float64, last-first+1)
	for i := range pos {
		row := make([]float64, nAxes)
		for j := range row {
			row[j] = math.NaN()
		}
		pos[i] = row
	}
	for _, r := range rows {
		row := pos[r.Frame-first]
		if tr.Dims == Dims3D {
			row[0], row[1], row[2] = r.X, r.Y, r.Z
		} else {
			row[0], row[1] = r.X, r.Y
		}
	}
	return pos
}
