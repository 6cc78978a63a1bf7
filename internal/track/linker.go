package track

import (
	"math"
	"sort"
)

// Linking parameters. SearchRange is the maximum per-frame displacement
// considered for a same-particle match; Memory is how many consecutive
// frames a particle may go undetected and still be relinked to its track.
//
// AdaptiveStop controls the fallback for oversized assignment subnets:
// when a connected group of candidate links grows past maxSubnetSize, the
// search radius for that group is shrunk geometrically (×adaptiveDecay
// per attempt) until the group becomes tractable or the radius falls
// below AdaptiveStop×SearchRange, at which point the group's detections
// start new tracks rather than forcing a bad match.
type LinkerConfig struct {
	SearchRange  float64
	Memory       int
	AdaptiveStop float64
}

// DefaultLinkerConfig returns the default linking parameters.
func DefaultLinkerConfig() LinkerConfig {
	return LinkerConfig{
		SearchRange:  2,
		Memory:       0,
		AdaptiveStop: 0.95,
	}
}

const (
	// adaptiveDecay is the per-attempt geometric shrink factor applied to
	// the search radius of an oversized subnet.
	adaptiveDecay = 0.95
	// maxSubnetSize bounds the participants (detections + tracks) of one
	// assignment subproblem before adaptive shrinking kicks in.
	maxSubnetSize = 30
)

// activeTrack is the linker's bookkeeping for one not-yet-retired track.
type activeTrack struct {
	id        int
	pos       []float64 // last known position, axis order matching Table
	lastFrame int       // frame at which the track was last seen
}

// Link associates detections across frames into tracks. Input rows must
// already be restricted to accepted (visible) detections; rows keep their
// order and gain a track_id, renumbered to a contiguous 1-based range by
// order of first appearance, plus a per-track length.
//
// Frames are processed in increasing time order. Each frame's
// correspondence is a minimum-total-squared-displacement assignment
// between the frame's detections and the active tracks, with links longer
// than the search radius forbidden. Unmatched detections start new
// tracks; tracks unseen for more than Memory consecutive frames are
// retired and never relinked.
func Link(table *Table, cfg LinkerConfig) (*Tracks, error) {
	if table == nil || len(table.Rows) == 0 {
		return nil, &InputShapeError{Op: "link", Detail: "empty detections table"}
	}
	if cfg.SearchRange <= 0 {
		cfg.SearchRange = DefaultLinkerConfig().SearchRange
	}
	if cfg.AdaptiveStop < 0 || cfg.AdaptiveStop > 1 {
		cfg.AdaptiveStop = DefaultLinkerConfig().AdaptiveStop
	}

	for _, r := range table.Rows {
		if math.IsNaN(r.Y) || math.IsNaN(r.X) || (table.Dims == Dims3D && math.IsNaN(r.Z)) {
			return nil, &InputShapeError{Op: "link", Detail: "row missing positional data"}
		}
	}

	// Group row indices by frame, frames ascending.
	byFrame := make(map[int][]int)
	for i, r := range table.Rows {
		byFrame[r.Frame] = append(byFrame[r.Frame], i)
	}
	frames := make([]int, 0, len(byFrame))
	for f := range byFrame {
		frames = append(frames, f)
	}
	sort.Ints(frames)

	rowPos := func(i int) []float64 {
		r := table.Rows[i]
		if table.Dims == Dims3D {
			return []float64{r.X, r.Y, r.Z}
		}
		return []float64{r.X, r.Y}
	}

	rawID := make([]int, len(table.Rows))
	var active []*activeTrack
	nextID := 1

	for _, frame := range frames {
		// Retire tracks that have been unseen past the memory window.
		kept := active[:0]
		for _, tr := range active {
			if frame-tr.lastFrame <= cfg.Memory+1 {
				kept = append(kept, tr)
			}
		}
		active = kept

		rows := byFrame[frame]
		dets := make([][]float64, len(rows))
		for i, ri := range rows {
			dets[i] = rowPos(ri)
		}

		assign := linkFrame(dets, active, cfg)

		for i, ri := range rows {
			if j := assign[i]; j >= 0 {
				tr := active[j]
				tr.pos = dets[i]
				tr.lastFrame = frame
				rawID[ri] = tr.id
			} else {
				tr := &activeTrack{id: nextID, pos: dets[i], lastFrame: frame}
				nextID++
				active = append(active, tr)
				rawID[ri] = tr.id
			}
		}
	}

	return renumber(table, rawID), nil
}

// linkFrame solves one frame's detection-to-track correspondence.
// Returns assign[i] = index into active, or -1 for a new track.
func linkFrame(dets [][]float64, active []*activeTrack, cfg LinkerConfig) []int {
	assign := make([]int, len(dets))
	for i := range assign {
		assign[i] = -1
	}
	if len(dets) == 0 || len(active) == 0 {
		return assign
	}

	// Squared distances, computed once.
	dist2 := make([][]float64, len(dets))
	for i, d := range dets {
		dist2[i] = make([]float64, len(active))
		for j, tr := range active {
			dist2[i][j] = squaredDistance(d, tr.pos)
		}
	}

	radius := cfg.SearchRange
	stop := cfg.AdaptiveStop * cfg.SearchRange

	// Work queue of subnets still to be solved, each with its own radius.
	type subnet struct {
		dets   []int
		tracks []int
		radius float64
	}
	queue := decompose(dist2, nil, nil, radius)
	work := make([]subnet, 0, len(queue))
	for _, s := range queue {
		work = append(work, subnet{dets: s.dets, tracks: s.tracks, radius: radius})
	}

	for len(work) > 0 {
		s := work[len(work)-1]
		work = work[:len(work)-1]

		if len(s.dets)+len(s.tracks) > maxSubnetSize {
			shrunk := s.radius * adaptiveDecay
			if shrunk < stop {
				// Give up on this subnet: its detections start new tracks.
				continue
			}
			// A smaller radius may split the subnet into tractable pieces.
			for _, sub := range decompose(dist2, s.dets, s.tracks, shrunk) {
				work = append(work, subnet{dets: sub.dets, tracks: sub.tracks, radius: shrunk})
			}
			continue
		}

		cost := make([][]float64, len(s.dets))
		maxCost := s.radius * s.radius
		for i, di := range s.dets {
			cost[i] = make([]float64, len(s.tracks))
			for j, tj := range s.tracks {
				if d2 := dist2[di][tj]; d2 <= maxCost {
					cost[i][j] = d2
				} else {
					cost[i][j] = forbiddenCost
				}
			}
		}
		for i, j := range solveAssignment(cost) {
			if j >= 0 {
				assign[s.dets[i]] = s.tracks[j]
			}
		}
	}
	return assign
}

// component is a connected group of detections and tracks whose candidate
// links (distance ≤ radius) form one assignment subproblem.
type component struct {
	dets   []int
	tracks []int
}

// decompose splits the admissibility graph restricted to the given
// detection and track indices (nil means all) into connected components
// at the given radius. Detections with no admissible track are omitted;
// they start new tracks without entering any assignment.
func decompose(dist2 [][]float64, detIdx, trackIdx []int, radius float64) []component {
	if detIdx == nil {
		detIdx = make([]int, len(dist2))
		for i := range detIdx {
			detIdx[i] = i
		}
	}
	if trackIdx == nil && len(dist2) > 0 {
		trackIdx = make([]int, len(dist2[0]))
		for j := range trackIdx {
			trackIdx[j] = j
		}
	}
	maxCost := radius * radius

	// Union-find over detections; each track joins the set of the first
	// detection that can reach it.
	parent := make(map[int]int, len(detIdx))
	var find func(a int) int
	find = func(a int) int {
		if parent[a] != a {
			parent[a] = find(parent[a])
		}
		return parent[a]
	}
	for _, i := range detIdx {
		parent[i] = i
	}
	trackOwner := make(map[int]int, len(trackIdx))
	for _, j := range trackIdx {
		for _, i := range detIdx {
			if dist2[i][j] > maxCost {
				continue
			}
			if owner, ok := trackOwner[j]; ok {
				ra, rb := find(owner), find(i)
				if ra != rb {
					parent[rb] = ra
				}
			} else {
				trackOwner[j] = i
			}
		}
	}

	groups := make(map[int]*component)
	for _, i := range detIdx {
		// Only detections with at least one admissible track participate.
		admissible := false
		for _, j := range trackIdx {
			if dist2[i][j] <= maxCost {
				admissible = true
				break
			}
		}
		if !admissible {
			continue
		}
		root := find(i)
		g, ok := groups[root]
		if !ok {
			g = &component{}
			groups[root] = g
		}
		g.dets = append(g.dets, i)
	}
	for _, j := range trackIdx {
		owner, ok := trackOwner[j]
		if !ok {
			continue
		}
		groups[find(owner)].tracks = append(groups[find(owner)].tracks, j)
	}

	out := make([]component, 0, len(groups))
	roots := make([]int, 0, len(groups))
	for r := range groups {
		roots = append(roots, r)
	}
	sort.Ints(roots)
	for _, r := range roots {
		out = append(out, *groups[r])
	}
	return out
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for k := range a {
		d := a[k] - b[k]
		sum += d * d
	}
	return sum
}

// renumber maps raw track ids onto a contiguous 1-based range ordered by
// first appearance and attaches per-track lengths.
func renumber(table *Table, rawID []int) *Tracks {
	remap := make(map[int]int)
	next := 1
	for _, id := range rawID {
		if _, ok := remap[id]; !ok {
			remap[id] = next
			next++
		}
	}
	lengths := make(map[int]int)
	for _, id := range rawID {
		lengths[remap[id]]++
	}

	out := &Tracks{Dims: table.Dims, Rows: make([]TrackedDetection, len(table.Rows))}
	for i, r := range table.Rows {
		id := remap[rawID[i]]
		out.Rows[i] = TrackedDetection{Detection: r, TrackID: id, Length: lengths[id]}
	}
	return out
}
