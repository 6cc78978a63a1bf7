package track

import (
	"math"
	"sort"
)

// MeasureRegions measures every connected foreground component of a 2-D
// label mask against the matching intensity image, producing one
// Detection per component for the given frame index.
//
// All nonzero mask values are treated as a single foreground and then
// relabeled into 8-connected components, so a labeling whose nominal
// object is split into disjoint fragments is reported as the fragments
// it actually is rather than one inflated region. Component ids are
// assigned 1..K in scan order.
func MeasureRegions(frame int, image *Array, mask *IntArray) ([]Detection, error) {
	if image == nil || mask == nil {
		return nil, &InputShapeError{Op: "measure regions", Detail: "nil image or mask"}
	}
	if image.NDim() != 2 {
		return nil, &InputShapeError{Op: "measure regions", Detail: "image must be 2-D"}
	}
	if mask.NDim() != 2 {
		return nil, &InputShapeError{Op: "measure regions", Detail: "mask must be 2-D"}
	}
	if image.Shape[0] != mask.Shape[0] || image.Shape[1] != mask.Shape[1] {
		return nil, &InputShapeError{Op: "measure regions", Detail: "image and mask shapes differ"}
	}

	labels, count := labelComponents(mask)
	if count == 0 {
		return nil, nil
	}

	h, w := mask.Shape[0], mask.Shape[1]
	regions := make([]*regionAccum, count)
	for i := range regions {
		regions[i] = &regionAccum{
			minY: h, minX: w,
			minIntensity: math.Inf(1),
			maxIntensity: math.Inf(-1),
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			lbl := labels.At(y, x)
			if lbl == 0 {
				continue
			}
			r := regions[lbl-1]
			v := image.At(y, x)
			r.area++
			r.sumY += float64(y)
			r.sumX += float64(x)
			r.sumIntensity += v
			if v < r.minIntensity {
				r.minIntensity = v
			}
			if v > r.maxIntensity {
				r.maxIntensity = v
			}
			if y < r.minY {
				r.minY = y
			}
			if x < r.minX {
				r.minX = x
			}
			if y >= r.maxY {
				r.maxY = y + 1
			}
			if x >= r.maxX {
				r.maxX = x + 1
			}
			r.pixels = append(r.pixels, [2]int{y, x})
			r.perimeter += float64(exposedEdges(labels, y, x, lbl))
		}
	}

	detections := make([]Detection, count)
	for i, r := range regions {
		area := float64(r.area)
		detections[i] = Detection{
			Frame:              frame,
			Label:              i + 1,
			Z:                  math.NaN(),
			Y:                  r.sumY / area,
			X:                  r.sumX / area,
			Area:               area,
			Radius:             math.Sqrt(area / math.Pi),
			EquivalentDiameter: math.Sqrt(4 * area / math.Pi),
			Perimeter:          r.perimeter,
			Solidity:           solidity(area, r.pixels),
			MeanIntensity:      r.sumIntensity / area,
			MaxIntensity:       r.maxIntensity,
			MinIntensity:       r.minIntensity,
			BBox:               BBox{MinY: r.minY, MinX: r.minX, MaxY: r.maxY, MaxX: r.maxX},
			Visible:            true,
		}
	}
	return detections, nil
}

type regionAccum struct {
	area         int
	sumY, sumX   float64
	sumIntensity float64
	minIntensity float64
	maxIntensity float64
	minY, minX   int
	maxY, maxX   int
	perimeter    float64
	pixels       [][2]int
}

// labelComponents relabels all nonzero mask pixels into 8-connected
// components using a two-pass union-find. Returns the label image and
// the component count.
func labelComponents(mask *IntArray) (*IntArray, int) {
	h, w := mask.Shape[0], mask.Shape[1]
	labels := NewIntArray(h, w)
	parent := []int{0} // parent[0] unused; roots point at themselves

	find := func(a int) int {
		for parent[a] != a {
			parent[a] = parent[parent[a]]
			a = parent[a]
		}
		return a
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra < rb {
			parent[rb] = ra
		} else if rb < ra {
			parent[ra] = rb
		}
	}

	next := 1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mask.At(y, x) == 0 {
				continue
			}
			// Previously scanned 8-neighbours: W, NW, N, NE.
			best := 0
			var neigh [4]int
			n := 0
			if x > 0 {
				neigh[n] = labels.At(y, x-1)
				n++
			}
			if y > 0 {
				if x > 0 {
					neigh[n] = labels.At(y-1, x-1)
					n++
				}
				neigh[n] = labels.At(y-1, x)
				n++
				if x < w-1 {
					neigh[n] = labels.At(y-1, x+1)
					n++
				}
			}
			for i := 0; i < n; i++ {
				if neigh[i] != 0 && (best == 0 || neigh[i] < best) {
					best = neigh[i]
				}
			}
			if best == 0 {
				parent = append(parent, next)
				labels.Set(y, x, next)
				next++
				continue
			}
			labels.Set(y, x, best)
			for i := 0; i < n; i++ {
				if neigh[i] != 0 && neigh[i] != best {
					union(neigh[i], best)
				}
			}
		}
	}

	// Second pass: flatten unions and compact root ids to 1..K in scan order.
	compact := make(map[int]int)
	count := 0
	for i := 0; i < h*w; i++ {
		if labels.Data[i] == 0 {
			continue
		}
		root := find(labels.Data[i])
		id, ok := compact[root]
		if !ok {
			count++
			id = count
			compact[root] = id
		}
		labels.Data[i] = id
	}
	return labels, count
}

// exposedEdges counts the 4-neighbour sides of pixel (y, x) that face
// outside its component. Summed over a component this gives its
// boundary-edge perimeter.
func exposedEdges(labels *IntArray, y, x, lbl int) int {
	h, w := labels.Shape[0], labels.Shape[1]
	edges := 0
	if y == 0 || labels.At(y-1, x) != lbl {
		edges++
	}
	if y == h-1 || labels.At(y+1, x) != lbl {
		edges++
	}
	if x == 0 || labels.At(y, x-1) != lbl {
		edges++
	}
	if x == w-1 || labels.At(y, x+1) != lbl {
		edges++
	}
	return edges
}

// solidity is area divided by the area of the component's convex hull.
// The hull is taken over pixel corners so that single pixels and straight
// lines still enclose their own area.
func solidity(area float64, pixels [][2]int) float64 {
	hull := convexHull(pixelCorners(pixels))
	ha := polygonArea(hull)
	if ha <= 0 {
		return 1
	}
	s := area / ha
	if s > 1 {
		s = 1
	}
	return s
}

// pixelCorners expands each pixel (y, x) to its four unit-square corners.
func pixelCorners(pixels [][2]int) [][2]float64 {
	corners := make([][2]float64, 0, len(pixels)*4)
	for _, p := range pixels {
		y, x := float64(p[0]), float64(p[1])
		corners = append(corners,
			[2]float64{y - 0.5, x - 0.5},
			[2]float64{y - 0.5, x + 0.5},
			[2]float64{y + 0.5, x - 0.5},
			[2]float64{y + 0.5, x + 0.5},
		)
	}
	return corners
}

// convexHull computes the convex hull of a point set with the monotone
// chain algorithm, returning hull vertices in counter-clockwise order.
func convexHull(points [][2]float64) [][2]float64 {
	if len(points) < 3 {
		return points
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i][0] != points[j][0] {
			return points[i][0] < points[j][0]
		}
		return points[i][1] < points[j][1]
	})

	cross := func(o, a, b [2]float64) float64 {
		return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
	}

	var lower, upper [][2]float64
	for _, p := range points {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	for i := len(points) - 1; i >= 0; i-- {
		p := points[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

// polygonArea is the shoelace area of a simple polygon.
func polygonArea(poly [][2]float64) float64 {
	if len(poly) < 3 {
		return 0
	}
	sum := 0.0
	for i := range poly {
		j := (i + 1) % len(poly)
		sum += poly[i][0]*poly[j][1] - poly[j][0]*poly[i][1]
	}
	return math.Abs(sum) / 2
}
