package track

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// CSV layout: track_id and frame first, then positional columns, then
// measured features. This is the only persisted file format; reading a
// written table back reproduces ids, frames, and coordinates exactly.

func csvHeader(dims Dims) []string {
	header := []string{"track_id", "frame", "y", "x"}
	if dims == Dims3D {
		header = []string{"track_id", "frame", "z", "y", "x"}
	}
	return append(header,
		"label", "length",
		"area", "radius", "equivalent_diameter", "perimeter", "solidity",
		"mean_intensity", "max_intensity", "min_intensity",
		"bbox_min_y", "bbox_min_x", "bbox_max_y", "bbox_max_x",
	)
}

// WriteCSV writes a tracks table with a header row, one row per
// detection. Floats use the shortest representation that round-trips.
func WriteCSV(w io.Writer, tracks *Tracks) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader(tracks.Dims)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, r := range tracks.Rows {
		rec := []string{strconv.Itoa(r.TrackID), strconv.Itoa(r.Frame)}
		if tracks.Dims == Dims3D {
			rec = append(rec, f(r.Z))
		}
		rec = append(rec, f(r.Y), f(r.X),
			strconv.Itoa(r.Label), strconv.Itoa(r.Length),
			f(r.Area), f(r.Radius), f(r.EquivalentDiameter), f(r.Perimeter), f(r.Solidity),
			f(r.MeanIntensity), f(r.MaxIntensity), f(r.MinIntensity),
			strconv.Itoa(r.BBox.MinY), strconv.Itoa(r.BBox.MinX),
			strconv.Itoa(r.BBox.MaxY), strconv.Itoa(r.BBox.MaxX),
		)
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a tracks table previously written by WriteCSV. The
// dimensionality is recovered from the header.
func ReadCSV(r io.Reader) (*Tracks, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	dims := Dims2D
	if len(header) > 2 && header[2] == "z" {
		dims = Dims3D
	}
	want := len(csvHeader(dims))
	if len(header) != want {
		return nil, &InputShapeError{Op: "read csv", Detail: fmt.Sprintf("header has %d columns, want %d", len(header), want)}
	}

	tracks := &Tracks{Dims: dims}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		row, err := parseCSVRow(rec, dims)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		tracks.Rows = append(tracks.Rows, row)
	}
	if len(tracks.Rows) == 0 {
		return nil, &InsufficientDataError{Op: "read csv", Detail: "no data rows"}
	}
	return tracks, nil
}

func parseCSVRow(rec []string, dims Dims) (TrackedDetection, error) {
	var row TrackedDetection
	i := 0
	nextInt := func(dst *int) error {
		v, err := strconv.Atoi(rec[i])
		i++
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
	nextFloat := func(dst *float64) error {
		v, err := strconv.ParseFloat(rec[i], 64)
		i++
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}

	row.Z = math.NaN()
	intFields := []*int{&row.TrackID, &row.Frame}
	for _, dst := range intFields {
		if err := nextInt(dst); err != nil {
			return row, err
		}
	}
	floatFields := []*float64{&row.Y, &row.X}
	if dims == Dims3D {
		floatFields = []*float64{&row.Z, &row.Y, &row.X}
	}
	for _, dst := range floatFields {
		if err := nextFloat(dst); err != nil {
			return row, err
		}
	}
	if err := nextInt(&row.Label); err != nil {
		return row, err
	}
	if err := nextInt(&row.Length); err != nil {
		return row, err
	}
	for _, dst := range []*float64{
		&row.Area, &row.Radius, &row.EquivalentDiameter, &row.Perimeter, &row.Solidity,
		&row.MeanIntensity, &row.MaxIntensity, &row.MinIntensity,
	} {
		if err := nextFloat(dst); err != nil {
			return row, err
		}
	}
	for _, dst := range []*int{&row.BBox.MinY, &row.BBox.MinX, &row.BBox.MaxY, &row.BBox.MaxX} {
		if err := nextInt(dst); err != nil {
			return row, err
		}
	}
	row.Visible = true
	return row, nil
}
