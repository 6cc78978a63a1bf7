// Package trackdb persists particle tracking runs to sqlite so an
// analysis session can be revisited without relinking. A run owns its
// tracks (with fit results) and their per-detection points.
package trackdb

import (
	"database/sql"
	_ "embed"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/zeroth-me/particletrack/internal/track"
)

// TrackDB wraps the sqlite handle for the run store.
type TrackDB struct {
	*sql.DB
}

//go:embed schema.sql
var schemaSQL string

// Open opens (creating if needed) a run store at path. Use ":memory:"
// for an ephemeral store.
func Open(path string) (*TrackDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open track database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize track database schema: %w", err)
	}
	return &TrackDB{db}, nil
}

// RunParams records the parameters a run was produced with.
type RunParams struct {
	SearchRange  float64
	Memory       int
	AdaptiveStop float64
	Delta        float64
	MSDLimit     int
	Notes        string
}

// Run is one stored analysis run.
type Run struct {
	ID      string
	Created time.Time
	Params  RunParams
}

// InsertRun stores a run's parameters and returns its generated id.
func (db *TrackDB) InsertRun(params RunParams) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO runs (id, created_unix_nanos, search_range, memory, adaptive_stop, delta, msd_limit, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().UnixNano(),
		params.SearchRange, params.Memory, params.AdaptiveStop,
		params.Delta, params.MSDLimit, params.Notes,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// GetRun loads one run's metadata.
func (db *TrackDB) GetRun(id string) (*Run, error) {
	row := db.QueryRow(`
		SELECT id, created_unix_nanos, search_range, memory, adaptive_stop, delta, msd_limit, notes
		FROM runs WHERE id = ?`, id)

	var run Run
	var nanos int64
	err := row.Scan(&run.ID, &nanos,
		&run.Params.SearchRange, &run.Params.Memory, &run.Params.AdaptiveStop,
		&run.Params.Delta, &run.Params.MSDLimit, &run.Params.Notes)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	run.Created = time.Unix(0, nanos)
	return &run, nil
}

// SaveResults stores a run's tracks, fits, and points in one
// transaction. Failed fits are stored with their error text and NULL
// parameters so the run record stays complete.
func (db *TrackDB) SaveResults(runID string, tracks *track.Tracks, analyses []*track.TrackAnalysis) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin save results: %w", err)
	}
	defer tx.Rollback()

	insertTrack, err := tx.Prepare(`
		INSERT INTO tracks (run_id, track_id, length, alpha, diffusion_coefficient, motion_class, fit_error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare track insert: %w", err)
	}
	defer insertTrack.Close()

	for _, a := range analyses {
		var alpha, d interface{}
		var class, fitErr interface{}
		if a.Err != nil {
			fitErr = a.Err.Error()
		} else {
			alpha = a.Fit.Alpha
			d = a.Fit.DiffusionCoefficient
			class = string(a.Class)
		}
		if _, err := insertTrack.Exec(runID, a.TrackID, a.Length, alpha, d, class, fitErr); err != nil {
			return fmt.Errorf("insert track %d: %w", a.TrackID, err)
		}
	}

	insertPoint, err := tx.Prepare(`
		INSERT INTO points (run_id, track_id, frame, y, x, z, area, mean_intensity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare point insert: %w", err)
	}
	defer insertPoint.Close()

	for _, r := range tracks.Rows {
		var z interface{}
		if tracks.Dims == track.Dims3D && !math.IsNaN(r.Z) {
			z = r.Z
		}
		if _, err := insertPoint.Exec(runID, r.TrackID, r.Frame, r.Y, r.X, z, r.Area, r.MeanIntensity); err != nil {
			return fmt.Errorf("insert point (track %d frame %d): %w", r.TrackID, r.Frame, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save results: %w", err)
	}
	return nil
}

// TrackResult is one stored per-track fit outcome.
type TrackResult struct {
	TrackID              int
	Length               int
	Alpha                float64
	DiffusionCoefficient float64
	MotionClass          track.MotionClass
	FitError             string
}

// GetTrackResults loads a run's per-track results ordered by track id.
func (db *TrackDB) GetTrackResults(runID string) ([]TrackResult, error) {
	rows, err := db.Query(`
		SELECT track_id, length, alpha, diffusion_coefficient, motion_class, fit_error
		FROM tracks WHERE run_id = ? ORDER BY track_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query track results: %w", err)
	}
	defer rows.Close()

	var results []TrackResult
	for rows.Next() {
		var r TrackResult
		var alpha, d sql.NullFloat64
		var class, fitErr sql.NullString
		if err := rows.Scan(&r.TrackID, &r.Length, &alpha, &d, &class, &fitErr); err != nil {
			return nil, fmt.Errorf("scan track result: %w", err)
		}
		r.Alpha = alpha.Float64
		r.DiffusionCoefficient = d.Float64
		r.MotionClass = track.MotionClass(class.String)
		r.FitError = fitErr.String
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetTrackPoints loads one stored track's points ordered by frame.
func (db *TrackDB) GetTrackPoints(runID string, trackID int) ([]track.TrackedDetection, error) {
	rows, err := db.Query(`
		SELECT frame, y, x, z, area, mean_intensity
		FROM points WHERE run_id = ? AND track_id = ? ORDER BY frame`, runID, trackID)
	if err != nil {
		return nil, fmt.Errorf("query track points: %w", err)
	}
	defer rows.Close()

	var points []track.TrackedDetection
	for rows.Next() {
		var p track.TrackedDetection
		var z sql.NullFloat64
		if err := rows.Scan(&p.Frame, &p.Y, &p.X, &z, &p.Area, &p.MeanIntensity); err != nil {
			return nil, fmt.Errorf("scan track point: %w", err)
		}
		if z.Valid {
			p.Z = z.Float64
		} else {
			p.Z = math.NaN()
		}
		p.TrackID = trackID
		points = append(points, p)
	}
	return points, rows.Err()
}
