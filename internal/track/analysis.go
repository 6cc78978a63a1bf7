package track

import (
	"context"
	"runtime"
	"sync"
)

// TrackAnalysis is the MSD/fit outcome for one track. Err is set when
// that track's analysis failed (too short, fit non-convergence); the
// other fields are then nil.
type TrackAnalysis struct {
	TrackID int
	Length  int
	Series  *MSDSeries
	Fit     *FitResult
	Class   MotionClass
	Err     error
}

// AnalysisConfig bundles the per-track analysis parameters.
type AnalysisConfig struct {
	MSDLimit int
	Fit      FitConfig
	// Workers bounds the fitting worker pool; ≤0 uses GOMAXPROCS.
	// Fits are independent across tracks, so they parallelize freely.
	Workers int
}

// DefaultAnalysisConfig returns the default analysis parameters.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		MSDLimit: DefaultMSDLimit,
		Fit:      DefaultFitConfig(),
	}
}

// AnalyzeTrack computes the MSD series and diffusion fit for one track.
func AnalyzeTrack(tracks *Tracks, trackID int, cfg AnalysisConfig) *TrackAnalysis {
	out := &TrackAnalysis{TrackID: trackID}
	pos := tracks.Positions(trackID)
	out.Length = trackLength(tracks, trackID)

	series, err := MSD(pos, cfg.MSDLimit)
	if err != nil {
		out.Err = err
		return out
	}
	fit, err := FitMSD(series.MSD, cfg.Fit)
	if err != nil {
		out.Err = err
		return out
	}
	out.Series = series
	out.Fit = fit
	out.Class = ClassifyMotion(fit.Alpha)
	return out
}

// FitTracks runs AnalyzeTrack over every track in the table on a bounded
// worker pool. Per-track failures are recorded in the corresponding
// TrackAnalysis rather than aborting the batch; only context
// cancellation stops the run early. Results are ordered by track id
// first appearance, matching Tracks.TrackIDs.
func FitTracks(ctx context.Context, tracks *Tracks, cfg AnalysisConfig, progress Progress) ([]*TrackAnalysis, error) {
	ids := tracks.TrackIDs()
	if len(ids) == 0 {
		return nil, &InsufficientDataError{Op: "fit tracks", Detail: "no tracks to analyze"}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(ids) {
		workers = len(ids)
	}

	results := make([]*TrackAnalysis, len(ids))
	jobs := make(chan int)

	var done sync.WaitGroup
	var mu sync.Mutex
	completed := 0

	for w := 0; w < workers; w++ {
		done.Add(1)
		go func() {
			defer done.Done()
			for idx := range jobs {
				results[idx] = AnalyzeTrack(tracks, ids[idx], cfg)
				mu.Lock()
				completed++
				progress.report(completed, len(ids))
				mu.Unlock()
			}
		}()
	}

	var ctxErr error
feed:
	for idx := range ids {
		select {
		case jobs <- idx:
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break feed
		}
	}
	close(jobs)
	done.Wait()

	if ctxErr != nil {
		return nil, ctxErr
	}
	return results, nil
}

func trackLength(tracks *Tracks, trackID int) int {
	for _, r := range tracks.Rows {
		if r.TrackID == trackID {
			return r.Length
		}
	}
	return 0
}
