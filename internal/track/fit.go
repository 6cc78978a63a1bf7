package track

import (
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// FitConfig holds the diffusion-fit parameters. Delta is the physical
// time per lag (ms/frame); MaxFuncEvals caps the optimizer's objective
// evaluations before the fit is declared non-convergent.
type FitConfig struct {
	Delta        float64
	MaxFuncEvals int
}

// DefaultFitConfig returns the default fit parameters.
func DefaultFitConfig() FitConfig {
	return FitConfig{
		Delta:        3.8,
		MaxFuncEvals: 1000000,
	}
}

// FitResult is a fitted power-law diffusion model for one MSD curve.
type FitResult struct {
	DiffusionCoefficient float64
	Alpha                float64
	Times                []float64 // t_i = i·Delta, aligned with the lag axis
	Fitted               []float64 // model evaluated at Times
}

// msdModel is the anomalous diffusion power law MSD(t) = 4·D·t^α.
func msdModel(t, d, alpha float64) float64 {
	return 4 * d * math.Pow(t, alpha)
}

// FitMSD fits MSD(t) = 4·D·t^α to an MSD curve by nonlinear least
// squares, starting from (D=0.001, α=0.01). The optimizer is Nelder–Mead
// on the residual sum of squares; when the curve is strictly positive a
// log-log regression seed is also tried and the better start wins, which
// keeps the fit out of the power law's flat basin on clean data.
//
// Non-convergence surfaces as a FitError. It is fatal to this track's
// analysis only; batch callers isolate fits per track (see FitTracks).
func FitMSD(msd []float64, cfg FitConfig) (*FitResult, error) {
	if len(msd) == 0 {
		return nil, &InsufficientDataError{Op: "msd fit", Detail: "empty MSD curve"}
	}
	if cfg.Delta <= 0 {
		cfg.Delta = DefaultFitConfig().Delta
	}
	if cfg.MaxFuncEvals <= 0 {
		cfg.MaxFuncEvals = DefaultFitConfig().MaxFuncEvals
	}

	times := make([]float64, len(msd))
	for i := range msd {
		times[i] = float64(i+1) * cfg.Delta
	}

	ssr := func(p []float64) float64 {
		sum := 0.0
		for i, t := range times {
			r := msdModel(t, p[0], p[1]) - msd[i]
			sum += r * r
		}
		if math.IsNaN(sum) || math.IsInf(sum, 0) {
			return math.MaxFloat64
		}
		return sum
	}

	starts := [][]float64{{0.001, 0.01}}
	if seed, ok := logLogSeed(times, msd); ok && ssr(seed) < ssr(starts[0]) {
		starts = append([][]float64{seed}, starts...)
	}

	problem := optimize.Problem{Func: ssr}
	settings := &optimize.Settings{FuncEvaluations: cfg.MaxFuncEvals}

	var best *optimize.Result
	for _, p0 := range starts {
		result, err := optimize.Minimize(problem, p0, settings, &optimize.NelderMead{})
		if err != nil {
			continue
		}
		if result.Status == optimize.FunctionEvaluationLimit {
			continue
		}
		if best == nil || result.F < best.F {
			best = result
		}
	}
	if best == nil {
		return nil, &FitError{Reason: "optimizer did not converge"}
	}

	d, alpha := best.X[0], best.X[1]
	if math.IsNaN(d) || math.IsNaN(alpha) {
		return nil, &FitError{Reason: "optimizer produced non-finite parameters"}
	}

	fitted := make([]float64, len(times))
	for i, t := range times {
		fitted[i] = msdModel(t, d, alpha)
	}
	return &FitResult{
		DiffusionCoefficient: d,
		Alpha:                alpha,
		Times:                times,
		Fitted:               fitted,
	}, nil
}

// logLogSeed derives (D, α) from a linear regression of log(msd) on
// log(t). Only usable when every MSD value is strictly positive.
func logLogSeed(times, msd []float64) ([]float64, bool) {
	logT := make([]float64, 0, len(msd))
	logY := make([]float64, 0, len(msd))
	for i, y := range msd {
		if y <= 0 || math.IsNaN(y) {
			return nil, false
		}
		logT = append(logT, math.Log(times[i]))
		logY = append(logY, math.Log(y))
	}
	if len(logT) < 2 {
		return nil, false
	}
	intercept, slope := stat.LinearRegression(logT, logY, nil, false)
	d := math.Exp(intercept) / 4
	if math.IsNaN(d) || math.IsInf(d, 0) || math.IsNaN(slope) {
		return nil, false
	}
	return []float64{d, slope}, true
}
