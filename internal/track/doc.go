// Package track owns the particle tracking core: per-frame region
// measurement, frame-to-frame particle linking, and trajectory statistics
// (mean-squared displacement and diffusion-model fitting).
//
// Responsibilities: connected-component region measurement over label
// masks, detection aggregation across an image stack, assignment-based
// linking with gap memory, MSD computation, power-law diffusion fits,
// and the shared histogram binning used by the statistics layer.
// Key types: Detection, Table, Tracks, MSDSeries, FitResult.
//
// Dependency rule: this package is headless and never imports storage,
// plotting, or UI code. Persistence lives in trackdb, rendering in report.
package track
