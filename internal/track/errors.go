package track

import "fmt"

// InputShapeError reports input with the wrong dimensionality or with
// required positional data missing. It is raised before any partial
// computation happens.
type InputShapeError struct {
	Op     string // operation that rejected the input
	Detail string
}

func (e *InputShapeError) Error() string {
	return fmt.Sprintf("%s: input shape: %s", e.Op, e.Detail)
}

// InsufficientDataError reports an item (track, table) too small to be
// processed. Batch callers are expected to skip the item and continue.
type InsufficientDataError struct {
	Op     string
	Detail string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: %s", e.Op, e.Detail)
}

// FitError reports a diffusion-fit failure for a single track. It wraps
// the underlying optimizer error where one exists. A FitError is fatal to
// that track's analysis only; batch helpers isolate it per track.
type FitError struct {
	Reason string
	Err    error
}

func (e *FitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("msd fit: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("msd fit: %s", e.Reason)
}

func (e *FitError) Unwrap() error { return e.Err }
