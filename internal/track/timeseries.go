package track

import (
	"context"
	"fmt"
)

// MeasureStack runs MeasureRegions over every frame of an image/mask
// stack and concatenates the results into one frame-major detections
// table. Stacks are [T, H, W]; a single [H, W] pair is treated as a
// one-frame stack. Cancellation is checked between frames, and a failure
// in any frame's measurement aborts the run.
func MeasureStack(ctx context.Context, images *Array, masks *IntArray, progress Progress) (*Table, error) {
	if images == nil || masks == nil {
		return nil, &InputShapeError{Op: "measure stack", Detail: "nil image or mask stack"}
	}
	if images.NDim() == 2 {
		images = &Array{Shape: []int{1, images.Shape[0], images.Shape[1]}, Data: images.Data}
	}
	if masks.NDim() == 2 {
		masks = &IntArray{Shape: []int{1, masks.Shape[0], masks.Shape[1]}, Data: masks.Data}
	}
	if images.NDim() != 3 || masks.NDim() != 3 {
		return nil, &InputShapeError{Op: "measure stack", Detail: "stacks must be [T, H, W]"}
	}
	if images.Shape[0] != masks.Shape[0] {
		return nil, &InputShapeError{
			Op:     "measure stack",
			Detail: fmt.Sprintf("frame counts differ: %d images, %d masks", images.Shape[0], masks.Shape[0]),
		}
	}

	frames := images.Shape[0]
	table := &Table{Dims: Dims2D}
	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		detections, err := MeasureRegions(i, images.Frame(i), masks.Frame(i))
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		table.Rows = append(table.Rows, detections...)
		progress.report(i+1, frames)
	}
	return table, nil
}
