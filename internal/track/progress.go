package track

// Progress receives completion callbacks during batch operations, once
// per unit of work (frame measured, track fitted). Implementations must
// be cheap; they run inline in the pipeline loop. A nil Progress is
// always accepted.
type Progress func(done, total int)

// report invokes p if set.
func (p Progress) report(done, total int) {
	if p != nil {
		p(done, total)
	}
}
