package track

// MotionClass buckets a track's motion regime by its anomalous exponent.
type MotionClass string

const (
	MotionConfined  MotionClass = "confined"  // α < 0.4
	MotionDiffusive MotionClass = "diffusive" // 0.4 ≤ α ≤ 1.2
	MotionDirected  MotionClass = "directed"  // α > 1.2
)

// Alpha thresholds separating the motion regimes.
const (
	ConfinedAlphaMax  = 0.4
	DiffusiveAlphaMax = 1.2
)

// ClassifyMotion maps an anomalous exponent to its motion class.
func ClassifyMotion(alpha float64) MotionClass {
	switch {
	case alpha < ConfinedAlphaMax:
		return MotionConfined
	case alpha <= DiffusiveAlphaMax:
		return MotionDiffusive
	default:
		return MotionDirected
	}
}
