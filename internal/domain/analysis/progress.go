package analysis

const (
	ProgressStart   = 15
	ProgressCeiling = 90
	ProgressDone    = 100
	// MaxProgressStep bounds one ticker increment.
	MaxProgressStep = 5.0
)

// Advance applies one ticker step. jitter is expected in [0,1); the step is
// skipped once the value has reached the ceiling so only completion hits 100.
func Advance(current, jitter float64) float64 {
	if current >= ProgressCeiling {
		return current
	}
	if jitter < 0 {
		jitter = 0
	}
	if jitter >= 1 {
		jitter = 0.999
	}
	return current + jitter*MaxProgressStep
}
