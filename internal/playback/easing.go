package playback

// EaseInOut maps elapsed-time fraction t (0..1) to path fraction with a
// quadratic ease-in-out curve.
func EaseInOut(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	u := -2*t + 2
	return 1 - u*u/2
}
