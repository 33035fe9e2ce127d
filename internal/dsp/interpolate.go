// ABOUTME: Sample interpolation primitives
// ABOUTME: Linear interpolation at fractional cursor positions
package dsp

// Lerp linearly interpolates between a and b at fraction x in [0, 1].
func Lerp(a, b, x float32) float32 {
	return a + (b-a)*x
}

// SampleAt reads a channel at a fractional frame position using linear
// interpolation between the two adjacent frames. Positions outside the
// channel read as silence; the last frame interpolates toward zero.
func SampleAt(ch []float32, pos float64) float32 {
	if pos < 0 {
		return 0
	}
	i := int(pos)
	if i >= len(ch) {
		return 0
	}

	frac := float32(pos - float64(i))
	cur := ch[i]
	var next float32
	if i+1 < len(ch) {
		next = ch[i+1]
	}
	return Lerp(cur, next, frac)
}
