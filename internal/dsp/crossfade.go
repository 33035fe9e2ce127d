// ABOUTME: Equal-power crossfade synthesis
// ABOUTME: Blends loop tail into loop head to mask the seam
package dsp

import "math"

// EqualPowerCrossfade blends the loop tail into the loop head with an
// equal-power curve, per channel on interleaved frames:
//
//	out[i] = tail[i]*cos²(πx/2) + head[i]*sin²(πx/2), x = i/(N-1)
//
// The curve keeps cos²+sin² = 1 at every position, so perceived
// loudness holds through the transition. tail and head must have the
// same length; the shorter length wins if they differ.
func EqualPowerCrossfade(tail, head []float32, channels int) []float32 {
	n := len(tail)
	if len(head) < n {
		n = len(head)
	}
	if channels < 1 {
		channels = 1
	}
	frames := n / channels
	if frames == 0 {
		return nil
	}

	out := make([]float32, frames*channels)
	for i := 0; i < frames; i++ {
		var x float64
		if frames > 1 {
			x = float64(i) / float64(frames-1)
		}
		c := math.Cos(math.Pi * x / 2)
		s := math.Sin(math.Pi * x / 2)
		fadeOut := float32(c * c)
		fadeIn := float32(s * s)

		for ch := 0; ch < channels; ch++ {
			j := i*channels + ch
			out[j] = tail[j]*fadeOut + head[j]*fadeIn
		}
	}
	return out
}
