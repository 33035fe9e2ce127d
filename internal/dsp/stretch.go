// ABOUTME: Time-stretch and resampling stages
// ABOUTME: Overlap-add stretch for tempo, resample for varispeed and pitch
package dsp

import "math"

const (
	stretchWindow = 2048 // frames per grain
	stretchHop    = stretchWindow / 2
)

// Resample linearly resamples interleaved frames by the given ratio
// (output length = input length / ratio). A ratio of 2 plays twice as
// fast and one octave up.
func Resample(in []float32, channels int, ratio float64) []float32 {
	if channels < 1 || ratio <= 0 {
		return nil
	}
	inFrames := len(in) / channels
	if inFrames == 0 {
		return nil
	}

	outFrames := int(float64(inFrames) / ratio)
	if outFrames < 1 {
		outFrames = 1
	}

	out := make([]float32, outFrames*channels)
	for i := 0; i < outFrames; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := float32(pos - float64(idx))

		for ch := 0; ch < channels; ch++ {
			cur := in[idx*channels+ch]
			var next float32
			if idx+1 < inFrames {
				next = in[(idx+1)*channels+ch]
			}
			out[i*channels+ch] = Lerp(cur, next, frac)
		}
	}
	return out
}

// TimeStretch changes the duration of interleaved frames by factor
// (output frames ≈ input frames × factor) without changing pitch,
// using windowed overlap-add. Short inputs fall back to resampling.
func TimeStretch(in []float32, channels int, factor float64) []float32 {
	if channels < 1 || factor <= 0 {
		return nil
	}
	inFrames := len(in) / channels
	if inFrames == 0 {
		return nil
	}
	if factor == 1 {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}
	if inFrames < stretchWindow*2 {
		// Too short for grain analysis; accept the pitch artifact
		return Resample(in, channels, 1/factor)
	}

	outFrames := int(float64(inFrames) * factor)
	out := make([]float64, outFrames*channels)
	norm := make([]float64, outFrames)

	window := hann(stretchWindow)
	analysisHop := float64(stretchHop) / factor

	for grain := 0; ; grain++ {
		outPos := grain * stretchHop
		inPos := int(float64(grain) * analysisHop)
		if outPos >= outFrames || inPos+stretchWindow > inFrames {
			break
		}

		for i := 0; i < stretchWindow && outPos+i < outFrames; i++ {
			w := window[i]
			norm[outPos+i] += w
			for ch := 0; ch < channels; ch++ {
				out[(outPos+i)*channels+ch] += w * float64(in[(inPos+i)*channels+ch])
			}
		}
	}

	result := make([]float32, outFrames*channels)
	for i := 0; i < outFrames; i++ {
		n := norm[i]
		if n < 1e-6 {
			continue
		}
		for ch := 0; ch < channels; ch++ {
			result[i*channels+ch] = float32(out[i*channels+ch] / n)
		}
	}
	return result
}

// PitchShift shifts interleaved frames by the given number of
// semitones without changing duration: stretch by 2^(s/12), then
// resample back to the original length.
func PitchShift(in []float32, channels int, semitones float64) []float32 {
	if semitones == 0 {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}

	f := math.Pow(2, semitones/12)
	stretched := TimeStretch(in, channels, f)
	return Resample(stretched, channels, f)
}

// SemitonesToRatio converts a semitone offset to a frequency ratio.
func SemitonesToRatio(semitones float64) float64 {
	return math.Pow(2, semitones/12)
}

func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// Gain scales interleaved samples in place by the given factor.
func Gain(pcm []float32, g float32) {
	if g == 1 {
		return
	}
	for i := range pcm {
		pcm[i] *= g
	}
}
