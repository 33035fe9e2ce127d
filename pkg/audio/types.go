// ABOUTME: Audio type definitions
// ABOUTME: Defines stream formats and decoded sample assets
package audio

// Format describes a PCM stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// Asset is a fully decoded, multi-channel sample buffer. It is immutable
// once built; engines read from it but never write to it.
type Asset struct {
	SampleRate int
	Channels   int
	Frames     int
	Data       [][]float32 // one slice per channel, each Frames long
}

// NewAsset builds an asset from interleaved float32 samples.
func NewAsset(interleaved []float32, channels, sampleRate int) *Asset {
	if channels < 1 {
		channels = 1
	}
	frames := len(interleaved) / channels

	data := make([][]float32, channels)
	for ch := 0; ch < channels; ch++ {
		data[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			data[ch][i] = interleaved[i*channels+ch]
		}
	}

	return &Asset{
		SampleRate: sampleRate,
		Channels:   channels,
		Frames:     frames,
		Data:       data,
	}
}

// Duration returns the asset length in seconds.
func (a *Asset) Duration() float64 {
	if a.SampleRate == 0 {
		return 0
	}
	return float64(a.Frames) / float64(a.SampleRate)
}

// Sample returns the sample at (channel, frame), or 0 outside the asset.
func (a *Asset) Sample(ch, frame int) float32 {
	if ch < 0 || ch >= a.Channels || frame < 0 || frame >= a.Frames {
		return 0
	}
	return a.Data[ch][frame]
}

// Interleaved copies the frame range [start, end) into a freshly
// allocated interleaved buffer. The range is clamped to the asset.
func (a *Asset) Interleaved(start, end int64) []float32 {
	if start < 0 {
		start = 0
	}
	if end > int64(a.Frames) {
		end = int64(a.Frames)
	}
	if end <= start {
		return nil
	}

	out := make([]float32, int(end-start)*a.Channels)
	for i := start; i < end; i++ {
		for ch := 0; ch < a.Channels; ch++ {
			out[int(i-start)*a.Channels+ch] = a.Data[ch][i]
		}
	}
	return out
}

// SampleToInt16 converts a float32 sample in [-1, 1] to int16, clipping
// out-of-range values instead of wrapping.
func SampleToInt16(s float32) int16 {
	v := s * 32767
	if v > 32767 {
		v = 32767
	}
	if v < -32768 {
		v = -32768
	}
	return int16(v)
}

// SampleFromInt16 converts an int16 PCM sample to float32 in [-1, 1).
func SampleFromInt16(s int16) float32 {
	return float32(s) / 32768.0
}

// SampleFromInt converts an integer PCM sample of the given bit depth
// to float32 in [-1, 1).
func SampleFromInt(s int, bitDepth int) float32 {
	switch bitDepth {
	case 8:
		return float32(s) / 128.0
	case 24:
		return float32(s) / 8388608.0
	case 32:
		return float32(s) / 2147483648.0
	default:
		return float32(s) / 32768.0
	}
}
