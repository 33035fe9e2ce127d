// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC frames to a float32 asset
package decode

import (
	"bytes"
	"fmt"
	"io"

	"github.com/mewkiz/flac"

	"github.com/abloop-audio/abloop-go/pkg/audio"
)

// FLACDecoder decodes FLAC files
type FLACDecoder struct{}

// Decode converts FLAC bytes into a decoded asset
func (d *FLACDecoder) Decode(data []byte) (*audio.Asset, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse flac stream: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)
	if channels < 1 {
		return nil, fmt.Errorf("flac has no channels")
	}

	var interleaved []float32
	if info.NSamples > 0 {
		interleaved = make([]float32, 0, int(info.NSamples)*channels)
	}

	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("flac decode failed: %w", err)
		}

		n := len(frame.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			for ch := 0; ch < channels; ch++ {
				s := frame.Subframes[ch].Samples[i]
				interleaved = append(interleaved, audio.SampleFromInt(int(s), bitDepth))
			}
		}
	}

	return audio.NewAsset(interleaved, channels, int(info.SampleRate)), nil
}
