// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MPEG audio to a float32 asset
package decode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/abloop-audio/abloop-go/pkg/audio"
)

// MP3Decoder decodes MPEG layer-3 files
type MP3Decoder struct{}

// Decode converts MP3 bytes into a decoded asset. go-mp3 always emits
// 16-bit little-endian stereo at the source sample rate.
func (d *MP3Decoder) Decode(data []byte) (*audio.Asset, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("mp3 decode failed: %w", err)
	}

	numSamples := len(pcm) / 2
	interleaved := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		interleaved[i] = audio.SampleFromInt16(s)
	}

	return audio.NewAsset(interleaved, 2, dec.SampleRate()), nil
}
