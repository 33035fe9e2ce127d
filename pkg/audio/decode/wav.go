// ABOUTME: WAV audio decoder
// ABOUTME: Decodes RIFF/WAVE PCM to a float32 asset
package decode

import (
	"bytes"
	"fmt"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/abloop-audio/abloop-go/pkg/audio"
)

// WAVDecoder decodes RIFF/WAVE PCM files
type WAVDecoder struct{}

// Decode converts WAV bytes into a decoded asset
func (d *WAVDecoder) Decode(data []byte) (*audio.Asset, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav decode failed: %w", err)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}
	return assetFromIntBuffer(buf, bitDepth)
}

// assetFromIntBuffer converts a go-audio integer PCM buffer to a
// float32 asset
func assetFromIntBuffer(buf *gaudio.IntBuffer, bitDepth int) (*audio.Asset, error) {
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("wav has no channels")
	}

	interleaved := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		interleaved[i] = audio.SampleFromInt(s, bitDepth)
	}

	return audio.NewAsset(interleaved, buf.Format.NumChannels, buf.Format.SampleRate), nil
}
