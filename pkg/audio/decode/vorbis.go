// ABOUTME: Ogg Vorbis audio decoder
// ABOUTME: Decodes Ogg Vorbis streams to a float32 asset
package decode

import (
	"bytes"
	"fmt"

	"github.com/jfreymuth/oggvorbis"

	"github.com/abloop-audio/abloop-go/pkg/audio"
)

// VorbisDecoder decodes Ogg Vorbis files
type VorbisDecoder struct{}

// Decode converts Ogg Vorbis bytes into a decoded asset
func (d *VorbisDecoder) Decode(data []byte) (*audio.Asset, error) {
	samples, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("vorbis decode failed: %w", err)
	}

	return audio.NewAsset(samples, format.Channels, format.SampleRate), nil
}
