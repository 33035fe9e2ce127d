// ABOUTME: Decoder interface and container sniffing
// ABOUTME: Dispatches encoded file bytes to the per-format decoders
package decode

import (
	"errors"
	"fmt"

	"github.com/abloop-audio/abloop-go/pkg/audio"
)

// ErrUnknownFormat is returned when the container cannot be identified.
var ErrUnknownFormat = errors.New("unrecognized audio container")

// Decoder decodes a complete encoded file into a sample asset.
type Decoder interface {
	// Decode converts encoded bytes into a decoded asset
	Decode(data []byte) (*audio.Asset, error)
}

// ForData sniffs the container magic and returns a matching decoder.
func ForData(data []byte) (Decoder, error) {
	codec := DetectCodec(data)

	switch codec {
	case "wav":
		return &WAVDecoder{}, nil
	case "mp3":
		return &MP3Decoder{}, nil
	case "flac":
		return &FLACDecoder{}, nil
	case "vorbis":
		return &VorbisDecoder{}, nil
	default:
		return nil, ErrUnknownFormat
	}
}

// Asset decodes file bytes in one step, sniffing the format first.
func Asset(data []byte) (*audio.Asset, error) {
	dec, err := ForData(data)
	if err != nil {
		return nil, err
	}

	asset, err := dec.Decode(data)
	if err != nil {
		return nil, err
	}
	if asset.Frames == 0 {
		return nil, fmt.Errorf("decoded asset has no audio data")
	}
	return asset, nil
}

// DetectCodec identifies the container from its leading magic bytes.
// Returns "" when no known container matches.
func DetectCodec(data []byte) string {
	if len(data) < 4 {
		return ""
	}

	switch {
	case string(data[:4]) == "RIFF":
		return "wav"
	case string(data[:4]) == "fLaC":
		return "flac"
	case string(data[:4]) == "OggS":
		return "vorbis"
	case string(data[:3]) == "ID3":
		return "mp3"
	case data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// Bare MPEG frame sync, no ID3 header
		return "mp3"
	default:
		return ""
	}
}
