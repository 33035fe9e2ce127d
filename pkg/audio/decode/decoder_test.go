// ABOUTME: Tests for decoder dispatch and WAV decoding
// ABOUTME: Uses synthesized RIFF bytes and sniffing tables
package decode

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

// buildWAV synthesizes a minimal 16-bit PCM RIFF/WAVE file.
func buildWAV(samples []int16, channels, sampleRate int) []byte {
	dataSize := len(samples) * 2
	var b bytes.Buffer

	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+dataSize))
	b.WriteString("WAVE")

	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&b, binary.LittleEndian, uint16(channels))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate*channels*2))
	binary.Write(&b, binary.LittleEndian, uint16(channels*2))
	binary.Write(&b, binary.LittleEndian, uint16(16))

	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(dataSize))
	for _, s := range samples {
		binary.Write(&b, binary.LittleEndian, s)
	}

	return b.Bytes()
}

func TestDetectCodec(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"wav", []byte("RIFFxxxxWAVE"), "wav"},
		{"flac", []byte("fLaCxxxx"), "flac"},
		{"ogg", []byte("OggSxxxx"), "vorbis"},
		{"id3", []byte("ID3\x04xxxx"), "mp3"},
		{"mpeg sync", []byte{0xFF, 0xFB, 0x90, 0x00}, "mp3"},
		{"garbage", []byte("nope nope"), ""},
		{"short", []byte{0x01}, ""},
	}

	for _, tc := range cases {
		if got := DetectCodec(tc.data); got != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestDecodeWAVRoundTrip(t *testing.T) {
	// 100 mono frames of a ramp
	samples := make([]int16, 100)
	for i := range samples {
		samples[i] = int16(i * 100)
	}

	asset, err := Asset(buildWAV(samples, 1, 44100))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if asset.SampleRate != 44100 {
		t.Errorf("expected 44100Hz, got %d", asset.SampleRate)
	}
	if asset.Channels != 1 {
		t.Errorf("expected mono, got %d channels", asset.Channels)
	}
	if asset.Frames != 100 {
		t.Errorf("expected 100 frames, got %d", asset.Frames)
	}

	want := float64(samples[50]) / 32768.0
	if math.Abs(float64(asset.Data[0][50])-want) > 1e-4 {
		t.Errorf("frame 50: expected %f, got %f", want, asset.Data[0][50])
	}
}

func TestDecodeWAVStereo(t *testing.T) {
	// Left ramp, right inverted ramp
	samples := make([]int16, 40)
	for i := 0; i < 20; i++ {
		samples[i*2] = int16(i * 1000)
		samples[i*2+1] = int16(-i * 1000)
	}

	asset, err := Asset(buildWAV(samples, 2, 48000))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if asset.Channels != 2 || asset.Frames != 20 {
		t.Fatalf("expected 2ch x 20 frames, got %dch x %d", asset.Channels, asset.Frames)
	}
	if asset.Data[0][5] <= 0 || asset.Data[1][5] >= 0 {
		t.Error("channel deinterleave looks wrong")
	}
}

func TestDecodeUnknownFormat(t *testing.T) {
	_, err := Asset([]byte("this is not audio data"))
	if err != ErrUnknownFormat {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestDecodeCorruptMP3(t *testing.T) {
	// Valid sync word followed by garbage
	data := append([]byte{0xFF, 0xFB}, bytes.Repeat([]byte{0x00}, 16)...)
	if _, err := Asset(data); err == nil {
		t.Error("expected error for corrupt mp3 data")
	}
}

func TestDecodeCorruptFLAC(t *testing.T) {
	data := append([]byte("fLaC"), bytes.Repeat([]byte{0xAB}, 32)...)
	if _, err := Asset(data); err == nil {
		t.Error("expected error for corrupt flac data")
	}
}
