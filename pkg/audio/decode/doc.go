// Package decode turns encoded audio file bytes into decoded sample
// assets. The container is identified by sniffing magic bytes; WAV,
// MP3, FLAC, and Ogg Vorbis are supported.
package decode
