// Package audio defines the PCM types shared by decoders and playback
// engines: stream formats, decoded sample assets, and the int/float
// sample conversions used at the device boundary.
package audio
