// ABOUTME: Sink interface for rendered PCM
// ABOUTME: Boundary between the transport and the output device
package transport

// Sink accepts rendered interleaved PCM and plays it. Write provides
// backpressure: it blocks until the sink has buffered the samples, so
// a bounded sink keeps the producer near real time.
type Sink interface {
	// Start prepares the device for the given stream parameters
	Start(sampleRate, channels int) error

	// Write buffers interleaved frames for playback, blocking on backpressure
	Write(pcm []float32) error

	// FramesPlayed reports frames consumed by the device since Start
	FramesPlayed() int64

	// Reset discards all buffered audio immediately
	Reset()

	// Close releases the device
	Close() error
}
