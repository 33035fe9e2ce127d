// ABOUTME: Loop region and playback parameter types
// ABOUTME: Shared by all engine backends
package engine

// LoopRegion is a loop in asset frame coordinates. The region is
// active only while End > Start; anything else leaves looping off.
type LoopRegion struct {
	Start int64
	End   int64
}

// Active reports whether the region can engage looping
func (r LoopRegion) Active() bool {
	return r.End > r.Start && r.Start >= 0
}

// Frames returns the loop length, or 0 when inactive
func (r LoopRegion) Frames() int64 {
	if !r.Active() {
		return 0
	}
	return r.End - r.Start
}

// RegionFromSeconds converts a loop region in seconds to frames
func RegionFromSeconds(startSec, endSec float64, sampleRate int) LoopRegion {
	return LoopRegion{
		Start: int64(startSec * float64(sampleRate)),
		End:   int64(endSec * float64(sampleRate)),
	}
}

// Params holds the mutable playback parameters read by engines on
// their next processing or scheduling step.
type Params struct {
	Rate    float64
	Volume  float64
	Pitch   float64 // semitones, native engine only
	Looping bool
	Playing bool
}

// DefaultParams returns unity playback parameters
func DefaultParams() Params {
	return Params{Rate: 1.0, Volume: 1.0}
}
