package audio

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// sampleRate is the rate all processed audio is resampled to. It must
// match the rate the transcoder encodes at.
const sampleRate = 48000

// Bounds for FilterSpec.Pitch.
const (
	MinPitch = 0.5
	MaxPitch = 2.0
)

// FilterSpec describes the optional effects applied to a sound before
// playback. The zero value applies no effects.
type FilterSpec struct {
	// Pitch is a playback rate multiplier. 1.0 (or 0, meaning unset)
	// leaves the sound unchanged; 2.0 plays it an octave up at double
	// speed.
	Pitch   float64
	Echo    bool
	Distort bool
}

func (s FilterSpec) pitched() bool {
	return s.Pitch != 0 && s.Pitch != 1
}

// IsZero reports whether the spec applies no effects.
func (s FilterSpec) IsZero() bool {
	return !s.pitched() && !s.Echo && !s.Distort
}

// Validate checks that the spec's parameters are within bounds.
func (s FilterSpec) Validate() error {
	if s.Pitch != 0 && (s.Pitch < MinPitch || s.Pitch > MaxPitch) {
		return fmt.Errorf("pitch %v out of range [%v, %v]", s.Pitch, MinPitch, MaxPitch)
	}
	return nil
}

// Key returns the canonical textual form of the spec. Equivalent specs
// produce identical keys, so cache keys derived from a spec are stable
// across requests.
func (s FilterSpec) Key() string {
	var parts []string
	if s.pitched() {
		parts = append(parts, "pitch="+strconv.FormatFloat(s.Pitch, 'f', -1, 64))
	}
	if s.Echo {
		parts = append(parts, "echo")
	}
	if s.Distort {
		parts = append(parts, "distort")
	}
	return strings.Join(parts, ",")
}

// Args returns the ffmpeg audio filter entries realizing the spec, in
// application order.
func (s FilterSpec) Args() []string {
	var args []string
	if s.pitched() {
		rate := int(math.Round(sampleRate * s.Pitch))
		args = append(args,
			fmt.Sprintf("asetrate=%d", rate),
			fmt.Sprintf("aresample=%d", sampleRate),
		)
	}
	if s.Echo {
		args = append(args, "aecho=0.8:0.9:500:0.3")
	}
	if s.Distort {
		args = append(args, "acrusher=level_in=1:level_out=1:bits=8:mode=log:aa=1")
	}
	return args
}
