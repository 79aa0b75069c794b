// Package audio holds the PCM helpers used around the speech engines:
// WAV decoding and encoding, channel down-mixing, resampling and
// pitch-preserving time-stretching.
package audio

import "errors"

// Error definitions for the audio package.
var (
	ErrNotWAV              = errors.New("audio: not a RIFF/WAVE file")
	ErrUnsupportedEncoding = errors.New("audio: unsupported WAV encoding")
	ErrEmpty               = errors.New("audio: no samples")
)

// Clip is decoded PCM audio. Samples are interleaved and normalized to [-1, 1].
type Clip struct {
	SampleRate int
	Channels   int
	Samples    []float64
}

// Frames returns the number of sample frames (samples per channel).
func (c *Clip) Frames() int {
	if c.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(c.Frames()) / float64(c.SampleRate)
}

// Mono down-mixes the clip to a single channel by averaging.
func (c *Clip) Mono() *Clip {
	if c.Channels == 1 {
		return c.clone()
	}

	frames := c.Frames()
	out := make([]float64, frames)
	for f := range frames {
		var sum float64
		for ch := range c.Channels {
			sum += c.Samples[f*c.Channels+ch]
		}
		out[f] = sum / float64(c.Channels)
	}

	return &Clip{SampleRate: c.SampleRate, Channels: 1, Samples: out}
}

func (c *Clip) clone() *Clip {
	samples := make([]float64, len(c.Samples))
	copy(samples, c.Samples)
	return &Clip{SampleRate: c.SampleRate, Channels: c.Channels, Samples: samples}
}
