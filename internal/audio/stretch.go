package audio

import "math"

// frameMillis is the WSOLA analysis window length.
const frameMillis = 30

// Stretch rates outside this range are clamped, which bounds the output at
// four times the input length.
const (
	MinStretchRate = 0.25
	MaxStretchRate = 4.0
)

// TimeStretch changes the clip duration by 1/rate without changing pitch,
// using waveform-similarity overlap-add (WSOLA). rate > 1 speeds speech up.
// The sample rate is left untouched.
func (c *Clip) TimeStretch(rate float64) *Clip {
	frames := c.Frames()
	if rate == 1 || rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) || frames == 0 {
		return c.clone()
	}
	rate = min(max(rate, MinStretchRate), MaxStretchRate)

	outFrames := int(math.Round(float64(frames) / rate))
	if outFrames == 0 {
		return &Clip{SampleRate: c.SampleRate, Channels: c.Channels}
	}

	n := c.SampleRate * frameMillis / 1000
	n -= n % 2
	if n < 64 {
		n = 64
	}
	hs := n / 2
	ha := float64(hs) * rate
	tol := hs / 2

	guide := c.Mono().Samples
	win := hann(n)
	channels := c.Channels
	out := make([]float64, (outFrames+n)*channels)
	norm := make([]float64, outFrames+n)

	prev := 0
	for k := 0; k*hs < outFrames; k++ {
		ys := k * hs
		start := int(math.Round(float64(k) * ha))
		if k > 0 {
			start = bestAlignment(guide, prev+hs, start, tol, n-hs)
		}

		for i := range n {
			src := start + i
			if src < 0 || src >= frames {
				continue
			}
			w := win[i]
			norm[ys+i] += w
			for ch := range channels {
				out[(ys+i)*channels+ch] += w * c.Samples[src*channels+ch]
			}
		}
		prev = start
	}

	for f := range outFrames {
		if norm[f] < 1e-3 {
			continue
		}
		for ch := range channels {
			out[f*channels+ch] /= norm[f]
		}
	}

	return &Clip{SampleRate: c.SampleRate, Channels: channels, Samples: out[:outFrames*channels]}
}

// bestAlignment searches start±tol for the segment most similar to the
// natural continuation of the previous segment (x[next:next+length]).
func bestAlignment(x []float64, next, start, tol, length int) int {
	if next >= len(x) {
		return start
	}
	if next+length > len(x) {
		length = len(x) - next
	}

	best := start
	bestScore := math.Inf(-1)
	for cand := start - tol; cand <= start+tol; cand++ {
		if cand < 0 || cand+length > len(x) {
			continue
		}

		var score float64
		for i := range length {
			score += x[next+i] * x[cand+i]
		}
		if score > bestScore {
			bestScore = score
			best = cand
		}
	}

	return best
}

// hann returns a periodic Hann window, which sums to one at 50% overlap.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}
