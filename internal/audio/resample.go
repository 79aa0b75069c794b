package audio

// Resample converts the clip to rate using linear interpolation per channel.
func (c *Clip) Resample(rate int) *Clip {
	if rate <= 0 || rate == c.SampleRate || c.Frames() == 0 {
		out := c.clone()
		if rate > 0 {
			out.SampleRate = rate
		}
		return out
	}

	inFrames := c.Frames()
	outFrames := int(int64(inFrames) * int64(rate) / int64(c.SampleRate))
	if outFrames == 0 {
		return &Clip{SampleRate: rate, Channels: c.Channels}
	}

	step := float64(c.SampleRate) / float64(rate)
	out := make([]float64, outFrames*c.Channels)

	for i := range outFrames {
		srcPos := float64(i) * step
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		for ch := range c.Channels {
			s0 := c.sampleAt(srcIdx, ch)
			s1 := c.sampleAt(srcIdx+1, ch)
			out[i*c.Channels+ch] = s0 + frac*(s1-s0)
		}
	}

	return &Clip{SampleRate: rate, Channels: c.Channels, Samples: out}
}

// sampleAt clamps frame to the last available frame.
func (c *Clip) sampleAt(frame, ch int) float64 {
	last := c.Frames() - 1
	if frame > last {
		frame = last
	}
	if frame < 0 {
		return 0
	}
	return c.Samples[frame*c.Channels+ch]
}
