package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

// DecodeWAV reads a PCM WAV stream into a Clip.
func DecodeWAV(r io.ReadSeeker) (*Clip, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrNotWAV
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedEncoding, d.WavAudioFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: failed to read PCM data: %w", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, ErrEmpty
	}

	depth := int(d.BitDepth)
	if depth == 0 {
		depth = buf.SourceBitDepth
	}
	if depth != 8 && depth != 16 && depth != 24 && depth != 32 {
		return nil, fmt.Errorf("%w: %d-bit samples", ErrUnsupportedEncoding, depth)
	}

	scale := math.Pow(2, float64(depth-1))
	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		if depth == 8 {
			// 8-bit WAV is unsigned
			samples[i] = (float64(v) - 128) / 128
			continue
		}
		samples[i] = float64(v) / scale
	}

	return &Clip{
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		Samples:    samples,
	}, nil
}

// EncodeWAV writes the clip as 16-bit PCM WAV.
func EncodeWAV(w io.Writer, c *Clip) error {
	if c.Channels <= 0 || c.SampleRate <= 0 {
		return fmt.Errorf("audio: invalid clip format (%d channels, %d Hz)", c.Channels, c.SampleRate)
	}

	const bitsPerSample = 16
	blockAlign := c.Channels * bitsPerSample / 8
	dataSize := len(c.Samples) * 2

	if err := writeWAVHeader(w, c.SampleRate, c.Channels, blockAlign, dataSize); err != nil {
		return fmt.Errorf("audio: failed to write WAV header: %w", err)
	}

	pcm := make([]byte, dataSize)
	for i, s := range c.Samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(toInt16(s)))
	}
	if _, err := w.Write(pcm); err != nil {
		return fmt.Errorf("audio: failed to write PCM data: %w", err)
	}

	return nil
}

// writeWAVHeader writes the 44-byte canonical header for 16-bit PCM.
func writeWAVHeader(w io.Writer, sampleRate, channels, blockAlign, dataSize int) error {
	header := make([]byte, 44)
	copy(header[0:], "RIFF")
	binary.LittleEndian.PutUint32(header[4:], uint32(36+dataSize))
	copy(header[8:], "WAVE")
	copy(header[12:], "fmt ")
	binary.LittleEndian.PutUint32(header[16:], 16)
	binary.LittleEndian.PutUint16(header[20:], wavFormatPCM)
	binary.LittleEndian.PutUint16(header[22:], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(header[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:], 16)
	copy(header[36:], "data")
	binary.LittleEndian.PutUint32(header[40:], uint32(dataSize))

	_, err := w.Write(header)
	return err
}

func toInt16(s float64) int16 {
	switch {
	case math.IsNaN(s):
		return 0
	case s >= 1:
		return math.MaxInt16
	case s <= -1:
		return -math.MaxInt16
	}
	return int16(math.Round(s * math.MaxInt16))
}

// IsWAV reports whether data starts with a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}
