package ffmpeg

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ekisa-team/voicebox/internal/backend"
)

// Converter turns arbitrary audio into WAV using ffmpeg.
type Converter struct {
	executor *backend.Executor
}

// New creates a converter for the ffmpeg binary at binPath.
func New(binPath string, timeout time.Duration) (*Converter, error) {
	if binPath == "" {
		binPath = "ffmpeg"
	}

	executor, err := backend.NewExecutor(binPath, timeout)
	if err != nil {
		return nil, err
	}

	return NewConverter(executor), nil
}

// NewConverter creates a converter around an executor.
func NewConverter(executor *backend.Executor) *Converter {
	return &Converter{executor: executor}
}

// ToWAV converts in to mono 16-bit PCM at sampleRate and writes it to out.
func (c *Converter) ToWAV(ctx context.Context, in, out string, sampleRate int) error {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
		"-y",
		"-i", in,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		out,
	}

	if _, stderr, err := c.executor.Execute(ctx, args, nil); err != nil {
		return fmt.Errorf("ffmpeg: conversion failed: %w\nstderr: %s", err, stderr)
	}

	return nil
}
