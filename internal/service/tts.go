package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/ekisa-team/voicebox/internal/audio"
	"github.com/ekisa-team/voicebox/internal/backend"
	"github.com/ekisa-team/voicebox/internal/model"
	"github.com/ekisa-team/voicebox/internal/xfs"
)

const defaultFormat = "wav"

// SynthesisRequest is the decoded body of a synthesis call. Nil fields were
// absent or null.
type SynthesisRequest struct {
	Text           *string
	ResponseFormat *string
	Speed          *float64

	// Fields present with the wrong JSON type.
	badText, badFormat, badSpeed bool
}

// ParseSynthesisRequest decodes a JSON body. It returns nil when the body
// is not a JSON object.
func ParseSynthesisRequest(body []byte) *SynthesisRequest {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil
	}

	req := &SynthesisRequest{}
	req.Text, req.badText = field[string](fields, "text")
	req.ResponseFormat, req.badFormat = field[string](fields, "response_format")
	req.Speed, req.badSpeed = field[float64](fields, "speed")
	return req
}

// field decodes fields[key] into T. It reports false with a nil value when
// the key is absent or null, and true when the value has another type.
func field[T any](fields map[string]json.RawMessage, key string) (*T, bool) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return nil, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, true
	}
	return &v, false
}

// Speech is a synthesized WAV file.
type Speech struct {
	Audio      []byte
	SampleRate int
	Channels   int
	Duration   float64
}

// TTSOptions configures a TTS service.
type TTSOptions struct {
	// TempDir is the root under which per-request workspaces are created.
	TempDir string

	// Parameters are passed to the engine on every call.
	Parameters map[string]any
}

// TTS is a service abstraction for text-to-speech.
type TTS struct {
	backend backend.Synthesizer
	models  *model.Manager
	slots   *Slots
	opts    TTSOptions
}

// NewTTS creates a new TTS service.
func NewTTS(b backend.Synthesizer, models *model.Manager, slots *Slots, opts TTSOptions) *TTS {
	return &TTS{
		backend: b,
		models:  models,
		slots:   slots,
		opts:    opts,
	}
}

// Model returns the current model snapshot.
func (s *TTS) Model() *model.Instance {
	return s.models.Current()
}

// ServiceName returns the engine name reported by health checks.
func (s *TTS) ServiceName() string {
	return s.backend.ServiceName()
}

// Models returns the engine's model catalog.
func (s *TTS) Models() []string {
	return s.backend.Models()
}

// Synthesize validates req and returns the speech as a 16-bit PCM WAV.
// A nil req means the body was not a JSON object.
func (s *TTS) Synthesize(ctx context.Context, req *SynthesisRequest) (*Speech, error) {
	if !s.models.Loaded() {
		return nil, newError(KindUnavailable, "TTS model not loaded", nil)
	}

	if req == nil || (req.Text == nil && !req.badText) {
		return nil, newError(KindValidation, "No text provided", nil)
	}
	if req.badText {
		return nil, newError(KindValidation, "Text must be a string", nil)
	}

	text := strings.TrimSpace(*req.Text)
	if text == "" {
		return nil, newError(KindValidation, "Empty text provided", nil)
	}

	if req.badFormat {
		return nil, newError(KindValidation, "response_format must be a string", nil)
	}
	if req.ResponseFormat != nil && strings.ToLower(*req.ResponseFormat) != defaultFormat {
		return nil, newError(KindUnsupported, "Unsupported format: "+*req.ResponseFormat, nil)
	}

	if req.badSpeed {
		return nil, newError(KindValidation, "Speed must be a number", nil)
	}
	speed := 1.0
	if req.Speed != nil {
		speed = *req.Speed
	}
	if speed <= 0 || math.IsInf(speed, 0) || math.IsNaN(speed) {
		return nil, newError(KindValidation, "Speed must be a positive number", nil)
	}
	if speed < audio.MinStretchRate || speed > audio.MaxStretchRate {
		return nil, newError(KindValidation, fmt.Sprintf("Speed must be between %g and %g", audio.MinStretchRate, audio.MaxStretchRate), nil)
	}

	slog.InfoContext(ctx, "Synthesizing text", "text", preview(text, 50), "speed", speed)

	release, err := s.slots.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	ws, err := xfs.NewWorkspace(s.opts.TempDir, "tts-*")
	if err != nil {
		return nil, newError(KindInternal, "Speech synthesis failed", err)
	}
	defer ws.Close()

	out := ws.Path("speech.wav")
	meta, err := s.backend.Synthesize(ctx, &backend.SynthesisRequest{
		Text:       text,
		OutputPath: out,
		Parameters: s.opts.Parameters,
	})
	if err != nil {
		slog.ErrorContext(ctx, "Speech synthesis error", "error", err)
		return nil, newError(KindInference, "Speech synthesis failed", err)
	}

	clip, err := readClip(out)
	if err != nil {
		slog.ErrorContext(ctx, "Engine produced unreadable audio", "error", err)
		return nil, newError(KindInference, "Speech synthesis failed", err)
	}

	if speed != 1.0 {
		clip = clip.TimeStretch(speed)
	}

	var buf bytes.Buffer
	if err := audio.EncodeWAV(&buf, clip); err != nil {
		return nil, newError(KindInternal, "Speech synthesis failed", err)
	}

	slog.DebugContext(ctx, "Speech synthesized",
		"model", meta.Model,
		"inference_time", meta.DurationSeconds,
		"duration", clip.Duration(),
		"sample_rate", clip.SampleRate,
	)

	return &Speech{
		Audio:      buf.Bytes(),
		SampleRate: clip.SampleRate,
		Channels:   clip.Channels,
		Duration:   clip.Duration(),
	}, nil
}

func readClip(path string) (*audio.Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio: %w", err)
	}
	defer f.Close()

	return audio.DecodeWAV(f)
}

// preview shortens s to n runes for logging.
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
