package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ekisa-team/voicebox/internal/audio"
	"github.com/ekisa-team/voicebox/internal/backend"
	"github.com/ekisa-team/voicebox/internal/model"
	"github.com/ekisa-team/voicebox/internal/xfs"
)

const (
	// engineSampleRate is what whisper.cpp expects.
	engineSampleRate = 16000
	defaultLanguage  = "en"
)

// Converter turns arbitrary audio into mono WAV.
type Converter interface {
	ToWAV(ctx context.Context, in, out string, sampleRate int) error
}

// Upload is an uploaded audio file. Open is called once validation passes.
type Upload struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

// NewUpload returns an upload backed by an in-memory reader.
func NewUpload(filename string, r io.Reader) *Upload {
	return &Upload{
		Filename: filename,
		Open:     func() (io.ReadCloser, error) { return io.NopCloser(r), nil },
	}
}

// Transcription is the shaped result of a transcription.
type Transcription struct {
	Text     string            `json:"text"`
	Language string            `json:"language"`
	Duration float64           `json:"duration"`
	Segments []backend.Segment `json:"segments"`
}

// STTOptions configures an STT service.
type STTOptions struct {
	// TempDir is the root under which per-request workspaces are created.
	TempDir string

	// Converter handles non-WAV uploads. Nil passes them to the engine as is.
	Converter Converter

	// Parameters are passed to the engine on every call.
	Parameters map[string]any
}

// STT is a service abstraction for speech-to-text.
type STT struct {
	backend backend.Transcriber
	models  *model.Manager
	slots   *Slots
	opts    STTOptions
}

// NewSTT creates a new STT service.
func NewSTT(b backend.Transcriber, models *model.Manager, slots *Slots, opts STTOptions) *STT {
	return &STT{
		backend: b,
		models:  models,
		slots:   slots,
		opts:    opts,
	}
}

// Model returns the current model snapshot.
func (s *STT) Model() *model.Instance {
	return s.models.Current()
}

// ServiceName returns the engine name reported by health checks.
func (s *STT) ServiceName() string {
	return s.backend.ServiceName()
}

// Models returns the engine's model catalog.
func (s *STT) Models() []string {
	return s.backend.Models()
}

// Transcribe validates the upload and transcribes it. A nil upload means
// the request carried no audio part.
func (s *STT) Transcribe(ctx context.Context, upload *Upload) (*Transcription, error) {
	if !s.models.Loaded() {
		return nil, newError(KindUnavailable, "Model not loaded", nil)
	}

	if upload == nil {
		return nil, newError(KindValidation, "No audio file provided", nil)
	}

	if upload.Filename == "" {
		return nil, newError(KindValidation, "No audio file selected", nil)
	}

	release, err := s.slots.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	ws, err := xfs.NewWorkspace(s.opts.TempDir, "stt-*")
	if err != nil {
		return nil, newError(KindInternal, "Transcription failed", err)
	}
	defer ws.Close()

	src := ws.Path("upload" + uploadExt(upload.Filename))
	if err := saveUpload(src, upload); err != nil {
		return nil, newError(KindInternal, "Transcription failed", err)
	}

	slog.InfoContext(ctx, "Transcribing audio file", "filename", upload.Filename)

	input, duration, err := s.prepare(ctx, ws, src)
	if err != nil {
		slog.ErrorContext(ctx, "Audio preparation error", "error", err)
		return nil, newError(KindInference, "Transcription failed", err)
	}

	tr, err := s.backend.Transcribe(ctx, &backend.TranscriptionRequest{
		AudioPath:    input,
		OutputPrefix: ws.Path("transcript"),
		Parameters:   s.opts.Parameters,
	})
	if err != nil {
		slog.ErrorContext(ctx, "Transcription error", "error", err)
		return nil, newError(KindInference, "Transcription failed", err)
	}

	result := &Transcription{
		Text:     tr.Text,
		Language: tr.Language,
		Duration: tr.Duration,
		Segments: tr.Segments,
	}
	if result.Language == "" {
		result.Language = defaultLanguage
	}
	if result.Duration == 0 {
		result.Duration = duration
	}
	if result.Segments == nil {
		result.Segments = []backend.Segment{}
	}

	return result, nil
}

// prepare returns the file to hand to the engine and the audio length in
// seconds (0 when unknown). WAV is normalized in process; anything else
// goes through the converter when there is one.
func (s *STT) prepare(ctx context.Context, ws *xfs.Workspace, src string) (string, float64, error) {
	out := ws.Path("input.wav")

	clip, err := readClip(src)
	if err != nil {
		if s.opts.Converter == nil {
			slog.DebugContext(ctx, "Upload is not PCM WAV, passing through", "error", err)
			return src, 0, nil
		}

		if err := s.opts.Converter.ToWAV(ctx, src, out, engineSampleRate); err != nil {
			return "", 0, err
		}

		var duration float64
		if converted, err := readClip(out); err == nil {
			duration = converted.Duration()
		}
		return out, duration, nil
	}

	duration := clip.Duration()
	clip = clip.Mono().Resample(engineSampleRate)
	if err := writeClip(out, clip); err != nil {
		return "", 0, err
	}

	return out, duration, nil
}

func saveUpload(path string, upload *Upload) error {
	content, err := upload.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer content.Close()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create upload file: %w", err)
	}

	_, err = io.Copy(f, content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}

	return nil
}

func writeClip(path string, clip *audio.Clip) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}

	err = audio.EncodeWAV(f, clip)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// uploadExt keeps a short alphanumeric extension so engines can sniff the
// container; anything else is dropped.
func uploadExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
