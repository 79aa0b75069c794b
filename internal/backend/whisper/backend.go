package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ekisa-team/voicebox/internal/backend"
	"github.com/ekisa-team/voicebox/internal/config"
	"github.com/ekisa-team/voicebox/internal/mapsafe"
)

const (
	// Provider is the registry key for this backend.
	Provider = backend.BackendProviderWhisperCPP

	serviceName = "whisper-stt"
	modelsRepo  = "ggerganov/whisper.cpp"
)

var catalog = []string{
	"tiny", "tiny.en",
	"base", "base.en",
	"small", "small.en",
	"medium", "medium.en",
	"large", "large-v1", "large-v2", "large-v3",
}

// Backend implements backend.Transcriber on top of whisper.cpp's CLI.
type Backend struct {
	executor  *backend.Executor
	store     *backend.ModelStore
	modelPath string
	mu        sync.RWMutex
}

// New is the registry factory for whisper.cpp.
func New(opts backend.Options) (backend.Transcriber, error) {
	binPath := opts.BinPath
	if binPath == "" {
		binPath = "whisper-cli"
	}

	executor, err := backend.NewExecutor(binPath, opts.Timeout)
	if err != nil {
		return nil, err
	}

	return NewBackend(executor, opts.Store), nil
}

// NewBackend creates a new whisper.cpp backend.
func NewBackend(executor *backend.Executor, store *backend.ModelStore) *Backend {
	return &Backend{
		executor: executor,
		store:    store,
	}
}

// Provider returns the backend identifier.
func (b *Backend) Provider() backend.BackendProvider {
	return Provider
}

// ServiceName returns the name reported by the health endpoint.
func (b *Backend) ServiceName() string {
	return serviceName
}

// Models returns the whisper size catalog.
func (b *Backend) Models() []string {
	return append([]string(nil), catalog...)
}

// ModelFile maps a size name to its ggml weights file.
func (b *Backend) ModelFile(id string) string {
	id = filepath.Base(id)
	if strings.HasSuffix(id, ".bin") {
		return id
	}
	if id == "large" {
		id = "large-v3"
	}
	return "ggml-" + id + ".bin"
}

// ModelSource returns the Hugging Face location of a ggml model.
func (b *Backend) ModelSource(id string) config.HuggingFaceSource {
	return config.HuggingFaceSource{
		Repo:    modelsRepo,
		Include: []string{b.ModelFile(id)},
	}
}

// Load resolves the ggml weights for modelID.
func (b *Backend) Load(ctx context.Context, modelID string) (string, error) {
	path, err := b.store.Resolve(ctx, modelID, b)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	b.modelPath = path
	b.mu.Unlock()

	return path, nil
}

// Transcribe runs whisper.cpp on req.AudioPath and parses its JSON output.
func (b *Backend) Transcribe(ctx context.Context, req *backend.TranscriptionRequest) (*backend.Transcript, error) {
	b.mu.RLock()
	modelPath := b.modelPath
	b.mu.RUnlock()

	if modelPath == "" {
		return nil, backend.ErrModelNotLoaded
	}

	start := time.Now()
	args := b.buildArgs(req, modelPath)

	_, stderr, err := b.executor.Execute(ctx, args, nil)
	if err != nil {
		return nil, fmt.Errorf("whisper: execution failed: %w\nstderr: %s", err, stderr)
	}

	data, err := os.ReadFile(req.OutputPrefix + ".json")
	if err != nil {
		return nil, fmt.Errorf("whisper: failed to read output: %w", err)
	}

	transcript, err := parseOutput(data)
	if err != nil {
		return nil, err
	}

	transcript.Metadata = &backend.ResponseMetadata{
		Provider:        Provider,
		Model:           modelPath,
		Timestamp:       time.Now(),
		DurationSeconds: time.Since(start).Seconds(),
		OutputSizeBytes: int64(len(data)),
		BackendSpecific: map[string]any{
			"args":   args,
			"stderr": string(stderr),
		},
	}

	return transcript, nil
}

// buildArgs builds whisper-cli command-line arguments.
func (b *Backend) buildArgs(req *backend.TranscriptionRequest, modelPath string) []string {
	p := req.Parameters

	args := []string{
		"-m", modelPath,
		"-f", req.AudioPath,
		"-oj",
		"-of", req.OutputPrefix,
		"-np",
		"-l", mapsafe.Get(p, "language", "auto"),
	}

	if v := mapsafe.Get(p, "threads", 0); v > 0 {
		args = append(args, "-t", strconv.Itoa(v))
	}

	if v := mapsafe.Get(p, "beam_size", 0); v > 0 {
		args = append(args, "-bs", strconv.Itoa(v))
	}

	if mapsafe.Get(p, "translate", false) {
		args = append(args, "-tr")
	}

	if v := mapsafe.Get(p, "prompt", ""); v != "" {
		args = append(args, "--prompt", v)
	}

	return args
}

// Close cleans up resources. whisper.cpp runs per call, nothing to release.
func (b *Backend) Close() error {
	return nil
}

// output mirrors the parts of whisper.cpp's -oj document we use.
type output struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func parseOutput(data []byte) (*backend.Transcript, error) {
	var out output
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("whisper: invalid output: %w", err)
	}

	t := &backend.Transcript{
		Language: out.Result.Language,
		Segments: make([]backend.Segment, 0, len(out.Transcription)),
	}

	var text strings.Builder
	for i, seg := range out.Transcription {
		t.Segments = append(t.Segments, backend.Segment{
			ID:    i,
			Start: float64(seg.Offsets.From) / 1000,
			End:   float64(seg.Offsets.To) / 1000,
			Text:  seg.Text,
		})
		text.WriteString(seg.Text)
	}
	t.Text = strings.TrimSpace(text.String())

	return t, nil
}
