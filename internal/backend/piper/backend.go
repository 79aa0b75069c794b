package piper

import (
	"context"
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
	Provider = backend.BackendProviderPiper

	serviceName = "piper-tts"
	voicesRepo  = "rhasspy/piper-voices"
)

// catalog lists well-known voices; any other voice file can be loaded by path.
var catalog = []string{
	"en_US-lessac-medium",
	"en_US-amy-medium",
	"en_US-ryan-high",
	"en_GB-alan-medium",
	"de_DE-thorsten-medium",
	"es_ES-davefx-medium",
	"fr_FR-siwis-medium",
}

// Backend implements backend.Synthesizer for Piper TTS.
type Backend struct {
	executor  *backend.Executor
	store     *backend.ModelStore
	modelPath string
	mu        sync.RWMutex
}

// New is the registry factory for Piper.
func New(opts backend.Options) (backend.Synthesizer, error) {
	binPath := opts.BinPath
	if binPath == "" {
		binPath = "piper"
	}

	executor, err := backend.NewExecutor(binPath, opts.Timeout)
	if err != nil {
		return nil, err
	}

	return NewBackend(executor, opts.Store), nil
}

// NewBackend creates a new Piper backend.
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

// Models returns the known voice catalog.
func (b *Backend) Models() []string {
	return append([]string(nil), catalog...)
}

// ModelFile returns the ONNX file name of a voice.
func (b *Backend) ModelFile(id string) string {
	id = filepath.Base(id)
	if strings.HasSuffix(id, ".onnx") {
		return id
	}
	return id + ".onnx"
}

// ModelSource returns the Hugging Face location of a voice and its config.
func (b *Backend) ModelSource(id string) config.HuggingFaceSource {
	file := b.ModelFile(id)
	return config.HuggingFaceSource{
		Repo:    voicesRepo,
		Include: []string{"*/" + file, "*/" + file + ".json"},
	}
}

// Load resolves the voice and checks its JSON config sits next to it.
func (b *Backend) Load(ctx context.Context, modelID string) (string, error) {
	path, err := b.store.Resolve(ctx, modelID, b)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(path + ".json"); err != nil {
		return "", fmt.Errorf("piper: voice config missing for %s: %w", path, err)
	}

	b.mu.Lock()
	b.modelPath = path
	b.mu.Unlock()

	return path, nil
}

// Synthesize writes the speech for req.Text to req.OutputPath.
func (b *Backend) Synthesize(ctx context.Context, req *backend.SynthesisRequest) (*backend.ResponseMetadata, error) {
	b.mu.RLock()
	modelPath := b.modelPath
	b.mu.RUnlock()

	if modelPath == "" {
		return nil, backend.ErrModelNotLoaded
	}

	start := time.Now()
	args := b.buildArgs(req, modelPath)

	// Piper reads text from stdin
	stdout, stderr, err := b.executor.Execute(ctx, args, strings.NewReader(req.Text))
	if err != nil {
		return nil, fmt.Errorf("piper: execution failed: %w\nstderr: %s", err, stderr)
	}

	info, err := os.Stat(req.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("piper: no audio written: %w", err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("piper: empty audio file written")
	}

	return &backend.ResponseMetadata{
		Provider:        Provider,
		Model:           modelPath,
		Timestamp:       time.Now(),
		DurationSeconds: time.Since(start).Seconds(),
		OutputSizeBytes: info.Size(),
		BackendSpecific: map[string]any{
			"stdout": string(stdout),
			"stderr": string(stderr),
			"args":   args,
		},
	}, nil
}

// buildArgs builds Piper command-line arguments.
func (b *Backend) buildArgs(req *backend.SynthesisRequest, modelPath string) []string {
	args := []string{
		"--model", modelPath,
		"--output_file", req.OutputPath,
	}

	p := req.Parameters
	if p == nil {
		return args
	}

	if v := mapsafe.Get(p, "speaker_id", -1); v >= 0 {
		args = append(args, "--speaker", strconv.Itoa(v))
	}

	floatFlags := []struct{ key, flag string }{
		{"length_scale", "--length_scale"},
		{"noise_scale", "--noise_scale"},
		{"noise_w", "--noise_w"},
		{"sentence_silence", "--sentence_silence"},
	}
	for _, f := range floatFlags {
		if v := mapsafe.Get(p, f.key, -1.0); v >= 0 {
			args = append(args, f.flag, fmt.Sprintf("%.2f", v))
		}
	}

	return args
}

// Close cleans up resources. Piper does not have any resources to clean up.
func (b *Backend) Close() error {
	return nil
}
