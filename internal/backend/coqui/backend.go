package coqui

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/ekisa-team/voicebox/internal/backend"
	"github.com/ekisa-team/voicebox/internal/mapsafe"
)

const (
	// Provider is the registry key for this backend.
	Provider = backend.BackendProviderCoqui

	serviceName = "coqui-tts"
	processName = "tts-server"
	defaultPort = 5002
)

var catalog = []string{
	"tts_models/en/ljspeech/tacotron2-DDC",
	"tts_models/en/ljspeech/glow-tts",
	"tts_models/en/ljspeech/speedy-speech",
	"tts_models/en/ljspeech/tacotron2-DCA",
	"tts_models/en/vctk/vits",
	"tts_models/en/sam/tacotron-DDC",
}

// Backend implements backend.Synthesizer by driving Coqui's tts-server
// as a sidecar process and calling its HTTP API.
type Backend struct {
	servers      *backend.ServerManager
	client       *http.Client
	binPath      string
	baseURL      string
	port         int
	readyTimeout time.Duration
	useCUDA      bool
	model        string
	mu           sync.RWMutex
}

// New is the registry factory for Coqui.
func New(opts backend.Options) (backend.Synthesizer, error) {
	binPath := opts.BinPath
	if binPath == "" {
		binPath = processName
	}

	port := opts.Port
	if port == 0 {
		port = defaultPort
	}

	servers := opts.Servers
	if servers == nil {
		servers = backend.NewServerManager()
	}

	cfg := backend.ServerConfig{Port: port}
	return &Backend{
		servers:      servers,
		client:       &http.Client{Timeout: opts.Timeout},
		binPath:      binPath,
		baseURL:      cfg.BaseURL(),
		port:         port,
		readyTimeout: opts.ReadyTimeout,
		useCUDA:      opts.UseCUDA,
	}, nil
}

// Provider returns the backend identifier.
func (b *Backend) Provider() backend.BackendProvider {
	return Provider
}

// ServiceName returns the name reported by the health endpoint.
func (b *Backend) ServiceName() string {
	return serviceName
}

// Models returns a subset of the models tts-server can fetch.
func (b *Backend) Models() []string {
	return append([]string(nil), catalog...)
}

// Load starts tts-server with modelID. Coqui downloads its own models.
func (b *Backend) Load(ctx context.Context, modelID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.model == modelID && b.servers.Running(processName, b.port) {
		return modelID, nil
	}
	if b.model != "" {
		_ = b.servers.StopServer(processName, b.port)
		b.model = ""
	}

	args := []string{"--model_name", modelID, "--port", strconv.Itoa(b.port)}
	if b.useCUDA {
		args = append(args, "--use_cuda", "true")
	}

	err := b.servers.StartServer(ctx, backend.ServerConfig{
		Name:         processName,
		BinPath:      b.binPath,
		Args:         args,
		Port:         b.port,
		HealthPath:   "/",
		ReadyTimeout: b.readyTimeout,
	})
	if err != nil {
		return "", fmt.Errorf("coqui: failed to load %s: %w", modelID, err)
	}

	b.model = modelID
	return modelID, nil
}

// Synthesize calls /api/tts and writes the returned WAV to req.OutputPath.
func (b *Backend) Synthesize(ctx context.Context, req *backend.SynthesisRequest) (*backend.ResponseMetadata, error) {
	b.mu.RLock()
	model := b.model
	b.mu.RUnlock()

	if model == "" {
		return nil, backend.ErrModelNotLoaded
	}

	start := time.Now()

	query := url.Values{"text": {req.Text}}
	if v := mapsafe.Get(req.Parameters, "speaker_id", ""); v != "" {
		query.Set("speaker_id", v)
	}
	if v := mapsafe.Get(req.Parameters, "language_id", ""); v != "" {
		query.Set("language_id", v)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/tts?"+query.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("coqui: failed to create request: %w", err)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("coqui: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("coqui: tts-server returned %d: %s", resp.StatusCode, msg)
	}

	f, err := os.Create(req.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("coqui: failed to create output: %w", err)
	}

	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("coqui: failed to write output: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("coqui: tts-server returned no audio")
	}

	return &backend.ResponseMetadata{
		Provider:        Provider,
		Model:           model,
		Timestamp:       time.Now(),
		DurationSeconds: time.Since(start).Seconds(),
		OutputSizeBytes: n,
	}, nil
}

// Close stops the sidecar.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.model == "" {
		return nil
	}
	b.model = ""
	return b.servers.StopServer(processName, b.port)
}
