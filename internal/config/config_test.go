package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/voicebox/internal/envvar"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "coqui", cfg.TTS.Backend)
	assert.Equal(t, "tts_models/en/ljspeech/tacotron2-DDC", cfg.TTS.Model)
	assert.Equal(t, "tts_models/en/ljspeech/glow-tts", cfg.TTS.FallbackModel)
	assert.Equal(t, "base", cfg.STT.Model)
	assert.Equal(t, 1, cfg.Limits.MaxConcurrentInference)
	assert.Equal(t, 60*time.Second, cfg.Limits.QueueTimeout())
	assert.Equal(t, int64(64<<20), cfg.Server.MaxBodyBytes())
	assert.True(t, cfg.Storage.AutoDownload)
}

func TestLoadAndValidate_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
version: "1"
storage:
  models_dir: /srv/models
  auto_download: false
limits:
  max_concurrent_inference: 2
tts:
  backend: piper
  model: en_US-lessac-medium
  fallback_model: ""
  parameters:
    speaker_id: 2
    noise_scale: 0.5
`)

	cfg, err := LoadAndValidate(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/models", cfg.Storage.ModelsDir)
	assert.False(t, cfg.Storage.AutoDownload)
	assert.Equal(t, 2, cfg.Limits.MaxConcurrentInference)
	assert.Equal(t, 120, cfg.Limits.InferenceTimeoutSeconds, "unset fields keep defaults")
	assert.Equal(t, "piper", cfg.TTS.Backend)
	assert.Empty(t, cfg.TTS.FallbackModel)
	assert.Equal(t, float64(2), cfg.TTS.Parameters["speaker_id"])
	assert.Equal(t, "whisper.cpp", cfg.STT.Backend)
}

func TestLoadAndValidate_TOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
version = "1"

[server]
rate_limit_per_minute = 30

[stt]
model = "small.en"
ffmpeg_path = "/usr/bin/ffmpeg"

[stt.parameters]
language = "en"
threads = 4
`)

	cfg, err := LoadAndValidate(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Server.RateLimitPerMinute)
	assert.Equal(t, "small.en", cfg.STT.Model)
	assert.Equal(t, "/usr/bin/ffmpeg", cfg.STT.FFmpegPath)
	assert.Equal(t, "en", cfg.STT.Parameters["language"])
	assert.Equal(t, float64(4), cfg.STT.Parameters["threads"])
}

func TestLoadAndValidate_EmptyFileUsesDefaults(t *testing.T) {
	cfg, err := LoadAndValidate(writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default().TTS, cfg.TTS)
}

func TestLoadAndValidate_SchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown backend", "tts:\n  backend: festival\n"},
		{"unknown key", "tts:\n  voice: alice\n"},
		{"zero concurrency", "limits:\n  max_concurrent_inference: 0\n"},
		{"wrong type", "server:\n  port: eighty\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadAndValidate(writeFile(t, "config.yaml", tt.content))
			assert.ErrorContains(t, err, "validation failed")
		})
	}
}

func TestLoadAndValidate_Errors(t *testing.T) {
	_, err := LoadAndValidate(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")

	_, err = LoadAndValidate(writeFile(t, "broken.yaml", "tts: [unclosed"))
	assert.ErrorContains(t, err, "invalid YAML")

	_, err = LoadAndValidate(writeFile(t, "broken.toml", "tts = = 1"))
	assert.ErrorContains(t, err, "invalid TOML")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(envvar.VoiceboxModelsPath, "/env/models")
	t.Setenv(envvar.VoiceboxTempDir, "/env/tmp")
	t.Setenv(envvar.VoiceboxLogLevel, "debug")

	cfg, err := Load(writeFile(t, "config.yaml", "storage:\n  models_dir: /file/models\n"))
	require.NoError(t, err)

	assert.Equal(t, "/env/models", cfg.Storage.ModelsDir)
	assert.Equal(t, "/env/tmp", cfg.Storage.TempDir)
	assert.Equal(t, "debug", cfg.Logging.Level)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "/env/models", cfg.Storage.ModelsDir)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeFile(t, "config.yaml", "limits:\n  max_concurrent_inference: 1\n")

	var reloaded atomic.Int32
	w, err := NewWatcher(path, func(cfg *Config, err error) {
		if err == nil && cfg.Limits.MaxConcurrentInference == 3 {
			reloaded.Store(1)
		}
	})
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, 1, w.Snapshot().Limits.MaxConcurrentInference)

	require.NoError(t, os.WriteFile(path, []byte("limits:\n  max_concurrent_inference: 3\n"), 0o644))

	assert.Eventually(t, func() bool { return reloaded.Load() == 1 }, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, 3, w.Snapshot().Limits.MaxConcurrentInference)
	assert.GreaterOrEqual(t, w.ReloadCount(), uint32(1))
}
