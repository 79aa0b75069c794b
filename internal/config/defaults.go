package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Default ports of the two services.
const (
	DefaultTTSPort = 8002
	DefaultSTTPort = 8001
)

// Default returns the built-in configuration. Files, environment and flags
// are layered on top of it.
func Default() *Config {
	return &Config{
		Version: "1",
		Server: ServerConfig{
			Host:        "127.0.0.1",
			CORSOrigins: []string{"*"},
			MaxBodyMB:   64,
		},
		Storage: StorageConfig{
			ModelsDir:    DefaultModelsPath(),
			AutoDownload: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Limits: LimitsConfig{
			MaxConcurrentInference:  1,
			QueueTimeoutSeconds:     60,
			InferenceTimeoutSeconds: 120,
		},
		TTS: TTSConfig{
			Backend:             "coqui",
			Model:               "tts_models/en/ljspeech/tacotron2-DDC",
			FallbackModel:       "tts_models/en/ljspeech/glow-tts",
			BinPath:             "tts-server",
			Port:                5002,
			ReadyTimeoutSeconds: 300,
		},
		STT: STTConfig{
			Backend: "whisper.cpp",
			Model:   "base",
			BinPath: "whisper-cli",
		},
	}
}

// DefaultConfigPath returns the default path for the voicebox config directory.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "voicebox", "config")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "voicebox")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "voicebox")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "voicebox")
		}
		return filepath.Join(home, ".config", "voicebox")
	}
}

// DefaultModelsPath returns the default path for the voicebox models directory.
func DefaultModelsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "voicebox", "models")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Local", "voicebox", "models")
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "voicebox", "models")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			return filepath.Join(xdg, "voicebox", "models")
		}
		return filepath.Join(home, ".cache", "voicebox", "models")
	}
}
