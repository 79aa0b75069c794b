package config

import (
	"time"
)

// SourceType represents the type of model source.
type SourceType string

const (
	// SourceTypeHuggingFace represents a Hugging Face model repository source.
	SourceTypeHuggingFace SourceType = "huggingface"
)

// Config holds the configuration shared by the synthesis and transcription services.
type Config struct {
	Version string        `json:"version"           yaml:"version"`
	Server  ServerConfig  `json:"server"            yaml:"server"`
	Storage StorageConfig `json:"storage,omitempty" yaml:"storage,omitempty"`
	Logging LoggingConfig `json:"logging"           yaml:"logging"`
	Limits  LimitsConfig  `json:"limits"            yaml:"limits"`
	TTS     TTSConfig     `json:"tts"               yaml:"tts"`
	STT     STTConfig     `json:"stt"               yaml:"stt"`
}

// ServerConfig holds listener settings. Host and Port are overridden by flags.
type ServerConfig struct {
	Host               string   `json:"host,omitempty"                  yaml:"host,omitempty"`
	Port               int      `json:"port,omitempty"                  yaml:"port,omitempty"`
	GRPCPort           int      `json:"grpc_port,omitempty"             yaml:"grpc_port,omitempty"`
	Debug              bool     `json:"debug,omitempty"                 yaml:"debug,omitempty"`
	CORSOrigins        []string `json:"cors_origins,omitempty"          yaml:"cors_origins,omitempty"`
	MaxBodyMB          int      `json:"max_body_mb,omitempty"           yaml:"max_body_mb,omitempty"`
	RateLimitPerMinute int      `json:"rate_limit_per_minute,omitempty" yaml:"rate_limit_per_minute,omitempty"`
}

// StorageConfig holds model cache and scratch locations.
type StorageConfig struct {
	ModelsDir    string `json:"models_dir,omitempty"    yaml:"models_dir,omitempty"`
	TempDir      string `json:"temp_dir,omitempty"      yaml:"temp_dir,omitempty"`
	AutoDownload bool   `json:"auto_download,omitempty" yaml:"auto_download,omitempty"`
}

// LoggingConfig holds log level and file rotation settings.
type LoggingConfig struct {
	Level      string `json:"level,omitempty"        yaml:"level,omitempty"`
	File       string `json:"file,omitempty"         yaml:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"  yaml:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"  yaml:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty" yaml:"max_age_days,omitempty"`
}

// LimitsConfig bounds inference concurrency and duration.
type LimitsConfig struct {
	MaxConcurrentInference  int `json:"max_concurrent_inference,omitempty"  yaml:"max_concurrent_inference,omitempty"`
	QueueTimeoutSeconds     int `json:"queue_timeout_seconds,omitempty"     yaml:"queue_timeout_seconds,omitempty"`
	InferenceTimeoutSeconds int `json:"inference_timeout_seconds,omitempty" yaml:"inference_timeout_seconds,omitempty"`
}

// TTSConfig configures the synthesis engine.
type TTSConfig struct {
	Backend             string         `json:"backend,omitempty"               yaml:"backend,omitempty"`
	Model               string         `json:"model,omitempty"                 yaml:"model,omitempty"`
	FallbackModel       string         `json:"fallback_model,omitempty"        yaml:"fallback_model,omitempty"`
	BinPath             string         `json:"bin_path,omitempty"              yaml:"bin_path,omitempty"`
	Port                int            `json:"port,omitempty"                  yaml:"port,omitempty"`
	ReadyTimeoutSeconds int            `json:"ready_timeout_seconds,omitempty" yaml:"ready_timeout_seconds,omitempty"`
	Parameters          map[string]any `json:"parameters,omitempty"            yaml:"parameters,omitempty"`
}

// STTConfig configures the transcription engine.
type STTConfig struct {
	Backend    string         `json:"backend,omitempty"     yaml:"backend,omitempty"`
	Model      string         `json:"model,omitempty"       yaml:"model,omitempty"`
	BinPath    string         `json:"bin_path,omitempty"    yaml:"bin_path,omitempty"`
	FFmpegPath string         `json:"ffmpeg_path,omitempty" yaml:"ffmpeg_path,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"  yaml:"parameters,omitempty"`
}

// QueueTimeout returns the inference queue timeout. Zero waits for the request context.
func (l LimitsConfig) QueueTimeout() time.Duration {
	return time.Duration(l.QueueTimeoutSeconds) * time.Second
}

// InferenceTimeout returns the per-call engine timeout.
func (l LimitsConfig) InferenceTimeout() time.Duration {
	return time.Duration(l.InferenceTimeoutSeconds) * time.Second
}

// ReadyTimeout returns how long a sidecar engine may take to become ready.
func (t TTSConfig) ReadyTimeout() time.Duration {
	return time.Duration(t.ReadyTimeoutSeconds) * time.Second
}

// MaxBodyBytes returns the request body cap in bytes.
func (s ServerConfig) MaxBodyBytes() int64 {
	return int64(s.MaxBodyMB) << 20
}

// -------------------------
// Source definitions
// -------------------------

// ModelSource represents a source for a model.
type ModelSource interface {
	Type() SourceType
}

// HuggingFaceSource represents a Hugging Face model repository source.
type HuggingFaceSource struct {
	Repo          string   `json:"repo"                     yaml:"repo"`
	Revision      string   `json:"revision,omitempty"       yaml:"revision,omitempty"`
	RepoType      string   `json:"repo_type,omitempty"      yaml:"repo_type,omitempty"`
	Token         string   `json:"token,omitempty"          yaml:"token,omitempty"`
	Include       []string `json:"include,omitempty"        yaml:"include,omitempty"`
	Exclude       []string `json:"exclude,omitempty"        yaml:"exclude,omitempty"`
	MaxWorkers    int      `json:"max_workers,omitempty"    yaml:"max_workers,omitempty"`
	ForceDownload bool     `json:"force_download,omitempty" yaml:"force_download,omitempty"`
}

// Type returns the Hugging Face source type.
func (h HuggingFaceSource) Type() SourceType {
	return SourceTypeHuggingFace
}
