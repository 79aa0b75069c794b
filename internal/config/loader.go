package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.yaml.in/yaml/v3"

	"github.com/ekisa-team/voicebox/internal/envvar"
	"github.com/ekisa-team/voicebox/internal/xfs"
)

const schemaURL = "voicebox.v1.schema.json"

//go:embed voicebox.v1.schema.json
var schemaSource string

// Load returns the effective configuration: defaults, then the file at path
// (when non-empty), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		loaded, err := LoadAndValidate(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	ApplyEnv(cfg)
	return cfg, nil
}

// LoadAndValidate reads a YAML or TOML file, validates it against the
// embedded schema and overlays it on the defaults.
func LoadAndValidate(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read config: %w", err)
	}

	var raw any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid TOML: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	}
	if raw == nil {
		raw = map[string]any{}
	}

	// Normalize to plain JSON values so schema validation sees one number type.
	doc, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("config: failed to normalize document: %w", err)
	}

	var normalized any
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	if err := dec.Decode(&normalized); err != nil {
		return nil, fmt.Errorf("config: failed to normalize document: %w", err)
	}

	schema, err := jsonschema.CompileString(schemaURL, schemaSource)
	if err != nil {
		return nil, fmt.Errorf("config: failed to compile schema: %w", err)
	}

	if err := schema.Validate(normalized); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(doc, config); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal into Config struct: %w", err)
	}

	config.Storage.ModelsDir = xfs.ExpandTilde(config.Storage.ModelsDir)
	config.Storage.TempDir = xfs.ExpandTilde(config.Storage.TempDir)

	return config, nil
}

// ApplyEnv applies environment variable overrides.
// Precedence for directories: environment, then file, then defaults.
func ApplyEnv(cfg *Config) {
	if p := os.Getenv(envvar.VoiceboxModelsPath); p != "" {
		cfg.Storage.ModelsDir = xfs.ExpandTilde(p)
	}
	if p := os.Getenv(envvar.VoiceboxTempDir); p != "" {
		cfg.Storage.TempDir = xfs.ExpandTilde(p)
	}
	if l := os.Getenv(envvar.VoiceboxLogLevel); l != "" {
		cfg.Logging.Level = l
	}
}
