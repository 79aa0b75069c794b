package env

import (
	"os"
	"strings"

	"github.com/ekisa-team/voicebox/internal/envvar"
)

// Environment is the deployment environment the process runs in.
type Environment string

const (
	// Development enables human-friendly console output.
	Development Environment = "development"

	// Production switches console output to JSON.
	Production Environment = "production"
)

// FromEnv reads the environment from VOICEBOX_ENV, defaulting to development.
func FromEnv() Environment {
	return Parse(os.Getenv(envvar.VoiceboxEnv))
}

// Parse converts a raw value into an Environment.
func Parse(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prod", "production":
		return Production
	default:
		return Development
	}
}

// IsProduction reports whether e is the production environment.
func (e Environment) IsProduction() bool {
	return e == Production
}
