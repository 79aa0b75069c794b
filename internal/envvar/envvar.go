package envvar

const (
	// VoiceboxEnv is the environment variable used to determine the environment
	VoiceboxEnv = "VOICEBOX_ENV"

	// VoiceboxModelsPath overrides the directory where model files are stored
	VoiceboxModelsPath = "VOICEBOX_MODELS_PATH"

	// VoiceboxTempDir overrides the root directory for per-request workspaces
	VoiceboxTempDir = "VOICEBOX_TEMP_DIR"

	// VoiceboxLogLevel overrides the configured log level
	VoiceboxLogLevel = "VOICEBOX_LOG_LEVEL"
)
