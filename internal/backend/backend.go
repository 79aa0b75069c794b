package backend

import (
	"context"
	"time"
)

// BackendProvider is a string identifier for a backend provider.
type BackendProvider string

const (
	BackendProviderCoqui      BackendProvider = "coqui"
	BackendProviderPiper      BackendProvider = "piper"
	BackendProviderWhisperCPP BackendProvider = "whisper.cpp"
)

// Backend defines the lifecycle shared by all inference backends.
type Backend interface {
	// Provider returns the backend identifier.
	Provider() BackendProvider

	// ServiceName is the name reported by the health endpoint.
	ServiceName() string

	// Load prepares the model with the given id and returns its resolved location.
	Load(ctx context.Context, modelID string) (string, error)

	// Models returns the fixed catalog of model identifiers the backend knows about.
	Models() []string

	// Close cleans up resources.
	Close() error
}

// Synthesizer is a backend that turns text into a WAV file.
type Synthesizer interface {
	Backend

	// Synthesize writes the synthesized speech to req.OutputPath.
	Synthesize(ctx context.Context, req *SynthesisRequest) (*ResponseMetadata, error)
}

// Transcriber is a backend that turns an audio file into text.
type Transcriber interface {
	Backend

	// Transcribe reads req.AudioPath and returns the transcript.
	Transcribe(ctx context.Context, req *TranscriptionRequest) (*Transcript, error)
}

// SynthesisRequest encapsulates all parameters for a synthesis call.
type SynthesisRequest struct {
	// Text is the input to speak.
	Text string

	// OutputPath is where the engine must write the WAV file.
	OutputPath string

	// Parameters contains backend-specific inference parameters.
	Parameters map[string]any
}

// TranscriptionRequest encapsulates all parameters for a transcription call.
type TranscriptionRequest struct {
	// AudioPath is the audio file to transcribe.
	AudioPath string

	// OutputPrefix is a scratch path (without extension) engines may write results to.
	OutputPrefix string

	// Parameters contains backend-specific inference parameters.
	Parameters map[string]any
}

// Transcript is the result of a transcription.
type Transcript struct {
	Text     string
	Language string
	Duration float64
	Segments []Segment
	Metadata *ResponseMetadata
}

// Segment is a timed piece of a transcript. Times are in seconds.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// ResponseMetadata contains metadata about the response.
type ResponseMetadata struct {
	Provider        BackendProvider `json:"provider"`                   // Backend identifier (e.g. piper, whisper.cpp)
	Model           string          `json:"model"`                      // Model name or path
	Timestamp       time.Time       `json:"timestamp"`                  // When inference completed
	DurationSeconds float64         `json:"inference_time_seconds"`     // Total inference time in seconds
	OutputSizeBytes int64           `json:"output_size_bytes"`          // Size of output payload in bytes
	BackendSpecific map[string]any  `json:"backend_specific,omitempty"` // For non-generic details
}
