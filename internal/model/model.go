package model

import (
	"time"

	"github.com/ekisa-team/voicebox/internal/backend"
)

// ModelType is the type of a model.
type ModelType string

const (
	// ModelTypeSTT is the type of a speech-to-text model.
	ModelTypeSTT ModelType = "stt"

	// ModelTypeTTS is the type of a text-to-speech model.
	ModelTypeTTS ModelType = "tts"
)

// ModelStatus is the current loading status of a model.
type ModelStatus string

const (
	// ModelStatusUnloaded indicates that the model is not loaded.
	ModelStatusUnloaded ModelStatus = "unloaded"

	// ModelStatusLoading indicates that the model is being loaded.
	ModelStatusLoading ModelStatus = "loading"

	// ModelStatusLoaded indicates that the model is loaded.
	ModelStatusLoaded ModelStatus = "loaded"

	// ModelStatusFailed indicates that the model failed to load.
	ModelStatusFailed ModelStatus = "failed"
)

// Instance is a snapshot of the process model. Instances are never
// mutated once published by a Manager.
type Instance struct {
	LoadedAt *time.Time              `json:"loaded_at,omitempty"`
	ID       string                  `json:"id"`
	Path     string                  `json:"-"`
	Provider backend.BackendProvider `json:"provider"`
	Type     ModelType               `json:"type"`
	Status   ModelStatus             `json:"status"`
	Error    string                  `json:"error,omitempty"`
}

// Loaded reports whether the instance is ready to serve.
func (i *Instance) Loaded() bool {
	return i != nil && i.Status == ModelStatusLoaded
}

func (i Instance) withStatus(status ModelStatus) *Instance {
	i.Status = status
	if status == ModelStatusLoaded {
		now := time.Now()
		i.LoadedAt = &now
	}
	return &i
}

func (i Instance) withError(err error) *Instance {
	i.Status = ModelStatusFailed
	i.Error = err.Error()
	return &i
}
