package backend

import "errors"

// Error definitions for the backend package.
var (
	ErrNotFound          = errors.New("backend not found in registry")
	ErrAlreadyRegistered = errors.New("backend is already registered in the registry")
	ErrModelNotLoaded    = errors.New("backend has no model loaded")
	ErrModelNotFound     = errors.New("model file not found")
	ErrBinaryNotFound    = errors.New("engine binary not found")
)
