package model

import "errors"

// Error definitions for the model package.
var (
	ErrNoCandidates = errors.New("no model candidates given")
	ErrLoadFailed   = errors.New("every model candidate failed to load")
)
