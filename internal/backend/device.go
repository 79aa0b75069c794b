package backend

import (
	"bytes"
	"context"
	"time"
)

// CUDAAvailable reports whether nvidia-smi lists at least one GPU.
// e should run nvidia-smi; a nil executor means no GPU.
func CUDAAvailable(ctx context.Context, e *Executor) bool {
	if e == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	stdout, _, err := e.Execute(ctx, []string{"-L"}, nil)
	if err != nil {
		return false
	}

	return bytes.Contains(stdout, []byte("GPU "))
}
