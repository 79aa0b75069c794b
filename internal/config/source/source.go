package source

import (
	"context"
	"fmt"
	"os"

	"github.com/ekisa-team/voicebox/internal/config"
)

// Downloader fetches a model repository into a local directory.
type Downloader interface {
	// Download returns the local directory holding the files and whether
	// they were already present.
	Download(ctx context.Context, src config.HuggingFaceSource, targetDir string) (string, bool, error)
}

// GetDownloader returns the downloader for a source type.
func GetDownloader(sourceType config.SourceType) (Downloader, error) {
	switch sourceType {
	case config.SourceTypeHuggingFace:
		return NewHuggingFaceDownloader(), nil
	default:
		return nil, fmt.Errorf("unsupported model source: %s", sourceType)
	}
}

// EnsureModelsDirectory creates the models directory when missing.
func EnsureModelsDirectory(path string) error {
	if path == "" {
		return fmt.Errorf("models directory is not configured")
	}
	return os.MkdirAll(path, 0o755)
}
