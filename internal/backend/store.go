package backend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/ekisa-team/voicebox/internal/config"
	"github.com/ekisa-team/voicebox/internal/config/source"
	"github.com/ekisa-team/voicebox/internal/xfs"
)

// ModelLocator tells a ModelStore how a backend names and fetches its models.
type ModelLocator interface {
	// ModelFile returns the file name holding the model with the given id.
	ModelFile(id string) string

	// ModelSource returns where the model can be downloaded from.
	ModelSource(id string) config.HuggingFaceSource
}

// ModelStore resolves model ids to files on disk.
type ModelStore struct {
	dir          string
	autoDownload bool
	downloader   source.Downloader
}

// NewModelStore creates a store rooted at dir. A nil downloader disables downloads.
func NewModelStore(dir string, autoDownload bool, downloader source.Downloader) *ModelStore {
	return &ModelStore{
		dir:          dir,
		autoDownload: autoDownload && downloader != nil,
		downloader:   downloader,
	}
}

// Dir returns the models directory.
func (s *ModelStore) Dir() string {
	return s.dir
}

// Resolve returns the path of the model file for id. An id that already
// names an existing file is returned unchanged. Otherwise the models
// directory is searched, then the model is downloaded if allowed.
func (s *ModelStore) Resolve(ctx context.Context, id string, loc ModelLocator) (string, error) {
	if xfs.FileExists(id) {
		return id, nil
	}

	name := loc.ModelFile(id)
	if s.dir != "" {
		path, err := xfs.FindFile(s.dir, name)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to search models directory: %w", err)
		}
	}

	if !s.autoDownload {
		return "", fmt.Errorf("%w: %s (searched %q)", ErrModelNotFound, name, s.dir)
	}

	if err := source.EnsureModelsDirectory(s.dir); err != nil {
		return "", err
	}

	src := loc.ModelSource(id)
	slog.Info("Downloading model", "model", id, "repo", src.Repo, "include", src.Include)

	repoDir, _, err := s.downloader.Download(ctx, src, s.dir)
	if err != nil {
		return "", fmt.Errorf("failed to download model %s: %w", id, err)
	}

	path, err := xfs.FindFile(repoDir, name)
	if err != nil {
		return "", fmt.Errorf("%w: %s not present in %s after download", ErrModelNotFound, name, repoDir)
	}

	return path, nil
}
