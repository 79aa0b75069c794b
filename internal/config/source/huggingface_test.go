package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/voicebox/internal/config"
)

type recordedCall struct {
	name string
	args []string
}

func fakeRunner(calls *[]recordedCall, failures int) commandFunc {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, recordedCall{name: name, args: args})
		if len(*calls) <= failures {
			return []byte("connection reset"), errors.New("exit status 1")
		}
		return nil, nil
	}
}

func newTestDownloader(run commandFunc) *HuggingFaceDownloader {
	return &HuggingFaceDownloader{command: "hf", run: run}
}

func TestHuggingFaceDownloader_Download(t *testing.T) {
	var calls []recordedCall
	d := newTestDownloader(fakeRunner(&calls, 0))
	dir := t.TempDir()

	src := config.HuggingFaceSource{
		Repo:     "ggerganov/whisper.cpp",
		Revision: "main",
		Include:  []string{"ggml-base.bin"},
	}

	path, cached, err := d.Download(context.Background(), src, dir)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, filepath.Join(dir, "ggerganov/whisper.cpp"), path)

	require.Len(t, calls, 1)
	assert.Equal(t, "hf", calls[0].name)
	assert.Equal(t, []string{
		"download", "ggerganov/whisper.cpp",
		"--local-dir", path,
		"--revision", "main",
		"--include", "ggml-base.bin",
	}, calls[0].args)

	marker, err := os.ReadFile(filepath.Join(path, markerFilename))
	require.NoError(t, err)
	assert.Contains(t, string(marker), "ggerganov/whisper.cpp")

	// Second download is served from the marker.
	path2, cached, err := d.Download(context.Background(), src, dir)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, path, path2)
	assert.Len(t, calls, 1)

	// A different file selection invalidates the marker.
	src.Include = []string{"ggml-small.bin"}
	_, cached, err = d.Download(context.Background(), src, dir)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Len(t, calls, 2)
}

func TestHuggingFaceDownloader_Retries(t *testing.T) {
	var calls []recordedCall
	d := newTestDownloader(fakeRunner(&calls, 2))

	_, _, err := d.Download(context.Background(), config.HuggingFaceSource{Repo: "rhasspy/piper-voices"}, t.TempDir())
	require.NoError(t, err)
	assert.Len(t, calls, 3)
}

func TestHuggingFaceDownloader_GivesUp(t *testing.T) {
	var calls []recordedCall
	d := newTestDownloader(fakeRunner(&calls, defaultMaxRetries))

	_, _, err := d.Download(context.Background(), config.HuggingFaceSource{Repo: "rhasspy/piper-voices"}, t.TempDir())
	assert.ErrorContains(t, err, "after 3 attempts")
	assert.Len(t, calls, defaultMaxRetries)
}

func TestHuggingFaceDownloader_InvalidRepo(t *testing.T) {
	d := newTestDownloader(nil)

	_, _, err := d.Download(context.Background(), config.HuggingFaceSource{Repo: "  "}, t.TempDir())
	assert.ErrorContains(t, err, "invalid repo name")
}

func TestGetDownloader(t *testing.T) {
	d, err := GetDownloader(config.SourceTypeHuggingFace)
	require.NoError(t, err)
	assert.IsType(t, &HuggingFaceDownloader{}, d)

	_, err = GetDownloader("s3")
	assert.Error(t, err)
}

func TestEnsureModelsDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureModelsDirectory(dir))
	assert.DirExists(t, dir)

	assert.Error(t, EnsureModelsDirectory(""))
}
