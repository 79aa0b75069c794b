package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ekisa-team/voicebox/internal/config"
)

const (
	defaultRetryDelay = 2 * time.Second
	defaultMaxRetries = 3
	defaultTimeout    = 5 * time.Minute
	markerFilename    = ".voicebox-downloaded"
)

// commandFunc runs a command and returns its combined output.
type commandFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// HuggingFaceDownloader downloads a model from Hugging Face with the hf CLI.
type HuggingFaceDownloader struct {
	command    string
	retryDelay time.Duration
	run        commandFunc
}

// NewHuggingFaceDownloader creates a downloader using the hf binary on PATH.
func NewHuggingFaceDownloader() *HuggingFaceDownloader {
	return &HuggingFaceDownloader{
		command:    "hf",
		retryDelay: defaultRetryDelay,
		run:        execCombined,
	}
}

// Download downloads a Hugging Face repository (or the included subset) to local cache.
func (d *HuggingFaceDownloader) Download(ctx context.Context, src config.HuggingFaceSource, targetDir string) (string, bool, error) {
	repo := strings.TrimSpace(src.Repo)
	if repo == "" {
		return "", false, fmt.Errorf("invalid repo name: %q", src.Repo)
	}

	fullPath := filepath.Join(targetDir, repo)
	markerPath := filepath.Join(fullPath, markerFilename)
	markerContent := d.markerContent(src)

	if _, err := os.Stat(markerPath); err == nil && !src.ForceDownload {
		if !d.shouldRedownload(markerPath, markerContent) {
			slog.Info("Model already downloaded and up-to-date (marker match), skipping", "repo", repo, "path", fullPath)
			return fullPath, true, nil
		}
	}

	if err := os.MkdirAll(fullPath, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create directory: %w", err)
	}

	args := d.buildArgs(src, repo, fullPath)

	var lastErr error
	for attempt := range defaultMaxRetries {
		if attempt > 0 {
			slog.Info("Retrying download", "repo", repo, "attempt", attempt+1, "last_error", lastErr)
			select {
			case <-ctx.Done():
				return "", false, fmt.Errorf("download canceled: %w", ctx.Err())
			case <-time.After(d.retryDelay):
			}
		} else {
			slog.Info("Downloading model", "repo", repo, "path", fullPath)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
		output, err := d.run(attemptCtx, d.command, args...)
		attemptErr := attemptCtx.Err()
		cancel()

		if err == nil {
			if err := os.WriteFile(markerPath, []byte(markerContent), 0o644); err != nil {
				slog.Warn("Failed to write download marker", "path", markerPath, "error", err)
			}

			slog.Info("Model downloaded successfully", "repo", repo, "path", fullPath, "attempt", attempt+1)
			return fullPath, false, nil
		}

		lastErr = err
		slog.Error("Failed to download model", "repo", repo, "path", fullPath, "attempt", attempt+1, "error", err, "output", string(output))

		if errors.Is(attemptErr, context.DeadlineExceeded) {
			slog.Warn("Download timed out", "repo", repo, "path", fullPath, "attempt", attempt+1)
		} else if ctx.Err() != nil {
			return "", false, fmt.Errorf("download canceled: %w", err)
		}
	}

	return "", false, fmt.Errorf("failed to download %s after %d attempts: %w", repo, defaultMaxRetries, lastErr)
}

func (d *HuggingFaceDownloader) buildArgs(src config.HuggingFaceSource, repo, fullPath string) []string {
	args := []string{
		"download",
		repo,
		"--local-dir", fullPath,
	}

	if src.Revision != "" {
		args = append(args, "--revision", src.Revision)
	}
	if src.RepoType != "" {
		args = append(args, "--repo-type", src.RepoType)
	}
	for _, inc := range src.Include {
		args = append(args, "--include", inc)
	}
	for _, exc := range src.Exclude {
		args = append(args, "--exclude", exc)
	}
	if src.ForceDownload {
		args = append(args, "--force-download")
	}
	if src.Token != "" {
		args = append(args, "--token", src.Token)
	}
	if src.MaxWorkers > 0 {
		args = append(args, "--max-workers", fmt.Sprintf("%d", src.MaxWorkers))
	}

	return args
}

// markerContent generates the expected content of the marker file.
// A different revision or file selection triggers a new download.
func (d *HuggingFaceDownloader) markerContent(src config.HuggingFaceSource) string {
	return fmt.Sprintf("repo: %s\nrevision: %s\ninclude: %s\n", src.Repo, src.Revision, strings.Join(src.Include, ","))
}

// shouldRedownload checks if the model should be redownloaded by comparing marker content.
func (d *HuggingFaceDownloader) shouldRedownload(markerPath, expectedContent string) bool {
	content, err := os.ReadFile(markerPath)
	if err != nil {
		slog.Debug("Marker file missing or unreadable", "path", markerPath, "error", err)
		return true
	}

	if string(content) != expectedContent {
		slog.Info("Model config changed (marker mismatch), will redownload",
			"marker_path", markerPath,
			"expected_snippet", expectedContent,
			"actual_snippet", string(content))
		return true
	}

	return false
}
