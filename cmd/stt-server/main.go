package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ekisa-team/voicebox/internal/app"
	"github.com/ekisa-team/voicebox/internal/backend"
	"github.com/ekisa-team/voicebox/internal/backend/ffmpeg"
	"github.com/ekisa-team/voicebox/internal/backend/whisper"
	"github.com/ekisa-team/voicebox/internal/config"
	"github.com/ekisa-team/voicebox/internal/model"
	httpserver "github.com/ekisa-team/voicebox/internal/server/http"
	"github.com/ekisa-team/voicebox/internal/service"
)

func main() {
	flags := app.BindFlags(flag.CommandLine, config.DefaultSTTPort)
	flagModel := flag.String("model", "base", "Whisper model to use")
	flag.Parse()

	os.Exit(run(flags, *flagModel))
}

func run(flags *app.Flags, modelID string) int {
	rt, err := app.Bootstrap("stt-server", flag.CommandLine, flags)
	if err != nil {
		slog.Error("Failed to start", "error", err)
		return 1
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := rt.Config
	if flags.Set("model") || cfg.STT.Model == "" {
		cfg.STT.Model = modelID
	}

	registry := backend.NewRegistry[backend.Transcriber]()
	_ = registry.Register(whisper.Provider, whisper.New)

	tr, err := registry.New(backend.BackendProvider(cfg.STT.Backend), backend.Options{
		BinPath: cfg.STT.BinPath,
		Timeout: cfg.Limits.InferenceTimeout(),
		Store:   rt.ModelStore(),
	})
	if err != nil {
		slog.Error("Failed to create STT backend", "backend", cfg.STT.Backend, "providers", registry.Providers(), "error", err)
		return 1
	}
	defer tr.Close()

	models := model.NewManager(model.ModelTypeSTT)
	if _, err := models.Load(ctx, tr, cfg.STT.Model); err != nil {
		slog.Error("Failed to load Whisper model. Exiting.", "error", err)
		return 1
	}

	opts := service.STTOptions{
		TempDir:    cfg.Storage.TempDir,
		Parameters: cfg.STT.Parameters,
	}
	if conv, err := ffmpeg.New(cfg.STT.FFmpegPath, cfg.Limits.InferenceTimeout()); err == nil {
		opts.Converter = conv
	} else {
		slog.Info("ffmpeg not available, non-WAV uploads are passed to the engine as is", "error", err)
	}

	svc := service.NewSTT(tr, models, rt.Slots, opts)

	router, api := httpserver.NewRouter(rt.RouterOptions("Voicebox Speech Recognition"))
	httpserver.NewSTTHandler(api, svc, rt.HandlerOptions())

	slog.Info("Starting Whisper server", "host", cfg.Server.Host, "port", cfg.Server.Port, "model", cfg.STT.Model)

	if err := rt.Serve(ctx, router, "voicebox.stt", models); err != nil {
		slog.Error("Server error", "error", err)
		return 1
	}

	return 0
}
