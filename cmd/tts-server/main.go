package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ekisa-team/voicebox/internal/app"
	"github.com/ekisa-team/voicebox/internal/backend"
	"github.com/ekisa-team/voicebox/internal/backend/coqui"
	"github.com/ekisa-team/voicebox/internal/backend/piper"
	"github.com/ekisa-team/voicebox/internal/config"
	"github.com/ekisa-team/voicebox/internal/model"
	httpserver "github.com/ekisa-team/voicebox/internal/server/http"
	"github.com/ekisa-team/voicebox/internal/service"
)

func main() {
	flags := app.BindFlags(flag.CommandLine, config.DefaultTTSPort)
	flag.Parse()

	os.Exit(run(flags))
}

func run(flags *app.Flags) int {
	rt, err := app.Bootstrap("tts-server", flag.CommandLine, flags)
	if err != nil {
		slog.Error("Failed to start", "error", err)
		return 1
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := rt.Config
	cuda := probeCUDA(ctx)

	registry := backend.NewRegistry[backend.Synthesizer]()
	_ = registry.Register(coqui.Provider, coqui.New)
	_ = registry.Register(piper.Provider, piper.New)

	servers := backend.NewServerManager()
	defer servers.StopAll()

	synth, err := registry.New(backend.BackendProvider(cfg.TTS.Backend), backend.Options{
		BinPath:      cfg.TTS.BinPath,
		Port:         cfg.TTS.Port,
		Timeout:      cfg.Limits.InferenceTimeout(),
		ReadyTimeout: cfg.TTS.ReadyTimeout(),
		UseCUDA:      cuda,
		Store:        rt.ModelStore(),
		Servers:      servers,
	})
	if err != nil {
		slog.Error("Failed to create TTS backend", "backend", cfg.TTS.Backend, "providers", registry.Providers(), "error", err)
		return 1
	}
	defer synth.Close()

	models := model.NewManager(model.ModelTypeTTS)
	if _, err := models.Load(ctx, synth, cfg.TTS.Model, cfg.TTS.FallbackModel); err != nil {
		slog.Error("Failed to load TTS model. Exiting.", "error", err)
		return 1
	}

	svc := service.NewTTS(synth, models, rt.Slots, service.TTSOptions{
		TempDir:    cfg.Storage.TempDir,
		Parameters: cfg.TTS.Parameters,
	})

	router, api := httpserver.NewRouter(rt.RouterOptions("Voicebox Speech Synthesis"))
	opts := rt.HandlerOptions()
	opts.CUDAAvailable = cuda
	httpserver.NewTTSHandler(api, svc, opts)

	slog.Info("Starting TTS server", "host", cfg.Server.Host, "port", cfg.Server.Port, "model", models.Current().ID, "cuda", cuda)

	if err := rt.Serve(ctx, router, "voicebox.tts", models); err != nil {
		slog.Error("Server error", "error", err)
		return 1
	}

	return 0
}

// probeCUDA asks nvidia-smi whether a GPU is present.
func probeCUDA(ctx context.Context) bool {
	smi, err := backend.NewExecutor("nvidia-smi", 5*time.Second)
	if err != nil {
		return false
	}
	return backend.CUDAAvailable(ctx, smi)
}
