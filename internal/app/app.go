// Package app holds the process bootstrap shared by the voicebox services.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ekisa-team/voicebox/internal/backend"
	"github.com/ekisa-team/voicebox/internal/config"
	"github.com/ekisa-team/voicebox/internal/config/source"
	"github.com/ekisa-team/voicebox/internal/env"
	"github.com/ekisa-team/voicebox/internal/logger"
	grpcserver "github.com/ekisa-team/voicebox/internal/server/grpc"
	httpserver "github.com/ekisa-team/voicebox/internal/server/http"
	"github.com/ekisa-team/voicebox/internal/service"
	"github.com/ekisa-team/voicebox/internal/xfs"
)

// Version is reported in the OpenAPI document.
const Version = "0.1.0"

// Flags are the command line options shared by both services.
type Flags struct {
	Host       string
	ConfigPath string
	Port       int
	GRPCPort   int
	Debug      bool

	set map[string]bool
}

// BindFlags registers the shared flags on flags.
func BindFlags(flags *flag.FlagSet, defaultPort int) *Flags {
	f := &Flags{}
	flags.StringVar(&f.Host, "host", "127.0.0.1", "Host to bind the server to")
	flags.IntVar(&f.Port, "port", defaultPort, "Port to run the server on")
	flags.BoolVar(&f.Debug, "debug", false, "Enable debug mode")
	flags.StringVar(&f.ConfigPath, "config", "", "Path to a YAML or TOML config file")
	flags.IntVar(&f.GRPCPort, "grpc-port", 0, "Port for the gRPC health service (0 disables it)")
	return f
}

// Set reports whether the named flag was given on the command line.
func (f *Flags) Set(name string) bool {
	return f.set[name]
}

func (f *Flags) collect(flags *flag.FlagSet) {
	f.set = map[string]bool{}
	flags.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
}

// Runtime is the bootstrapped process state.
type Runtime struct {
	Config *config.Config
	Level  *slog.LevelVar
	Slots  *service.Slots
	Debug  bool

	name    string
	watcher *config.Watcher
}

// Bootstrap loads .env, the configuration and the logger. flags must already be parsed.
func Bootstrap(name string, flags *flag.FlagSet, f *Flags) (*Runtime, error) {
	f.collect(flags)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env", "error", err)
	}

	rt := &Runtime{
		Level: new(slog.LevelVar),
		Slots: service.NewSlots(1, 0),
		name:  name,
	}
	slog.SetDefault(logger.New(env.FromEnv(), logger.WithLevel(rt.Level)))

	path := resolveConfigPath(f)

	var err error
	if path == "" {
		rt.Config, err = config.Load("")
	} else {
		rt.watcher, err = config.NewWatcher(path, rt.reload)
		if err == nil {
			rt.Config = rt.watcher.Snapshot()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg := rt.Config
	applyFlags(cfg, f)
	rt.Debug = cfg.Server.Debug

	slog.SetDefault(logger.New(env.FromEnv(),
		logger.WithLevel(rt.Level),
		logger.WithLogToFile(cfg.Logging.File != ""),
		logger.WithLogFile(xfs.ExpandTilde(cfg.Logging.File)),
		logger.WithRotation(cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups, cfg.Logging.MaxAgeDays),
	))
	rt.applyLevel(cfg)
	rt.Slots.SetLimits(cfg.Limits.MaxConcurrentInference, cfg.Limits.QueueTimeout())

	slog.Info("Configuration loaded",
		"service", name,
		"config", path,
		"debug", rt.Debug,
		"models_dir", cfg.Storage.ModelsDir,
		"max_concurrent_inference", cfg.Limits.MaxConcurrentInference,
	)

	return rt, nil
}

// resolveConfigPath prefers --config, then config.yaml in the default config dir.
func resolveConfigPath(f *Flags) string {
	if f.ConfigPath != "" {
		return xfs.ExpandTilde(f.ConfigPath)
	}

	candidate := filepath.Join(config.DefaultConfigPath(), "config.yaml")
	if xfs.FileExists(candidate) {
		return candidate
	}
	return ""
}

// applyFlags layers explicitly given flags over the configuration. Host and
// port always come from flags when the file leaves them unset.
func applyFlags(cfg *config.Config, f *Flags) {
	if f.Set("host") || cfg.Server.Host == "" {
		cfg.Server.Host = f.Host
	}
	if f.Set("port") || cfg.Server.Port == 0 {
		cfg.Server.Port = f.Port
	}
	if f.Set("grpc-port") {
		cfg.Server.GRPCPort = f.GRPCPort
	}
	if f.Debug {
		cfg.Server.Debug = true
	}
}

func (rt *Runtime) applyLevel(cfg *config.Config) {
	if rt.Debug {
		rt.Level.Set(slog.LevelDebug)
		return
	}
	rt.Level.Set(logger.ParseLevel(cfg.Logging.Level))
}

// reload applies the runtime tunable parts of a changed config file.
func (rt *Runtime) reload(cfg *config.Config, err error) {
	if err != nil {
		slog.Error("Failed to reload config", "error", err)
		return
	}

	rt.applyLevel(cfg)
	rt.Slots.SetLimits(cfg.Limits.MaxConcurrentInference, cfg.Limits.QueueTimeout())

	if old := rt.Config; old != nil && (old.TTS.Model != cfg.TTS.Model || old.STT.Model != cfg.STT.Model ||
		old.TTS.Backend != cfg.TTS.Backend || old.STT.Backend != cfg.STT.Backend) {
		slog.Warn("Model settings changed; restart the service to apply them")
	}

	slog.Info("Config reloaded",
		"level", rt.Level.Level(),
		"max_concurrent_inference", cfg.Limits.MaxConcurrentInference,
		"queue_timeout", cfg.Limits.QueueTimeout(),
	)
}

// ModelStore builds the model store from the storage settings.
func (rt *Runtime) ModelStore() *backend.ModelStore {
	var downloader source.Downloader
	if rt.Config.Storage.AutoDownload {
		d, err := source.GetDownloader(config.SourceTypeHuggingFace)
		if err != nil {
			slog.Warn("Model downloads disabled", "error", err)
		} else {
			downloader = d
		}
	}

	return backend.NewModelStore(rt.Config.Storage.ModelsDir, rt.Config.Storage.AutoDownload, downloader)
}

// RouterOptions returns the HTTP router settings for title.
func (rt *Runtime) RouterOptions(title string) httpserver.RouterOptions {
	return httpserver.RouterOptions{
		Title:              title,
		Version:            Version,
		CORSOrigins:        rt.Config.Server.CORSOrigins,
		RateLimitPerMinute: rt.Config.Server.RateLimitPerMinute,
	}
}

// HandlerOptions returns handler settings shared by both services.
func (rt *Runtime) HandlerOptions() httpserver.HandlerOptions {
	return httpserver.HandlerOptions{
		Debug:        rt.Debug,
		MaxBodyBytes: rt.Config.Server.MaxBodyBytes(),
	}
}

// Serve runs the HTTP server, plus the gRPC health server when a gRPC port
// is configured, until ctx is done or one of them fails.
func (rt *Runtime) Serve(ctx context.Context, handler http.Handler, healthService string, ready grpcserver.Readiness) error {
	srv := rt.Config.Server
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpserver.NewServer(net.JoinHostPort(srv.Host, strconv.Itoa(srv.Port)), handler).Run(ctx)
	})

	if srv.GRPCPort > 0 {
		hs := grpcserver.NewHealthServer(healthService)
		hs.Update(ready)
		g.Go(func() error {
			return hs.Run(ctx, net.JoinHostPort(srv.Host, strconv.Itoa(srv.GRPCPort)))
		})
	}

	return g.Wait()
}

// Close stops the config watcher.
func (rt *Runtime) Close() {
	if rt.watcher != nil {
		if err := rt.watcher.Close(); err != nil {
			slog.Warn("Failed to close config watcher", "error", err)
		}
	}
}
