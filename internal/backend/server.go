package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"time"
)

const defaultServerHost = "127.0.0.1"

// ServerManager manages server processes.
type ServerManager struct {
	servers map[string]*ServerProcess
	client  *http.Client
	poll    time.Duration
	mu      sync.Mutex
}

// ServerProcess represents a server running process.
type ServerProcess struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	exited chan struct{}
}

// ServerConfig defines how to start and check a backend server.
type ServerConfig struct {
	Env          map[string]string
	Name         string
	BinPath      string
	Host         string
	HealthPath   string
	Args         []string
	Port         int
	ReadyTimeout time.Duration
}

// BaseURL returns the address the server listens on.
func (c ServerConfig) BaseURL() string {
	host := c.Host
	if host == "" {
		host = defaultServerHost
	}
	return fmt.Sprintf("http://%s:%d", host, c.Port)
}

// NewServerManager initializes a ServerManager.
func NewServerManager() *ServerManager {
	return &ServerManager{
		servers: map[string]*ServerProcess{},
		client:  &http.Client{Timeout: 1 * time.Second},
		poll:    1 * time.Second,
	}
}

func serverKey(name string, port int) string {
	return fmt.Sprintf("%s-%d", name, port)
}

// StartServer starts a backend server and blocks until its health path
// answers 200, the process exits, the ready timeout elapses or ctx is done.
// The process itself outlives ctx.
func (sm *ServerManager) StartServer(ctx context.Context, cfg ServerConfig) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	key := serverKey(cfg.Name, cfg.Port)
	if _, exists := sm.servers[key]; exists {
		return nil // Already running
	}

	binPath, err := exec.LookPath(cfg.BinPath)
	if err != nil {
		return fmt.Errorf("manager: failed to start %s server: %w: %w", cfg.Name, ErrBinaryNotFound, err)
	}

	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, binPath, cfg.Args...)
	cmd.Stdout = &logWriter{name: cfg.Name, stream: "stdout"}
	cmd.Stderr = &logWriter{name: cfg.Name, stream: "stderr"}

	if len(cfg.Env) > 0 {
		env := os.Environ()
		for k, v := range cfg.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		cmd.Env = env
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("manager: failed to start %s server: %w", cfg.Name, err)
	}

	proc := &ServerProcess{cmd: cmd, cancel: cancel, exited: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(proc.exited)
	}()

	healthPath := cfg.HealthPath
	if healthPath == "" {
		healthPath = "/health"
	}

	timeout := cfg.ReadyTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	slog.Info("Waiting for server", "name", cfg.Name, "url", cfg.BaseURL(), "timeout", timeout)
	if err := sm.waitForServer(ctx, cfg.BaseURL()+healthPath, timeout, proc.exited); err != nil {
		cancel()
		<-proc.exited
		return fmt.Errorf("manager: %s server did not become ready: %w", cfg.Name, err)
	}

	sm.servers[key] = proc

	slog.Info("Server started", "name", cfg.Name, "port", cfg.Port, "pid", cmd.Process.Pid)
	return nil
}

// Running reports whether the named server is alive.
func (sm *ServerManager) Running(name string, port int) bool {
	sm.mu.Lock()
	srv, ok := sm.servers[serverKey(name, port)]
	sm.mu.Unlock()
	if !ok {
		return false
	}

	select {
	case <-srv.exited:
		return false
	default:
		return true
	}
}

// StopServer terminates a backend server.
func (sm *ServerManager) StopServer(name string, port int) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	key := serverKey(name, port)
	srv, exists := sm.servers[key]
	if !exists {
		return fmt.Errorf("server %s not found", key)
	}

	srv.stop()
	delete(sm.servers, key)
	slog.Info("Server stopped", "name", name, "port", port)
	return nil
}

// StopAll terminates all running servers.
func (sm *ServerManager) StopAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for _, srv := range sm.servers {
		srv.stop()
	}
	sm.servers = map[string]*ServerProcess{}

	slog.Info("All servers stopped")
}

func (p *ServerProcess) stop() {
	p.cancel()
	select {
	case <-p.exited:
	case <-time.After(5 * time.Second):
		slog.Error("Server process did not exit after kill", "pid", p.cmd.Process.Pid)
	}
}

// waitForServer polls url until it answers 200.
func (sm *ServerManager) waitForServer(ctx context.Context, url string, timeout time.Duration, exited <-chan struct{}) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(sm.poll)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := sm.client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-exited:
			return errors.New("process exited before becoming ready")
		case <-deadline.C:
			return fmt.Errorf("server failed to respond at %s within %v", url, timeout)
		case <-ticker.C:
		}
	}
}

// logWriter forwards sidecar output to the logger line by line.
type logWriter struct {
	name   string
	stream string
	buf    bytes.Buffer
	mu     sync.Mutex
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadBytes('\n')
		if err != nil {
			// Keep the partial line for the next write.
			w.buf.Reset()
			w.buf.Write(line)
			break
		}
		slog.Debug("Server output", "name", w.name, "stream", w.stream, "line", string(bytes.TrimRight(line, "\r\n")))
	}
	return len(p), nil
}

