// Package server wires the echo-based HTTP/Unix-socket transport that
// dispatches every incoming request through routing, template
// rendering, and response building.
package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/vvoss-dev/reedcms/internal/obs"
)

// Config controls transport setup.
type Config struct {
	Port            int
	SocketPath      string // when set, listen on a Unix socket instead of TCP
	Debug           bool
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig mirrors the original's defaults: port 8333, CPU-count
// workers (echo has no worker-pool knob of its own — Go's net/http
// already multiplexes goroutines per connection).
func DefaultConfig() Config {
	return Config{
		Port:            8333,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// New builds an echo instance with ReedCMS's standard middleware stack
// and registers the single catch-all dispatch route.
func New(cfg Config, dispatch echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Debug

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${time_rfc3339}] ${status} ${method} ${uri} (${latency_human})\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Gzip())

	e.GET("/*", dispatch)

	return e
}

// Run starts e on the transport cfg describes — a Unix socket when
// cfg.SocketPath is set, TCP on cfg.Port otherwise — and blocks until
// ctx is cancelled, at which point it shuts down gracefully.
func Run(ctx context.Context, e *echo.Echo, cfg Config) error {
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	var listener net.Listener
	var err error
	if cfg.SocketPath != "" {
		listener, err = newSocketListener(cfg.SocketPath)
	} else {
		listener, err = net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", cfg.Port))
	}
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		obs.Logger.WithFields(map[string]any{
			"component": "server",
			"addr":      listener.Addr().String(),
		}).Info("server started")
		serveErr <- e.Server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		obs.Logger.WithField("component", "server").Info("shutting down")
		return e.Shutdown(shutdownCtx)
	case err := <-serveErr:
		return err
	}
}

// newSocketListener removes any stale socket file at path, binds a new
// Unix socket, and sets its permissions to 0666 so a reverse proxy
// running as a different user can connect.
func newSocketListener(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o666); err != nil {
		listener.Close()
		return nil, err
	}
	return listener, nil
}
