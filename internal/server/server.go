// Package server serves a rendered output directory over plain HTTP for local
// preview.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nconklindev/tableview/internal/ui"
)

const (
	ShutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

type Options struct {
	Dir  string
	Host string
	Port int
}

func (o Options) Addr() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// Handler serves files from dir and logs every request at debug level.
func Handler(dir string, logger *slog.Logger) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		files.ServeHTTP(rec, r)
		logger.Debug("Request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote_addr", r.RemoteAddr,
			"duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Run binds opts.Addr, prints the server panel to out and serves until ctx
// is cancelled.
func Run(ctx context.Context, opts Options, logger *slog.Logger, out io.Writer) error {
	ln, err := net.Listen("tcp", opts.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", opts.Addr(), err)
	}

	port := opts.Port
	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}
	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		dir = opts.Dir
	}
	url := "http://" + net.JoinHostPort(opts.Host, strconv.Itoa(port))

	fmt.Fprintln(out, ui.ServerPanel(ui.ServerInfo{
		Directory: dir,
		Host:      opts.Host,
		Port:      port,
		URL:       url,
	}))
	logger.Info("Serving HTTP, press Ctrl+C to stop", "host", opts.Host, "port", port, "url", url)

	return Serve(ctx, ln, Handler(opts.Dir, logger), logger, out)
}

// Serve handles connections on ln, one goroutine per connection, until ctx
// is done. It then shuts the server down, waiting up to ShutdownTimeout for
// in-flight requests.
func Serve(ctx context.Context, ln net.Listener, handler http.Handler, logger *slog.Logger, out io.Writer) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	fmt.Fprintln(out, ui.WarningStyle.Render("Shutting down server..."))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
		return err
	}
	logger.Info("HTTP server stopped")
	return nil
}
