package serve

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wildtrack/mediatag-service/internal/config"
)

// RunningServer is a bound HTTP listener and its server.
type RunningServer struct {
	Port     int
	listener net.Listener
	server   *http.Server
}

// Close drains in-flight requests and closes the listener.
func (r *RunningServer) Close(ctx context.Context) error {
	if err := r.server.Shutdown(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// StartHTTPServer binds the main listener and serves the handler on it.
// Port 0 asks the OS for a free port; the bound port is in RunningServer.Port.
func StartHTTPServer(cfg config.ListenerConfig, handler http.Handler) (*RunningServer, error) {
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("listen failed: %w", err)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	go func() {
		if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", "err", err)
		}
	}()
	return &RunningServer{
		Port:     lis.Addr().(*net.TCPAddr).Port,
		listener: lis,
		server:   srv,
	}, nil
}

// startListener starts a secondary HTTP server (management endpoints).
// Returns the bound address and a shutdown function.
func startListener(cfg config.ListenerConfig, handler http.Handler, name string) (net.Addr, func(context.Context) error, error) {
	running, err := StartHTTPServer(cfg, handler)
	if err != nil {
		return nil, nil, fmt.Errorf("%s listen failed: %w", name, err)
	}

	var closeOnce sync.Once
	closeFn := func(ctx context.Context) error {
		var shutdownErr error
		closeOnce.Do(func() {
			shutdownErr = running.Close(ctx)
		})
		return shutdownErr
	}

	log.Info("Management server listening", "addr", running.listener.Addr())
	return running.listener.Addr(), closeFn, nil
}
