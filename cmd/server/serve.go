package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lifestyle-api/internal/config"
	"lifestyle-api/internal/factory"
	"lifestyle-api/internal/tls"
)

const shutdownTimeout = 30 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	f, err := factory.NewFactory(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize factory: %w", err)
	}
	defer f.Close()

	servers := newServers(cfg, f.Router(), f.TLSManager())

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func() {
			logger.Info("Starting server",
				zap.String("environment", cfg.Environment),
				zap.String("address", srv.Addr),
				zap.Bool("tls", srv.TLSConfig != nil))

			var err error
			if srv.TLSConfig != nil {
				err = srv.ListenAndServeTLS("", "")
			} else {
				err = srv.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server %s: %w", srv.Addr, err)
			}
		}()
	}

	if !cfg.Server.EnableTLS {
		logger.Warn("TLS is disabled", zap.String("environment", cfg.Environment))
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case runErr = <-errCh:
		logger.Error("Server failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shutdown server gracefully", zap.String("address", srv.Addr), zap.Error(err))
		}
	}
	logger.Info("Server shutdown completed")

	return runErr
}

// newServers returns the API server, plus a plain HTTP server answering
// ACME challenges and redirecting to HTTPS when autocert is on.
func newServers(cfg *config.Config, router http.Handler, tlsManager *tls.TLSManager) []*http.Server {
	api := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if !cfg.Server.EnableTLS || tlsManager == nil {
		return []*http.Server{api}
	}

	api.Addr = fmt.Sprintf(":%d", cfg.Server.TLSPort)
	api.TLSConfig = tlsManager.GetTLSConfig()

	servers := []*http.Server{api}
	if acme := tlsManager.AutocertManager(); acme != nil {
		servers = append(servers, &http.Server{
			Addr:              cfg.GetServerAddress(),
			Handler:           acme.HTTPHandler(nil),
			ReadHeaderTimeout: 10 * time.Second,
		})
	}
	return servers
}
