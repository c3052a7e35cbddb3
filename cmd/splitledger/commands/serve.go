package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/splitledger/internal/api"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/service"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

func newServeCmd(opts *options) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the splitledger HTTP server",
		Long: `Start the HTTP server. The JSON API is served under /api/v1, with
/health for liveness checks and /metrics for Prometheus.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}

			store, err := sqlite.New(cfg.DBPath)
			if err != nil {
				slog.Error("Failed to initialize storage", "error", err)
				return err
			}
			defer store.Close()
			slog.Info("Storage initialized", "database", cfg.DBPath)

			m := metrics.New()
			handler := api.NewRouter(service.NewLedgerService(store, m), m)

			httpServer := &http.Server{
				Addr:    cfg.Addr(),
				Handler: h2c.NewHandler(handler, &http2.Server{}),
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				figure.NewColorFigure("splitledger", "puffy", "green", true).Print()
				slog.Info("Server starting", "address", httpServer.Addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					slog.Error("Server failed", "error", err)
					return err
				}
				return nil
			case <-ctx.Done():
			}

			slog.Info("Shutting down", "timeout", cfg.ShutdownTimeout)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("HTTP server shutdown failed", "error", err)
				return err
			}
			slog.Info("HTTP server exited gracefully")
			return nil
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (default from PORT)")
	return cmd
}
