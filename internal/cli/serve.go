package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/insightdelivered/statement-extractor/internal/api"
)

const shutdownGrace = 10 * time.Second

func newServeCommand(e *env) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP upload service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = e.cfg.Server.Addr
			}
			app := newHandler(e).NewApp()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				e.log.WithField("addr", addr).Info("listening")
				errCh <- app.Listen(addr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			e.log.Info("shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return app.ShutdownWithContext(sctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}

func newHandler(e *env) *api.Handler {
	return &api.Handler{
		Extractor: e.pipeline(),
		Open: func(path string) (api.Document, error) {
			doc, err := e.open(path)
			if err != nil {
				return nil, err
			}
			return doc, nil
		},
		Templates:   e.store,
		Gatherer:    e.registry,
		Log:         e.log,
		MaxUploadMB: e.cfg.Server.MaxUploadMB,
		Version:     version,
	}
}
