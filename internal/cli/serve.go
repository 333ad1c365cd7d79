package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tgienger/taskboard/internal/api"
	"github.com/tgienger/taskboard/internal/logging"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON HTTP API",
		Long: `Start the HTTP API.

Examples:
  taskboard serve
  taskboard serve --addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}
			return a.serve(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config http.addr)")
	return cmd
}

func (a *app) serve(ctx context.Context, addr string) error {
	svc, store, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	server := &http.Server{
		Addr: addr,
		Handler: api.NewRouter(svc, api.Options{
			LoginRate:  a.cfg.Auth.LoginRate,
			LoginBurst: a.cfg.Auth.LoginBurst,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logging.Logger.WithField("addr", addr).Info("http server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logging.Logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Logger.WithError(err).Error("http server forced to shut down")
		return err
	}
	logging.Logger.Info("http server stopped")
	return nil
}
