package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/xraph/economy"
	"github.com/xraph/economy/api"
	"github.com/xraph/economy/observability"
)

func newServeCommand(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the job scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, *configPath, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}

func runServe(ctx context.Context, configPath, addr string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))

	a, err := openApp(ctx, configPath, true, economy.WithPlugin(metrics))
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.start(ctx); err != nil {
		return fmt.Errorf("start economy: %w", err)
	}

	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	apiOpts := []api.Option{
		api.WithLogger(a.logger),
		api.WithRequestTimeout(a.cfg.Server.RequestTimeout),
	}
	if a.cfg.Server.Metrics {
		apiOpts = append(apiOpts, api.WithMetrics(reg))
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewServer(a.engine, apiOpts...).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
