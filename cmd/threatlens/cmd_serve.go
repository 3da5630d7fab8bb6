package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spektr-org/threatlens/server"
	"github.com/spektr-org/threatlens/store"
)

// shutdownGrace is how long in-flight requests get after a stop signal.
const shutdownGrace = 5 * time.Second

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard as a JSON API",
		Long: `Starts the HTTP API:

  GET  /healthz
  GET  /api/options
  GET  /api/dashboard        default selection
  POST /api/dashboard        selection document in the body
  GET  /metrics

The data file is loaded before listening; the server refuses to start when
it cannot be read. With data.watch enabled, edits to the file are picked up
without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

// serve runs the API until ctx is cancelled, then drains in-flight requests.
func (a *app) serve(ctx context.Context) error {
	a.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	path := a.cfg.Data.Path
	cache := store.NewCache(a.storeOptions()...)
	st, err := cache.Get(path)
	if err != nil {
		return err
	}
	a.logger.Info("data loaded", zap.String("source", st.Source()), zap.Int("records", st.Len()))

	if a.cfg.Data.Watch {
		if err := cache.Watch(ctx); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr: a.cfg.Server.Addr,
		Handler: server.New(cache, path,
			server.WithLogger(a.logger),
			server.WithGatherer(a.reg),
			server.WithDashboardOptions(a.dashboardOptions()...)),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", zap.String("addr", srv.Addr))
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
