package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cimillas/item-reservations/internal/metrics"
	"github.com/cimillas/item-reservations/internal/ratelimit"
	transporthttp "github.com/cimillas/item-reservations/internal/transport/http"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reclamation sweeper",
		Long: `Run the HTTP API together with the background sweeper that returns
expired holds and hands items to the next user in their waiting queue.

Pending migrations are applied on startup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *RootOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	e, err := setup(startupCtx, cmd, opts)
	if err != nil {
		return err
	}
	defer e.close()
	logger := e.logger

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	svc := e.services(metrics.New(reg))

	deps := transporthttp.Services{
		Catalog:      svc.catalog,
		Reservations: svc.reservations,
		History:      svc.reservations,
		Users:        svc.users,
		Auth:         svc.users,
		Gatherer:     reg,
		Health:       e.backend.ping,
	}
	if e.cfg.Redis.URL != "" {
		limiter, client, err := ratelimit.NewFromURL(startupCtx, e.cfg.Redis.URL, e.cfg.RateLimit.PerMinute, time.Minute)
		if err != nil {
			return err
		}
		defer client.Close()
		deps.Limiter = limiter
		logger.Info("rate limiting enabled", "per_minute", e.cfg.RateLimit.PerMinute)
	} else {
		logger.Warn("REDIS_URL not set, rate limiting disabled")
	}

	server := &http.Server{
		Addr:              ":" + e.cfg.Port,
		Handler:           transporthttp.NewRouter(deps, e.cfg.CORSOrigins, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, stopping server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), e.cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.Info("server stopped")
		return nil
	})
	g.Go(func() error {
		return svc.sweeper.Run(gctx)
	})
	return g.Wait()
}
