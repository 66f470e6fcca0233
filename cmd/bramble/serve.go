package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Ramsey-B/bramble/internal/startup"
	"github.com/Ramsey-B/bramble/pkg/kafka"
	"github.com/Ramsey-B/bramble/pkg/routes"
	"github.com/Ramsey-B/bramble/pkg/routes/health"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(version string) *cobra.Command {
	var noWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API, the record event consumer and the periodic dedup worker",
		Long: `Starts the HTTP admin API and, when enabled, consumes record change events
from Kafka. Records flagged update_needed are deduplicated every DEDUP_INTERVAL.`,
		Example: `  # Run everything
  bramble serve

  # API and consumer only
  bramble serve --no-worker`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appOptions{migrate: true, engine: true})
			if err != nil {
				return err
			}
			defer a.close()
			return serve(cmd.Context(), a, version, !noWorker)
		},
	}

	cmd.Flags().BoolVar(&noWorker, "no-worker", false, "Do not run the periodic dedup batch")

	return cmd
}

func serve(ctx context.Context, a *app, version string, worker bool) error {
	cfg, logger := a.cfg, a.logger

	// The processor only exists once the engine dependency has started.
	var consumer *kafka.Consumer
	var reporter health.Reporter
	if cfg.KafkaConsumerEnabled {
		consumer = kafka.NewConsumer(*cfg, logger, func(ctx context.Context, msg *kafka.IncomingMessage) error {
			return a.processor.ProcessMessage(ctx, msg)
		})
		reporter = consumer
		a.startup.Add(startup.Func{
			ID:       depConsumer,
			Requires: []string{depEngine},
			OnStart:  consumer.Start,
			OnStop:   func(context.Context) error { return consumer.Stop() },
		})
	}

	if err := a.start(ctx); err != nil {
		return err
	}

	checker := health.NewChecker(a.conn, reporter, version)
	router := routes.NewRouter(cfg, logger, checker, a.store, a.engine)
	server := routes.NewServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithFields(map[string]any{"addr": server.Addr}).Info("Bramble API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if worker {
		g.Go(func() error {
			return a.processor.Run(gctx, cfg.DedupInterval)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		checker.SetReady(false)
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	checker.SetReady(true)
	return g.Wait()
}
