package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"listing_engine/api"
	"listing_engine/leads"
	"listing_engine/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, lead consumer and feed exporter",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{logFile: true})
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg

	handler := api.NewHandler(a.listings, a.routing, a.health, cfg.Site())
	server := api.NewServer(cfg.HTTP.Port, handler, a.logger)
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go a.exporter.Run(ctx)
	sched := scheduler.New()
	sched.Add("feed-export", cfg.Export.Cron, a.exporter)
	if cfg.Directory.ImportFile != "" {
		go a.directorySync.Run(ctx)
		sched.Add("directory-sync", cfg.Directory.ImportCron, a.directorySync)
		a.directorySync.Trigger()
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}

	if cfg.Leads.RabbitMQURL != "" {
		consumer := leads.NewConsumer(cfg.Leads, a.routing)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				a.logger.Error("lead consumer stopped", "error", err)
			}
		}()
	} else {
		a.logger.Warn("RABBITMQ_URL not set, lead routing consumer disabled")
	}

	a.logger.Info("engine running, press Ctrl+C to stop")
	select {
	case <-ctx.Done():
	case err := <-errCh:
		a.logger.Error("REST server failed", "error", err)
	}

	a.logger.Info("shutting down")
	sched.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		a.logger.Warn("REST server shutdown", "error", err)
	}
	return nil
}
