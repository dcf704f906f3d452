package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"annotation-insights/internal/api"
	"annotation-insights/internal/api/handler"
	"annotation-insights/internal/client"
	"annotation-insights/internal/model"
	"annotation-insights/internal/pipeline"
	"annotation-insights/internal/store"
	"annotation-insights/pkg/router"
	"annotation-insights/pkg/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	upstream := newUpstream()
	runner := newRunner(upstream)
	runner.Recorder = st

	h := handler.New(st, runner, upstream, runner.Exporter.Output, logger)
	r := router.New(logger)
	api.RegisterRoutes(r, h)

	err = r.Start(ctx, cfg.Server.Addr)
	logger.Info("Waiting for running analyses")
	h.Wait()
	return err
}

// newUpstream returns nil when no annotation API is configured.
func newUpstream() *client.Client {
	if cfg.Upstream.BaseURL == "" {
		return nil
	}
	return client.New(client.Options{
		BaseURL: cfg.Upstream.BaseURL,
		APIKey:  cfg.Upstream.APIKey,
		Timeout: cfg.GetUpstreamTimeout(),
		Retry:   cfg.GetRetryConfig(),
		Logger:  logger.Named("upstream"),
	})
}

func newRunner(upstream *client.Client) *pipeline.Runner {
	loader := &pipeline.Loader{Logger: logger.Named("loader")}
	if upstream != nil {
		loader.Upstream = upstream
	}
	return &pipeline.Runner{
		Logger:            logger.Named("runner"),
		Loader:            loader,
		Exporter:          &pipeline.Exporter{Output: utils.NewOutputManager(cfg.Output.Dir)},
		DefaultInterval:   model.Interval(cfg.Pipeline.DefaultInterval),
		MaxParallelSplits: cfg.Pipeline.MaxParallelSplits,
		JobTimeout:        cfg.GetJobTimeout(),
	}
}
