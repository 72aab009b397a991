package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/firms-fire-etl/internal/adapter/firms"
	"github.com/couchcryptid/firms-fire-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/firms-fire-etl/internal/adapter/kafka"
	"github.com/couchcryptid/firms-fire-etl/internal/adapter/ws"
	"github.com/couchcryptid/firms-fire-etl/internal/config"
	"github.com/couchcryptid/firms-fire-etl/internal/layer"
	"github.com/couchcryptid/firms-fire-etl/internal/observability"
	"github.com/couchcryptid/firms-fire-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	params, err := pipeline.NewParamState(pipeline.Params{
		Sources: cfg.Sources,
		Days:    cfg.Days,
		Enabled: cfg.Enabled,
	})
	if err != nil {
		logger.Error("invalid initial params", "error", err)
		os.Exit(1)
	}

	store := layer.NewStore(cfg.Enabled)
	hub := ws.NewHub(store, logger)

	// Kafka layer sink is feature-flagged via KAFKA_ENABLED.
	var writer *kafkaadapter.Writer
	var sink pipeline.LayerSink
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		sink = layer.NewFanout(logger, store, hub, writer)
		logger.Info("kafka layer sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaLayerTopic)
	} else {
		sink = layer.NewFanout(logger, store, hub)
		logger.Info("kafka layer sink disabled")
	}

	status := pipeline.NewStatusBoard(clock, logger)
	status.Subscribe(hub)

	// Toggling the layer only changes visibility; it never refetches.
	params.OnChange(func(c pipeline.ParamChange) {
		if c.EnabledSet && c.Old.Enabled != c.New.Enabled {
			store.SetVisible(c.New.Enabled)
			hub.SetVisible(c.New.Enabled)
		}
	})

	client := firms.NewClient(cfg.FIRMSBaseURL, cfg.FetchTimeout, metrics, logger)
	orchestrator := pipeline.New(client, params, sink, status, logger, metrics, pipeline.Options{
		MapKey:       cfg.FIRMSMapKey,
		BoundingBox:  cfg.BoundingBox,
		DiscardStale: cfg.DiscardStale,
	})
	refresher := pipeline.NewRefresher(orchestrator, params, status, clock, cfg.RefreshInterval, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, orchestrator, httpadapter.API{
		Layer:     store,
		Status:    status,
		Params:    params,
		Refresher: refresher,
		Stream:    hub,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh loop.
	refreshDone := make(chan struct{})
	go func() {
		defer close(refreshDone)
		if err := refresher.Run(ctx); err != nil {
			logger.Error("refresher error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	select {
	case <-refreshDone:
	case <-shutdownCtx.Done():
		logger.Warn("in-flight cycles did not finish before shutdown timeout")
	}
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
