package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mfgstream/internal/broker"
	"mfgstream/internal/config"
	"mfgstream/internal/db"
	"mfgstream/internal/metrics"
	"mfgstream/internal/realtime"
	"mfgstream/internal/rule"
	"mfgstream/internal/service"
)

// StartPipeline wires the broker, the ingest pipeline and the broadcast
// feed, then blocks until a shutdown signal. Both consumer loops reconnect
// on their own; this function only handles startup and teardown.
func StartPipeline(ctx context.Context, cfg *config.Config, store *db.ResultStore, hub *realtime.Hub, logger *zap.SugaredLogger, m *metrics.PipelineMetrics) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := broker.NewClient(cfg.KafkaBrokers, cfg.RetryInterval, logger)

	if err := client.WaitForBroker(ctx); err != nil {
		logger.Infow("shutdown before broker became reachable", "error", err)
		return
	}
	logger.Infow("broker reachable", "brokers", cfg.KafkaBrokers)

	for _, topic := range []string{cfg.IngestTopic, cfg.ResultsTopic} {
		if err := client.EnsureTopic(ctx, topic); err != nil {
			// Brokers with auto-creation enabled still serve the topic.
			logger.Warnw("topic declare failed", "topic", topic, "error", err)
		}
	}

	writer := client.NewWriter(cfg.ResultsTopic)
	defer writer.Close()

	ingest := service.NewIngestService(store, rule.NewEvaluator(cfg.PassThreshold), writer, logger, m)
	bcast := service.NewBroadcastService(hub, logger)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ingest.Run(ctx, client, cfg.IngestTopic, cfg.ConsumerGroup)
	}()
	go func() {
		defer wg.Done()
		bcast.Run(ctx, client, cfg.ResultsTopic, cfg.ConsumerGroup+"-broadcast")
	}()
	go func() {
		wg.Wait()
		close(done)
	}()

	// --- Graceful shutdown ---
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigChan:
		logger.Infow("signal received, shutting down consumers", "signal", sig)
		cancel()
	case <-done:
		logger.Info("consumers finished, exiting")
	}

	select {
	case <-done:
		logger.Info("consumers stopped gracefully")
	case <-time.After(30 * time.Second):
		logger.Warn("timeout waiting for consumers to stop")
	}
}
