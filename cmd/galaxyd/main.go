package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"ukodus-galaxy/application/services"
	"ukodus-galaxy/application/store"
	"ukodus-galaxy/infrastructure/config"
	"ukodus-galaxy/infrastructure/live"
	"ukodus-galaxy/infrastructure/upstream"
	"ukodus-galaxy/interfaces/http/rest"
	"ukodus-galaxy/pkg/observability"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	// Metrics
	var registry *prometheus.Registry
	var metrics *observability.Metrics
	if cfg.EnableMetrics {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())
		metrics = observability.NewMetrics(registry)
	}

	// Similarity weights, hot-reloaded from disk when configured
	weights, err := config.NewWeightsWatcher(cfg.WeightsPath, logger)
	if err != nil {
		logger.Fatal("Failed to start weights watcher", zap.Error(err))
	}
	defer weights.Stop()

	synthesizer := services.NewEdgeSynthesizer(weights.Current(), logger)
	weights.OnChange(synthesizer.SetWeights)

	graphStore := store.New(synthesizer, logger, metrics)

	// Initial dataset load; a failure degrades to an empty galaxy
	client := upstream.NewClient(cfg.UpstreamBaseURL, cfg.FetchAttempts, cfg.FetchBackoff, logger, metrics)
	go loadInitialDataset(ctx, client, graphStore, logger)

	// Live update channel
	channel := live.NewChannel(cfg.LiveURL, cfg.ReconnectDelay, graphStore, logger, metrics)
	go channel.Run(ctx)

	// REST surface for derived views
	router := rest.NewRouter(graphStore, registry, logger, cfg.EnableCORS)
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}
}

// loadInitialDataset fetches the overview and the aggregate counters,
// applying the overview unless the store was reset while the fetch was
// in flight. Counters are optional; a stats failure never degrades the
// graph.
func loadInitialDataset(ctx context.Context, client *upstream.Client, graphStore *store.GraphStore, logger *zap.Logger) {
	generation := graphStore.Generation()

	overview, err := client.FetchOverview(ctx)
	switch {
	case err != nil:
		logger.Warn("Initial dataset unavailable, starting empty", zap.Error(err))
		graphStore.SetDataset(nil, nil)
	case graphStore.Generation() != generation:
		logger.Info("Discarding superseded fetch result")
		return
	default:
		graphStore.SetDataset(overview.Nodes, overview.Edges)
	}

	if stats, err := client.FetchStats(ctx); err != nil {
		logger.Warn("Upstream stats unavailable", zap.Error(err))
	} else {
		graphStore.SetUpstreamStats(stats)
	}
}

// newLogger selects the zap preset for the environment
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
