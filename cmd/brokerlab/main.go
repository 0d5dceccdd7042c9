package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"brokerlab/config"
	"brokerlab/internal/bench"
	"brokerlab/internal/broker"
	"brokerlab/internal/broker/kafkalog"
	"brokerlab/internal/broker/natsq"
	"brokerlab/internal/broker/rabbit"
	"brokerlab/internal/broker/wschan"
	"brokerlab/internal/logger"
	"brokerlab/internal/metrics"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")

	// Optional override flags
	metricsAddrOverride := flag.String("metrics-addr", "", "override metrics server address (empty = use config)")
	metricsPathOverride := flag.String("metrics-path", "", "override metrics endpoint path (empty = use config)")
	benchCountOverride := flag.Int("bench-count", 0, "override default benchmark message count (0 = use config)")

	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg.ApplyOverrides(*metricsAddrOverride, *metricsPathOverride, *benchCountOverride)

	// Initialize logger
	logger, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Setup metrics if enabled
	var metricsService *metrics.Metrics
	var metricsServer *http.Server

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		metricsService, err = metrics.NewMetrics(reg)
		if err != nil {
			logger.Fatal("failed to create metrics service", "error", err)
		}

		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{
			Registry:          reg,
			EnableOpenMetrics: true,
		}))

		metricsServer = &http.Server{
			Addr:    cfg.Metrics.Address,
			Handler: mux,
		}

		go func() {
			logger.Info("starting metrics server",
				"address", cfg.Metrics.Address,
				"path", cfg.Metrics.Path)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	// Register every adapter factory; availability is still decided by
	// which config sections are present.
	registry := broker.NewRegistry(cfg, logger, metricsService)
	registry.Register(broker.KindQueue, natsq.Factory)
	registry.Register(broker.KindAmqp, rabbit.Factory)
	registry.Register(broker.KindLog, kafkalog.Factory)
	registry.Register(broker.KindSocket, wschan.Factory)

	runtime := broker.NewRuntime(registry, logger, metricsService)
	if err := runtime.Initialize(); err != nil {
		logger.Fatal("failed to initialize broker runtime", "error", err)
	}

	// Subscribe to each configured kind's default destination so received
	// messages flow to registered listeners.
	for kind, connected := range runtime.Status() {
		if !connected {
			continue
		}
		destination, err := registry.DefaultDestination(kind)
		if err != nil || destination == "" {
			continue
		}
		if err := runtime.Subscribe(kind, destination); err != nil {
			logger.Error("failed to subscribe to default destination",
				"broker", kind, "destination", destination, "error", err)
		}
	}

	engine := bench.NewEngine(runtime, cfg.Benchmark, logger, metricsService)

	logger.Info("brokerlab started", "status", runtime.Status())

	// Setup signal handlers
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("shutting down", "signal", sig.String())

	engine.Shutdown(10 * time.Second)
	runtime.Shutdown()

	if metricsServer != nil {
		if err := metricsServer.Close(); err != nil {
			logger.Error("failed to close metrics server", "error", err)
		}
	}
}
