package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meghlabd275-byte/TigerEx--sub007/internal/api"
	"github.com/meghlabd275-byte/TigerEx--sub007/internal/book"
	"github.com/meghlabd275-byte/TigerEx--sub007/internal/config"
	"github.com/meghlabd275-byte/TigerEx--sub007/internal/executor"
	"github.com/meghlabd275-byte/TigerEx--sub007/internal/quote"
	"github.com/meghlabd275-byte/TigerEx--sub007/internal/router"
	"github.com/meghlabd275-byte/TigerEx--sub007/internal/venue"
	"github.com/meghlabd275-byte/TigerEx--sub007/pkg/bus"
	"github.com/meghlabd275-byte/TigerEx--sub007/pkg/journal"
	"github.com/meghlabd275-byte/TigerEx--sub007/pkg/types"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logger := logrus.WithField("component", "main")
	logger.WithFields(logrus.Fields{
		"venues":  cfg.VenueNames,
		"symbols": cfg.Symbols,
	}).Info("starting liquidity router")

	// Venue health tracking and adapters.
	tracker := quote.NewTracker(cfg.VenueNames)
	registry := venue.NewRegistry()
	for _, name := range cfg.VenueNames {
		vcfg, err := venue.LoadConfig(name)
		if err != nil {
			logger.WithError(err).Fatal("invalid venue configuration")
		}
		transport := venue.NewHTTPTransport(vcfg)
		if err := registry.Add(vcfg, venue.NewBaseAdapter(vcfg, transport, tracker)); err != nil {
			logger.WithError(err).Fatal("failed to register venue")
		}
	}

	// Quote cache, aggregated book and planner.
	cache := quote.NewCache(tracker, cfg.QuoteTTL)
	books := book.NewEngine(cache, func(name string) int {
		c, _ := registry.Config(name)
		return c.Priority
	})
	planner := router.NewPlanner(books, tracker, registry, cfg.PlanTTL)

	// Execution coordinator with its audit journal.
	coord := executor.NewCoordinator(registry, planner, executor.Config{
		MaxReplans:     cfg.MaxReplans,
		OrderTimeout:   cfg.OrderTimeout,
		WorkerPoolSize: cfg.WorkerPoolSize,
	})
	defer coord.Close()

	jnl, err := journal.Open(filepath.Join(cfg.DataDir, "journal"), "executions", 0)
	if err != nil {
		logger.WithError(err).Fatal("failed to open execution journal")
	}
	defer jnl.Close()
	coord.SetRecorder(executor.RecorderFunc(func(res *executor.ExecutionResult) error {
		return jnl.Append(res)
	}))

	// Telemetry fan-out on the message bus.
	busClient, err := bus.NewClient(&bus.Config{
		URL:      cfg.NATSURL,
		ClientID: "liquidity-router",
		Streams:  bus.DefaultStreams(),
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to NATS")
	}
	defer busClient.Close()

	tracker.OnTransition(func(h types.VenueHealth) {
		if err := busClient.PublishVenueHealth(h); err != nil {
			logger.WithError(err).Warn("failed to publish venue health")
		}
	})
	coord.OnResult(func(res *executor.ExecutionResult) {
		if err := busClient.PublishExecution(res.Symbol, string(res.Status), res); err != nil {
			logger.WithError(err).Warn("failed to publish execution")
		}
	})

	// Snapshot polling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller := quote.NewPoller(registry, cache, tracker, cfg.Symbols, cfg.RefreshInterval)
	poller.OnQuote(func(q *types.VenueQuote) {
		if err := busClient.PublishQuote(q); err != nil {
			logger.WithError(err).Warn("failed to publish quote")
		}
	})
	poller.Start(ctx)
	defer poller.Stop()

	// HTTP API.
	server := api.NewServer(cfg.ListenAddr, planner, coord, books, tracker)
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("http server failed")
		}
	}()

	// Wait for shutdown signal.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.WithField("signal", sig.String()).Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http shutdown failed")
	}
}
