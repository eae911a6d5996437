package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"trade-automator/src/baseline"
	"trade-automator/src/config"
	"trade-automator/src/helpers"
	"trade-automator/src/history"
	"trade-automator/src/interfaces"
	"trade-automator/src/logger"
	"trade-automator/src/models"
	"trade-automator/src/network"
	"trade-automator/src/order"
	"trade-automator/src/periodstore"
	"trade-automator/src/server"
	"trade-automator/src/storage"
	"trade-automator/src/stream"
	"trade-automator/src/trigger"
	"trade-automator/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name)

	// Cap the Go heap relative to physical memory
	memLimit := helpers.GetRecommendedMemoryLimit()
	debug.SetMemoryLimit(int64(memLimit) << 20)
	appLogger.Info("Memory Limit set to: %d MB", memLimit)

	// 1. Trigger store
	var store interfaces.ITriggerStore
	var sqliteStore *storage.SQLiteTriggerStore

	switch cfg.Storage.DBType {
	case "postgres":
		store, err = storage.NewPostgresTriggerStore(cfg.MConfig, appLogger)
	default:
		// Default to SQLite
		sqliteStore, err = storage.NewSQLiteTriggerStore(cfg.MConfig, appLogger)
		store = sqliteStore
	}

	if err != nil {
		appLogger.Critical("Failed to init trigger store: %v", err)
	}
	if err := store.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate trigger store: %v", err)
	}
	defer store.Close()

	// 2. Network manager and outbound collaborators
	var netMgr interfaces.INetworkManager = network.NewAsyncNetworkManager(cfg.MConfig, appLogger)
	var historyClient interfaces.IHistoryProvider = history.NewChartClient(cfg.MConfig, netMgr)
	var submitter interfaces.IOrderSubmitter = order.NewRestSubmitter(cfg.MConfig, netMgr)

	// 3. Period state store and baseline calculator
	periods := periodstore.NewStore(cfg.Feed.PeriodRetentionPeriods, appLogger)

	fetchTimeout := time.Duration(cfg.History.TimeoutSeconds) * time.Second
	baselines := baseline.NewCalculator(historyClient, cfg.Trigger.BaselineBars, fetchTimeout, appLogger)

	// 4. Market scheduler over every strategy symbol
	symbols := make([]string, 0, len(cfg.Strategies))
	for _, s := range cfg.Strategies {
		symbols = append(symbols, s.Symbol)
	}
	scheduler := utils.NewMarketScheduler(symbols, appLogger)

	// 5. Trigger evaluation
	evaluator := trigger.NewEvaluator(store, submitter, periods, baselines, appLogger)
	sweeper := trigger.NewSweepRunner(cfg.MConfig, evaluator, historyClient, scheduler, appLogger)

	// 6. Stream ingestion
	streams := stream.NewMultiStreamManager(cfg.MConfig, periods, appLogger)

	// 7. Push hub, channels and server
	hub := server.NewHub(appLogger)

	// Every configured resolution feeds the periods channel.
	var resolutions []int
	seen := make(map[int]bool)
	for _, sc := range cfg.Feed.Streams {
		if !seen[sc.ResolutionSeconds] {
			seen[sc.ResolutionSeconds] = true
			resolutions = append(resolutions, sc.ResolutionSeconds)
		}
	}
	if len(resolutions) == 0 {
		resolutions = []int{60}
	}
	hub.RegisterChannel(server.ChannelPeriods, &server.PeriodsSource{Store: periods, Resolutions: resolutions})
	hub.RegisterChannel(server.ChannelTriggers, &server.TriggersSource{Store: store, Logger: appLogger})

	// Trigger record changes go out as incremental pushes.
	evaluator.Publish = func(rec models.MTriggerRecord) {
		server.PublishTriggerUpdate(hub, rec)
	}

	liveness := server.NewLivenessMonitor(cfg.MConfig, hub, appLogger)
	srv := server.NewPushServer(cfg.MConfig, hub, periods, baselines, streams, store, appLogger)

	// 8. Lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Daily retention cleanup keeps the SQLite file bounded.
	if sqliteStore != nil && cfg.Storage.RetentionDays > 0 {
		go func() {
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := sqliteStore.CleanupOldData(cfg.Storage.RetentionDays); err != nil {
						appLogger.Warning("Retention cleanup failed: %v", err)
					}
				}
			}
		}()
	}

	if err := streams.Start(ctx); err != nil {
		appLogger.Critical("Failed to start streams: %v", err)
	}
	if err := sweeper.Start(ctx); err != nil {
		appLogger.Critical("Failed to start trigger sweeps: %v", err)
	}
	if err := liveness.Start(); err != nil {
		appLogger.Critical("Failed to start liveness monitor: %v", err)
	}

	publisher := server.NewPeriodsPublisher(hub, periods, resolutions, time.Second, appLogger)
	go publisher.Run(ctx)

	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	appLogger.Info("%s started (%d streams, %d strategies)", cfg.Name, len(cfg.Feed.Streams), len(cfg.Strategies))

	// 9. Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	cancel()
	sweeper.Stop()
	liveness.Stop()
	streams.Stop()
	srv.Stop()
	appLogger.Info("Shutdown complete")
}
