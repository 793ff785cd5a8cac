package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quest-entry-service/cache"
	"quest-entry-service/config"
	"quest-entry-service/handlers"
	"quest-entry-service/logger"
	"quest-entry-service/metrics"
	"quest-entry-service/services"
	"quest-entry-service/store"
	"quest-entry-service/utils"
	"quest-entry-service/workers"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	lg := logger.New("quest-entry-service", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	st, err := store.Open(openCtx, cfg)
	cancel()
	if err != nil {
		lg.Service().WithError(err).Fatal("failed to open entry store")
	}

	var (
		entries store.Store = st
		warmer  workers.Warmer
	)
	if cfg.RedisURL != "" {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rdb, err := cache.Dial(dialCtx, cfg.RedisURL)
		cancel()
		if err != nil {
			lg.Service().WithError(err).Warn("rank cache disabled")
		} else {
			ranked := cache.NewRankedStore(st, rdb, cfg.RankCacheTTL, lg.WithJob("rank-cache"))
			entries, warmer = ranked, ranked
		}
	}
	defer func() {
		if err := entries.Close(); err != nil {
			lg.Service().WithError(err).Warn("failed to close entry store")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svc := services.NewEntryService(entries, lg, m, cfg.RequestTimeout)

	var exporter *workers.SnapshotExporter
	if cfg.Export.Enabled() {
		uploader, err := utils.NewR2Uploader(ctx, cfg.Export)
		if err != nil {
			lg.Service().WithError(err).Fatal("failed to initialize R2 client")
		}
		exporter = workers.NewSnapshotExporter(entries, uploader, cfg.Export.Prefix, lg, m)
		svc.Exporter = exporter
	}

	sched, err := workers.StartScheduler(workers.SchedulerConfig{
		StatsInterval:  cfg.StatsInterval,
		ExportInterval: cfg.Export.Interval,
	}, entries, warmer, exporter, lg, m)
	if err != nil {
		lg.Service().WithError(err).Fatal("failed to start scheduler")
	}

	app := handlers.NewApp(svc, handlers.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AdminToken:     cfg.AdminToken,
		Gatherer:       reg,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			lg.Service().WithError(err).Error("server error")
			stop()
		}
	}()

	lg.Service().WithFields(logrus.Fields{
		"port":    cfg.Port,
		"driver":  cfg.StoreDriver,
		"cache":   warmer != nil,
		"export":  exporter != nil,
		"admin":   cfg.AdminToken != "",
		"origins": cfg.AllowedOrigins,
	}).Info("server running")

	<-ctx.Done()
	lg.Service().Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		lg.Service().WithError(err).Warn("server shutdown incomplete")
	}
	if err := sched.Shutdown(); err != nil {
		lg.Service().WithError(err).Warn("scheduler shutdown incomplete")
	}
}
