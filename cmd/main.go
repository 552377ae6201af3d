package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"mfgstream/internal/api"
	"mfgstream/internal/app"
	"mfgstream/internal/config"
	"mfgstream/internal/db"
	"mfgstream/internal/metrics"
	"mfgstream/internal/monitor"
	"mfgstream/internal/realtime"
)

func main() {
	logger, _ := zap.NewProduction(zap.AddStacktrace(zap.FatalLevel))
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalw("failed to load config", "error", err)
	}

	// --- Storage ---
	dbMgr, err := db.NewDBManager(ctx, cfg.DatabaseURL, sugar)
	if err != nil {
		sugar.Fatalw("failed to create DBManager", "error", err)
	}
	defer dbMgr.Shutdown()

	store := db.NewResultStore(dbMgr, sugar)
	if err := store.EnsureSchema(ctx); err != nil {
		sugar.Fatalw("failed to ensure schema", "error", err)
	}

	// --- Hub + instrumentation ---
	m := metrics.NewPipelineMetrics()
	hub := realtime.NewHub(sugar, m)

	// --- Reporting API + live channel ---
	apiSrv := api.NewServer(store, hub, sugar)
	go func() {
		sugar.Infof("starting reporting API on %s", cfg.APIAddr)
		if err := http.ListenAndServe(cfg.APIAddr, apiSrv.Routes()); err != nil && err != http.ErrServerClosed {
			sugar.Errorw("reporting API stopped", "error", err)
		}
	}()

	// --- Ops endpoint ---
	monitor.StartOps(dbMgr, hub, sugar, cfg.OpsAddr)

	// --- Run consumers (blocking) ---
	app.StartPipeline(ctx, cfg, store, hub, sugar, m)
}
