package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"fresherwatch/internal/bot"
	"fresherwatch/internal/config"
	"fresherwatch/internal/domain"
	"fresherwatch/internal/events"
	"fresherwatch/internal/httpapi"
	"fresherwatch/internal/pipeline"
	"fresherwatch/internal/scrape"
	"fresherwatch/internal/scrape/freshersnow"
	"fresherwatch/internal/scrape/tnpofficer"
	"fresherwatch/internal/scrape/types"
	"fresherwatch/internal/scrape/util"
	"fresherwatch/internal/sched"
	"fresherwatch/internal/store"
)

func main() {
	dataDir := os.Getenv("FRESHERWATCH_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	userCfgPath, err := config.EnsureUserConfig(dataDir, filepath.Join("config", "config.yml"))
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}
	cfg, err := config.Load(userCfgPath)
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatal(err)
	}
	if cfg.App.DataDir != "" {
		dataDir = cfg.App.DataDir
	}

	seen, err := store.Open(dataDir)
	if err != nil {
		log.Fatalf("seen store open failed: %v", err)
	}
	defer seen.Close()

	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	limiter := util.NewHostLimiter(cfg.HTTP.RatePerSec, cfg.HTTP.Burst)

	var fetchers []types.Fetcher
	if cfg.Sources.FreshersNow.Enabled {
		fetchers = append(fetchers, freshersnow.New(cfg.Sources.FreshersNow.URL, timeout, limiter))
	}
	if cfg.Sources.TNPOfficer.Enabled {
		fetchers = append(fetchers, tnpofficer.New(cfg.Sources.TNPOfficer.URL, timeout, limiter))
	}

	agg := scrape.NewAggregator(timeout, fetchers...)
	pipe := pipeline.New(agg, seen)
	hub := events.NewHub()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the scheduler fires into the bot, which fires into the pipeline
	var b *bot.Bot
	schd := sched.New(filepath.Join(dataDir, "schedules.json"), func(ctx context.Context, channelID string, sel domain.Selector) {
		b.Fire(ctx, channelID, sel)
	})
	if err := schd.Load(); err != nil {
		log.Printf("[main] schedule restore failed: %v", err)
	}
	if expr := cfg.Refresh.GlobalCron; expr != "" {
		if err := schd.ScheduleGlobal(expr, cfg.Discord.DefaultChannelID); err != nil {
			log.Fatalf("global cron: %v", err)
		}
		log.Printf("[main] global refresh cron %q -> channel %s", expr, cfg.Discord.DefaultChannelID)
	}

	b, err = bot.New(cfg, pipe, schd, seen, hub)
	if err != nil {
		log.Fatal(err)
	}
	if err := b.Start(); err != nil {
		log.Fatal(err)
	}
	defer b.Stop()

	go schd.Run(ctx)

	// keepalive/status surface
	mux := httpapi.NewMux(httpapi.Deps{
		Hub:    hub,
		Sched:  schd,
		Status: pipe.Status,
	})
	go func() {
		handler := httpapi.Chain(mux, httpapi.RequestID, httpapi.Recover, httpapi.AccessLog)
		if err := httpapi.Start(cfg.App.Listen, handler); err != nil {
			log.Printf("[main] http server stopped: %v", err)
		}
	}()

	log.Printf("[main] engine up (data=%s)", dataDir)
	<-ctx.Done()
	log.Printf("[main] shutting down")
}
