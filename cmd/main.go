package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"standupboard/internal/backend"
	"standupboard/internal/bot"
	"standupboard/internal/composer"
	"standupboard/internal/config"
	"standupboard/internal/database"
	"standupboard/internal/scheduler"
	"standupboard/internal/server"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return
	}

	loc, err := cfg.Location()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load timezone",
			"error", err,
			"timezone", cfg.Timezone)

		return
	}

	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize db",
			"error", err,
			"dbPath", cfg.DBPath)

		return
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()
	log.InfoContext(ctx, "DB is initialized",
		"dbPath", cfg.DBPath)

	client := backend.NewClient(cfg.BackendURL, cfg.FetchTimeout, loc, log)
	comp := composer.New(client, cfg.PageSize, log)

	webFeeds := composer.NewCache(cfg.FeedCacheSize, cfg.FeedIdleTTL)
	botFeeds := composer.NewCache(cfg.FeedCacheSize, cfg.FeedIdleTTL)

	srv, err := server.New(db, comp, webFeeds, server.Options{
		BotName:     cfg.BotName,
		BotToken:    cfg.Token,
		Production:  cfg.Production(),
		PublicURL:   cfg.PublicURL,
		LoginMaxAge: cfg.LoginMaxAge,
	}, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize server",
			"error", err)

		return
	}

	var botInst *bot.Bot
	if cfg.Token != "" {
		botInst, err = bot.New(ctx, cfg.Token, db, comp, botFeeds, bot.Options{
			DashboardURL: cfg.PublicURL,
			Production:   cfg.Production(),
		}, log)
		if err != nil {
			log.ErrorContext(ctx, "Failed to initialize bot",
				"error", err)

			return
		}
		log.InfoContext(ctx, "Bot is initialized",
			"userName", botInst.UserName())
	} else {
		log.WarnContext(ctx, "TOKEN is missing so the bot is disabled",
			"envVar", "TOKEN")
	}

	sched := scheduler.New(ctx, db, cfg.SessionTTL, []scheduler.Evictor{webFeeds, botFeeds}, log)

	if err = sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"purgeSpec", scheduler.PurgeSessionsSpec,
			"evictSpec", scheduler.EvictFeedsSpec)

		return
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"purgeSpec", scheduler.PurgeSessionsSpec,
		"evictSpec", scheduler.EvictFeedsSpec,
		"timezone", time.FixedZone(scheduler.Timezone, scheduler.TimezoneOffsetSeconds).String())

	if botInst != nil {
		go func() {
			botInst.Start(ctx)
		}()
		log.InfoContext(ctx, "Bot is started",
			"updateTimeoutSeconds", bot.BotUpdateTimeout)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(ctx, cfg.ListenAddr)
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-c:
		log.InfoContext(ctx, "Shutdown signal is received",
			"signal", sig.String())
		cancel()

		if err = <-serverErr; err != nil {
			log.ErrorContext(ctx, "Failed to shut down server",
				"error", err)
		}
	case err = <-serverErr:
		log.ErrorContext(ctx, "Server is stopped unexpectedly",
			"error", err,
			"listenAddr", cfg.ListenAddr)
		cancel()
	}

	log.InfoContext(ctx, "Exiting...",
		"uptimeSeconds", time.Since(start).Seconds())

	if botInst != nil {
		botInst.Stop()
		log.InfoContext(ctx, "Bot is stopped",
			"uptimeSeconds", time.Since(start).Seconds())
	}
}
