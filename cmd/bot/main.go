package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hamdam-bot/hamdam/internal/app"
	"github.com/hamdam-bot/hamdam/internal/config"
	"github.com/hamdam-bot/hamdam/internal/db"
	"github.com/hamdam-bot/hamdam/internal/dispatch"
	"github.com/hamdam-bot/hamdam/internal/kv"
	"github.com/hamdam-bot/hamdam/internal/logger"
	"github.com/hamdam-bot/hamdam/internal/match"
	"github.com/hamdam-bot/hamdam/internal/onboarding"
	"github.com/hamdam-bot/hamdam/internal/payment"
	"github.com/hamdam-bot/hamdam/internal/seed"
	"github.com/hamdam-bot/hamdam/internal/server"
	"github.com/hamdam-bot/hamdam/internal/telegram"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	if cfg.Telegram.Token == "" {
		log.Error("BOT_TOKEN is not set")
		return
	}

	// Init DB (reports / chat archive)
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	store := kv.NewStore(cfg)
	if err := store.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	if cfg.App.Env == "development" {
		if err := seed.SeedTestData(context.Background(), database, store); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	appCtx := app.New(database, store, log)

	bot := telegram.NewBot(cfg.Telegram.APIBase, cfg.Telegram.Token)
	gateway := payment.NewZarinpalClient(cfg)

	engine := match.NewEngine(appCtx)
	flow := onboarding.NewFlow(appCtx, bot)
	payments := payment.NewService(appCtx, gateway, bot)
	dispatcher := dispatch.New(appCtx, cfg, engine, flow, payments, bot)

	webhookURL := cfg.HTTP.PublicURL + "/webhook"
	if err := bot.SetWebhook(context.Background(), webhookURL); err != nil {
		log.Error("failed to set webhook", "url", webhookURL, "err", err)
		return
	}
	log.Info("webhook registered", "url", webhookURL)

	srv := server.New(cfg, server.NewRouter(dispatcher, payments))

	go func() {
		if err := srv.Start(); err != nil {
			log.Error("http server failed", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "err", err)
	}
}
