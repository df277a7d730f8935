package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/avoronin/remindbot/internal/bot"
	"github.com/avoronin/remindbot/internal/bot/handlers"
	"github.com/avoronin/remindbot/internal/clock"
	"github.com/avoronin/remindbot/internal/config"
	"github.com/avoronin/remindbot/internal/database"
	"github.com/avoronin/remindbot/internal/health"
	"github.com/avoronin/remindbot/internal/notifier"
	"github.com/avoronin/remindbot/internal/repository"
	"github.com/avoronin/remindbot/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg)

	if cfg.DatabaseURI == "" {
		log.Fatal().Msg("DATABASE_URI is required")
	}
	if cfg.TelegramToken == "" {
		log.Fatal().Msg("TELEGRAM_TOKEN is required")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("failed to load timezone")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURI)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("connected to database")

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Telegram API")
	}

	tg := notifier.New(api)
	reminderRepo := repository.NewReminderRepository(db)
	userRepo := repository.NewUserRepository(db)
	clk := clock.NewSystem(loc)

	sched := scheduler.New(reminderRepo, tg, clk, cfg.PollInterval, cfg.GraceWindow)
	go sched.Start(ctx)

	h := handlers.New(tg, &handlers.Repositories{
		User:     userRepo,
		Reminder: reminderRepo,
	}, sched, clk)
	b := bot.New(api, h)

	healthSrv := &http.Server{
		Addr:              cfg.HealthAddr,
		Handler:           health.NewRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HealthAddr).Msg("health endpoint listening")
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = healthSrv.Shutdown(shutdownCtx)
		cancel()
	}()

	log.Info().Msg("starting bot")
	if err := b.Start(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("bot error")
	}
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Debug {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
