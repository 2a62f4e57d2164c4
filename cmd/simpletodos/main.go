package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"simple-todos/internal/bot"
	"simple-todos/internal/config"
	"simple-todos/internal/httpapi"
	"simple-todos/internal/logging"
	"simple-todos/internal/repository"
	"simple-todos/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New("info", "console", os.Stderr)
		fallback.Fatal().Err(err).Msg("config")
	}
	lg := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal().Err(err).Msg("stopped with error")
	}
	lg.Info().Msg("shutdown complete")
}

// run wires storage, services and transports and blocks until ctx is done.
func run(ctx context.Context, cfg config.Config, lg zerolog.Logger) error {
	db, err := repository.NewDB(cfg.DatabaseURL, lg)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	taskRepo := repository.NewTaskRepository(db)
	accountSvc := service.NewAccountService(repository.NewUserRepository(db), repository.NewSessionRepository(db), cfg.SessionTTL, lg)
	taskSvc := service.NewTaskService(taskRepo, lg)

	if cfg.SeedDemo {
		seedCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := service.NewSeeder(accountSvc, taskRepo, cfg.SeedUsername, cfg.SeedPassword, lg).Seed(seedCtx)
		cancel()
		if err != nil {
			lg.Error().Err(err).Msg("seed demo data")
		}
	}

	if cfg.PurgeInterval > 0 {
		scheduler := service.NewSchedulerService(time.Local)
		if _, err := scheduler.SchedulePurge(accountSvc, cfg.PurgeInterval, lg); err != nil {
			return fmt.Errorf("schedule session purge: %w", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		lg.Info().Int("jobs", scheduler.Entries()).Dur("interval", cfg.PurgeInterval).Msg("scheduler started")
	}

	var telegramBot *bot.Bot
	if cfg.TelegramEnabled() {
		if telegramBot, err = bot.New(cfg.TelegramToken, taskSvc, accountSvc, lg); err != nil {
			return fmt.Errorf("bot: %w", err)
		}
	}

	srv := httpapi.New(taskSvc, accountSvc, lg)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(cfg.HTTPAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if telegramBot != nil {
		g.Go(func() error {
			return telegramBot.Start(gctx)
		})
	}

	lg.Info().Str("address", cfg.HTTPAddr).Bool("telegram", telegramBot != nil).Msg("simple-todos started")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
