package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vaultline/vaultline/internal/config"
	"github.com/vaultline/vaultline/internal/infra"
	"github.com/vaultline/vaultline/internal/logging"
	"github.com/vaultline/vaultline/internal/notification"
	"github.com/vaultline/vaultline/internal/routes"
	"github.com/vaultline/vaultline/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.IsDev())

	ctx := context.Background()

	// Stores are optional in development; routes fall back to in-memory implementations.
	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect postgres")
		}
		defer db.Close()

		if err := infra.Migrate(ctx, db); err != nil {
			logger.Fatal().Err(err).Msg("migrate postgres")
		}
	} else {
		logger.Warn().Msg("DATABASE_URL not set, using in-memory stores")
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect redis")
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn().Err(err).Msg("close redis")
			}
		}()
	} else {
		logger.Warn().Msg("REDIS_URL not set, passcodes are kept in memory and rate limits are off")
	}

	srv, err := server.New(routes.Deps{
		Cfg:    cfg,
		DB:     db,
		Cache:  cache,
		Logger: logger,
		Mailer: newMailer(cfg, logger),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("build server")
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()
	logger.Info().Str("addr", cfg.Address()).Str("env", cfg.Env).Msg("server listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-srvErrCh:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		os.Exit(1)
	}

	logger.Info().Msg("server exited cleanly")
}

func newMailer(cfg config.Config, logger zerolog.Logger) notification.Mailer {
	switch cfg.Mail.Provider {
	case config.MailProviderSendGrid:
		return notification.NewSendGridMailer(cfg.Mail.SendGridAPIKey, cfg.Mail.From, logger)
	case config.MailProviderSMTP:
		return notification.NewSMTPMailer(notification.SMTPConfig{
			Host:     cfg.Mail.SMTPHost,
			Port:     cfg.Mail.SMTPPort,
			Username: cfg.Mail.SMTPUsername,
			Password: cfg.Mail.SMTPPassword,
			From:     cfg.Mail.From,
		}, logger)
	default:
		return notification.NewLoggerMailer(logger)
	}
}
