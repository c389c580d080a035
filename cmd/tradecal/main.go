package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"tradecal/internal/amqp"
	"tradecal/internal/backend"
	"tradecal/internal/cache"
	"tradecal/internal/calendar"
	"tradecal/internal/cli"
	apphttp "tradecal/internal/http"
	"tradecal/internal/log"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	backendCfg, err := backend.FromAppConfig(cfg, cfg.DataBackend)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	store := cache.New(cache.WithLogger(logger))
	svc := calendar.NewService(store, result.Reader,
		calendar.WithLatency(cfg.FetchLatency),
		calendar.WithLogger(logger))

	var opts []apphttp.Option
	if p, ok := result.Reader.(pinger); ok {
		opts = append(opts, apphttp.WithReadiness(p.Ping))
	}
	if len(cfg.TrustedProxies) > 0 {
		opts = append(opts, apphttp.WithTrustedProxies(cfg.TrustedProxies))
	}
	srv := apphttp.NewServer(":"+cfg.Port, store, svc, logger, opts...)

	// Refresh events are optional; without a broker the caches live until
	// cleared through the API.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without refresh events", log.FieldError, err)
			amqpClient = nil
		}
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := result.Close(); err != nil {
			logger.Warn("Backend cleanup error", log.FieldError, err)
		}
	})

	if amqpClient != nil {
		go func() {
			err := amqpClient.Listen(ctx, func(msg *amqp.RefreshMessage) error {
				logger.Info("Refresh event received",
					log.FieldSource, msg.Source,
					"months", len(msg.MonthKeys))
				svc.ApplyRefresh(msg.MonthKeys)
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("AMQP listener stopped", log.FieldError, err)
			}
		}()
	}

	go prefetch(ctx, svc, cfg.PrefetchMonths, logger)

	logger.Info("Starting tradecal server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", amqpClient != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// prefetch warms the caches for the most recent months holding data.
func prefetch(ctx context.Context, svc *calendar.Service, n int, logger *log.Logger) {
	if n <= 0 {
		return
	}
	latest, err := svc.LatestDataMonth(ctx)
	if err != nil {
		logger.Warn("Prefetch skipped", log.FieldOperation, log.OpPrefetch, log.FieldError, err)
		return
	}
	months := calendar.RecentMonths(latest, n)
	if err := svc.Prefetch(ctx, months); err != nil {
		logger.Warn("Prefetch failed", log.FieldOperation, log.OpPrefetch, log.FieldError, err)
		return
	}
	logger.Info("Prefetched recent months", log.FieldOperation, log.OpPrefetch, "latest", latest.String(), "months", len(months))
}
