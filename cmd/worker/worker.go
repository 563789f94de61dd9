package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"KVisit/config"
	"KVisit/internal/cache"
	"KVisit/internal/queue"
	"KVisit/pkg/logger"
	"KVisit/pkg/metrics"
	kotel "KVisit/pkg/otel"
	"KVisit/storage"
	"KVisit/storage/mq"
)

func main() {
	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if config.Cfg.OTelEnabled {
		shutdown, err := kotel.InitOpenTelemetry(ctx, kotel.Config{
			ServiceName:  config.Cfg.ServiceName + "-worker",
			Environment:  config.Cfg.Environment,
			OTLPEndpoint: config.Cfg.OTelEndpoint,
		})
		if err != nil {
			logger.Logger.Warn("Failed to initialize OpenTelemetry, tracing disabled", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(shutdownCtx)
			}()
		}
	}

	if err := metrics.InitMetrics(); err != nil {
		logger.Logger.Warn("Failed to initialize onboarding metrics", zap.Error(err))
	}

	// worker 只投影到 Redis，不访问数据库
	if err := storage.Init(storage.Options{Redis: true, MQ: true}); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := mq.DeclareTopology(); err != nil {
		logger.Logger.Fatal("Failed to declare RabbitMQ topology", zap.Error(err))
	}

	projector := &queue.CompletionProjector{
		Profiles: cache.NewRedisProfileCache(time.Duration(config.Cfg.OnboardingProfileTTLSecs) * time.Second),
		Marker:   cache.RedisMessageMarker{},
		Metrics:  metrics.GetMetrics(),
		Logger:   logger.Named("completion-projector"),
	}

	logger.Logger.Info("Worker service starting",
		zap.String("service", config.Cfg.ServiceName+"-worker"),
		zap.String("environment", config.Cfg.Environment),
		zap.Int("prefetch", config.Cfg.WorkerPrefetch),
	)

	if err := queue.StartOnboardingCompletedConsumer(ctx, projector, config.Cfg.WorkerPrefetch); err != nil && ctx.Err() == nil {
		logger.Logger.Error("Onboarding completed consumer stopped", zap.Error(err))
	}

	logger.Logger.Info("Worker service shutting down gracefully")
}
