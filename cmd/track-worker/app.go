package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/BearBump/ShipTrack/config"
	"github.com/BearBump/ShipTrack/internal/broker/kafka"
	"github.com/BearBump/ShipTrack/internal/cache/rediscache"
	"github.com/BearBump/ShipTrack/internal/registry"
	"github.com/BearBump/ShipTrack/internal/services/refresher"
	"github.com/BearBump/ShipTrack/internal/services/resolver"
	"github.com/BearBump/ShipTrack/internal/storage/pghistory"
)

type workerFactories struct {
	newStorage     func(cfg *config.Config) (repo refresher.Repository, closeFn func(), err error)
	newProducer    func(cfg *config.Config) refresher.Producer
	newRateLimiter func(cfg *config.Config) refresher.RateLimiter
	newResolver    func(cfg *config.Config) refresher.Resolver
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (refresher.Repository, func(), error) {
			sslMode := cfg.Database.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
			st, err := pghistory.New(connString)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newProducer: func(cfg *config.Config) refresher.Producer {
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewProducer(brokers)
		},
		newRateLimiter: func(cfg *config.Config) refresher.RateLimiter {
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			return rediscache.NewRateLimiter(redisAddr)
		},
		newResolver: func(cfg *config.Config) refresher.Resolver {
			return resolver.New(registry.New())
		},
	}
}

func RunTrackWorker(ctx context.Context, cfg *config.Config, f workerFactories) error {
	topic := cfg.Kafka.TrackingResolvedTopicName
	if topic == "" {
		topic = "tracking.resolved"
	}

	pollInterval := time.Duration(cfg.ShipTrack.WorkerPollIntervalSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	batchSize := cfg.ShipTrack.WorkerBatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	concurrency := cfg.ShipTrack.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	staleness := time.Duration(cfg.ShipTrack.WorkerStalenessSeconds) * time.Second
	if staleness <= 0 {
		staleness = 15 * time.Minute
	}
	rlPerMin := int64(cfg.ShipTrack.WorkerRateLimitPerMinute)
	if rlPerMin <= 0 {
		rlPerMin = 60
	}

	repo, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	producer := f.newProducer(cfg)
	rl := f.newRateLimiter(cfg)
	res := f.newResolver(cfg)

	r := refresher.New(repo, res, producer, rl, topic).
		WithSettings(pollInterval, batchSize, concurrency, staleness, rlPerMin).
		WithCarrierRateLimits(
			cfg.ShipTrack.WorkerRateLimitUPSPerMinute,
			cfg.ShipTrack.WorkerRateLimitFedExPerMinute,
			cfg.ShipTrack.WorkerRateLimitUSPSPerMinute,
		)

	if swaggerPath := os.Getenv("swaggerPath"); swaggerPath != "" {
		go func() {
			_ = runWorkerHTTPServer(ctx, workerHTTPOpts{
				httpAddr:    cfg.ShipTrack.WorkerHTTPAddr,
				swaggerPath: swaggerPath,
				refresher:   r,
				cfg:         cfg,
			})
		}()
	}

	return r.Run(ctx)
}
