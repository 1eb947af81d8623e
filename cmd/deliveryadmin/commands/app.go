package commands

import (
	"context"
	"errors"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fooddelivery/pkg/api"
	"fooddelivery/pkg/cache"
	"fooddelivery/pkg/config"
	"fooddelivery/pkg/database"
	"fooddelivery/pkg/events"
	"fooddelivery/pkg/guard"
	"fooddelivery/pkg/logger"
	"fooddelivery/pkg/orders"
	"fooddelivery/pkg/stats"
)

// app holds everything a command needs. Cache and publisher are nil when
// the matching section of the config is empty.
type app struct {
	conf      config.Config
	log       *logrus.Logger
	db        *gorm.DB
	cache     *cache.RedisCache
	kafka     *kafka.Writer
	publisher *events.Publisher
	stats     *stats.Service
	guard     *guard.Guard
	orders    *orders.Service
}

func newApp(ctx context.Context) (*app, error) {
	conf, err := config.Load(configPath, envFiles...)
	if err != nil {
		return nil, err
	}
	return buildApp(ctx, conf)
}

func buildApp(ctx context.Context, conf config.Config) (*app, error) {
	log, err := logger.New(conf.Logging)
	if err != nil {
		return nil, err
	}

	a := &app{conf: conf, log: log}

	a.db, err = database.Open(conf.Database, log)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(a.db); err != nil {
		a.Close()
		return nil, err
	}
	if conf.Database.SeedSample {
		if err := database.SeedSample(a.db); err != nil {
			a.Close()
			return nil, err
		}
	}

	var statsCache stats.Cache
	if conf.Redis.Addr != "" {
		a.cache, err = cache.Connect(ctx, conf.Redis)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, statistics are not cached")
		} else {
			statsCache = a.cache
		}
	}
	a.stats = stats.NewService(a.db, statsCache, log)

	notifiers := []guard.Notifier{a.stats}
	if len(conf.Kafka.Brokers) > 0 {
		a.kafka = events.NewKafkaWriter(conf.Kafka)
		a.publisher = events.NewPublisher(a.kafka, conf.Kafka, log)
		notifiers = append(notifiers, a.publisher)
	}

	a.guard = guard.New(database.NewStore(a.db), log, notifiers...)
	a.orders = orders.NewService(a.db, log, a.stats)
	return a, nil
}

func (a *app) handler() *api.Handler {
	return api.NewHandler(a.db, a.guard, a.orders, a.stats, a.log)
}

func (a *app) Close() error {
	var errs []error
	if a.kafka != nil {
		errs = append(errs, a.kafka.Close())
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
