package main

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/lead-rotation/modules"
	"github.com/iota-uz/lead-rotation/modules/rotation"
	"github.com/iota-uz/lead-rotation/modules/rotation/infrastructure/locker"
	"github.com/iota-uz/lead-rotation/modules/rotation/services"
	"github.com/iota-uz/lead-rotation/pkg/application"
	"github.com/iota-uz/lead-rotation/pkg/composables"
	"github.com/iota-uz/lead-rotation/pkg/configuration"
	"github.com/iota-uz/lead-rotation/pkg/eventbus"
)

// runtime is everything a subcommand needs once the database is reachable.
type runtime struct {
	conf     *configuration.Configuration
	logger   *logrus.Logger
	pool     *pgxpool.Pool
	app      application.Application
	registry *services.Registry
	closers  []func()
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// scoped binds the pool and tenant the repositories read from ctx.
func (rt *runtime) scoped(ctx context.Context, tenantID uuid.UUID) context.Context {
	ctx = composables.WithPool(ctx, rt.pool)
	ctx = composables.WithTenantID(ctx, tenantID)
	return composables.WithLogger(ctx, logrus.NewEntry(rt.logger).WithField("tenant_id", tenantID.String()))
}

func connectDB(ctx context.Context, conf *configuration.Configuration) (*pgxpool.Pool, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(connectCtx, conf.Database.Opts)
	if err != nil {
		return nil, errors.Wrap(err, "connect database")
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return pool, nil
}

func buildLocker(ctx context.Context, conf *configuration.Configuration, logger *logrus.Logger) (locker.Locker, func(), error) {
	if conf.Rotation.Locker != "redis" {
		return locker.NewLocal(), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.URL,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, errors.Wrap(err, "ping redis")
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.WithError(err).Warn("close redis client")
		}
	}
	return locker.NewRedis(client, conf.Rotation.LockTTL, logger), closeFn, nil
}

func newChangeFeed(logger *logrus.Logger) eventbus.EventBus[services.Changed] {
	feed := eventbus.NewEventPublisher[services.Changed](logger)
	feed.Subscribe(func(ctx context.Context, ev services.Changed) error {
		composables.UseLogger(ctx).WithFields(logrus.Fields{
			"action":  ev.Action,
			"subject": ev.Subject.String(),
			"period":  ev.Period.String(),
		}).Debug("rotation changed")
		return nil
	})
	return feed
}

func bootstrap(ctx context.Context) (*runtime, error) {
	conf := configuration.Use()
	logger := conf.Logger()

	pool, err := connectDB(ctx, conf)
	if err != nil {
		return nil, withCode(exitDB, err)
	}
	rt := &runtime{conf: conf, logger: logger, pool: pool, closers: []func(){pool.Close, conf.Unload}}

	lk, closeLocker, err := buildLocker(ctx, conf, logger)
	if err != nil {
		rt.Close()
		return nil, withCode(exitDB, err)
	}
	rt.closers = append(rt.closers, closeLocker)

	rt.app = application.New(&application.ApplicationOptions{Pool: pool, Logger: logger})
	rotationOpts := &rotation.ModuleOptions{
		Locker:   lk,
		Feed:     newChangeFeed(logger),
		Services: services.OptionsFromConfig(conf.Rotation),
	}
	if err := modules.Load(rt.app, modules.BuiltInModules(rotationOpts)...); err != nil {
		rt.Close()
		return nil, errors.Wrap(err, "load modules")
	}
	rt.registry = rt.app.Service(services.Registry{}).(*services.Registry)
	return rt, nil
}
