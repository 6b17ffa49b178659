package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/oms-history/internal/domain"
	"github.com/vladislavdragonenkov/oms-history/internal/health"
	"github.com/vladislavdragonenkov/oms-history/internal/storage/memory"
	"github.com/vladislavdragonenkov/oms-history/internal/storage/postgres"
	"github.com/vladislavdragonenkov/oms-history/internal/storage/rediscache"
)

// runtimeDependencies собирает хранилища, выбранные конфигурацией.
type runtimeDependencies struct {
	orders     domain.OrderRepository
	statuses   domain.StatusRepository
	admins     domain.AdminRepository
	history    domain.HistoryRepository
	outboxRepo domain.OutboxRepository

	store *postgres.Store
	redis *redis.Client
}

// initRuntimeDependencies открывает хранилище и, если задан Redis, оборачивает справочник статусов кэшем.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	deps := &runtimeDependencies{}

	switch strings.ToLower(strings.TrimSpace(cfg.StorageDriver)) {
	case StorageDriverMemory, "":
		var (
			orders []domain.Order
			admins []domain.Admin
		)
		if cfg.MemorySeed {
			orders = memory.DemoOrders(time.Now().UTC())
			admins = memory.DemoAdmins()
		}
		deps.orders = memory.NewOrderRepository(orders...)
		deps.statuses = memory.NewStatusRepository(memory.DefaultStatuses()...)
		deps.admins = memory.NewAdminRepository(admins...)
		deps.history = memory.NewHistoryRepository()
		deps.outboxRepo = memory.NewOutboxRepository()
		logger.WithField("demo_seed", cfg.MemorySeed).Info("используем in-memory хранилище")
	case StorageDriverPostgres:
		dsn := strings.TrimSpace(cfg.PostgresDSN)
		if dsn == "" {
			return nil, fmt.Errorf("%s is required for postgres storage", envPostgresDSN)
		}
		store, err := postgres.Open(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		deps.store = store
		deps.orders = postgres.NewOrderRepository(store)
		deps.statuses = postgres.NewStatusRepository(store)
		deps.admins = postgres.NewAdminRepository(store)
		deps.history = postgres.NewHistoryRepository(store)
		deps.outboxRepo = postgres.NewOutboxRepository(store)
		logger.WithField("auto_migrate", cfg.PostgresAutoMigrate).Info("используем postgres хранилище")
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		deps.redis = redis.NewClient(&redis.Options{Addr: addr})
		deps.statuses = rediscache.NewStatusCache(deps.statuses, deps.redis, cfg.StatusCacheTTL, logger)
		logger.WithFields(log.Fields{
			"redis_addr": addr,
			"ttl":        cfg.StatusCacheTTL,
		}).Info("кэш статусов включён")
	}

	return deps, nil
}

// registerHealthCheckers добавляет проверки хранилищ: Postgres обязателен, Redis нет.
func (d *runtimeDependencies) registerHealthCheckers(h *health.Handler) {
	if d.store != nil {
		h.RegisterChecker("postgres", health.NewPingChecker("postgres", d.store.Ping))
	}
	if d.redis != nil {
		h.RegisterOptional("redis", health.NewPingChecker("redis", func(ctx context.Context) error {
			return d.redis.Ping(ctx).Err()
		}))
	}
}

// Close освобождает соединения с внешними хранилищами.
func (d *runtimeDependencies) Close(logger *log.Entry) {
	if d == nil {
		return
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			logger.WithError(err).Warn("failed to close redis client")
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
