// Package rediscache кэширует справочник статусов заказов в Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/oms-history/internal/domain"
)

const (
	keyPrefix       = "oms:status"
	missingMarker   = "-"
	defaultCacheTTL = 10 * time.Minute
)

// StatusCache оборачивает StatusRepository и кэширует результаты Get.
// Отсутствующие статусы тоже кэшируются, чтобы не бить в базу повторно.
type StatusCache struct {
	next   domain.StatusRepository
	client redis.UniversalClient
	ttl    time.Duration
	logger *logrus.Entry
}

// NewStatusCache создаёт кэширующий декоратор. ttl<=0 заменяется значением по умолчанию.
func NewStatusCache(next domain.StatusRepository, client redis.UniversalClient, ttl time.Duration, logger *logrus.Entry) *StatusCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &StatusCache{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger.WithField("component", "status-cache"),
	}
}

func statusKey(languageID, statusID int64) string {
	return fmt.Sprintf("%s:%d:%d", keyPrefix, languageID, statusID)
}

func (c *StatusCache) Get(ctx context.Context, languageID, statusID int64) (domain.Status, error) {
	key := statusKey(languageID, statusID)

	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if raw == missingMarker {
			return domain.Status{}, domain.ErrStatusNotFound
		}
		var status domain.Status
		if jsonErr := json.Unmarshal([]byte(raw), &status); jsonErr == nil {
			return status, nil
		}
		c.logger.WithField("key", key).Warn("corrupted status cache entry, reloading")
	case errors.Is(err, redis.Nil):
	default:
		// Redis недоступен: работаем напрямую с хранилищем.
		c.logger.WithError(err).WithField("key", key).Warn("status cache read failed")
	}

	status, err := c.next.Get(ctx, languageID, statusID)
	if err != nil {
		if errors.Is(err, domain.ErrStatusNotFound) {
			c.store(ctx, key, missingMarker)
		}
		return domain.Status{}, err
	}

	payload, err := json.Marshal(status)
	if err == nil {
		c.store(ctx, key, string(payload))
	}
	return status, nil
}

// List не кэшируется: используется только при чтении истории.
func (c *StatusCache) List(ctx context.Context, languageID int64) ([]domain.Status, error) {
	return c.next.List(ctx, languageID)
}

func (c *StatusCache) store(ctx context.Context, key, value string) {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("status cache write failed")
	}
}

var _ domain.StatusRepository = (*StatusCache)(nil)
