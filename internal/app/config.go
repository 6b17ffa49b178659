package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/oms-history/internal/messaging/kafka"
)

const (
	// StorageDriverMemory хранит данные в памяти процесса.
	StorageDriverMemory = "memory"
	// StorageDriverPostgres использует PostgreSQL.
	StorageDriverPostgres = "postgres"
)

const (
	envGRPCAddr            = "OMS_GRPC_ADDR"
	envHTTPAddr            = "OMS_HTTP_ADDR"
	envStorageDriver       = "OMS_STORAGE_DRIVER"
	envPostgresDSN         = "OMS_POSTGRES_DSN"
	envPostgresAutoMigrate = "OMS_POSTGRES_AUTO_MIGRATE"
	envMemorySeed          = "OMS_MEMORY_SEED"
	envKafkaBrokers        = "KAFKA_BROKERS"
	envKafkaClientID       = "OMS_KAFKA_CLIENT_ID"
	envKafkaTopic          = "OMS_KAFKA_TOPIC"
	envKafkaDLQTopic       = "OMS_KAFKA_DLQ_TOPIC"
	envRedisAddr           = "OMS_REDIS_ADDR"
	envStatusCacheTTL      = "OMS_STATUS_CACHE_TTL"
	envOutboxPollInterval  = "OMS_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize     = "OMS_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts   = "OMS_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay    = "OMS_OUTBOX_RETRY_DELAY"
	envLogLevel            = "OMS_LOG_LEVEL"
)

// Config описывает настройки запуска сервиса истории статусов.
type Config struct {
	GRPCAddr string
	HTTPAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	// MemorySeed заполняет memory-хранилище демо-заказами 1..100 и администратором 1.
	MemorySeed bool

	// KafkaBrokers задаёт брокеров через запятую; пустое значение отключает публикацию.
	KafkaBrokers  string
	KafkaClientID string
	KafkaTopic    string
	KafkaDLQTopic string

	RedisAddr      string
	StatusCacheTTL time.Duration

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	LogLevel log.Level
}

// DefaultConfig возвращает конфигурацию для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:            ":50051",
		HTTPAddr:            ":8080",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		KafkaClientID:       "oms-history",
		KafkaTopic:          kafka.TopicHistoryEvents,
		KafkaDLQTopic:       kafka.TopicDeadLetterQueue,
		StatusCacheTTL:      10 * time.Minute,
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    500 * time.Millisecond,
		LogLevel:            log.InfoLevel,
	}
}

type envLookup func(key string) (string, bool)

// LoadConfig подгружает необязательный .env и читает переменные окружения.
// Некорректные значения не прерывают запуск: остаётся значение по умолчанию,
// а причина возвращается в списке предупреждений.
func LoadConfig() (Config, []error) {
	var warnings []error
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		warnings = append(warnings, fmt.Errorf("load .env: %w", err))
	}
	cfg, envWarnings := readConfigFromEnv(os.LookupEnv)
	return cfg, append(warnings, envWarnings...)
}

func readConfigFromEnv(lookup envLookup) (Config, []error) {
	cfg := DefaultConfig()
	var warnings []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str(envGRPCAddr, &cfg.GRPCAddr)
	str(envHTTPAddr, &cfg.HTTPAddr)
	str(envPostgresDSN, &cfg.PostgresDSN)
	str(envKafkaBrokers, &cfg.KafkaBrokers)
	str(envKafkaClientID, &cfg.KafkaClientID)
	str(envKafkaTopic, &cfg.KafkaTopic)
	str(envKafkaDLQTopic, &cfg.KafkaDLQTopic)
	str(envRedisAddr, &cfg.RedisAddr)

	if v, ok := lookup(envStorageDriver); ok && strings.TrimSpace(v) != "" {
		cfg.StorageDriver = strings.ToLower(strings.TrimSpace(v))
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{envPostgresAutoMigrate, &cfg.PostgresAutoMigrate},
		{envMemorySeed, &cfg.MemorySeed},
	}
	for _, b := range bools {
		v, ok := lookup(b.key)
		if !ok {
			continue
		}
		parsed, err := parseBool(v)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("%s: %w", b.key, err))
			continue
		}
		*b.dst = parsed
	}

	positive := func(v time.Duration) bool { return v > 0 }
	nonNegative := func(v time.Duration) bool { return v >= 0 }
	durations := []struct {
		key   string
		dst   *time.Duration
		check func(time.Duration) bool
		rule  string
	}{
		{envStatusCacheTTL, &cfg.StatusCacheTTL, positive, "must be > 0"},
		{envOutboxPollInterval, &cfg.OutboxPollInterval, positive, "must be > 0"},
		{envOutboxRetryDelay, &cfg.OutboxRetryDelay, nonNegative, "must be >= 0"},
	}
	for _, d := range durations {
		v, ok := lookup(d.key)
		if !ok {
			continue
		}
		parsed, err := parseDuration(v, d.check, d.rule)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("%s: %w", d.key, err))
			continue
		}
		*d.dst = parsed
	}

	ints := []struct {
		key string
		dst *int
	}{
		{envOutboxBatchSize, &cfg.OutboxBatchSize},
		{envOutboxMaxAttempts, &cfg.OutboxMaxAttempts},
	}
	for _, i := range ints {
		v, ok := lookup(i.key)
		if !ok {
			continue
		}
		parsed, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0")
		if err != nil {
			warnings = append(warnings, fmt.Errorf("%s: %w", i.key, err))
			continue
		}
		*i.dst = parsed
	}

	if v, ok := lookup(envLogLevel); ok && strings.TrimSpace(v) != "" {
		level, err := log.ParseLevel(strings.TrimSpace(v))
		if err != nil {
			warnings = append(warnings, fmt.Errorf("%s: %w", envLogLevel, err))
		} else {
			cfg.LogLevel = level
		}
	}

	return cfg, warnings
}

// Validate проверяет сочетания параметров, которые нельзя исправить значением по умолчанию.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("%s is required for storage driver %q", envPostgresDSN, c.StorageDriver)
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}
	if strings.TrimSpace(c.GRPCAddr) == "" || strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("grpc and http addresses must be set")
	}
	return nil
}

// kafkaBrokerList разбирает список брокеров, отбрасывая пустые элементы.
func (c Config) kafkaBrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid int value %q: %w", raw, err)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %d %s", value, rule)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %s %s", value, rule)
	}
	return value, nil
}
