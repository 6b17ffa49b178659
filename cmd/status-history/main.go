// Command status-history запускает сервис истории статусов заказов.
//
// По умолчанию используется memory-хранилище без заказов: OMS_MEMORY_SEED=true
// добавляет демо-заказы 1..100 и администратора 1 для локального запуска.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/oms-history/internal/app"
	"github.com/vladislavdragonenkov/oms-history/internal/version"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(level log.Level) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(level)
}

// readConfig читает конфигурацию и пишет предупреждения о некорректных значениях.
func readConfig() app.Config {
	cfg, warnings := app.LoadConfig()
	setupLogger(cfg.LogLevel)
	for _, w := range warnings {
		log.WithError(w).Warn("некорректное значение конфигурации, используется значение по умолчанию")
	}
	return cfg
}

func main() {
	cfg := readConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"grpc_addr":      cfg.GRPCAddr,
		"http_addr":      cfg.HTTPAddr,
		"storage_driver": cfg.StorageDriver,
		"version":        version.String(),
	}).Info("запускаем сервис истории статусов")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("сервис истории статусов остановлен")
}
