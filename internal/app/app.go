package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthcheck "github.com/vladislavdragonenkov/oms-history/internal/health"
	"github.com/vladislavdragonenkov/oms-history/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/oms-history/internal/metrics"
	"github.com/vladislavdragonenkov/oms-history/internal/notify"
	grpcsvc "github.com/vladislavdragonenkov/oms-history/internal/service/grpc"
	"github.com/vladislavdragonenkov/oms-history/internal/service/history"
	"github.com/vladislavdragonenkov/oms-history/internal/service/httpapi"
	"github.com/vladislavdragonenkov/oms-history/internal/service/outbox"
	"github.com/vladislavdragonenkov/oms-history/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run поднимает gRPC и HTTP серверы и outbox worker, блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger.WithField("layer", "storage"))
	if err != nil {
		return err
	}
	defer deps.Close(logger)

	historyMetrics := metrics.NewHistoryMetrics()
	outboxMetrics := metrics.NewOutboxMetrics()

	// Kafka опциональна: без неё события копятся в outbox только при постоянном хранилище.
	kafkaProducer, err := initKafkaProducer(cfg, logger.WithField("layer", "kafka"))
	if err != nil {
		kafkaProducer = nil
	}
	defer closeKafka(kafkaProducer, logger)

	dispatcher := notify.NewDispatcher(logger.WithField("layer", "notify"), historyMetrics)
	dispatcher.Subscribe(notify.NewLogObserver(logger.WithField("layer", "events")))
	if kafkaProducer != nil || deps.store != nil {
		dispatcher.Subscribe(notify.NewOutboxObserver(deps.outboxRepo))
	}

	svc, err := history.NewService(history.Dependencies{
		Orders:   deps.orders,
		Statuses: deps.statuses,
		Admins:   deps.admins,
		History:  deps.history,
		Notifier: dispatcher,
		Metrics:  historyMetrics,
		Logger:   logger.WithField("layer", "history"),
	})
	if err != nil {
		return fmt.Errorf("build history service: %w", err)
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	var workers sync.WaitGroup
	if kafkaProducer != nil {
		worker := outbox.NewWorker(
			deps.outboxRepo,
			kafka.NewOutboxPublisher(kafkaProducer, cfg.KafkaTopic),
			outbox.WithLogger(logger.WithField("layer", "outbox")),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(kafkaProducer, cfg.KafkaDLQTopic)),
			outbox.WithMetrics(outboxMetrics),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		workers.Add(1)
		go func() {
			defer workers.Done()
			worker.Run(runCtx)
		}()
	} else {
		logger.Warn("kafka is not configured, outbox delivery is disabled")
	}
	// worker должен остановиться раньше, чем закроется producer
	defer workers.Wait()
	defer cancelRun()

	grpcServer, healthServer := newGRPCServer(svc, logger)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	deps.registerHealthCheckers(healthHandler)
	router := httpapi.NewRouter(svc, healthHandler, logger.WithField("layer", "http"))
	httpSrv := startHTTPServer(runCtx, cfg.HTTPAddr, router, logger)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		shutdownHTTP(httpSrv, logger)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("gRPC сервер слушает %s", cfg.GRPCAddr)
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		stopGRPC(grpcServer, logger)
		shutdownHTTP(httpSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(httpSrv, logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// newGRPCServer регистрирует сервис истории, health и reflection на сервере с метриками.
func newGRPCServer(svc grpcsvc.HistoryUpdater, logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	grpcsvc.Register(server, grpcsvc.NewHistoryService(svc, logger.WithField("layer", "grpc")))
	grpcMetrics.InitializeMetrics(server)

	// reflection нужен grpcurl
	reflection.Register(server)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcsvc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	return server, healthServer
}

// stopGRPC ждёт завершения активных вызовов не дольше shutdownTimeout.
func stopGRPC(server *grpc.Server, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		server.Stop()
	}
}

// startHTTPServer запускает HTTP API вместе с /metrics и health-эндпоинтами.
func startHTTPServer(ctx context.Context, addr string, handler http.Handler, logger *log.Entry) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Infof("HTTP API слушает %s (метрики %s/metrics)", addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("http server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
