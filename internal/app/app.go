package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/shop/internal/event"
	healthcheck "github.com/vladislavdragonenkov/shop/internal/health"
	"github.com/vladislavdragonenkov/shop/internal/messaging/kafka"
	redispub "github.com/vladislavdragonenkov/shop/internal/messaging/redis"
	"github.com/vladislavdragonenkov/shop/internal/metrics"
	"github.com/vladislavdragonenkov/shop/internal/service/checkout"
	"github.com/vladislavdragonenkov/shop/internal/service/outbox"
	"github.com/vladislavdragonenkov/shop/internal/version"
)

const (
	shutdownTimeout     = 5 * time.Second
	healthWatchInterval = 10 * time.Second
)

// App связывает хранилище, диспетчер событий, брокеры и прикладные сервисы.
type App struct {
	cfg    Config
	logger *log.Entry

	deps       runtimeDependencies
	dispatcher *event.Dispatcher
	relay      *event.Dispatcher
	producer   *kafka.Producer
	consumer   *kafka.Consumer
	redis      *redispub.Publisher
	worker     *outbox.Worker
	cleaner    *outbox.CleanupWorker
	health     *healthcheck.Handler

	Orders    *checkout.OrderService
	Customers *checkout.CustomerService
	Products  *checkout.ProductService

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// New собирает приложение по конфигурации, не запуская фоновые процессы.
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := log.WithField("component", "app")
	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
		deps:   deps,
		health: healthcheck.NewHandler(version.GetVersion()),
		dispatcher: event.NewDispatcher(
			event.WithLogger(log.WithField("component", "event-dispatcher")),
			event.WithMetrics(metrics.NewEventMetrics()),
		),
	}
	a.health.RegisterChecker("storage", deps.storageChecker)

	if err := a.initMessaging(); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Customers = checkout.NewCustomerService(deps.customers, a.dispatcher, log.WithField("component", "customer-service"))
	a.Products = checkout.NewProductService(deps.products, a.dispatcher, log.WithField("component", "product-service"))
	a.Orders = checkout.NewOrderService(deps.orders, deps.customers, a.dispatcher, log.WithField("component", "order-service"))
	return a, nil
}

// initMessaging подключает Kafka и Redis. Недоступная Kafka не мешает запуску:
// события тогда обрабатываются только локальными подписчиками.
func (a *App) initMessaging() error {
	producer, err := initKafkaProducer(a.cfg.KafkaBrokers, a.logger)
	if err == nil && producer != nil {
		a.producer = producer
		registerOutbox(a.dispatcher, a.deps.outbox)
		a.worker = outbox.NewWorker(
			a.deps.outbox,
			kafka.NewOutboxPublisher(producer, a.cfg.KafkaTopic),
			outbox.WithLogger(log.WithField("component", "outbox-worker")),
			outbox.WithMetrics(metrics.NewOutboxMetrics()),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)),
			outbox.WithPollInterval(a.cfg.OutboxPollInterval),
			outbox.WithBatchSize(a.cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(a.cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(a.cfg.OutboxRetryDelay),
		)
		a.cleaner = outbox.NewCleanupWorker(
			a.deps.outbox,
			outbox.WithCleanupLogger(log.WithField("component", "outbox-cleanup-worker")),
			outbox.WithCleanupInterval(a.cfg.OutboxCleanupInterval),
			outbox.WithRetention(a.cfg.OutboxRetention),
		)

		brokers := a.cfg.KafkaBrokers
		a.health.RegisterChecker("kafka", healthcheck.NewPingChecker("kafka", false, func(ctx context.Context) error {
			return kafka.PingBrokers(ctx, brokers)
		}))
	}

	notifications := a.dispatcher
	if a.producer != nil && a.cfg.RelayEnabled() {
		a.relay = event.NewDispatcher(event.WithLogger(log.WithField("component", "event-relay")))
		consumer, err := initRelayConsumer(a.cfg, a.relay, a.producer, a.logger)
		if err != nil {
			return err
		}
		a.consumer = consumer
		notifications = a.relay
	}
	registerNotificationHandlers(notifications, a.cfg, log.WithField("component", "notifications"))

	if a.cfg.RedisAddr != "" {
		a.redis = redispub.NewPublisher(redispub.NewClient(a.cfg.RedisAddr), a.cfg.RedisChannel)
		registerForAllTypes(a.dispatcher, a.redis)
		a.health.RegisterChecker("redis", healthcheck.NewPingChecker("redis", false, a.redis.Ping))
		a.logger.WithField("addr", a.cfg.RedisAddr).Info("redis publisher initialized")
	}
	return nil
}

// Dispatcher возвращает основной диспетчер событий.
func (a *App) Dispatcher() *event.Dispatcher {
	return a.dispatcher
}

// Health возвращает обработчик проверок состояния.
func (a *App) Health() *healthcheck.Handler {
	return a.health
}

// Start запускает outbox worker, очистку outbox и relay consumer; они работают до Close или отмены ctx.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	if a.consumer != nil {
		if err := a.consumer.Start(ctx); err != nil {
			return err
		}
	}
	if a.worker != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.worker.Run(ctx)
		}()
	}
	if a.cleaner != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.cleaner.Run(ctx)
		}()
	}
	return nil
}

// Close останавливает фоновые процессы и освобождает соединения. Повторный вызов безопасен.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		a.wg.Wait()

		var errs []error
		if a.consumer != nil {
			errs = append(errs, a.consumer.Stop())
		}
		closeKafka(a.producer, a.logger)
		if a.redis != nil {
			errs = append(errs, a.redis.Close())
		}
		errs = append(errs, a.deps.close())
		a.dispatcher.UnregisterAll()
		if a.relay != nil {
			a.relay.UnregisterAll()
		}
		a.closeErr = errors.Join(errs...)
	})
	return a.closeErr
}

// Run поднимает приложение, gRPC health-сервер и HTTP-сервер метрик до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	application, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	logger := application.logger
	defer func() {
		if closeErr := application.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("application close finished with errors")
		}
	}()

	if err := application.Start(ctx); err != nil {
		return err
	}

	grpcMetrics := promgrpc.NewServerMetrics()
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	grpcMetrics.InitializeMetrics(grpcServer)
	reflection.Register(grpcServer)
	go watchHealth(ctx, application.health, healthServer, healthWatchInterval)

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, application.health)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		shutdownHTTP(metricsSrv, logger)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("gRPC сервер слушает %s", cfg.GRPCAddr)
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем gRPC сервер")
		healthServer.Shutdown()
		stoppedCh := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stoppedCh)
		}()
		select {
		case <-stoppedCh:
		case <-time.After(shutdownTimeout):
			logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
			grpcServer.Stop()
		}
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// watchHealth переносит итог HTTP-проверок в статус стандартного gRPC health-сервиса.
func watchHealth(ctx context.Context, checks *healthcheck.Handler, server *health.Server, interval time.Duration) {
	update := func() {
		status := healthpb.HealthCheckResponse_SERVING
		if checks.Evaluate(ctx).Status == healthcheck.StatusUnhealthy {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		server.SetServingStatus("", status)
	}

	update()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}

// startMetricsServer запускает HTTP-обработчики /metrics и health probes.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
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
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
