package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/erp/backoffice/internal/application/configuration"
	"github.com/erp/backoffice/internal/application/onlineshop"
	"github.com/erp/backoffice/internal/domain/costing"
	"github.com/erp/backoffice/internal/domain/job"
	"github.com/erp/backoffice/internal/domain/realtime"
	"github.com/erp/backoffice/internal/infrastructure/cache"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/jobqueue"
	"github.com/erp/backoffice/internal/infrastructure/locking"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/notification"
	"github.com/erp/backoffice/internal/infrastructure/persistence"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/erp/backoffice/internal/interfaces/http/handler"
	"github.com/erp/backoffice/internal/interfaces/http/router"
)

//	@title			Back Office API
//	@version		1.0
//	@description	Business configuration and cost currency management
//	@BasePath		/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry comes first so the logger can tee into the OTEL log bridge
	tel := setupTelemetry(ctx, cfg, bootLog)
	log, err := logger.New(logCfg, logger.WithExtraCore(telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		LoggerProvider: tel.logs,
		Level:          zapcore.InfoLevel,
	})))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting back office",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	db, err := persistence.NewDatabase(&cfg.Database, log, cfg.Log.Level, cfg.Telemetry.DBSlowQueryThresh)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.DBTraceEnabled {
		plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:        "postgresql",
		}, log)
		if err := plugin.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}
	log.Info("Database connected successfully")

	redisClient := connectRedis(ctx, cfg, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	settingCache, err := cache.NewSettingCacheFactory(cfg.Cache,
		cache.WithRedisClient(redisClient),
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	).CreateCache()
	if err != nil {
		log.Fatal("Failed to create configuration cache", zap.Error(err))
	}
	defer func() { _ = settingCache.Close() }()

	// Live updates: local SSE clients always read from the broadcaster. With
	// Redis, emits go through Pub/Sub and the relay feeds every instance.
	broadcaster := notification.NewBroadcaster(log)
	var notifier realtime.Notifier = broadcaster
	if redisClient != nil {
		notifier = notification.NewRedisNotifier(redisClient, cfg.Notification.Channel, log)
		relay := notification.NewRelay(redisClient, cfg.Notification.Channel, broadcaster, log)
		go func() {
			if err := relay.Run(ctx, nil); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Notification relay stopped", zap.Error(err))
			}
		}()
	}

	// TODO: replace the logging rechecker once the online shop stock service exposes a client
	executors := []job.Executor{onlineshop.NewStockRecheckExecutor(nil, log)}
	queue := jobqueue.New(cfg.Queue, redisClient, executors, log)
	if err := queue.Start(ctx); err != nil {
		log.Fatal("Failed to start job queue", zap.Error(err))
	}

	var metrics *telemetry.ConfigurationMetrics
	if tel.metrics.IsEnabled() {
		metrics, err = telemetry.NewConfigurationMetrics(tel.metrics.Meter("backoffice/configuration"))
		if err != nil {
			log.Warn("Failed to create configuration metrics", zap.Error(err))
		}
	}

	configService := configuration.NewService(
		persistence.NewGormConfigurationScope(db.DB),
		persistence.NewGormSettingRepository(db.DB),
		persistence.NewGormBusinessRepository(db.DB),
		configuration.WithRecalculator(costing.NewRecalculator(cfg.Recalculation.BatchSize, cfg.Recalculation.MissingRatePolicy())),
		configuration.WithLocks(locking.NewKeyedMutex()),
		configuration.WithCache(settingCache),
		configuration.WithNotifier(notifier),
		configuration.WithJobQueue(queue),
		configuration.WithMetrics(metrics),
		configuration.WithLogger(log),
		configuration.WithSideEffectTimeout(cfg.Recalculation.SideEffectTimeout),
	)

	mode := gin.DebugMode
	if cfg.App.Env == "production" {
		mode = gin.ReleaseMode
	}
	engine, err := router.NewEngine(router.EngineConfig{
		Mode:           mode,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, log)
	if err != nil {
		log.Fatal("Failed to create HTTP engine", zap.Error(err))
	}

	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["redis"] = handler.PingerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	router.NewRouter(engine, router.WithAPIMiddleware(router.APIMiddleware()...)).
		RegisterSystem(handler.NewHealthHandler(cfg.App.Name, telemetry.ServiceVersion, checks)).
		Register(handler.NewConfigurationHandler(configService)).
		Register(handler.NewBusinessEventsHandler(broadcaster, handler.WithEventsLogger(log))).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error("Job queue did not drain", zap.Error(err))
	}
	tel.shutdown(shutdownCtx, log)

	log.Info("Server exited gracefully")
}

// telemetryStack groups the OTEL providers created at startup
type telemetryStack struct {
	tracer   *telemetry.TracerProvider
	metrics  *telemetry.MeterProvider
	logs     *telemetry.LoggerProvider
	profiler *telemetry.Profiler
}

// setupTelemetry creates the OTEL providers. A provider that fails to start is
// replaced by its disabled variant so the service still comes up.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) *telemetryStack {
	t := cfg.Telemetry
	stack := &telemetryStack{}
	var err error

	stack.tracer, err = telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           t.Enabled,
		CollectorEndpoint: t.CollectorEndpoint,
		SamplingRatio:     t.SamplingRatio,
		ServiceName:       t.ServiceName,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		log.Warn("Failed to initialize tracing", zap.Error(err))
		stack.tracer, _ = telemetry.NewTracerProvider(ctx, telemetry.Config{}, log)
	}

	stack.metrics, err = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           t.Enabled && t.MetricsEnabled,
		CollectorEndpoint: t.CollectorEndpoint,
		ExportInterval:    t.MetricsInterval,
		ServiceName:       t.ServiceName,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		log.Warn("Failed to initialize metrics", zap.Error(err))
		stack.metrics, _ = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{}, log)
	}

	stack.logs, err = telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           t.Enabled && t.LogsEnabled,
		CollectorEndpoint: t.CollectorEndpoint,
		ServiceName:       t.ServiceName,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		log.Warn("Failed to initialize log export", zap.Error(err))
		stack.logs, _ = telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{}, log)
	}

	stack.profiler, err = telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         t.ProfilingEnabled,
		ServerAddress:   t.ProfilerAddress,
		ApplicationName: t.ServiceName,
	}, log)
	if err != nil {
		log.Warn("Failed to start profiler", zap.Error(err))
		stack.profiler, _ = telemetry.NewProfiler(telemetry.ProfilerConfig{}, log)
	}
	if stack.profiler.IsEnabled() && stack.tracer.IsEnabled() {
		if err := stack.tracer.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to link spans to profiles", zap.Error(err))
		}
	}

	return stack
}

func (s *telemetryStack) shutdown(ctx context.Context, log *zap.Logger) {
	if err := s.tracer.Shutdown(ctx); err != nil {
		log.Warn("Tracer shutdown failed", zap.Error(err))
	}
	if err := s.metrics.Shutdown(ctx); err != nil {
		log.Warn("Meter shutdown failed", zap.Error(err))
	}
	if err := s.logs.Shutdown(ctx); err != nil {
		log.Warn("Log exporter shutdown failed", zap.Error(err))
	}
	if err := s.profiler.Stop(); err != nil {
		log.Warn("Profiler stop failed", zap.Error(err))
	}
}

// connectRedis returns nil when Redis is disabled or unreachable. Every
// Redis backed component then falls back to its in-process variant.
func connectRedis(ctx context.Context, cfg *config.Config, log *zap.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		log.Info("Redis disabled, using in-process cache, queue and notifications")
		return nil
	}
	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, using in-process fallbacks", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
		return nil
	}
	log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	return client
}
