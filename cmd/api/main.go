// Package main - точка входа для API-сервера скорингового движка.
//
// Сервер отвечает на запросы табло и рангов, принимает результаты
// тестирования от judging-хостов через webhook и превращает их в
// пересчёты кешей счёта и ранга.
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries/Event Handlers)
// - Infrastructure: реализация репозиториев, Redis, event bus
// - Interface: HTTP endpoints
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	// Application layer
	"github.com/codearena/scoring-engine/internal/application/command"
	"github.com/codearena/scoring-engine/internal/application/eventhandler"
	"github.com/codearena/scoring-engine/internal/application/query"

	// Infrastructure layer
	"github.com/codearena/scoring-engine/internal/infrastructure/messaging"
	"github.com/codearena/scoring-engine/internal/infrastructure/persistence/postgres"
	"github.com/codearena/scoring-engine/internal/infrastructure/persistence/redis"

	// Interface layer
	httpserver "github.com/codearena/scoring-engine/internal/interface/http"
	"github.com/codearena/scoring-engine/internal/interface/http/handlers"

	// Packages
	"github.com/codearena/scoring-engine/config"
	"github.com/codearena/scoring-engine/internal/domain/shared"
	"github.com/codearena/scoring-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// Создаём корневой контекст с возможностью отмены
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запускаем приложение
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting scoring engine API",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	// Проверяем соединение
	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	status, err := migrator.Status(ctx)
	if err != nil {
		log.Warn("failed to get migration status", "error", err)
	} else {
		appliedCount := 0
		for _, m := range status {
			if m.IsApplied {
				appliedCount++
			}
		}
		log.Info("migrations completed", "applied", appliedCount, "total", len(status))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var scoreboardCache *redis.ScoreboardCache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, scoreboard caching disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			scoreboardCache = redis.NewScoreboardCacheWithTTL(redisCache, cfg.Scoring.ScoreboardCacheTTL)
			log.Info("Redis connection established")
		}
	}

	// Типизированный nil в интерфейсе не считается отключенным кешем,
	// поэтому интерфейсная переменная присваивается только при наличии Redis.
	var sbCache query.ScoreboardCache
	if scoreboardCache != nil && cfg.Features.IsEnabled(config.FeatureScoreboardCache, nil) {
		sbCache = scoreboardCache
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	contestRepo := postgres.NewContestRepository(dbConn)
	teamRepo := postgres.NewTeamRepository(dbConn)
	problemRepo := postgres.NewProblemRepository(dbConn)
	submissionRepo := postgres.NewSubmissionRepository(dbConn)
	scoreRepo := postgres.NewScoreCacheRepository(dbConn)
	rankRepo := postgres.NewRankCacheRepository(dbConn)
	optionsRepo := postgres.NewOptionsRepository(dbConn)
	locker := postgres.NewAdvisoryLockerWithTimeout(dbConn, cfg.Scoring.LockWaitTimeout)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	eventBus, closeBus, err := buildEventBus(cfg, redisCache, log)
	if err != nil {
		return fmt.Errorf("failed to initialize event bus: %w", err)
	}
	defer func() {
		log.Info("closing event bus...")
		_ = closeBus()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ИНИЦИАЛИЗАЦИЯ APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	rankCmd := command.NewUpdateRankCacheHandler(
		teamRepo, problemRepo, scoreRepo, rankRepo, locker, optionsRepo, eventBus)
	scoreCmd := command.NewCalculateScoreRowHandler(
		teamRepo, submissionRepo, scoreRepo, locker, optionsRepo, rankCmd, eventBus)
	rebuildCmd := command.NewRebuildScoreCacheHandler(
		submissionRepo, scoreRepo, rankRepo, scoreCmd, rankCmd, eventBus)

	teamRankQuery := query.NewGetTeamRankHandler(
		contestRepo, teamRepo, scoreRepo, rankRepo, optionsRepo)
	scoreboardQuery := query.NewGetScoreboardHandler(
		contestRepo, teamRepo, problemRepo, scoreRepo, rankRepo, optionsRepo, sbCache)
	teamScoreboardQuery := query.NewGetTeamScoreboardHandler(
		contestRepo, teamRepo, problemRepo, scoreRepo, rankRepo, optionsRepo, teamRankQuery)
	filterValuesQuery := query.NewGetFilterValuesHandler(teamRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. РЕГИСТРАЦИЯ EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("registering event handlers...")

	dispatcher, err := buildDispatcher(cfg, eventBus, sbCache, scoreCmd, log)
	if err != nil {
		return fmt.Errorf("failed to build event dispatcher: %w", err)
	}
	defer func() {
		log.Info("stopping event dispatcher...")
		_ = dispatcher.Stop()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 10. ИНИЦИАЛИЗАЦИЯ HEALTH CHECKS И ИНГЕСТА
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}
	if scoreboardCache != nil {
		healthChecker.AddCheck("cache_breaker", handlers.NewBreakerCheck(scoreboardCache.Breaker()))
	}

	ingest := handlers.NewJudgingIngest(eventBus)
	ingest.SetErrorHandler(func(err error) {
		log.Error("judging event publish failed", "error", err)
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 11. СОЗДАНИЕ HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimit

	httpDeps := httpserver.Dependencies{
		GetScoreboardHandler:     scoreboardQuery,
		GetTeamScoreboardHandler: teamScoreboardQuery,
		GetTeamRankHandler:       teamRankQuery,
		GetFilterValuesHandler:   filterValuesQuery,
		RebuildScoreCacheHandler: rebuildCmd,
		JuryAuth:                 handlers.NewJuryAuth("X-API-Key", cfg.HTTP.JuryKeyHash),
		Ingest:                   ingest,
		Features:                 cfg.Features,
		Logger:                   logger.Default(),
		HealthChecker:            healthChecker,
	}

	httpServer := httpserver.NewServer(httpConfig, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 12. ЗАПУСК СЕРВИСОВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("starting services...")

	// Канал для ошибок
	errCh := make(chan error, 1)

	// Запускаем HTTP сервер (Start сам глотает ErrServerClosed)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 13. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("scoring engine API is running",
		"http_address", httpServer.Address(),
	)

	// Ожидаем сигнал завершения или ошибку
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("service error", "error", err)
		return err
	}

	// Начинаем graceful shutdown
	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	// 1. Останавливаем HTTP сервер (перестаём принимать новые запросы)
	log.Info("stopping HTTP server...")
	var shutdownErr error
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		shutdownErr = err
	}

	// 2. Event bus закроется через defer: дожидается обработчиков в полёте

	// 3. База данных закроется через defer

	if shutdownErr != nil {
		log.Warn("shutdown completed with errors")
	} else {
		log.Info("shutdown completed successfully")
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if cfg.App.Debug || cfg.Observability.LogLevel == "debug" {
		opts.Level = slog.LevelDebug
	}

	if cfg.Observability.LogFormat == "json" {
		// JSON формат для production (лучше для агрегаторов логов)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		// Текстовый формат для development (лучше читается)
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

// buildDispatcher регистрирует обработчики доменных событий и запускает
// диспетчер поверх шины. Пересчёт строк счёта идемпотентен, поэтому
// повторная доставка события безопасна.
func buildDispatcher(
	cfg *config.Config,
	eventBus shared.EventBus,
	sbCache query.ScoreboardCache,
	scoreCmd *command.CalculateScoreRowHandler,
	log *slog.Logger,
) (*messaging.Dispatcher, error) {
	dispatcherCfg := messaging.DefaultDispatcherConfig(eventBus)
	dispatcherCfg.WorkerPoolSize = cfg.Scoring.EventWorkers
	dispatcherCfg.Logger = log

	dispatcher := messaging.NewDispatcher(dispatcherCfg)
	dispatcher.Use(messaging.RecoveryMiddleware(log))
	dispatcher.Use(messaging.LoggingMiddleware(log))

	judgingCfg := eventhandler.DefaultJudgingUpdatedConfig()
	judgingCfg.MaxAttempts = cfg.Scoring.HandlerMaxAttempts
	judgingHandler := eventhandler.NewOnJudgingUpdatedHandler(scoreCmd, log, judgingCfg)

	// Обработчик повторяет пересчёт сам, диспетчеру хватает одной
	// дополнительной попытки на случай краткого сбоя базы.
	for _, eventType := range []shared.EventType{
		shared.EventJudgingResultChanged,
		shared.EventSubmissionInvalidated,
	} {
		reg := messaging.HandlerRegistration{
			Name:       "judging-recompute",
			Handler:    judgingHandler.Handle,
			Async:      true,
			MaxRetries: 1,
		}
		if err := dispatcher.RegisterHandler(eventType, reg); err != nil {
			return nil, err
		}
	}

	if sbCache != nil {
		invalidator := eventhandler.NewOnScoreboardChangedHandler(
			sbCache, log, eventhandler.DefaultScoreboardChangedConfig())
		for _, eventType := range []shared.EventType{
			shared.EventScoreRowUpdated,
			shared.EventRankRowUpdated,
			shared.EventFirstToSolve,
			shared.EventCacheRebuilt,
		} {
			if err := dispatcher.Register(eventType, "scoreboard-invalidate", invalidator.Handle); err != nil {
				return nil, err
			}
		}
	}

	if err := dispatcher.Start(); err != nil {
		return nil, err
	}
	return dispatcher, nil
}

// buildEventBus выбирает реализацию шины событий. Распределённая шина
// поверх Redis pub/sub включается экспериментальным флагом и требует
// живого Redis; иначе используется in-memory шина.
func buildEventBus(cfg *config.Config, redisCache *redis.Cache, log *slog.Logger) (shared.EventBus, func() error, error) {
	localConfig := messaging.DefaultInMemoryEventBusConfig()
	localConfig.Logger = log
	localConfig.AsyncMode = cfg.Scoring.AsyncEvents
	localConfig.WorkerPoolSize = cfg.Scoring.EventWorkers

	if redisCache != nil && cfg.Features.IsEnabled(config.FeatureExperimentalPubSub, nil) {
		adapter := redis.NewPubSubAdapter(redisCache)
		bus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         adapter,
			ChannelName:    cfg.Scoring.EventChannel,
			LocalBusConfig: localConfig,
			Logger:         log,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info("using Redis event bus", "channel", cfg.Scoring.EventChannel)
		return bus, bus.Close, nil
	}

	bus := messaging.NewInMemoryEventBus(localConfig)
	return bus, bus.Close, nil
}
