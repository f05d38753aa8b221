// Package main - точка входа для фонового воркера скорингового движка.
//
// Воркер выполняет периодические задачи:
// - Полная пересборка кешей счёта и ранга (консистентность после сбоев)
// - Прогрев публичных табло в кеше
//
// Воркер также подписан на события тестирования, чтобы при работе через
// распределённую шину пересчёты выполнялись и вне API-процесса.
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
	"github.com/codearena/scoring-engine/internal/infrastructure/scheduler"
	"github.com/codearena/scoring-engine/internal/infrastructure/scheduler/jobs"

	// Packages
	"github.com/codearena/scoring-engine/config"
	"github.com/codearena/scoring-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	if !cfg.Scheduler.Enabled {
		fmt.Fprintln(os.Stderr, "scheduler is disabled, nothing to do")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting scoring engine worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
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

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// Миграции применяет API-процесс; воркер только проверяет их состояние.
	migrator := postgres.NewMigrator(dbConn)
	status, err := migrator.Status(ctx)
	if err != nil {
		log.Warn("failed to get migration status", "error", err)
	} else {
		for _, m := range status {
			if !m.IsApplied {
				return fmt.Errorf("pending migration %q, run the API service first", m.Name)
			}
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
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
			log.Warn("failed to connect to Redis, scoreboard warming disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			scoreboardCache = redis.NewScoreboardCacheWithTTL(redisCache, cfg.Scoring.ScoreboardCacheTTL)
			log.Info("Redis connection established")
		}
	}

	var sbCache query.ScoreboardCache
	if scoreboardCache != nil && cfg.Features.IsEnabled(config.FeatureScoreboardCache, nil) {
		sbCache = scoreboardCache
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ
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
	// 6. ИНИЦИАЛИЗАЦИЯ EVENT BUS
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
	// 7. ИНИЦИАЛИЗАЦИЯ APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	rankCmd := command.NewUpdateRankCacheHandler(
		teamRepo, problemRepo, scoreRepo, rankRepo, locker, optionsRepo, eventBus)
	scoreCmd := command.NewCalculateScoreRowHandler(
		teamRepo, submissionRepo, scoreRepo, locker, optionsRepo, rankCmd, eventBus)
	rebuildCmd := command.NewRebuildScoreCacheHandler(
		submissionRepo, scoreRepo, rankRepo, scoreCmd, rankCmd, eventBus)
	scoreboardQuery := query.NewGetScoreboardHandler(
		contestRepo, teamRepo, problemRepo, scoreRepo, rankRepo, optionsRepo, sbCache)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. РЕГИСТРАЦИЯ EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	dispatcher, err := buildDispatcher(cfg, eventBus, sbCache, scoreCmd, log)
	if err != nil {
		return fmt.Errorf("failed to build event dispatcher: %w", err)
	}
	defer func() {
		log.Info("stopping event dispatcher...")
		_ = dispatcher.Stop()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 9. НАСТРОЙКА ПЛАНИРОВЩИКА
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing scheduler...")

	schedConfig := scheduler.DefaultSchedulerConfig()
	schedConfig.Logger = log
	sched := scheduler.NewScheduler(schedConfig)

	rebuildSchedule, err := scheduler.ParseCronExpression(cfg.Scheduler.RebuildCron)
	if err != nil {
		return fmt.Errorf("invalid rebuild cron expression %q: %w", cfg.Scheduler.RebuildCron, err)
	}

	rebuildJob := jobs.NewRebuildCachesJob(contestRepo, rebuildCmd, log, jobs.DefaultRebuildCachesConfig())
	if err := sched.Register(rebuildJob, rebuildSchedule); err != nil {
		return fmt.Errorf("failed to register rebuild job: %w", err)
	}
	log.Info("registered job", "name", rebuildJob.Name(), "schedule", rebuildSchedule.String())

	if sbCache != nil && cfg.Features.IsEnabled(config.FeatureScoreboardWarming, nil) {
		warmJob := jobs.NewWarmScoreboardsJob(contestRepo, scoreboardQuery, log, jobs.DefaultWarmScoreboardsConfig())
		warmSchedule := scheduler.NewIntervalSchedule(cfg.Scheduler.WarmInterval)
		if err := sched.Register(warmJob, warmSchedule); err != nil {
			return fmt.Errorf("failed to register warming job: %w", err)
		}
		log.Info("registered job", "name", warmJob.Name(), "schedule", warmSchedule.String())
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	log.Info("scoring engine worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())

	log.Info("stopping scheduler...")
	if err := sched.Stop(); err != nil {
		log.Error("failed to stop scheduler gracefully", "error", err)
		return err
	}

	log.Info("shutdown completed successfully")
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
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

// buildDispatcher регистрирует обработчики доменных событий и запускает
// диспетчер поверх шины, как и в API-процессе.
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

// buildEventBus выбирает реализацию шины событий, как и в API-процессе.
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
