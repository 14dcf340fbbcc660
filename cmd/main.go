package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/season-engine/config"
	"github.com/Dosada05/season-engine/db"
	"github.com/Dosada05/season-engine/events"
	"github.com/Dosada05/season-engine/handlers"
	"github.com/Dosada05/season-engine/locking"
	"github.com/Dosada05/season-engine/repositories"
	api "github.com/Dosada05/season-engine/routes"
	"github.com/Dosada05/season-engine/services"
	"github.com/Dosada05/season-engine/simulation"
	"github.com/Dosada05/season-engine/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("storage", cfg.StorageDriver),
		slog.Duration("tick_interval", cfg.TickInterval))

	// Конфигурация соревнований проверяется целиком при старте
	competitions, err := config.LoadCompetitions(cfg.CompetitionsFile)
	if err != nil {
		logger.Error("failed to load competitions", slog.String("file", cfg.CompetitionsFile), slog.Any("error", err))
		os.Exit(1)
	}
	schedule, err := config.NewSchedule(competitions)
	if err != nil {
		logger.Error("failed to build schedule", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("competitions loaded", slog.Int("count", len(competitions.Competitions)))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Хранилище: PostgreSQL или память
	var store repositories.Set
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		store = repositories.NewMemoryStore().Set()
		logger.Warn("using in-memory storage, state is lost on restart")
	default:
		dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := dbConn.Close(); err != nil {
				logger.Error("failed to close database connection", slog.Any("error", err))
			} else {
				logger.Info("database connection closed")
			}
		}()
		if err := db.Migrate(ctx, dbConn); err != nil {
			logger.Error("failed to migrate database", slog.Any("error", err))
			os.Exit(1)
		}
		store = repositories.NewPostgresSet(dbConn, logger)
		logger.Info("database connection established")
	}

	for _, c := range competitions.Competitions {
		if err := store.Competitions.Upsert(ctx, c.ToModel()); err != nil {
			logger.Error("failed to store competition", slog.String("competition_id", c.ID), slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Блокировка продвижения: Redis для нескольких инстансов
	var locker locking.Locker = locking.NewLocalLocker()
	if cfg.RedisAddr != "" {
		client, err := locking.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Error("failed to connect to Redis", slog.String("addr", cfg.RedisAddr), slog.Any("error", err))
			os.Exit(1)
		}
		defer client.Close()
		locker = locking.NewRedisLocker(client, locking.DefaultLockTTL, logger)
		logger.Info("Redis advance lock enabled", slog.String("addr", cfg.RedisAddr))
	}

	// Инициализация WebSocket Hub
	wsHub := events.NewHub(logger)
	go wsHub.Run(ctx)
	dispatcher := events.NewDispatcher(logger)
	dispatcher.AddPublisher(wsHub)
	logger.Info("WebSocket Hub started")

	// Архив журнала переходов (Cloudflare R2)
	var archiver *storage.Archiver
	if cfg.ArchiveEnabled() {
		r2, err := storage.NewCloudflareR2Store(ctx, storage.CloudflareR2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 store", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = storage.NewArchiver(r2)
		logger.Info("Cloudflare R2 season archive enabled", slog.String("bucket", cfg.R2BucketName))
	}

	simulator := simulation.NewRatingSimulator(time.Now().UnixNano())
	lineups := services.NewManagedLineups(store.Lineups)
	engine, err := services.NewEngine(services.EngineDeps{
		Store:        store,
		Competitions: competitions,
		Schedule:     schedule,
		Simulator:    simulator,
		TieBreaker:   simulator,
		Lineups:      lineups,
		Locker:       locker,
		Dispatcher:   dispatcher,
		Archiver:     archiver,
		Logger:       logger,
	})
	if err != nil {
		logger.Error("failed to initialize engine", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Services initialized")

	// Планировщик: продвигает все игры по таймеру
	if cfg.TickInterval > 0 {
		runner := services.NewTickRunner(engine.Advance, store.Games, cfg.TickInterval, logger)
		go runner.Run(ctx)
	}

	// Инициализация обработчиков HTTP
	gameHandler := handlers.NewGameHandler(engine, lineups, logger)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, cfg.AllowedOrigins, logger)

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Options{
		JWTSecret:      []byte(cfg.JWTSecretKey),
		AllowedOrigins: cfg.AllowedOrigins,
		Games:          store.Games,
		Logger:         logger,
	}, gameHandler, webSocketHandler)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		stop()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		// Сначала останавливаем тики и hub, начатый батч дорабатывает сам.
		stop()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
