package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-sync/internal/config"
	"github.com/BuzzLyutic/task-sync/internal/handler"
	"github.com/BuzzLyutic/task-sync/internal/repo"
)

func main() {
	// Подключаем логгер
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Загрузка конфигурации
	cfg, err := config.Load(".")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	var store repo.CollectionStore = repo.NewMemoryCollection()
	if cfg.StoreDriver == config.DriverPostgres {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to Database", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(context.Background()); err != nil {
			logger.Fatal("Failed to ping the Database", zap.Error(err))
		}
		if err := repo.Migrate(context.Background(), pool); err != nil {
			logger.Fatal("Failed to migrate the Database", zap.Error(err))
		}
		logger.Info("Successfully connected to the Database!")
		store = repo.NewPostgresCollection(pool)
	}

	srv := http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.NewRouter(store, cfg.CollectionRoot, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() { // Запуск сервера и обработка ошибок
		logger.Info("Server started",
			zap.String("addr", srv.Addr),
			zap.String("collection", cfg.CollectionRoot+".json"),
			zap.String("store", cfg.StoreDriver),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Shutdown error", zap.Error(err))
	}
	logger.Info("Server stopped successfully!")
}
