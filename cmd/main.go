package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/luthfan1234/EYEONSTREET/internal/artifact"
	"github.com/luthfan1234/EYEONSTREET/internal/auth"
	"github.com/luthfan1234/EYEONSTREET/internal/config"
	v1 "github.com/luthfan1234/EYEONSTREET/internal/handler/http/v1"
	"github.com/luthfan1234/EYEONSTREET/internal/metrics"
	"github.com/luthfan1234/EYEONSTREET/internal/notifier"
	"github.com/luthfan1234/EYEONSTREET/internal/repository"
	"github.com/luthfan1234/EYEONSTREET/internal/service"
	"github.com/luthfan1234/EYEONSTREET/pkg/logger"
	"github.com/luthfan1234/EYEONSTREET/pkg/postgres"
	redisclient "github.com/luthfan1234/EYEONSTREET/pkg/redis"
	"github.com/sirupsen/logrus"

	_ "github.com/luthfan1234/EYEONSTREET/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title EYEONSTREET API
// @version 1.0
// @description Traffic incident monitoring backend: CCTV detection events in, WhatsApp alerts out.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func runMigrations(cfg *config.Config, log *logrus.Logger) error {
	log.Info("Running database migrations...")

	migrationURL := cfg.DatabaseURL
	if !strings.HasPrefix(migrationURL, "pgx5://") {
		migrationURL = strings.Replace(migrationURL, "postgres://", "pgx5://", 1)
	}

	m, err := migrate.New(
		"file://migrations",
		migrationURL,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database migrations applied successfully")
	return nil
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	log := logger.New(cfg.LogLevel)

	// Контекст для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запуск миграций
	if err := runMigrations(cfg, log); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Подключение к PostgreSQL
	dbpool, err := postgres.NewPostgresDB(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbpool.Close()
	log.Info("Successfully connected to PostgreSQL")

	// Инициализация Redis клиента
	redisClient, err := redisclient.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Info("Successfully connected to Redis")

	// Метрики приложения
	mtr := metrics.New()

	// Инициализация репозиториев
	incidentRepo := repository.NewIncidentRepository(dbpool, redisClient, cfg.IncidentCacheTTL)
	userRepo := repository.NewUserRepository(dbpool)

	// Инициализация издателя и воркера уведомлений
	alertPublisher := notifier.NewRedisAlertPublisher(redisClient)
	alertWorker := notifier.NewAlertWorker(redisClient, incidentRepo, log, cfg, mtr)
	alertWorker.Start(ctx)

	// Хранилище скриншотов
	artifactStore := artifact.NewDiskStore(cfg.StorageRoot)

	// Инициализация сервисов
	incidentService := service.NewIncidentService(incidentRepo, artifactStore, alertPublisher, log, mtr)
	authService := auth.NewService(userRepo, cfg.JWTSecret)

	// Инициализация хэндлеров
	handler := v1.NewHandler(incidentService, authService, log, cfg, mtr)

	// Настройка Gin роутера
	router := gin.Default()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	// Артефакты отдаются статически: imagePath инцидента - ключ загрузки
	router.Static("/screenshots", filepath.Join(cfg.StorageRoot, "screenshots"))

	// Метрики Prometheus
	router.GET("/metrics", gin.WrapH(mtr.Handler()))

	// Добавление маршрута для Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Запуск HTTP-сервера
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	// Запуск сервера в горутине
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error starting HTTP server: %v", err)
		}
	}()
	log.Infof("HTTP server started on port %s", cfg.HTTPPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal, shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server gracefully stopped")
}
