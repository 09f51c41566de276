package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config - структура для хранения конфигурации приложения
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis Config
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Хранилище скриншотов (корневая директория; внутри - screenshots/)
	StorageRoot string `env:"STORAGE_ROOT" envDefault:"storage"`

	// Wablas Config (шлюз WhatsApp-уведомлений).
	// Отсутствие значений не является ошибкой старта: воркер проверяет их
	// на каждой доставке и молча пропускает отправку, залогировав проблему.
	WablasServerURL string `env:"WABLAS_SERVER_URL"`
	WablasAPIKey    string `env:"WABLAS_API_KEY"`
	WablasRecipient string `env:"WABLAS_RECIPIENT"`

	// Notify Config
	NotifyTimeout     time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"5s"`
	NotifyMaxAttempts int           `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"1"`
	NotifyBaseDelay   time.Duration `env:"NOTIFY_BASE_DELAY" envDefault:"2s"`

	// Кеш списка инцидентов
	IncidentCacheTTL time.Duration `env:"INCIDENT_CACHE_TTL" envDefault:"30s"`

	// JWT секрет для сессий операторов
	JWTSecret string `env:"JWT_SECRET"`
}

// LoadConfig загружает конфигурацию из переменных окружения и .env файла
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла (если есть)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("ошибка загрузки файла .env: %w", err)
	}

	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getEnvAsInt("REDIS_DB", 0),
		StorageRoot:       getEnv("STORAGE_ROOT", "storage"),
		WablasServerURL:   os.Getenv("WABLAS_SERVER_URL"),
		WablasAPIKey:      os.Getenv("WABLAS_API_KEY"),
		WablasRecipient:   os.Getenv("WABLAS_RECIPIENT"),
		NotifyTimeout:     getEnvAsDuration("NOTIFY_TIMEOUT", 5*time.Second),
		NotifyMaxAttempts: getEnvAsInt("NOTIFY_MAX_ATTEMPTS", 1),
		NotifyBaseDelay:   getEnvAsDuration("NOTIFY_BASE_DELAY", 2*time.Second),
		IncidentCacheTTL:  getEnvAsDuration("INCIDENT_CACHE_TTL", 30*time.Second),
		JWTSecret:         os.Getenv("JWT_SECRET"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	return cfg, nil
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt возвращает значение переменной окружения как int или значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration возвращает значение переменной окружения как time.Duration или значение по умолчанию
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
