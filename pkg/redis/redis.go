package redis

import (
	"context"
	"fmt"

	"github.com/luthfan1234/EYEONSTREET/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient создает и возвращает новый клиент Redis.
// Один клиент обслуживает и кеш списка инцидентов, и очередь уведомлений.
func NewRedisClient(ctx context.Context, appCfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     appCfg.RedisAddr,
		Password: appCfg.RedisPass,
		DB:       appCfg.RedisDB,
		PoolSize: 10,
	})

	// Проверяем соединение с Redis
	_, err := rdb.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return rdb, nil
}
