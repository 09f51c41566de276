package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	alertQueueKey = "incident_alerts"
)

// AlertEvent - задача на отправку уведомления об инциденте.
// Несет только идентификатор (ссылку на запись, а не копию строки):
// воркер перечитывает инцидент из бд в момент доставки.
type AlertEvent struct {
	IncidentID int64     `json:"incident_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// AlertPublisher - интерфейс для постановки уведомлений в очередь
type AlertPublisher interface {
	Publish(ctx context.Context, event AlertEvent) error
}

// RedisAlertPublisher - реализация AlertPublisher, использующая Redis
type RedisAlertPublisher struct {
	redisClient *redis.Client
}

// NewRedisAlertPublisher создает новый RedisAlertPublisher
func NewRedisAlertPublisher(client *redis.Client) *RedisAlertPublisher {
	return &RedisAlertPublisher{
		redisClient: client,
	}
}

// Publish публикует событие уведомления в очередь Redis
func (p *RedisAlertPublisher) Publish(ctx context.Context, event AlertEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}

	// Используем LPUSH для добавления события в левую часть списка (очереди)
	if err := p.redisClient.LPush(ctx, alertQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish alert event to Redis: %w", err)
	}
	return nil
}
