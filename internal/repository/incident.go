package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/luthfan1234/EYEONSTREET/internal/models"
	"github.com/luthfan1234/EYEONSTREET/internal/service"
	"github.com/redis/go-redis/v9"
)

const incidentListCacheKey = "incidents:all"

type IncidentRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client, cacheTTL time.Duration) service.IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
	}
}

// Create создает новую запись об инциденте в бд.
// Вызывается только после успешной записи артефакта на диск: строка не должна
// стать видимой читателям раньше, чем существует файл, на который она ссылается.
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (camera_id, incident_type, image_path)
		VALUES ($1, $2, $3) RETURNING id, created_at, updated_at;
	`
	err := r.db.QueryRow(ctx, query,
		incident.CameraID,
		incident.IncidentType,
		incident.ImagePath,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	return nil
}

// GetByID возвращает инцидент по его идентификатору
func (r *IncidentRepository) GetByID(ctx context.Context, id int64) (*models.Incident, error) {
	incident := &models.Incident{}
	query := `
		SELECT
			id,
			camera_id,
			incident_type,
			image_path,
			created_at,
			updated_at
		FROM incidents
		WHERE id = $1;
	`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&incident.ID,
		&incident.CameraID,
		&incident.IncidentType,
		&incident.ImagePath,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("incident with id %d not found", id)
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}
	return incident, nil
}

// ListIncidents возвращает все инциденты, новые первыми.
// Пагинации нет: дашборд забирает список целиком на каждом цикле опроса.
func (r *IncidentRepository) ListIncidents(ctx context.Context) ([]*models.Incident, error) {
	query := `
		SELECT
			id,
			camera_id,
			incident_type,
			image_path,
			created_at,
			updated_at
		FROM incidents
		ORDER BY created_at DESC, id DESC;
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident := &models.Incident{}
		err := rows.Scan(
			&incident.ID,
			&incident.CameraID,
			&incident.IncidentType,
			&incident.ImagePath,
			&incident.CreatedAt,
			&incident.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, nil
}

// GetIncidentListFromCache пытается получить список инцидентов из Redis
func (r *IncidentRepository) GetIncidentListFromCache(ctx context.Context) ([]*models.Incident, error) {
	val, err := r.redisClient.Get(ctx, incidentListCacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident list from cache: %w", err)
	}

	incidents := make([]*models.Incident, 0)
	if err := json.Unmarshal(val, &incidents); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident list from cache: %w", err)
	}
	return incidents, nil
}

// SetIncidentListCache сохраняет список инцидентов в Redis
func (r *IncidentRepository) SetIncidentListCache(ctx context.Context, incidents []*models.Incident) error {
	val, err := json.Marshal(incidents)
	if err != nil {
		return fmt.Errorf("failed to marshal incident list for cache: %w", err)
	}
	if err := r.redisClient.Set(ctx, incidentListCacheKey, val, r.cacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set incident list in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentListCache удаляет список инцидентов из Redis кэша
func (r *IncidentRepository) InvalidateIncidentListCache(ctx context.Context) error {
	if err := r.redisClient.Del(ctx, incidentListCacheKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident list cache: %w", err)
	}
	return nil
}
