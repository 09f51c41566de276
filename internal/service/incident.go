package service

import (
	"context"
	"fmt"
	"time"

	"github.com/luthfan1234/EYEONSTREET/internal/artifact"
	"github.com/luthfan1234/EYEONSTREET/internal/imagedata"
	"github.com/luthfan1234/EYEONSTREET/internal/metrics"
	"github.com/luthfan1234/EYEONSTREET/internal/models"
	"github.com/luthfan1234/EYEONSTREET/internal/notifier"
	"github.com/sirupsen/logrus"
)

// IncidentRepository определяет контракт для работы с бд инцидентов
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id int64) (*models.Incident, error)
	ListIncidents(ctx context.Context) ([]*models.Incident, error)
	GetIncidentListFromCache(ctx context.Context) ([]*models.Incident, error)
	SetIncidentListCache(ctx context.Context, incidents []*models.Incident) error
	InvalidateIncidentListCache(ctx context.Context) error
}

// IncidentService определяет контракт для бизнес-логики конвейера инцидентов
type IncidentService interface {
	ReportIncident(ctx context.Context, cameraID, incidentType, image string) (*models.Incident, error)
	ListIncidents(ctx context.Context) ([]*models.Incident, error)
}

type incidentService struct {
	repo      IncidentRepository
	artifacts artifact.Store
	publisher notifier.AlertPublisher
	logger    *logrus.Logger
	mtr       *metrics.Metrics
}

func NewIncidentService(repo IncidentRepository, artifacts artifact.Store, publisher notifier.AlertPublisher, logger *logrus.Logger, mtr *metrics.Metrics) IncidentService {
	return &incidentService{
		repo:      repo,
		artifacts: artifacts,
		publisher: publisher,
		logger:    logger,
		mtr:       mtr,
	}
}

// ReportIncident принимает событие детекции: декодирует изображение,
// сохраняет артефакт, создает запись и для ДТП ставит уведомление в очередь.
// Порядок строгий: файл пишется до строки в бд, чтобы запись никогда не
// ссылалась на отсутствующий артефакт. Обратный сценарий (файл без строки
// после сбоя вставки) - допустимая утечка, откат не выполняется.
func (s *incidentService) ReportIncident(ctx context.Context, cameraID, incidentType, image string) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":       "incident",
		"method":        "ReportIncident",
		"camera_id":     cameraID,
		"incident_type": incidentType,
	})
	log.Info("Attempting to report a new incident")

	img, err := imagedata.Parse(image)
	if err != nil {
		log.WithError(err).Warn("Failed to decode incident image payload")
		s.mtr.IncidentsRejected.Inc()
		return nil, fmt.Errorf("service: could not decode image: %w", err)
	}

	imagePath, err := s.artifacts.SaveImage(img)
	if err != nil {
		log.WithError(err).Error("Failed to store incident artifact")
		return nil, fmt.Errorf("service: could not store artifact: %w", err)
	}

	incident := &models.Incident{
		CameraID:     cameraID,
		IncidentType: incidentType,
		ImagePath:    imagePath,
	}
	if err := s.repo.Create(ctx, incident); err != nil {
		// Артефакт уже на диске и остается там: осиротевший файл без строки
		// безопаснее, чем строка без файла
		log.WithError(err).Error("Failed to create incident in repository")
		return nil, fmt.Errorf("service: could not create incident: %w", err)
	}
	s.mtr.IncidentsIngested.Inc()

	if err := s.repo.InvalidateIncidentListCache(ctx); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident list cache")
	}

	// Уведомление только для ДТП. Ошибка постановки в очередь не отменяет
	// уже созданный инцидент и не видна отправителю - только в логах.
	if incident.IncidentType == models.IncidentTypeAccident {
		event := notifier.AlertEvent{
			IncidentID: incident.ID,
			EnqueuedAt: time.Now(),
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			log.WithError(err).Error("Failed to enqueue alert for incident")
		} else {
			s.mtr.AlertsPublished.Inc()
		}
	}

	log.WithField("incident_id", incident.ID).Info("Incident reported successfully")
	return incident, nil
}

// ListIncidents возвращает все инциденты, новые первыми.
// Промах или ошибка кеша деградируют в чтение из бд, а не в ошибку ответа.
func (s *incidentService) ListIncidents(ctx context.Context) ([]*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "ListIncidents",
	})

	cached, err := s.repo.GetIncidentListFromCache(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to read incident list cache")
	}
	if cached != nil {
		log.WithField("count", len(cached)).Debug("Incident list served from cache")
		return cached, nil
	}

	incidents, err := s.repo.ListIncidents(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	if err := s.repo.SetIncidentListCache(ctx, incidents); err != nil {
		log.WithError(err).Warn("Failed to cache incident list")
	}

	log.WithField("count", len(incidents)).Info("Incidents listed successfully")
	return incidents, nil
}
