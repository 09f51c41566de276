package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/luthfan1234/EYEONSTREET/internal/config"
	"github.com/luthfan1234/EYEONSTREET/internal/metrics"
	"github.com/luthfan1234/EYEONSTREET/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// sendMessagePath - фиксированный путь API Wablas для отправки сообщения
const sendMessagePath = "/api/send-message"

// IncidentFetcher - контракт воркера на чтение инцидента по ссылке из события
type IncidentFetcher interface {
	GetByID(ctx context.Context, id int64) (*models.Incident, error)
}

// wablasRequest - тело запроса к шлюзу Wablas
type wablasRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// AlertWorker - фоновый обработчик очереди уведомлений.
// Доставка fire-and-forget: исход не записывается в инцидент, только в логи
// и метрики. Запрос, породивший событие, к этому моменту давно завершен.
type AlertWorker struct {
	redisClient *redis.Client
	incidents   IncidentFetcher
	logger      *logrus.Logger
	cfg         *config.Config
	mtr         *metrics.Metrics
	httpClient  *http.Client
	now         func() time.Time
}

// NewAlertWorker создает новый AlertWorker
func NewAlertWorker(redisClient *redis.Client, incidents IncidentFetcher, logger *logrus.Logger, cfg *config.Config, mtr *metrics.Metrics) *AlertWorker {
	return &AlertWorker{
		redisClient: redisClient,
		incidents:   incidents,
		logger:      logger,
		cfg:         cfg,
		mtr:         mtr,
		httpClient: &http.Client{
			// Явный таймаут: зависший шлюз считается неудачной доставкой
			Timeout: cfg.NotifyTimeout,
		},
		now: time.Now,
	}
}

// Start запускает горутину для обработки очереди уведомлений
func (w *AlertWorker) Start(ctx context.Context) {
	w.logger.Info("Starting alert worker...")
	go func() {
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("Stopping alert worker.")
				return
			default:
				// BRPop - блокирующее извлечение из правой части списка (очереди)
				// 0 означает бесконечное ожидание
				result, err := w.redisClient.BRPop(ctx, 0, alertQueueKey).Result()
				if err != nil {
					if errors.Is(err, context.Canceled) {
						continue // Контекст отменен, но не ошибка Redis
					}
					w.logger.WithError(err).Error("Failed to pop alert event from Redis")
					time.Sleep(w.cfg.NotifyTimeout) // Ждем перед повторной попыткой
					continue
				}

				// result[0] - ключ, result[1] - значение
				payload := result[1]
				var event AlertEvent
				if err := json.Unmarshal([]byte(payload), &event); err != nil {
					w.logger.WithError(err).Error("Failed to unmarshal alert event from Redis")
					continue
				}

				w.processAlertEvent(ctx, event)
			}
		}
	}()
}

// processAlertEvent выполняет одну задачу доставки.
// Отсутствие конфигурации шлюза - мягкий отказ: задача логирует проблему и
// завершается без побочных эффектов, инцидент остается нетронутым.
func (w *AlertWorker) processAlertEvent(ctx context.Context, event AlertEvent) {
	log := w.logger.WithField("incident_id", event.IncidentID)
	log.Debug("Processing alert event...")

	if w.cfg.WablasServerURL == "" || w.cfg.WablasAPIKey == "" || w.cfg.WablasRecipient == "" {
		log.Error("Wablas gateway is not configured. Skipping alert delivery.")
		return
	}

	incident, err := w.incidents.GetByID(ctx, event.IncidentID)
	if err != nil {
		log.WithError(err).Error("Failed to load incident for alert delivery")
		w.mtr.AlertsFailed.Inc()
		return
	}

	// Время в сообщении - момент отправки, не момент создания инцидента:
	// при задержке в очереди они расходятся
	message := renderAlertMessage(incident.CameraID, w.now())

	body, err := json.Marshal(wablasRequest{
		Phone:   w.cfg.WablasRecipient,
		Message: message,
	})
	if err != nil {
		log.WithError(err).Error("Failed to marshal Wablas request")
		w.mtr.AlertsFailed.Inc()
		return
	}

	maxAttempts := w.cfg.NotifyMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	baseDelay := w.cfg.NotifyBaseDelay

	for i := 0; i < maxAttempts; i++ {
		req, err := http.NewRequestWithContext(ctx, "POST", w.cfg.WablasServerURL+sendMessagePath, bytes.NewReader(body))
		if err != nil {
			log.WithError(err).Errorf("Failed to create Wablas request. Attempts left: %d", maxAttempts-1-i)
			continue
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", w.cfg.WablasAPIKey)

		resp, err := w.httpClient.Do(req)
		if err != nil {
			log.WithError(err).Warnf("Failed to send WhatsApp alert. Attempts left: %d", maxAttempts-1-i)
			if i < maxAttempts-1 {
				time.Sleep(baseDelay)
				baseDelay *= 2 // Экспоненциальная задержка
			}
			continue
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			log.Info("WhatsApp alert delivered successfully.")
			w.mtr.AlertsDelivered.Inc()
			return
		}

		log.Warnf("Alert delivery failed with status code %d: %s. Attempts left: %d", resp.StatusCode, string(respBody), maxAttempts-1-i)
		if i < maxAttempts-1 {
			time.Sleep(baseDelay)
			baseDelay *= 2 // Экспоненциальная задержка
		}
	}

	log.Errorf("Failed to deliver WhatsApp alert after %d attempts.", maxAttempts)
	w.mtr.AlertsFailed.Inc()
}

// renderAlertMessage собирает текст WhatsApp-уведомления о ДТП
func renderAlertMessage(cameraID string, at time.Time) string {
	msg := "🚨 *PERINGATAN INSIDEN* 🚨\n\n"
	msg += "Telah terdeteksi adanya potensi *Kecelakaan*.\n\n"
	msg += fmt.Sprintf("Lokasi: *CCTV %s*\n", cameraID)
	msg += fmt.Sprintf("Waktu: *%s*\n\n", at.Format("02-01-2006 15:04:05"))
	msg += "Harap segera periksa dan tindak lanjuti."
	return msg
}
