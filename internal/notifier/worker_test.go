package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/luthfan1234/EYEONSTREET/internal/config"
	"github.com/luthfan1234/EYEONSTREET/internal/metrics"
	"github.com/luthfan1234/EYEONSTREET/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFetcher - заглушка чтения инцидентов для тестов воркера
type stubFetcher struct {
	incident *models.Incident
	err      error
	calls    atomic.Int32
}

func (f *stubFetcher) GetByID(ctx context.Context, id int64) (*models.Incident, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.incident, nil
}

func newTestWorker(cfg *config.Config, fetcher IncidentFetcher) *AlertWorker {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах
	return NewAlertWorker(nil, fetcher, logger, cfg, metrics.New())
}

func TestProcessAlertEvent_Success(t *testing.T) {
	// Подготовка: фейковый шлюз Wablas записывает пришедший запрос
	var gotAuth string
	var gotBody wablasRequest
	var hits atomic.Int32
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, sendMessagePath, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	cfg := &config.Config{
		WablasServerURL:   gateway.URL,
		WablasAPIKey:      "secret-key",
		WablasRecipient:   "628123456789",
		NotifyTimeout:     time.Second,
		NotifyMaxAttempts: 1,
	}
	fetcher := &stubFetcher{incident: &models.Incident{
		ID:           42,
		CameraID:     "Agas",
		IncidentType: models.IncidentTypeAccident,
	}}
	worker := newTestWorker(cfg, fetcher)
	dispatchTime := time.Date(2025, 7, 10, 14, 30, 0, 0, time.Local)
	worker.now = func() time.Time { return dispatchTime }

	// Действие
	worker.processAlertEvent(context.Background(), AlertEvent{IncidentID: 42, EnqueuedAt: time.Now()})

	// Проверки
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, "secret-key", gotAuth)
	assert.Equal(t, "628123456789", gotBody.Phone)
	assert.Contains(t, gotBody.Message, "PERINGATAN INSIDEN")
	assert.Contains(t, gotBody.Message, "CCTV Agas")
	// В сообщении время отправки, а не время создания инцидента
	assert.Contains(t, gotBody.Message, "10-07-2025 14:30:00")
}

func TestProcessAlertEvent_MissingConfig(t *testing.T) {
	// Подготовка: конфигурация шлюза отсутствует
	cfg := &config.Config{
		NotifyTimeout:     time.Second,
		NotifyMaxAttempts: 1,
	}
	fetcher := &stubFetcher{incident: &models.Incident{ID: 1}}
	worker := newTestWorker(cfg, fetcher)

	// Действие
	worker.processAlertEvent(context.Background(), AlertEvent{IncidentID: 1})

	// Проверки: задача завершилась без побочных эффектов, инцидент даже не читался
	assert.Equal(t, int32(0), fetcher.calls.Load())
}

func TestProcessAlertEvent_GatewayFailure_NoRetryByDefault(t *testing.T) {
	// Подготовка: шлюз отвечает ошибкой
	var hits atomic.Int32
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer gateway.Close()

	cfg := &config.Config{
		WablasServerURL:   gateway.URL,
		WablasAPIKey:      "secret-key",
		WablasRecipient:   "628123456789",
		NotifyTimeout:     time.Second,
		NotifyMaxAttempts: 1,
	}
	fetcher := &stubFetcher{incident: &models.Incident{ID: 2, CameraID: "Agas"}}
	worker := newTestWorker(cfg, fetcher)

	// Действие
	worker.processAlertEvent(context.Background(), AlertEvent{IncidentID: 2})

	// Проверки: одна попытка, автоматических повторов нет
	assert.Equal(t, int32(1), hits.Load())
}

func TestProcessAlertEvent_BoundedRetry(t *testing.T) {
	// Подготовка: повторы включены конфигурацией, шлюз стабильно падает
	var hits atomic.Int32
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer gateway.Close()

	cfg := &config.Config{
		WablasServerURL:   gateway.URL,
		WablasAPIKey:      "secret-key",
		WablasRecipient:   "628123456789",
		NotifyTimeout:     time.Second,
		NotifyMaxAttempts: 3,
		NotifyBaseDelay:   time.Millisecond,
	}
	fetcher := &stubFetcher{incident: &models.Incident{ID: 3, CameraID: "Agas"}}
	worker := newTestWorker(cfg, fetcher)

	// Действие
	worker.processAlertEvent(context.Background(), AlertEvent{IncidentID: 3})

	// Проверки: попытки ограничены конфигурацией
	assert.Equal(t, int32(3), hits.Load())
}

func TestProcessAlertEvent_IncidentLoadError(t *testing.T) {
	// Подготовка
	var hits atomic.Int32
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer gateway.Close()

	cfg := &config.Config{
		WablasServerURL:   gateway.URL,
		WablasAPIKey:      "secret-key",
		WablasRecipient:   "628123456789",
		NotifyTimeout:     time.Second,
		NotifyMaxAttempts: 1,
	}
	fetcher := &stubFetcher{err: fmt.Errorf("инцидент не найден")}
	worker := newTestWorker(cfg, fetcher)

	// Действие
	worker.processAlertEvent(context.Background(), AlertEvent{IncidentID: 404})

	// Проверки: без строки инцидента исходящий запрос не выполняется
	assert.Equal(t, int32(0), hits.Load())
}

func TestRenderAlertMessage(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)

	msg := renderAlertMessage("Banjarsari", at)

	assert.Contains(t, msg, "🚨 *PERINGATAN INSIDEN* 🚨")
	assert.Contains(t, msg, "Lokasi: *CCTV Banjarsari*")
	assert.Contains(t, msg, "Waktu: *02-01-2025 03:04:05*")
	assert.Contains(t, msg, "Harap segera periksa dan tindak lanjuti.")
}
