package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	artifact_mocks "github.com/luthfan1234/EYEONSTREET/internal/artifact/mocks"
	"github.com/luthfan1234/EYEONSTREET/internal/imagedata"
	"github.com/luthfan1234/EYEONSTREET/internal/metrics"
	"github.com/luthfan1234/EYEONSTREET/internal/models"
	"github.com/luthfan1234/EYEONSTREET/internal/notifier"
	notifier_mocks "github.com/luthfan1234/EYEONSTREET/internal/notifier/mocks"
	"github.com/luthfan1234/EYEONSTREET/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestIncidentService — вспомогательная функция для создания инстанса сервиса с моками.
func newTestIncidentService(t *testing.T) (*incidentService, *mocks.MockIncidentRepository, *artifact_mocks.MockStore, *notifier_mocks.MockAlertPublisher) {
	ctrl := gomock.NewController(t)
	repoMock := mocks.NewMockIncidentRepository(ctrl)
	storeMock := artifact_mocks.NewMockStore(ctrl)
	publisherMock := notifier_mocks.NewMockAlertPublisher(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	svc := NewIncidentService(repoMock, storeMock, publisherMock, logger, metrics.New())
	return svc.(*incidentService), repoMock, storeMock, publisherMock
}

// validImagePayload собирает корректный data-URL для тестов
func validImagePayload(body []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(body)
}

func TestReportIncident_Success_Accident(t *testing.T) {
	// Подготовка
	service, repoMock, storeMock, publisherMock := newTestIncidentService(t)
	ctx := context.Background()
	imageBody := []byte("decoded screenshot")

	// Ожидания
	// 1. Артефакт пишется на диск до записи в бд
	storeMock.EXPECT().
		SaveImage(gomock.Any()).
		DoAndReturn(func(img *imagedata.Image) (string, error) {
			assert.Equal(t, "png", img.Subtype)
			assert.Equal(t, imageBody, img.Bytes)
			return "screenshots/incident-test.png", nil
		}).Times(1)

	// 2. Вставка строки: БД присваивает id и таймстемпы
	repoMock.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(ctx context.Context, inc *models.Incident) error {
			assert.Equal(t, "Agas", inc.CameraID)
			assert.Equal(t, models.IncidentTypeAccident, inc.IncidentType)
			assert.Equal(t, "screenshots/incident-test.png", inc.ImagePath)
			inc.ID = 42
			inc.CreatedAt = time.Now()
			inc.UpdatedAt = inc.CreatedAt
			return nil
		}).Times(1)

	// 3. Инвалидация кеша списка
	repoMock.EXPECT().InvalidateIncidentListCache(ctx).Return(nil).Times(1)

	// 4. Для ДТП публикуется событие-ссылка с id созданной записи
	publisherMock.EXPECT().
		Publish(ctx, gomock.Any()).
		Do(func(ctx context.Context, event notifier.AlertEvent) {
			assert.Equal(t, int64(42), event.IncidentID)
		}).Return(nil).Times(1)

	// Действие
	incident, err := service.ReportIncident(ctx, "Agas", models.IncidentTypeAccident, validImagePayload(imageBody))

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, int64(42), incident.ID)
	assert.Equal(t, "screenshots/incident-test.png", incident.ImagePath)
}

func TestReportIncident_Crowd_NoAlert(t *testing.T) {
	// Подготовка
	service, repoMock, storeMock, publisherMock := newTestIncidentService(t)
	ctx := context.Background()

	// Ожидания
	storeMock.EXPECT().SaveImage(gomock.Any()).Return("screenshots/incident-crowd.png", nil).Times(1)
	repoMock.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(ctx context.Context, inc *models.Incident) error {
			inc.ID = 7
			return nil
		}).Times(1)
	repoMock.EXPECT().InvalidateIncidentListCache(ctx).Return(nil).Times(1)

	// Для толпы уведомление НЕ ставится в очередь
	publisherMock.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	// Действие
	incident, err := service.ReportIncident(ctx, "Banjarsari", models.IncidentTypeCrowd, validImagePayload([]byte("x")))

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, int64(7), incident.ID)
}

func TestReportIncident_MalformedImage(t *testing.T) {
	// Подготовка
	service, repoMock, storeMock, publisherMock := newTestIncidentService(t)
	ctx := context.Background()

	// Ожидания: ни записи файла, ни вставки, ни уведомления
	storeMock.EXPECT().SaveImage(gomock.Any()).Times(0)
	repoMock.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
	publisherMock.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	// Действие
	incident, err := service.ReportIncident(ctx, "Agas", models.IncidentTypeAccident, "data:image/png,no-separator")

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorIs(t, err, imagedata.ErrMalformedPayload)
}

func TestReportIncident_ArtifactError(t *testing.T) {
	// Подготовка
	service, repoMock, storeMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	diskError := fmt.Errorf("диск переполнен")

	// Ожидания: сбой записи файла не доходит до бд
	storeMock.EXPECT().SaveImage(gomock.Any()).Return("", diskError).Times(1)
	repoMock.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

	// Действие
	incident, err := service.ReportIncident(ctx, "Agas", models.IncidentTypeAccident, validImagePayload([]byte("x")))

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorContains(t, err, "could not store artifact")
}

func TestReportIncident_CreateError(t *testing.T) {
	// Подготовка
	service, repoMock, storeMock, publisherMock := newTestIncidentService(t)
	ctx := context.Background()
	dbError := fmt.Errorf("вставка не удалась")

	// Ожидания: осиротевший артефакт остается, уведомление не публикуется
	storeMock.EXPECT().SaveImage(gomock.Any()).Return("screenshots/incident-orphan.png", nil).Times(1)
	repoMock.EXPECT().Create(ctx, gomock.Any()).Return(dbError).Times(1)
	publisherMock.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	// Действие
	incident, err := service.ReportIncident(ctx, "Agas", models.IncidentTypeAccident, validImagePayload([]byte("x")))

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorContains(t, err, "could not create incident")
}

func TestReportIncident_PublishError_StillSucceeds(t *testing.T) {
	// Подготовка
	service, repoMock, storeMock, publisherMock := newTestIncidentService(t)
	ctx := context.Background()

	// Ожидания: сбой очереди логируется, но не отменяет созданный инцидент
	storeMock.EXPECT().SaveImage(gomock.Any()).Return("screenshots/incident-a.png", nil).Times(1)
	repoMock.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(ctx context.Context, inc *models.Incident) error {
			inc.ID = 99
			return nil
		}).Times(1)
	repoMock.EXPECT().InvalidateIncidentListCache(ctx).Return(nil).Times(1)
	publisherMock.EXPECT().Publish(ctx, gomock.Any()).Return(fmt.Errorf("redis недоступен")).Times(1)

	// Действие
	incident, err := service.ReportIncident(ctx, "Agas", models.IncidentTypeAccident, validImagePayload([]byte("x")))

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, int64(99), incident.ID)
}

func TestListIncidents_FromCache(t *testing.T) {
	// Подготовка
	service, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	cached := []*models.Incident{
		{ID: 2, CameraID: "Agas"},
		{ID: 1, CameraID: "Banjarsari"},
	}

	// Ожидания: попадание в кеш - бд не трогаем
	repoMock.EXPECT().GetIncidentListFromCache(ctx).Return(cached, nil).Times(1)
	repoMock.EXPECT().ListIncidents(gomock.Any()).Times(0)

	// Действие
	incidents, err := service.ListIncidents(ctx)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, cached, incidents)
}

func TestListIncidents_FromDB(t *testing.T) {
	// Подготовка
	service, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	expected := []*models.Incident{
		{ID: 3, CameraID: "Agas"},
	}

	// Ожидания
	// 1. Промах кеша
	repoMock.EXPECT().GetIncidentListFromCache(ctx).Return(nil, nil).Times(1)
	// 2. Чтение из бд
	repoMock.EXPECT().ListIncidents(ctx).Return(expected, nil).Times(1)
	// 3. Запись в кеш
	repoMock.EXPECT().SetIncidentListCache(ctx, expected).Return(nil).Times(1)

	// Действие
	incidents, err := service.ListIncidents(ctx)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, incidents)
}

func TestListIncidents_CacheError_FallsBackToDB(t *testing.T) {
	// Подготовка
	service, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	expected := []*models.Incident{{ID: 5}}

	// Ожидания: ошибка кеша деградирует в чтение из бд, а не в ошибку ответа
	repoMock.EXPECT().GetIncidentListFromCache(ctx).Return(nil, fmt.Errorf("redis недоступен")).Times(1)
	repoMock.EXPECT().ListIncidents(ctx).Return(expected, nil).Times(1)
	repoMock.EXPECT().SetIncidentListCache(ctx, expected).Return(nil).Times(1)

	// Действие
	incidents, err := service.ListIncidents(ctx)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, incidents)
}

func TestListIncidents_RepoError(t *testing.T) {
	// Подготовка
	service, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	dbError := fmt.Errorf("хранилище недоступно")

	// Ожидания
	repoMock.EXPECT().GetIncidentListFromCache(ctx).Return(nil, nil).Times(1)
	repoMock.EXPECT().ListIncidents(ctx).Return(nil, dbError).Times(1)

	// Действие
	incidents, err := service.ListIncidents(ctx)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incidents)
	assert.ErrorContains(t, err, "could not list incidents")
}
