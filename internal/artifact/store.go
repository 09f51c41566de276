package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/luthfan1234/EYEONSTREET/internal/imagedata"
)

// screenshotsDir - пространство имен артефактов внутри корня хранилища.
// Путь относительно корня попадает в запись инцидента и используется
// дашбордом как ключ для загрузки картинки.
const screenshotsDir = "screenshots"

// Store определяет контракт для сохранения артефактов инцидентов
type Store interface {
	SaveImage(img *imagedata.Image) (string, error)
}

// DiskStore сохраняет артефакты на локальный диск под корнем хранилища
type DiskStore struct {
	root string
}

func NewDiskStore(root string) *DiskStore {
	return &DiskStore{root: root}
}

// SaveImage записывает декодированное изображение под уникальным именем
// incident-<uuid>.<ext> и возвращает относительный путь для записи в бд.
// Случайный uuid вместо счетчика: параллельные запросы не конфликтуют.
func (s *DiskStore) SaveImage(img *imagedata.Image) (string, error) {
	filename := fmt.Sprintf("incident-%s.%s", uuid.New().String(), img.Subtype)
	relPath := filepath.Join(screenshotsDir, filename)
	absPath := filepath.Join(s.root, relPath)

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshots dir: %w", err)
	}

	if err := os.WriteFile(absPath, img.Bytes, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", relPath, err)
	}
	return relPath, nil
}
