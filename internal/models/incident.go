package models

import (
	"time"
)

// Допустимые типы инцидентов, которые присылает детектор
const (
	IncidentTypeAccident = "accident"
	IncidentTypeCrowd    = "crowd"
)

// Incident представляет одно зафиксированное дорожное происшествие.
// Запись неизменяема после создания: обновление и удаление не предусмотрены.
type Incident struct {
	ID           int64     `json:"id"`
	CameraID     string    `json:"cameraId"`
	IncidentType string    `json:"incidentType"`
	ImagePath    string    `json:"imagePath"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
