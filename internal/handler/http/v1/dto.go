package v1

import (
	"time"
)

// ReportIncidentRequest DTO для события детекции от AI-процесса
// @Description DTO для события детекции от AI-процесса
type ReportIncidentRequest struct {
	CameraID     string `json:"cameraId" validate:"required"`
	IncidentType string `json:"incidentType" validate:"required,oneof=accident crowd"`
	Image        string `json:"image" validate:"required"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID           int64     `json:"id"`
	CameraID     string    `json:"cameraId"`
	IncidentType string    `json:"incidentType"`
	ImagePath    string    `json:"imagePath"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ReportIncidentResponse DTO для ответа на успешную регистрацию инцидента
// @Description DTO для ответа на успешную регистрацию инцидента
type ReportIncidentResponse struct {
	Message string            `json:"message"`
	Data    *IncidentResponse `json:"data"`
}

// ValidationErrorResponse DTO с ошибками валидации по полям
// @Description DTO с ошибками валидации по полям
type ValidationErrorResponse struct {
	Errors map[string]string `json:"errors"`
}

// LoginRequest DTO для входа оператора
// @Description DTO для входа оператора
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserResponse DTO с данными текущего оператора
// @Description DTO с данными текущего оператора
type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// LoginResponse DTO для ответа на вход
// @Description DTO для ответа на вход
type LoginResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
}
