package v1

import "github.com/luthfan1234/EYEONSTREET/internal/models"

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:           model.ID,
		CameraID:     model.CameraID,
		IncidentType: model.IncidentType,
		ImagePath:    model.ImagePath,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}

// ModelToUserResponse преобразует учетную запись в DTO для ответа
func ModelToUserResponse(model *models.User) *UserResponse {
	return &UserResponse{
		ID:       model.ID,
		Username: model.Username,
	}
}
