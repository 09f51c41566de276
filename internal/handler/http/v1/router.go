package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/luthfan1234/EYEONSTREET/internal/auth"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Конвейер инцидентов: публичные маршруты, их дергают детектор и дашборд
	incidents := api.Group("/incidents")
	{
		incidents.POST("", h.reportIncident)
		incidents.GET("", h.listIncidents)
	}

	// Сессии операторов дашборда
	session := api.Group("/auth")
	{
		session.POST("/login", h.login)
		session.GET("/user", auth.SessionMiddleware(h.authService, h.logger), h.currentUser)
		session.POST("/logout", auth.SessionMiddleware(h.authService, h.logger), h.logout)
	}

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}
