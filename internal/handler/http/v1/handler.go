package v1

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/luthfan1234/EYEONSTREET/internal/auth"
	"github.com/luthfan1234/EYEONSTREET/internal/config"
	"github.com/luthfan1234/EYEONSTREET/internal/imagedata"
	"github.com/luthfan1234/EYEONSTREET/internal/metrics"
	"github.com/luthfan1234/EYEONSTREET/internal/service"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	incidentService service.IncidentService
	authService     *auth.Service
	logger          *logrus.Logger
	validate        *validator.Validate
	cfg             *config.Config
	mtr             *metrics.Metrics
}

func NewHandler(incidentService service.IncidentService, authService *auth.Service, logger *logrus.Logger, cfg *config.Config, mtr *metrics.Metrics) *Handler {
	validate := validator.New()
	// Ошибки валидации отдаются наружу по json-именам полей, не по Go-именам
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handler{
		incidentService: incidentService,
		authService:     authService,
		logger:          logger,
		validate:        validate,
		cfg:             cfg,
		mtr:             mtr,
	}
}

// validationErrors раскладывает ошибку валидатора в карту поле -> сообщение
func validationErrors(err error) map[string]string {
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch fe.Tag() {
			case "required":
				fields[fe.Field()] = "field is required"
			case "oneof":
				fields[fe.Field()] = "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
			default:
				fields[fe.Field()] = "failed on rule: " + fe.Tag()
			}
		}
	} else {
		fields["request"] = err.Error()
	}
	return fields
}

// @Summary Report a detected incident
// @Description Receive a detection event from the AI process: validates the payload, stores the screenshot and persists the incident. Accident-type incidents additionally enqueue a WhatsApp alert.
// @Tags Incidents
// @Accept json
// @Produce json
// @Param incident body ReportIncidentRequest true "Detection event"
// @Success 201 {object} ReportIncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 422 {object} ValidationErrorResponse "Validation or image decoding error"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [post]
func (h *Handler) reportIncident(c *gin.Context) {
	var input ReportIncidentRequest
	log := h.logger.WithField("method", "reportIncident")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		h.mtr.IncidentsRejected.Inc()
		c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{Errors: validationErrors(err)})
		return
	}

	incident, err := h.incidentService.ReportIncident(c.Request.Context(), input.CameraID, input.IncidentType, input.Image)
	if err != nil {
		if errors.Is(err, imagedata.ErrMalformedPayload) {
			log.WithError(err).Warn("Malformed image payload")
			c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{
				Errors: map[string]string{"image": "must be a base64-encoded data URL"},
			})
			return
		}
		log.WithError(err).Error("Failed to report incident in service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, ReportIncidentResponse{
		Message: "Incident reported successfully.",
		Data:    ModelToIncidentResponse(incident),
	})
}

// @Summary List all incidents
// @Description Get every persisted incident, newest first. Polled by the dashboard on a fixed interval.
// @Tags Incidents
// @Accept json
// @Produce json
// @Success 200 {array} IncidentResponse
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")

	incidents, err := h.incidentService.ListIncidents(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary Operator login
// @Description Exchange username/password for a session token.
// @Tags Session
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Operator credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Failure 422 {object} ValidationErrorResponse "Validation error"
// @Router /auth/login [post]
func (h *Handler) login(c *gin.Context) {
	var input LoginRequest
	log := h.logger.WithField("method", "login")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{Errors: validationErrors(err)})
		return
	}

	user, token, err := h.authService.Authenticate(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		log.WithError(err).Warn("Login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token: token,
		User:  ModelToUserResponse(user),
	})
}

// @Summary Current operator
// @Description Return the operator bound to the session token.
// @Tags Session
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /auth/user [get]
func (h *Handler) currentUser(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session token required"})
		return
	}
	c.JSON(http.StatusOK, UserResponse{
		ID:       claims.UserID,
		Username: claims.Username,
	})
}

// @Summary Operator logout
// @Description Acknowledge a session discard. Tokens are stateless, so the client simply drops its copy.
// @Tags Session
// @Security ApiKeyAuth
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /auth/logout [post]
func (h *Handler) logout(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
