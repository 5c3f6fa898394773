package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rmoralesv/viviendas-api/internal/readmodel"
	"github.com/rmoralesv/viviendas-api/internal/services"
	"github.com/rmoralesv/viviendas-api/internal/softdelete"
	"github.com/rmoralesv/viviendas-api/internal/storage"
)

// Handlers holds all handler instances
type Handlers struct {
	Health       *HealthHandler
	Auth         *AuthHandler
	User         *UserHandler
	Proyecto     *ProyectoHandler
	Vivienda     *ViviendaHandler
	Cliente      *ClienteHandler
	Abono        *AbonoHandler
	Renuncia     *RenunciaHandler
	Notification *NotificationHandler
	Report       *ReportHandler
	Dashboard    *DashboardHandler
	Audit        *AuditHandler
	Job          *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services, store *storage.LocalStorage, agg *readmodel.Aggregator, undo *softdelete.Scheduler) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(),
		Auth:         NewAuthHandler(svcs.Auth),
		User:         NewUserHandler(svcs.User),
		Proyecto:     NewProyectoHandler(svcs.Proyecto),
		Vivienda:     NewViviendaHandler(svcs.Vivienda, undo),
		Cliente:      NewClienteHandler(svcs.Cliente, svcs.Abono, undo),
		Abono:        NewAbonoHandler(svcs.Abono, store, undo),
		Renuncia:     NewRenunciaHandler(svcs.Renuncia),
		Notification: NewNotificationHandler(svcs.Notification),
		Report:       NewReportHandler(svcs.Report, svcs.Export),
		Dashboard:    NewDashboardHandler(agg),
		Audit:        NewAuditHandler(svcs.Audit),
		Job:          NewJobHandler(svcs.Job),
	}
}

// renderError maps service errors onto HTTP responses. Validation errors keep
// their per-field map so the frontend can highlight inputs.
func renderError(c *gin.Context, err error) {
	if ve, ok := services.IsValidationError(err); ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ve.Error(), "errors": ve.Fields})
		return
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrViviendaNoDisponible),
		errors.Is(err, services.ErrDuplicate),
		errors.Is(err, services.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrProcesoFinalizado),
		errors.Is(err, services.ErrTieneHistorial):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
