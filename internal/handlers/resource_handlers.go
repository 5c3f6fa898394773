package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rmoralesv/viviendas-api/internal/middleware"
	"github.com/rmoralesv/viviendas-api/internal/repository"
	"github.com/rmoralesv/viviendas-api/internal/services"
)

type ProyectoHandler struct {
	proyectoService *services.ProyectoService
}

func NewProyectoHandler(proyectoService *services.ProyectoService) *ProyectoHandler {
	return &ProyectoHandler{proyectoService: proyectoService}
}

// @Summary List Proyectos
// @Description Get a paginated list of proyectos
// @Tags Proyectos
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search term"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /proyectos [get]
func (h *ProyectoHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Search = c.Query("search_term")

	proyectos, total, err := h.proyectoService.List(c.Request.Context(), query)
	if err != nil {
		renderError(c, err)
		return
	}

	var responses []interface{}
	for _, p := range proyectos {
		responses = append(responses, p.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{"proyectos": responses, "pagination": gin.H{"total": total}})
}

// @Summary Get Proyecto
// @Description Get a proyecto by ID
// @Tags Proyectos
// @Accept json
// @Produce json
// @Param proyecto_id path int true "Proyecto ID"
// @Success 200 {object} models.ProyectoResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /proyectos/{proyecto_id} [get]
func (h *ProyectoHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("proyecto_id"), 10, 32)
	proyecto, err := h.proyectoService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Proyecto no encontrado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"proyecto": proyecto.ToResponse()})
}

// @Summary Create Proyecto
// @Description Create a new proyecto
// @Tags Proyectos
// @Accept json
// @Produce json
// @Param request body services.ProyectoInput true "Proyecto Data"
// @Success 201 {object} models.ProyectoResponse
// @Security BearerAuth
// @Router /proyectos [post]
func (h *ProyectoHandler) Create(c *gin.Context) {
	var input services.ProyectoInput
	if err := BindNestedOrFlat(c, "proyecto", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proyecto, err := h.proyectoService.Create(c.Request.Context(), &input,
		middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"proyecto": proyecto.ToResponse()})
}

// @Summary Update Proyecto
// @Description Update an existing proyecto
// @Tags Proyectos
// @Accept json
// @Produce json
// @Param proyecto_id path int true "Proyecto ID"
// @Param request body services.ProyectoInput true "Proyecto Data"
// @Success 200 {object} models.ProyectoResponse
// @Security BearerAuth
// @Router /proyectos/{proyecto_id} [put]
func (h *ProyectoHandler) Update(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("proyecto_id"), 10, 32)
	var input services.ProyectoInput
	if err := BindNestedOrFlat(c, "proyecto", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proyecto, err := h.proyectoService.Update(c.Request.Context(), uint(id), &input,
		middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proyecto": proyecto.ToResponse()})
}

// @Summary Delete Proyecto
// @Description Delete a proyecto without viviendas
// @Tags Proyectos
// @Accept json
// @Produce json
// @Param proyecto_id path int true "Proyecto ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /proyectos/{proyecto_id} [delete]
func (h *ProyectoHandler) Delete(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("proyecto_id"), 10, 32)
	if err := h.proyectoService.Delete(c.Request.Context(), uint(id),
		middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent()); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Proyecto eliminado"})
}

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// @Summary List Notifications
// @Description Get a paginated list of notifications for the current user
// @Tags Notifications
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) Index(c *gin.Context) {
	userID := middleware.GetUserID(c)
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))

	notifications, total, err := h.notificationService.FindByUser(c.Request.Context(), userID, query)
	if err != nil {
		renderError(c, err)
		return
	}

	unread, _ := h.notificationService.CountUnread(c.Request.Context(), userID)

	var responses []interface{}
	for _, n := range notifications {
		responses = append(responses, n.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": responses,
		"unread_count":  unread,
		"pagination":    gin.H{"total": total},
	})
}

// @Summary Get Notification
// @Description Get a notification by ID
// @Tags Notifications
// @Accept json
// @Produce json
// @Param notification_id path int true "Notification ID"
// @Success 200 {object} models.NotificationResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /notifications/{notification_id} [get]
func (h *NotificationHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("notification_id"), 10, 32)
	notification, err := h.notificationService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notificación no encontrada"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notification": notification.ToResponse()})
}

// @Summary Mark Notification Read
// @Description Mark a notification as read
// @Tags Notifications
// @Accept json
// @Produce json
// @Param notification_id path int true "Notification ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /notifications/{notification_id}/mark_as_read [post]
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("notification_id"), 10, 32)
	if err := h.notificationService.MarkAsRead(c.Request.Context(), uint(id)); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notificación marcada como leída"})
}

// @Summary Delete Notification
// @Description Delete a notification
// @Tags Notifications
// @Accept json
// @Produce json
// @Param notification_id path int true "Notification ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /notifications/{notification_id} [delete]
func (h *NotificationHandler) Delete(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("notification_id"), 10, 32)
	if err := h.notificationService.Delete(c.Request.Context(), uint(id)); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notificación eliminada"})
}

// @Summary Mark All Notifications Read
// @Description Mark all notifications as read for current user
// @Tags Notifications
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /notifications/mark_all_as_read [post]
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if err := h.notificationService.MarkAllAsRead(c.Request.Context(), userID); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Todas las notificaciones marcadas como leídas"})
}

type AuditHandler struct {
	auditService *services.AuditService
}

func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// @Summary List Audit Logs
// @Description Get a paginated list of system audit logs
// @Tags Audit
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(50)
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /audits [get]
func (h *AuditHandler) Index(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))
	offset := (page - 1) * perPage

	logs, total, err := h.auditService.List(c.Request.Context(), perPage, offset)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"audits": logs, "pagination": gin.H{"total": total, "page": page, "per_page": perPage}})
}
