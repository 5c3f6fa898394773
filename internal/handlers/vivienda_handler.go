package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rmoralesv/viviendas-api/internal/middleware"
	"github.com/rmoralesv/viviendas-api/internal/repository"
	"github.com/rmoralesv/viviendas-api/internal/services"
	"github.com/rmoralesv/viviendas-api/internal/softdelete"
	"github.com/rmoralesv/viviendas-api/pkg/logger"
)

type ViviendaHandler struct {
	viviendaService *services.ViviendaService
	undo            *softdelete.Scheduler
}

func NewViviendaHandler(viviendaService *services.ViviendaService, undo *softdelete.Scheduler) *ViviendaHandler {
	return &ViviendaHandler{viviendaService: viviendaService, undo: undo}
}

// @Summary List Viviendas
// @Description Get a paginated list of viviendas
// @Tags Viviendas
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search term"
// @Param status query string false "Filter by status"
// @Param proyecto_id query int false "Filter by proyecto"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /viviendas [get]
func (h *ViviendaHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Search = c.Query("search_term")
	query.Filters["status"] = c.Query("status")
	query.Filters["proyecto_id"] = c.Query("proyecto_id")

	// Parse sort parameter (format: field-direction)
	if sort := c.Query("sort"); sort != "" {
		parts := strings.Split(sort, "-")
		query.SortBy = parts[0]
		if len(parts) > 1 {
			query.SortDir = parts[1]
		}
	}

	viviendas, total, err := h.viviendaService.List(c.Request.Context(), query)
	if err != nil {
		renderError(c, err)
		return
	}

	var responses []interface{}
	for _, v := range viviendas {
		responses = append(responses, v.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"viviendas": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

// @Summary List Available Viviendas
// @Description Get viviendas that can be assigned to a new cliente
// @Tags Viviendas
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /viviendas/disponibles [get]
func (h *ViviendaHandler) Disponibles(c *gin.Context) {
	viviendas, err := h.viviendaService.FindDisponibles(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}

	var responses []interface{}
	for _, v := range viviendas {
		responses = append(responses, v.ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"viviendas": responses})
}

// @Summary Vivienda Stats
// @Description Get vivienda counters by estado
// @Tags Viviendas
// @Accept json
// @Produce json
// @Success 200 {object} repository.ViviendaStats
// @Security BearerAuth
// @Router /viviendas/stats [get]
func (h *ViviendaHandler) Stats(c *gin.Context) {
	stats, err := h.viviendaService.GetStats(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary Get Vivienda
// @Description Get a vivienda by ID
// @Tags Viviendas
// @Accept json
// @Produce json
// @Param vivienda_id path int true "Vivienda ID"
// @Success 200 {object} models.ViviendaResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /viviendas/{vivienda_id} [get]
func (h *ViviendaHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("vivienda_id"), 10, 32)
	vivienda, err := h.viviendaService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vivienda no encontrada"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"vivienda": vivienda.ToResponse()})
}

// @Summary Create Vivienda
// @Description Create a new vivienda in a proyecto
// @Tags Viviendas
// @Accept json
// @Produce json
// @Param request body services.ViviendaInput true "Vivienda Data"
// @Success 201 {object} models.ViviendaResponse
// @Security BearerAuth
// @Router /viviendas [post]
func (h *ViviendaHandler) Create(c *gin.Context) {
	var input services.ViviendaInput
	if err := BindNestedOrFlat(c, "vivienda", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vivienda, err := h.viviendaService.Create(c.Request.Context(), &input,
		middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"vivienda": vivienda.ToResponse()})
}

// @Summary Update Vivienda
// @Description Update pricing fields of a vivienda
// @Tags Viviendas
// @Accept json
// @Produce json
// @Param vivienda_id path int true "Vivienda ID"
// @Param request body services.ViviendaInput true "Vivienda Data"
// @Success 200 {object} models.ViviendaResponse
// @Security BearerAuth
// @Router /viviendas/{vivienda_id} [put]
func (h *ViviendaHandler) Update(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("vivienda_id"), 10, 32)
	var input services.ViviendaInput
	if err := BindNestedOrFlat(c, "vivienda", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vivienda, err := h.viviendaService.Update(c.Request.Context(), uint(id), &input,
		middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"vivienda": vivienda.ToResponse()})
}

// @Summary Archive Vivienda
// @Description Take a disponible vivienda out of circulation
// @Tags Viviendas
// @Accept json
// @Produce json
// @Param vivienda_id path int true "Vivienda ID"
// @Success 200 {object} models.ViviendaResponse
// @Security BearerAuth
// @Router /viviendas/{vivienda_id}/archivar [post]
func (h *ViviendaHandler) Archivar(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("vivienda_id"), 10, 32)
	vivienda, err := h.viviendaService.Archivar(c.Request.Context(), uint(id),
		middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vivienda": vivienda.ToResponse(), "message": "Vivienda archivada"})
}

// @Summary Restore Vivienda
// @Description Return an archived vivienda to disponible
// @Tags Viviendas
// @Accept json
// @Produce json
// @Param vivienda_id path int true "Vivienda ID"
// @Success 200 {object} models.ViviendaResponse
// @Security BearerAuth
// @Router /viviendas/{vivienda_id}/restaurar [post]
func (h *ViviendaHandler) Restaurar(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("vivienda_id"), 10, 32)
	vivienda, err := h.viviendaService.Restaurar(c.Request.Context(), uint(id),
		middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vivienda": vivienda.ToResponse(), "message": "Vivienda restaurada"})
}

// @Summary Delete Vivienda
// @Description Schedule deletion of a vivienda. The delete commits after the
// undo window unless /undo_delete is called first.
// @Tags Viviendas
// @Accept json
// @Produce json
// @Param vivienda_id path int true "Vivienda ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /viviendas/{vivienda_id} [delete]
func (h *ViviendaHandler) Delete(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("vivienda_id"), 10, 32)
	if _, err := h.viviendaService.FindByID(c.Request.Context(), uint(id)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vivienda no encontrada"})
		return
	}

	actorID := middleware.GetUserID(c)
	ip := c.ClientIP()
	userAgent := c.Request.UserAgent()

	h.undo.Schedule("vivienda", uint(id), func() {
		if err := h.viviendaService.Delete(context.Background(), uint(id), actorID, ip, userAgent); err != nil {
			logger.Error("Eliminación diferida de vivienda falló", "vivienda_id", id, "error", err)
		}
	})

	c.JSON(http.StatusOK, gin.H{"message": "Vivienda programada para eliminación", "undo": true})
}

// @Summary Undo Vivienda Delete
// @Description Cancel a pending vivienda deletion
// @Tags Viviendas
// @Accept json
// @Produce json
// @Param vivienda_id path int true "Vivienda ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /viviendas/{vivienda_id}/undo_delete [post]
func (h *ViviendaHandler) UndoDelete(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("vivienda_id"), 10, 32)
	if !h.undo.Cancel("vivienda", uint(id)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No hay eliminación pendiente para esta vivienda"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Eliminación cancelada"})
}
