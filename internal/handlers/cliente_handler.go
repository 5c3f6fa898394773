package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rmoralesv/viviendas-api/internal/middleware"
	"github.com/rmoralesv/viviendas-api/internal/repository"
	"github.com/rmoralesv/viviendas-api/internal/services"
	"github.com/rmoralesv/viviendas-api/internal/softdelete"
	"github.com/rmoralesv/viviendas-api/pkg/logger"
)

type ClienteHandler struct {
	clienteService *services.ClienteService
	abonoService   *services.AbonoService
	undo           *softdelete.Scheduler
}

func NewClienteHandler(clienteService *services.ClienteService, abonoService *services.AbonoService, undo *softdelete.Scheduler) *ClienteHandler {
	return &ClienteHandler{clienteService: clienteService, abonoService: abonoService, undo: undo}
}

// @Summary List Clientes
// @Description Get a paginated list of clientes
// @Tags Clientes
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search by nombre or cedula"
// @Param status query string false "Filter by status"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /clientes [get]
func (h *ClienteHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Search = c.Query("search_term")
	query.Filters["status"] = c.Query("status")
	query.Filters["vivienda_id"] = c.Query("vivienda_id")

	// Parse sort parameter (format: field-direction)
	if sort := c.Query("sort"); sort != "" {
		parts := strings.Split(sort, "-")
		query.SortBy = parts[0]
		if len(parts) > 1 {
			query.SortDir = parts[1]
		}
	}

	clientes, total, err := h.clienteService.List(c.Request.Context(), query)
	if err != nil {
		renderError(c, err)
		return
	}

	var responses []interface{}
	for _, cl := range clientes {
		responses = append(responses, cl.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"clientes": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

// @Summary Cliente Stats
// @Description Get cliente counters by status
// @Tags Clientes
// @Accept json
// @Produce json
// @Success 200 {object} repository.ClienteStats
// @Security BearerAuth
// @Router /clientes/stats [get]
func (h *ClienteHandler) Stats(c *gin.Context) {
	stats, err := h.clienteService.GetStats(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary Get Cliente
// @Description Get a cliente with fuentes, hitos and vivienda
// @Tags Clientes
// @Accept json
// @Produce json
// @Param cliente_id path int true "Cliente ID"
// @Success 200 {object} models.ClienteResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /clientes/{cliente_id} [get]
func (h *ClienteHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("cliente_id"), 10, 32)
	cliente, err := h.clienteService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cliente no encontrado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cliente": cliente.ToResponse()})
}

// @Summary Create Cliente
// @Description Create a cliente, assign the vivienda and register the funding plan
// @Tags Clientes
// @Accept json
// @Produce json
// @Param request body services.ClienteInput true "Cliente Data"
// @Success 201 {object} models.ClienteResponse
// @Security BearerAuth
// @Router /clientes [post]
func (h *ClienteHandler) Create(c *gin.Context) {
	var input services.ClienteInput
	if err := BindNestedOrFlat(c, "cliente", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cliente, err := h.clienteService.Create(c.Request.Context(), &input,
		middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"cliente": cliente.ToResponse(), "message": "Cliente creado exitosamente"})
}

// @Summary Update Cliente
// @Description Update cliente data and funding plan
// @Tags Clientes
// @Accept json
// @Produce json
// @Param cliente_id path int true "Cliente ID"
// @Param request body services.ClienteInput true "Cliente Data"
// @Success 200 {object} models.ClienteResponse
// @Security BearerAuth
// @Router /clientes/{cliente_id} [put]
func (h *ClienteHandler) Update(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("cliente_id"), 10, 32)
	var input services.ClienteInput
	if err := BindNestedOrFlat(c, "cliente", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cliente, err := h.clienteService.Update(c.Request.Context(), uint(id), &input,
		middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cliente": cliente.ToResponse(), "message": "Cliente actualizado exitosamente"})
}

type CompletarHitoRequest struct {
	Nombre string     `json:"nombre" binding:"required"`
	Fecha  *time.Time `json:"fecha"`
}

// @Summary Complete Hito
// @Description Mark a sales milestone as completed for the cliente
// @Tags Clientes
// @Accept json
// @Produce json
// @Param cliente_id path int true "Cliente ID"
// @Param request body CompletarHitoRequest true "Hito Data"
// @Success 200 {object} models.ClienteResponse
// @Security BearerAuth
// @Router /clientes/{cliente_id}/hitos [post]
func (h *ClienteHandler) CompletarHito(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("cliente_id"), 10, 32)
	var req CompletarHitoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cliente, err := h.clienteService.CompletarHito(c.Request.Context(), uint(id), req.Nombre, req.Fecha,
		middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cliente": cliente.ToResponse(), "message": "Hito completado"})
}

type ReactivarClienteRequest struct {
	ViviendaID uint                   `json:"vivienda_id" binding:"required"`
	Fuentes    []services.FuenteInput `json:"fuentes" binding:"required"`
}

// @Summary Reactivate Cliente
// @Description Assign a new vivienda to a renunciado cliente, starting a fresh cycle
// @Tags Clientes
// @Accept json
// @Produce json
// @Param cliente_id path int true "Cliente ID"
// @Param request body ReactivarClienteRequest true "Reactivation Data"
// @Success 200 {object} models.ClienteResponse
// @Security BearerAuth
// @Router /clientes/{cliente_id}/reactivar [post]
func (h *ClienteHandler) Reactivar(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("cliente_id"), 10, 32)
	var req ReactivarClienteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cliente, err := h.clienteService.Reactivar(c.Request.Context(), uint(id), req.ViviendaID, req.Fuentes,
		middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cliente": cliente.ToResponse(), "message": "Cliente reactivado"})
}

// @Summary Archive Cliente
// @Description Move a renunciado cliente to inactivo
// @Tags Clientes
// @Accept json
// @Produce json
// @Param cliente_id path int true "Cliente ID"
// @Success 200 {object} models.ClienteResponse
// @Security BearerAuth
// @Router /clientes/{cliente_id}/archivar [post]
func (h *ClienteHandler) Archivar(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("cliente_id"), 10, 32)
	cliente, err := h.clienteService.Archivar(c.Request.Context(), uint(id),
		middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cliente": cliente.ToResponse(), "message": "Cliente archivado"})
}

// @Summary Delete Cliente
// @Description Schedule deletion of an inactive cliente. The delete commits
// after the undo window unless /undo_delete is called first.
// @Tags Clientes
// @Accept json
// @Produce json
// @Param cliente_id path int true "Cliente ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /clientes/{cliente_id} [delete]
func (h *ClienteHandler) Delete(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("cliente_id"), 10, 32)
	if _, err := h.clienteService.FindByID(c.Request.Context(), uint(id)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cliente no encontrado"})
		return
	}

	actorID := middleware.GetUserID(c)
	ip := c.ClientIP()
	userAgent := c.Request.UserAgent()

	h.undo.Schedule("cliente", uint(id), func() {
		if err := h.clienteService.Delete(context.Background(), uint(id), actorID, ip, userAgent); err != nil {
			logger.Error("Eliminación diferida de cliente falló", "cliente_id", id, "error", err)
		}
	})

	c.JSON(http.StatusOK, gin.H{"message": "Cliente programado para eliminación", "undo": true})
}

// @Summary Undo Cliente Delete
// @Description Cancel a pending cliente deletion
// @Tags Clientes
// @Accept json
// @Produce json
// @Param cliente_id path int true "Cliente ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /clientes/{cliente_id}/undo_delete [post]
func (h *ClienteHandler) UndoDelete(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("cliente_id"), 10, 32)
	if !h.undo.Cancel("cliente", uint(id)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No hay eliminación pendiente para este cliente"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Eliminación cancelada"})
}

// @Summary Cliente Abonos
// @Description List every abono of the cliente, including archived cycles
// @Tags Clientes
// @Accept json
// @Produce json
// @Param cliente_id path int true "Cliente ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /clientes/{cliente_id}/abonos [get]
func (h *ClienteHandler) Abonos(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("cliente_id"), 10, 32)
	abonos, err := h.abonoService.FindByCliente(c.Request.Context(), uint(id))
	if err != nil {
		renderError(c, err)
		return
	}

	var responses []interface{}
	for _, a := range abonos {
		responses = append(responses, a.ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"abonos": responses})
}

// @Summary Cliente Resumen
// @Description Derived balance and per-fuente breakdown for the current cycle
// @Tags Clientes
// @Accept json
// @Produce json
// @Param cliente_id path int true "Cliente ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /clientes/{cliente_id}/resumen [get]
func (h *ClienteHandler) Resumen(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("cliente_id"), 10, 32)
	resumen, fuentes, err := h.abonoService.ResumenCliente(c.Request.Context(), uint(id))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resumen": resumen, "fuentes": fuentes})
}
