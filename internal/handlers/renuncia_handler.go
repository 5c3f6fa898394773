package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rmoralesv/viviendas-api/internal/middleware"
	"github.com/rmoralesv/viviendas-api/internal/repository"
	"github.com/rmoralesv/viviendas-api/internal/services"
)

type RenunciaHandler struct {
	renunciaService *services.RenunciaService
}

func NewRenunciaHandler(renunciaService *services.RenunciaService) *RenunciaHandler {
	return &RenunciaHandler{renunciaService: renunciaService}
}

// @Summary List Renuncias
// @Description Get a paginated list of renuncias
// @Tags Renuncias
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param estado_devolucion query string false "Filter by estado (pendiente, pagada, cancelada)"
// @Param start_date query string false "Fecha de renuncia desde (YYYY-MM-DD)"
// @Param end_date query string false "Fecha de renuncia hasta (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /renuncias [get]
func (h *RenunciaHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Search = c.Query("search_term")
	query.Filters["estado_devolucion"] = c.Query("estado_devolucion")
	query.Filters["start_date"] = c.Query("start_date")
	query.Filters["end_date"] = c.Query("end_date")

	// Parse sort parameter (format: field-direction)
	if sort := c.Query("sort"); sort != "" {
		parts := strings.Split(sort, "-")
		query.SortBy = parts[0]
		if len(parts) > 1 {
			query.SortDir = parts[1]
		}
	}

	renuncias, total, err := h.renunciaService.List(c.Request.Context(), query)
	if err != nil {
		renderError(c, err)
		return
	}

	var responses []interface{}
	for _, r := range renuncias {
		responses = append(responses, r.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"renuncias": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

// @Summary Renuncia Stats
// @Description Counters and refund totals by estado
// @Tags Renuncias
// @Accept json
// @Produce json
// @Success 200 {object} repository.RenunciaStats
// @Security BearerAuth
// @Router /renuncias/stats [get]
func (h *RenunciaHandler) Stats(c *gin.Context) {
	stats, err := h.renunciaService.GetStats(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary Get Renuncia
// @Description Get a renuncia by ID
// @Tags Renuncias
// @Accept json
// @Produce json
// @Param renuncia_id path int true "Renuncia ID"
// @Success 200 {object} models.RenunciaResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /renuncias/{renuncia_id} [get]
func (h *RenunciaHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("renuncia_id"), 10, 32)
	renuncia, err := h.renunciaService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Renuncia no encontrada"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"renuncia": renuncia.ToResponse()})
}

// @Summary Iniciar Renuncia
// @Description Start the withdrawal process for a cliente: archives the cycle,
// releases the vivienda and computes the refund
// @Tags Renuncias
// @Accept json
// @Produce json
// @Param request body services.RenunciaInput true "Renuncia Data"
// @Success 201 {object} models.RenunciaResponse
// @Security BearerAuth
// @Router /renuncias [post]
func (h *RenunciaHandler) Create(c *gin.Context) {
	var input services.RenunciaInput
	if err := BindNestedOrFlat(c, "renuncia", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	renuncia, err := h.renunciaService.Iniciar(c.Request.Context(), &input,
		middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"renuncia": renuncia.ToResponse(), "message": "Renuncia iniciada"})
}

// @Summary Marcar Renuncia Pagada
// @Description Record that the refund was delivered. Terminal state.
// @Tags Renuncias
// @Accept json
// @Produce json
// @Param renuncia_id path int true "Renuncia ID"
// @Success 200 {object} models.RenunciaResponse
// @Security BearerAuth
// @Router /renuncias/{renuncia_id}/pagar [post]
func (h *RenunciaHandler) MarcarPagada(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("renuncia_id"), 10, 32)
	renuncia, err := h.renunciaService.MarcarPagada(c.Request.Context(), uint(id),
		middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"renuncia": renuncia.ToResponse(), "message": "Devolución registrada"})
}

type CancelarRenunciaRequest struct {
	Motivo string `json:"motivo"`
}

// @Summary Cancelar Renuncia
// @Description Roll back a pending renuncia: reassigns the vivienda and
// reactivates the archived abonos
// @Tags Renuncias
// @Accept json
// @Produce json
// @Param renuncia_id path int true "Renuncia ID"
// @Param request body CancelarRenunciaRequest false "Motivo"
// @Success 200 {object} models.RenunciaResponse
// @Security BearerAuth
// @Router /renuncias/{renuncia_id}/cancelar [post]
func (h *RenunciaHandler) Cancelar(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("renuncia_id"), 10, 32)
	var req CancelarRenunciaRequest
	c.ShouldBindJSON(&req)

	renuncia, err := h.renunciaService.Cancelar(c.Request.Context(), uint(id), req.Motivo,
		middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"renuncia": renuncia.ToResponse(), "message": "Renuncia cancelada"})
}
