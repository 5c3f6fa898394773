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
	"github.com/rmoralesv/viviendas-api/internal/storage"
	"github.com/rmoralesv/viviendas-api/pkg/logger"
)

type AbonoHandler struct {
	abonoService *services.AbonoService
	storage      *storage.LocalStorage
	undo         *softdelete.Scheduler
}

func NewAbonoHandler(abonoService *services.AbonoService, store *storage.LocalStorage, undo *softdelete.Scheduler) *AbonoHandler {
	return &AbonoHandler{abonoService: abonoService, storage: store, undo: undo}
}

// @Summary List Abonos
// @Description Get a paginated list of abonos
// @Tags Abonos
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param estado_proceso query string false "Filter by estado (activo, anulado, archivado)"
// @Param cliente_id query int false "Filter by cliente"
// @Param vivienda_id query int false "Filter by vivienda"
// @Param fuente query string false "Filter by fuente"
// @Param start_date query string false "Fecha de pago desde (YYYY-MM-DD)"
// @Param end_date query string false "Fecha de pago hasta (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /abonos [get]
func (h *AbonoHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Search = c.Query("search_term")
	query.Filters["estado_proceso"] = c.Query("estado_proceso")
	query.Filters["cliente_id"] = c.Query("cliente_id")
	query.Filters["vivienda_id"] = c.Query("vivienda_id")
	query.Filters["fuente"] = c.Query("fuente")
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

	abonos, total, err := h.abonoService.List(c.Request.Context(), query)
	if err != nil {
		renderError(c, err)
		return
	}

	var responses []interface{}
	for _, a := range abonos {
		responses = append(responses, a.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"abonos": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

// @Summary Abono Stats
// @Description Monthly and total recaudo counters
// @Tags Abonos
// @Accept json
// @Produce json
// @Success 200 {object} repository.AbonoStats
// @Security BearerAuth
// @Router /abonos/stats [get]
func (h *AbonoHandler) Stats(c *gin.Context) {
	stats, err := h.abonoService.GetMonthlyStats(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary Get Abono
// @Description Get an abono by ID
// @Tags Abonos
// @Accept json
// @Produce json
// @Param abono_id path int true "Abono ID"
// @Success 200 {object} models.AbonoResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /abonos/{abono_id} [get]
func (h *AbonoHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("abono_id"), 10, 32)
	abono, err := h.abonoService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Abono no encontrado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"abono": abono.ToResponse()})
}

// @Summary Create Abono
// @Description Register a payment against the cliente's funding plan
// @Tags Abonos
// @Accept json
// @Produce json
// @Param request body services.AbonoInput true "Abono Data"
// @Success 201 {object} models.AbonoResponse
// @Security BearerAuth
// @Router /abonos [post]
func (h *AbonoHandler) Create(c *gin.Context) {
	var input services.AbonoInput
	if err := BindNestedOrFlat(c, "abono", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	abono, err := h.abonoService.Create(c.Request.Context(), &input,
		middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"abono": abono.ToResponse(), "message": "Abono registrado"})
}

// @Summary Update Abono
// @Description Edit an active abono and rebuild balances
// @Tags Abonos
// @Accept json
// @Produce json
// @Param abono_id path int true "Abono ID"
// @Param request body services.AbonoInput true "Abono Data"
// @Success 200 {object} models.AbonoResponse
// @Security BearerAuth
// @Router /abonos/{abono_id} [put]
func (h *AbonoHandler) Update(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("abono_id"), 10, 32)
	var input services.AbonoInput
	if err := BindNestedOrFlat(c, "abono", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	abono, err := h.abonoService.Update(c.Request.Context(), uint(id), &input,
		middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"abono": abono.ToResponse(), "message": "Abono actualizado"})
}

type AnularAbonoRequest struct {
	Motivo string `json:"motivo"`
}

// @Summary Anular Abono
// @Description Schedule the anulación of an abono. It commits after the undo
// window unless /undo_anular is called first.
// @Tags Abonos
// @Accept json
// @Produce json
// @Param abono_id path int true "Abono ID"
// @Param request body AnularAbonoRequest false "Motivo"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /abonos/{abono_id}/anular [post]
func (h *AbonoHandler) Anular(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("abono_id"), 10, 32)
	var req AnularAbonoRequest
	c.ShouldBindJSON(&req)

	abono, err := h.abonoService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Abono no encontrado"})
		return
	}
	if !abono.EsActivo() {
		c.JSON(http.StatusConflict, gin.H{"error": "Solo los abonos activos pueden anularse"})
		return
	}

	actorID := middleware.GetUserID(c)
	ip := c.ClientIP()
	userAgent := c.Request.UserAgent()
	motivo := req.Motivo

	h.undo.Schedule("abono", uint(id), func() {
		if _, err := h.abonoService.Anular(context.Background(), uint(id), motivo, actorID, ip, userAgent); err != nil {
			logger.Error("Anulación diferida de abono falló", "abono_id", id, "error", err)
		}
	})

	c.JSON(http.StatusOK, gin.H{"message": "Abono programado para anulación", "undo": true})
}

// @Summary Undo Anular
// @Description Cancel a pending anulación
// @Tags Abonos
// @Accept json
// @Produce json
// @Param abono_id path int true "Abono ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /abonos/{abono_id}/undo_anular [post]
func (h *AbonoHandler) UndoAnular(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("abono_id"), 10, 32)
	if !h.undo.Cancel("abono", uint(id)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No hay anulación pendiente para este abono"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Anulación cancelada"})
}

// @Summary Revertir Anulación
// @Description Reactivate an anulado abono when the balance still allows it
// @Tags Abonos
// @Accept json
// @Produce json
// @Param abono_id path int true "Abono ID"
// @Success 200 {object} models.AbonoResponse
// @Security BearerAuth
// @Router /abonos/{abono_id}/revertir [post]
func (h *AbonoHandler) Revertir(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("abono_id"), 10, 32)
	abono, err := h.abonoService.Revertir(c.Request.Context(), uint(id),
		middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"abono": abono.ToResponse(), "message": "Anulación revertida"})
}

// @Summary Upload Comprobante
// @Description Upload the receipt image/pdf for an abono
// @Tags Abonos
// @Accept multipart/form-data
// @Produce json
// @Param abono_id path int true "Abono ID"
// @Param comprobante formData file true "Comprobante File"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /abonos/{abono_id}/comprobante [post]
func (h *AbonoHandler) UploadComprobante(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("abono_id"), 10, 32)

	if _, err := h.abonoService.FindByID(c.Request.Context(), uint(id)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Abono no encontrado"})
		return
	}

	file, header, err := c.Request.FormFile("comprobante")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Archivo requerido"})
		return
	}
	defer file.Close()

	if c.Request.ContentLength > 0 && c.Request.ContentLength > storage.MaxFileSize() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Archivo demasiado grande"})
		return
	}

	if !storage.IsValidContentType(header.Header.Get("Content-Type")) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tipo de archivo inválido"})
		return
	}

	path, err := h.storage.Upload(file, header, "comprobantes")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al guardar archivo"})
		return
	}

	if _, err := h.abonoService.AdjuntarComprobante(c.Request.Context(), uint(id), path,
		middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent()); err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comprobante subido exitosamente"})
}

// @Summary Download Comprobante
// @Description Download the receipt attached to an abono
// @Tags Abonos
// @Produce application/octet-stream
// @Param abono_id path int true "Abono ID"
// @Success 200 {file} file "comprobante"
// @Security BearerAuth
// @Router /abonos/{abono_id}/comprobante [get]
func (h *AbonoHandler) DownloadComprobante(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("abono_id"), 10, 32)
	abono, err := h.abonoService.FindByID(c.Request.Context(), uint(id))
	if err != nil || abono.URLComprobante == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comprobante no encontrado"})
		return
	}

	if !h.storage.Exists(*abono.URLComprobante) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comprobante no encontrado"})
		return
	}

	c.File(h.storage.GetFullPath(*abono.URLComprobante))
}
