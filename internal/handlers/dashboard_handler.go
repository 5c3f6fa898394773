package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rmoralesv/viviendas-api/internal/readmodel"
)

// DashboardHandler serves the in-memory read model. Responses come from the
// aggregator's snapshots, so no request here touches the database.
type DashboardHandler struct {
	agg *readmodel.Aggregator
}

func NewDashboardHandler(agg *readmodel.Aggregator) *DashboardHandler {
	return &DashboardHandler{agg: agg}
}

// @Summary Dashboard Stats
// @Description Aggregated counters for the main dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} readmodel.DashboardStats
// @Failure 503 {object} map[string]string
// @Security BearerAuth
// @Router /dashboard [get]
func (h *DashboardHandler) Index(c *gin.Context) {
	stats, ok := h.agg.Dashboard()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Los datos del panel aún se están cargando"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary Viviendas con Cliente
// @Description Joined vivienda listing with its assigned cliente
// @Tags Dashboard
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]string
// @Security BearerAuth
// @Router /dashboard/viviendas [get]
func (h *DashboardHandler) Viviendas(c *gin.Context) {
	rows, ok := h.agg.ViviendasConCliente()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Los datos del panel aún se están cargando"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"viviendas": rows})
}

// @Summary Clientes con Vivienda
// @Description Joined cliente listing with its vivienda
// @Tags Dashboard
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]string
// @Security BearerAuth
// @Router /dashboard/clientes [get]
func (h *DashboardHandler) Clientes(c *gin.Context) {
	rows, ok := h.agg.ClientesConVivienda()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Los datos del panel aún se están cargando"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"clientes": rows})
}
