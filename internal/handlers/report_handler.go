package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rmoralesv/viviendas-api/internal/services"
)

type ReportHandler struct {
	reportService *services.ReportService
	exportService *services.ExportService
}

func NewReportHandler(reportService *services.ReportService, exportService *services.ExportService) *ReportHandler {
	return &ReportHandler{reportService: reportService, exportService: exportService}
}

// @Summary Estado de Cuenta PDF
// @Description Download the cliente's account statement as PDF
// @Tags Reports
// @Produce application/pdf
// @Param cliente_id query int true "Cliente ID"
// @Success 200 {file} file "estado_cuenta.pdf"
// @Security BearerAuth
// @Router /reports/estado_cuenta_pdf [get]
func (h *ReportHandler) EstadoCuentaPDF(c *gin.Context) {
	clienteID, _ := strconv.ParseUint(c.Query("cliente_id"), 10, 32)
	if clienteID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cliente_id es requerido"})
		return
	}

	buf, err := h.reportService.GenerateEstadoCuentaPDF(c.Request.Context(), uint(clienteID))
	if err != nil {
		renderError(c, err)
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=estado_cuenta_%d.pdf", clienteID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// @Summary Recibo de Abono PDF
// @Description Download the printable receipt for an abono
// @Tags Reports
// @Produce application/pdf
// @Param abono_id query int true "Abono ID"
// @Success 200 {file} file "recibo.pdf"
// @Security BearerAuth
// @Router /reports/recibo_abono_pdf [get]
func (h *ReportHandler) ReciboAbonoPDF(c *gin.Context) {
	abonoID, _ := strconv.ParseUint(c.Query("abono_id"), 10, 32)
	if abonoID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "abono_id es requerido"})
		return
	}

	buf, err := h.reportService.GenerateReciboAbonoPDF(c.Request.Context(), uint(abonoID))
	if err != nil {
		renderError(c, err)
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=recibo_%d.pdf", abonoID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// @Summary Recaudo CSV
// @Description Download collected payments between two dates as CSV
// @Tags Reports
// @Produce text/csv
// @Param start_date query string false "Desde (YYYY-MM-DD)"
// @Param end_date query string false "Hasta (YYYY-MM-DD)"
// @Success 200 {file} file "recaudo.csv"
// @Security BearerAuth
// @Router /reports/recaudo_csv [get]
func (h *ReportHandler) RecaudoCSV(c *gin.Context) {
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")

	buf, err := h.reportService.GenerateRecaudoCSV(c.Request.Context(), startDate, endDate)
	if err != nil {
		renderError(c, err)
		return
	}
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=recaudo.csv")
	c.String(http.StatusOK, buf.String())
}

// @Summary Renuncias CSV
// @Description Download the withdrawal ledger as CSV
// @Tags Reports
// @Produce text/csv
// @Success 200 {file} file "renuncias.csv"
// @Security BearerAuth
// @Router /reports/renuncias_csv [get]
func (h *ReportHandler) RenunciasCSV(c *gin.Context) {
	buf, err := h.reportService.GenerateRenunciasCSV(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=renuncias.csv")
	c.String(http.StatusOK, buf.String())
}

// @Summary Export Abonos XLSX
// @Description Download every abono as a spreadsheet
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file "abonos.xlsx"
// @Security BearerAuth
// @Router /reports/abonos_xlsx [get]
func (h *ReportHandler) AbonosXLSX(c *gin.Context) {
	data, filename, err := h.exportService.ExportAbonosXLSX(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// @Summary Export Viviendas CSV
// @Description Download the vivienda inventory with balances as CSV
// @Tags Reports
// @Produce text/csv
// @Success 200 {file} file "viviendas.csv"
// @Security BearerAuth
// @Router /reports/viviendas_csv [get]
func (h *ReportHandler) ViviendasCSV(c *gin.Context) {
	data, filename, err := h.exportService.ExportViviendasCSV(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv", data)
}

// @Summary Resumen General PDF
// @Description Download the global summary report as PDF
// @Tags Reports
// @Produce application/pdf
// @Success 200 {file} file "resumen.pdf"
// @Security BearerAuth
// @Router /reports/resumen_pdf [get]
func (h *ReportHandler) ResumenPDF(c *gin.Context) {
	data, filename, err := h.exportService.ExportResumenPDF(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}
