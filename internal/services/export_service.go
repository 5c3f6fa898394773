package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/rmoralesv/viviendas-api/internal/repository"
)

// ExportService produces downloadable snapshots of the operational data
type ExportService struct {
	abonoRepo    repository.AbonoRepository
	viviendaRepo repository.ViviendaRepository
	clienteRepo  repository.ClienteRepository
	renunciaRepo repository.RenunciaRepository
}

func NewExportService(
	abonoRepo repository.AbonoRepository,
	viviendaRepo repository.ViviendaRepository,
	clienteRepo repository.ClienteRepository,
	renunciaRepo repository.RenunciaRepository,
) *ExportService {
	return &ExportService{
		abonoRepo:    abonoRepo,
		viviendaRepo: viviendaRepo,
		clienteRepo:  clienteRepo,
		renunciaRepo: renunciaRepo,
	}
}

// ExportAbonosXLSX writes the full abono ledger as a spreadsheet
func (s *ExportService) ExportAbonosXLSX(ctx context.Context) ([]byte, string, error) {
	abonos, err := s.abonoRepo.FindAll(ctx)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Abonos"
	_ = f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	headers := []string{"Consecutivo", "Fecha", "Cliente", "Vivienda", "Fuente", "Método", "Monto", "Estado"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for row, a := range abonos {
		clienteNombre := ""
		if a.Cliente.ID != 0 {
			clienteNombre = a.Cliente.NombreCompleto()
		}
		viviendaInfo := ""
		if a.Vivienda.ID != 0 {
			viviendaInfo = a.Vivienda.Ubicacion()
		}
		values := []interface{}{
			a.Consecutivo,
			a.FechaPago.Format("2006-01-02"),
			clienteNombre,
			viviendaInfo,
			a.Fuente,
			a.MetodoPago,
			a.Monto,
			a.EstadoProceso,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("abonos_%s.xlsx", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// ExportViviendasCSV writes the unit inventory with its cached balances
func (s *ExportService) ExportViviendasCSV(ctx context.Context) ([]byte, string, error) {
	viviendas, err := s.viviendaRepo.FindAll(ctx)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	_ = writer.Write([]string{"Inventario de Viviendas", time.Now().Format("2006-01-02 15:04")})
	_ = writer.Write([]string{""})
	_ = writer.Write([]string{"Proyecto", "Ubicación", "Valor Final", "Estado", "Total Abonado", "Saldo Pendiente"})

	for i := range viviendas {
		v := &viviendas[i]
		proyecto := v.Proyecto.Nombre
		_ = writer.Write([]string{
			proyecto,
			v.Ubicacion(),
			fmt.Sprintf("%.2f", v.ValorFinal()),
			v.Status,
			fmt.Sprintf("%.2f", v.TotalAbonado),
			fmt.Sprintf("%.2f", v.SaldoPendiente),
		})
	}

	writer.Flush()

	filename := fmt.Sprintf("viviendas_%s.csv", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// ExportResumenPDF writes a one-page operational summary
func (s *ExportService) ExportResumenPDF(ctx context.Context) ([]byte, string, error) {
	viviendaStats, err := s.viviendaRepo.GetStats(ctx)
	if err != nil {
		return nil, "", err
	}
	clienteStats, err := s.clienteRepo.GetStats(ctx)
	if err != nil {
		return nil, "", err
	}
	abonoStats, err := s.abonoRepo.GetMonthlyStats(ctx)
	if err != nil {
		return nil, "", err
	}
	renunciaStats, err := s.renunciaRepo.GetStats(ctx)
	if err != nil {
		return nil, "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Resumen Operativo")
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 10, "Viviendas")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	filas := []struct {
		label string
		value string
	}{
		{"Total:", fmt.Sprintf("%d", viviendaStats.Total)},
		{"Disponibles:", fmt.Sprintf("%d", viviendaStats.Disponibles)},
		{"Asignadas:", fmt.Sprintf("%d", viviendaStats.Asignadas)},
		{"Pagadas:", fmt.Sprintf("%d", viviendaStats.Pagadas)},
	}
	for _, fila := range filas {
		pdf.Cell(60, 10, fila.label)
		pdf.Cell(40, 10, fila.value)
		pdf.Ln(6)
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 10, "Clientes")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(60, 10, "Activos:")
	pdf.Cell(40, 10, fmt.Sprintf("%d", clienteStats.Activos))
	pdf.Ln(6)
	pdf.Cell(60, 10, "Renunciados:")
	pdf.Cell(40, 10, fmt.Sprintf("%d", clienteStats.Renunciados))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 10, "Recaudo")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(60, 10, "Recaudado este mes:")
	pdf.Cell(40, 10, fmt.Sprintf("%.2f", abonoStats.RecaudadoEsteMes))
	pdf.Ln(6)
	pdf.Cell(60, 10, "Recaudado total:")
	pdf.Cell(40, 10, fmt.Sprintf("%.2f", abonoStats.RecaudadoTotal))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 10, "Renuncias")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(60, 10, "Pendientes:")
	pdf.Cell(40, 10, fmt.Sprintf("%d", renunciaStats.Pendientes))
	pdf.Ln(6)
	pdf.Cell(60, 10, "Monto por devolver:")
	pdf.Cell(40, 10, fmt.Sprintf("%.2f", renunciaStats.MontoPorDevolver))
	pdf.Ln(6)

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("resumen_%s.pdf", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}
