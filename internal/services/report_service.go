package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/rmoralesv/viviendas-api/internal/finanzas"
	"github.com/rmoralesv/viviendas-api/internal/models"
	"github.com/rmoralesv/viviendas-api/internal/repository"
)

// ReportService builds printable documents and tabular reports
type ReportService struct {
	clienteRepo  repository.ClienteRepository
	abonoRepo    repository.AbonoRepository
	renunciaRepo repository.RenunciaRepository
}

func NewReportService(
	clienteRepo repository.ClienteRepository,
	abonoRepo repository.AbonoRepository,
	renunciaRepo repository.RenunciaRepository,
) *ReportService {
	return &ReportService{
		clienteRepo:  clienteRepo,
		abonoRepo:    abonoRepo,
		renunciaRepo: renunciaRepo,
	}
}

var meses = []string{"", "Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre"}

func fechaLarga(t time.Time) string {
	return fmt.Sprintf("%d de %s de %d", t.Day(), meses[t.Month()], t.Year())
}

// GenerateEstadoCuentaPDF builds the statement of account for a cliente:
// personal data, funding plan, abono ledger and derived balance.
func (s *ReportService) GenerateEstadoCuentaPDF(ctx context.Context, clienteID uint) (*bytes.Buffer, error) {
	cliente, err := s.clienteRepo.FindByIDWithDetails(ctx, clienteID)
	if err != nil {
		return nil, ErrNotFound
	}
	if cliente.ViviendaID == nil || cliente.Vivienda == nil {
		return nil, NewValidationError("cliente_id", "El cliente no tiene vivienda asignada")
	}

	vivienda := cliente.Vivienda
	abonos, err := s.abonoRepo.FindCicloActivo(ctx, cliente.ID, *cliente.ViviendaID)
	if err != nil {
		return nil, err
	}

	resumen := finanzas.CalcularResumen(vivienda.ValorFinal(), abonos)
	desglose := finanzas.DesglosePorFuente(cliente.Fuentes, abonos)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Estado de Cuenta")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(40, 6, fmt.Sprintf("Fecha: %s", fechaLarga(time.Now())))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 8, "Cliente")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(50, 6, "Nombre:")
	pdf.Cell(80, 6, cliente.NombreCompleto())
	pdf.Ln(6)
	pdf.Cell(50, 6, "Cédula:")
	pdf.Cell(80, 6, cliente.Cedula)
	pdf.Ln(6)
	pdf.Cell(50, 6, "Vivienda:")
	pdf.Cell(80, 6, vivienda.Ubicacion())
	pdf.Ln(6)
	pdf.Cell(50, 6, "Valor de la vivienda:")
	pdf.Cell(80, 6, fmt.Sprintf("$ %.2f", vivienda.ValorFinal()))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 8, "Plan de Financiación")
	pdf.Ln(8)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(60, 6, "Fuente", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 6, "Pactado", "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 6, "Abonado", "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 6, "Pendiente", "1", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, d := range desglose {
		pdf.CellFormat(60, 6, d.Fuente, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.2f", d.MontoPactado), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.2f", d.TotalAbonado), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.2f", d.SaldoPendiente), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 8, "Abonos")
	pdf.Ln(8)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(20, 6, "No.", "1", 0, "C", false, 0, "")
	pdf.CellFormat(28, 6, "Fecha", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Fuente", "1", 0, "L", false, 0, "")
	pdf.CellFormat(45, 6, "Método", "1", 0, "L", false, 0, "")
	pdf.CellFormat(42, 6, "Monto", "1", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for i := range abonos {
		a := &abonos[i]
		if !a.EsActivo() {
			continue
		}
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", a.Consecutivo), "1", 0, "C", false, 0, "")
		pdf.CellFormat(28, 6, a.FechaPago.Format("02/01/2006"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, a.Fuente, "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, a.MetodoPago, "1", 0, "L", false, 0, "")
		pdf.CellFormat(42, 6, fmt.Sprintf("%.2f", a.Monto), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(60, 7, "Total abonado:")
	pdf.Cell(50, 7, fmt.Sprintf("$ %.2f", resumen.TotalAbonado))
	pdf.Ln(7)
	pdf.Cell(60, 7, "Saldo pendiente:")
	pdf.Cell(50, 7, fmt.Sprintf("$ %.2f", resumen.SaldoPendiente))
	pdf.Ln(7)
	pdf.Cell(60, 7, "Avance:")
	pdf.Cell(50, 7, fmt.Sprintf("%.1f%%", resumen.PorcentajePagado))
	pdf.Ln(7)

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// GenerateReciboAbonoPDF builds a payment receipt with the amount in words
func (s *ReportService) GenerateReciboAbonoPDF(ctx context.Context, abonoID uint) (*bytes.Buffer, error) {
	abono, err := s.abonoRepo.FindByID(ctx, abonoID)
	if err != nil {
		return nil, ErrNotFound
	}

	cliente, err := s.clienteRepo.FindByID(ctx, abono.ClienteID)
	if err != nil {
		return nil, ErrNotFound
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, fmt.Sprintf("Recibo de Abono No. %d", abono.Consecutivo))
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(40, 6, fmt.Sprintf("Fecha: %s", fechaLarga(abono.FechaPago)))
	pdf.Ln(8)
	pdf.Cell(40, 6, fmt.Sprintf("Recibimos de: %s (C.C. %s)", cliente.NombreCompleto(), cliente.Cedula))
	pdf.Ln(8)
	pdf.Cell(40, 6, fmt.Sprintf("La suma de: $ %.2f", abono.Monto))
	pdf.Ln(6)

	pdf.SetFont("Arial", "I", 9)
	pdf.MultiCell(0, 5, fmt.Sprintf("Son: %s", NumberToWords(abono.Monto)), "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(40, 6, fmt.Sprintf("Fuente: %s", abono.Fuente))
	pdf.Ln(6)
	pdf.Cell(40, 6, fmt.Sprintf("Método de pago: %s", abono.MetodoPago))
	pdf.Ln(12)

	if abono.EstadoProceso == models.AbonoStatusAnulado {
		pdf.SetFont("Arial", "B", 12)
		pdf.SetTextColor(200, 0, 0)
		pdf.Cell(40, 8, "ANULADO")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(10)
	}

	pdf.Cell(60, 6, "_________________________")
	pdf.Ln(5)
	pdf.Cell(60, 6, "Firma autorizada")

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// GenerateRenunciasCSV dumps the withdrawal register with refund status
func (s *ReportService) GenerateRenunciasCSV(ctx context.Context) (*bytes.Buffer, error) {
	renuncias, err := s.renunciaRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	b := &bytes.Buffer{}
	w := csv.NewWriter(b)

	header := []string{"ID", "Cliente", "Vivienda", "Motivo", "Fecha", "Penalidad", "Por Devolver", "Estado"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for i := range renuncias {
		r := &renuncias[i]
		record := []string{
			fmt.Sprintf("%d", r.ID),
			r.ClienteNombre,
			r.ViviendaInfo,
			r.Motivo,
			r.FechaRenuncia.Format("2006-01-02"),
			fmt.Sprintf("%.2f", r.PenalidadMonto),
			fmt.Sprintf("%.2f", r.TotalAbonadoParaDevolucion),
			r.EstadoDevolucion,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return b, nil
}

// GenerateRecaudoCSV dumps the active abonos of a date range. Condonaciones
// are listed but flagged, since they are not money received.
func (s *ReportService) GenerateRecaudoCSV(ctx context.Context, startDate, endDate string) (*bytes.Buffer, error) {
	query := repository.NewListQuery()
	query.PerPage = 10000
	query.Filters["estado_proceso"] = models.AbonoStatusActivo
	if startDate != "" {
		query.Filters["start_date"] = startDate
	}
	if endDate != "" {
		query.Filters["end_date"] = endDate
	}

	abonos, _, err := s.abonoRepo.List(ctx, query)
	if err != nil {
		return nil, err
	}

	b := &bytes.Buffer{}
	w := csv.NewWriter(b)

	header := []string{"Consecutivo", "Fecha", "Cliente", "Vivienda", "Fuente", "Método", "Monto", "Condonación"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	var total float64
	for i := range abonos {
		a := &abonos[i]
		condonacion := "No"
		if a.EsCondonacion() {
			condonacion = "Sí"
		} else {
			total += a.Monto
		}
		clienteNombre := ""
		if a.Cliente.ID != 0 {
			clienteNombre = a.Cliente.NombreCompleto()
		}
		viviendaInfo := ""
		if a.Vivienda.ID != 0 {
			viviendaInfo = a.Vivienda.Ubicacion()
		}
		record := []string{
			fmt.Sprintf("%d", a.Consecutivo),
			a.FechaPago.Format("2006-01-02"),
			clienteNombre,
			viviendaInfo,
			a.Fuente,
			a.MetodoPago,
			fmt.Sprintf("%.2f", a.Monto),
			condonacion,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	_ = w.Write([]string{""})
	_ = w.Write([]string{"", "", "", "", "", "Recaudo real:", fmt.Sprintf("%.2f", total), ""})

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return b, nil
}
