package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rmoralesv/viviendas-api/internal/datasync"
	"github.com/rmoralesv/viviendas-api/internal/finanzas"
	"github.com/rmoralesv/viviendas-api/internal/jobs"
	"github.com/rmoralesv/viviendas-api/internal/models"
	"github.com/rmoralesv/viviendas-api/internal/repository"
	"github.com/rmoralesv/viviendas-api/internal/statemachine"
	"github.com/rmoralesv/viviendas-api/pkg/logger"
)

// AbonoInput carries the fields a caller can set on an abono
type AbonoInput struct {
	ClienteID   uint      `json:"cliente_id" binding:"required"`
	Fuente      string    `json:"fuente" binding:"required"`
	Monto       float64   `json:"monto" binding:"required"`
	FechaPago   time.Time `json:"fecha_pago" binding:"required"`
	MetodoPago  string    `json:"metodo_pago" binding:"required"`
	Observacion *string   `json:"observacion"`
}

type AbonoService struct {
	repo            repository.AbonoRepository
	clienteRepo     repository.ClienteRepository
	viviendaRepo    repository.ViviendaRepository
	notificationSvc *NotificationService
	auditSvc        *AuditService
	worker          *jobs.Worker
	sync            *datasync.Invalidator
}

func NewAbonoService(
	repo repository.AbonoRepository,
	clienteRepo repository.ClienteRepository,
	viviendaRepo repository.ViviendaRepository,
	notificationSvc *NotificationService,
	auditSvc *AuditService,
	worker *jobs.Worker,
	sync *datasync.Invalidator,
) *AbonoService {
	return &AbonoService{
		repo:            repo,
		clienteRepo:     clienteRepo,
		viviendaRepo:    viviendaRepo,
		notificationSvc: notificationSvc,
		auditSvc:        auditSvc,
		worker:          worker,
		sync:            sync,
	}
}

func (s *AbonoService) FindByID(ctx context.Context, id uint) (*models.Abono, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *AbonoService) FindByCliente(ctx context.Context, clienteID uint) ([]models.Abono, error) {
	return s.repo.FindByCliente(ctx, clienteID)
}

func (s *AbonoService) List(ctx context.Context, query *repository.ListQuery) ([]models.Abono, int64, error) {
	return s.repo.List(ctx, query)
}

func (s *AbonoService) GetMonthlyStats(ctx context.Context) (*repository.AbonoStats, error) {
	return s.repo.GetMonthlyStats(ctx)
}

// Create registers a payment for the cliente's current vivienda. The monto
// is validated against the remaining room of the funding source and of the
// overall saldo, so a cliente can never end up overpaid.
func (s *AbonoService) Create(ctx context.Context, input *AbonoInput, actorID uint, ip, userAgent string) (*models.Abono, error) {
	cliente, err := s.clienteRepo.FindByIDWithDetails(ctx, input.ClienteID)
	if err != nil {
		return nil, ErrNotFound
	}

	if cliente.Status != models.ClienteStatusActivo {
		return nil, ErrInvalidState
	}
	if cliente.ViviendaID == nil {
		return nil, NewValidationError("cliente_id", "El cliente no tiene vivienda asignada")
	}

	vivienda, err := s.viviendaRepo.FindByID(ctx, *cliente.ViviendaID)
	if err != nil {
		return nil, ErrNotFound
	}

	if err := s.validarMonto(ctx, cliente, vivienda, input, 0); err != nil {
		return nil, err
	}

	consecutivo, err := s.repo.NextConsecutivo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate consecutivo: %w", err)
	}

	abono := &models.Abono{
		Consecutivo:   consecutivo,
		ClienteID:     cliente.ID,
		ViviendaID:    vivienda.ID,
		Fuente:        input.Fuente,
		Monto:         input.Monto,
		FechaPago:     input.FechaPago,
		MetodoPago:    input.MetodoPago,
		Observacion:   input.Observacion,
		EstadoProceso: models.AbonoStatusActivo,
	}

	if err := s.repo.Create(ctx, abono); err != nil {
		return nil, err
	}

	pagada, err := s.recalcularBalances(ctx, cliente.ID, vivienda.ID)
	if err != nil {
		return nil, err
	}

	if s.sync != nil {
		s.sync.AbonoMutado()
	}

	s.worker.EnqueueAsync(func(jobCtx context.Context) error {
		link := fmt.Sprintf("/abonos/%d", abono.ID)
		msg := fmt.Sprintf("Abono #%d de %s por %.2f (%s)", abono.Consecutivo, cliente.NombreCompleto(), abono.Monto, abono.Fuente)
		if err := s.notificationSvc.NotifyAll(jobCtx, "Abono registrado", msg, models.NotificationTypeAbonoRegistrado, &link); err != nil {
			logger.Error("Failed to notify abono creation", "abono_id", abono.ID, "error", err)
		}
		if pagada {
			msg := fmt.Sprintf("La vivienda %s quedó totalmente pagada", vivienda.Ubicacion())
			if err := s.notificationSvc.NotifyAll(jobCtx, "Vivienda pagada", msg, models.NotificationTypeViviendaPagada, nil); err != nil {
				logger.Error("Failed to notify vivienda pagada", "vivienda_id", vivienda.ID, "error", err)
			}
		}
		return nil
	})

	s.auditSvc.Log(ctx, actorID, "CREATE", "Abono", abono.ID,
		fmt.Sprintf("Abono #%d por %.2f, fuente %s, cliente %s", abono.Consecutivo, abono.Monto, abono.Fuente, cliente.NombreCompleto()),
		ip, userAgent)

	return s.repo.FindByID(ctx, abono.ID)
}

// Update edits monto, fecha, metodo or observacion of an active abono
func (s *AbonoService) Update(ctx context.Context, id uint, input *AbonoInput, actorID uint, ip, userAgent string) (*models.Abono, error) {
	abono, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}

	if !abono.EsActivo() {
		return nil, ErrInvalidState
	}

	cliente, err := s.clienteRepo.FindByIDWithDetails(ctx, abono.ClienteID)
	if err != nil {
		return nil, ErrNotFound
	}
	vivienda, err := s.viviendaRepo.FindByID(ctx, abono.ViviendaID)
	if err != nil {
		return nil, ErrNotFound
	}

	if input.Fuente == "" {
		input.Fuente = abono.Fuente
	}
	if err := s.validarMonto(ctx, cliente, vivienda, input, abono.ID); err != nil {
		return nil, err
	}

	abono.Fuente = input.Fuente
	abono.Monto = input.Monto
	abono.FechaPago = input.FechaPago
	abono.MetodoPago = input.MetodoPago
	abono.Observacion = input.Observacion

	if err := s.repo.Update(ctx, abono); err != nil {
		return nil, err
	}

	if _, err := s.recalcularBalances(ctx, abono.ClienteID, abono.ViviendaID); err != nil {
		return nil, err
	}

	if s.sync != nil {
		s.sync.AbonoMutado()
	}

	s.auditSvc.Log(ctx, actorID, "UPDATE", "Abono", abono.ID,
		fmt.Sprintf("Abono #%d actualizado, monto %.2f", abono.Consecutivo, abono.Monto),
		ip, userAgent)

	return abono, nil
}

// Anular voids an abono. The record stays, keeps its consecutivo and stops
// counting toward any balance.
func (s *AbonoService) Anular(ctx context.Context, id uint, motivo string, actorID uint, ip, userAgent string) (*models.Abono, error) {
	if motivo == "" {
		return nil, NewValidationError("motivo", "El motivo de anulación es obligatorio")
	}

	abono, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}

	// A sale closed with factura de venta keeps its abonos untouchable
	cliente, err := s.clienteRepo.FindByIDWithDetails(ctx, abono.ClienteID)
	if err != nil {
		return nil, ErrNotFound
	}
	if cliente.HitoCompletado(models.HitoFacturaVenta) {
		return nil, ErrProcesoFinalizado
	}

	fsm := statemachine.NewAbonoFSM(abono)
	if err := fsm.Anular(ctx, motivo); err != nil {
		return nil, ErrInvalidState
	}

	if err := s.repo.Update(ctx, abono); err != nil {
		return nil, err
	}

	if _, err := s.recalcularBalances(ctx, abono.ClienteID, abono.ViviendaID); err != nil {
		return nil, err
	}

	if s.sync != nil {
		s.sync.AbonoMutado()
	}

	s.worker.EnqueueAsync(func(jobCtx context.Context) error {
		msg := fmt.Sprintf("Abono #%d anulado: %s", abono.Consecutivo, motivo)
		return s.notificationSvc.NotifyAdmins(jobCtx, "Abono anulado", msg, models.NotificationTypeAbonoAnulado)
	})

	s.auditSvc.Log(ctx, actorID, "ANULAR", "Abono", abono.ID,
		fmt.Sprintf("Abono #%d anulado: %s", abono.Consecutivo, motivo),
		ip, userAgent)

	return abono, nil
}

// Revertir undoes a void within the undo window
func (s *AbonoService) Revertir(ctx context.Context, id uint, actorID uint, ip, userAgent string) (*models.Abono, error) {
	abono, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}

	// The restored monto has to fit again: something else may have filled
	// the funding source in the meantime
	cliente, err := s.clienteRepo.FindByIDWithDetails(ctx, abono.ClienteID)
	if err != nil {
		return nil, ErrNotFound
	}
	vivienda, err := s.viviendaRepo.FindByID(ctx, abono.ViviendaID)
	if err != nil {
		return nil, ErrNotFound
	}
	input := &AbonoInput{Fuente: abono.Fuente, Monto: abono.Monto, MetodoPago: abono.MetodoPago}
	if err := s.validarMonto(ctx, cliente, vivienda, input, abono.ID); err != nil {
		return nil, err
	}

	fsm := statemachine.NewAbonoFSM(abono)
	if err := fsm.Revertir(ctx); err != nil {
		return nil, ErrInvalidState
	}

	if err := s.repo.Update(ctx, abono); err != nil {
		return nil, err
	}

	if _, err := s.recalcularBalances(ctx, abono.ClienteID, abono.ViviendaID); err != nil {
		return nil, err
	}

	if s.sync != nil {
		s.sync.AbonoMutado()
	}

	s.auditSvc.Log(ctx, actorID, "REVERTIR", "Abono", abono.ID,
		fmt.Sprintf("Anulación del abono #%d revertida", abono.Consecutivo),
		ip, userAgent)

	return abono, nil
}

// AdjuntarComprobante stores the receipt file path on the abono
func (s *AbonoService) AdjuntarComprobante(ctx context.Context, id uint, path string, actorID uint, ip, userAgent string) (*models.Abono, error) {
	abono, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}

	abono.URLComprobante = &path
	if err := s.repo.Update(ctx, abono); err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actorID, "COMPROBANTE", "Abono", abono.ID,
		fmt.Sprintf("Comprobante adjuntado al abono #%d", abono.Consecutivo), ip, userAgent)

	return abono, nil
}

// validarMonto rejects montos that would overflow the funding source or the
// saldo pendiente, and fechas outside [fechaIngreso, hoy]. excludeID leaves
// the abono being edited out of the sums.
func (s *AbonoService) validarMonto(ctx context.Context, cliente *models.Cliente, vivienda *models.Vivienda, input *AbonoInput, excludeID uint) error {
	if input.Monto <= 0 {
		return NewValidationError("monto", "El monto debe ser mayor que cero")
	}

	if input.FechaPago.Before(cliente.FechaIngreso) {
		return NewValidationError("fecha_pago", "La fecha de pago no puede ser anterior al ingreso del cliente")
	}
	if input.FechaPago.After(time.Now()) {
		return NewValidationError("fecha_pago", "La fecha de pago no puede ser futura")
	}

	var fuente *models.FuenteFinanciera
	for i := range cliente.Fuentes {
		if cliente.Fuentes[i].Tipo == input.Fuente {
			fuente = &cliente.Fuentes[i]
			break
		}
	}
	if fuente == nil {
		return NewValidationError("fuente", "La fuente no hace parte del plan financiero del cliente")
	}

	abonadoFuente, err := s.repo.SumActivosPorFuente(ctx, cliente.ID, input.Fuente, excludeID)
	if err != nil {
		return err
	}
	if abonadoFuente+input.Monto > fuente.Monto {
		disponible := fuente.Monto - abonadoFuente
		return NewValidationError("monto",
			fmt.Sprintf("El monto supera el saldo de la fuente: disponible %.2f", disponible))
	}

	abonos, err := s.repo.FindCicloActivo(ctx, cliente.ID, vivienda.ID)
	if err != nil {
		return err
	}
	var totalActivo float64
	for i := range abonos {
		if abonos[i].EsActivo() && abonos[i].ID != excludeID {
			totalActivo += abonos[i].Monto
		}
	}
	if totalActivo+input.Monto > vivienda.ValorFinal() {
		disponible := vivienda.ValorFinal() - totalActivo
		return NewValidationError("monto",
			fmt.Sprintf("El monto supera el saldo pendiente de la vivienda: disponible %.2f", disponible))
	}

	return nil
}

// recalcularBalances rebuilds the cached vivienda balances from the active
// abonos of the current cycle. Returns true when the unit became fully paid.
func (s *AbonoService) recalcularBalances(ctx context.Context, clienteID, viviendaID uint) (bool, error) {
	vivienda, err := s.viviendaRepo.FindByID(ctx, viviendaID)
	if err != nil {
		return false, err
	}

	abonos, err := s.repo.FindCicloActivo(ctx, clienteID, viviendaID)
	if err != nil {
		return false, err
	}

	resumen := finanzas.CalcularResumen(vivienda.ValorFinal(), abonos)

	estabaPagada := vivienda.EstaPagada()
	if err := s.viviendaRepo.UpdateBalances(ctx, viviendaID, resumen.TotalAbonado, resumen.SaldoPendiente); err != nil {
		return false, err
	}

	quedoPagada := vivienda.Status == models.ViviendaStatusAsignada && resumen.SaldoPendiente <= 0
	return quedoPagada && !estabaPagada, nil
}

// ReconciliarBalances rebuilds the cached balances of every vivienda
// asignada from its active abonos. Runs as a scheduled job so drift
// introduced outside the service layer does not survive the night.
func (s *AbonoService) ReconciliarBalances(ctx context.Context) error {
	viviendas, err := s.viviendaRepo.FindAll(ctx)
	if err != nil {
		return err
	}

	var fallas int
	for i := range viviendas {
		v := &viviendas[i]
		if v.ClienteID == nil {
			continue
		}
		if _, err := s.recalcularBalances(ctx, *v.ClienteID, v.ID); err != nil {
			logger.Error("Error reconciliando balances", "vivienda_id", v.ID, "error", err)
			fallas++
		}
	}
	if fallas > 0 {
		return fmt.Errorf("reconciliación con %d viviendas fallidas", fallas)
	}
	return nil
}

// ResumenCliente returns the derived balance and per-fuente breakdown for a
// cliente's current cycle
func (s *AbonoService) ResumenCliente(ctx context.Context, clienteID uint) (*finanzas.Resumen, []finanzas.ResumenFuente, error) {
	cliente, err := s.clienteRepo.FindByIDWithDetails(ctx, clienteID)
	if err != nil {
		return nil, nil, ErrNotFound
	}
	if cliente.ViviendaID == nil {
		return &finanzas.Resumen{}, nil, nil
	}

	vivienda, err := s.viviendaRepo.FindByID(ctx, *cliente.ViviendaID)
	if err != nil {
		return nil, nil, err
	}

	abonos, err := s.repo.FindCicloActivo(ctx, clienteID, vivienda.ID)
	if err != nil {
		return nil, nil, err
	}

	resumen := finanzas.CalcularResumen(vivienda.ValorFinal(), abonos)
	desglose := finanzas.DesglosePorFuente(cliente.Fuentes, abonos)
	return &resumen, desglose, nil
}
