package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rmoralesv/viviendas-api/internal/datasync"
	"github.com/rmoralesv/viviendas-api/internal/finanzas"
	"github.com/rmoralesv/viviendas-api/internal/jobs"
	"github.com/rmoralesv/viviendas-api/internal/models"
	"github.com/rmoralesv/viviendas-api/internal/repository"
	"github.com/rmoralesv/viviendas-api/internal/statemachine"
	"github.com/rmoralesv/viviendas-api/pkg/logger"
)

// RenunciaInput carries the fields of a withdrawal request
type RenunciaInput struct {
	ClienteID       uint      `json:"cliente_id" binding:"required"`
	Motivo          string    `json:"motivo" binding:"required"`
	Observacion     *string   `json:"observacion"`
	FechaRenuncia   time.Time `json:"fecha_renuncia" binding:"required"`
	PenalidadMonto  float64   `json:"penalidad_monto"`
	PenalidadMotivo *string   `json:"penalidad_motivo"`
}

type RenunciaService struct {
	repo            repository.RenunciaRepository
	clienteRepo     repository.ClienteRepository
	viviendaRepo    repository.ViviendaRepository
	abonoRepo       repository.AbonoRepository
	notificationSvc *NotificationService
	auditSvc        *AuditService
	worker          *jobs.Worker
	sync            *datasync.Invalidator
}

func NewRenunciaService(
	repo repository.RenunciaRepository,
	clienteRepo repository.ClienteRepository,
	viviendaRepo repository.ViviendaRepository,
	abonoRepo repository.AbonoRepository,
	notificationSvc *NotificationService,
	auditSvc *AuditService,
	worker *jobs.Worker,
	sync *datasync.Invalidator,
) *RenunciaService {
	return &RenunciaService{
		repo:            repo,
		clienteRepo:     clienteRepo,
		viviendaRepo:    viviendaRepo,
		abonoRepo:       abonoRepo,
		notificationSvc: notificationSvc,
		auditSvc:        auditSvc,
		worker:          worker,
		sync:            sync,
	}
}

func (s *RenunciaService) FindByID(ctx context.Context, id uint) (*models.Renuncia, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *RenunciaService) List(ctx context.Context, query *repository.ListQuery) ([]models.Renuncia, int64, error) {
	return s.repo.List(ctx, query)
}

func (s *RenunciaService) GetStats(ctx context.Context) (*repository.RenunciaStats, error) {
	return s.repo.GetStats(ctx)
}

// Iniciar processes a withdrawal end to end: validates the request,
// computes the refund, creates the renuncia pendiente, detaches the
// vivienda and archives the cycle's abonos. Every validation runs before
// the first write, so a rejected request leaves no state behind.
func (s *RenunciaService) Iniciar(ctx context.Context, input *RenunciaInput, actorID uint, ip, userAgent string) (*models.Renuncia, error) {
	if err := s.validar(input); err != nil {
		return nil, err
	}

	cliente, err := s.clienteRepo.FindByIDWithDetails(ctx, input.ClienteID)
	if err != nil {
		return nil, ErrNotFound
	}

	if !cliente.MayIniciarRenuncia() {
		if cliente.HitoCompletado(models.HitoFacturaVenta) {
			return nil, ErrProcesoFinalizado
		}
		return nil, ErrInvalidState
	}
	if cliente.ViviendaID == nil {
		return nil, NewValidationError("cliente_id", "El cliente no tiene vivienda asignada")
	}

	vivienda, err := s.viviendaRepo.FindByID(ctx, *cliente.ViviendaID)
	if err != nil {
		return nil, ErrNotFound
	}

	abonos, err := s.abonoRepo.FindCicloActivo(ctx, cliente.ID, vivienda.ID)
	if err != nil {
		return nil, err
	}

	totalReal := finanzas.TotalAbonadoReal(abonos)
	totalADevolver := totalReal - input.PenalidadMonto
	if totalADevolver < 0 {
		return nil, NewValidationError("penalidad_monto",
			fmt.Sprintf("La penalidad %.2f supera el total abonado real %.2f", input.PenalidadMonto, totalReal))
	}

	// Validation complete, state changes begin
	cfsm := statemachine.NewClienteFSM(cliente)
	if err := cfsm.IniciarRenuncia(ctx); err != nil {
		return nil, ErrInvalidState
	}
	if err := s.clienteRepo.Update(ctx, cliente); err != nil {
		return nil, err
	}

	renuncia := &models.Renuncia{
		GUID:                       uuid.NewString(),
		ClienteID:                  cliente.ID,
		ClienteNombre:              cliente.NombreCompleto(),
		ViviendaID:                 vivienda.ID,
		ViviendaInfo:               vivienda.Ubicacion(),
		Motivo:                     input.Motivo,
		Observacion:                input.Observacion,
		FechaRenuncia:              input.FechaRenuncia,
		PenalidadMonto:             input.PenalidadMonto,
		PenalidadMotivo:            input.PenalidadMotivo,
		TotalAbonadoParaDevolucion: totalADevolver,
		EstadoDevolucion:           models.RenunciaStatusPendiente,
	}
	if err := s.repo.Create(ctx, renuncia); err != nil {
		return nil, err
	}

	archivados, err := s.abonoRepo.ArchivarCiclo(ctx, cliente.ID, vivienda.ID, renuncia.ID)
	if err != nil {
		return nil, err
	}

	vfsm := statemachine.NewViviendaFSM(vivienda)
	if err := vfsm.Liberar(ctx); err != nil {
		return nil, ErrInvalidState
	}
	if err := s.viviendaRepo.Update(ctx, vivienda); err != nil {
		return nil, err
	}

	if err := cfsm.ConfirmarRenuncia(ctx); err != nil {
		return nil, ErrInvalidState
	}
	if err := s.clienteRepo.Update(ctx, cliente); err != nil {
		return nil, err
	}

	if s.sync != nil {
		s.sync.RenunciaMutada()
	}

	s.worker.EnqueueAsync(func(jobCtx context.Context) error {
		link := fmt.Sprintf("/renuncias/%d", renuncia.ID)
		msg := fmt.Sprintf("%s renunció a la vivienda %s; devolución pendiente por %.2f",
			renuncia.ClienteNombre, renuncia.ViviendaInfo, renuncia.TotalAbonadoParaDevolucion)
		if err := s.notificationSvc.NotifyAll(jobCtx, "Renuncia registrada", msg, models.NotificationTypeRenunciaCreada, &link); err != nil {
			logger.Error("Failed to notify renuncia", "renuncia_id", renuncia.ID, "error", err)
		}
		return nil
	})

	s.auditSvc.Log(ctx, actorID, "RENUNCIA", "Renuncia", renuncia.ID,
		fmt.Sprintf("Renuncia de %s, vivienda %s, %d abonos archivados, devolución %.2f",
			renuncia.ClienteNombre, renuncia.ViviendaInfo, archivados, totalADevolver),
		ip, userAgent)

	return renuncia, nil
}

// MarcarPagada records the refund disbursement
func (s *RenunciaService) MarcarPagada(ctx context.Context, id uint, actorID uint, ip, userAgent string) (*models.Renuncia, error) {
	renuncia, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}

	fsm := statemachine.NewRenunciaFSM(renuncia)
	if err := fsm.Pagar(ctx); err != nil {
		return nil, ErrInvalidState
	}

	if err := s.repo.Update(ctx, renuncia); err != nil {
		return nil, err
	}

	if s.sync != nil {
		s.sync.RenunciaMutada()
	}

	s.auditSvc.Log(ctx, actorID, "PAGAR", "Renuncia", renuncia.ID,
		fmt.Sprintf("Devolución de %.2f pagada a %s", renuncia.TotalAbonadoParaDevolucion, renuncia.ClienteNombre),
		ip, userAgent)

	return renuncia, nil
}

// Cancelar reverses a pending withdrawal: the vivienda is reassigned, the
// archived abonos come back and the cliente returns to activo. If the
// vivienda was taken by someone else in the meantime nothing changes.
func (s *RenunciaService) Cancelar(ctx context.Context, id uint, motivo string, actorID uint, ip, userAgent string) (*models.Renuncia, error) {
	renuncia, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}

	if !renuncia.MayCancelar() {
		return nil, ErrInvalidState
	}

	cliente, err := s.clienteRepo.FindByID(ctx, renuncia.ClienteID)
	if err != nil {
		return nil, ErrNotFound
	}
	if !cliente.MayReactivar() {
		return nil, ErrInvalidState
	}

	vivienda, err := s.viviendaRepo.FindByID(ctx, renuncia.ViviendaID)
	if err != nil {
		return nil, ErrNotFound
	}

	// Race check before any write: the unit may already belong to another
	// cliente or sit in the archive
	if !vivienda.MayAsignar() {
		return nil, ErrViviendaNoDisponible
	}

	fsm := statemachine.NewRenunciaFSM(renuncia)
	if err := fsm.Cancelar(ctx); err != nil {
		return nil, ErrInvalidState
	}
	if motivo != "" {
		obs := motivo
		if renuncia.Observacion != nil && *renuncia.Observacion != "" {
			obs = *renuncia.Observacion + " | Cancelada: " + motivo
		}
		renuncia.Observacion = &obs
	}
	if err := s.repo.Update(ctx, renuncia); err != nil {
		return nil, err
	}

	reactivados, err := s.abonoRepo.ReactivarCiclo(ctx, renuncia.ID)
	if err != nil {
		return nil, err
	}

	vfsm := statemachine.NewViviendaFSM(vivienda)
	if err := vfsm.Asignar(ctx, cliente.ID); err != nil {
		return nil, ErrViviendaNoDisponible
	}

	abonos, err := s.abonoRepo.FindCicloActivo(ctx, cliente.ID, vivienda.ID)
	if err != nil {
		return nil, err
	}
	resumen := finanzas.CalcularResumen(vivienda.ValorFinal(), abonos)
	vivienda.TotalAbonado = resumen.TotalAbonado
	vivienda.SaldoPendiente = resumen.SaldoPendiente
	if err := s.viviendaRepo.Update(ctx, vivienda); err != nil {
		return nil, err
	}

	cfsm := statemachine.NewClienteFSM(cliente)
	if err := cfsm.Reactivar(ctx, vivienda.ID); err != nil {
		return nil, ErrInvalidState
	}
	if err := s.clienteRepo.Update(ctx, cliente); err != nil {
		return nil, err
	}

	if s.sync != nil {
		s.sync.RenunciaMutada()
	}

	s.worker.EnqueueAsync(func(jobCtx context.Context) error {
		msg := fmt.Sprintf("La renuncia de %s fue cancelada; la vivienda %s vuelve a estar asignada",
			renuncia.ClienteNombre, renuncia.ViviendaInfo)
		return s.notificationSvc.NotifyAdmins(jobCtx, "Renuncia cancelada", msg, models.NotificationTypeRenunciaCancelada)
	})

	s.auditSvc.Log(ctx, actorID, "CANCELAR", "Renuncia", renuncia.ID,
		fmt.Sprintf("Renuncia de %s cancelada, %d abonos reactivados", renuncia.ClienteNombre, reactivados),
		ip, userAgent)

	return renuncia, nil
}

func (s *RenunciaService) validar(input *RenunciaInput) error {
	if input.Motivo == "" {
		return NewValidationError("motivo", "El motivo es obligatorio")
	}
	if input.Motivo == models.RenunciaMotivoOtro && (input.Observacion == nil || *input.Observacion == "") {
		return NewValidationError("observacion", "La observación es obligatoria cuando el motivo es Otro")
	}
	if input.FechaRenuncia.IsZero() {
		return NewValidationError("fecha_renuncia", "La fecha de renuncia es obligatoria")
	}
	if input.PenalidadMonto < 0 {
		return NewValidationError("penalidad_monto", "La penalidad no puede ser negativa")
	}
	if input.PenalidadMonto > 0 && (input.PenalidadMotivo == nil || *input.PenalidadMotivo == "") {
		return NewValidationError("penalidad_motivo", "El motivo de la penalidad es obligatorio")
	}
	return nil
}
