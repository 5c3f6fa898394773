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

// FuenteInput is one funding source of the plan being saved
type FuenteInput struct {
	Tipo       string  `json:"tipo" binding:"required"`
	Monto      float64 `json:"monto" binding:"required"`
	URLSoporte *string `json:"url_soporte"`
}

// ClienteInput carries the editable fields of a cliente
type ClienteInput struct {
	Nombres        string        `json:"nombres" binding:"required"`
	Apellidos      string        `json:"apellidos" binding:"required"`
	Cedula         string        `json:"cedula" binding:"required"`
	Telefono       string        `json:"telefono"`
	Correo         string        `json:"correo"`
	Direccion      string        `json:"direccion"`
	FechaIngreso   time.Time     `json:"fecha_ingreso" binding:"required"`
	ViviendaID     uint          `json:"vivienda_id" binding:"required"`
	ValorEscritura *float64      `json:"valor_escritura"`
	Fuentes        []FuenteInput `json:"fuentes" binding:"required"`
}

type ClienteService struct {
	repo            repository.ClienteRepository
	viviendaRepo    repository.ViviendaRepository
	abonoRepo       repository.AbonoRepository
	renunciaRepo    repository.RenunciaRepository
	notificationSvc *NotificationService
	auditSvc        *AuditService
	worker          *jobs.Worker
	sync            *datasync.Invalidator
}

func NewClienteService(
	repo repository.ClienteRepository,
	viviendaRepo repository.ViviendaRepository,
	abonoRepo repository.AbonoRepository,
	renunciaRepo repository.RenunciaRepository,
	notificationSvc *NotificationService,
	auditSvc *AuditService,
	worker *jobs.Worker,
	sync *datasync.Invalidator,
) *ClienteService {
	return &ClienteService{
		repo:            repo,
		viviendaRepo:    viviendaRepo,
		abonoRepo:       abonoRepo,
		renunciaRepo:    renunciaRepo,
		notificationSvc: notificationSvc,
		auditSvc:        auditSvc,
		worker:          worker,
		sync:            sync,
	}
}

func (s *ClienteService) FindByID(ctx context.Context, id uint) (*models.Cliente, error) {
	return s.repo.FindByIDWithDetails(ctx, id)
}

func (s *ClienteService) List(ctx context.Context, query *repository.ListQuery) ([]models.Cliente, int64, error) {
	return s.repo.List(ctx, query)
}

func (s *ClienteService) GetStats(ctx context.Context) (*repository.ClienteStats, error) {
	return s.repo.GetStats(ctx)
}

// Create registers a buyer, assigns the chosen vivienda and stores the
// funding plan. The plan has to cover the valor final exactly: a diferencia
// other than zero rejects the save.
func (s *ClienteService) Create(ctx context.Context, input *ClienteInput, actorID uint, ip, userAgent string) (*models.Cliente, error) {
	vivienda, err := s.viviendaRepo.FindByID(ctx, input.ViviendaID)
	if err != nil {
		return nil, NewValidationError("vivienda_id", "La vivienda no existe")
	}

	if !vivienda.MayAsignar() {
		return nil, ErrViviendaNoDisponible
	}

	fuentes, err := s.validarPlan(input, vivienda)
	if err != nil {
		return nil, err
	}

	cliente := &models.Cliente{
		Nombres:        input.Nombres,
		Apellidos:      input.Apellidos,
		Cedula:         input.Cedula,
		Telefono:       input.Telefono,
		Correo:         input.Correo,
		Direccion:      input.Direccion,
		FechaIngreso:   input.FechaIngreso,
		ValorEscritura: input.ValorEscritura,
		Status:         models.ClienteStatusActivo,
		Fuentes:        fuentes,
		Hitos:          models.HitosDefault(),
	}

	if err := s.repo.Create(ctx, cliente); err != nil {
		return nil, err
	}

	vfsm := statemachine.NewViviendaFSM(vivienda)
	if err := vfsm.Asignar(ctx, cliente.ID); err != nil {
		return nil, ErrViviendaNoDisponible
	}
	vivienda.SaldoPendiente = vivienda.ValorFinal()
	vivienda.TotalAbonado = 0
	if err := s.viviendaRepo.Update(ctx, vivienda); err != nil {
		return nil, err
	}

	cliente.ViviendaID = &vivienda.ID
	if err := s.repo.Update(ctx, cliente); err != nil {
		return nil, err
	}

	if s.sync != nil {
		s.sync.ClienteMutado()
	}

	s.worker.EnqueueAsync(func(jobCtx context.Context) error {
		link := fmt.Sprintf("/clientes/%d", cliente.ID)
		msg := fmt.Sprintf("%s compró la vivienda %s", cliente.NombreCompleto(), vivienda.Ubicacion())
		if err := s.notificationSvc.NotifyAll(jobCtx, "Cliente nuevo", msg, models.NotificationTypeClienteNuevo, &link); err != nil {
			logger.Error("Failed to notify cliente creation", "cliente_id", cliente.ID, "error", err)
		}
		return nil
	})

	s.auditSvc.Log(ctx, actorID, "CREATE", "Cliente", cliente.ID,
		fmt.Sprintf("Cliente %s creado con vivienda %s", cliente.NombreCompleto(), vivienda.Ubicacion()),
		ip, userAgent)

	return s.repo.FindByIDWithDetails(ctx, cliente.ID)
}

// Update edits personal data and the funding plan. Once facturaVenta is
// completed the record is frozen.
func (s *ClienteService) Update(ctx context.Context, id uint, input *ClienteInput, actorID uint, ip, userAgent string) (*models.Cliente, error) {
	cliente, err := s.repo.FindByIDWithDetails(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}

	if !cliente.MayEditar() {
		if cliente.HitoCompletado(models.HitoFacturaVenta) {
			return nil, ErrProcesoFinalizado
		}
		return nil, ErrInvalidState
	}

	if cliente.ViviendaID == nil || *cliente.ViviendaID != input.ViviendaID {
		return nil, NewValidationError("vivienda_id", "La vivienda no puede cambiarse; use renuncia y reactivación")
	}

	vivienda, err := s.viviendaRepo.FindByID(ctx, *cliente.ViviendaID)
	if err != nil {
		return nil, ErrNotFound
	}

	fuentes, err := s.validarPlan(input, vivienda)
	if err != nil {
		return nil, err
	}

	// Shrinking a fuente below what is already abonado would corrupt the
	// per-fuente balance
	for _, f := range fuentes {
		abonado, err := s.abonoRepo.SumActivosPorFuente(ctx, cliente.ID, f.Tipo, 0)
		if err != nil {
			return nil, err
		}
		if f.Monto < abonado {
			return nil, NewValidationError("fuentes",
				fmt.Sprintf("La fuente %s ya tiene abonos por %.2f", f.Tipo, abonado))
		}
	}

	cliente.Nombres = input.Nombres
	cliente.Apellidos = input.Apellidos
	cliente.Cedula = input.Cedula
	cliente.Telefono = input.Telefono
	cliente.Correo = input.Correo
	cliente.Direccion = input.Direccion
	cliente.FechaIngreso = input.FechaIngreso
	cliente.ValorEscritura = input.ValorEscritura

	if err := s.repo.Update(ctx, cliente); err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceFuentes(ctx, cliente.ID, fuentes); err != nil {
		return nil, err
	}

	if s.sync != nil {
		s.sync.ClienteMutado()
	}

	s.auditSvc.Log(ctx, actorID, "UPDATE", "Cliente", cliente.ID,
		fmt.Sprintf("Cliente %s actualizado", cliente.NombreCompleto()), ip, userAgent)

	return s.repo.FindByIDWithDetails(ctx, cliente.ID)
}

// CompletarHito marks a milestone done. Milestones only move forward; the
// completion date defaults to today.
func (s *ClienteService) CompletarHito(ctx context.Context, clienteID uint, nombre string, fecha *time.Time, actorID uint, ip, userAgent string) (*models.Cliente, error) {
	cliente, err := s.repo.FindByID(ctx, clienteID)
	if err != nil {
		return nil, ErrNotFound
	}

	if cliente.Status != models.ClienteStatusActivo {
		return nil, ErrInvalidState
	}

	var hito *models.Hito
	for i := range cliente.Hitos {
		if cliente.Hitos[i].Nombre == nombre {
			hito = &cliente.Hitos[i]
			break
		}
	}
	if hito == nil {
		return nil, NewValidationError("hito", "El hito no existe en el proceso del cliente")
	}
	if hito.Completado {
		return nil, NewValidationError("hito", "El hito ya fue completado")
	}

	if fecha == nil {
		now := time.Now()
		fecha = &now
	}
	hito.Completado = true
	hito.Fecha = fecha

	if err := s.repo.UpdateHito(ctx, hito); err != nil {
		return nil, err
	}

	if s.sync != nil {
		s.sync.ClienteMutado()
	}

	s.auditSvc.Log(ctx, actorID, "HITO", "Cliente", cliente.ID,
		fmt.Sprintf("Hito %s completado para %s", nombre, cliente.NombreCompleto()), ip, userAgent)

	return s.repo.FindByIDWithDetails(ctx, clienteID)
}

// Reactivar starts a new purchase process for a renunciado cliente with a
// fresh vivienda and a fresh plan. Old abonos stay archived.
func (s *ClienteService) Reactivar(ctx context.Context, id uint, viviendaID uint, fuentesInput []FuenteInput, actorID uint, ip, userAgent string) (*models.Cliente, error) {
	cliente, err := s.repo.FindByIDWithDetails(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}

	vivienda, err := s.viviendaRepo.FindByID(ctx, viviendaID)
	if err != nil {
		return nil, NewValidationError("vivienda_id", "La vivienda no existe")
	}
	if !vivienda.MayAsignar() {
		return nil, ErrViviendaNoDisponible
	}

	input := &ClienteInput{ViviendaID: viviendaID, Fuentes: fuentesInput}
	fuentes, err := s.validarPlan(input, vivienda)
	if err != nil {
		return nil, err
	}

	cfsm := statemachine.NewClienteFSM(cliente)
	if err := cfsm.Reactivar(ctx, viviendaID); err != nil {
		return nil, ErrInvalidState
	}

	vfsm := statemachine.NewViviendaFSM(vivienda)
	if err := vfsm.Asignar(ctx, cliente.ID); err != nil {
		return nil, ErrViviendaNoDisponible
	}
	vivienda.TotalAbonado = 0
	vivienda.SaldoPendiente = vivienda.ValorFinal()

	if err := s.viviendaRepo.Update(ctx, vivienda); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, cliente); err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceFuentes(ctx, cliente.ID, fuentes); err != nil {
		return nil, err
	}

	// New process, new checklist
	for i := range cliente.Hitos {
		cliente.Hitos[i].Completado = false
		cliente.Hitos[i].Fecha = nil
		if err := s.repo.UpdateHito(ctx, &cliente.Hitos[i]); err != nil {
			return nil, err
		}
	}

	if s.sync != nil {
		s.sync.ClienteMutado()
	}

	s.auditSvc.Log(ctx, actorID, "REACTIVAR", "Cliente", cliente.ID,
		fmt.Sprintf("Cliente %s reactivado con vivienda %s", cliente.NombreCompleto(), vivienda.Ubicacion()),
		ip, userAgent)

	return s.repo.FindByIDWithDetails(ctx, id)
}

// Archivar moves a renunciado cliente to inactivo
func (s *ClienteService) Archivar(ctx context.Context, id uint, actorID uint, ip, userAgent string) (*models.Cliente, error) {
	cliente, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}

	fsm := statemachine.NewClienteFSM(cliente)
	if err := fsm.Archivar(ctx); err != nil {
		return nil, ErrInvalidState
	}

	if err := s.repo.Update(ctx, cliente); err != nil {
		return nil, err
	}

	if s.sync != nil {
		s.sync.ClienteMutado()
	}

	s.auditSvc.Log(ctx, actorID, "ARCHIVAR", "Cliente", cliente.ID,
		fmt.Sprintf("Cliente %s archivado", cliente.NombreCompleto()), ip, userAgent)

	return cliente, nil
}

// Delete removes a cliente permanently. Only inactivo clientes without
// abono or renuncia history can be deleted.
func (s *ClienteService) Delete(ctx context.Context, id uint, actorID uint, ip, userAgent string) error {
	cliente, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}

	if cliente.Status != models.ClienteStatusInactivo {
		return ErrInvalidState
	}

	abonos, err := s.abonoRepo.FindByCliente(ctx, id)
	if err != nil {
		return err
	}
	if len(abonos) > 0 {
		return ErrTieneHistorial
	}

	renuncias, err := s.renunciaRepo.FindByCliente(ctx, id)
	if err != nil {
		return err
	}
	if len(renuncias) > 0 {
		return ErrTieneHistorial
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if s.sync != nil {
		s.sync.ClienteMutado()
	}

	s.auditSvc.Log(ctx, actorID, "DELETE", "Cliente", id,
		fmt.Sprintf("Cliente %s eliminado", cliente.NombreCompleto()), ip, userAgent)

	return nil
}

// validarPlan checks the funding sources against the vivienda's valor final.
// ValorEscritura only documents the deed amount; the plan always covers the
// valor final.
func (s *ClienteService) validarPlan(input *ClienteInput, vivienda *models.Vivienda) ([]models.FuenteFinanciera, error) {
	if len(input.Fuentes) == 0 {
		return nil, NewValidationError("fuentes", "Debe definir al menos una fuente de financiación")
	}

	validas := make(map[string]bool)
	for _, t := range models.FuentesValidas() {
		validas[t] = true
	}

	vistas := make(map[string]bool)
	fuentes := make([]models.FuenteFinanciera, 0, len(input.Fuentes))
	for _, f := range input.Fuentes {
		if !validas[f.Tipo] {
			return nil, NewValidationError("fuentes", fmt.Sprintf("Fuente desconocida: %s", f.Tipo))
		}
		if vistas[f.Tipo] {
			return nil, NewValidationError("fuentes", fmt.Sprintf("Fuente repetida: %s", f.Tipo))
		}
		vistas[f.Tipo] = true
		if f.Monto <= 0 {
			return nil, NewValidationError("fuentes", fmt.Sprintf("El monto de %s debe ser mayor que cero", f.Tipo))
		}
		fuentes = append(fuentes, models.FuenteFinanciera{
			Tipo:       f.Tipo,
			Monto:      f.Monto,
			URLSoporte: f.URLSoporte,
		})
	}

	diferencia := finanzas.DiferenciaPlan(vivienda.ValorFinal(), fuentes)
	if diferencia != 0 {
		return nil, NewValidationError("fuentes",
			fmt.Sprintf("El plan no cuadra con el valor de la vivienda: diferencia %.2f", diferencia))
	}

	return fuentes, nil
}
