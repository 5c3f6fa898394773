package services

import (
	"context"
	"fmt"

	"github.com/rmoralesv/viviendas-api/internal/datasync"
	"github.com/rmoralesv/viviendas-api/internal/models"
	"github.com/rmoralesv/viviendas-api/internal/repository"
	"github.com/rmoralesv/viviendas-api/internal/statemachine"
)

// ViviendaInput carries the editable fields of a vivienda
type ViviendaInput struct {
	ProyectoID       uint    `json:"proyecto_id" binding:"required"`
	Manzana          string  `json:"manzana" binding:"required"`
	NumeroCasa       int     `json:"numero_casa" binding:"required"`
	ValorBase        float64 `json:"valor_base" binding:"required"`
	RecargoEsquinera float64 `json:"recargo_esquinera"`
	GastosNotariales float64 `json:"gastos_notariales"`
	DescuentoMonto   float64 `json:"descuento_monto"`
}

type ViviendaService struct {
	repo         repository.ViviendaRepository
	proyectoRepo repository.ProyectoRepository
	clienteRepo  repository.ClienteRepository
	auditSvc     *AuditService
	sync         *datasync.Invalidator
}

func NewViviendaService(
	repo repository.ViviendaRepository,
	proyectoRepo repository.ProyectoRepository,
	clienteRepo repository.ClienteRepository,
	auditSvc *AuditService,
	sync *datasync.Invalidator,
) *ViviendaService {
	return &ViviendaService{
		repo:         repo,
		proyectoRepo: proyectoRepo,
		clienteRepo:  clienteRepo,
		auditSvc:     auditSvc,
		sync:         sync,
	}
}

func (s *ViviendaService) FindByID(ctx context.Context, id uint) (*models.Vivienda, error) {
	return s.repo.FindByIDWithDetails(ctx, id)
}

func (s *ViviendaService) List(ctx context.Context, query *repository.ListQuery) ([]models.Vivienda, int64, error) {
	return s.repo.List(ctx, query)
}

func (s *ViviendaService) FindDisponibles(ctx context.Context) ([]models.Vivienda, error) {
	return s.repo.FindDisponibles(ctx)
}

func (s *ViviendaService) GetStats(ctx context.Context) (*repository.ViviendaStats, error) {
	return s.repo.GetStats(ctx)
}

func (s *ViviendaService) Create(ctx context.Context, input *ViviendaInput, actorID uint, ip, userAgent string) (*models.Vivienda, error) {
	if err := s.validar(input); err != nil {
		return nil, err
	}

	if _, err := s.proyectoRepo.FindByID(ctx, input.ProyectoID); err != nil {
		return nil, NewValidationError("proyecto_id", "El proyecto no existe")
	}

	vivienda := &models.Vivienda{
		ProyectoID:       input.ProyectoID,
		Manzana:          input.Manzana,
		NumeroCasa:       input.NumeroCasa,
		ValorBase:        input.ValorBase,
		RecargoEsquinera: input.RecargoEsquinera,
		GastosNotariales: input.GastosNotariales,
		DescuentoMonto:   input.DescuentoMonto,
		Status:           models.ViviendaStatusDisponible,
	}
	vivienda.SaldoPendiente = vivienda.ValorFinal()

	if err := s.repo.Create(ctx, vivienda); err != nil {
		return nil, err
	}

	if s.sync != nil {
		s.sync.ViviendaMutada()
	}

	s.auditSvc.Log(ctx, actorID, "CREATE", "Vivienda", vivienda.ID,
		fmt.Sprintf("Vivienda %s creada, valor final %.2f", vivienda.Ubicacion(), vivienda.ValorFinal()),
		ip, userAgent)

	return vivienda, nil
}

// Update edits pricing and location. Price changes on an assigned unit shift
// the saldo, so balances are rebuilt from the current total.
func (s *ViviendaService) Update(ctx context.Context, id uint, input *ViviendaInput, actorID uint, ip, userAgent string) (*models.Vivienda, error) {
	if err := s.validar(input); err != nil {
		return nil, err
	}

	vivienda, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}

	if vivienda.Status == models.ViviendaStatusAsignada && vivienda.ClienteID != nil {
		cliente, err := s.clienteRepo.FindByID(ctx, *vivienda.ClienteID)
		if err == nil && cliente.HitoCompletado(models.HitoFacturaVenta) {
			return nil, ErrProcesoFinalizado
		}
	}

	vivienda.ProyectoID = input.ProyectoID
	vivienda.Manzana = input.Manzana
	vivienda.NumeroCasa = input.NumeroCasa
	vivienda.ValorBase = input.ValorBase
	vivienda.RecargoEsquinera = input.RecargoEsquinera
	vivienda.GastosNotariales = input.GastosNotariales
	vivienda.DescuentoMonto = input.DescuentoMonto
	vivienda.SaldoPendiente = vivienda.ValorFinal() - vivienda.TotalAbonado

	if err := s.repo.Update(ctx, vivienda); err != nil {
		return nil, err
	}

	if s.sync != nil {
		s.sync.ViviendaMutada()
	}

	s.auditSvc.Log(ctx, actorID, "UPDATE", "Vivienda", vivienda.ID,
		fmt.Sprintf("Vivienda %s actualizada, valor final %.2f", vivienda.Ubicacion(), vivienda.ValorFinal()),
		ip, userAgent)

	return vivienda, nil
}

// Archivar hides a disponible unit from listings and pickers
func (s *ViviendaService) Archivar(ctx context.Context, id uint, actorID uint, ip, userAgent string) (*models.Vivienda, error) {
	vivienda, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}

	fsm := statemachine.NewViviendaFSM(vivienda)
	if err := fsm.Archivar(ctx); err != nil {
		return nil, ErrInvalidState
	}

	if err := s.repo.Update(ctx, vivienda); err != nil {
		return nil, err
	}

	if s.sync != nil {
		s.sync.ViviendaMutada()
	}

	s.auditSvc.Log(ctx, actorID, "ARCHIVAR", "Vivienda", vivienda.ID,
		fmt.Sprintf("Vivienda %s archivada", vivienda.Ubicacion()), ip, userAgent)

	return vivienda, nil
}

// Restaurar brings an archived unit back to disponible
func (s *ViviendaService) Restaurar(ctx context.Context, id uint, actorID uint, ip, userAgent string) (*models.Vivienda, error) {
	vivienda, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}

	fsm := statemachine.NewViviendaFSM(vivienda)
	if err := fsm.Restaurar(ctx); err != nil {
		return nil, ErrInvalidState
	}

	if err := s.repo.Update(ctx, vivienda); err != nil {
		return nil, err
	}

	if s.sync != nil {
		s.sync.ViviendaMutada()
	}

	s.auditSvc.Log(ctx, actorID, "RESTAURAR", "Vivienda", vivienda.ID,
		fmt.Sprintf("Vivienda %s restaurada", vivienda.Ubicacion()), ip, userAgent)

	return vivienda, nil
}

// Delete removes a vivienda permanently. Units that are assigned or ever
// received an abono cannot be deleted, only archived.
func (s *ViviendaService) Delete(ctx context.Context, id uint, actorID uint, ip, userAgent string) error {
	vivienda, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}

	if vivienda.ClienteID != nil || vivienda.Status == models.ViviendaStatusAsignada {
		return ErrInvalidState
	}

	historial, err := s.repo.CountAbonosHistoricos(ctx, id)
	if err != nil {
		return err
	}
	if historial > 0 {
		return ErrTieneHistorial
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if s.sync != nil {
		s.sync.ViviendaMutada()
	}

	s.auditSvc.Log(ctx, actorID, "DELETE", "Vivienda", id,
		fmt.Sprintf("Vivienda %s eliminada", vivienda.Ubicacion()), ip, userAgent)

	return nil
}

func (s *ViviendaService) validar(input *ViviendaInput) error {
	if input.ValorBase <= 0 {
		return NewValidationError("valor_base", "El valor base debe ser mayor que cero")
	}
	if input.RecargoEsquinera < 0 || input.GastosNotariales < 0 || input.DescuentoMonto < 0 {
		return NewValidationError("descuento_monto", "Los recargos y descuentos no pueden ser negativos")
	}
	valorFinal := input.ValorBase + input.RecargoEsquinera + input.GastosNotariales - input.DescuentoMonto
	if valorFinal <= 0 {
		return NewValidationError("descuento_monto", "El descuento no puede dejar el valor final en cero o negativo")
	}
	if input.Manzana == "" || input.NumeroCasa <= 0 {
		return NewValidationError("manzana", "Manzana y número de casa son obligatorios")
	}
	return nil
}
