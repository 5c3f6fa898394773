package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rmoralesv/viviendas-api/internal/datasync"
	"github.com/rmoralesv/viviendas-api/internal/models"
	"github.com/rmoralesv/viviendas-api/internal/repository"
)

// ProyectoInput carries the editable fields of a proyecto
type ProyectoInput struct {
	Nombre      string `json:"nombre" binding:"required"`
	Ubicacion   string `json:"ubicacion"`
	Descripcion string `json:"descripcion"`
}

type ProyectoService struct {
	repo         repository.ProyectoRepository
	viviendaRepo repository.ViviendaRepository
	auditSvc     *AuditService
	sync         *datasync.Invalidator
}

func NewProyectoService(repo repository.ProyectoRepository, viviendaRepo repository.ViviendaRepository, auditSvc *AuditService, sync *datasync.Invalidator) *ProyectoService {
	return &ProyectoService{repo: repo, viviendaRepo: viviendaRepo, auditSvc: auditSvc, sync: sync}
}

func (s *ProyectoService) FindByID(ctx context.Context, id uint) (*models.Proyecto, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ProyectoService) List(ctx context.Context, query *repository.ListQuery) ([]models.Proyecto, int64, error) {
	return s.repo.List(ctx, query)
}

func (s *ProyectoService) FindAll(ctx context.Context) ([]models.Proyecto, error) {
	return s.repo.FindAll(ctx)
}

func (s *ProyectoService) Create(ctx context.Context, input *ProyectoInput, actorID uint, ip, userAgent string) (*models.Proyecto, error) {
	proyecto := &models.Proyecto{
		Nombre:      input.Nombre,
		Ubicacion:   input.Ubicacion,
		Descripcion: input.Descripcion,
		GUID:        uuid.NewString(),
	}

	if err := s.repo.Create(ctx, proyecto); err != nil {
		return nil, err
	}

	if s.sync != nil {
		s.sync.ProyectoMutado()
	}

	s.auditSvc.Log(ctx, actorID, "CREATE", "Proyecto", proyecto.ID,
		fmt.Sprintf("Proyecto %s creado", proyecto.Nombre), ip, userAgent)

	return proyecto, nil
}

func (s *ProyectoService) Update(ctx context.Context, id uint, input *ProyectoInput, actorID uint, ip, userAgent string) (*models.Proyecto, error) {
	proyecto, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}

	proyecto.Nombre = input.Nombre
	proyecto.Ubicacion = input.Ubicacion
	proyecto.Descripcion = input.Descripcion

	if err := s.repo.Update(ctx, proyecto); err != nil {
		return nil, err
	}

	if s.sync != nil {
		s.sync.ProyectoMutado()
	}

	s.auditSvc.Log(ctx, actorID, "UPDATE", "Proyecto", proyecto.ID,
		fmt.Sprintf("Proyecto %s actualizado", proyecto.Nombre), ip, userAgent)

	return proyecto, nil
}

// Delete removes a proyecto without viviendas
func (s *ProyectoService) Delete(ctx context.Context, id uint, actorID uint, ip, userAgent string) error {
	proyecto, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}

	viviendas, err := s.viviendaRepo.FindByProyecto(ctx, id)
	if err != nil {
		return err
	}
	if len(viviendas) > 0 {
		return ErrTieneHistorial
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if s.sync != nil {
		s.sync.ProyectoMutado()
	}

	s.auditSvc.Log(ctx, actorID, "DELETE", "Proyecto", id,
		fmt.Sprintf("Proyecto %s eliminado", proyecto.Nombre), ip, userAgent)

	return nil
}
