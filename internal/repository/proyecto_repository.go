package repository

import (
	"context"

	"github.com/rmoralesv/viviendas-api/internal/models"
	"gorm.io/gorm"
)

// ProyectoRepository defines the interface for proyecto data access
type ProyectoRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Proyecto, error)
	Create(ctx context.Context, proyecto *models.Proyecto) error
	Update(ctx context.Context, proyecto *models.Proyecto) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, query *ListQuery) ([]models.Proyecto, int64, error)
	FindAll(ctx context.Context) ([]models.Proyecto, error)
}

type proyectoRepository struct {
	db *gorm.DB
}

func NewProyectoRepository(db *gorm.DB) ProyectoRepository {
	return &proyectoRepository{db: db}
}

func (r *proyectoRepository) FindByID(ctx context.Context, id uint) (*models.Proyecto, error) {
	var proyecto models.Proyecto
	err := r.db.WithContext(ctx).Preload("Viviendas").First(&proyecto, id).Error
	if err != nil {
		return nil, err
	}
	return &proyecto, nil
}

func (r *proyectoRepository) Create(ctx context.Context, proyecto *models.Proyecto) error {
	return r.db.WithContext(ctx).Create(proyecto).Error
}

func (r *proyectoRepository) Update(ctx context.Context, proyecto *models.Proyecto) error {
	return r.db.WithContext(ctx).Save(proyecto).Error
}

func (r *proyectoRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Proyecto{}, id).Error
}

func (r *proyectoRepository) List(ctx context.Context, query *ListQuery) ([]models.Proyecto, int64, error) {
	var proyectos []models.Proyecto
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Proyecto{})

	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Where("nombre ILIKE ? OR ubicacion ILIKE ? OR guid ILIKE ?", search, search, search)
	}

	if val, ok := query.Filters["guid"]; ok && val != "" {
		db = db.Where("guid = ?", val)
	}

	db.Count(&total)

	if query.SortBy != "" {
		order := query.SortBy
		if query.SortDir == "desc" {
			order += " DESC"
		}
		db = db.Order(order)
	} else {
		db = db.Order("created_at DESC")
	}

	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.Preload("Viviendas").Find(&proyectos).Error
	return proyectos, total, err
}

func (r *proyectoRepository) FindAll(ctx context.Context) ([]models.Proyecto, error) {
	var proyectos []models.Proyecto
	err := r.db.WithContext(ctx).Find(&proyectos).Error
	return proyectos, err
}
