package repository

import (
	"context"
	"errors"

	"github.com/rmoralesv/viviendas-api/internal/models"
	"gorm.io/gorm"
)

// ClienteRepository defines the interface for cliente data access
type ClienteRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Cliente, error)
	FindByIDWithDetails(ctx context.Context, id uint) (*models.Cliente, error)
	FindByCedula(ctx context.Context, cedula string) (*models.Cliente, error)
	FindByVivienda(ctx context.Context, viviendaID uint) (*models.Cliente, error)
	Create(ctx context.Context, cliente *models.Cliente) error
	Update(ctx context.Context, cliente *models.Cliente) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, query *ListQuery) ([]models.Cliente, int64, error)
	FindAll(ctx context.Context) ([]models.Cliente, error)
	ReplaceFuentes(ctx context.Context, clienteID uint, fuentes []models.FuenteFinanciera) error
	UpdateHito(ctx context.Context, hito *models.Hito) error
	GetStats(ctx context.Context) (*ClienteStats, error)
}

type clienteRepository struct {
	db *gorm.DB
}

// NewClienteRepository creates a new cliente repository
func NewClienteRepository(db *gorm.DB) ClienteRepository {
	return &clienteRepository{db: db}
}

func (r *clienteRepository) FindByID(ctx context.Context, id uint) (*models.Cliente, error) {
	var cliente models.Cliente
	err := r.db.WithContext(ctx).
		Preload("Hitos", func(db *gorm.DB) *gorm.DB {
			return db.Order("orden ASC")
		}).
		First(&cliente, id).Error
	if err != nil {
		return nil, err
	}
	return &cliente, nil
}

func (r *clienteRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.Cliente, error) {
	var cliente models.Cliente
	err := r.db.WithContext(ctx).
		Preload("Vivienda.Proyecto").
		Preload("Fuentes").
		Preload("Hitos", func(db *gorm.DB) *gorm.DB {
			return db.Order("orden ASC")
		}).
		Preload("Abonos", func(db *gorm.DB) *gorm.DB {
			return db.Order("fecha_pago ASC, consecutivo ASC")
		}).
		First(&cliente, id).Error
	if err != nil {
		return nil, err
	}
	return &cliente, nil
}

func (r *clienteRepository) FindByCedula(ctx context.Context, cedula string) (*models.Cliente, error) {
	var cliente models.Cliente
	err := r.db.WithContext(ctx).
		Where("cedula = ?", cedula).
		First(&cliente).Error
	if err != nil {
		return nil, err
	}
	return &cliente, nil
}

func (r *clienteRepository) FindByVivienda(ctx context.Context, viviendaID uint) (*models.Cliente, error) {
	var cliente models.Cliente
	err := r.db.WithContext(ctx).
		Where("vivienda_id = ?", viviendaID).
		First(&cliente).Error
	if err != nil {
		return nil, err
	}
	return &cliente, nil
}

// Create persists the cliente together with its fuentes and hitos in one
// transaction via GORM association writes
func (r *clienteRepository) Create(ctx context.Context, cliente *models.Cliente) error {
	if err := r.db.WithContext(ctx).Create(cliente).Error; err != nil {
		if isDuplicateKeyError(err, "idx_clientes_cedula") {
			return errors.New("Ya existe un cliente con esta cédula")
		}
		return err
	}
	return nil
}

func (r *clienteRepository) Update(ctx context.Context, cliente *models.Cliente) error {
	// Omit associations so stale preloaded slices never overwrite child rows
	return r.db.WithContext(ctx).
		Omit("Fuentes", "Hitos", "Abonos", "Vivienda").
		Save(cliente).Error
}

func (r *clienteRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cliente_id = ?", id).Delete(&models.FuenteFinanciera{}).Error; err != nil {
			return err
		}
		if err := tx.Where("cliente_id = ?", id).Delete(&models.Hito{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Cliente{}, id).Error
	})
}

func (r *clienteRepository) List(ctx context.Context, query *ListQuery) ([]models.Cliente, int64, error) {
	var clientes []models.Cliente
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Cliente{})

	if query.Filters["status"] != "" {
		db = db.Where("clientes.status = ?", query.Filters["status"])
	} else {
		db = db.Where("clientes.status <> ?", models.ClienteStatusInactivo)
	}

	if query.Filters["vivienda_id"] != "" {
		db = db.Where("clientes.vivienda_id = ?", query.Filters["vivienda_id"])
	}

	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Where("clientes.nombres ILIKE ? OR clientes.apellidos ILIKE ? OR clientes.cedula ILIKE ? OR clientes.correo ILIKE ? OR clientes.telefono ILIKE ?",
			search, search, search, search, search)
	}

	countDB := db.Session(&gorm.Session{})
	if err := countDB.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if query.SortBy != "" {
		order := query.SortBy
		if query.SortDir == "desc" {
			order += " DESC"
		}
		db = db.Order(order)
	} else {
		db = db.Order("clientes.created_at DESC")
	}

	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.
		Preload("Vivienda.Proyecto").
		Preload("Fuentes").
		Preload("Hitos", func(db *gorm.DB) *gorm.DB {
			return db.Order("orden ASC")
		}).
		Find(&clientes).Error

	return clientes, total, err
}

func (r *clienteRepository) FindAll(ctx context.Context) ([]models.Cliente, error) {
	var clientes []models.Cliente
	err := r.db.WithContext(ctx).
		Preload("Fuentes").
		Preload("Hitos", func(db *gorm.DB) *gorm.DB {
			return db.Order("orden ASC")
		}).
		Find(&clientes).Error
	return clientes, err
}

// ReplaceFuentes swaps the cliente's funding plan atomically
func (r *clienteRepository) ReplaceFuentes(ctx context.Context, clienteID uint, fuentes []models.FuenteFinanciera) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cliente_id = ?", clienteID).Delete(&models.FuenteFinanciera{}).Error; err != nil {
			return err
		}
		for i := range fuentes {
			fuentes[i].ID = 0
			fuentes[i].ClienteID = clienteID
		}
		if len(fuentes) == 0 {
			return nil
		}
		return tx.Create(&fuentes).Error
	})
}

func (r *clienteRepository) UpdateHito(ctx context.Context, hito *models.Hito) error {
	return r.db.WithContext(ctx).Save(hito).Error
}

// ClienteStats holds the count of clientes by status
type ClienteStats struct {
	Total       int64 `json:"total"`
	Activos     int64 `json:"activos"`
	EnRenuncia  int64 `json:"en_renuncia"`
	Renunciados int64 `json:"renunciados"`
	Inactivos   int64 `json:"inactivos"`
}

func (r *clienteRepository) GetStats(ctx context.Context) (*ClienteStats, error) {
	stats := &ClienteStats{}

	rows, err := r.db.WithContext(ctx).
		Model(&models.Cliente{}).
		Select("status, count(*) as count").
		Group("status").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var total int64
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		total += count
		switch status {
		case models.ClienteStatusActivo:
			stats.Activos = count
		case models.ClienteStatusEnRenuncia:
			stats.EnRenuncia = count
		case models.ClienteStatusRenunciado:
			stats.Renunciados = count
		case models.ClienteStatusInactivo:
			stats.Inactivos = count
		}
	}
	stats.Total = total

	return stats, nil
}
