package repository

import (
	"context"
	"strings"

	"github.com/rmoralesv/viviendas-api/internal/models"
	"gorm.io/gorm"
)

// ViviendaRepository defines the interface for vivienda data access
type ViviendaRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Vivienda, error)
	FindByIDWithDetails(ctx context.Context, id uint) (*models.Vivienda, error)
	FindByProyecto(ctx context.Context, proyectoID uint) ([]models.Vivienda, error)
	FindDisponibles(ctx context.Context) ([]models.Vivienda, error)
	Create(ctx context.Context, vivienda *models.Vivienda) error
	Update(ctx context.Context, vivienda *models.Vivienda) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, query *ListQuery) ([]models.Vivienda, int64, error)
	FindAll(ctx context.Context) ([]models.Vivienda, error)
	UpdateBalances(ctx context.Context, id uint, totalAbonado, saldoPendiente float64) error
	CountAbonosHistoricos(ctx context.Context, id uint) (int64, error)
	GetStats(ctx context.Context) (*ViviendaStats, error)
}

type viviendaRepository struct {
	db *gorm.DB
}

// NewViviendaRepository creates a new vivienda repository
func NewViviendaRepository(db *gorm.DB) ViviendaRepository {
	return &viviendaRepository{db: db}
}

func (r *viviendaRepository) FindByID(ctx context.Context, id uint) (*models.Vivienda, error) {
	var vivienda models.Vivienda
	err := r.db.WithContext(ctx).First(&vivienda, id).Error
	if err != nil {
		return nil, err
	}
	return &vivienda, nil
}

func (r *viviendaRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.Vivienda, error) {
	var vivienda models.Vivienda
	err := r.db.WithContext(ctx).
		Joins("Proyecto").
		Joins("Cliente").
		Preload("Abonos", func(db *gorm.DB) *gorm.DB {
			return db.Order("fecha_pago ASC, consecutivo ASC")
		}).
		First(&vivienda, id).Error
	if err != nil {
		return nil, err
	}
	return &vivienda, nil
}

func (r *viviendaRepository) FindByProyecto(ctx context.Context, proyectoID uint) ([]models.Vivienda, error) {
	var viviendas []models.Vivienda
	err := r.db.WithContext(ctx).
		Where("proyecto_id = ?", proyectoID).
		Order("manzana ASC, numero_casa ASC").
		Find(&viviendas).Error
	return viviendas, err
}

func (r *viviendaRepository) FindDisponibles(ctx context.Context) ([]models.Vivienda, error) {
	var viviendas []models.Vivienda
	err := r.db.WithContext(ctx).
		Where("status = ?", models.ViviendaStatusDisponible).
		Preload("Proyecto").
		Order("manzana ASC, numero_casa ASC").
		Find(&viviendas).Error
	return viviendas, err
}

func (r *viviendaRepository) Create(ctx context.Context, vivienda *models.Vivienda) error {
	return r.db.WithContext(ctx).Create(vivienda).Error
}

func (r *viviendaRepository) Update(ctx context.Context, vivienda *models.Vivienda) error {
	return r.db.WithContext(ctx).Save(vivienda).Error
}

func (r *viviendaRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Vivienda{}, id).Error
}

func (r *viviendaRepository) List(ctx context.Context, query *ListQuery) ([]models.Vivienda, int64, error) {
	var viviendas []models.Vivienda
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Vivienda{})

	// Archivadas only show up when asked for explicitly
	statusFilter := query.Filters["status"]
	if statusFilter != "" {
		if strings.Contains(statusFilter, ",") {
			statuses := strings.Split(statusFilter, ",")
			for i, s := range statuses {
				statuses[i] = strings.TrimSpace(s)
			}
			db = db.Where("viviendas.status IN ?", statuses)
		} else if statusFilter == "pagada" {
			// virtual status: asignada with nothing left to pay
			db = db.Where("viviendas.status = ? AND viviendas.saldo_pendiente <= 0", models.ViviendaStatusAsignada)
		} else {
			db = db.Where("viviendas.status = ?", statusFilter)
		}
	} else {
		db = db.Where("viviendas.status <> ?", models.ViviendaStatusArchivada)
	}

	if query.Filters["proyecto_id"] != "" {
		db = db.Where("viviendas.proyecto_id = ?", query.Filters["proyecto_id"])
	}

	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Joins("LEFT JOIN proyectos ON proyectos.id = viviendas.proyecto_id").
			Joins("LEFT JOIN clientes ON clientes.id = viviendas.cliente_id").
			Where("viviendas.manzana ILIKE ? OR CAST(viviendas.numero_casa AS TEXT) ILIKE ? OR proyectos.nombre ILIKE ? OR clientes.nombres ILIKE ? OR clientes.apellidos ILIKE ?",
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
		db = db.Order("viviendas.manzana ASC, viviendas.numero_casa ASC")
	}

	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.
		Select("viviendas.*").
		Preload("Proyecto").
		Preload("Cliente").
		Find(&viviendas).Error

	return viviendas, total, err
}

func (r *viviendaRepository) FindAll(ctx context.Context) ([]models.Vivienda, error) {
	var viviendas []models.Vivienda
	err := r.db.WithContext(ctx).Preload("Proyecto").Find(&viviendas).Error
	return viviendas, err
}

// UpdateBalances writes the cached balance columns without touching the rest
// of the row
func (r *viviendaRepository) UpdateBalances(ctx context.Context, id uint, totalAbonado, saldoPendiente float64) error {
	return r.db.WithContext(ctx).
		Model(&models.Vivienda{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_abonado":   totalAbonado,
			"saldo_pendiente": saldoPendiente,
		}).Error
}

// CountAbonosHistoricos counts abonos in any state that ever touched the
// vivienda. A unit with history cannot be hard deleted.
func (r *viviendaRepository) CountAbonosHistoricos(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Abono{}).
		Where("vivienda_id = ?", id).
		Count(&count).Error
	return count, err
}

// ViviendaStats holds the count of viviendas by status
type ViviendaStats struct {
	Total       int64 `json:"total"`
	Disponibles int64 `json:"disponibles"`
	Asignadas   int64 `json:"asignadas"`
	Pagadas     int64 `json:"pagadas"`
	Archivadas  int64 `json:"archivadas"`
}

func (r *viviendaRepository) GetStats(ctx context.Context) (*ViviendaStats, error) {
	stats := &ViviendaStats{}

	rows, err := r.db.WithContext(ctx).
		Model(&models.Vivienda{}).
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
		case models.ViviendaStatusDisponible:
			stats.Disponibles = count
		case models.ViviendaStatusAsignada:
			stats.Asignadas = count
		case models.ViviendaStatusArchivada:
			stats.Archivadas = count
		}
	}
	stats.Total = total

	err = r.db.WithContext(ctx).
		Model(&models.Vivienda{}).
		Where("status = ? AND saldo_pendiente <= 0", models.ViviendaStatusAsignada).
		Count(&stats.Pagadas).Error
	if err != nil {
		return nil, err
	}

	return stats, nil
}
