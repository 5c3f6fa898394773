package repository

import (
	"context"

	"github.com/rmoralesv/viviendas-api/internal/models"
	"gorm.io/gorm"
)

// RenunciaRepository defines the interface for renuncia data access
type RenunciaRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Renuncia, error)
	FindByCliente(ctx context.Context, clienteID uint) ([]models.Renuncia, error)
	HasPendienteByCliente(ctx context.Context, clienteID uint) (bool, error)
	Create(ctx context.Context, renuncia *models.Renuncia) error
	Update(ctx context.Context, renuncia *models.Renuncia) error
	List(ctx context.Context, query *ListQuery) ([]models.Renuncia, int64, error)
	FindAll(ctx context.Context) ([]models.Renuncia, error)
	GetStats(ctx context.Context) (*RenunciaStats, error)
}

type renunciaRepository struct {
	db *gorm.DB
}

// NewRenunciaRepository creates a new renuncia repository
func NewRenunciaRepository(db *gorm.DB) RenunciaRepository {
	return &renunciaRepository{db: db}
}

func (r *renunciaRepository) FindByID(ctx context.Context, id uint) (*models.Renuncia, error) {
	var renuncia models.Renuncia
	err := r.db.WithContext(ctx).
		Preload("Cliente").
		Preload("Vivienda.Proyecto").
		First(&renuncia, id).Error
	if err != nil {
		return nil, err
	}
	return &renuncia, nil
}

func (r *renunciaRepository) FindByCliente(ctx context.Context, clienteID uint) ([]models.Renuncia, error) {
	var renuncias []models.Renuncia
	err := r.db.WithContext(ctx).
		Where("cliente_id = ?", clienteID).
		Order("fecha_renuncia DESC").
		Find(&renuncias).Error
	return renuncias, err
}

func (r *renunciaRepository) HasPendienteByCliente(ctx context.Context, clienteID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Renuncia{}).
		Where("cliente_id = ? AND estado_devolucion = ?", clienteID, models.RenunciaStatusPendiente).
		Count(&count).Error
	return count > 0, err
}

func (r *renunciaRepository) Create(ctx context.Context, renuncia *models.Renuncia) error {
	return r.db.WithContext(ctx).Create(renuncia).Error
}

func (r *renunciaRepository) Update(ctx context.Context, renuncia *models.Renuncia) error {
	return r.db.WithContext(ctx).Save(renuncia).Error
}

func (r *renunciaRepository) List(ctx context.Context, query *ListQuery) ([]models.Renuncia, int64, error) {
	var renuncias []models.Renuncia
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Renuncia{})

	if query.Filters["estado_devolucion"] != "" {
		db = db.Where("renuncias.estado_devolucion = ?", query.Filters["estado_devolucion"])
	}

	if val := query.Filters["start_date"]; val != "" {
		db = db.Where("renuncias.fecha_renuncia >= ?", val)
	}
	if val := query.Filters["end_date"]; val != "" {
		db = db.Where("renuncias.fecha_renuncia <= ?", val)
	}

	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Where("renuncias.cliente_nombre ILIKE ? OR renuncias.vivienda_info ILIKE ? OR renuncias.motivo ILIKE ? OR renuncias.guid ILIKE ?",
			search, search, search, search)
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
		db = db.Order("renuncias.fecha_renuncia DESC")
	}

	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.Find(&renuncias).Error
	return renuncias, total, err
}

func (r *renunciaRepository) FindAll(ctx context.Context) ([]models.Renuncia, error) {
	var renuncias []models.Renuncia
	err := r.db.WithContext(ctx).Find(&renuncias).Error
	return renuncias, err
}

// RenunciaStats holds the refund totals by state
type RenunciaStats struct {
	Total              int64   `json:"total"`
	Pendientes         int64   `json:"pendientes"`
	Pagadas            int64   `json:"pagadas"`
	Canceladas         int64   `json:"canceladas"`
	MontoPorDevolver   float64 `json:"monto_por_devolver"`
	MontoDevuelto      float64 `json:"monto_devuelto"`
	PenalidadesTotales float64 `json:"penalidades_totales"`
}

func (r *renunciaRepository) GetStats(ctx context.Context) (*RenunciaStats, error) {
	stats := &RenunciaStats{}

	rows, err := r.db.WithContext(ctx).
		Model(&models.Renuncia{}).
		Select("estado_devolucion, count(*) as count, COALESCE(SUM(total_abonado_para_devolucion), 0) as monto").
		Group("estado_devolucion").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var total int64
	for rows.Next() {
		var estado string
		var count int64
		var monto float64
		if err := rows.Scan(&estado, &count, &monto); err != nil {
			return nil, err
		}
		total += count
		switch estado {
		case models.RenunciaStatusPendiente:
			stats.Pendientes = count
			stats.MontoPorDevolver = monto
		case models.RenunciaStatusPagada:
			stats.Pagadas = count
			stats.MontoDevuelto = monto
		case models.RenunciaStatusCancelada:
			stats.Canceladas = count
		}
	}
	stats.Total = total

	err = r.db.WithContext(ctx).
		Model(&models.Renuncia{}).
		Select("COALESCE(SUM(penalidad_monto), 0)").
		Where("estado_devolucion <> ?", models.RenunciaStatusCancelada).
		Scan(&stats.PenalidadesTotales).Error
	if err != nil {
		return nil, err
	}

	return stats, nil
}
