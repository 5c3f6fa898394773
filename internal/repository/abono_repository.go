package repository

import (
	"context"
	"strings"
	"time"

	"github.com/rmoralesv/viviendas-api/internal/models"
	"gorm.io/gorm"
)

// AbonoRepository defines the interface for abono data access
type AbonoRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Abono, error)
	FindByCliente(ctx context.Context, clienteID uint) ([]models.Abono, error)
	FindByVivienda(ctx context.Context, viviendaID uint) ([]models.Abono, error)
	FindCicloActivo(ctx context.Context, clienteID, viviendaID uint) ([]models.Abono, error)
	Create(ctx context.Context, abono *models.Abono) error
	Update(ctx context.Context, abono *models.Abono) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, query *ListQuery) ([]models.Abono, int64, error)
	FindAll(ctx context.Context) ([]models.Abono, error)
	NextConsecutivo(ctx context.Context) (int, error)
	SumActivosPorFuente(ctx context.Context, clienteID uint, fuente string, excludeID uint) (float64, error)
	ArchivarCiclo(ctx context.Context, clienteID, viviendaID, renunciaID uint) (int64, error)
	ReactivarCiclo(ctx context.Context, renunciaID uint) (int64, error)
	GetMonthlyStats(ctx context.Context) (*AbonoStats, error)
}

type abonoRepository struct {
	db *gorm.DB
}

// NewAbonoRepository creates a new abono repository
func NewAbonoRepository(db *gorm.DB) AbonoRepository {
	return &abonoRepository{db: db}
}

func (r *abonoRepository) FindByID(ctx context.Context, id uint) (*models.Abono, error) {
	var abono models.Abono
	err := r.db.WithContext(ctx).
		Preload("Cliente").
		Preload("Vivienda.Proyecto").
		First(&abono, id).Error
	if err != nil {
		return nil, err
	}
	return &abono, nil
}

func (r *abonoRepository) FindByCliente(ctx context.Context, clienteID uint) ([]models.Abono, error) {
	var abonos []models.Abono
	err := r.db.WithContext(ctx).
		Where("cliente_id = ?", clienteID).
		Order("fecha_pago ASC, consecutivo ASC").
		Find(&abonos).Error
	return abonos, err
}

func (r *abonoRepository) FindByVivienda(ctx context.Context, viviendaID uint) ([]models.Abono, error) {
	var abonos []models.Abono
	err := r.db.WithContext(ctx).
		Where("vivienda_id = ?", viviendaID).
		Order("fecha_pago ASC, consecutivo ASC").
		Find(&abonos).Error
	return abonos, err
}

// FindCicloActivo returns the non-archived abonos of the current purchase
// cycle, voided ones included so the balance math can skip them itself
func (r *abonoRepository) FindCicloActivo(ctx context.Context, clienteID, viviendaID uint) ([]models.Abono, error) {
	var abonos []models.Abono
	err := r.db.WithContext(ctx).
		Where("cliente_id = ? AND vivienda_id = ? AND estado_proceso <> ?",
			clienteID, viviendaID, models.AbonoStatusArchivado).
		Order("fecha_pago ASC, consecutivo ASC").
		Find(&abonos).Error
	return abonos, err
}

func (r *abonoRepository) Create(ctx context.Context, abono *models.Abono) error {
	return r.db.WithContext(ctx).Create(abono).Error
}

func (r *abonoRepository) Update(ctx context.Context, abono *models.Abono) error {
	return r.db.WithContext(ctx).Save(abono).Error
}

func (r *abonoRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Abono{}, id).Error
}

func (r *abonoRepository) List(ctx context.Context, query *ListQuery) ([]models.Abono, int64, error) {
	var abonos []models.Abono
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Abono{})

	statusFilter := query.Filters["estado_proceso"]
	if statusFilter != "" {
		if strings.Contains(statusFilter, ",") {
			statuses := strings.Split(statusFilter, ",")
			for i, s := range statuses {
				statuses[i] = strings.TrimSpace(s)
			}
			db = db.Where("abonos.estado_proceso IN ?", statuses)
		} else {
			db = db.Where("abonos.estado_proceso = ?", statusFilter)
		}
	}

	if query.Filters["cliente_id"] != "" {
		db = db.Where("abonos.cliente_id = ?", query.Filters["cliente_id"])
	}
	if query.Filters["vivienda_id"] != "" {
		db = db.Where("abonos.vivienda_id = ?", query.Filters["vivienda_id"])
	}
	if query.Filters["fuente"] != "" {
		db = db.Where("abonos.fuente = ?", query.Filters["fuente"])
	}

	if val := query.Filters["start_date"]; val != "" {
		db = db.Where("abonos.fecha_pago >= ?", val)
	}
	if val := query.Filters["end_date"]; val != "" {
		if len(val) == 10 { // YYYY-MM-DD
			val += " 23:59:59"
		}
		db = db.Where("abonos.fecha_pago <= ?", val)
	}

	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Joins("LEFT JOIN clientes ON clientes.id = abonos.cliente_id").
			Joins("LEFT JOIN viviendas ON viviendas.id = abonos.vivienda_id").
			Where("clientes.nombres ILIKE ? OR clientes.apellidos ILIKE ? OR clientes.cedula ILIKE ? OR CAST(abonos.consecutivo AS TEXT) ILIKE ? OR viviendas.manzana ILIKE ?",
				search, search, search, search, search)
	}

	countDB := db.Session(&gorm.Session{})
	if err := countDB.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if query.SortBy != "" {
		field := query.SortBy
		switch field {
		case "fecha_pago", "consecutivo", "monto", "created_at":
			field = "abonos." + field
		}
		order := field
		if strings.ToLower(query.SortDir) == "desc" {
			order += " DESC"
		} else {
			order += " ASC"
		}
		db = db.Order(order)
	} else {
		db = db.Order("abonos.fecha_pago DESC, abonos.consecutivo DESC")
	}

	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.
		Select("abonos.*").
		Preload("Cliente").
		Preload("Vivienda").
		Find(&abonos).Error

	return abonos, total, err
}

func (r *abonoRepository) FindAll(ctx context.Context) ([]models.Abono, error) {
	var abonos []models.Abono
	err := r.db.WithContext(ctx).
		Preload("Cliente").
		Preload("Vivienda").
		Find(&abonos).Error
	return abonos, err
}

// NextConsecutivo returns max(consecutivo)+1 over every abono regardless of
// state, so a number is never reissued after a void or an archive
func (r *abonoRepository) NextConsecutivo(ctx context.Context) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Model(&models.Abono{}).
		Select("COALESCE(MAX(consecutivo), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// SumActivosPorFuente sums the cliente's active abonos for one funding
// source. excludeID leaves out the abono being edited so its new monto can
// be validated against the remaining room.
func (r *abonoRepository) SumActivosPorFuente(ctx context.Context, clienteID uint, fuente string, excludeID uint) (float64, error) {
	var total float64
	db := r.db.WithContext(ctx).
		Model(&models.Abono{}).
		Select("COALESCE(SUM(monto), 0)").
		Where("cliente_id = ? AND fuente = ? AND estado_proceso = ?", clienteID, fuente, models.AbonoStatusActivo)
	if excludeID > 0 {
		db = db.Where("id <> ?", excludeID)
	}
	err := db.Scan(&total).Error
	return total, err
}

// ArchivarCiclo archives every active abono of the cliente/vivienda pair and
// tags them with the renuncia. Returns the number of rows touched.
func (r *abonoRepository) ArchivarCiclo(ctx context.Context, clienteID, viviendaID, renunciaID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Abono{}).
		Where("cliente_id = ? AND vivienda_id = ? AND estado_proceso = ?",
			clienteID, viviendaID, models.AbonoStatusActivo).
		Updates(map[string]interface{}{
			"estado_proceso": models.AbonoStatusArchivado,
			"renuncia_id":    renunciaID,
		})
	return result.RowsAffected, result.Error
}

// ReactivarCiclo restores exactly the abonos a cancelled renuncia archived
func (r *abonoRepository) ReactivarCiclo(ctx context.Context, renunciaID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Abono{}).
		Where("renuncia_id = ? AND estado_proceso = ?", renunciaID, models.AbonoStatusArchivado).
		Updates(map[string]interface{}{
			"estado_proceso": models.AbonoStatusActivo,
			"renuncia_id":    nil,
		})
	return result.RowsAffected, result.Error
}

// AbonoStats holds collection statistics for the dashboard
type AbonoStats struct {
	RecaudadoEsteMes float64 `json:"recaudado_este_mes"`
	RecaudadoTotal   float64 `json:"recaudado_total"`
	AbonosEsteMes    int64   `json:"abonos_este_mes"`
}

func (r *abonoRepository) GetMonthlyStats(ctx context.Context) (*AbonoStats, error) {
	stats := &AbonoStats{}
	now := time.Now()

	err := r.db.WithContext(ctx).
		Model(&models.Abono{}).
		Select("COALESCE(SUM(monto), 0)").
		Where("estado_proceso = ? AND metodo_pago <> ? AND EXTRACT(MONTH FROM fecha_pago) = ? AND EXTRACT(YEAR FROM fecha_pago) = ?",
			models.AbonoStatusActivo, models.MetodoPagoCondonacion, int(now.Month()), now.Year()).
		Scan(&stats.RecaudadoEsteMes).Error
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).
		Model(&models.Abono{}).
		Select("COALESCE(SUM(monto), 0)").
		Where("estado_proceso = ? AND metodo_pago <> ?", models.AbonoStatusActivo, models.MetodoPagoCondonacion).
		Scan(&stats.RecaudadoTotal).Error
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).
		Model(&models.Abono{}).
		Where("estado_proceso = ? AND EXTRACT(MONTH FROM fecha_pago) = ? AND EXTRACT(YEAR FROM fecha_pago) = ?",
			models.AbonoStatusActivo, int(now.Month()), now.Year()).
		Count(&stats.AbonosEsteMes).Error
	if err != nil {
		return nil, err
	}

	return stats, nil
}
