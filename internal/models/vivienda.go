package models

import (
	"fmt"
	"time"
)

// Vivienda represents a housing unit within a proyecto
type Vivienda struct {
	ID               uint    `gorm:"primaryKey" json:"id"`
	ProyectoID       uint    `gorm:"not null;index" json:"proyecto_id"`
	Manzana          string  `gorm:"not null" json:"manzana"`
	NumeroCasa       int     `gorm:"not null" json:"numero_casa"`
	ValorBase        float64 `gorm:"type:decimal(15,2);not null" json:"valor_base"`
	RecargoEsquinera float64 `gorm:"type:decimal(15,2);default:0" json:"recargo_esquinera"`
	GastosNotariales float64 `gorm:"type:decimal(15,2);default:0" json:"gastos_notariales"`
	DescuentoMonto   float64 `gorm:"type:decimal(15,2);default:0" json:"descuento_monto"`
	// TotalAbonado and SaldoPendiente are cached derivations, recomputed
	// from the active abonos on every abono transition.
	TotalAbonado   float64   `gorm:"type:decimal(15,2);default:0" json:"total_abonado"`
	SaldoPendiente float64   `gorm:"type:decimal(15,2);default:0" json:"saldo_pendiente"`
	Status         string    `gorm:"default:disponible;index" json:"status"`
	ClienteID      *uint     `gorm:"index" json:"cliente_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Associations
	Proyecto Proyecto `gorm:"foreignKey:ProyectoID" json:"proyecto,omitempty"`
	Cliente  *Cliente `gorm:"foreignKey:ClienteID" json:"cliente,omitempty"`
	Abonos   []Abono  `gorm:"foreignKey:ViviendaID" json:"abonos,omitempty"`
}

// TableName specifies the table name for Vivienda
func (Vivienda) TableName() string {
	return "viviendas"
}

// Vivienda status constants
const (
	ViviendaStatusDisponible = "disponible"
	ViviendaStatusAsignada   = "asignada"
	ViviendaStatusArchivada  = "archivada"
)

// ValorFinal is the sale price: base + recargo + notariales - descuento
func (v *Vivienda) ValorFinal() float64 {
	return v.ValorBase + v.RecargoEsquinera + v.GastosNotariales - v.DescuentoMonto
}

// EstaPagada returns true when the unit is assigned and fully paid
func (v *Vivienda) EstaPagada() bool {
	return v.Status == ViviendaStatusAsignada && v.SaldoPendiente <= 0
}

// MayAsignar returns true if a cliente can be linked to the unit
func (v *Vivienda) MayAsignar() bool {
	return v.Status == ViviendaStatusDisponible && v.ClienteID == nil
}

// MayArchivar returns true if the unit can be archived
func (v *Vivienda) MayArchivar() bool {
	return v.Status == ViviendaStatusDisponible && v.ClienteID == nil
}

// MayLiberar returns true if the unit can be detached from its cliente
func (v *Vivienda) MayLiberar() bool {
	return v.Status == ViviendaStatusAsignada
}

// MayRestaurar returns true if the unit can be restored from the archive
func (v *Vivienda) MayRestaurar() bool {
	return v.Status == ViviendaStatusArchivada
}

// Ubicacion returns the display label "Mz. A - Casa 5"
func (v *Vivienda) Ubicacion() string {
	return fmt.Sprintf("Mz. %s - Casa %d", v.Manzana, v.NumeroCasa)
}

// ViviendaResponse is the JSON response format for viviendas
type ViviendaResponse struct {
	ID               uint    `json:"id"`
	ProyectoID       uint    `json:"proyecto_id"`
	ProyectoNombre   string  `json:"proyecto_nombre,omitempty"`
	Manzana          string  `json:"manzana"`
	NumeroCasa       int     `json:"numero_casa"`
	Ubicacion        string  `json:"ubicacion"`
	ValorBase        float64 `json:"valor_base"`
	RecargoEsquinera float64 `json:"recargo_esquinera"`
	GastosNotariales float64 `json:"gastos_notariales"`
	DescuentoMonto   float64 `json:"descuento_monto"`
	ValorFinal       float64 `json:"valor_final"`
	TotalAbonado     float64 `json:"total_abonado"`
	SaldoPendiente   float64 `json:"saldo_pendiente"`
	Status           string  `json:"status"`
	Pagada           bool    `json:"pagada"`
	ClienteID        *uint   `json:"cliente_id"`
	ClienteNombre    string  `json:"cliente_nombre,omitempty"`
}

// ToResponse converts Vivienda to ViviendaResponse
func (v *Vivienda) ToResponse() ViviendaResponse {
	resp := ViviendaResponse{
		ID:               v.ID,
		ProyectoID:       v.ProyectoID,
		Manzana:          v.Manzana,
		NumeroCasa:       v.NumeroCasa,
		Ubicacion:        v.Ubicacion(),
		ValorBase:        v.ValorBase,
		RecargoEsquinera: v.RecargoEsquinera,
		GastosNotariales: v.GastosNotariales,
		DescuentoMonto:   v.DescuentoMonto,
		ValorFinal:       v.ValorFinal(),
		TotalAbonado:     v.TotalAbonado,
		SaldoPendiente:   v.SaldoPendiente,
		Status:           v.Status,
		Pagada:           v.EstaPagada(),
		ClienteID:        v.ClienteID,
	}

	if v.Proyecto.ID != 0 {
		resp.ProyectoNombre = v.Proyecto.Nombre
	}
	if v.Cliente != nil && v.Cliente.ID != 0 {
		resp.ClienteNombre = v.Cliente.NombreCompleto()
	}

	return resp
}
