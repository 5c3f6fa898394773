package models

import (
	"strings"
	"time"
)

// Abono represents one installment payment toward a funding source
type Abono struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Consecutivo     int        `gorm:"not null;index" json:"consecutivo"`
	ClienteID       uint       `gorm:"not null;index" json:"cliente_id"`
	ViviendaID      uint       `gorm:"not null;index" json:"vivienda_id"`
	Fuente          string     `gorm:"not null;index" json:"fuente"`
	Monto           float64    `gorm:"type:decimal(15,2);not null" json:"monto"`
	FechaPago       time.Time  `gorm:"type:date;not null;index" json:"fecha_pago"`
	MetodoPago      string     `gorm:"not null" json:"metodo_pago"`
	Observacion     *string    `gorm:"type:text" json:"observacion"`
	URLComprobante  *string    `json:"-"` // receipt file path
	EstadoProceso   string     `gorm:"default:activo;not null;index" json:"estado_proceso"`
	MotivoAnulacion *string    `gorm:"type:text" json:"motivo_anulacion,omitempty"`
	AnuladoAt       *time.Time `json:"anulado_at"`
	// RenunciaID ties an archived abono to the withdrawal that archived it,
	// so a cancelled renuncia can reactivate exactly its own cycle.
	RenunciaID *uint     `gorm:"index" json:"renuncia_id,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Associations
	Cliente  Cliente  `gorm:"foreignKey:ClienteID" json:"cliente,omitempty"`
	Vivienda Vivienda `gorm:"foreignKey:ViviendaID" json:"vivienda,omitempty"`
}

// TableName specifies the table name for Abono
func (Abono) TableName() string {
	return "abonos"
}

// Abono estadoProceso constants
const (
	AbonoStatusActivo    = "activo"
	AbonoStatusAnulado   = "anulado"
	AbonoStatusArchivado = "archivado"
)

// MetodoPagoCondonacion marks a balance forgiveness pseudo-payment:
// it counts toward the saldo but moves no cash, so refunds exclude it.
const MetodoPagoCondonacion = "Condonación de Saldo"

// MayAnular returns true if the abono can be voided
func (a *Abono) MayAnular() bool {
	return a.EstadoProceso == AbonoStatusActivo
}

// MayRevertir returns true if a void can be reverted
func (a *Abono) MayRevertir() bool {
	return a.EstadoProceso == AbonoStatusAnulado
}

// MayArchivar returns true if the abono can be archived (renuncia side effect)
func (a *Abono) MayArchivar() bool {
	return a.EstadoProceso == AbonoStatusActivo
}

// MayReactivar returns true if an archived abono can come back to activo
// when its renuncia is cancelled
func (a *Abono) MayReactivar() bool {
	return a.EstadoProceso == AbonoStatusArchivado
}

// EsActivo returns true if the abono counts toward balances
func (a *Abono) EsActivo() bool {
	return a.EstadoProceso == AbonoStatusActivo
}

// EsCondonacion returns true for balance-forgiveness pseudo-payments
func (a *Abono) EsCondonacion() bool {
	return a.MetodoPago == MetodoPagoCondonacion
}

// AbonoResponse is the JSON response format for abonos
type AbonoResponse struct {
	ID               uint       `json:"id"`
	Consecutivo      int        `json:"consecutivo"`
	ClienteID        uint       `json:"cliente_id"`
	ClienteNombre    string     `json:"cliente_nombre,omitempty"`
	ViviendaID       uint       `json:"vivienda_id"`
	ViviendaLabel    string     `json:"vivienda,omitempty"`
	Fuente           string     `json:"fuente"`
	Monto            float64    `json:"monto"`
	FechaPago        time.Time  `json:"fecha_pago"`
	MetodoPago       string     `json:"metodo_pago"`
	Observacion      *string    `json:"observacion"`
	EstadoProceso    string     `json:"estado_proceso"`
	MotivoAnulacion  *string    `json:"motivo_anulacion,omitempty"`
	AnuladoAt        *time.Time `json:"anulado_at,omitempty"`
	TieneComprobante bool       `json:"tiene_comprobante"`
	ComprobantePDF   bool       `json:"comprobante_pdf"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ToResponse converts Abono to AbonoResponse
func (a *Abono) ToResponse() AbonoResponse {
	resp := AbonoResponse{
		ID:               a.ID,
		Consecutivo:      a.Consecutivo,
		ClienteID:        a.ClienteID,
		ViviendaID:       a.ViviendaID,
		Fuente:           a.Fuente,
		Monto:            a.Monto,
		FechaPago:        a.FechaPago,
		MetodoPago:       a.MetodoPago,
		Observacion:      a.Observacion,
		EstadoProceso:    a.EstadoProceso,
		MotivoAnulacion:  a.MotivoAnulacion,
		AnuladoAt:        a.AnuladoAt,
		TieneComprobante: a.URLComprobante != nil && *a.URLComprobante != "",
		ComprobantePDF:   a.URLComprobante != nil && strings.HasSuffix(strings.ToLower(*a.URLComprobante), ".pdf"),
		CreatedAt:        a.CreatedAt,
	}

	if a.Cliente.ID != 0 {
		resp.ClienteNombre = a.Cliente.NombreCompleto()
	}
	if a.Vivienda.ID != 0 {
		resp.ViviendaLabel = a.Vivienda.Ubicacion()
	}

	return resp
}
