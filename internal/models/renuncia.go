package models

import (
	"time"
)

// Renuncia records a buyer's withdrawal from a purchase and its refund
type Renuncia struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	GUID          string    `gorm:"column:guid;not null" json:"guid"`
	ClienteID     uint      `gorm:"not null;index" json:"cliente_id"`
	ClienteNombre string    `gorm:"not null" json:"cliente_nombre"` // denormalized at creation
	ViviendaID    uint      `gorm:"not null;index" json:"vivienda_id"`
	ViviendaInfo  string    `gorm:"not null" json:"vivienda_info"` // denormalized at creation
	Motivo        string    `gorm:"not null" json:"motivo"`
	Observacion   *string   `gorm:"type:text" json:"observacion"`
	FechaRenuncia time.Time `gorm:"type:date;not null" json:"fecha_renuncia"`

	PenalidadMonto  float64 `gorm:"type:decimal(15,2);default:0" json:"penalidad_monto"`
	PenalidadMotivo *string `gorm:"type:text" json:"penalidad_motivo"`
	// Refundable amount: active non-condonación abonos minus penalty. Never negative.
	TotalAbonadoParaDevolucion float64 `gorm:"type:decimal(15,2);not null" json:"total_abonado_para_devolucion"`

	EstadoDevolucion string     `gorm:"default:pendiente;index" json:"estado_devolucion"`
	PagadaAt         *time.Time `json:"pagada_at"`
	CanceladaAt      *time.Time `json:"cancelada_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// Associations
	Cliente  Cliente  `gorm:"foreignKey:ClienteID" json:"cliente,omitempty"`
	Vivienda Vivienda `gorm:"foreignKey:ViviendaID" json:"vivienda,omitempty"`
}

// TableName specifies the table name for Renuncia
func (Renuncia) TableName() string {
	return "renuncias"
}

// Renuncia estadoDevolucion constants
const (
	RenunciaStatusPendiente = "pendiente"
	RenunciaStatusPagada    = "pagada"
	RenunciaStatusCancelada = "cancelada"
)

// Motivo requiring a free-form observacion
const RenunciaMotivoOtro = "Otro"

// MayPagar returns true if the refund can be marked disbursed
func (r *Renuncia) MayPagar() bool {
	return r.EstadoDevolucion == RenunciaStatusPendiente
}

// MayCancelar returns true if the withdrawal can still be reversed
func (r *Renuncia) MayCancelar() bool {
	return r.EstadoDevolucion == RenunciaStatusPendiente
}

// RenunciaResponse is the JSON response format for renuncias
type RenunciaResponse struct {
	ID                         uint       `json:"id"`
	GUID                       string     `json:"guid"`
	ClienteID                  uint       `json:"cliente_id"`
	ClienteNombre              string     `json:"cliente_nombre"`
	ViviendaID                 uint       `json:"vivienda_id"`
	ViviendaInfo               string     `json:"vivienda_info"`
	Motivo                     string     `json:"motivo"`
	Observacion                *string    `json:"observacion"`
	FechaRenuncia              time.Time  `json:"fecha_renuncia"`
	PenalidadMonto             float64    `json:"penalidad_monto"`
	PenalidadMotivo            *string    `json:"penalidad_motivo"`
	TotalAbonadoParaDevolucion float64    `json:"total_abonado_para_devolucion"`
	EstadoDevolucion           string     `json:"estado_devolucion"`
	PagadaAt                   *time.Time `json:"pagada_at,omitempty"`
	CanceladaAt                *time.Time `json:"cancelada_at,omitempty"`
	CreatedAt                  time.Time  `json:"created_at"`
}

// ToResponse converts Renuncia to RenunciaResponse
func (r *Renuncia) ToResponse() RenunciaResponse {
	return RenunciaResponse{
		ID:                         r.ID,
		GUID:                       r.GUID,
		ClienteID:                  r.ClienteID,
		ClienteNombre:              r.ClienteNombre,
		ViviendaID:                 r.ViviendaID,
		ViviendaInfo:               r.ViviendaInfo,
		Motivo:                     r.Motivo,
		Observacion:                r.Observacion,
		FechaRenuncia:              r.FechaRenuncia,
		PenalidadMonto:             r.PenalidadMonto,
		PenalidadMotivo:            r.PenalidadMotivo,
		TotalAbonadoParaDevolucion: r.TotalAbonadoParaDevolucion,
		EstadoDevolucion:           r.EstadoDevolucion,
		PagadaAt:                   r.PagadaAt,
		CanceladaAt:                r.CanceladaAt,
		CreatedAt:                  r.CreatedAt,
	}
}
