package models

import (
	"time"
)

// Cliente represents a buyer under an active or historical purchase process
type Cliente struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Nombres        string    `gorm:"not null" json:"nombres"`
	Apellidos      string    `gorm:"not null" json:"apellidos"`
	Cedula         string    `gorm:"uniqueIndex;not null" json:"cedula"`
	Telefono       string    `json:"telefono"`
	Correo         string    `json:"correo"`
	Direccion      string    `json:"direccion"`
	FechaIngreso   time.Time `gorm:"type:date;not null" json:"fecha_ingreso"`
	ViviendaID     *uint     `gorm:"index" json:"vivienda_id"`
	ValorEscritura *float64  `gorm:"type:decimal(15,2)" json:"valor_escritura"`
	Status         string    `gorm:"default:activo;index" json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Associations
	Vivienda *Vivienda          `gorm:"foreignKey:ViviendaID" json:"vivienda,omitempty"`
	Fuentes  []FuenteFinanciera `gorm:"foreignKey:ClienteID" json:"fuentes,omitempty"`
	Hitos    []Hito             `gorm:"foreignKey:ClienteID" json:"hitos,omitempty"`
	Abonos   []Abono            `gorm:"foreignKey:ClienteID" json:"abonos,omitempty"`
}

// TableName specifies the table name for Cliente
func (Cliente) TableName() string {
	return "clientes"
}

// Cliente status constants
const (
	ClienteStatusActivo     = "activo"
	ClienteStatusEnRenuncia = "enProcesoDeRenuncia"
	ClienteStatusRenunciado = "renunciado"
	ClienteStatusInactivo   = "inactivo"
)

// NombreCompleto returns "Nombres Apellidos"
func (c *Cliente) NombreCompleto() string {
	return c.Nombres + " " + c.Apellidos
}

// HitoCompletado reports whether the named milestone has been completed
func (c *Cliente) HitoCompletado(nombre string) bool {
	for i := range c.Hitos {
		if c.Hitos[i].Nombre == nombre {
			return c.Hitos[i].Completado
		}
	}
	return false
}

// MayEditar returns true while the cliente record is still editable.
// Once facturaVenta is completed the sale is final and the record freezes.
func (c *Cliente) MayEditar() bool {
	return c.Status == ClienteStatusActivo && !c.HitoCompletado(HitoFacturaVenta)
}

// MayIniciarRenuncia returns true if a withdrawal can be started
func (c *Cliente) MayIniciarRenuncia() bool {
	return c.Status == ClienteStatusActivo && !c.HitoCompletado(HitoFacturaVenta)
}

// MayConfirmarRenuncia returns true if the pending withdrawal can be confirmed
func (c *Cliente) MayConfirmarRenuncia() bool {
	return c.Status == ClienteStatusEnRenuncia
}

// MayArchivar returns true if the cliente can move to inactivo
func (c *Cliente) MayArchivar() bool {
	return c.Status == ClienteStatusRenunciado
}

// MayReactivar returns true if the cliente can start a new purchase process
func (c *Cliente) MayReactivar() bool {
	return c.Status == ClienteStatusRenunciado
}

// FuenteFinanciera is one funding source of a cliente's payment plan.
// A row's presence means the source applies; there is no separate aplica flag.
type FuenteFinanciera struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	ClienteID  uint    `gorm:"not null;index" json:"cliente_id"`
	Tipo       string  `gorm:"not null" json:"tipo"`
	Monto      float64 `gorm:"type:decimal(15,2);not null" json:"monto"`
	URLSoporte *string `json:"url_soporte"`
}

// TableName specifies the table name for FuenteFinanciera
func (FuenteFinanciera) TableName() string {
	return "fuentes_financieras"
}

// Funding source type constants
const (
	FuenteCuotaInicial     = "cuotaInicial"
	FuenteCredito          = "credito"
	FuenteSubsidioVivienda = "subsidioVivienda"
	FuenteSubsidioCaja     = "subsidioCaja"
)

// FuentesValidas lists every recognized funding source type
func FuentesValidas() []string {
	return []string{FuenteCuotaInicial, FuenteCredito, FuenteSubsidioVivienda, FuenteSubsidioCaja}
}

// Hito is one milestone of a cliente's contract checklist
type Hito struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ClienteID  uint       `gorm:"not null;index" json:"cliente_id"`
	Nombre     string     `gorm:"not null" json:"nombre"`
	Orden      int        `gorm:"not null" json:"orden"`
	Completado bool       `gorm:"default:false" json:"completado"`
	Fecha      *time.Time `gorm:"type:date" json:"fecha"`
}

// TableName specifies the table name for Hito
func (Hito) TableName() string {
	return "hitos"
}

// Milestone name constants, in process order
const (
	HitoPromesaCompraventa = "promesaCompraventa"
	HitoDesembolsoCredito  = "desembolsoCredito"
	HitoEscritura          = "escritura"
	HitoFacturaVenta       = "facturaVenta"
	HitoEntrega            = "entrega"
)

// HitosDefault returns the default milestone checklist for a new cliente
func HitosDefault() []Hito {
	nombres := []string{HitoPromesaCompraventa, HitoDesembolsoCredito, HitoEscritura, HitoFacturaVenta, HitoEntrega}
	hitos := make([]Hito, 0, len(nombres))
	for i, n := range nombres {
		hitos = append(hitos, Hito{Nombre: n, Orden: i + 1})
	}
	return hitos
}

// ClienteResponse is the JSON response format for clientes
type ClienteResponse struct {
	ID             uint               `json:"id"`
	Nombres        string             `json:"nombres"`
	Apellidos      string             `json:"apellidos"`
	NombreCompleto string             `json:"nombre_completo"`
	Cedula         string             `json:"cedula"`
	Telefono       string             `json:"telefono"`
	Correo         string             `json:"correo"`
	Direccion      string             `json:"direccion"`
	FechaIngreso   time.Time          `json:"fecha_ingreso"`
	Status         string             `json:"status"`
	ViviendaID     *uint              `json:"vivienda_id"`
	Vivienda       *ViviendaResponse  `json:"vivienda,omitempty"`
	Fuentes        []FuenteFinanciera `json:"fuentes"`
	Hitos          []Hito             `json:"hitos"`
	Editable       bool               `json:"editable"`
}

// ToResponse converts Cliente to ClienteResponse
func (c *Cliente) ToResponse() ClienteResponse {
	resp := ClienteResponse{
		ID:             c.ID,
		Nombres:        c.Nombres,
		Apellidos:      c.Apellidos,
		NombreCompleto: c.NombreCompleto(),
		Cedula:         c.Cedula,
		Telefono:       c.Telefono,
		Correo:         c.Correo,
		Direccion:      c.Direccion,
		FechaIngreso:   c.FechaIngreso,
		Status:         c.Status,
		ViviendaID:     c.ViviendaID,
		Fuentes:        c.Fuentes,
		Hitos:          c.Hitos,
		Editable:       c.MayEditar(),
	}

	if c.Vivienda != nil && c.Vivienda.ID != 0 {
		vr := c.Vivienda.ToResponse()
		resp.Vivienda = &vr
	}

	return resp
}
