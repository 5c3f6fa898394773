package models

import (
	"time"
)

// Proyecto represents a housing development project
type Proyecto struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Nombre      string    `gorm:"not null" json:"nombre"`
	Ubicacion   string    `gorm:"not null" json:"ubicacion"`
	Descripcion string    `gorm:"type:text" json:"descripcion"`
	GUID        string    `gorm:"column:guid;not null" json:"guid"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Associations
	Viviendas []Vivienda `gorm:"foreignKey:ProyectoID" json:"viviendas,omitempty"`
}

// TableName specifies the table name for Proyecto
func (Proyecto) TableName() string {
	return "proyectos"
}

// ProyectoResponse is the JSON response format for proyectos
type ProyectoResponse struct {
	ID                   uint      `json:"id"`
	Nombre               string    `json:"nombre"`
	Ubicacion            string    `json:"ubicacion"`
	Descripcion          string    `json:"descripcion"`
	TotalViviendas       int       `json:"total_viviendas"`
	ViviendasDisponibles int       `json:"viviendas_disponibles"`
	ViviendasAsignadas   int       `json:"viviendas_asignadas"`
	ViviendasPagadas     int       `json:"viviendas_pagadas"`
	CreatedAt            time.Time `json:"created_at"`
}

// ToResponse converts Proyecto to ProyectoResponse
func (p *Proyecto) ToResponse() ProyectoResponse {
	var disponibles, asignadas, pagadas int
	for i := range p.Viviendas {
		v := &p.Viviendas[i]
		switch {
		case v.EstaPagada():
			pagadas++
		case v.Status == ViviendaStatusAsignada:
			asignadas++
		case v.Status == ViviendaStatusDisponible:
			disponibles++
		}
	}

	return ProyectoResponse{
		ID:                   p.ID,
		Nombre:               p.Nombre,
		Ubicacion:            p.Ubicacion,
		Descripcion:          p.Descripcion,
		TotalViviendas:       len(p.Viviendas),
		ViviendasDisponibles: disponibles,
		ViviendasAsignadas:   asignadas,
		ViviendasPagadas:     pagadas,
		CreatedAt:            p.CreatedAt,
	}
}
