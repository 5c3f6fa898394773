// Package readmodel keeps an in-memory snapshot of the five collections and
// serves the joined views the dashboard and the pickers read. Snapshots are
// refreshed through the datasync invalidator, never mutated in place.
package readmodel

import (
	"context"
	"sort"
	"sync"

	"github.com/rmoralesv/viviendas-api/internal/datasync"
	"github.com/rmoralesv/viviendas-api/internal/models"
	"github.com/rmoralesv/viviendas-api/internal/repository"
)

// Aggregator holds the collection snapshots keyed by id. Joins are map
// lookups, so a view over n rows costs O(n) regardless of the join fanout.
type Aggregator struct {
	mu        sync.RWMutex
	proyectos map[uint]models.Proyecto
	viviendas map[uint]models.Vivienda
	clientes  map[uint]models.Cliente
	abonos    map[uint]models.Abono
	renuncias map[uint]models.Renuncia
	// ready flips per collection after its first successful load; joined
	// views report not-ready until every side of the join has data
	ready map[datasync.Collection]bool

	repos *repository.Repositories
}

// NewAggregator creates an empty aggregator over the given repositories
func NewAggregator(repos *repository.Repositories) *Aggregator {
	return &Aggregator{
		proyectos: make(map[uint]models.Proyecto),
		viviendas: make(map[uint]models.Vivienda),
		clientes:  make(map[uint]models.Cliente),
		abonos:    make(map[uint]models.Abono),
		renuncias: make(map[uint]models.Renuncia),
		ready:     make(map[datasync.Collection]bool),
		repos:     repos,
	}
}

// Reload refreshes one collection snapshot. It is the ReloadFunc the
// datasync invalidator drives.
func (a *Aggregator) Reload(ctx context.Context, col datasync.Collection) error {
	switch col {
	case datasync.CollectionProyectos:
		rows, err := a.repos.Proyecto.FindAll(ctx)
		if err != nil {
			return err
		}
		snapshot := make(map[uint]models.Proyecto, len(rows))
		for _, r := range rows {
			snapshot[r.ID] = r
		}
		a.mu.Lock()
		a.proyectos = snapshot
		a.ready[col] = true
		a.mu.Unlock()

	case datasync.CollectionViviendas:
		rows, err := a.repos.Vivienda.FindAll(ctx)
		if err != nil {
			return err
		}
		snapshot := make(map[uint]models.Vivienda, len(rows))
		for _, r := range rows {
			snapshot[r.ID] = r
		}
		a.mu.Lock()
		a.viviendas = snapshot
		a.ready[col] = true
		a.mu.Unlock()

	case datasync.CollectionClientes:
		rows, err := a.repos.Cliente.FindAll(ctx)
		if err != nil {
			return err
		}
		snapshot := make(map[uint]models.Cliente, len(rows))
		for _, r := range rows {
			snapshot[r.ID] = r
		}
		a.mu.Lock()
		a.clientes = snapshot
		a.ready[col] = true
		a.mu.Unlock()

	case datasync.CollectionAbonos:
		rows, err := a.repos.Abono.FindAll(ctx)
		if err != nil {
			return err
		}
		snapshot := make(map[uint]models.Abono, len(rows))
		for _, r := range rows {
			snapshot[r.ID] = r
		}
		a.mu.Lock()
		a.abonos = snapshot
		a.ready[col] = true
		a.mu.Unlock()

	case datasync.CollectionRenuncias:
		rows, err := a.repos.Renuncia.FindAll(ctx)
		if err != nil {
			return err
		}
		snapshot := make(map[uint]models.Renuncia, len(rows))
		for _, r := range rows {
			snapshot[r.ID] = r
		}
		a.mu.Lock()
		a.renuncias = snapshot
		a.ready[col] = true
		a.mu.Unlock()
	}

	return nil
}

// ReloadAll loads every collection, used at startup and by the periodic
// refresh job
func (a *Aggregator) ReloadAll(ctx context.Context) error {
	cols := []datasync.Collection{
		datasync.CollectionProyectos,
		datasync.CollectionViviendas,
		datasync.CollectionClientes,
		datasync.CollectionAbonos,
		datasync.CollectionRenuncias,
	}
	for _, col := range cols {
		if err := a.Reload(ctx, col); err != nil {
			return err
		}
	}
	return nil
}

// IsReady reports whether the named collections have all loaded at least once
func (a *Aggregator) IsReady(cols ...datasync.Collection) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, c := range cols {
		if !a.ready[c] {
			return false
		}
	}
	return true
}

// ViviendaConCliente is one row of the joined vivienda listing
type ViviendaConCliente struct {
	Vivienda models.ViviendaResponse `json:"vivienda"`
	Cliente  *models.ClienteResponse `json:"cliente,omitempty"`
}

// ViviendasConCliente joins each vivienda with its cliente by map lookup.
// ok is false until both collections have loaded.
func (a *Aggregator) ViviendasConCliente() ([]ViviendaConCliente, bool) {
	if !a.IsReady(datasync.CollectionViviendas, datasync.CollectionClientes) {
		return nil, false
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]ViviendaConCliente, 0, len(a.viviendas))
	for _, v := range a.viviendas {
		row := ViviendaConCliente{Vivienda: v.ToResponse()}
		if v.ClienteID != nil {
			if c, ok := a.clientes[*v.ClienteID]; ok {
				cr := c.ToResponse()
				row.Cliente = &cr
				row.Vivienda.ClienteNombre = c.NombreCompleto()
			}
		}
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Vivienda, out[j].Vivienda
		if a.Manzana != b.Manzana {
			return a.Manzana < b.Manzana
		}
		return a.NumeroCasa < b.NumeroCasa
	})

	return out, true
}

// ClienteConVivienda is one row of the joined cliente listing
type ClienteConVivienda struct {
	Cliente  models.ClienteResponse   `json:"cliente"`
	Vivienda *models.ViviendaResponse `json:"vivienda,omitempty"`
}

// ClientesConVivienda joins each cliente with its vivienda by map lookup
func (a *Aggregator) ClientesConVivienda() ([]ClienteConVivienda, bool) {
	if !a.IsReady(datasync.CollectionClientes, datasync.CollectionViviendas) {
		return nil, false
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]ClienteConVivienda, 0, len(a.clientes))
	for _, c := range a.clientes {
		row := ClienteConVivienda{Cliente: c.ToResponse()}
		if c.ViviendaID != nil {
			if v, ok := a.viviendas[*c.ViviendaID]; ok {
				vr := v.ToResponse()
				row.Vivienda = &vr
			}
		}
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Cliente.ID < out[j].Cliente.ID
	})

	return out, true
}

// DashboardStats is the aggregate view the dashboard renders
type DashboardStats struct {
	Proyectos            int     `json:"proyectos"`
	Viviendas            int     `json:"viviendas"`
	ViviendasDisponibles int     `json:"viviendas_disponibles"`
	ViviendasAsignadas   int     `json:"viviendas_asignadas"`
	ViviendasPagadas     int     `json:"viviendas_pagadas"`
	ClientesActivos      int     `json:"clientes_activos"`
	AbonosActivos        int     `json:"abonos_activos"`
	RecaudadoTotal       float64 `json:"recaudado_total"`
	CarteraPendiente     float64 `json:"cartera_pendiente"`
	RenunciasPendientes  int     `json:"renuncias_pendientes"`
	PorDevolver          float64 `json:"por_devolver"`
}

// Dashboard aggregates the snapshots into the dashboard counters.
// ok is false until every collection has loaded.
func (a *Aggregator) Dashboard() (*DashboardStats, bool) {
	if !a.IsReady(
		datasync.CollectionProyectos,
		datasync.CollectionViviendas,
		datasync.CollectionClientes,
		datasync.CollectionAbonos,
		datasync.CollectionRenuncias,
	) {
		return nil, false
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := &DashboardStats{
		Proyectos: len(a.proyectos),
		Viviendas: len(a.viviendas),
	}

	for _, v := range a.viviendas {
		switch v.Status {
		case models.ViviendaStatusDisponible:
			stats.ViviendasDisponibles++
		case models.ViviendaStatusAsignada:
			stats.ViviendasAsignadas++
			stats.CarteraPendiente += v.SaldoPendiente
			if v.EstaPagada() {
				stats.ViviendasPagadas++
			}
		}
	}

	for _, c := range a.clientes {
		if c.Status == models.ClienteStatusActivo {
			stats.ClientesActivos++
		}
	}

	for _, ab := range a.abonos {
		if ab.EsActivo() {
			stats.AbonosActivos++
			if !ab.EsCondonacion() {
				stats.RecaudadoTotal += ab.Monto
			}
		}
	}

	for _, r := range a.renuncias {
		if r.EstadoDevolucion == models.RenunciaStatusPendiente {
			stats.RenunciasPendientes++
			stats.PorDevolver += r.TotalAbonadoParaDevolucion
		}
	}

	return stats, true
}
