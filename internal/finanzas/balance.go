// Package finanzas holds the pure balance derivations shared by services,
// the read model and the reports. Nothing here touches the database: callers
// pass the abonos they already filtered and recompute on every change.
package finanzas

import (
	"github.com/rmoralesv/viviendas-api/internal/models"
)

// Resumen is the derived balance of a vivienda/cliente pair
type Resumen struct {
	TotalAbonado     float64 `json:"total_abonado"`
	SaldoPendiente   float64 `json:"saldo_pendiente"`
	PorcentajePagado float64 `json:"porcentaje_pagado"`
}

// CalcularResumen derives totals from the active abonos only.
// Anulado and archivado abonos contribute zero. PorcentajePagado is
// clamped to [0,100]: overpayment is blocked at entry, so anything above
// 100 can only be legacy data and should not render as such.
func CalcularResumen(valorFinal float64, abonos []models.Abono) Resumen {
	var total float64
	for i := range abonos {
		if abonos[i].EsActivo() {
			total += abonos[i].Monto
		}
	}

	r := Resumen{
		TotalAbonado:   total,
		SaldoPendiente: valorFinal - total,
	}

	if valorFinal > 0 {
		pct := 100 * total / valorFinal
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		r.PorcentajePagado = pct
	}

	return r
}

// ResumenFuente is the per funding source breakdown
type ResumenFuente struct {
	Fuente         string  `json:"fuente"`
	MontoPactado   float64 `json:"monto_pactado"`
	TotalAbonado   float64 `json:"total_abonado"`
	SaldoPendiente float64 `json:"saldo_pendiente"`
}

// DesglosePorFuente groups active abonos by fuente against the pactado
// montos of the cliente's plan. Only fuentes present in the plan appear.
func DesglosePorFuente(fuentes []models.FuenteFinanciera, abonos []models.Abono) []ResumenFuente {
	porFuente := make(map[string]float64, len(fuentes))
	for i := range abonos {
		if abonos[i].EsActivo() {
			porFuente[abonos[i].Fuente] += abonos[i].Monto
		}
	}

	desglose := make([]ResumenFuente, 0, len(fuentes))
	for i := range fuentes {
		f := &fuentes[i]
		abonado := porFuente[f.Tipo]
		desglose = append(desglose, ResumenFuente{
			Fuente:         f.Tipo,
			MontoPactado:   f.Monto,
			TotalAbonado:   abonado,
			SaldoPendiente: f.Monto - abonado,
		})
	}

	return desglose
}

// TotalAbonadoReal sums the active abonos that moved real cash,
// excluding condonaciones. This is the base of a renuncia refund.
func TotalAbonadoReal(abonos []models.Abono) float64 {
	var total float64
	for i := range abonos {
		if abonos[i].EsActivo() && !abonos[i].EsCondonacion() {
			total += abonos[i].Monto
		}
	}
	return total
}

// DiferenciaPlan is totalAPagar minus the sum of the plan's fuentes.
// A cliente can only be saved when the diferencia is exactly zero.
func DiferenciaPlan(valorFinal float64, fuentes []models.FuenteFinanciera) float64 {
	var recursos float64
	for i := range fuentes {
		recursos += fuentes[i].Monto
	}
	return valorFinal - recursos
}
