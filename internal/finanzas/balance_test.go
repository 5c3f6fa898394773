package finanzas

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rmoralesv/viviendas-api/internal/models"
)

func abono(monto float64, status string) models.Abono {
	return models.Abono{Monto: monto, EstadoProceso: status, MetodoPago: "Efectivo"}
}

func TestCalcularResumen_SoloActivosCuentan(t *testing.T) {
	abonos := []models.Abono{
		abono(5000000, models.AbonoStatusActivo),
		abono(3000000, models.AbonoStatusAnulado),
		abono(2000000, models.AbonoStatusArchivado),
	}

	r := CalcularResumen(100000000, abonos)

	assert.Equal(t, float64(5000000), r.TotalAbonado)
	assert.Equal(t, float64(95000000), r.SaldoPendiente)
	assert.Equal(t, float64(5), r.PorcentajePagado)
}

func TestCalcularResumen_SinAbonos(t *testing.T) {
	r := CalcularResumen(100000000, nil)

	assert.Zero(t, r.TotalAbonado)
	assert.Equal(t, float64(100000000), r.SaldoPendiente)
	assert.Zero(t, r.PorcentajePagado)
}

func TestCalcularResumen_ValorFinalCero(t *testing.T) {
	r := CalcularResumen(0, []models.Abono{abono(1000, models.AbonoStatusActivo)})

	// porcentaje queda en cero en lugar de dividir por cero
	assert.Zero(t, r.PorcentajePagado)
	assert.Equal(t, float64(-1000), r.SaldoPendiente)
}

func TestCalcularResumen_PorcentajeClampeadoA100(t *testing.T) {
	r := CalcularResumen(1000, []models.Abono{abono(1500, models.AbonoStatusActivo)})

	assert.Equal(t, float64(100), r.PorcentajePagado)
	assert.Equal(t, float64(-500), r.SaldoPendiente)
}

func TestDesglosePorFuente(t *testing.T) {
	fuentes := []models.FuenteFinanciera{
		{Tipo: models.FuenteCuotaInicial, Monto: 20000000},
		{Tipo: models.FuenteCredito, Monto: 80000000},
	}
	abonos := []models.Abono{
		{Fuente: models.FuenteCuotaInicial, Monto: 5000000, EstadoProceso: models.AbonoStatusActivo},
		{Fuente: models.FuenteCuotaInicial, Monto: 2000000, EstadoProceso: models.AbonoStatusAnulado},
		{Fuente: models.FuenteCredito, Monto: 10000000, EstadoProceso: models.AbonoStatusActivo},
	}

	desglose := DesglosePorFuente(fuentes, abonos)

	assert.Len(t, desglose, 2)
	assert.Equal(t, float64(5000000), desglose[0].TotalAbonado)
	assert.Equal(t, float64(15000000), desglose[0].SaldoPendiente)
	assert.Equal(t, float64(10000000), desglose[1].TotalAbonado)
	assert.Equal(t, float64(70000000), desglose[1].SaldoPendiente)
}

func TestDesglosePorFuente_FuenteSinPlanNoAparece(t *testing.T) {
	fuentes := []models.FuenteFinanciera{
		{Tipo: models.FuenteCuotaInicial, Monto: 20000000},
	}
	abonos := []models.Abono{
		{Fuente: models.FuenteCredito, Monto: 10000000, EstadoProceso: models.AbonoStatusActivo},
	}

	desglose := DesglosePorFuente(fuentes, abonos)

	assert.Len(t, desglose, 1)
	assert.Equal(t, models.FuenteCuotaInicial, desglose[0].Fuente)
	assert.Zero(t, desglose[0].TotalAbonado)
}

func TestTotalAbonadoReal_ExcluyeCondonaciones(t *testing.T) {
	abonos := []models.Abono{
		abono(1000000, models.AbonoStatusActivo),
		abono(1000000, models.AbonoStatusActivo),
		abono(1000000, models.AbonoStatusActivo),
		{Monto: 500000, EstadoProceso: models.AbonoStatusActivo, MetodoPago: models.MetodoPagoCondonacion},
		abono(2000000, models.AbonoStatusAnulado),
	}

	assert.Equal(t, float64(3000000), TotalAbonadoReal(abonos))
}

func TestDiferenciaPlan(t *testing.T) {
	fuentes := []models.FuenteFinanciera{
		{Tipo: models.FuenteCuotaInicial, Monto: 20000000},
		{Tipo: models.FuenteCredito, Monto: 75000000},
	}

	assert.Equal(t, float64(5000000), DiferenciaPlan(100000000, fuentes))
	assert.Zero(t, DiferenciaPlan(95000000, fuentes))
}
