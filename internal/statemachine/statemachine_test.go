package statemachine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rmoralesv/viviendas-api/internal/models"
)

func TestViviendaFSM_AsignarYLiberar(t *testing.T) {
	ctx := context.Background()
	v := &models.Vivienda{ValorBase: 100000000, Status: models.ViviendaStatusDisponible}

	err := NewViviendaFSM(v).Asignar(ctx, 7)
	assert.NoError(t, err)
	assert.Equal(t, models.ViviendaStatusAsignada, v.Status)
	assert.Equal(t, uint(7), *v.ClienteID)

	// asignada no puede asignarse de nuevo
	err = NewViviendaFSM(v).Asignar(ctx, 8)
	assert.Error(t, err)
	assert.Equal(t, uint(7), *v.ClienteID)

	v.TotalAbonado = 5000000
	v.SaldoPendiente = 95000000
	err = NewViviendaFSM(v).Liberar(ctx)
	assert.NoError(t, err)
	assert.Equal(t, models.ViviendaStatusDisponible, v.Status)
	assert.Nil(t, v.ClienteID)
	assert.Zero(t, v.TotalAbonado)
	assert.Equal(t, v.ValorFinal(), v.SaldoPendiente)
}

func TestViviendaFSM_NoArchivarAsignada(t *testing.T) {
	clienteID := uint(3)
	v := &models.Vivienda{Status: models.ViviendaStatusAsignada, ClienteID: &clienteID}

	err := NewViviendaFSM(v).Archivar(context.Background())
	assert.Error(t, err)
	assert.Equal(t, models.ViviendaStatusAsignada, v.Status)
}

func TestClienteFSM_CicloRenuncia(t *testing.T) {
	ctx := context.Background()
	viviendaID := uint(12)
	c := &models.Cliente{Status: models.ClienteStatusActivo, ViviendaID: &viviendaID}

	assert.NoError(t, NewClienteFSM(c).IniciarRenuncia(ctx))
	assert.Equal(t, models.ClienteStatusEnRenuncia, c.Status)

	// bloqueado mientras la renuncia esta en proceso
	assert.Error(t, NewClienteFSM(c).IniciarRenuncia(ctx))

	assert.NoError(t, NewClienteFSM(c).ConfirmarRenuncia(ctx))
	assert.Equal(t, models.ClienteStatusRenunciado, c.Status)
	assert.Nil(t, c.ViviendaID)

	nueva := uint(20)
	assert.NoError(t, NewClienteFSM(c).Reactivar(ctx, nueva))
	assert.Equal(t, models.ClienteStatusActivo, c.Status)
	assert.Equal(t, nueva, *c.ViviendaID)
}

func TestClienteFSM_FacturaVentaBloqueaRenuncia(t *testing.T) {
	c := &models.Cliente{
		Status: models.ClienteStatusActivo,
		Hitos:  []models.Hito{{Nombre: models.HitoFacturaVenta, Completado: true}},
	}

	err := NewClienteFSM(c).IniciarRenuncia(context.Background())
	assert.Error(t, err)
	assert.Equal(t, models.ClienteStatusActivo, c.Status)
}

func TestClienteFSM_ArchivarSoloRenunciado(t *testing.T) {
	ctx := context.Background()

	c := &models.Cliente{Status: models.ClienteStatusActivo}
	assert.Error(t, NewClienteFSM(c).Archivar(ctx))

	c.Status = models.ClienteStatusRenunciado
	assert.NoError(t, NewClienteFSM(c).Archivar(ctx))
	assert.Equal(t, models.ClienteStatusInactivo, c.Status)
}

func TestAbonoFSM_AnularYRevertir(t *testing.T) {
	ctx := context.Background()
	a := &models.Abono{EstadoProceso: models.AbonoStatusActivo}

	assert.NoError(t, NewAbonoFSM(a).Anular(ctx, "error de digitación"))
	assert.Equal(t, models.AbonoStatusAnulado, a.EstadoProceso)
	assert.NotNil(t, a.MotivoAnulacion)
	assert.NotNil(t, a.AnuladoAt)

	// doble anulación rechazada
	assert.Error(t, NewAbonoFSM(a).Anular(ctx, "otra vez"))

	assert.NoError(t, NewAbonoFSM(a).Revertir(ctx))
	assert.Equal(t, models.AbonoStatusActivo, a.EstadoProceso)
	assert.Nil(t, a.MotivoAnulacion)
	assert.Nil(t, a.AnuladoAt)
}

func TestAbonoFSM_ArchivarYReactivar(t *testing.T) {
	ctx := context.Background()
	a := &models.Abono{EstadoProceso: models.AbonoStatusActivo}

	assert.NoError(t, NewAbonoFSM(a).Archivar(ctx, 4))
	assert.Equal(t, models.AbonoStatusArchivado, a.EstadoProceso)
	assert.Equal(t, uint(4), *a.RenunciaID)

	assert.NoError(t, NewAbonoFSM(a).Reactivar(ctx))
	assert.Equal(t, models.AbonoStatusActivo, a.EstadoProceso)
	assert.Nil(t, a.RenunciaID)
}

func TestRenunciaFSM_EstadosFinales(t *testing.T) {
	ctx := context.Background()

	r := &models.Renuncia{EstadoDevolucion: models.RenunciaStatusPendiente}
	assert.NoError(t, NewRenunciaFSM(r).Pagar(ctx))
	assert.Equal(t, models.RenunciaStatusPagada, r.EstadoDevolucion)
	assert.NotNil(t, r.PagadaAt)

	// pagada es terminal
	assert.Error(t, NewRenunciaFSM(r).Cancelar(ctx))

	r2 := &models.Renuncia{EstadoDevolucion: models.RenunciaStatusPendiente}
	assert.NoError(t, NewRenunciaFSM(r2).Cancelar(ctx))
	assert.Equal(t, models.RenunciaStatusCancelada, r2.EstadoDevolucion)
	assert.NotNil(t, r2.CanceladaAt)
	assert.Error(t, NewRenunciaFSM(r2).Pagar(ctx))
}
