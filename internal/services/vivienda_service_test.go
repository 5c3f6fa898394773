package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/rmoralesv/viviendas-api/internal/models"
	"github.com/rmoralesv/viviendas-api/internal/repository"
)

func (f *fakeViviendaRepo) Create(ctx context.Context, vivienda *models.Vivienda) error {
	vivienda.ID = uint(len(f.viviendas) + 200)
	copia := *vivienda
	f.viviendas[vivienda.ID] = &copia
	return nil
}

func (f *fakeViviendaRepo) FindByIDWithDetails(ctx context.Context, id uint) (*models.Vivienda, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeViviendaRepo) Delete(ctx context.Context, id uint) error {
	delete(f.viviendas, id)
	return nil
}

func (f *fakeViviendaRepo) CountAbonosHistoricos(ctx context.Context, id uint) (int64, error) {
	return f.historial[id], nil
}

type fakeProyectoRepo struct {
	repository.ProyectoRepository
	proyectos map[uint]*models.Proyecto
}

func (f *fakeProyectoRepo) FindByID(ctx context.Context, id uint) (*models.Proyecto, error) {
	if p, ok := f.proyectos[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newViviendaService(vr *fakeViviendaRepo, pr *fakeProyectoRepo, cr *fakeClienteRepo) *ViviendaService {
	return NewViviendaService(vr, pr, cr, NewAuditService(nil), nil)
}

func viviendaWorld() (*fakeViviendaRepo, *fakeProyectoRepo, *fakeClienteRepo) {
	vr := &fakeViviendaRepo{viviendas: map[uint]*models.Vivienda{}, historial: map[uint]int64{}}
	pr := &fakeProyectoRepo{proyectos: map[uint]*models.Proyecto{
		1: {ID: 1, Nombre: "Altos del Prado"},
	}}
	cr := &fakeClienteRepo{clientes: map[uint]*models.Cliente{}}
	return vr, pr, cr
}

func TestViviendaService_CreateCalculaValorFinal(t *testing.T) {
	vr, pr, cr := viviendaWorld()
	svc := newViviendaService(vr, pr, cr)

	vivienda, err := svc.Create(context.Background(), &ViviendaInput{
		ProyectoID:       1,
		Manzana:          "A",
		NumeroCasa:       3,
		ValorBase:        80000000,
		RecargoEsquinera: 3000000,
		GastosNotariales: 2000000,
		DescuentoMonto:   5000000,
	}, 1, "127.0.0.1", "test")

	assert.NoError(t, err)
	assert.Equal(t, models.ViviendaStatusDisponible, vivienda.Status)
	assert.Equal(t, float64(80000000), vivienda.ValorFinal())
	assert.Equal(t, float64(80000000), vivienda.SaldoPendiente)
	assert.Equal(t, "Mz. A - Casa 3", vivienda.Ubicacion())
}

func TestViviendaService_CreateValidaciones(t *testing.T) {
	vr, pr, cr := viviendaWorld()
	svc := newViviendaService(vr, pr, cr)
	ctx := context.Background()

	_, err := svc.Create(ctx, &ViviendaInput{
		ProyectoID: 1, Manzana: "A", NumeroCasa: 1, ValorBase: 0,
	}, 1, "", "")
	ve, ok := IsValidationError(err)
	assert.True(t, ok)
	assert.Contains(t, ve.Fields, "valor_base")

	// un descuento mayor que el valor deja el precio en negativo
	_, err = svc.Create(ctx, &ViviendaInput{
		ProyectoID: 1, Manzana: "A", NumeroCasa: 1,
		ValorBase: 50000000, DescuentoMonto: 60000000,
	}, 1, "", "")
	ve, ok = IsValidationError(err)
	assert.True(t, ok)
	assert.Contains(t, ve.Fields, "descuento_monto")

	_, err = svc.Create(ctx, &ViviendaInput{
		ProyectoID: 7, Manzana: "A", NumeroCasa: 1, ValorBase: 50000000,
	}, 1, "", "")
	ve, ok = IsValidationError(err)
	assert.True(t, ok)
	assert.Contains(t, ve.Fields, "proyecto_id")
}

func TestViviendaService_UpdateRecalculaSaldo(t *testing.T) {
	vr, pr, cr := viviendaWorld()
	svc := newViviendaService(vr, pr, cr)
	clienteID := uint(20)
	vr.viviendas[10] = &models.Vivienda{
		ID: 10, ProyectoID: 1, Manzana: "B", NumeroCasa: 4,
		ValorBase: 100000000, Status: models.ViviendaStatusAsignada,
		ClienteID: &clienteID, TotalAbonado: 30000000, SaldoPendiente: 70000000,
	}
	cr.clientes[20] = &models.Cliente{
		ID: 20, Nombres: "Elena", Apellidos: "Mora",
		Status: models.ClienteStatusActivo, Hitos: models.HitosDefault(),
	}

	vivienda, err := svc.Update(context.Background(), 10, &ViviendaInput{
		ProyectoID: 1, Manzana: "B", NumeroCasa: 4,
		ValorBase: 100000000, GastosNotariales: 2000000,
	}, 1, "", "")

	assert.NoError(t, err)
	assert.Equal(t, float64(102000000), vivienda.ValorFinal())
	assert.Equal(t, float64(72000000), vivienda.SaldoPendiente)
}

func TestViviendaService_UpdateCongeladaConFacturaVenta(t *testing.T) {
	vr, pr, cr := viviendaWorld()
	svc := newViviendaService(vr, pr, cr)
	clienteID := uint(20)
	vr.viviendas[10] = &models.Vivienda{
		ID: 10, ProyectoID: 1, Manzana: "B", NumeroCasa: 4,
		ValorBase: 100000000, Status: models.ViviendaStatusAsignada, ClienteID: &clienteID,
	}
	hitos := models.HitosDefault()
	for i := range hitos {
		if hitos[i].Nombre == models.HitoFacturaVenta {
			hitos[i].Completado = true
		}
	}
	cr.clientes[20] = &models.Cliente{
		ID: 20, Nombres: "Elena", Apellidos: "Mora",
		Status: models.ClienteStatusActivo, Hitos: hitos,
	}

	_, err := svc.Update(context.Background(), 10, &ViviendaInput{
		ProyectoID: 1, Manzana: "B", NumeroCasa: 4, ValorBase: 120000000,
	}, 1, "", "")

	assert.ErrorIs(t, err, ErrProcesoFinalizado)
}

func TestViviendaService_ArchivarYRestaurar(t *testing.T) {
	vr, pr, cr := viviendaWorld()
	svc := newViviendaService(vr, pr, cr)
	ctx := context.Background()
	vr.viviendas[10] = &models.Vivienda{
		ID: 10, ProyectoID: 1, Manzana: "B", NumeroCasa: 4,
		ValorBase: 100000000, Status: models.ViviendaStatusDisponible,
	}

	archivada, err := svc.Archivar(ctx, 10, 1, "", "")
	assert.NoError(t, err)
	assert.Equal(t, models.ViviendaStatusArchivada, archivada.Status)

	// archivada no puede archivarse otra vez
	_, err = svc.Archivar(ctx, 10, 1, "", "")
	assert.ErrorIs(t, err, ErrInvalidState)

	restaurada, err := svc.Restaurar(ctx, 10, 1, "", "")
	assert.NoError(t, err)
	assert.Equal(t, models.ViviendaStatusDisponible, restaurada.Status)
}

func TestViviendaService_ArchivarAsignadaRechazado(t *testing.T) {
	vr, pr, cr := viviendaWorld()
	svc := newViviendaService(vr, pr, cr)
	clienteID := uint(20)
	vr.viviendas[10] = &models.Vivienda{
		ID: 10, ProyectoID: 1, Manzana: "B", NumeroCasa: 4,
		ValorBase: 100000000, Status: models.ViviendaStatusAsignada, ClienteID: &clienteID,
	}

	_, err := svc.Archivar(context.Background(), 10, 1, "", "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestViviendaService_DeleteProtegida(t *testing.T) {
	vr, pr, cr := viviendaWorld()
	svc := newViviendaService(vr, pr, cr)
	ctx := context.Background()
	clienteID := uint(20)
	vr.viviendas[10] = &models.Vivienda{
		ID: 10, ProyectoID: 1, Manzana: "B", NumeroCasa: 4,
		ValorBase: 100000000, Status: models.ViviendaStatusAsignada, ClienteID: &clienteID,
	}
	vr.viviendas[11] = &models.Vivienda{
		ID: 11, ProyectoID: 1, Manzana: "C", NumeroCasa: 2,
		ValorBase: 100000000, Status: models.ViviendaStatusDisponible,
	}
	vr.historial[11] = 3

	// asignada no se elimina
	err := svc.Delete(ctx, 10, 1, "", "")
	assert.ErrorIs(t, err, ErrInvalidState)

	// con abonos históricos tampoco
	err = svc.Delete(ctx, 11, 1, "", "")
	assert.ErrorIs(t, err, ErrTieneHistorial)

	vr.historial[11] = 0
	err = svc.Delete(ctx, 11, 1, "", "")
	assert.NoError(t, err)
	_, err = svc.FindByID(ctx, 11)
	assert.Error(t, err)
}
