package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/rmoralesv/viviendas-api/internal/jobs"
	"github.com/rmoralesv/viviendas-api/internal/models"
	"github.com/rmoralesv/viviendas-api/internal/repository"
)

type fakeRenunciaRepo struct {
	repository.RenunciaRepository
	renuncias []models.Renuncia
	nextID    uint
}

func (f *fakeRenunciaRepo) find(id uint) *models.Renuncia {
	for i := range f.renuncias {
		if f.renuncias[i].ID == id {
			return &f.renuncias[i]
		}
	}
	return nil
}

func (f *fakeRenunciaRepo) FindByID(ctx context.Context, id uint) (*models.Renuncia, error) {
	if r := f.find(id); r != nil {
		copia := *r
		return &copia, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRenunciaRepo) Create(ctx context.Context, renuncia *models.Renuncia) error {
	f.nextID++
	renuncia.ID = f.nextID
	f.renuncias = append(f.renuncias, *renuncia)
	return nil
}

func (f *fakeRenunciaRepo) Update(ctx context.Context, renuncia *models.Renuncia) error {
	if r := f.find(renuncia.ID); r != nil {
		*r = *renuncia
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRenunciaRepo) FindByCliente(ctx context.Context, clienteID uint) ([]models.Renuncia, error) {
	var out []models.Renuncia
	for i := range f.renuncias {
		if f.renuncias[i].ClienteID == clienteID {
			out = append(out, f.renuncias[i])
		}
	}
	return out, nil
}

func (f *fakeRenunciaRepo) HasPendienteByCliente(ctx context.Context, clienteID uint) (bool, error) {
	for i := range f.renuncias {
		if f.renuncias[i].ClienteID == clienteID && f.renuncias[i].EstadoDevolucion == models.RenunciaStatusPendiente {
			return true, nil
		}
	}
	return false, nil
}

func newRenunciaService(rr *fakeRenunciaRepo, cr *fakeClienteRepo, vr *fakeViviendaRepo, ar *fakeAbonoRepo, worker *jobs.Worker) *RenunciaService {
	notifSvc := NewNotificationService(&fakeNotificationRepo{}, &fakeUserRepo{})
	return NewRenunciaService(rr, cr, vr, ar, notifSvc, NewAuditService(nil), worker, nil)
}

// seedAbonos puts three active abonos of 1M each and one condonación of
// 500k on the test cliente's cycle
func seedAbonos(ar *fakeAbonoRepo) {
	for i := 0; i < 3; i++ {
		ar.abonos = append(ar.abonos, models.Abono{
			ID: uint(i + 1), ClienteID: 20, ViviendaID: 10, Consecutivo: i + 1,
			Fuente: models.FuenteCuotaInicial, Monto: 1000000,
			MetodoPago: "Transferencia", EstadoProceso: models.AbonoStatusActivo,
			FechaPago: time.Now(),
		})
	}
	ar.abonos = append(ar.abonos, models.Abono{
		ID: 4, ClienteID: 20, ViviendaID: 10, Consecutivo: 4,
		Fuente: models.FuenteCredito, Monto: 500000,
		MetodoPago: models.MetodoPagoCondonacion, EstadoProceso: models.AbonoStatusActivo,
		FechaPago: time.Now(),
	})
	ar.nextID = 4
}

func TestRenunciaService_IniciarCalculaDevolucion(t *testing.T) {
	ar, cr, vr := testWorld()
	seedAbonos(ar)
	rr := &fakeRenunciaRepo{}
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newRenunciaService(rr, cr, vr, ar, worker)
	motivo := "penalidad administrativa"

	renuncia, err := svc.Iniciar(context.Background(), &RenunciaInput{
		ClienteID:       20,
		Motivo:          "Motivos personales",
		FechaRenuncia:   time.Now(),
		PenalidadMonto:  500000,
		PenalidadMotivo: &motivo,
	}, 1, "127.0.0.1", "test")

	assert.NoError(t, err)
	// la condonación de 500k no entra en la devolución
	assert.Equal(t, float64(2500000), renuncia.TotalAbonadoParaDevolucion)
	assert.Equal(t, models.RenunciaStatusPendiente, renuncia.EstadoDevolucion)
	assert.NotEmpty(t, renuncia.GUID)
	assert.Equal(t, "Elena Mora", renuncia.ClienteNombre)

	// la vivienda quedó libre y con balances en cero
	v := vr.viviendas[10]
	assert.Equal(t, models.ViviendaStatusDisponible, v.Status)
	assert.Nil(t, v.ClienteID)
	assert.Equal(t, float64(0), v.TotalAbonado)

	// el cliente quedó renunciado y sin vivienda
	c := cr.clientes[20]
	assert.Equal(t, models.ClienteStatusRenunciado, c.Status)
	assert.Nil(t, c.ViviendaID)

	// los abonos del ciclo quedaron archivados y amarrados a la renuncia
	for i := range ar.abonos {
		assert.Equal(t, models.AbonoStatusArchivado, ar.abonos[i].EstadoProceso)
		assert.Equal(t, renuncia.ID, *ar.abonos[i].RenunciaID)
	}
}

func TestRenunciaService_IniciarRechazaPenalidadExcesiva(t *testing.T) {
	ar, cr, vr := testWorld()
	seedAbonos(ar)
	rr := &fakeRenunciaRepo{}
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newRenunciaService(rr, cr, vr, ar, worker)
	motivo := "penalidad"

	// el total real es 3M (la condonación no cuenta), 3.5M no cabe
	_, err := svc.Iniciar(context.Background(), &RenunciaInput{
		ClienteID:       20,
		Motivo:          "Motivos personales",
		FechaRenuncia:   time.Now(),
		PenalidadMonto:  3500000,
		PenalidadMotivo: &motivo,
	}, 1, "", "")

	ve, ok := IsValidationError(err)
	assert.True(t, ok)
	assert.Contains(t, ve.Fields, "penalidad_monto")

	// nada cambió
	assert.Equal(t, models.ClienteStatusActivo, cr.clientes[20].Status)
	assert.Equal(t, models.ViviendaStatusAsignada, vr.viviendas[10].Status)
	assert.Empty(t, rr.renuncias)
	for i := range ar.abonos {
		assert.Equal(t, models.AbonoStatusActivo, ar.abonos[i].EstadoProceso)
	}
}

func TestRenunciaService_IniciarBloqueadaPorFacturaVenta(t *testing.T) {
	ar, cr, vr := testWorld()
	seedAbonos(ar)
	rr := &fakeRenunciaRepo{}
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newRenunciaService(rr, cr, vr, ar, worker)

	cliente := cr.clientes[20]
	now := time.Now()
	for i := range cliente.Hitos {
		if cliente.Hitos[i].Nombre == models.HitoFacturaVenta {
			cliente.Hitos[i].Completado = true
			cliente.Hitos[i].Fecha = &now
		}
	}

	_, err := svc.Iniciar(context.Background(), &RenunciaInput{
		ClienteID:     20,
		Motivo:        "Motivos personales",
		FechaRenuncia: time.Now(),
	}, 1, "", "")

	assert.ErrorIs(t, err, ErrProcesoFinalizado)
}

func TestRenunciaService_IniciarMotivoOtroExigeObservacion(t *testing.T) {
	ar, cr, vr := testWorld()
	rr := &fakeRenunciaRepo{}
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newRenunciaService(rr, cr, vr, ar, worker)

	_, err := svc.Iniciar(context.Background(), &RenunciaInput{
		ClienteID:     20,
		Motivo:        models.RenunciaMotivoOtro,
		FechaRenuncia: time.Now(),
	}, 1, "", "")

	ve, ok := IsValidationError(err)
	assert.True(t, ok)
	assert.Contains(t, ve.Fields, "observacion")
}

func TestRenunciaService_CancelarRestauraTodo(t *testing.T) {
	ar, cr, vr := testWorld()
	seedAbonos(ar)
	rr := &fakeRenunciaRepo{}
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newRenunciaService(rr, cr, vr, ar, worker)
	ctx := context.Background()

	renuncia, err := svc.Iniciar(ctx, &RenunciaInput{
		ClienteID:     20,
		Motivo:        "Motivos personales",
		FechaRenuncia: time.Now(),
	}, 1, "", "")
	assert.NoError(t, err)

	cancelada, err := svc.Cancelar(ctx, renuncia.ID, "el cliente se retractó", 1, "", "")
	assert.NoError(t, err)
	assert.Equal(t, models.RenunciaStatusCancelada, cancelada.EstadoDevolucion)
	assert.NotNil(t, cancelada.CanceladaAt)

	// vivienda reasignada con los balances reconstruidos (3M + 500k condonación)
	v := vr.viviendas[10]
	assert.Equal(t, models.ViviendaStatusAsignada, v.Status)
	assert.Equal(t, uint(20), *v.ClienteID)
	assert.Equal(t, float64(3500000), v.TotalAbonado)

	// cliente activo con su vivienda de vuelta
	c := cr.clientes[20]
	assert.Equal(t, models.ClienteStatusActivo, c.Status)
	assert.Equal(t, uint(10), *c.ViviendaID)

	// abonos del ciclo de vuelta en activo
	for i := range ar.abonos {
		assert.Equal(t, models.AbonoStatusActivo, ar.abonos[i].EstadoProceso)
		assert.Nil(t, ar.abonos[i].RenunciaID)
	}
}

func TestRenunciaService_CancelarFallaSiViviendaOcupada(t *testing.T) {
	ar, cr, vr := testWorld()
	seedAbonos(ar)
	rr := &fakeRenunciaRepo{}
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newRenunciaService(rr, cr, vr, ar, worker)
	ctx := context.Background()

	renuncia, err := svc.Iniciar(ctx, &RenunciaInput{
		ClienteID:     20,
		Motivo:        "Motivos personales",
		FechaRenuncia: time.Now(),
	}, 1, "", "")
	assert.NoError(t, err)

	// otro cliente toma la vivienda mientras la renuncia sigue pendiente
	otro := uint(99)
	vr.viviendas[10].Status = models.ViviendaStatusAsignada
	vr.viviendas[10].ClienteID = &otro

	_, err = svc.Cancelar(ctx, renuncia.ID, "se retractó", 1, "", "")
	assert.ErrorIs(t, err, ErrViviendaNoDisponible)

	// nada se movió
	guardada, _ := rr.FindByID(ctx, renuncia.ID)
	assert.Equal(t, models.RenunciaStatusPendiente, guardada.EstadoDevolucion)
	assert.Equal(t, models.ClienteStatusRenunciado, cr.clientes[20].Status)
	for i := range ar.abonos {
		assert.Equal(t, models.AbonoStatusArchivado, ar.abonos[i].EstadoProceso)
	}
}

func TestRenunciaService_MarcarPagadaEsTerminal(t *testing.T) {
	ar, cr, vr := testWorld()
	seedAbonos(ar)
	rr := &fakeRenunciaRepo{}
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newRenunciaService(rr, cr, vr, ar, worker)
	ctx := context.Background()

	renuncia, err := svc.Iniciar(ctx, &RenunciaInput{
		ClienteID:     20,
		Motivo:        "Traslado de ciudad",
		FechaRenuncia: time.Now(),
	}, 1, "", "")
	assert.NoError(t, err)

	pagada, err := svc.MarcarPagada(ctx, renuncia.ID, 1, "", "")
	assert.NoError(t, err)
	assert.Equal(t, models.RenunciaStatusPagada, pagada.EstadoDevolucion)
	assert.NotNil(t, pagada.PagadaAt)

	// una renuncia pagada no se puede cancelar
	_, err = svc.Cancelar(ctx, renuncia.ID, "tarde", 1, "", "")
	assert.ErrorIs(t, err, ErrInvalidState)
}
