package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rmoralesv/viviendas-api/internal/jobs"
	"github.com/rmoralesv/viviendas-api/internal/models"
)

func (f *fakeClienteRepo) Create(ctx context.Context, cliente *models.Cliente) error {
	cliente.ID = uint(len(f.clientes) + 100)
	for i := range cliente.Fuentes {
		cliente.Fuentes[i].ID = uint(i + 1)
		cliente.Fuentes[i].ClienteID = cliente.ID
	}
	for i := range cliente.Hitos {
		cliente.Hitos[i].ID = uint(i + 1)
		cliente.Hitos[i].ClienteID = cliente.ID
	}
	copia := *cliente
	f.clientes[cliente.ID] = &copia
	return nil
}

func (f *fakeClienteRepo) ReplaceFuentes(ctx context.Context, clienteID uint, fuentes []models.FuenteFinanciera) error {
	c, ok := f.clientes[clienteID]
	if !ok {
		return ErrNotFound
	}
	for i := range fuentes {
		fuentes[i].ID = uint(i + 1)
		fuentes[i].ClienteID = clienteID
	}
	c.Fuentes = fuentes
	return nil
}

func (f *fakeClienteRepo) UpdateHito(ctx context.Context, hito *models.Hito) error {
	c, ok := f.clientes[hito.ClienteID]
	if !ok {
		return ErrNotFound
	}
	for i := range c.Hitos {
		if c.Hitos[i].Nombre == hito.Nombre {
			c.Hitos[i] = *hito
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeClienteRepo) Delete(ctx context.Context, id uint) error {
	delete(f.clientes, id)
	return nil
}

func newClienteService(cr *fakeClienteRepo, vr *fakeViviendaRepo, ar *fakeAbonoRepo, rr *fakeRenunciaRepo, worker *jobs.Worker) *ClienteService {
	notifSvc := NewNotificationService(&fakeNotificationRepo{}, &fakeUserRepo{})
	return NewClienteService(cr, vr, ar, rr, notifSvc, NewAuditService(nil), worker, nil)
}

// clienteWorld: vivienda 11 disponible de 100M, sin clientes
func clienteWorld() (*fakeAbonoRepo, *fakeClienteRepo, *fakeViviendaRepo, *fakeRenunciaRepo) {
	vivienda := &models.Vivienda{
		ID:             11,
		ProyectoID:     1,
		Manzana:        "C",
		NumeroCasa:     7,
		ValorBase:      100000000,
		Status:         models.ViviendaStatusDisponible,
		SaldoPendiente: 100000000,
	}
	return &fakeAbonoRepo{},
		&fakeClienteRepo{clientes: map[uint]*models.Cliente{}},
		&fakeViviendaRepo{viviendas: map[uint]*models.Vivienda{11: vivienda}},
		&fakeRenunciaRepo{}
}

func planCompleto() []FuenteInput {
	return []FuenteInput{
		{Tipo: models.FuenteCuotaInicial, Monto: 20000000},
		{Tipo: models.FuenteCredito, Monto: 80000000},
	}
}

func TestClienteService_CreateAsignaVivienda(t *testing.T) {
	ar, cr, vr, rr := clienteWorld()
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newClienteService(cr, vr, ar, rr, worker)

	cliente, err := svc.Create(context.Background(), &ClienteInput{
		Nombres:      "Pedro",
		Apellidos:    "Rueda",
		Cedula:       "80123456",
		FechaIngreso: time.Now(),
		ViviendaID:   11,
		Fuentes:      planCompleto(),
	}, 1, "127.0.0.1", "test")

	assert.NoError(t, err)
	assert.Equal(t, models.ClienteStatusActivo, cliente.Status)
	assert.Equal(t, uint(11), *cliente.ViviendaID)
	assert.Len(t, cliente.Hitos, len(models.HitosDefault()))

	v := vr.viviendas[11]
	assert.Equal(t, models.ViviendaStatusAsignada, v.Status)
	assert.Equal(t, cliente.ID, *v.ClienteID)
	assert.Equal(t, float64(100000000), v.SaldoPendiente)
}

func TestClienteService_CreateRechazaPlanQueNoCuadra(t *testing.T) {
	ar, cr, vr, rr := clienteWorld()
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newClienteService(cr, vr, ar, rr, worker)

	_, err := svc.Create(context.Background(), &ClienteInput{
		Nombres: "Pedro", Apellidos: "Rueda", Cedula: "80123456",
		FechaIngreso: time.Now(), ViviendaID: 11,
		Fuentes: []FuenteInput{
			{Tipo: models.FuenteCuotaInicial, Monto: 20000000},
			{Tipo: models.FuenteCredito, Monto: 70000000},
		},
	}, 1, "", "")

	ve, ok := IsValidationError(err)
	assert.True(t, ok)
	assert.Contains(t, ve.Fields, "fuentes")
	assert.Empty(t, cr.clientes)
	assert.Equal(t, models.ViviendaStatusDisponible, vr.viviendas[11].Status)
}

func TestClienteService_CreateRechazaFuenteRepetida(t *testing.T) {
	ar, cr, vr, rr := clienteWorld()
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newClienteService(cr, vr, ar, rr, worker)

	_, err := svc.Create(context.Background(), &ClienteInput{
		Nombres: "Pedro", Apellidos: "Rueda", Cedula: "80123456",
		FechaIngreso: time.Now(), ViviendaID: 11,
		Fuentes: []FuenteInput{
			{Tipo: models.FuenteCredito, Monto: 50000000},
			{Tipo: models.FuenteCredito, Monto: 50000000},
		},
	}, 1, "", "")

	_, ok := IsValidationError(err)
	assert.True(t, ok)
}

func TestClienteService_CreateViviendaOcupada(t *testing.T) {
	ar, cr, vr, rr := clienteWorld()
	otro := uint(5)
	vr.viviendas[11].Status = models.ViviendaStatusAsignada
	vr.viviendas[11].ClienteID = &otro
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newClienteService(cr, vr, ar, rr, worker)

	_, err := svc.Create(context.Background(), &ClienteInput{
		Nombres: "Pedro", Apellidos: "Rueda", Cedula: "80123456",
		FechaIngreso: time.Now(), ViviendaID: 11,
		Fuentes: planCompleto(),
	}, 1, "", "")

	assert.ErrorIs(t, err, ErrViviendaNoDisponible)
	assert.Empty(t, cr.clientes)
}

func TestClienteService_UpdateNoPermiteCambiarVivienda(t *testing.T) {
	ar, cr, vr, rr := clienteWorld()
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newClienteService(cr, vr, ar, rr, worker)
	ctx := context.Background()

	cliente, err := svc.Create(ctx, &ClienteInput{
		Nombres: "Pedro", Apellidos: "Rueda", Cedula: "80123456",
		FechaIngreso: time.Now(), ViviendaID: 11, Fuentes: planCompleto(),
	}, 1, "", "")
	assert.NoError(t, err)

	_, err = svc.Update(ctx, cliente.ID, &ClienteInput{
		Nombres: "Pedro", Apellidos: "Rueda", Cedula: "80123456",
		FechaIngreso: time.Now(), ViviendaID: 99, Fuentes: planCompleto(),
	}, 1, "", "")

	ve, ok := IsValidationError(err)
	assert.True(t, ok)
	assert.Contains(t, ve.Fields, "vivienda_id")
}

func TestClienteService_UpdateCongeladoConFacturaVenta(t *testing.T) {
	ar, cr, vr, rr := clienteWorld()
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newClienteService(cr, vr, ar, rr, worker)
	ctx := context.Background()

	cliente, err := svc.Create(ctx, &ClienteInput{
		Nombres: "Pedro", Apellidos: "Rueda", Cedula: "80123456",
		FechaIngreso: time.Now(), ViviendaID: 11, Fuentes: planCompleto(),
	}, 1, "", "")
	assert.NoError(t, err)

	_, err = svc.CompletarHito(ctx, cliente.ID, models.HitoFacturaVenta, nil, 1, "", "")
	assert.NoError(t, err)

	_, err = svc.Update(ctx, cliente.ID, &ClienteInput{
		Nombres: "Pedro Luis", Apellidos: "Rueda", Cedula: "80123456",
		FechaIngreso: time.Now(), ViviendaID: 11, Fuentes: planCompleto(),
	}, 1, "", "")
	assert.ErrorIs(t, err, ErrProcesoFinalizado)
}

func TestClienteService_UpdateNoEncogeFuenteConAbonos(t *testing.T) {
	ar, cr, vr, rr := clienteWorld()
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newClienteService(cr, vr, ar, rr, worker)
	ctx := context.Background()

	cliente, err := svc.Create(ctx, &ClienteInput{
		Nombres: "Pedro", Apellidos: "Rueda", Cedula: "80123456",
		FechaIngreso: time.Now(), ViviendaID: 11, Fuentes: planCompleto(),
	}, 1, "", "")
	assert.NoError(t, err)

	ar.abonos = append(ar.abonos, models.Abono{
		ID: 1, ClienteID: cliente.ID, ViviendaID: 11, Consecutivo: 1,
		Fuente: models.FuenteCuotaInicial, Monto: 15000000,
		MetodoPago: "Efectivo", EstadoProceso: models.AbonoStatusActivo,
		FechaPago: time.Now(),
	})

	_, err = svc.Update(ctx, cliente.ID, &ClienteInput{
		Nombres: "Pedro", Apellidos: "Rueda", Cedula: "80123456",
		FechaIngreso: time.Now(), ViviendaID: 11,
		Fuentes: []FuenteInput{
			{Tipo: models.FuenteCuotaInicial, Monto: 10000000},
			{Tipo: models.FuenteCredito, Monto: 90000000},
		},
	}, 1, "", "")

	ve, ok := IsValidationError(err)
	assert.True(t, ok)
	assert.Contains(t, ve.Fields, "fuentes")
}

func TestClienteService_CompletarHitoDosVeces(t *testing.T) {
	ar, cr, vr, rr := clienteWorld()
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newClienteService(cr, vr, ar, rr, worker)
	ctx := context.Background()

	cliente, err := svc.Create(ctx, &ClienteInput{
		Nombres: "Pedro", Apellidos: "Rueda", Cedula: "80123456",
		FechaIngreso: time.Now(), ViviendaID: 11, Fuentes: planCompleto(),
	}, 1, "", "")
	assert.NoError(t, err)

	actualizado, err := svc.CompletarHito(ctx, cliente.ID, models.HitoPromesaCompraventa, nil, 1, "", "")
	assert.NoError(t, err)
	assert.True(t, actualizado.HitoCompletado(models.HitoPromesaCompraventa))

	_, err = svc.CompletarHito(ctx, cliente.ID, models.HitoPromesaCompraventa, nil, 1, "", "")
	_, ok := IsValidationError(err)
	assert.True(t, ok)
}

func TestClienteService_ReactivarConNuevaVivienda(t *testing.T) {
	ar, cr, vr, rr := clienteWorld()
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newClienteService(cr, vr, ar, rr, worker)
	ctx := context.Background()

	now := time.Now()
	cr.clientes[30] = &models.Cliente{
		ID: 30, Nombres: "Rosa", Apellidos: "Niño", Cedula: "39456123",
		Status: models.ClienteStatusRenunciado,
		Hitos: []models.Hito{
			{ID: 1, ClienteID: 30, Nombre: models.HitoPromesaCompraventa, Orden: 1, Completado: true, Fecha: &now},
		},
	}

	cliente, err := svc.Reactivar(ctx, 30, 11, planCompleto(), 1, "", "")
	assert.NoError(t, err)
	assert.Equal(t, models.ClienteStatusActivo, cliente.Status)
	assert.Equal(t, uint(11), *cliente.ViviendaID)
	// el proceso arranca de cero
	assert.False(t, cliente.HitoCompletado(models.HitoPromesaCompraventa))

	v := vr.viviendas[11]
	assert.Equal(t, models.ViviendaStatusAsignada, v.Status)
	assert.Equal(t, float64(0), v.TotalAbonado)
	assert.Equal(t, float64(100000000), v.SaldoPendiente)
}

func TestClienteService_ArchivarYDelete(t *testing.T) {
	ar, cr, vr, rr := clienteWorld()
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newClienteService(cr, vr, ar, rr, worker)
	ctx := context.Background()

	cr.clientes[30] = &models.Cliente{
		ID: 30, Nombres: "Rosa", Apellidos: "Niño", Cedula: "39456123",
		Status: models.ClienteStatusRenunciado,
	}

	archivado, err := svc.Archivar(ctx, 30, 1, "", "")
	assert.NoError(t, err)
	assert.Equal(t, models.ClienteStatusInactivo, archivado.Status)

	// con historial de abonos no se elimina
	ar.abonos = append(ar.abonos, models.Abono{
		ID: 1, ClienteID: 30, ViviendaID: 11, Consecutivo: 1,
		Fuente: models.FuenteCuotaInicial, Monto: 1000,
		EstadoProceso: models.AbonoStatusArchivado, FechaPago: time.Now(),
	})
	err = svc.Delete(ctx, 30, 1, "", "")
	assert.ErrorIs(t, err, ErrTieneHistorial)

	ar.abonos = nil
	err = svc.Delete(ctx, 30, 1, "", "")
	assert.NoError(t, err)
	_, err = svc.FindByID(ctx, 30)
	assert.Error(t, err)
}

func TestClienteService_DeleteBloqueadoConRenuncias(t *testing.T) {
	ar, cr, vr, rr := clienteWorld()
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newClienteService(cr, vr, ar, rr, worker)
	ctx := context.Background()

	// renunció antes de abonar un peso: sin abonos, pero con historial
	cr.clientes[30] = &models.Cliente{
		ID: 30, Nombres: "Rosa", Apellidos: "Niño", Cedula: "39456123",
		Status: models.ClienteStatusInactivo,
	}
	rr.renuncias = append(rr.renuncias, models.Renuncia{
		ID: 1, ClienteID: 30, ViviendaID: 11,
		EstadoDevolucion: models.RenunciaStatusPagada,
	})

	err := svc.Delete(ctx, 30, 1, "", "")
	assert.ErrorIs(t, err, ErrTieneHistorial)

	_, err = svc.FindByID(ctx, 30)
	assert.NoError(t, err)
}

func TestClienteService_DeleteSoloInactivos(t *testing.T) {
	ar, cr, vr, rr := clienteWorld()
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newClienteService(cr, vr, ar, rr, worker)

	cr.clientes[30] = &models.Cliente{
		ID: 30, Nombres: "Rosa", Apellidos: "Niño", Cedula: "39456123",
		Status: models.ClienteStatusActivo,
	}

	err := svc.Delete(context.Background(), 30, 1, "", "")
	assert.ErrorIs(t, err, ErrInvalidState)
}
