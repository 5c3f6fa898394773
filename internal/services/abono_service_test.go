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
	"github.com/rmoralesv/viviendas-api/pkg/logger"
)

func init() {
	logger.Setup("test")
}

// Stateful fake AbonoRepository (embedding to avoid implementing all methods)
type fakeAbonoRepo struct {
	repository.AbonoRepository
	abonos []models.Abono
	nextID uint
}

func (f *fakeAbonoRepo) find(id uint) *models.Abono {
	for i := range f.abonos {
		if f.abonos[i].ID == id {
			return &f.abonos[i]
		}
	}
	return nil
}

func (f *fakeAbonoRepo) FindByID(ctx context.Context, id uint) (*models.Abono, error) {
	if a := f.find(id); a != nil {
		copia := *a
		return &copia, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAbonoRepo) Create(ctx context.Context, abono *models.Abono) error {
	f.nextID++
	abono.ID = f.nextID
	f.abonos = append(f.abonos, *abono)
	return nil
}

func (f *fakeAbonoRepo) Update(ctx context.Context, abono *models.Abono) error {
	if a := f.find(abono.ID); a != nil {
		*a = *abono
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeAbonoRepo) NextConsecutivo(ctx context.Context) (int, error) {
	max := 0
	for i := range f.abonos {
		if f.abonos[i].Consecutivo > max {
			max = f.abonos[i].Consecutivo
		}
	}
	return max + 1, nil
}

func (f *fakeAbonoRepo) SumActivosPorFuente(ctx context.Context, clienteID uint, fuente string, excludeID uint) (float64, error) {
	var total float64
	for i := range f.abonos {
		a := &f.abonos[i]
		if a.ClienteID == clienteID && a.Fuente == fuente && a.EsActivo() && a.ID != excludeID {
			total += a.Monto
		}
	}
	return total, nil
}

func (f *fakeAbonoRepo) FindCicloActivo(ctx context.Context, clienteID, viviendaID uint) ([]models.Abono, error) {
	var out []models.Abono
	for i := range f.abonos {
		a := f.abonos[i]
		if a.ClienteID == clienteID && a.ViviendaID == viviendaID && a.EstadoProceso != models.AbonoStatusArchivado {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAbonoRepo) FindByCliente(ctx context.Context, clienteID uint) ([]models.Abono, error) {
	var out []models.Abono
	for i := range f.abonos {
		if f.abonos[i].ClienteID == clienteID {
			out = append(out, f.abonos[i])
		}
	}
	return out, nil
}

func (f *fakeAbonoRepo) ArchivarCiclo(ctx context.Context, clienteID, viviendaID, renunciaID uint) (int64, error) {
	var n int64
	for i := range f.abonos {
		a := &f.abonos[i]
		if a.ClienteID == clienteID && a.ViviendaID == viviendaID && a.EsActivo() {
			a.EstadoProceso = models.AbonoStatusArchivado
			rid := renunciaID
			a.RenunciaID = &rid
			n++
		}
	}
	return n, nil
}

func (f *fakeAbonoRepo) ReactivarCiclo(ctx context.Context, renunciaID uint) (int64, error) {
	var n int64
	for i := range f.abonos {
		a := &f.abonos[i]
		if a.RenunciaID != nil && *a.RenunciaID == renunciaID && a.EstadoProceso == models.AbonoStatusArchivado {
			a.EstadoProceso = models.AbonoStatusActivo
			a.RenunciaID = nil
			n++
		}
	}
	return n, nil
}

// Stateful fake ClienteRepository
type fakeClienteRepo struct {
	repository.ClienteRepository
	clientes map[uint]*models.Cliente
}

func (f *fakeClienteRepo) FindByID(ctx context.Context, id uint) (*models.Cliente, error) {
	if c, ok := f.clientes[id]; ok {
		copia := *c
		return &copia, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeClienteRepo) FindByIDWithDetails(ctx context.Context, id uint) (*models.Cliente, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeClienteRepo) Update(ctx context.Context, cliente *models.Cliente) error {
	copia := *cliente
	f.clientes[cliente.ID] = &copia
	return nil
}

// Stateful fake ViviendaRepository
type fakeViviendaRepo struct {
	repository.ViviendaRepository
	viviendas map[uint]*models.Vivienda
	historial map[uint]int64
}

func (f *fakeViviendaRepo) FindByID(ctx context.Context, id uint) (*models.Vivienda, error) {
	if v, ok := f.viviendas[id]; ok {
		copia := *v
		return &copia, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeViviendaRepo) Update(ctx context.Context, vivienda *models.Vivienda) error {
	copia := *vivienda
	f.viviendas[vivienda.ID] = &copia
	return nil
}

func (f *fakeViviendaRepo) UpdateBalances(ctx context.Context, id uint, totalAbonado, saldoPendiente float64) error {
	if v, ok := f.viviendas[id]; ok {
		v.TotalAbonado = totalAbonado
		v.SaldoPendiente = saldoPendiente
		return nil
	}
	return gorm.ErrRecordNotFound
}

// Fakes for the notification side
type fakeNotificationRepo struct {
	repository.NotificationRepository
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *models.Notification) error { return nil }

type fakeUserRepo struct {
	repository.UserRepository
}

func (f *fakeUserRepo) FindAll(ctx context.Context) ([]models.User, error)    { return nil, nil }
func (f *fakeUserRepo) FindAdmins(ctx context.Context) ([]models.User, error) { return nil, nil }

func uintPtr(v uint) *uint { return &v }

// testWorld wires a cliente with vivienda (valor 100M) and a funding plan
// of 20M cuotaInicial + 80M credito
func testWorld() (*fakeAbonoRepo, *fakeClienteRepo, *fakeViviendaRepo) {
	vivienda := &models.Vivienda{
		ID:             10,
		ProyectoID:     1,
		Manzana:        "B",
		NumeroCasa:     4,
		ValorBase:      100000000,
		Status:         models.ViviendaStatusAsignada,
		ClienteID:      uintPtr(20),
		SaldoPendiente: 100000000,
	}
	cliente := &models.Cliente{
		ID:           20,
		Nombres:      "Elena",
		Apellidos:    "Mora",
		Cedula:       "52436871",
		Status:       models.ClienteStatusActivo,
		FechaIngreso: time.Now().AddDate(0, -6, 0),
		ViviendaID:   uintPtr(10),
		Fuentes: []models.FuenteFinanciera{
			{ID: 1, ClienteID: 20, Tipo: models.FuenteCuotaInicial, Monto: 20000000},
			{ID: 2, ClienteID: 20, Tipo: models.FuenteCredito, Monto: 80000000},
		},
		Hitos: models.HitosDefault(),
	}

	return &fakeAbonoRepo{},
		&fakeClienteRepo{clientes: map[uint]*models.Cliente{20: cliente}},
		&fakeViviendaRepo{viviendas: map[uint]*models.Vivienda{10: vivienda}}
}

func newAbonoService(ar *fakeAbonoRepo, cr *fakeClienteRepo, vr *fakeViviendaRepo, worker *jobs.Worker) *AbonoService {
	notifSvc := NewNotificationService(&fakeNotificationRepo{}, &fakeUserRepo{})
	return NewAbonoService(ar, cr, vr, notifSvc, NewAuditService(nil), worker, nil)
}

func TestAbonoService_CreateActualizaBalances(t *testing.T) {
	ar, cr, vr := testWorld()
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newAbonoService(ar, cr, vr, worker)

	abono, err := svc.Create(context.Background(), &AbonoInput{
		ClienteID:  20,
		Fuente:     models.FuenteCuotaInicial,
		Monto:      5000000,
		FechaPago:  time.Now(),
		MetodoPago: "Transferencia",
	}, 1, "127.0.0.1", "test")

	assert.NoError(t, err)
	assert.Equal(t, 1, abono.Consecutivo)
	assert.Equal(t, models.AbonoStatusActivo, abono.EstadoProceso)

	v := vr.viviendas[10]
	assert.Equal(t, float64(5000000), v.TotalAbonado)
	assert.Equal(t, float64(95000000), v.SaldoPendiente)
}

func TestAbonoService_CreateRechazaSobrepagoFuente(t *testing.T) {
	ar, cr, vr := testWorld()
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newAbonoService(ar, cr, vr, worker)
	ctx := context.Background()

	_, err := svc.Create(ctx, &AbonoInput{
		ClienteID: 20, Fuente: models.FuenteCuotaInicial, Monto: 18000000,
		FechaPago: time.Now(), MetodoPago: "Efectivo",
	}, 1, "", "")
	assert.NoError(t, err)

	// la cuota inicial pactada es 20M; ya van 18M
	_, err = svc.Create(ctx, &AbonoInput{
		ClienteID: 20, Fuente: models.FuenteCuotaInicial, Monto: 3000000,
		FechaPago: time.Now(), MetodoPago: "Efectivo",
	}, 1, "", "")

	ve, ok := IsValidationError(err)
	assert.True(t, ok)
	assert.Contains(t, ve.Fields, "monto")
	assert.Len(t, ar.abonos, 1)
}

func TestAbonoService_CreateRechazaFuenteFueraDelPlan(t *testing.T) {
	ar, cr, vr := testWorld()
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newAbonoService(ar, cr, vr, worker)

	_, err := svc.Create(context.Background(), &AbonoInput{
		ClienteID: 20, Fuente: models.FuenteSubsidioCaja, Monto: 1000000,
		FechaPago: time.Now(), MetodoPago: "Efectivo",
	}, 1, "", "")

	ve, ok := IsValidationError(err)
	assert.True(t, ok)
	assert.Contains(t, ve.Fields, "fuente")
}

func TestAbonoService_CreateRechazaMontoNoPositivo(t *testing.T) {
	ar, cr, vr := testWorld()
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newAbonoService(ar, cr, vr, worker)

	_, err := svc.Create(context.Background(), &AbonoInput{
		ClienteID: 20, Fuente: models.FuenteCredito, Monto: 0,
		FechaPago: time.Now(), MetodoPago: "Efectivo",
	}, 1, "", "")

	_, ok := IsValidationError(err)
	assert.True(t, ok)
}

func TestAbonoService_CreateRechazaFechaFueraDeRango(t *testing.T) {
	ar, cr, vr := testWorld()
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newAbonoService(ar, cr, vr, worker)
	ctx := context.Background()

	// anterior al ingreso del cliente (hace 6 meses)
	_, err := svc.Create(ctx, &AbonoInput{
		ClienteID: 20, Fuente: models.FuenteCuotaInicial, Monto: 1000000,
		FechaPago: time.Now().AddDate(-2, 0, 0), MetodoPago: "Efectivo",
	}, 1, "", "")
	ve, ok := IsValidationError(err)
	assert.True(t, ok)
	assert.Contains(t, ve.Fields, "fecha_pago")

	// posterior a hoy
	_, err = svc.Create(ctx, &AbonoInput{
		ClienteID: 20, Fuente: models.FuenteCuotaInicial, Monto: 1000000,
		FechaPago: time.Now().AddDate(1, 0, 0), MetodoPago: "Efectivo",
	}, 1, "", "")
	ve, ok = IsValidationError(err)
	assert.True(t, ok)
	assert.Contains(t, ve.Fields, "fecha_pago")

	assert.Empty(t, ar.abonos)
}

func TestAbonoService_AnularYRevertirRecalculan(t *testing.T) {
	ar, cr, vr := testWorld()
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newAbonoService(ar, cr, vr, worker)
	ctx := context.Background()

	abono, err := svc.Create(ctx, &AbonoInput{
		ClienteID: 20, Fuente: models.FuenteCuotaInicial, Monto: 5000000,
		FechaPago: time.Now(), MetodoPago: "Transferencia",
	}, 1, "", "")
	assert.NoError(t, err)

	anulado, err := svc.Anular(ctx, abono.ID, "error de digitación", 1, "", "")
	assert.NoError(t, err)
	assert.Equal(t, models.AbonoStatusAnulado, anulado.EstadoProceso)
	assert.Equal(t, float64(0), vr.viviendas[10].TotalAbonado)
	assert.Equal(t, float64(100000000), vr.viviendas[10].SaldoPendiente)

	// anular dos veces no es posible
	_, err = svc.Anular(ctx, abono.ID, "otra vez", 1, "", "")
	assert.ErrorIs(t, err, ErrInvalidState)

	revertido, err := svc.Revertir(ctx, abono.ID, 1, "", "")
	assert.NoError(t, err)
	assert.Equal(t, models.AbonoStatusActivo, revertido.EstadoProceso)
	assert.Nil(t, revertido.MotivoAnulacion)
	assert.Equal(t, float64(5000000), vr.viviendas[10].TotalAbonado)
}

func TestAbonoService_AnularExigeMotivo(t *testing.T) {
	ar, cr, vr := testWorld()
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newAbonoService(ar, cr, vr, worker)

	_, err := svc.Anular(context.Background(), 1, "", 1, "", "")
	_, ok := IsValidationError(err)
	assert.True(t, ok)
}

func TestAbonoService_AnularBloqueadoConFacturaVenta(t *testing.T) {
	ar, cr, vr := testWorld()
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newAbonoService(ar, cr, vr, worker)
	ctx := context.Background()

	abono, err := svc.Create(ctx, &AbonoInput{
		ClienteID: 20, Fuente: models.FuenteCuotaInicial, Monto: 5000000,
		FechaPago: time.Now(), MetodoPago: "Efectivo",
	}, 1, "", "")
	assert.NoError(t, err)

	// con la factura de venta emitida la venta queda cerrada
	cliente := cr.clientes[20]
	for i := range cliente.Hitos {
		if cliente.Hitos[i].Nombre == models.HitoFacturaVenta {
			cliente.Hitos[i].Completado = true
		}
	}

	_, err = svc.Anular(ctx, abono.ID, "error de digitación", 1, "", "")
	assert.ErrorIs(t, err, ErrProcesoFinalizado)
	assert.Equal(t, models.AbonoStatusActivo, ar.find(abono.ID).EstadoProceso)
}

func TestAbonoService_RevertirRechazadoSiYaNoCabe(t *testing.T) {
	ar, cr, vr := testWorld()
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newAbonoService(ar, cr, vr, worker)
	ctx := context.Background()

	primero, err := svc.Create(ctx, &AbonoInput{
		ClienteID: 20, Fuente: models.FuenteCuotaInicial, Monto: 15000000,
		FechaPago: time.Now(), MetodoPago: "Efectivo",
	}, 1, "", "")
	assert.NoError(t, err)

	_, err = svc.Anular(ctx, primero.ID, "registro equivocado", 1, "", "")
	assert.NoError(t, err)

	// otro abono ocupa el cupo de la fuente
	_, err = svc.Create(ctx, &AbonoInput{
		ClienteID: 20, Fuente: models.FuenteCuotaInicial, Monto: 10000000,
		FechaPago: time.Now(), MetodoPago: "Efectivo",
	}, 1, "", "")
	assert.NoError(t, err)

	_, err = svc.Revertir(ctx, primero.ID, 1, "", "")
	_, ok := IsValidationError(err)
	assert.True(t, ok)

	// el abono sigue anulado
	quieto, _ := ar.FindByID(ctx, primero.ID)
	assert.Equal(t, models.AbonoStatusAnulado, quieto.EstadoProceso)
}

func TestAbonoService_CondonacionCuentaParaElSaldo(t *testing.T) {
	ar, cr, vr := testWorld()
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()
	svc := newAbonoService(ar, cr, vr, worker)
	ctx := context.Background()

	_, err := svc.Create(ctx, &AbonoInput{
		ClienteID: 20, Fuente: models.FuenteCredito, Monto: 2000000,
		FechaPago: time.Now(), MetodoPago: models.MetodoPagoCondonacion,
	}, 1, "", "")
	assert.NoError(t, err)

	assert.Equal(t, float64(2000000), vr.viviendas[10].TotalAbonado)
	assert.Equal(t, float64(98000000), vr.viviendas[10].SaldoPendiente)
}
