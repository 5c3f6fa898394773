package readmodel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rmoralesv/viviendas-api/internal/datasync"
	"github.com/rmoralesv/viviendas-api/internal/models"
	"github.com/rmoralesv/viviendas-api/internal/repository"
)

type mockProyectoRepo struct {
	repository.ProyectoRepository
	rows []models.Proyecto
}

func (m *mockProyectoRepo) FindAll(ctx context.Context) ([]models.Proyecto, error) {
	return m.rows, nil
}

type mockViviendaRepo struct {
	repository.ViviendaRepository
	rows []models.Vivienda
}

func (m *mockViviendaRepo) FindAll(ctx context.Context) ([]models.Vivienda, error) {
	return m.rows, nil
}

type mockClienteRepo struct {
	repository.ClienteRepository
	rows []models.Cliente
}

func (m *mockClienteRepo) FindAll(ctx context.Context) ([]models.Cliente, error) {
	return m.rows, nil
}

type mockAbonoRepo struct {
	repository.AbonoRepository
	rows []models.Abono
}

func (m *mockAbonoRepo) FindAll(ctx context.Context) ([]models.Abono, error) {
	return m.rows, nil
}

type mockRenunciaRepo struct {
	repository.RenunciaRepository
	rows []models.Renuncia
}

func (m *mockRenunciaRepo) FindAll(ctx context.Context) ([]models.Renuncia, error) {
	return m.rows, nil
}

func uintPtr(v uint) *uint { return &v }

func testRepos() *repository.Repositories {
	return &repository.Repositories{
		Proyecto: &mockProyectoRepo{rows: []models.Proyecto{{ID: 1, Nombre: "Altos del Lago"}}},
		Vivienda: &mockViviendaRepo{rows: []models.Vivienda{
			{ID: 10, ProyectoID: 1, Manzana: "A", NumeroCasa: 1, ValorBase: 100000000, Status: models.ViviendaStatusAsignada, ClienteID: uintPtr(20), TotalAbonado: 100000000, SaldoPendiente: 0},
			{ID: 11, ProyectoID: 1, Manzana: "A", NumeroCasa: 2, ValorBase: 90000000, Status: models.ViviendaStatusDisponible, SaldoPendiente: 90000000},
		}},
		Cliente: &mockClienteRepo{rows: []models.Cliente{
			{ID: 20, Nombres: "Marta", Apellidos: "Rojas", Status: models.ClienteStatusActivo, ViviendaID: uintPtr(10)},
			{ID: 21, Nombres: "Luis", Apellidos: "Parra", Status: models.ClienteStatusRenunciado},
		}},
		Abono: &mockAbonoRepo{rows: []models.Abono{
			{ID: 30, ClienteID: 20, ViviendaID: 10, Monto: 100000000, EstadoProceso: models.AbonoStatusActivo, MetodoPago: "Transferencia"},
			{ID: 31, ClienteID: 21, ViviendaID: 11, Monto: 5000000, EstadoProceso: models.AbonoStatusArchivado, MetodoPago: "Efectivo"},
		}},
		Renuncia: &mockRenunciaRepo{rows: []models.Renuncia{
			{ID: 40, ClienteID: 21, ViviendaID: 11, EstadoDevolucion: models.RenunciaStatusPendiente, TotalAbonadoParaDevolucion: 5000000},
		}},
	}
}

func TestAggregator_NotReadyBeforeFirstLoad(t *testing.T) {
	agg := NewAggregator(testRepos())

	_, ok := agg.ViviendasConCliente()
	assert.False(t, ok)

	_, ok = agg.Dashboard()
	assert.False(t, ok)
}

func TestAggregator_JoinOnlyNeedsItsCollections(t *testing.T) {
	agg := NewAggregator(testRepos())
	ctx := context.Background()

	assert.NoError(t, agg.Reload(ctx, datasync.CollectionViviendas))
	_, ok := agg.ViviendasConCliente()
	assert.False(t, ok, "falta el lado clientes del join")

	assert.NoError(t, agg.Reload(ctx, datasync.CollectionClientes))
	rows, ok := agg.ViviendasConCliente()
	assert.True(t, ok)
	assert.Len(t, rows, 2)

	// el dashboard sigue esperando las otras colecciones
	_, ok = agg.Dashboard()
	assert.False(t, ok)
}

func TestAggregator_ViviendasConCliente(t *testing.T) {
	agg := NewAggregator(testRepos())
	assert.NoError(t, agg.ReloadAll(context.Background()))

	rows, ok := agg.ViviendasConCliente()
	assert.True(t, ok)
	assert.Len(t, rows, 2)

	// ordenadas por manzana y casa
	assert.Equal(t, uint(10), rows[0].Vivienda.ID)
	assert.NotNil(t, rows[0].Cliente)
	assert.Equal(t, "Marta Rojas", rows[0].Cliente.NombreCompleto)
	assert.Equal(t, "Marta Rojas", rows[0].Vivienda.ClienteNombre)

	assert.Nil(t, rows[1].Cliente)
}

func TestAggregator_ClientesConVivienda(t *testing.T) {
	agg := NewAggregator(testRepos())
	assert.NoError(t, agg.ReloadAll(context.Background()))

	rows, ok := agg.ClientesConVivienda()
	assert.True(t, ok)
	assert.Len(t, rows, 2)

	assert.Equal(t, uint(20), rows[0].Cliente.ID)
	assert.NotNil(t, rows[0].Vivienda)
	assert.Equal(t, "Mz. A - Casa 1", rows[0].Vivienda.Ubicacion)

	// renunciado sin vivienda
	assert.Nil(t, rows[1].Vivienda)
}

func TestAggregator_Dashboard(t *testing.T) {
	agg := NewAggregator(testRepos())
	assert.NoError(t, agg.ReloadAll(context.Background()))

	stats, ok := agg.Dashboard()
	assert.True(t, ok)

	assert.Equal(t, 1, stats.Proyectos)
	assert.Equal(t, 2, stats.Viviendas)
	assert.Equal(t, 1, stats.ViviendasDisponibles)
	assert.Equal(t, 1, stats.ViviendasAsignadas)
	assert.Equal(t, 1, stats.ViviendasPagadas)
	assert.Equal(t, 1, stats.ClientesActivos)
	assert.Equal(t, 1, stats.AbonosActivos)
	assert.Equal(t, float64(100000000), stats.RecaudadoTotal)
	assert.Equal(t, 1, stats.RenunciasPendientes)
	assert.Equal(t, float64(5000000), stats.PorDevolver)
}
