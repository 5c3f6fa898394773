package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rmoralesv/viviendas-api/internal/models"
)

func TestCan_Admin(t *testing.T) {
	assert.True(t, Can(models.RoleAdmin, ModuleUsuarios, ActionCrear))
	assert.True(t, Can(models.RoleAdmin, ModuleViviendas, ActionEliminar))
	assert.True(t, Can(models.RoleAdmin, ModuleAuditoria, ActionVer))
	assert.False(t, Can(models.RoleAdmin, ModuleAuditoria, ActionEditar))
}

func TestCan_Gestor(t *testing.T) {
	assert.True(t, Can(models.RoleGestor, ModuleAbonos, ActionCrear))
	assert.True(t, Can(models.RoleGestor, ModuleAbonos, ActionAnular))
	assert.True(t, Can(models.RoleGestor, ModuleRenuncias, ActionCrear))

	assert.False(t, Can(models.RoleGestor, ModuleUsuarios, ActionVer))
	assert.False(t, Can(models.RoleGestor, ModuleViviendas, ActionEliminar))
	assert.False(t, Can(models.RoleGestor, ModuleClientes, ActionEliminar))
	assert.False(t, Can(models.RoleGestor, ModuleProyectos, ActionCrear))
}

func TestCan_Consulta(t *testing.T) {
	assert.True(t, Can(models.RoleConsulta, ModuleViviendas, ActionVer))
	assert.True(t, Can(models.RoleConsulta, ModuleReportes, ActionVer))

	assert.False(t, Can(models.RoleConsulta, ModuleAbonos, ActionCrear))
	assert.False(t, Can(models.RoleConsulta, ModuleRenuncias, ActionCrear))
	assert.False(t, Can(models.RoleConsulta, ModuleAuditoria, ActionVer))
}

func TestCan_UnknownRoleHasNothing(t *testing.T) {
	assert.False(t, Can("superuser", ModuleViviendas, ActionVer))
	assert.False(t, Can("", ModuleViviendas, ActionVer))
}

func TestForRole(t *testing.T) {
	caps := ForRole(models.RoleConsulta)
	assert.Len(t, caps, 6)
	for _, c := range caps {
		assert.Equal(t, ActionVer, c.Action)
	}

	assert.Nil(t, ForRole("desconocido"))
}
