// Package permissions defines the typed capability model. A capability is a
// module/action pair; each role carries an explicit set, so authorization
// checks are lookups instead of string comparisons scattered in handlers.
package permissions

import "github.com/rmoralesv/viviendas-api/internal/models"

// Module names an area of the application
type Module string

const (
	ModuleProyectos Module = "proyectos"
	ModuleViviendas Module = "viviendas"
	ModuleClientes  Module = "clientes"
	ModuleAbonos    Module = "abonos"
	ModuleRenuncias Module = "renuncias"
	ModuleReportes  Module = "reportes"
	ModuleUsuarios  Module = "usuarios"
	ModuleAuditoria Module = "auditoria"
)

// Action names what can be done within a module
type Action string

const (
	ActionVer      Action = "ver"
	ActionCrear    Action = "crear"
	ActionEditar   Action = "editar"
	ActionAnular   Action = "anular"
	ActionEliminar Action = "eliminar"
)

// Capability is one grantable permission
type Capability struct {
	Module Module
	Action Action
}

// Set is a role's capability set
type Set map[Capability]struct{}

func newSet(caps ...Capability) Set {
	s := make(Set, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

func allActions(m Module) []Capability {
	return []Capability{
		{m, ActionVer},
		{m, ActionCrear},
		{m, ActionEditar},
		{m, ActionAnular},
		{m, ActionEliminar},
	}
}

func viewOnly(modules ...Module) []Capability {
	caps := make([]Capability, 0, len(modules))
	for _, m := range modules {
		caps = append(caps, Capability{m, ActionVer})
	}
	return caps
}

var rolePermissions = map[string]Set{
	// admin: everything everywhere
	models.RoleAdmin: newSet(flatten(
		allActions(ModuleProyectos),
		allActions(ModuleViviendas),
		allActions(ModuleClientes),
		allActions(ModuleAbonos),
		allActions(ModuleRenuncias),
		allActions(ModuleReportes),
		allActions(ModuleUsuarios),
		viewOnly(ModuleAuditoria),
	)...),

	// gestor: full operational access, no user management, no hard deletes
	models.RoleGestor: newSet(flatten(
		viewOnly(ModuleProyectos),
		[]Capability{
			{ModuleViviendas, ActionVer},
			{ModuleViviendas, ActionCrear},
			{ModuleViviendas, ActionEditar},
			{ModuleClientes, ActionVer},
			{ModuleClientes, ActionCrear},
			{ModuleClientes, ActionEditar},
			{ModuleAbonos, ActionVer},
			{ModuleAbonos, ActionCrear},
			{ModuleAbonos, ActionEditar},
			{ModuleAbonos, ActionAnular},
			{ModuleRenuncias, ActionVer},
			{ModuleRenuncias, ActionCrear},
			{ModuleRenuncias, ActionEditar},
			{ModuleReportes, ActionVer},
			{ModuleReportes, ActionCrear},
		},
	)...),

	// consulta: read everything operational, touch nothing
	models.RoleConsulta: newSet(flatten(
		viewOnly(ModuleProyectos, ModuleViviendas, ModuleClientes, ModuleAbonos, ModuleRenuncias, ModuleReportes),
	)...),
}

func flatten(groups ...[]Capability) []Capability {
	var out []Capability
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Can reports whether the role holds the capability. Unknown roles hold
// nothing.
func Can(role string, module Module, action Action) bool {
	set, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = set[Capability{module, action}]
	return ok
}

// ForRole returns a copy of the role's capability set, for the session
// endpoint that tells the UI what to render
func ForRole(role string) []Capability {
	set, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	caps := make([]Capability, 0, len(set))
	for c := range set {
		caps = append(caps, c)
	}
	return caps
}

// RoleValida reports whether the role name is one of the known roles
func RoleValida(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}
