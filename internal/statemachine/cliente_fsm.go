package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/rmoralesv/viviendas-api/internal/models"
)

// ClienteFSM wraps a cliente with its state machine
type ClienteFSM struct {
	cliente *models.Cliente
	fsm     *fsm.FSM
}

// NewClienteFSM creates a new cliente state machine
func NewClienteFSM(cliente *models.Cliente) *ClienteFSM {
	cfsm := &ClienteFSM{
		cliente: cliente,
	}

	cfsm.fsm = fsm.NewFSM(
		cliente.Status,
		fsm.Events{
			// activo → enProcesoDeRenuncia (locks the record while the
			// withdrawal is being validated)
			{Name: "iniciar_renuncia", Src: []string{models.ClienteStatusActivo}, Dst: models.ClienteStatusEnRenuncia},

			// enProcesoDeRenuncia → renunciado
			{Name: "confirmar_renuncia", Src: []string{models.ClienteStatusEnRenuncia}, Dst: models.ClienteStatusRenunciado},

			// enProcesoDeRenuncia → activo (validation failed, unlock)
			{Name: "abortar_renuncia", Src: []string{models.ClienteStatusEnRenuncia}, Dst: models.ClienteStatusActivo},

			// renunciado → activo (reactivar or renuncia cancelled)
			{Name: "reactivar", Src: []string{models.ClienteStatusRenunciado}, Dst: models.ClienteStatusActivo},

			// renunciado → inactivo
			{Name: "archivar", Src: []string{models.ClienteStatusRenunciado}, Dst: models.ClienteStatusInactivo},
		},
		fsm.Callbacks{},
	)

	return cfsm
}

// IniciarRenuncia locks the cliente while the withdrawal is validated
func (c *ClienteFSM) IniciarRenuncia(ctx context.Context) error {
	if !c.cliente.MayIniciarRenuncia() {
		return fmt.Errorf("cliente cannot start a withdrawal in current state: %s", c.cliente.Status)
	}

	if err := c.fsm.Event(ctx, "iniciar_renuncia"); err != nil {
		return fmt.Errorf("failed to start withdrawal: %w", err)
	}

	c.cliente.Status = c.fsm.Current()
	return nil
}

// ConfirmarRenuncia finalizes the withdrawal and detaches the cliente
func (c *ClienteFSM) ConfirmarRenuncia(ctx context.Context) error {
	if !c.cliente.MayConfirmarRenuncia() {
		return fmt.Errorf("cliente has no withdrawal in progress: %s", c.cliente.Status)
	}

	if err := c.fsm.Event(ctx, "confirmar_renuncia"); err != nil {
		return fmt.Errorf("failed to confirm withdrawal: %w", err)
	}

	c.cliente.Status = c.fsm.Current()
	c.cliente.ViviendaID = nil
	return nil
}

// AbortarRenuncia unlocks the cliente after a failed withdrawal validation
func (c *ClienteFSM) AbortarRenuncia(ctx context.Context) error {
	if !c.cliente.MayConfirmarRenuncia() {
		return fmt.Errorf("cliente has no withdrawal in progress: %s", c.cliente.Status)
	}

	if err := c.fsm.Event(ctx, "abortar_renuncia"); err != nil {
		return fmt.Errorf("failed to abort withdrawal: %w", err)
	}

	c.cliente.Status = c.fsm.Current()
	return nil
}

// Reactivar returns a renunciado cliente to activo with a new vivienda
func (c *ClienteFSM) Reactivar(ctx context.Context, viviendaID uint) error {
	if !c.cliente.MayReactivar() {
		return fmt.Errorf("cliente cannot be reactivated in current state: %s", c.cliente.Status)
	}

	if err := c.fsm.Event(ctx, "reactivar"); err != nil {
		return fmt.Errorf("failed to reactivate cliente: %w", err)
	}

	c.cliente.Status = c.fsm.Current()
	c.cliente.ViviendaID = &viviendaID
	return nil
}

// Archivar moves a renunciado cliente to inactivo
func (c *ClienteFSM) Archivar(ctx context.Context) error {
	if !c.cliente.MayArchivar() {
		return fmt.Errorf("cliente cannot be archived in current state: %s", c.cliente.Status)
	}

	if err := c.fsm.Event(ctx, "archivar"); err != nil {
		return fmt.Errorf("failed to archive cliente: %w", err)
	}

	c.cliente.Status = c.fsm.Current()
	return nil
}

// Current returns the current state
func (c *ClienteFSM) Current() string {
	return c.fsm.Current()
}

// Can checks if a transition is possible
func (c *ClienteFSM) Can(event string) bool {
	return c.fsm.Can(event)
}
