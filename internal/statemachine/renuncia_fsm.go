package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"
	"github.com/rmoralesv/viviendas-api/internal/models"
)

// RenunciaFSM wraps a renuncia with its state machine
type RenunciaFSM struct {
	renuncia *models.Renuncia
	fsm      *fsm.FSM
}

// NewRenunciaFSM creates a new renuncia state machine
func NewRenunciaFSM(renuncia *models.Renuncia) *RenunciaFSM {
	rfsm := &RenunciaFSM{
		renuncia: renuncia,
	}

	rfsm.fsm = fsm.NewFSM(
		renuncia.EstadoDevolucion,
		fsm.Events{
			// pendiente → pagada (refund disbursed)
			{Name: "pagar", Src: []string{models.RenunciaStatusPendiente}, Dst: models.RenunciaStatusPagada},

			// pendiente → cancelada (withdrawal reversed)
			{Name: "cancelar", Src: []string{models.RenunciaStatusPendiente}, Dst: models.RenunciaStatusCancelada},
		},
		fsm.Callbacks{},
	)

	return rfsm
}

// Pagar marks the refund as disbursed
func (r *RenunciaFSM) Pagar(ctx context.Context) error {
	if !r.renuncia.MayPagar() {
		return fmt.Errorf("renuncia refund cannot be paid in current state: %s", r.renuncia.EstadoDevolucion)
	}

	if err := r.fsm.Event(ctx, "pagar"); err != nil {
		return fmt.Errorf("failed to pay renuncia refund: %w", err)
	}

	now := time.Now()
	r.renuncia.EstadoDevolucion = r.fsm.Current()
	r.renuncia.PagadaAt = &now
	return nil
}

// Cancelar marks the renuncia as cancelled
func (r *RenunciaFSM) Cancelar(ctx context.Context) error {
	if !r.renuncia.MayCancelar() {
		return fmt.Errorf("renuncia cannot be cancelled in current state: %s", r.renuncia.EstadoDevolucion)
	}

	if err := r.fsm.Event(ctx, "cancelar"); err != nil {
		return fmt.Errorf("failed to cancel renuncia: %w", err)
	}

	now := time.Now()
	r.renuncia.EstadoDevolucion = r.fsm.Current()
	r.renuncia.CanceladaAt = &now
	return nil
}

// Current returns the current state
func (r *RenunciaFSM) Current() string {
	return r.fsm.Current()
}

// Can checks if a transition is possible
func (r *RenunciaFSM) Can(event string) bool {
	return r.fsm.Can(event)
}
