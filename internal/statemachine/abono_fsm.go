package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"
	"github.com/rmoralesv/viviendas-api/internal/models"
)

// AbonoFSM wraps an abono with its state machine
type AbonoFSM struct {
	abono *models.Abono
	fsm   *fsm.FSM
}

// NewAbonoFSM creates a new abono state machine
func NewAbonoFSM(abono *models.Abono) *AbonoFSM {
	afsm := &AbonoFSM{
		abono: abono,
	}

	afsm.fsm = fsm.NewFSM(
		abono.EstadoProceso,
		fsm.Events{
			// activo → anulado
			{Name: "anular", Src: []string{models.AbonoStatusActivo}, Dst: models.AbonoStatusAnulado},

			// anulado → activo
			{Name: "revertir", Src: []string{models.AbonoStatusAnulado}, Dst: models.AbonoStatusActivo},

			// activo → archivado (withdrawal side effect)
			{Name: "archivar", Src: []string{models.AbonoStatusActivo}, Dst: models.AbonoStatusArchivado},

			// archivado → activo (withdrawal cancelled)
			{Name: "reactivar", Src: []string{models.AbonoStatusArchivado}, Dst: models.AbonoStatusActivo},
		},
		fsm.Callbacks{},
	)

	return afsm
}

// Anular voids the abono with the given motivo. Anulado abonos keep their
// consecutivo and stay visible, they just stop counting toward balances.
func (a *AbonoFSM) Anular(ctx context.Context, motivo string) error {
	if !a.abono.MayAnular() {
		return fmt.Errorf("abono cannot be voided in current state: %s", a.abono.EstadoProceso)
	}

	if err := a.fsm.Event(ctx, "anular"); err != nil {
		return fmt.Errorf("failed to void abono: %w", err)
	}

	now := time.Now()
	a.abono.EstadoProceso = a.fsm.Current()
	a.abono.MotivoAnulacion = &motivo
	a.abono.AnuladoAt = &now
	return nil
}

// Revertir undoes a void and restores the abono to activo
func (a *AbonoFSM) Revertir(ctx context.Context) error {
	if !a.abono.MayRevertir() {
		return fmt.Errorf("abono is not voided: %s", a.abono.EstadoProceso)
	}

	if err := a.fsm.Event(ctx, "revertir"); err != nil {
		return fmt.Errorf("failed to revert abono: %w", err)
	}

	a.abono.EstadoProceso = a.fsm.Current()
	a.abono.MotivoAnulacion = nil
	a.abono.AnuladoAt = nil
	return nil
}

// Archivar moves the abono out of the active cycle, tagging it with the
// renuncia that caused it
func (a *AbonoFSM) Archivar(ctx context.Context, renunciaID uint) error {
	if !a.abono.MayArchivar() {
		return fmt.Errorf("abono cannot be archived in current state: %s", a.abono.EstadoProceso)
	}

	if err := a.fsm.Event(ctx, "archivar"); err != nil {
		return fmt.Errorf("failed to archive abono: %w", err)
	}

	a.abono.EstadoProceso = a.fsm.Current()
	a.abono.RenunciaID = &renunciaID
	return nil
}

// Reactivar restores an archived abono after its renuncia is cancelled
func (a *AbonoFSM) Reactivar(ctx context.Context) error {
	if !a.abono.MayReactivar() {
		return fmt.Errorf("abono cannot be reactivated in current state: %s", a.abono.EstadoProceso)
	}

	if err := a.fsm.Event(ctx, "reactivar"); err != nil {
		return fmt.Errorf("failed to reactivate abono: %w", err)
	}

	a.abono.EstadoProceso = a.fsm.Current()
	a.abono.RenunciaID = nil
	return nil
}

// Current returns the current state
func (a *AbonoFSM) Current() string {
	return a.fsm.Current()
}

// Can checks if a transition is possible
func (a *AbonoFSM) Can(event string) bool {
	return a.fsm.Can(event)
}
