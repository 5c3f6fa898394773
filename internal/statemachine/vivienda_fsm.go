package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/rmoralesv/viviendas-api/internal/models"
)

// ViviendaFSM wraps a vivienda with its state machine
type ViviendaFSM struct {
	vivienda *models.Vivienda
	fsm      *fsm.FSM
}

// NewViviendaFSM creates a new vivienda state machine
func NewViviendaFSM(vivienda *models.Vivienda) *ViviendaFSM {
	vfsm := &ViviendaFSM{
		vivienda: vivienda,
	}

	vfsm.fsm = fsm.NewFSM(
		vivienda.Status,
		fsm.Events{
			// disponible → asignada
			{Name: "asignar", Src: []string{models.ViviendaStatusDisponible}, Dst: models.ViviendaStatusAsignada},

			// asignada → disponible (cliente detached)
			{Name: "liberar", Src: []string{models.ViviendaStatusAsignada}, Dst: models.ViviendaStatusDisponible},

			// disponible → archivada
			{Name: "archivar", Src: []string{models.ViviendaStatusDisponible}, Dst: models.ViviendaStatusArchivada},

			// archivada → disponible
			{Name: "restaurar", Src: []string{models.ViviendaStatusArchivada}, Dst: models.ViviendaStatusDisponible},
		},
		fsm.Callbacks{},
	)

	return vfsm
}

// Asignar transitions the vivienda to asignada and links it to a cliente
func (v *ViviendaFSM) Asignar(ctx context.Context, clienteID uint) error {
	if !v.vivienda.MayAsignar() {
		return fmt.Errorf("vivienda cannot be assigned in current state: %s", v.vivienda.Status)
	}

	if err := v.fsm.Event(ctx, "asignar"); err != nil {
		return fmt.Errorf("failed to assign vivienda: %w", err)
	}

	v.vivienda.Status = v.fsm.Current()
	v.vivienda.ClienteID = &clienteID
	return nil
}

// Liberar detaches the cliente and returns the vivienda to disponible.
// Cached balances reset so the unit lists with its full valor pendiente.
func (v *ViviendaFSM) Liberar(ctx context.Context) error {
	if !v.vivienda.MayLiberar() {
		return fmt.Errorf("vivienda cannot be released in current state: %s", v.vivienda.Status)
	}

	if err := v.fsm.Event(ctx, "liberar"); err != nil {
		return fmt.Errorf("failed to release vivienda: %w", err)
	}

	v.vivienda.Status = v.fsm.Current()
	v.vivienda.ClienteID = nil
	v.vivienda.TotalAbonado = 0
	v.vivienda.SaldoPendiente = v.vivienda.ValorFinal()
	return nil
}

// Archivar transitions the vivienda to archivada
func (v *ViviendaFSM) Archivar(ctx context.Context) error {
	if !v.vivienda.MayArchivar() {
		return fmt.Errorf("vivienda cannot be archived while assigned or already archived: %s", v.vivienda.Status)
	}

	if err := v.fsm.Event(ctx, "archivar"); err != nil {
		return fmt.Errorf("failed to archive vivienda: %w", err)
	}

	v.vivienda.Status = v.fsm.Current()
	return nil
}

// Restaurar transitions the vivienda from archivada back to disponible
func (v *ViviendaFSM) Restaurar(ctx context.Context) error {
	if !v.vivienda.MayRestaurar() {
		return fmt.Errorf("vivienda cannot be restored in current state: %s", v.vivienda.Status)
	}

	if err := v.fsm.Event(ctx, "restaurar"); err != nil {
		return fmt.Errorf("failed to restore vivienda: %w", err)
	}

	v.vivienda.Status = v.fsm.Current()
	return nil
}

// Current returns the current state
func (v *ViviendaFSM) Current() string {
	return v.fsm.Current()
}

// Can checks if a transition is possible
func (v *ViviendaFSM) Can(event string) bool {
	return v.fsm.Can(event)
}
