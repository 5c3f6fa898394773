// Package datasync coalesces change notifications into batched reloads.
// Writes land in the database immediately; reads that are served from the
// in-memory snapshot catch up through here. Bursts of mutations (a renuncia
// touches four collections at once) collapse into a single reload per
// collection after a short quiet window.
package datasync

import (
	"context"
	"sync"
	"time"

	"github.com/rmoralesv/viviendas-api/pkg/logger"
)

// Collection names the snapshots the reload callback understands
type Collection string

const (
	CollectionProyectos Collection = "proyectos"
	CollectionViviendas Collection = "viviendas"
	CollectionClientes  Collection = "clientes"
	CollectionAbonos    Collection = "abonos"
	CollectionRenuncias Collection = "renuncias"
)

// DefaultDebounce is the quiet window before pending collections reload
const DefaultDebounce = 50 * time.Millisecond

// ReloadFunc refreshes one collection's snapshot from the database
type ReloadFunc func(ctx context.Context, col Collection) error

// Invalidator accumulates dirty collections and fires one reload batch per
// quiet window. Reload errors are logged and dropped: a failed refresh
// leaves the previous snapshot in place and the next mutation retries.
type Invalidator struct {
	mu      sync.Mutex
	pending map[Collection]struct{}
	timer   *time.Timer
	delay   time.Duration
	reload  ReloadFunc
	closed  bool
	wg      sync.WaitGroup
}

// NewInvalidator creates an invalidator with the given quiet window.
// A delay of zero falls back to DefaultDebounce.
func NewInvalidator(delay time.Duration, reload ReloadFunc) *Invalidator {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Invalidator{
		pending: make(map[Collection]struct{}),
		delay:   delay,
		reload:  reload,
	}
}

// Notify marks collections dirty and arms the debounce timer. Repeated
// calls within the window extend it, so a burst settles before any reload.
func (i *Invalidator) Notify(cols ...Collection) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return
	}

	for _, c := range cols {
		i.pending[c] = struct{}{}
	}

	if i.timer != nil {
		i.timer.Stop()
	}
	i.timer = time.AfterFunc(i.delay, i.flush)
}

// Flush forces the pending reloads without waiting for the quiet window
func (i *Invalidator) Flush() {
	i.mu.Lock()
	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
	}
	i.mu.Unlock()
	i.flush()
}

func (i *Invalidator) flush() {
	i.mu.Lock()
	if len(i.pending) == 0 {
		i.mu.Unlock()
		return
	}
	batch := make([]Collection, 0, len(i.pending))
	for c := range i.pending {
		batch = append(batch, c)
	}
	i.pending = make(map[Collection]struct{})
	i.wg.Add(len(batch))
	i.mu.Unlock()

	// Collections refresh in parallel; they are independent snapshots
	for _, col := range batch {
		go func(col Collection) {
			defer i.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := i.reload(ctx, col); err != nil {
				logger.Error("Snapshot reload failed", "collection", string(col), "error", err)
			}
		}(col)
	}
}

// Close stops the timer and waits for in-flight reloads
func (i *Invalidator) Close() {
	i.mu.Lock()
	i.closed = true
	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
	}
	i.pending = make(map[Collection]struct{})
	i.mu.Unlock()
	i.wg.Wait()
}

// AbonoMutado marks the collections an abono write touches. Balances are
// cached on viviendas and the cliente snapshots embed their abonos, so
// both reload too.
func (i *Invalidator) AbonoMutado() {
	i.Notify(CollectionAbonos, CollectionClientes, CollectionViviendas)
}

// ClienteMutado marks the collections a cliente write touches
func (i *Invalidator) ClienteMutado() {
	i.Notify(CollectionClientes, CollectionViviendas)
}

// ViviendaMutada marks the viviendas collection dirty
func (i *Invalidator) ViviendaMutada() {
	i.Notify(CollectionViviendas)
}

// RenunciaMutada marks everything a withdrawal touches
func (i *Invalidator) RenunciaMutada() {
	i.Notify(CollectionRenuncias, CollectionClientes, CollectionViviendas, CollectionAbonos)
}

// ProyectoMutado marks the proyectos collection dirty
func (i *Invalidator) ProyectoMutado() {
	i.Notify(CollectionProyectos)
}
