package softdelete

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rmoralesv/viviendas-api/pkg/logger"
)

func init() {
	logger.Setup("test")
}

func TestScheduler_CommitRunsAfterWindow(t *testing.T) {
	s := NewScheduler(20 * time.Millisecond)
	var committed atomic.Bool

	s.Schedule("abono", 1, func() { committed.Store(true) })

	assert.True(t, s.IsPending("abono", 1))
	assert.False(t, committed.Load())

	time.Sleep(80 * time.Millisecond)

	assert.True(t, committed.Load())
	assert.False(t, s.IsPending("abono", 1))
}

func TestScheduler_CancelWithinWindow(t *testing.T) {
	s := NewScheduler(50 * time.Millisecond)
	var committed atomic.Bool

	s.Schedule("vivienda", 7, func() { committed.Store(true) })

	assert.True(t, s.Cancel("vivienda", 7))

	time.Sleep(120 * time.Millisecond)

	assert.False(t, committed.Load())
	assert.False(t, s.IsPending("vivienda", 7))
}

func TestScheduler_CancelAfterCommitReturnsFalse(t *testing.T) {
	s := NewScheduler(10 * time.Millisecond)

	s.Schedule("cliente", 3, func() {})
	time.Sleep(60 * time.Millisecond)

	assert.False(t, s.Cancel("cliente", 3))
}

func TestScheduler_CancelUnknownKey(t *testing.T) {
	s := NewScheduler(time.Second)
	assert.False(t, s.Cancel("abono", 99))
}

func TestScheduler_RescheduleRestartsWindow(t *testing.T) {
	s := NewScheduler(60 * time.Millisecond)
	var commits atomic.Int32

	s.Schedule("abono", 5, func() { commits.Add(1) })
	time.Sleep(40 * time.Millisecond)
	s.Schedule("abono", 5, func() { commits.Add(1) })
	time.Sleep(40 * time.Millisecond)

	// la primera ventana fue reemplazada, la segunda sigue corriendo
	assert.Equal(t, int32(0), commits.Load())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), commits.Load())
}

func TestScheduler_ShutdownCommitsPending(t *testing.T) {
	s := NewScheduler(time.Hour)
	var committed atomic.Bool

	s.Schedule("renuncia", 2, func() { committed.Store(true) })
	s.Shutdown()

	assert.True(t, committed.Load())
	assert.False(t, s.IsPending("renuncia", 2))
}

func TestScheduler_KeysAreIndependent(t *testing.T) {
	s := NewScheduler(50 * time.Millisecond)
	var a, b atomic.Bool

	s.Schedule("abono", 1, func() { a.Store(true) })
	s.Schedule("abono", 2, func() { b.Store(true) })

	assert.True(t, s.Cancel("abono", 1))
	time.Sleep(120 * time.Millisecond)

	assert.False(t, a.Load())
	assert.True(t, b.Load())
}
