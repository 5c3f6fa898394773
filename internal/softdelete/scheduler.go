// Package softdelete gives destructive operations an undo window. The
// delete is deferred: a pending entry holds a timer, and cancelling it
// within the window means the commit never runs.
package softdelete

import (
	"fmt"
	"sync"
	"time"

	"github.com/rmoralesv/viviendas-api/pkg/logger"
)

// CommitFunc performs the real deletion once the undo window closes
type CommitFunc func()

type pendingDelete struct {
	timer  *time.Timer
	commit CommitFunc
}

// Scheduler tracks pending deletions keyed by "kind:id"
type Scheduler struct {
	mu      sync.Mutex
	pending map[string]*pendingDelete
	window  time.Duration
}

// NewScheduler creates a scheduler with the given undo window
func NewScheduler(window time.Duration) *Scheduler {
	return &Scheduler{
		pending: make(map[string]*pendingDelete),
		window:  window,
	}
}

// Key builds the pending-map key for an entity
func Key(kind string, id uint) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

// Schedule queues commit to run after the undo window. Scheduling the same
// key again restarts its window.
func (s *Scheduler) Schedule(kind string, id uint, commit CommitFunc) {
	key := Key(kind, id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pending[key]; ok {
		p.timer.Stop()
	}

	timer := time.AfterFunc(s.window, func() {
		s.mu.Lock()
		delete(s.pending, key)
		s.mu.Unlock()
		commit()
	})
	s.pending[key] = &pendingDelete{timer: timer, commit: commit}

	logger.Debug("Deletion scheduled", "key", key, "window", s.window)
}

// Cancel aborts a pending deletion. Returns false when the window already
// closed and the commit ran (or nothing was scheduled).
func (s *Scheduler) Cancel(kind string, id uint) bool {
	key := Key(kind, id)

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[key]
	if !ok {
		return false
	}
	stopped := p.timer.Stop()
	delete(s.pending, key)
	return stopped
}

// IsPending reports whether the entity has a deletion in flight
func (s *Scheduler) IsPending(kind string, id uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[Key(kind, id)]
	return ok
}

// Shutdown commits every pending deletion immediately so scheduled deletes
// are not lost on graceful shutdown
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	commits := make([]CommitFunc, 0, len(s.pending))
	for key, p := range s.pending {
		if p.timer.Stop() {
			commits = append(commits, p.commit)
		}
		delete(s.pending, key)
	}
	s.mu.Unlock()

	for _, commit := range commits {
		commit()
	}
}
