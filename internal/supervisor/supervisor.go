// Package supervisor hosts the three long-lived stage workers, restarting
// any that exit unexpectedly, and provides the startup orphan reset
// (spec.md §4.8). Gap repair is not run here: cmd/revealengine runs it
// before the supervisor starts. Generalised from the teacher's node.Service{Start,Stop}
// lifecycle interface, simplified to a single blocking Run method since
// this process has no P2P/RPC surface to register alongside the workers.
package supervisor

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/NikitaPirate/Glisk/internal/logger"
	"github.com/NikitaPirate/Glisk/internal/store"
)

// respawnDelay is the fixed 1-second restart delay spec.md's Design
// Notes §9 calls for; exponential backoff is deliberately not used here
// (see DESIGN.md).
const respawnDelay = time.Second

// Worker is the minimal lifecycle every stage worker exposes: block
// until ctx is cancelled or an unrecoverable error occurs.
type Worker interface {
	Run(ctx context.Context) error
}

// namedWorker pairs a worker with the tag its restart/exit logs carry.
type namedWorker struct {
	name string
	w    Worker
}

// Supervisor hosts a fixed set of workers for the lifetime of the
// process.
type Supervisor struct {
	store   *store.Store
	workers []namedWorker
	log     *zap.SugaredLogger
}

func New(st *store.Store) *Supervisor {
	return &Supervisor{store: st, log: logger.For(logger.Supervisor)}
}

// Register adds a worker under name. Call before Run.
func (s *Supervisor) Register(name string, w Worker) {
	s.workers = append(s.workers, namedWorker{name: name, w: w})
}

// ResetOrphans performs the one-shot generating→detected reset (spec.md
// §4.8), run once before the image-generation worker's loop begins.
// Upload's uploading state is idempotent on re-lease and reveal uses
// on-chain reconciliation instead, so neither needs an analogous reset.
func (s *Supervisor) ResetOrphans() error {
	n, err := s.store.ResetOrphanGenerating()
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Infow("supervisor.orphan_reset", "tokens_reset", n)
	}
	return nil
}

// Run spawns every registered worker and blocks until ctx is cancelled,
// respawning any worker that exits with an error after respawnDelay.
// On shutdown it cancels every worker and waits for them to return
// before closing the store's connection pool.
func (s *Supervisor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	for _, nw := range s.workers {
		go s.supervise(ctx, nw, done)
	}

	<-ctx.Done()
	s.log.Infow("supervisor.shutdown_signalled")
	for range s.workers {
		<-done
	}
	s.log.Infow("supervisor.workers_stopped")
	return s.store.Close()
}

func (s *Supervisor) supervise(ctx context.Context, nw namedWorker, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()
	for {
		err := s.runGuarded(ctx, nw)
		if ctx.Err() != nil {
			s.log.Infow("supervisor.worker_exit", "worker", nw.name, "reason", "shutdown")
			return
		}
		if err == nil {
			s.log.Warnw("supervisor.worker_exit", "worker", nw.name, "reason", "unexpected_clean_exit")
		} else {
			s.log.Errorw("supervisor.worker_crashed", "worker", nw.name, "err", err)
		}
		select {
		case <-time.After(respawnDelay):
		case <-ctx.Done():
			return
		}
		s.log.Infow("supervisor.worker_respawning", "worker", nw.name)
	}
}

// runGuarded calls nw.w.Run, converting a panic into an error so a single
// worker's crash respawns that worker instead of taking the process down
// (spec.md §4.8 "if exception ... log the cause with stack, respawn").
func (s *Supervisor) runGuarded(ctx context.Context, nw namedWorker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("supervisor.worker_panicked", "worker", nw.name, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("worker %s panicked: %v", nw.name, r)
		}
	}()
	return nw.w.Run(ctx)
}
