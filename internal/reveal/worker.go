package reveal

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/NikitaPirate/Glisk/internal/logger"
	"github.com/NikitaPirate/Glisk/internal/store"
)

// Worker runs the two-phase batch accumulation loop of spec.md §4.7.
type Worker struct {
	store        *store.Store
	keeper       *Keeper
	batchMax     int
	batchWait    time.Duration
	pollInterval time.Duration
	log          *zap.SugaredLogger
}

func NewWorker(st *store.Store, keeper *Keeper, batchMax int, batchWait, pollInterval time.Duration) *Worker {
	return &Worker{
		store:        st,
		keeper:       keeper,
		batchMax:     batchMax,
		batchWait:    batchWait,
		pollInterval: pollInterval,
		log:          logger.For(logger.Reveal),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		if err := w.tick(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Worker) tick(ctx context.Context) error {
	batch, err := w.claimBatch(ctx)
	if err != nil {
		return fmt.Errorf("claim ready batch: %w", err)
	}
	if len(batch) == 0 {
		return nil
	}
	if err := w.keeper.SubmitAndConfirm(ctx, batch); err != nil {
		w.log.Errorw("reveal.batch_failed", "batch_size", len(batch), "err", err)
	}
	return nil
}

// claimBatch implements §4.7's two-phase lease: claim up to batchMax,
// and if the first claim is a partial batch, hold the lock, sleep
// batchWait to let more tokens become ready, then top up and dedupe.
func (w *Worker) claimBatch(ctx context.Context) ([]store.Token, error) {
	tx := w.store.BeginTx()
	if tx.Error != nil {
		return nil, tx.Error
	}

	first, err := store.ClaimReady(tx, w.batchMax)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	batch := first
	if len(first) > 0 && len(first) < w.batchMax {
		select {
		case <-time.After(w.batchWait):
		case <-ctx.Done():
			tx.Rollback()
			return nil, ctx.Err()
		}
		more, err := store.ClaimReady(tx, w.batchMax-len(first))
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		batch = dedupeByTokenID(first, more)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return batch, nil
}

func dedupeByTokenID(a, b []store.Token) []store.Token {
	seen := make(map[uint64]struct{}, len(a))
	out := make([]store.Token, 0, len(a)+len(b))
	for _, t := range a {
		if _, ok := seen[t.TokenID]; !ok {
			seen[t.TokenID] = struct{}{}
			out = append(out, t)
		}
	}
	for _, t := range b {
		if _, ok := seen[t.TokenID]; !ok {
			seen[t.TokenID] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
