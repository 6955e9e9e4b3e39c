package reveal

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jinzhu/gorm"
	"go.uber.org/zap"

	"github.com/NikitaPirate/Glisk/internal/chain"
	"github.com/NikitaPirate/Glisk/internal/logger"
	"github.com/NikitaPirate/Glisk/internal/store"
)

// Reconciler resolves RevealTransaction rows left `sent` (or legacy
// `pending`) by a process that died before confirming them, run once at
// supervisor startup before the accumulation loop begins (spec.md §4.7
// "Orphan reconciliation on startup").
type Reconciler struct {
	chain *chain.Client
	store *store.Store
	log   *zap.SugaredLogger
}

func NewReconciler(c *chain.Client, st *store.Store) *Reconciler {
	return &Reconciler{chain: c, store: st, log: logger.For(logger.Reveal)}
}

// Run fetches the on-chain receipt for every pending row and resolves it:
// status 1 confirms the batch and advances still-ready tokens to
// revealed; status 0 fails the batch, leaving tokens ready; not found or
// an RPC error leaves the row untouched for the next startup attempt.
func (r *Reconciler) Run(ctx context.Context) error {
	var rows []store.RevealTransaction
	err := r.store.WithTx(func(tx *gorm.DB) error {
		var err error
		rows, err = store.PendingRevealTransactions(tx)
		return err
	})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		r.log.Infow("reveal.reconcile.no_orphans")
		return nil
	}
	r.log.Infow("reveal.reconcile.started", "orphan_count", len(rows))

	for _, rt := range rows {
		if rt.TxHash == nil {
			continue
		}
		r.resolveOne(ctx, rt)
	}
	return nil
}

func (r *Reconciler) resolveOne(ctx context.Context, rt store.RevealTransaction) {
	receipt, err := r.chain.TransactionReceipt(ctx, common.HexToHash(*rt.TxHash))
	if err != nil {
		r.log.Warnw("reveal.reconcile.rpc_error", "tx_hash", *rt.TxHash, "err", err)
		return
	}
	if receipt == nil {
		r.log.Infow("reveal.reconcile.still_pending", "tx_hash", *rt.TxHash)
		return
	}

	tokenIDs, err := store.DecodeTokenIDs(rt.TokenIDsCSV)
	if err != nil {
		r.log.Errorw("reveal.reconcile.decode_failed", "tx_hash", *rt.TxHash, "err", err)
		return
	}

	if receipt.Status == 1 {
		err := r.store.WithTx(func(tx *gorm.DB) error {
			row := rt
			if err := store.ConfirmRevealTransaction(tx, &row, receipt.BlockNumber.Uint64()); err != nil {
				return err
			}
			for _, id := range tokenIDs {
				t, err := store.GetTokenByTokenID(tx, id)
				if err != nil {
					return err
				}
				if t.Status != store.StatusReady {
					continue
				}
				t.RevealTxHash = rt.TxHash
				if err := store.TransitionTo(tx, t, store.StatusRevealed); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			r.log.Errorw("reveal.reconcile.confirm_failed", "tx_hash", *rt.TxHash, "err", err)
			return
		}
		r.log.Infow("reveal.reconcile.confirmed", "tx_hash", *rt.TxHash, "token_count", len(tokenIDs))
		return
	}

	err = r.store.WithTx(func(tx *gorm.DB) error {
		row := rt
		return store.FailRevealTransaction(tx, &row)
	})
	if err != nil {
		r.log.Errorw("reveal.reconcile.fail_commit_failed", "tx_hash", *rt.TxHash, "err", err)
		return
	}
	r.log.Warnw("reveal.reconcile.reverted", "tx_hash", *rt.TxHash)
}
