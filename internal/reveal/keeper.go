// Package reveal implements the reveal worker and on-chain keeper
// (spec.md §4.7): two-phase batch accumulation, EIP-1559 gas estimation,
// signed submission, confirmation, and startup orphan reconciliation.
package reveal

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jinzhu/gorm"
	"go.uber.org/zap"

	"github.com/NikitaPirate/Glisk/internal/chain"
	"github.com/NikitaPirate/Glisk/internal/logger"
	"github.com/NikitaPirate/Glisk/internal/metrics"
	"github.com/NikitaPirate/Glisk/internal/store"
)

// Keeper owns the keeper wallet's on-chain interactions for one reveal
// batch: estimate, submit, wait, interpret (spec.md §4.7).
type Keeper struct {
	chain           *chain.Client
	store           *store.Store
	gasBuffer       float64
	gasPriceCapGwei float64
	confirmTimeout  time.Duration
	explorerBaseURL string
	log             *zap.SugaredLogger
}

func NewKeeper(c *chain.Client, st *store.Store, gasBuffer, gasPriceCapGwei float64, confirmTimeout time.Duration, explorerBaseURL string) *Keeper {
	return &Keeper{
		chain:           c,
		store:           st,
		gasBuffer:       gasBuffer,
		gasPriceCapGwei: gasPriceCapGwei,
		confirmTimeout:  confirmTimeout,
		explorerBaseURL: explorerBaseURL,
		log:             logger.For(logger.Reveal),
	}
}

// SubmitAndConfirm estimates, submits and waits on one reveal batch,
// interpreting the outcome per spec.md §4.7. Tokens are left `ready` on
// every non-success path; the caller never needs to undo anything.
func (k *Keeper) SubmitAndConfirm(ctx context.Context, tokens []store.Token) error {
	tokenIDs := make([]*big.Int, len(tokens))
	uris := make([]string, len(tokens))
	onChainIDs := make([]uint64, len(tokens))
	for i, t := range tokens {
		tokenIDs[i] = new(big.Int).SetUint64(t.TokenID)
		if t.MetadataCID == nil {
			return fmt.Errorf("token %d is ready with no metadata_cid", t.TokenID)
		}
		uris[i] = "ipfs://" + *t.MetadataCID
		onChainIDs[i] = t.TokenID
	}

	gp, err := k.chain.EstimateReveal(ctx, tokenIDs, uris, k.gasBuffer, k.gasPriceCapGwei)
	if err != nil {
		k.log.Errorw("reveal.estimate_failed", "batch_size", len(tokens), "err", err)
		return err
	}

	txHash, err := k.chain.SubmitReveal(ctx, tokenIDs, uris, gp)
	if err != nil {
		k.log.Errorw("reveal.submit_failed", "batch_size", len(tokens), "err", err)
		return err
	}

	txHashHex := txHash.Hex()
	var rt *store.RevealTransaction
	err = k.store.WithTx(func(tx *gorm.DB) error {
		var err error
		rt, err = store.InsertRevealTransaction(tx, onChainIDs, txHashHex, gp.MaxFeePerGas.String())
		return err
	})
	if err != nil {
		return fmt.Errorf("record reveal transaction: %w", err)
	}
	k.log.Infow("reveal.submitted", "tx_hash", txHashHex, "batch_size", len(tokens))
	metrics.RevealBatchSize.Observe(float64(len(tokens)))

	receipt, err := k.chain.WaitMined(ctx, txHash, k.confirmTimeout)
	if err != nil {
		k.log.Warnw("reveal.wait_error", "tx_hash", txHashHex, "err", err)
		return err
	}
	if receipt == nil {
		k.log.Warnw("reveal.confirmation_timeout", "tx_hash", txHashHex, "timeout", k.confirmTimeout)
		return nil
	}

	if receipt.Status == 1 {
		return k.confirmBatch(rt, onChainIDs, receipt.BlockNumber.Uint64(), txHashHex)
	}

	k.log.Errorw("reveal.reverted",
		"tx_hash", txHashHex,
		"explorer_url", chain.ExplorerTxURL(k.explorerBaseURL, common.HexToHash(txHashHex)),
	)
	err = k.store.WithTx(func(tx *gorm.DB) error {
		return store.FailRevealTransaction(tx, rt)
	})
	if err == nil {
		metrics.TokensFailed.WithLabelValues("reveal", "reverted").Add(float64(len(tokens)))
	}
	return err
}

func (k *Keeper) confirmBatch(rt *store.RevealTransaction, tokenIDs []uint64, blockNumber uint64, txHash string) error {
	err := k.store.WithTx(func(tx *gorm.DB) error {
		if err := store.ConfirmRevealTransaction(tx, rt, blockNumber); err != nil {
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
			t.RevealTxHash = &txHash
			if err := store.TransitionTo(tx, t, store.StatusRevealed); err != nil {
				return err
			}
		}
		k.log.Infow("reveal.confirmed", "tx_hash", txHash, "block_number", blockNumber, "token_count", len(tokenIDs))
		return nil
	})
	if err == nil {
		metrics.TokensAdvanced.WithLabelValues("reveal").Add(float64(len(tokenIDs)))
	}
	return err
}
