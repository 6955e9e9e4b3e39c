package recovery

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/jinzhu/gorm"
	"go.uber.org/zap"

	"github.com/NikitaPirate/Glisk/internal/chain"
	"github.com/NikitaPirate/Glisk/internal/chain/contract"
	"github.com/NikitaPirate/Glisk/internal/logger"
	"github.com/NikitaPirate/Glisk/internal/store"
)

const lastProcessedBlockKey = "last_processed_block"

// rateLimitBackoffs is spec.md §4.3b's escalating backoff; three
// successive rate limits aborts the run.
var rateLimitBackoffs = []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}

// EventResult summarises one log-replay run.
type EventResult struct {
	FromBlock        uint64
	ToBlock          uint64
	LogsProcessed    int
	TokensStored     int
	SkippedDuplicate int
}

// EventRecovery replays BatchMinted logs in block windows from a
// watermark, the secondary operator-invoked catch-up mechanism
// (spec.md §4.3b).
type EventRecovery struct {
	chain               *chain.Client
	store               *store.Store
	defaultAuthorWallet string
	blockRange          uint64
	log                 *zap.SugaredLogger
}

func NewEventRecovery(c *chain.Client, st *store.Store, defaultAuthorWallet string, blockRange uint64) *EventRecovery {
	return &EventRecovery{chain: c, store: st, defaultAuthorWallet: defaultAuthorWallet, blockRange: blockRange, log: logger.For(logger.Recovery)}
}

// Run replays logs from fromBlock through toBlock (resolved to the chain
// head if toBlockLatest is true), in windows of r.blockRange, persisting
// each with the same transaction spec.md §4.2 uses. On success,
// last_processed_block is advanced to max(toBlock, highest block seen).
func (r *EventRecovery) Run(ctx context.Context, fromBlock uint64, toBlock uint64, toBlockLatest bool) (*EventResult, error) {
	if toBlockLatest {
		latest, err := r.chain.LatestBlock(ctx)
		if err != nil {
			return nil, fmt.Errorf("query latest block: %w", err)
		}
		toBlock = latest
	}
	if fromBlock > toBlock {
		return nil, fmt.Errorf("from-block %d is after to-block %d", fromBlock, toBlock)
	}

	result := &EventResult{FromBlock: fromBlock, ToBlock: toBlock}
	highestSeen := fromBlock

	for window := fromBlock; window <= toBlock; window += r.blockRange {
		windowEnd := window + r.blockRange - 1
		if windowEnd > toBlock {
			windowEnd = toBlock
		}

		logs, err := r.fetchWithBackoff(ctx, window, windowEnd)
		if err != nil {
			return result, err
		}

		for _, l := range logs {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			stored, dup, err := r.persistLog(ctx, l)
			if err != nil {
				r.log.Errorw("event_recovery.log_error", "tx_hash", l.TxHash.Hex(), "err", err)
				continue
			}
			result.LogsProcessed++
			result.TokensStored += stored
			result.SkippedDuplicate += dup
			if l.BlockNumber > highestSeen {
				highestSeen = l.BlockNumber
			}
		}
	}

	finalWatermark := toBlock
	if highestSeen > finalWatermark {
		finalWatermark = highestSeen
	}
	err := r.store.WithTx(func(tx *gorm.DB) error {
		return store.UpsertSystemState(tx, lastProcessedBlockKey, strconv.FormatUint(finalWatermark, 10))
	})
	if err != nil {
		return result, fmt.Errorf("update last_processed_block: %w", err)
	}

	r.log.Infow("event_recovery.complete", "logs_processed", result.LogsProcessed, "tokens_stored", result.TokensStored, "watermark", finalWatermark)
	return result, nil
}

func (r *EventRecovery) fetchWithBackoff(ctx context.Context, from, to uint64) ([]types.Log, error) {
	var lastErr error
	rateLimitHits := 0
	for {
		logs, err := r.chain.FilterLogs(ctx, from, to)
		if err == nil {
			return logs, nil
		}
		lastErr = err
		if !isRateLimited(err) {
			return nil, err
		}
		if rateLimitHits >= len(rateLimitBackoffs) {
			return nil, fmt.Errorf("event_recovery: rate limited %d times, giving up: %w", rateLimitHits, lastErr)
		}
		delay := rateLimitBackoffs[rateLimitHits]
		r.log.Warnw("event_recovery.rate_limited", "attempt", rateLimitHits+1, "retry_in", delay)
		rateLimitHits++
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func isRateLimited(err error) bool {
	// classify.Transient wraps the underlying RPC error; string-sniff the
	// same markers internal/chain.isRateLimited already uses.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests")
}

func (r *EventRecovery) persistLog(ctx context.Context, l types.Log) (stored int, duplicate int, err error) {
	minter, author, startTokenID, quantity, _, err := contract.DecodeBatchMinted(l)
	if err != nil {
		return 0, 0, fmt.Errorf("decode log: %w", err)
	}

	blockTime, err := r.chain.BlockTimestamp(ctx, l.BlockNumber)
	if err != nil {
		return 0, 0, fmt.Errorf("block timestamp: %w", err)
	}

	authorWallet := author.Hex()
	txHash := l.TxHash.Hex()
	logIndex := int(l.Index)

	err = r.store.WithTx(func(tx *gorm.DB) error {
		exists, err := store.MintEventExists(tx, txHash, logIndex)
		if err != nil {
			return err
		}
		if exists {
			duplicate++
			return nil
		}

		resolved, err := r.store.ResolveAuthor(authorWallet, r.defaultAuthorWallet)
		if err != nil {
			return err
		}

		if err := store.InsertMintEvent(tx, &store.MintEvent{
			TxHash:         txHash,
			LogIndex:       logIndex,
			BlockNumber:    l.BlockNumber,
			BlockTimestamp: blockTime,
			TokenID:        startTokenID.Uint64(),
			AuthorWallet:   authorWallet,
			Recipient:      minter.Hex(),
			DetectedAt:     time.Now(),
		}); err != nil {
			return err
		}

		start := startTokenID.Uint64()
		n := quantity.Uint64()
		for i := uint64(0); i < n; i++ {
			if err := store.InsertToken(tx, start+i, resolved.ID, store.StatusDetected); err != nil {
				if store.IsUniqueViolation(err) {
					duplicate++
					continue
				}
				return err
			}
			stored++
		}
		return nil
	})
	return stored, duplicate, err
}
