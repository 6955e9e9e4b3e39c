package imagegen

import (
	"context"
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
	"go.uber.org/zap"

	"github.com/NikitaPirate/Glisk/internal/classify"
	"github.com/NikitaPirate/Glisk/internal/logger"
	"github.com/NikitaPirate/Glisk/internal/metrics"
	"github.com/NikitaPirate/Glisk/internal/store"
)

const stageLabel = "imagegen"

// maxPromptLen matches original_source's prompt_validator.py bound.
const maxPromptLen = 1000

// Worker claims detected tokens and advances them to uploading by
// calling the external text-to-image service (spec.md §4.5).
type Worker struct {
	store          *store.Store
	client         *Client
	batchSize      int
	pollInterval   time.Duration
	fallbackPrompt string
	defaultWallet  string
	log            *zap.SugaredLogger
}

func NewWorker(st *store.Store, client *Client, batchSize int, pollInterval time.Duration, fallbackPrompt, defaultWallet string) *Worker {
	return &Worker{
		store:          st,
		client:         client,
		batchSize:      batchSize,
		pollInterval:   pollInterval,
		fallbackPrompt: fallbackPrompt,
		defaultWallet:  defaultWallet,
		log:            logger.For(logger.ImageGen),
	}
}

// Run polls until ctx is cancelled. It is meant to be hosted by the
// supervisor's auto-restart loop, so a single failed tick returns an
// error rather than looping internally.
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
	var ids []uint64
	err := w.store.WithTx(func(tx *gorm.DB) error {
		tokens, err := store.ClaimDetected(tx, w.batchSize)
		if err != nil {
			return err
		}
		for _, t := range tokens {
			ids = append(ids, t.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("claim detected: %w", err)
	}

	if len(ids) > 0 {
		metrics.TokensClaimed.WithLabelValues(stageLabel).Add(float64(len(ids)))
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		started := time.Now()
		w.processOne(ctx, id)
		metrics.StageDuration.WithLabelValues(stageLabel).Observe(time.Since(started).Seconds())
	}
	return nil
}

// processOne runs one token through §4.5 steps 1-5. Each numbered step
// below corresponds to the spec's own numbering.
func (w *Worker) processOne(ctx context.Context, id uint64) {
	// Step 1: re-fetch, verify still detected, transition to
	// generating, commit immediately to publish the lease.
	var token store.Token
	err := w.store.WithTx(func(tx *gorm.DB) error {
		t, err := store.GetToken(tx, id)
		if err != nil {
			return err
		}
		if t.Status != store.StatusDetected {
			token = *t
			return errSkip
		}
		if err := store.TransitionTo(tx, t, store.StatusGenerating); err != nil {
			return err
		}
		token = *t
		return nil
	})
	if err == errSkip {
		return
	}
	if err != nil {
		w.log.Errorw("imagegen.claim_failed", "token_id", id, "err", err)
		return
	}

	author, err := w.store.GetAuthorByID(token.AuthorID)
	if err != nil {
		w.failPermanently(&token, fmt.Sprintf("load author: %v", err))
		return
	}

	// Step 2 & 3: resolve and validate prompt.
	prompt, ok := w.store.ResolvePrompt(author, w.defaultWallet)
	if !ok {
		w.failPermanently(&token, "no prompt text available for author or default author")
		return
	}
	if err := validatePrompt(prompt); err != nil {
		w.failPermanently(&token, err.Error())
		return
	}

	// Step 4: call the external service.
	imageURL, err := w.client.Generate(ctx, prompt)
	if err == nil {
		w.succeed(&token, imageURL, prompt, false)
		return
	}

	switch classify.KindOf(err) {
	case classify.KindContentPolicy:
		w.log.Warnw("token.censored", "token_id", token.ID, "prompt_len", len(prompt))
		w.recordJob(token.ID, prompt, false, false, nil, err.Error())
		w.retryWithFallback(ctx, &token, err)
	case classify.KindPermanent:
		w.recordJob(token.ID, prompt, false, false, nil, err.Error())
		w.failPermanently(&token, err.Error())
	default:
		w.recordJob(token.ID, prompt, false, false, nil, err.Error())
		w.rollbackTransient(&token, err.Error())
	}
}

// retryWithFallback implements §4.5's "retry immediately in the same
// transaction" content-policy path; here "same transaction" is
// preserved at the level of a single uninterrupted attempt, since the
// first attempt already committed the generating transition in its own
// transaction per §4.5 step 1.
func (w *Worker) retryWithFallback(ctx context.Context, token *store.Token, firstErr error) {
	if w.fallbackPrompt == "" {
		w.failPermanently(token, fmt.Sprintf("content policy rejection with no fallback prompt configured: %v", firstErr))
		return
	}
	imageURL, err := w.client.Generate(ctx, w.fallbackPrompt)
	if err != nil {
		w.recordJob(token.ID, w.fallbackPrompt, true, false, nil, err.Error())
		w.failPermanently(token, fmt.Sprintf("fallback prompt also rejected: %v", err))
		return
	}
	w.succeed(token, imageURL, w.fallbackPrompt, true)
}

// succeed implements §4.5 step 5.
func (w *Worker) succeed(token *store.Token, imageURL, prompt string, usedFallback bool) {
	err := w.store.WithTx(func(tx *gorm.DB) error {
		t, err := store.GetToken(tx, token.ID)
		if err != nil {
			return err
		}
		t.ImageURL = &imageURL
		if err := store.TransitionTo(tx, t, store.StatusUploading); err != nil {
			return err
		}
		return store.RecordImageGenerationJob(tx, token.ID, prompt, usedFallback, true, &imageURL, nil)
	})
	if err != nil {
		w.log.Errorw("imagegen.commit_success_failed", "token_id", token.ID, "err", err)
		return
	}
	metrics.TokensAdvanced.WithLabelValues(stageLabel).Inc()
}

// rollbackTransient implements §4.5's Transient branch: the
// generating transition is rolled back to detected, attempts bumped,
// left for the next poll tick. No retry cap.
func (w *Worker) rollbackTransient(token *store.Token, reason string) {
	err := w.store.WithTx(func(tx *gorm.DB) error {
		t, err := store.GetToken(tx, token.ID)
		if err != nil {
			return err
		}
		t.Status = store.StatusDetected
		return store.RecordTransientFailure(tx, t, reason)
	})
	if err != nil {
		w.log.Errorw("imagegen.rollback_failed", "token_id", token.ID, "err", err)
	}
}

func (w *Worker) failPermanently(token *store.Token, reason string) {
	err := w.store.WithTx(func(tx *gorm.DB) error {
		t, err := store.GetToken(tx, token.ID)
		if err != nil {
			return err
		}
		return store.MarkFailed(tx, t, reason)
	})
	if err != nil {
		w.log.Errorw("imagegen.fail_commit_failed", "token_id", token.ID, "err", err)
		return
	}
	metrics.TokensFailed.WithLabelValues(stageLabel, "permanent").Inc()
}

func (w *Worker) recordJob(tokenID uint64, prompt string, usedFallback, success bool, imageURL *string, errMsg string) {
	err := w.store.WithTx(func(tx *gorm.DB) error {
		return store.RecordImageGenerationJob(tx, tokenID, prompt, usedFallback, success, imageURL, &errMsg)
	})
	if err != nil {
		w.log.Errorw("imagegen.audit_record_failed", "token_id", tokenID, "err", err)
	}
}

func validatePrompt(prompt string) error {
	if prompt == "" {
		return classify.Permanent("imagegen.validatePrompt", fmt.Errorf("prompt is empty"))
	}
	if len(prompt) > maxPromptLen {
		return classify.Permanent("imagegen.validatePrompt", fmt.Errorf("prompt exceeds %d characters", maxPromptLen))
	}
	return nil
}

var errSkip = fmt.Errorf("imagegen: token no longer detected")
