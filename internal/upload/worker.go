package upload

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

const stageLabel = "upload"

// Worker claims tokens in status uploading, pins their image and
// metadata to IPFS, and advances them to ready (spec.md §4.6).
type Worker struct {
	store          *store.Store
	pin            *PinClient
	batchSize      int
	pollInterval   time.Duration
	galleryBaseURL string
	log            *zap.SugaredLogger
}

func NewWorker(st *store.Store, pin *PinClient, batchSize int, pollInterval time.Duration, galleryBaseURL string) *Worker {
	return &Worker{
		store:          st,
		pin:            pin,
		batchSize:      batchSize,
		pollInterval:   pollInterval,
		galleryBaseURL: galleryBaseURL,
		log:            logger.For(logger.Upload),
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
	var tokens []store.Token
	err := w.store.WithTx(func(tx *gorm.DB) error {
		var err error
		tokens, err = store.ClaimUploading(tx, w.batchSize)
		return err
	})
	if err != nil {
		return fmt.Errorf("claim uploading: %w", err)
	}

	if len(tokens) > 0 {
		metrics.TokensClaimed.WithLabelValues(stageLabel).Add(float64(len(tokens)))
	}

	for _, t := range tokens {
		if err := ctx.Err(); err != nil {
			return err
		}
		started := time.Now()
		w.processOne(ctx, t.ID)
		metrics.StageDuration.WithLabelValues(stageLabel).Observe(time.Since(started).Seconds())
	}
	return nil
}

// processOne runs steps 1-4 of spec.md §4.6. Re-fetching inside each
// sub-transaction mirrors imagegen's pattern of never holding a token's
// row lock across an external call.
func (w *Worker) processOne(ctx context.Context, id uint64) {
	token, err := w.getToken(id)
	if err != nil {
		w.log.Errorw("upload.load_failed", "token_id", id, "err", err)
		return
	}
	if token.ImageURL == nil {
		w.leaveForRetry(id, "token has no image_url")
		return
	}

	imageCID, err := w.pin.PinImage(ctx, *token.ImageURL, token.TokenID)
	w.recordPin(id, store.PinKindImage, imageCID, err)
	if err != nil {
		w.handleError(id, err)
		return
	}

	author, err := w.store.GetAuthorByID(token.AuthorID)
	if err != nil {
		w.leaveForRetry(id, fmt.Sprintf("load author: %v", err))
		return
	}

	metadata := BuildMetadata(token.TokenID, imageCID, author.TwitterHandle, w.galleryBaseURL)
	metadataCID, err := w.pin.PinMetadata(ctx, metadata, token.TokenID)
	w.recordPin(id, store.PinKindMetadata, metadataCID, err)
	if err != nil {
		w.handleError(id, err)
		return
	}

	w.succeed(id, imageCID, metadataCID)
}

func (w *Worker) getToken(id uint64) (*store.Token, error) {
	var token *store.Token
	err := w.store.WithTx(func(tx *gorm.DB) error {
		t, err := store.GetToken(tx, id)
		if err != nil {
			return err
		}
		token = t
		return nil
	})
	return token, err
}

func (w *Worker) succeed(id uint64, imageCID, metadataCID string) {
	err := w.store.WithTx(func(tx *gorm.DB) error {
		t, err := store.GetToken(tx, id)
		if err != nil {
			return err
		}
		t.ImageCID = &imageCID
		t.MetadataCID = &metadataCID
		return store.TransitionTo(tx, t, store.StatusReady)
	})
	if err != nil {
		w.log.Errorw("upload.commit_success_failed", "token_id", id, "err", err)
		return
	}
	metrics.TokensAdvanced.WithLabelValues(stageLabel).Inc()
}

// handleError implements §4.6's "classified identically to §4.5":
// transient errors leave the token in uploading for the next poll tick;
// permanent (and content-policy, which has no real meaning for a pinning
// call but is treated the same way) marks the token failed.
func (w *Worker) handleError(id uint64, cause error) {
	if classify.KindOf(cause) == classify.KindTransient {
		w.leaveForRetry(id, cause.Error())
		return
	}
	err := w.store.WithTx(func(tx *gorm.DB) error {
		t, err := store.GetToken(tx, id)
		if err != nil {
			return err
		}
		return store.MarkFailed(tx, t, cause.Error())
	})
	if err != nil {
		w.log.Errorw("upload.fail_commit_failed", "token_id", id, "err", err)
		return
	}
	metrics.TokensFailed.WithLabelValues(stageLabel, "permanent").Inc()
}

func (w *Worker) leaveForRetry(id uint64, reason string) {
	err := w.store.WithTx(func(tx *gorm.DB) error {
		t, err := store.GetToken(tx, id)
		if err != nil {
			return err
		}
		return store.RecordTransientFailure(tx, t, reason)
	})
	if err != nil {
		w.log.Errorw("upload.retry_commit_failed", "token_id", id, "err", err)
	}
}

func (w *Worker) recordPin(tokenID uint64, kind string, cid string, cause error) {
	success := cause == nil
	var cidPtr *string
	if success {
		cidPtr = &cid
	}
	var errPtr *string
	if cause != nil {
		msg := cause.Error()
		errPtr = &msg
	}
	err := w.store.WithTx(func(tx *gorm.DB) error {
		return store.RecordIPFSUpload(tx, tokenID, kind, success, cidPtr, errPtr)
	})
	if err != nil {
		w.log.Errorw("upload.audit_record_failed", "token_id", tokenID, "err", err)
	}
}
