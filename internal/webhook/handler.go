package webhook

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/NikitaPirate/Glisk/internal/cache"
	"github.com/NikitaPirate/Glisk/internal/chain"
	"github.com/NikitaPirate/Glisk/internal/logger"
	"github.com/NikitaPirate/Glisk/internal/metrics"
	"github.com/NikitaPirate/Glisk/internal/store"
)

// maxBodyBytes bounds memory on abuse before signature verification even
// runs (ambient hardening the distilled spec is silent on).
const maxBodyBytes = 1 << 20 // 1MB

// Handler implements POST /webhooks/alchemy (spec.md §4.2, §6).
type Handler struct {
	store               *store.Store
	authors             *cache.AuthorCache
	secret              []byte
	contractAddressLow  string
	defaultAuthorWallet string
	log                 *zap.SugaredLogger
}

// NewHandler builds a webhook handler bound to contractAddress
// (case-insensitive match against incoming logs) and the shared secret
// used to verify pushes.
func NewHandler(st *store.Store, authors *cache.AuthorCache, secret []byte, contractAddress, defaultAuthorWallet string) *Handler {
	return &Handler{
		store:               st,
		authors:             authors,
		secret:              secret,
		contractAddressLow:  strings.ToLower(contractAddress),
		defaultAuthorWallet: defaultAuthorWallet,
		log:                 logger.For(logger.Ingest),
	}
}

type eventResult struct {
	TxHash   string   `json:"tx_hash"`
	LogIndex int      `json:"log_index"`
	Status   string   `json:"status"` // "created" | "duplicate"
	TokenIDs []uint64 `json:"token_ids,omitempty"`
}

type response struct {
	Status string        `json:"status"`
	Events []eventResult `json:"events,omitempty"`
}

// Handle implements httprouter.Handle.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.Warnw("webhook.body_read_error", "err", err)
		http.Error(w, "request body too large or unreadable", http.StatusBadRequest)
		return
	}

	sig := r.Header.Get("X-Alchemy-Signature")
	if !VerifySignature(h.secret, body, sig) {
		h.log.Warnw("webhook.signature_rejected")
		metrics.WebhookEvents.WithLabelValues("unauthorized").Inc()
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.log.Warnw("webhook.malformed", "err", err)
		metrics.WebhookEvents.WithLabelValues("malformed").Inc()
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	h.log.Infow("webhook.received", "webhook_id", payload.WebhookID, "event_id", payload.ID)

	var blockNum uint64
	if n, ok := new(big.Int).SetString(payload.Event.Data.Block.Number.String(), 0); ok {
		blockNum = n.Uint64()
	}

	var results []eventResult
	topic0 := strings.ToLower(chain.BatchMintedTopic0.Hex())

	for _, l := range payload.Event.Data.Block.Logs {
		if strings.ToLower(l.Account.Address) != h.contractAddressLow {
			continue
		}
		if len(l.Topics) == 0 || strings.ToLower(l.Topics[0]) != topic0 {
			continue
		}
		if l.Transaction.Status != 1 {
			h.log.Warnw("webhook.skip_failed_tx", "tx_hash", l.Transaction.Hash)
			continue
		}
		if l.Removed {
			h.log.Warnw("webhook.skip_removed_log", "tx_hash", l.Transaction.Hash)
			continue
		}

		decoded, err := chain.DecodeBatchMintedHex(l.Topics, l.Data)
		if err != nil {
			h.log.Warnw("webhook.decode_error", "err", err, "tx_hash", l.Transaction.Hash)
			http.Error(w, "failed to decode event: "+err.Error(), http.StatusBadRequest)
			return
		}

		result, err := h.persist(l.Transaction.Hash, l.Index, blockNum, decoded)
		if err != nil {
			h.log.Errorw("webhook.storage_error", "err", err, "tx_hash", l.Transaction.Hash)
			metrics.WebhookEvents.WithLabelValues("storage_error").Inc()
			http.Error(w, "failed to store event", http.StatusInternalServerError)
			return
		}
		metrics.WebhookEvents.WithLabelValues(result.Status).Inc()
		results = append(results, *result)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response{Status: "success", Events: results})
}

func (h *Handler) persist(txHash string, logIndex int, blockNumber uint64, d *chain.DecodedBatchMinted) (*eventResult, error) {
	authorWallet := chain.ChecksumAddress(d.Author)
	minter := chain.ChecksumAddress(d.Minter)

	var result eventResult
	err := h.store.WithTx(func(tx *gorm.DB) error {
		exists, err := store.MintEventExists(tx, txHash, logIndex)
		if err != nil {
			return err
		}
		if exists {
			h.log.Warnw("webhook.duplicate", "tx_hash", txHash, "log_index", logIndex)
			result = eventResult{TxHash: txHash, LogIndex: logIndex, Status: "duplicate"}
			return nil
		}

		author, ok := h.authors.Get(authorWallet)
		if !ok {
			a, err := h.store.ResolveAuthor(authorWallet, h.defaultAuthorWallet)
			if err != nil {
				return err
			}
			author = a
			h.authors.Put(authorWallet, a)
		}

		if err := store.InsertMintEvent(tx, &store.MintEvent{
			TxHash:         txHash,
			LogIndex:       logIndex,
			BlockNumber:    blockNumber,
			BlockTimestamp: time.Now(),
			TokenID:        d.StartTokenID.Uint64(),
			AuthorWallet:   authorWallet,
			Recipient:      minter,
			DetectedAt:     time.Now(),
		}); err != nil {
			return err
		}

		quantity := d.Quantity.Uint64()
		start := d.StartTokenID.Uint64()
		ids := make([]uint64, 0, quantity)
		for i := uint64(0); i < quantity; i++ {
			tokenID := start + i
			if err := store.InsertToken(tx, tokenID, author.ID, store.StatusDetected); err != nil {
				return err
			}
			ids = append(ids, tokenID)
		}

		h.log.Infow("webhook.persisted", "tx_hash", txHash, "log_index", logIndex, "token_count", len(ids))
		result = eventResult{TxHash: txHash, LogIndex: logIndex, Status: "created", TokenIDs: ids}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
