// Package api implements the read-only HTTP surface (spec.md §4.9):
// paginated per-author token listing, liveness, and the Prometheus
// exporter, routed with the teacher's own httprouter dependency.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/NikitaPirate/Glisk/internal/logger"
	"github.com/NikitaPirate/Glisk/internal/store"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type tokenView struct {
	TokenID      uint64  `json:"token_id"`
	Status       string  `json:"status"`
	ImageURL     *string `json:"image_url,omitempty"`
	MetadataCID  *string `json:"metadata_cid,omitempty"`
	RevealTxHash *string `json:"reveal_tx_hash,omitempty"`
}

type statusResponse struct {
	Wallet string      `json:"wallet"`
	Total  int         `json:"total"`
	Offset int         `json:"offset"`
	Limit  int         `json:"limit"`
	Tokens []tokenView `json:"tokens"`
}

// StatusHandler serves GET /authors/:wallet/tokens.
type StatusHandler struct {
	store *store.Store
	log   *zap.SugaredLogger
}

func NewStatusHandler(st *store.Store) *StatusHandler {
	return &StatusHandler{store: st, log: logger.For(logger.API)}
}

func (h *StatusHandler) Handle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	wallet := ps.ByName("wallet")

	offset, err := parseIntDefault(r.URL.Query().Get("offset"), 0)
	if err != nil {
		http.Error(w, "invalid offset", http.StatusBadRequest)
		return
	}
	limit, err := parseIntDefault(r.URL.Query().Get("limit"), defaultLimit)
	if err != nil {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}

	tokens, total, err := h.store.TokensByAuthorWallet(wallet, offset, limit)
	if err != nil {
		h.log.Errorw("api.status_query_failed", "wallet", wallet, "err", err)
		http.Error(w, "query failed", http.StatusBadRequest)
		return
	}

	views := make([]tokenView, len(tokens))
	for i, t := range tokens {
		views[i] = tokenView{
			TokenID:      t.TokenID,
			Status:       string(t.Status),
			ImageURL:     t.ImageURL,
			MetadataCID:  t.MetadataCID,
			RevealTxHash: t.RevealTxHash,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(statusResponse{
		Wallet: wallet,
		Total:  total,
		Offset: offset,
		Limit:  limit,
		Tokens: views,
	})
}

func parseIntDefault(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
