package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/NikitaPirate/Glisk/internal/metrics"
	"github.com/NikitaPirate/Glisk/internal/store"
	"github.com/NikitaPirate/Glisk/internal/webhook"
)

// NewRouter wires the webhook ingester, status API, health check and
// metrics exporter behind one httprouter instance.
func NewRouter(st *store.Store, webhookHandler *webhook.Handler) http.Handler {
	r := httprouter.New()

	r.POST("/webhooks/alchemy", webhookHandler.Handle)

	status := NewStatusHandler(st)
	r.GET("/authors/:wallet/tokens", status.Handle)

	health := NewHealthHandler(st)
	r.GET("/health", health.Handle)

	r.Handler(http.MethodGet, "/metrics", metrics.Handler())

	return r
}
