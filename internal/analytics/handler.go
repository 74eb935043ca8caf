package analytics

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/logger"
)

// StatsSource is implemented by a live Aggregator and by the snapshot store.
type StatsSource interface {
	CurrentStats(ctx context.Context) (AggregatedStats, error)
}

func (a *Aggregator) CurrentStats(context.Context) (AggregatedStats, error) {
	return a.Stats(), nil
}

// Handler serves GET /api/v1/analytics.
type Handler struct {
	source StatsSource
}

func NewHandler(source StatsSource) *Handler {
	return &Handler{source: source}
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context()).With("component", "analytics-handler")
	status, body := http.StatusOK, any(nil)

	stats, err := h.source.CurrentStats(r.Context())
	if err != nil {
		log.Error("loading analytics", "error", err)
		status, body = http.StatusServiceUnavailable, map[string]string{"error": "analytics unavailable"}
	} else {
		body = stats
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn("writing analytics response", "error", err)
	}
}
