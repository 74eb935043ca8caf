package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/logger"
)

const indexPage = `<html><head><title>prompted metrics</title></head>` +
	`<body><a href="/metrics">/metrics</a></body></html>`

// newMux serves gatherer on /metrics and a link page on /. A nil gatherer
// scrapes the default registry.
func newMux(gatherer prometheus.Gatherer) *http.ServeMux {
	scrape := Handler()
	if gatherer != nil {
		scrape = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
	}
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", scrape)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, indexPage)
	})
	return mux
}

// StartServer listens on port in the background and returns its shutdown
// function. Listen errors are logged, not returned.
func StartServer(port int, gatherer prometheus.Gatherer) (shutdown func(context.Context) error) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           newMux(gatherer),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	log := logger.WithComponent("metrics-server")
	go func() {
		log.Info("serving metrics", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "error", err)
		}
	}()
	return srv.Shutdown
}
