package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/prompted/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/ratelimit"
)

// RouterConfig carries the middleware dependencies. Nil Metrics or Limiter
// disable that middleware.
type RouterConfig struct {
	Metrics        *metrics.Metrics
	Limiter        *ratelimit.Limiter
	RequestTimeout time.Duration
	AllowOrigins   []string
	Health         *health.Checker
}

// NewRouter builds the HTTP handler with all routes and middleware.
//
// Route table:
//
//	POST /api/v1/score              → score two strings
//	POST /api/v1/rounds             → new practice round
//	POST /api/v1/rounds/{id}/guess  → guess a practice round
//	GET  /api/v1/daily              → today's challenge
//	POST /api/v1/daily/guess        → submit the daily guess
//	GET  /api/v1/daily/result       → stored daily result
//	GET  /api/v1/news               → AI news page
//	GET  /api/v1/analytics          → aggregated guess stats
//	GET  /health/live, /health/ready
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → Metrics → Timeout → RateLimit → mux
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Health != nil {
		mux.HandleFunc("GET /health/live", cfg.Health.LiveHandler())
		mux.HandleFunc("GET /health/ready", cfg.Health.ReadyHandler())
	}

	mux.HandleFunc("POST /api/v1/score", h.Score)

	mux.HandleFunc("POST /api/v1/rounds", h.CreateRound)
	mux.HandleFunc("POST /api/v1/rounds/{id}/guess", h.GuessRound)

	mux.HandleFunc("GET /api/v1/daily", h.Daily)
	mux.HandleFunc("POST /api/v1/daily/guess", h.DailyGuess)
	mux.HandleFunc("GET /api/v1/daily/result", h.DailyResult)

	mux.HandleFunc("GET /api/v1/news", h.News)
	mux.HandleFunc("GET /api/v1/analytics", h.Analytics)

	var chain http.Handler = mux
	if cfg.Limiter != nil {
		chain = pkgmw.RateLimit(cfg.Limiter, isLimited)(chain)
	}
	chain = pkgmw.Timeout(cfg.RequestTimeout)(chain)
	if cfg.Metrics != nil {
		chain = pkgmw.Metrics(cfg.Metrics)(chain)
	}
	chain = pkgmw.CORS(pkgmw.DefaultCORSConfig(cfg.AllowOrigins...))(chain)
	chain = pkgmw.RequestID(chain)

	return chain
}

// isLimited selects the endpoints that score guesses or call the generator.
func isLimited(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	return strings.HasSuffix(r.URL.Path, "/guess") || r.URL.Path == "/api/v1/rounds"
}
