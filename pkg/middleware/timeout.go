package middleware

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/logger"
)

// Timeout bounds each request by d. A handler still silent at the deadline
// is answered with 504 and any later writes it makes are dropped. A handler
// that already started its response is left to finish on a cancelled context.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			gw := &guardedWriter{ResponseWriter: w}
			finished := make(chan struct{})
			go func() {
				defer close(finished)
				next.ServeHTTP(gw, r.WithContext(ctx))
			}()

			select {
			case <-finished:
				return
			case <-ctx.Done():
			}
			if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				<-finished
				return
			}
			if !gw.seal() {
				<-finished
				return
			}
			logger.FromContext(r.Context()).Warn("request timed out",
				"method", r.Method, "path", r.URL.Path, "timeout", d)
			writeError(w, http.StatusGatewayTimeout, "request timeout")
		})
	}
}

// guardedWriter stops passing writes through once sealed.
type guardedWriter struct {
	http.ResponseWriter
	mu      sync.Mutex
	started bool
	sealed  bool
}

// seal blocks further writes unless the response already started, and
// reports whether it sealed.
func (g *guardedWriter) seal() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sealed = !g.started
	return g.sealed
}

func (g *guardedWriter) WriteHeader(code int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed {
		return
	}
	g.started = true
	g.ResponseWriter.WriteHeader(code)
}

func (g *guardedWriter) Write(b []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed {
		return 0, http.ErrHandlerTimeout
	}
	g.started = true
	return g.ResponseWriter.Write(b)
}
