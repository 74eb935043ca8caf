// Package health runs dependency checks (redis, postgres, kafka, the
// generator's circuit breaker) concurrently and serves them as liveness and
// readiness endpoints.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the state of one component or of the whole service.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// severity orders statuses so the report takes the worst one.
func (s Status) severity() int {
	switch s {
	case StatusDown:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

// DefaultCheckTimeout bounds each check within a Run.
const DefaultCheckTimeout = 3 * time.Second

// Check probes a single dependency.
type Check func(ctx context.Context) ComponentHealth

// ComponentHealth is the outcome of one Check.
type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report aggregates every component. Status is the worst component status.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

// Checker holds the registered checks and remembers the last status of each
// component so transitions are logged once.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]Check
	last    map[string]Status
	timeout time.Duration
	started time.Time
	logger  *slog.Logger
}

func NewChecker() *Checker {
	return &Checker{
		checks:  make(map[string]Check),
		last:    make(map[string]Status),
		timeout: DefaultCheckTimeout,
		started: time.Now(),
		logger:  slog.Default().With("component", "health"),
	}
}

// Register adds or replaces the check for name.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Run executes every check in parallel, each under its own timeout.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	results := make(map[string]ComponentHealth, len(checks))
	var mu sync.Mutex
	var g errgroup.Group
	for name, check := range checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			start := time.Now()
			res := check(cctx)
			res.Latency = time.Since(start).Round(time.Millisecond).String()
			mu.Lock()
			results[name] = res
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	report := Report{
		Status:     StatusUp,
		Components: results,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for _, res := range results {
		if res.Status.severity() > report.Status.severity() {
			report.Status = res.Status
		}
	}
	c.logTransitions(results)
	return report
}

func (c *Checker) logTransitions(results map[string]ComponentHealth) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, res := range results {
		prev, seen := c.last[name]
		c.last[name] = res.Status
		if !seen || prev == res.Status {
			continue
		}
		if res.Status == StatusUp {
			c.logger.Info("component recovered", "name", name, "from", prev)
		} else {
			c.logger.Warn("component unhealthy", "name", name, "status", res.Status, "message", res.Message)
		}
	}
}

// PingCheck adapts a ping function. A failing ping marks the component down
// when critical, degraded otherwise.
func PingCheck(ping func(ctx context.Context) error, critical bool) Check {
	failed := StatusDegraded
	if critical {
		failed = StatusDown
	}
	return func(ctx context.Context) ComponentHealth {
		if err := ping(ctx); err != nil {
			return ComponentHealth{Status: failed, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// LiveHandler always answers 200 with the process uptime.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "alive",
			"uptime": time.Since(c.started).Round(time.Second).String(),
		})
	}
}

// ReadyHandler answers 200 unless a component is down. Degraded is ready:
// the game keeps working on in-memory fallbacks.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		code := http.StatusOK
		if report.Status == StatusDown {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, report)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
