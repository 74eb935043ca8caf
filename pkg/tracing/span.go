// Package tracing times the steps of a multi-call operation, such as
// creating a round (prompt generation, then content generation), and logs
// the whole tree as one record when it finishes.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type spanKey struct{}

// Span is one timed step. Children are steps started under it.
type Span struct {
	Name      string
	TraceID   string
	StartTime time.Time
	Duration  time.Duration
	Err       string
	Attrs     map[string]any
	Children  []*Span

	mu    sync.Mutex
	ended bool
}

func newSpan(name, traceID string) *Span {
	return &Span{Name: name, TraceID: traceID, StartTime: time.Now(), Attrs: make(map[string]any)}
}

// StartSpan begins a trace. An empty traceID gets a fresh UUID; callers pass
// the request ID so logs and traces line up.
func StartSpan(ctx context.Context, name string, traceID string) (context.Context, *Span) {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	span := newSpan(name, traceID)
	return context.WithValue(ctx, spanKey{}, span), span
}

// StartChildSpan begins a step under the span in ctx. Without a parent the
// span is detached and has no trace ID.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	parent := SpanFromContext(ctx)
	if parent == nil {
		child := newSpan(name, "")
		return context.WithValue(ctx, spanKey{}, child), child
	}
	child := newSpan(name, parent.TraceID)
	parent.mu.Lock()
	parent.Children = append(parent.Children, child)
	parent.mu.Unlock()
	return context.WithValue(ctx, spanKey{}, child), child
}

// SpanFromContext returns the innermost span in ctx, or nil.
func SpanFromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(spanKey{}).(*Span)
	return span
}

// End fixes the span's duration. Later calls are no-ops.
func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.Duration = time.Since(s.StartTime)
}

// EndWithError ends the span and records err when non-nil.
func (s *Span) EndWithError(err error) {
	if err != nil {
		s.mu.Lock()
		s.Err = err.Error()
		s.mu.Unlock()
	}
	s.End()
}

func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.Attrs[key] = value
	s.mu.Unlock()
}

// Log writes the tree as a single debug record: the root's timing and
// attributes, plus one group per descendant step.
func (s *Span) Log() {
	s.End()
	attrs := []any{"trace_id", s.TraceID}
	attrs = append(attrs, s.group(s.Name))
	s.mu.Lock()
	children := append([]*Span(nil), s.Children...)
	s.mu.Unlock()
	for _, child := range children {
		attrs = append(attrs, child.flatten(child.Name)...)
	}
	slog.Default().With("component", "tracing").Debug("trace", attrs...)
}

func (s *Span) group(key string) slog.Attr {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields := []any{"duration_ms", s.Duration.Milliseconds()}
	if s.Err != "" {
		fields = append(fields, "error", s.Err)
	}
	for k, v := range s.Attrs {
		fields = append(fields, k, v)
	}
	return slog.Group(key, fields...)
}

func (s *Span) flatten(prefix string) []any {
	out := []any{s.group(prefix)}
	s.mu.Lock()
	children := append([]*Span(nil), s.Children...)
	s.mu.Unlock()
	for _, child := range children {
		out = append(out, child.flatten(prefix+"."+child.Name)...)
	}
	return out
}
