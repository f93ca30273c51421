// Package tracing records a span tree for one preprocessing run. Each stage
// of the pipeline is a child of the run's root span; the finished tree is
// logged through slog and walked to feed stage-duration metrics.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type spanKey struct{}

// Span is a timed operation. Attributes keep insertion order so the logged
// tree reads the same on every run.
type Span struct {
	Name      string
	TraceID   string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Err       error

	mu       sync.Mutex
	children []*Span
	attrs    []slog.Attr
}

// StartSpan starts a root span for traceID.
func StartSpan(ctx context.Context, name, traceID string) (context.Context, *Span) {
	s := &Span{Name: name, TraceID: traceID, StartTime: time.Now()}
	return context.WithValue(ctx, spanKey{}, s), s
}

// StartChildSpan starts a span under the one held by ctx. Without a parent
// the child is a detached root with no trace id.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	s := &Span{Name: name, StartTime: time.Now()}
	if parent := SpanFromContext(ctx); parent != nil {
		s.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, s)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, spanKey{}, s), s
}

// Stage runs fn inside a child span named name and records its error.
func Stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, s := StartChildSpan(ctx, name)
	err := fn(ctx)
	s.Err = err
	s.End()
	return err
}

// End stamps the end time.
func (s *Span) End() {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
}

func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, slog.Any(key, value))
	s.mu.Unlock()
}

// Attr returns the last value recorded under key.
func (s *Span) Attr(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.attrs) - 1; i >= 0; i-- {
		if s.attrs[i].Key == key {
			return s.attrs[i].Value.Any(), true
		}
	}
	return nil, false
}

// Children returns a snapshot of the direct children.
func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// SetAttr records an attribute on the span held by ctx, if any.
func SetAttr(ctx context.Context, key string, value any) {
	if s := SpanFromContext(ctx); s != nil {
		s.SetAttr(key, value)
	}
}

func SpanFromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(spanKey{}).(*Span)
	return s
}

// Walk calls fn for s and every descendant, depth first.
func (s *Span) Walk(fn func(s *Span, depth int)) {
	var walk func(*Span, int)
	walk = func(s *Span, depth int) {
		fn(s, depth)
		for _, c := range s.Children() {
			walk(c, depth+1)
		}
	}
	walk(s, 0)
}

// Log writes one record per span to logger.
func (s *Span) Log(logger *slog.Logger) {
	s.Walk(func(s *Span, depth int) {
		attrs := []slog.Attr{
			slog.String("trace_id", s.TraceID),
			slog.String("span", s.Name),
			slog.Int64("duration_ms", s.Duration.Milliseconds()),
			slog.Int("depth", depth),
		}
		if s.Err != nil {
			attrs = append(attrs, slog.Any("error", s.Err))
		}
		s.mu.Lock()
		attrs = append(attrs, s.attrs...)
		s.mu.Unlock()
		logger.LogAttrs(context.Background(), slog.LevelInfo, "span", attrs...)
	})
}
