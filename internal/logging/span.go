package logging

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Span times one step of a request, such as publishing an upload or running a cascade delete.
// Every line logged through the span's context carries its ids.
type Span struct {
	Name     string
	TraceID  string
	ID       string
	ParentID string

	base   *slog.Logger
	logger *slog.Logger
	start  time.Time

	mu    sync.Mutex
	attrs []any
}

// StartSpan opens a span named name beneath whatever span ctx already holds. Without a parent the
// request id becomes the trace id; outside a request a fresh one is minted.
func StartSpan(ctx context.Context, name string, attrs ...any) (context.Context, *Span) {
	ctx = orBackground(ctx)

	span := &Span{Name: name, ID: uuid.NewString(), start: time.Now()}
	logger := FromContext(ctx)

	switch parent := SpanFromContext(ctx); {
	case parent != nil:
		// children start from the parent's base so span keys are not repeated
		logger = parent.base
		span.TraceID = parent.TraceID
		span.ParentID = parent.ID
	case RequestIDFromContext(ctx) != "":
		span.TraceID = RequestIDFromContext(ctx)
	default:
		span.TraceID = uuid.NewString()
		logger = logger.With(slog.String("trace_id", span.TraceID))
	}

	span.base = logger
	logger = logger.With(slog.String("span", name), slog.String("span_id", span.ID))
	if span.ParentID != "" {
		logger = logger.With(slog.String("parent_span_id", span.ParentID))
	}
	span.logger = logger.With(attrs...)

	ctx = context.WithValue(ctx, spanKey, span)
	return WithLogger(ctx, span.logger), span
}

// Annotate records attributes learned while the span runs; they are logged when it ends.
func (s *Span) Annotate(attrs ...any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.attrs = append(s.attrs, attrs...)
	s.mu.Unlock()
}

// End logs the outcome. Failures go out at warn, cancellations at info and successes at debug.
func (s *Span) End(err error) {
	if s == nil {
		return
	}
	s.mu.Lock()
	args := append([]any{slog.Duration("duration", time.Since(s.start))}, s.attrs...)
	s.mu.Unlock()

	switch {
	case err == nil:
		s.logger.Debug("span completed", args...)
	case errors.Is(err, context.Canceled):
		s.logger.Info("span cancelled", args...)
	default:
		s.logger.Warn("span failed", append(args, slog.Any("error", err))...)
	}
}
