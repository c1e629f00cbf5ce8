package audit

import (
	"context"
	"errors"
	"time"

	"github.com/feedloop/securenotes/internal/logging"
	"github.com/feedloop/securenotes/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Trail is the single append point for security decisions. Append never
// fails from the caller's point of view.
type Trail interface {
	Append(ctx context.Context, event models.AuditEvent)
}

// Sink is a destination for audit events.
type Sink interface {
	Write(ctx context.Context, event models.AuditEvent) error
}

// Reader is implemented by sinks that can return what they stored.
type Reader interface {
	Recent(ctx context.Context, limit int) ([]models.AuditEvent, error)
}

var ErrNoReader = errors.New("no readable audit sink configured")

const defaultWriteTimeout = 2 * time.Second

var _ Trail = (*Recorder)(nil)

// Recorder fans events out to its sinks. Sink errors and panics are reported
// to the fallback logger and otherwise dropped.
type Recorder struct {
	sinks    []Sink
	fallback *zap.Logger
	timeout  time.Duration
	now      func() time.Time
}

type RecorderOption func(*Recorder)

func WithWriteTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		r.timeout = d
	}
}

func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		r.now = now
	}
}

func NewRecorder(fallback *zap.Logger, sinks []Sink, opts ...RecorderOption) *Recorder {
	if fallback == nil {
		fallback = zap.NewNop()
	}
	r := &Recorder{
		sinks:    sinks,
		fallback: fallback,
		timeout:  defaultWriteTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) Append(ctx context.Context, event models.AuditEvent) {
	if ctx == nil {
		ctx = context.Background()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = r.now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = logging.RequestIDFromContext(ctx)
	}
	if event.Actor == "" {
		event.Actor = models.UnknownActor
	}

	// the request may already be cancelled; the record still has to land
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	for _, sink := range r.sinks {
		r.write(writeCtx, sink, event)
	}
}

func (r *Recorder) write(ctx context.Context, sink Sink, event models.AuditEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			r.fallback.Error("Audit sink panicked",
				zap.String("event_id", event.ID),
				zap.String("kind", string(event.Kind)),
				zap.Any("panic", rec))
		}
	}()

	if err := sink.Write(ctx, event); err != nil {
		r.fallback.Warn("Audit sink write failed",
			zap.String("event_id", event.ID),
			zap.String("kind", string(event.Kind)),
			zap.String("actor", event.Actor),
			zap.Error(err))
	}
}

// Recent reads from the first sink that supports reads.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]models.AuditEvent, error) {
	for _, sink := range r.sinks {
		if reader, ok := sink.(Reader); ok {
			return reader.Recent(ctx, limit)
		}
	}
	return nil, ErrNoReader
}

// Nop discards every event.
type Nop struct{}

func (Nop) Append(context.Context, models.AuditEvent) {}
