package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/feedloop/securenotes/internal/models"
	"github.com/redis/go-redis/v9"
)

// StreamSink appends events to a Redis stream so other services can follow
// the trail.
type StreamSink struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

func NewStreamSink(rdb *redis.Client, stream string, maxLen int64) *StreamSink {
	return &StreamSink{rdb: rdb, stream: stream, maxLen: maxLen}
}

func (s *StreamSink) Write(ctx context.Context, event models.AuditEvent) error {
	args := &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Values: map[string]interface{}{
			"id":          event.ID,
			"kind":        string(event.Kind),
			"actor":       event.Actor,
			"target":      event.Target,
			"resource":    event.Resource,
			"origin":      event.Origin,
			"reason":      event.Reason,
			"request_id":  event.RequestID,
			"occurred_at": event.Timestamp.UTC().Format(time.RFC3339Nano),
		},
	}
	if err := s.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("appending to stream %s: %w", s.stream, err)
	}
	return nil
}

// Recent reads the newest entries of the stream.
func (s *StreamSink) Recent(ctx context.Context, limit int) ([]models.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	msgs, err := s.rdb.XRevRangeN(ctx, s.stream, "+", "-", int64(limit)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading stream %s: %w", s.stream, err)
	}

	events := make([]models.AuditEvent, 0, len(msgs))
	for _, msg := range msgs {
		events = append(events, eventFromValues(msg.Values))
	}
	return events, nil
}

func eventFromValues(values map[string]interface{}) models.AuditEvent {
	str := func(key string) string {
		v, _ := values[key].(string)
		return v
	}
	ts, _ := time.Parse(time.RFC3339Nano, str("occurred_at"))
	return models.AuditEvent{
		ID:        str("id"),
		Kind:      models.AuditKind(str("kind")),
		Actor:     str("actor"),
		Target:    str("target"),
		Resource:  str("resource"),
		Origin:    str("origin"),
		Reason:    str("reason"),
		RequestID: str("request_id"),
		Timestamp: ts,
	}
}
