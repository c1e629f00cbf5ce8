package audit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/feedloop/securenotes/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamSink(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	sink := NewStreamSink(rdb, "audit:events", 100)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, sink.Write(ctx, models.AuditEvent{
		ID: "ev-1", Kind: models.AuditRoleChange, Actor: "admin", Target: "alice",
		Reason: "[USER] -> [ADMIN USER]", Origin: "10.0.0.1", Timestamp: at,
	}))
	require.NoError(t, sink.Write(ctx, models.AuditEvent{
		ID: "ev-2", Kind: models.AuditDeletion, Actor: "admin", Target: "bob", Timestamp: at.Add(time.Second),
	}))

	length, err := rdb.XLen(ctx, "audit:events").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), length)

	recent, err := sink.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "ev-2", recent[0].ID)
	assert.Equal(t, models.AuditDeletion, recent[0].Kind)
	assert.Equal(t, "ev-1", recent[1].ID)
	assert.Equal(t, "alice", recent[1].Target)
	assert.Equal(t, "[USER] -> [ADMIN USER]", recent[1].Reason)
	assert.True(t, at.Equal(recent[1].Timestamp))
}

func TestStreamSinkFailureIsReported(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	sink := NewStreamSink(rdb, "audit:events", 100)
	err := sink.Write(context.Background(), models.AuditEvent{ID: "ev-1", Kind: models.AuditLoginSuccess})
	assert.Error(t, err)

	// through the recorder the failure never reaches the caller
	mem := NewMemorySink()
	rec := NewRecorder(nil, []Sink{sink, mem})
	rec.Append(context.Background(), models.AuditEvent{Kind: models.AuditLoginSuccess, Actor: "alice"})
	assert.Len(t, mem.Events(), 1)
}
