package audit

import (
	"context"
	"testing"
	"time"

	"github.com/feedloop/securenotes/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogSink(t *testing.T) {
	tests := []struct {
		kind  models.AuditKind
		level zapcore.Level
	}{
		{models.AuditLoginSuccess, zapcore.InfoLevel},
		{models.AuditLoginFailure, zapcore.WarnLevel},
		{models.AuditAccessDenied, zapcore.WarnLevel},
		{models.AuditSuspicious, zapcore.ErrorLevel},
		{models.AuditRoleChange, zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			sink := NewLogSink(zap.New(core))

			err := sink.Write(context.Background(), models.AuditEvent{
				ID:        "ev-1",
				Kind:      tt.kind,
				Actor:     "alice",
				Resource:  "GET /api/admin/hello",
				Origin:    "192.168.1.1",
				Timestamp: time.Now(),
			})
			require.NoError(t, err)

			entries := logs.All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0].Level)
			fields := entries[0].ContextMap()
			assert.Equal(t, string(tt.kind), fields["event_type"])
			assert.Equal(t, "alice", fields["actor"])
			assert.Equal(t, "GET /api/admin/hello", fields["resource"])
			assert.Equal(t, "192.168.1.1", fields["origin"])
			assert.NotContains(t, fields, "target")
		})
	}
}
