package audit

import (
	"context"

	"github.com/feedloop/securenotes/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogSink writes events to the security log channel.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func levelFor(kind models.AuditKind) zapcore.Level {
	switch kind {
	case models.AuditSuspicious:
		return zapcore.ErrorLevel
	case models.AuditLoginFailure, models.AuditAccessDenied:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

func (s *LogSink) Write(_ context.Context, event models.AuditEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Kind)),
		zap.String("actor", event.Actor),
		zap.Time("occurred_at", event.Timestamp),
	}
	if event.Target != "" {
		fields = append(fields, zap.String("target", event.Target))
	}
	if event.Resource != "" {
		fields = append(fields, zap.String("resource", event.Resource))
	}
	if event.Origin != "" {
		fields = append(fields, zap.String("origin", event.Origin))
	}
	if event.Reason != "" {
		fields = append(fields, zap.String("reason", event.Reason))
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}

	if ce := s.logger.Check(levelFor(event.Kind), "Security event"); ce != nil {
		ce.Write(fields...)
	}
	return nil
}
