package audit

import (
	"context"
	"sync"

	"github.com/feedloop/securenotes/internal/models"
)

var (
	_ Sink   = (*MemorySink)(nil)
	_ Reader = (*MemorySink)(nil)
)

// MemorySink keeps events in memory. Used for development and tests.
type MemorySink struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func NewMemorySink() *MemorySink {
	return &MemorySink{events: make([]models.AuditEvent, 0)}
}

func (m *MemorySink) Write(_ context.Context, event models.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, event)
	return nil
}

// Recent returns up to limit events, newest first.
func (m *MemorySink) Recent(_ context.Context, limit int) ([]models.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 || limit > len(m.events) {
		limit = len(m.events)
	}
	out := make([]models.AuditEvent, 0, limit)
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}

// Events returns a copy of everything written, oldest first.
func (m *MemorySink) Events() []models.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.AuditEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Kinds returns the kind of every event written, oldest first.
func (m *MemorySink) Kinds() []models.AuditKind {
	events := m.Events()
	out := make([]models.AuditKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}
