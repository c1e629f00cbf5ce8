package models

import "time"

// AuditKind classifies a security decision.
type AuditKind string

const (
	AuditLoginSuccess AuditKind = "LOGIN_SUCCESS"
	AuditLoginFailure AuditKind = "LOGIN_FAILURE"
	AuditAccessDenied AuditKind = "ACCESS_DENIED"
	AuditSuspicious   AuditKind = "SUSPICIOUS"
	AuditRegistration AuditKind = "REGISTRATION"
	AuditRoleChange   AuditKind = "ROLE_CHANGE"
	AuditDeletion     AuditKind = "DELETION"
)

// AuditEvent is an append-only record of a security decision.
type AuditEvent struct {
	ID        string    `json:"id" db:"id"`
	Kind      AuditKind `json:"kind" db:"kind"`
	Actor     string    `json:"actor" db:"actor"`
	Target    string    `json:"target,omitempty" db:"target"`
	Resource  string    `json:"resource,omitempty" db:"resource"`
	Origin    string    `json:"origin,omitempty" db:"origin"`
	Reason    string    `json:"reason,omitempty" db:"reason"`
	RequestID string    `json:"request_id,omitempty" db:"request_id"`
	Timestamp time.Time `json:"timestamp" db:"occurred_at"`
}

// UnknownActor is recorded when no identifier is available.
const UnknownActor = "UNKNOWN"
