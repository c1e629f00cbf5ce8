package middleware

import (
	"github.com/feedloop/securenotes/internal/audit"
	"github.com/feedloop/securenotes/internal/models"
	"github.com/feedloop/securenotes/internal/security"
	"github.com/gin-gonic/gin"
)

// Authorize consults the gate on every request before any handler runs.
// Denials are recorded as ACCESS_DENIED; a missing identity after a rejected
// bearer token is recorded as SUSPICIOUS.
func Authorize(gate *security.Gate, trail audit.Trail) gin.HandlerFunc {
	if trail == nil {
		trail = audit.Nop{}
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		principal, _ := security.PrincipalFromContext(ctx)
		decision := gate.Evaluate(c.Request.Method, c.Request.URL.Path, principal)

		resource := c.Request.Method + " " + c.Request.URL.Path

		switch decision.Outcome {
		case security.Allow:
			c.Next()
			return

		case security.Unauthenticated:
			if c.GetBool(TokenRejectedKey) {
				trail.Append(ctx, models.AuditEvent{
					Kind:     models.AuditSuspicious,
					Actor:    models.UnknownActor,
					Resource: resource,
					Origin:   c.ClientIP(),
					Reason:   "invalid bearer token",
				})
			}
			_ = c.Error(models.ErrUnauthenticated)

		case security.Forbidden:
			trail.Append(ctx, models.AuditEvent{
				Kind:     models.AuditAccessDenied,
				Actor:    principal.Username,
				Resource: resource,
				Origin:   c.ClientIP(),
			})
			_ = c.Error(models.ErrAccessDenied)
		}
		c.Abort()
	}
}
