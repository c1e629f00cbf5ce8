// Package security holds the request-scoped security context and the
// authorization gate consulted before every handler.
package security

import (
	"context"

	"github.com/feedloop/securenotes/internal/models"
)

type principalKey struct{}

// WithPrincipal binds p to ctx. A context that already carries a principal
// is returned unchanged with ok set to false.
func WithPrincipal(ctx context.Context, p *models.Principal) (_ context.Context, ok bool) {
	if p == nil {
		return ctx, false
	}
	if _, exists := PrincipalFromContext(ctx); exists {
		return ctx, false
	}
	return context.WithValue(ctx, principalKey{}, p), true
}

// PrincipalFromContext returns the principal bound to ctx, if any.
func PrincipalFromContext(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*models.Principal)
	return p, ok && p != nil
}
