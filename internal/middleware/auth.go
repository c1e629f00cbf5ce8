package middleware

import (
	"context"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/feedloop/securenotes/internal/models"
	"github.com/feedloop/securenotes/internal/security"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenRejectedKey is set on the gin context when a bearer token was
// presented but failed validation.
const TokenRejectedKey = "token_rejected"

const bearerPrefix = "Bearer "

type TokenParser interface {
	Parse(token string) (*models.Claims, error)
}

type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, claims *models.Claims) (*models.Principal, error)
}

// Authenticate populates the request's security context from a bearer token.
// It never rejects a request: missing, invalid or unresolvable tokens leave
// the request anonymous and the authorization gate decides. Requests whose
// path matches one of bypass skip token inspection entirely.
func Authenticate(parser TokenParser, resolver PrincipalResolver, bypass []string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !matchesAny(bypass, c.Request.URL.Path) {
			authenticate(c, parser, resolver, requestLogger(c, logger))
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, parser TokenParser, resolver PrincipalResolver, logger *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Authentication filter recovered from panic", zap.Any("panic", r))
		}
	}()

	ctx := c.Request.Context()
	if _, ok := security.PrincipalFromContext(ctx); ok {
		return
	}

	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		return
	}

	claims, err := parser.Parse(token)
	if err != nil {
		c.Set(TokenRejectedKey, true)
		logger.Debug("Bearer token rejected", zap.Error(err))
		return
	}

	principal, err := resolver.ResolvePrincipal(ctx, claims)
	if err != nil || principal == nil {
		logger.Debug("Token subject could not be resolved",
			zap.String("subject", claims.Subject),
			zap.String("username", claims.Username),
			zap.Error(err))
		return
	}

	if ctx, ok = security.WithPrincipal(ctx, principal); ok {
		c.Request = c.Request.WithContext(ctx)
	}
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}

func matchesAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, path); err == nil && ok {
			return true
		}
	}
	return false
}
