package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/feedloop/securenotes/internal/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var startTime = time.Now()

// getStartTime returns the start time of the application
func getStartTime() time.Time {
	return startTime
}

// StatusInfo describes the running configuration reported by /status.
// It never carries secrets.
type StatusInfo struct {
	Version           string
	TokenTTL          time.Duration
	TestTokensEnabled bool
	StorageDriver     string
	AuditSinks        []string
	RateLimitEnabled  bool
}

// StatusResponse represents the status endpoint response
type StatusResponse struct {
	Status        string    `json:"status"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	Version       string    `json:"version"`
	JWT           JWTInfo   `json:"jwt"`
	Storage       string    `json:"storage"`
	Audit         AuditInfo `json:"audit"`
	RateLimit     bool      `json:"rate_limit_enabled"`
}

// JWTInfo contains JWT configuration information
type JWTInfo struct {
	Algorithm         string `json:"algorithm"`
	DefaultExpSeconds int64  `json:"default_exp_seconds"`
	TestTokens        bool   `json:"test_tokens_enabled"`
}

type AuditInfo struct {
	Sinks []string `json:"sinks"`
}

func contextLogger(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(middleware.LoggerKey); ok {
		if logger, ok := v.(*zap.Logger); ok {
			return logger
		}
	}
	return zap.NewNop()
}

// StatusHandler handles the status endpoint
func StatusHandler(info StatusInfo) gin.HandlerFunc {
	return func(c *gin.Context) {
		sinks := info.AuditSinks
		if sinks == nil {
			sinks = []string{}
		}
		response := StatusResponse{
			Status:        "ok",
			UptimeSeconds: int64(time.Since(getStartTime()).Seconds()),
			Version:       info.Version,
			JWT: JWTInfo{
				Algorithm:         "HS256",
				DefaultExpSeconds: int64(info.TokenTTL / time.Second),
				TestTokens:        info.TestTokensEnabled,
			},
			Storage:   info.StorageDriver,
			Audit:     AuditInfo{Sinks: sinks},
			RateLimit: info.RateLimitEnabled,
		}
		contextLogger(c).Debug("Status endpoint checked", zap.Int64("uptime_seconds", response.UptimeSeconds))
		c.JSON(http.StatusOK, response)
	}
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

const healthTimeout = 2 * time.Second

// HealthHandler reports UP when every check passes and DOWN with 503 otherwise.
func HealthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		response := HealthResponse{Status: "UP", Components: make(map[string]string, len(checks))}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				contextLogger(c).Warn("Health check failed", zap.String("component", name), zap.Error(err))
				response.Components[name] = "DOWN"
				response.Status = "DOWN"
				continue
			}
			response.Components[name] = "UP"
		}

		code := http.StatusOK
		if response.Status != "UP" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, response)
	}
}
