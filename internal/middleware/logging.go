package middleware

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/feedloop/securenotes/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Bodies under these prefixes carry passwords or tokens and are never logged.
var sensitivePathPrefixes = []string{"/api/auth"}

const maxLoggedBody = 1024

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func isSensitivePath(path string) bool {
	for _, prefix := range sensitivePathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Logger returns a middleware that logs requests using logrus.
// Headers are never logged.
func Logger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		captureBodies := !isSensitivePath(c.Request.URL.Path)

		var requestBody []byte
		var w *responseWriter
		if captureBodies {
			if c.Request.Body != nil {
				requestBody, _ = io.ReadAll(c.Request.Body)
				c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
			}

			w = &responseWriter{
				ResponseWriter: c.Writer,
				body:           &bytes.Buffer{},
			}
			c.Writer = w
		}

		c.Next()

		duration := time.Since(start)

		fields := logrus.Fields{
			"status":     strconv.Itoa(c.Writer.Status()),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"ip":         c.ClientIP(),
			"duration":   duration.String(),
			"user_agent": c.Request.UserAgent(),
		}

		if requestID := c.GetString(RequestIDKey); requestID != "" {
			fields["request_id"] = requestID
		}
		if p, ok := security.PrincipalFromContext(c.Request.Context()); ok {
			fields["user"] = p.Username
		}

		if captureBodies {
			if len(requestBody) > 0 && len(requestBody) < maxLoggedBody {
				fields["request_body"] = string(requestBody)
			}
			if w.body.Len() > 0 && w.body.Len() < maxLoggedBody {
				fields["response_body"] = w.body.String()
			}
		}

		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		statusCode := c.Writer.Status()
		switch {
		case statusCode >= 500:
			log.WithFields(fields).Error("Server error")
		case statusCode >= 400:
			log.WithFields(fields).Warn("Client error")
		case statusCode >= 300:
			log.WithFields(fields).Info("Redirection")
		default:
			log.WithFields(fields).Info("Success")
		}
	}
}

// NewAccessLogger builds the JSON logrus logger used for access logs.
func NewAccessLogger(out io.Writer, level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}
	return log
}
