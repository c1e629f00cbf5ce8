package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/feedloop/securenotes/internal/audit"
	"github.com/feedloop/securenotes/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}

// ErrorHandler is a middleware that handles errors in a centralized way
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		statusCode, message := classify(err)
		if statusCode == http.StatusInternalServerError {
			requestLogger(c, nil).Error("Request failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
		}

		c.AbortWithStatusJSON(statusCode, ErrorResponse{
			Timestamp: time.Now().UTC(),
			Status:    statusCode,
			Error:     http.StatusText(statusCode),
			Message:   message,
			Path:      c.Request.URL.Path,
		})
	}
}

func classify(err error) (int, string) {
	var (
		validationErr *ValidationError
		authErr       *AuthError
		forbiddenErr  *ForbiddenError
		notFoundErr   *NotFoundError
		conflictErr   *ConflictError
		rateLimitErr  *RateLimitError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Message
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, authErr.Message
	case errors.As(err, &forbiddenErr):
		return http.StatusForbidden, forbiddenErr.Message
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, notFoundErr.Message
	case errors.As(err, &conflictErr):
		return http.StatusConflict, conflictErr.Message
	case errors.As(err, &rateLimitErr):
		return http.StatusTooManyRequests, rateLimitErr.Message

	case errors.Is(err, models.ErrBadCredentials):
		return http.StatusUnauthorized, "invalid username or password"
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, models.ErrAccessDenied):
		return http.StatusForbidden, "access denied"
	case errors.Is(err, models.ErrInvalidRole), errors.Is(err, models.ErrPasswordTooLong),
		errors.Is(err, models.ErrInvalidUsername):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrUserNotFound), errors.Is(err, models.ErrNoteNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, audit.ErrNoReader):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, models.ErrUsernameTaken):
		return http.StatusConflict, err.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

// Custom error types for different error scenarios
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	return e.Message
}
