package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feedloop/securenotes/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedMessage string
	}{
		{
			name:            "Validation Error",
			err:             &ValidationError{Message: "invalid input"},
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "invalid input",
		},
		{
			name:            "Auth Error",
			err:             &AuthError{Message: "unauthorized"},
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "unauthorized",
		},
		{
			name:            "Forbidden Error",
			err:             &ForbiddenError{Message: "not yours"},
			expectedStatus:  http.StatusForbidden,
			expectedMessage: "not yours",
		},
		{
			name:            "Not Found Error",
			err:             &NotFoundError{Message: "resource not found"},
			expectedStatus:  http.StatusNotFound,
			expectedMessage: "resource not found",
		},
		{
			name:            "Conflict Error",
			err:             &ConflictError{Message: "exists"},
			expectedStatus:  http.StatusConflict,
			expectedMessage: "exists",
		},
		{
			name:            "Rate Limit Error",
			err:             &RateLimitError{Message: "too many requests"},
			expectedStatus:  http.StatusTooManyRequests,
			expectedMessage: "too many requests",
		},
		{
			name:            "Bad credentials hide the cause",
			err:             fmt.Errorf("%w: %v", models.ErrBadCredentials, "crypto/bcrypt: hashedSecret too short"),
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "invalid username or password",
		},
		{
			name:            "Unauthenticated",
			err:             models.ErrUnauthenticated,
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "authentication required",
		},
		{
			name:            "Access denied",
			err:             models.ErrAccessDenied,
			expectedStatus:  http.StatusForbidden,
			expectedMessage: "access denied",
		},
		{
			name:            "Invalid role",
			err:             fmt.Errorf("%w: %q", models.ErrInvalidRole, "ROOT"),
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: `invalid role: "ROOT"`,
		},
		{
			name:            "Missing user",
			err:             models.ErrUserNotFound,
			expectedStatus:  http.StatusNotFound,
			expectedMessage: "user not found",
		},
		{
			name:            "Duplicate username",
			err:             models.ErrUsernameTaken,
			expectedStatus:  http.StatusConflict,
			expectedMessage: "username already exists",
		},
		{
			name:            "Generic Error",
			err:             assert.AnError,
			expectedStatus:  http.StatusInternalServerError,
			expectedMessage: "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(ErrorHandler())
			router.GET("/test", func(c *gin.Context) {
				c.Error(tt.err)
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/test", nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.expectedStatus, response.Status)
			assert.Equal(t, http.StatusText(tt.expectedStatus), response.Error)
			assert.Equal(t, tt.expectedMessage, response.Message)
			assert.Equal(t, "/test", response.Path)
			assert.False(t, response.Timestamp.IsZero())
		})
	}
}

func TestErrorHandlerKeepsWrittenResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/test", func(c *gin.Context) {
		c.Error(assert.AnError)
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"status":"queued"}`, w.Body.String())
}
