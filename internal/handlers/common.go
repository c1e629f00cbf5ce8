package handlers

import (
	"strconv"

	"github.com/feedloop/securenotes/internal/middleware"
	"github.com/feedloop/securenotes/internal/models"
	"github.com/feedloop/securenotes/internal/security"
	"github.com/gin-gonic/gin"
)

// MessageResponse is a plain greeting or acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// currentPrincipal returns the request's principal. Handlers behind the gate
// always have one; a missing principal is reported as unauthenticated.
func currentPrincipal(c *gin.Context) (*models.Principal, bool) {
	p, ok := security.PrincipalFromContext(c.Request.Context())
	if !ok {
		_ = c.Error(models.ErrUnauthenticated)
		return nil, false
	}
	return p, true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		_ = c.Error(&middleware.ValidationError{Message: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		_ = c.Error(&middleware.ValidationError{Message: "invalid " + name})
		return 0, false
	}
	return id, true
}
