package handlers

import (
	"net/http"
	"strconv"

	"github.com/feedloop/securenotes/internal/audit"
	"github.com/feedloop/securenotes/internal/middleware"
	"github.com/feedloop/securenotes/internal/models"
	"github.com/feedloop/securenotes/internal/services"
	"github.com/gin-gonic/gin"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

type AdminHandler struct {
	users  *services.UserService
	events audit.Reader
}

// NewAdminHandler creates the admin handler. events may be nil when no
// readable audit sink is configured.
func NewAdminHandler(users *services.UserService, events audit.Reader) *AdminHandler {
	return &AdminHandler{users: users, events: events}
}

func (h *AdminHandler) Hello(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Welcome " + p.Username + ", you are signed in as ADMIN"})
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.users.Delete(c.Request.Context(), p, id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) UpdateRoles(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req models.UpdateRolesRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.UpdateRoles(c.Request.Context(), p, id, req.Roles)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// RecentAudit returns the newest audit events, newest first.
func (h *AdminHandler) RecentAudit(c *gin.Context) {
	if h.events == nil {
		_ = c.Error(&middleware.NotFoundError{Message: audit.ErrNoReader.Error()})
		return
	}

	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			_ = c.Error(&middleware.ValidationError{Message: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxAuditLimit)
	}

	events, err := h.events.Recent(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, events)
}
