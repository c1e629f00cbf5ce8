package handlers

import (
	"net/http"

	"github.com/feedloop/securenotes/internal/services"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Hello(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Welcome " + p.Username + ", you are signed in as a user or admin"})
}

// Me returns the caller's stored account.
func (h *UserHandler) Me(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	user, err := h.users.Get(c.Request.Context(), p.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteMe removes the caller's account and notes.
func (h *UserHandler) DeleteMe(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	if err := h.users.DeleteSelf(c.Request.Context(), p); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
