package handlers

import (
	"net/http"

	"github.com/feedloop/securenotes/internal/models"
	"github.com/feedloop/securenotes/internal/services"
	"github.com/gin-gonic/gin"
)

type NoteHandler struct {
	notes *services.NoteService
}

func NewNoteHandler(notes *services.NoteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

func (h *NoteHandler) ListNotes(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	notes, err := h.notes.List(c.Request.Context(), p)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

func (h *NoteHandler) CreateNote(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req models.CreateNoteRequest
	if !bindJSON(c, &req) {
		return
	}

	note, err := h.notes.Create(c.Request.Context(), p, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (h *NoteHandler) DeleteNote(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.notes.Delete(c.Request.Context(), p, id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
