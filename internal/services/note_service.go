package services

import (
	"context"

	"github.com/feedloop/securenotes/internal/models"
)

// NoteService scopes every note operation to the owning principal.
type NoteService struct {
	notes NoteStore
}

func NewNoteService(notes NoteStore) *NoteService {
	return &NoteService{notes: notes}
}

func (s *NoteService) List(ctx context.Context, owner *models.Principal) ([]*models.Note, error) {
	return s.notes.ListByOwner(ctx, owner.ID)
}

func (s *NoteService) Create(ctx context.Context, owner *models.Principal, req models.CreateNoteRequest) (*models.Note, error) {
	note := &models.Note{
		OwnerID: owner.ID,
		Title:   req.Title,
		Content: req.Content,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// Delete removes a note owned by owner. Notes of other users yield
// models.ErrAccessDenied.
func (s *NoteService) Delete(ctx context.Context, owner *models.Principal, id int64) error {
	note, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if note.OwnerID != owner.ID {
		return models.ErrAccessDenied
	}
	return s.notes.Delete(ctx, id)
}
