package services

import (
	"context"

	"github.com/feedloop/securenotes/internal/models"
)

// CredentialStore looks up a user's stored credential hash and role set.
type CredentialStore interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// UserStore is the full user persistence surface.
type UserStore interface {
	CredentialStore
	Create(ctx context.Context, user *models.User) error
	List(ctx context.Context) ([]*models.User, error)
	UpdateRoles(ctx context.Context, id int64, roles []models.Role) error
	Delete(ctx context.Context, id int64) error
}

type NoteStore interface {
	Create(ctx context.Context, note *models.Note) error
	GetByID(ctx context.Context, id int64) (*models.Note, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*models.Note, error)
	Delete(ctx context.Context, id int64) error
	DeleteByOwner(ctx context.Context, ownerID int64) error
}
