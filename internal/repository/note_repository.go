package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/feedloop/securenotes/internal/models"
	"github.com/jmoiron/sqlx"
)

type NoteRepository struct {
	db *sqlx.DB
}

func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	query := `
		INSERT INTO notes (owner_id, title, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	return r.db.QueryRowxContext(ctx, query, note.OwnerID, note.Title, note.Content).
		Scan(&note.ID, &note.CreatedAt)
}

func (r *NoteRepository) GetByID(ctx context.Context, id int64) (*models.Note, error) {
	var note models.Note
	err := r.db.GetContext(ctx, &note,
		`SELECT id, owner_id, title, content, created_at FROM notes WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNoteNotFound
	}
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *NoteRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Note, error) {
	notes := []*models.Note{}
	err := r.db.SelectContext(ctx, &notes,
		`SELECT id, owner_id, title, content, created_at FROM notes WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`,
		ownerID)
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *NoteRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(result, models.ErrNoteNotFound)
}

func (r *NoteRepository) DeleteByOwner(ctx context.Context, ownerID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE owner_id = $1`, ownerID)
	return err
}
