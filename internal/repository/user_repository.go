package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/feedloop/securenotes/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type userRow struct {
	ID           int64          `db:"id"`
	Username     string         `db:"username"`
	FullName     string         `db:"full_name"`
	PasswordHash string         `db:"password_hash"`
	Roles        pq.StringArray `db:"roles"`
	ConsentGiven bool           `db:"consent_given"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (r userRow) toModel() (*models.User, error) {
	roles, err := models.ParseRoles(r.Roles)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", r.ID, err)
	}
	return &models.User{
		ID:           r.ID,
		Username:     r.Username,
		FullName:     r.FullName,
		PasswordHash: r.PasswordHash,
		Roles:        roles,
		ConsentGiven: r.ConsentGiven,
		CreatedAt:    r.CreatedAt,
	}, nil
}

const userColumns = `id, username, full_name, password_hash, roles, consent_given, created_at`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) get(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toModel()
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, full_name, password_hash, roles, consent_given)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		user.Username,
		user.FullName,
		user.PasswordHash,
		pq.Array(models.RoleStrings(user.Roles)),
		user.ConsentGiven,
	).Scan(&user.ID, &user.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return models.ErrUsernameTaken
	}
	return err
}

func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, len(rows))
	for _, row := range rows {
		u, err := row.toModel()
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (r *UserRepository) UpdateRoles(ctx context.Context, id int64, roles []models.Role) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET roles = $1 WHERE id = $2`,
		pq.Array(models.RoleStrings(roles)), id)
	if err != nil {
		return err
	}
	return expectAffected(result, models.ErrUserNotFound)
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(result, models.ErrUserNotFound)
}

func expectAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
