package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/feedloop/securenotes/internal/audit"
	"github.com/feedloop/securenotes/internal/models"
	"go.uber.org/zap"
)

// UserService handles account administration. Role changes and deletions
// are recorded with both actor and target.
type UserService struct {
	users  UserStore
	notes  NoteStore
	trail  audit.Trail
	logger *zap.Logger
}

func NewUserService(users UserStore, notes NoteStore, trail audit.Trail, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if trail == nil {
		trail = audit.Nop{}
	}
	return &UserService{users: users, notes: notes, trail: trail, logger: logger}
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	return s.users.List(ctx)
}

// Delete removes the user with the given id on behalf of actor.
func (s *UserService) Delete(ctx context.Context, actor *models.Principal, id int64) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.delete(ctx, actor.Username, user)
}

// DeleteSelf removes the caller's own account.
func (s *UserService) DeleteSelf(ctx context.Context, actor *models.Principal) error {
	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		return err
	}
	return s.delete(ctx, actor.Username, user)
}

func (s *UserService) delete(ctx context.Context, actor string, user *models.User) error {
	if err := s.notes.DeleteByOwner(ctx, user.ID); err != nil {
		return fmt.Errorf("deleting notes of user %d: %w", user.ID, err)
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return err
	}

	s.trail.Append(ctx, models.AuditEvent{
		Kind:   models.AuditDeletion,
		Actor:  actor,
		Target: user.Username,
	})
	s.logger.Info("User deleted",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("actor", actor))
	return nil
}

// UpdateRoles replaces the role set of a user. Unknown role names are
// rejected before anything is stored.
func (s *UserService) UpdateRoles(ctx context.Context, actor *models.Principal, id int64, names []string) (*models.User, error) {
	roles, err := models.ParseRoles(names)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("%w: empty role set", models.ErrInvalidRole)
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := user.Roles

	if err := s.users.UpdateRoles(ctx, id, roles); err != nil {
		return nil, err
	}
	user.Roles = roles

	s.trail.Append(ctx, models.AuditEvent{
		Kind:   models.AuditRoleChange,
		Actor:  actor.Username,
		Target: user.Username,
		Reason: fmt.Sprintf("%s -> %s", joinRoles(previous), joinRoles(roles)),
	})
	return user, nil
}

func joinRoles(roles []models.Role) string {
	return strings.Join(models.RoleStrings(roles), ",")
}
