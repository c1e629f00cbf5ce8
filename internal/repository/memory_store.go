package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/feedloop/securenotes/internal/models"
)

// MemoryUserStore keeps users in process memory. It backs the "memory"
// database driver and tests.
type MemoryUserStore struct {
	mu     sync.RWMutex
	users  map[int64]*models.User
	nextID int64
	now    func() time.Time
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users:  make(map[int64]*models.User),
		nextID: 1,
		now:    time.Now,
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Roles = append([]models.Role(nil), u.Roles...)
	return &c
}

func (s *MemoryUserStore) FindByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *MemoryUserStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (s *MemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return models.ErrUsernameTaken
		}
	}

	user.ID = s.nextID
	s.nextID++
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now().UTC()
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *MemoryUserStore) List(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *MemoryUserStore) UpdateRoles(_ context.Context, id int64, roles []models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	u.Roles = append([]models.Role(nil), roles...)
	return nil
}

func (s *MemoryUserStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return models.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

// MemoryNoteStore is the in-memory counterpart of NoteRepository.
type MemoryNoteStore struct {
	mu     sync.RWMutex
	notes  map[int64]*models.Note
	nextID int64
	now    func() time.Time
}

func NewMemoryNoteStore() *MemoryNoteStore {
	return &MemoryNoteStore{
		notes:  make(map[int64]*models.Note),
		nextID: 1,
		now:    time.Now,
	}
}

func (s *MemoryNoteStore) Create(_ context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	note.ID = s.nextID
	s.nextID++
	note.CreatedAt = s.now().UTC()
	c := *note
	s.notes[note.ID] = &c
	return nil
}

func (s *MemoryNoteStore) GetByID(_ context.Context, id int64) (*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notes[id]
	if !ok {
		return nil, models.ErrNoteNotFound
	}
	c := *n
	return &c, nil
}

func (s *MemoryNoteStore) ListByOwner(_ context.Context, ownerID int64) ([]*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	notes := []*models.Note{}
	for _, n := range s.notes {
		if n.OwnerID == ownerID {
			c := *n
			notes = append(notes, &c)
		}
	}
	// newest first, matching the SQL ordering
	sort.Slice(notes, func(i, j int) bool { return notes[i].ID > notes[j].ID })
	return notes, nil
}

func (s *MemoryNoteStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[id]; !ok {
		return models.ErrNoteNotFound
	}
	delete(s.notes, id)
	return nil
}

func (s *MemoryNoteStore) DeleteByOwner(_ context.Context, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, n := range s.notes {
		if n.OwnerID == ownerID {
			delete(s.notes, id)
		}
	}
	return nil
}
