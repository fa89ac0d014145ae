package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/whisper-chat/relay/internal/domain"
)

type UserRepo struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*domain.User
	contacts map[uuid.UUID]map[uuid.UUID]time.Time
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		users:    make(map[uuid.UUID]*domain.User),
		contacts: make(map[uuid.UUID]map[uuid.UUID]time.Time),
	}
}

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findUser(func(u *domain.User) bool { return u.Email == email })
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findUser(func(u *domain.User) bool { return u.Username == username })
}

func (r *UserRepo) SetPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.Online = online
		ls := lastSeen
		u.LastSeen = &ls
		u.UpdatedAt = lastSeen
	}
	return nil
}

func (r *UserRepo) AddContact(ctx context.Context, userID, contactID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.contacts[userID] == nil {
		r.contacts[userID] = make(map[uuid.UUID]time.Time)
	}
	if _, ok := r.contacts[userID][contactID]; !ok {
		r.contacts[userID][contactID] = time.Now()
	}
	return nil
}

func (r *UserRepo) RemoveContact(ctx context.Context, userID, contactID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contacts[userID], contactID)
	return nil
}

func (r *UserRepo) ListContacts(ctx context.Context, userID uuid.UUID) ([]domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var contacts []domain.Contact
	for contactID, createdAt := range r.contacts[userID] {
		c := domain.Contact{UserID: userID, ContactID: contactID, CreatedAt: createdAt}
		if u, ok := r.users[contactID]; ok {
			c.Username = u.Username
			c.DisplayName = u.DisplayName
			c.Online = u.Online
		}
		contacts = append(contacts, c)
	}
	sort.Slice(contacts, func(i, j int) bool { return contacts[i].Username < contacts[j].Username })
	return contacts, nil
}

func (r *UserRepo) ContactIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []uuid.UUID
	for contactID := range r.contacts[userID] {
		ids = append(ids, contactID)
	}
	return ids, nil
}

func (r *UserRepo) findUser(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}
