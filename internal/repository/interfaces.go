package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/whisper-chat/relay/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// SetPresence records the online flag and last-seen timestamp.
	SetPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error
	AddContact(ctx context.Context, userID, contactID uuid.UUID) error
	RemoveContact(ctx context.Context, userID, contactID uuid.UUID) error
	ListContacts(ctx context.Context, userID uuid.UUID) ([]domain.Contact, error)
	// ContactIDs returns just the contact identities, for presence fan-out.
	ContactIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// MessageRepository persists messages and their lifecycle status. The three
// transition methods are conditional single-row updates: they commit only when
// the stored status allows the edge, and report whether anything changed.
// Concurrent transitions on the same message therefore serialize in the store,
// and nothing ever departs from retracted.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	// ListPending returns up to limit messages addressed to receiver that are
	// still in the sent state, oldest first.
	ListPending(ctx context.Context, receiver uuid.UUID, limit int) ([]domain.Message, error)
	// ListConversation returns messages between two users, oldest first, with
	// cursor pagination on the before message ID.
	ListConversation(ctx context.Context, userA, userB uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error)
	MarkRead(ctx context.Context, id uuid.UUID) (bool, error)
	Retract(ctx context.Context, id uuid.UUID) (bool, error)
}
