// Package memory holds mutex-guarded in-memory repositories with the same
// semantics as the postgres implementations. They back the memory store
// backend and the test suite.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/whisper-chat/relay/internal/domain"
)

type MessageRepo struct {
	mu       sync.Mutex
	messages map[uuid.UUID]*domain.Message
}

func NewMessageRepo() *MessageRepo {
	return &MessageRepo{messages: make(map[uuid.UUID]*domain.Message)}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *msg
	r.messages[msg.ID] = &cp
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[id]
	if !ok {
		return nil, nil
	}
	cp := *msg
	return &cp, nil
}

func (r *MessageRepo) ListPending(ctx context.Context, receiver uuid.UUID, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pending []domain.Message
	for _, msg := range r.messages {
		if msg.ReceiverID == receiver && msg.Status == domain.StatusSent {
			pending = append(pending, *msg)
		}
	}
	sortByCreation(pending)
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (r *MessageRepo) ListConversation(ctx context.Context, userA, userB uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var cutoff *domain.Message
	if before != nil {
		cutoff = r.messages[*before]
	}

	var msgs []domain.Message
	for _, msg := range r.messages {
		between := (msg.SenderID == userA && msg.ReceiverID == userB) ||
			(msg.SenderID == userB && msg.ReceiverID == userA)
		if !between {
			continue
		}
		if cutoff != nil && !msg.CreatedAt.Before(cutoff.CreatedAt) {
			continue
		}
		msgs = append(msgs, *msg)
	}
	sortByCreation(msgs)
	// Keep the newest limit entries, like the DESC/LIMIT/reverse query.
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (r *MessageRepo) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.transition(id, domain.StatusDelivered), nil
}

func (r *MessageRepo) MarkRead(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.transition(id, domain.StatusRead), nil
}

func (r *MessageRepo) Retract(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.transition(id, domain.StatusRetracted), nil
}

func (r *MessageRepo) transition(id uuid.UUID, to domain.Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[id]
	if !ok || !domain.CanTransition(msg.Status, to) {
		return false
	}
	msg.Status = to
	return true
}

func sortByCreation(msgs []domain.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID.String() < msgs[j].ID.String()
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}
