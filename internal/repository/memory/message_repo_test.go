package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisper-chat/relay/internal/domain"
)

func storedMessage(t *testing.T, repo *MessageRepo, sender, receiver uuid.UUID, createdAt time.Time) *domain.Message {
	t.Helper()
	msg := &domain.Message{
		ID:         uuid.New(),
		SenderID:   sender,
		ReceiverID: receiver,
		Content:    json.RawMessage(`"hi"`),
		Type:       domain.TypeText,
		Status:     domain.StatusSent,
		CreatedAt:  createdAt,
	}
	require.NoError(t, repo.Create(context.Background(), msg))
	return msg
}

func TestListPendingOrderAndLimit(t *testing.T) {
	repo := NewMessageRepo()
	sender, receiver := uuid.New(), uuid.New()
	base := time.Now()

	third := storedMessage(t, repo, sender, receiver, base.Add(2*time.Second))
	first := storedMessage(t, repo, sender, receiver, base)
	second := storedMessage(t, repo, sender, receiver, base.Add(time.Second))

	// Delivered messages are not pending.
	changed, err := repo.MarkDelivered(context.Background(), third.ID)
	require.NoError(t, err)
	require.True(t, changed)

	pending, err := repo.ListPending(context.Background(), receiver, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, second.ID, pending[1].ID)

	limited, err := repo.ListPending(context.Background(), receiver, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, first.ID, limited[0].ID)
}

func TestTransitionsFollowStateMachine(t *testing.T) {
	repo := NewMessageRepo()
	msg := storedMessage(t, repo, uuid.New(), uuid.New(), time.Now())
	ctx := context.Background()

	changed, err := repo.MarkDelivered(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	// Delivered is not re-enterable.
	changed, err = repo.MarkDelivered(ctx, msg.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = repo.MarkRead(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkRead(ctx, msg.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = repo.Retract(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	// Nothing leaves retracted.
	for _, transition := range []func(context.Context, uuid.UUID) (bool, error){repo.MarkDelivered, repo.MarkRead, repo.Retract} {
		changed, err = transition(ctx, msg.ID)
		require.NoError(t, err)
		assert.False(t, changed)
	}

	stored, err := repo.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRetracted, stored.Status)
}

func TestTransitionUnknownMessage(t *testing.T) {
	repo := NewMessageRepo()
	changed, err := repo.MarkRead(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestListConversationCursor(t *testing.T) {
	repo := NewMessageRepo()
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	base := time.Now()

	m1 := storedMessage(t, repo, alice, bob, base)
	m2 := storedMessage(t, repo, bob, alice, base.Add(time.Second))
	m3 := storedMessage(t, repo, alice, bob, base.Add(2*time.Second))
	storedMessage(t, repo, alice, carol, base.Add(3*time.Second)) // other pair

	msgs, err := repo.ListConversation(context.Background(), alice, bob, nil, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, m1.ID, msgs[0].ID)
	assert.Equal(t, m3.ID, msgs[2].ID)

	// Cursor excludes the cutoff message and everything after it.
	msgs, err = repo.ListConversation(context.Background(), alice, bob, &m3.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, m2.ID, msgs[1].ID)

	// The newest entries win when the limit bites.
	msgs, err = repo.ListConversation(context.Background(), alice, bob, nil, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, m2.ID, msgs[0].ID)
	assert.Equal(t, m3.ID, msgs[1].ID)
}
