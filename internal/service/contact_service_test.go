package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisper-chat/relay/internal/domain"
	"github.com/whisper-chat/relay/internal/repository/memory"
)

func newContactFixture(t *testing.T) (*ContactService, *memory.UserRepo, uuid.UUID, uuid.UUID) {
	t.Helper()
	users := memory.NewUserRepo()
	aliceID, bobID := uuid.New(), uuid.New()
	now := time.Now()
	require.NoError(t, users.Create(context.Background(), &domain.User{ID: aliceID, Username: "alice", CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, users.Create(context.Background(), &domain.User{ID: bobID, Username: "bob", CreatedAt: now, UpdatedAt: now}))
	return NewContactService(users), users, aliceID, bobID
}

func TestContactAddAndList(t *testing.T) {
	svc, _, aliceID, bobID := newContactFixture(t)

	target, err := svc.Add(context.Background(), aliceID, "bob")
	require.NoError(t, err)
	assert.Equal(t, bobID, target.ID)

	contacts, err := svc.List(context.Background(), aliceID)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, bobID, contacts[0].ContactID)
	assert.Equal(t, "bob", contacts[0].Username)

	// Adding twice is a no-op.
	_, err = svc.Add(context.Background(), aliceID, "bob")
	require.NoError(t, err)
	contacts, err = svc.List(context.Background(), aliceID)
	require.NoError(t, err)
	assert.Len(t, contacts, 1)
}

func TestContactAddRejections(t *testing.T) {
	svc, _, aliceID, _ := newContactFixture(t)

	_, err := svc.Add(context.Background(), aliceID, "nobody")
	assert.ErrorIs(t, err, ErrContactUserNotFound)

	_, err = svc.Add(context.Background(), aliceID, "alice")
	assert.ErrorIs(t, err, ErrCannotAddSelf)
}

func TestContactRemove(t *testing.T) {
	svc, _, aliceID, bobID := newContactFixture(t)

	_, err := svc.Add(context.Background(), aliceID, "bob")
	require.NoError(t, err)
	require.NoError(t, svc.Remove(context.Background(), aliceID, bobID))

	contacts, err := svc.List(context.Background(), aliceID)
	require.NoError(t, err)
	assert.Empty(t, contacts)
}
