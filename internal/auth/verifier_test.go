package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisper-chat/relay/internal/domain"
	"github.com/whisper-chat/relay/internal/repository/memory"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, sub string, ttl time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(ttl).Unix(),
		"iat": time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestVerify(t *testing.T) {
	users := memory.NewUserRepo()
	userID := uuid.New()
	contactID := uuid.New()
	require.NoError(t, users.Create(context.Background(), &domain.User{ID: userID, Username: "alice"}))
	require.NoError(t, users.AddContact(context.Background(), userID, contactID))

	v := NewJWTVerifier(testSecret, users)

	ident, err := v.Verify(context.Background(), signToken(t, testSecret, userID.String(), time.Hour))
	require.NoError(t, err)
	assert.Equal(t, userID, ident.ID)
	assert.Equal(t, []uuid.UUID{contactID}, ident.Contacts)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	users := memory.NewUserRepo()
	userID := uuid.New()
	require.NoError(t, users.Create(context.Background(), &domain.User{ID: userID, Username: "alice"}))

	v := NewJWTVerifier(testSecret, users)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", signToken(t, "other-secret", userID.String(), time.Hour)},
		{"expired", signToken(t, testSecret, userID.String(), -time.Hour)},
		{"non-uuid subject", signToken(t, testSecret, "alice", time.Hour)},
		{"unknown user", signToken(t, testSecret, uuid.NewString(), time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
