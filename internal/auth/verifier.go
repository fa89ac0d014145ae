package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/whisper-chat/relay/internal/repository"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is a verified user together with their contact list.
type Identity struct {
	ID       uuid.UUID
	Contacts []uuid.UUID
}

// Verifier resolves a bearer token into a verified identity. The relay treats
// it as a black box: any error means the connection must be terminated.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// JWTVerifier validates HS256 tokens (sub = user ID) and loads the user's
// contact list from the user store.
type JWTVerifier struct {
	secret   []byte
	userRepo repository.UserRepository
}

func NewJWTVerifier(secret string, userRepo repository.UserRepository) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), userRepo: userRepo}
}

func (v *JWTVerifier) Verify(ctx context.Context, tokenStr string) (*Identity, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, ErrInvalidToken
	}

	// The token may outlive the account.
	user, err := v.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}

	contacts, err := v.userRepo.ContactIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Identity{ID: userID, Contacts: contacts}, nil
}
