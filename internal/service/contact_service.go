package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/whisper-chat/relay/internal/domain"
	"github.com/whisper-chat/relay/internal/repository"
)

var (
	ErrCannotAddSelf       = errors.New("cannot add yourself as a contact")
	ErrContactUserNotFound = errors.New("user not found")
)

type ContactService struct {
	userRepo repository.UserRepository
}

func NewContactService(userRepo repository.UserRepository) *ContactService {
	return &ContactService{userRepo: userRepo}
}

// Add puts the target user, looked up by username, on the caller's contact
// list. Adding an existing contact is a no-op.
func (s *ContactService) Add(ctx context.Context, userID uuid.UUID, targetUsername string) (*domain.User, error) {
	target, err := s.userRepo.GetByUsername(ctx, targetUsername)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if target == nil {
		return nil, ErrContactUserNotFound
	}
	if target.ID == userID {
		return nil, ErrCannotAddSelf
	}

	if err := s.userRepo.AddContact(ctx, userID, target.ID); err != nil {
		return nil, fmt.Errorf("adding contact: %w", err)
	}
	return target, nil
}

func (s *ContactService) Remove(ctx context.Context, userID, contactID uuid.UUID) error {
	return s.userRepo.RemoveContact(ctx, userID, contactID)
}

func (s *ContactService) List(ctx context.Context, userID uuid.UUID) ([]domain.Contact, error) {
	contacts, err := s.userRepo.ListContacts(ctx, userID)
	if err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = []domain.Contact{}
	}
	return contacts, nil
}

// Get returns a user's public profile, including their public key so contacts
// can encrypt toward them.
func (s *ContactService) Get(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrContactUserNotFound
	}
	return user, nil
}
