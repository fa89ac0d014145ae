package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/whisper-chat/relay/internal/auth"
	"github.com/whisper-chat/relay/internal/domain"
	"github.com/whisper-chat/relay/internal/presence"
	"github.com/whisper-chat/relay/internal/protocol"
	"github.com/whisper-chat/relay/internal/repository"
)

// DefaultDrainBatchSize bounds how many queued messages are loaded per round
// while draining a user's backlog on authenticate.
const DefaultDrainBatchSize = 100

// RelayService implements the delivery protocol: authenticate, send, retract,
// read receipts and typing relay. Message durability is the store's job via
// status=sent; status notifications are best-effort only and never queued.
type RelayService struct {
	registry    *presence.Registry
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	verifier    auth.Verifier
	drainBatch  int
}

func NewRelayService(
	registry *presence.Registry,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	verifier auth.Verifier,
	drainBatch int,
) *RelayService {
	if drainBatch <= 0 {
		drainBatch = DefaultDrainBatchSize
	}
	return &RelayService{
		registry:    registry,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		verifier:    verifier,
		drainBatch:  drainBatch,
	}
}

// Authenticate verifies the token, registers presence, notifies the user's
// contacts and drains their queued messages. On any error nothing stays
// registered and the caller must terminate the connection.
func (s *RelayService) Authenticate(ctx context.Context, conn presence.Conn, token string) (uuid.UUID, error) {
	ident, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("verifying token: %w", err)
	}

	s.registry.Register(ident.ID, conn)

	if err := s.userRepo.SetPresence(ctx, ident.ID, true, time.Now()); err != nil {
		s.registry.Unregister(ident.ID, conn)
		return uuid.Nil, fmt.Errorf("recording presence: %w", err)
	}

	s.notifyContacts(ident.Contacts, ident.ID, true)
	s.drain(ctx, ident.ID, conn)

	logrus.WithFields(logrus.Fields{
		"user_id": ident.ID,
		"online":  s.registry.Len(),
	}).Info("user authenticated")

	return ident.ID, nil
}

// Disconnect tears down presence for a connection. If a newer connection has
// already replaced this one, nothing happens.
func (s *RelayService) Disconnect(ctx context.Context, userID uuid.UUID, conn presence.Conn) {
	if !s.registry.Unregister(userID, conn) {
		return
	}

	if err := s.userRepo.SetPresence(ctx, userID, false, time.Now()); err != nil {
		logrus.WithField("user_id", userID).Errorf("recording offline presence: %v", err)
	}

	contacts, err := s.userRepo.ContactIDs(ctx, userID)
	if err != nil {
		logrus.WithField("user_id", userID).Errorf("loading contacts: %v", err)
		return
	}
	s.notifyContacts(contacts, userID, false)

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"online":  s.registry.Len(),
	}).Info("user disconnected")
}

// Send validates, persists and fans out a new message. Persistence happens
// before fan-out: a crash in between leaves a recoverable sent record. When
// the receiver is online the message is marked delivered and the sender gets
// a synchronous status echo; otherwise it stays queued and there is no echo.
func (s *RelayService) Send(ctx context.Context, senderID, receiverID uuid.UUID, t domain.Type, content json.RawMessage, sessionKey *domain.Envelope) (*domain.Message, error) {
	msg, err := domain.NewMessage(senderID, receiverID, t, content, sessionKey)
	if err != nil {
		return nil, err
	}

	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	evt, err := protocol.NewEvent(protocol.EventMessage, protocol.NewMessagePayload(msg))
	if err != nil {
		return msg, nil
	}

	if s.emitToUser(receiverID, evt) {
		changed, err := s.messageRepo.MarkDelivered(ctx, msg.ID)
		if err != nil {
			logrus.WithField("message_id", msg.ID).Errorf("marking delivered: %v", err)
			return msg, nil
		}
		if changed {
			msg.Status = domain.StatusDelivered
			s.emitStatus(senderID, msg.ID, domain.StatusDelivered)
		}
	}

	return msg, nil
}

// Retract withdraws a message. Only the recorded sender may retract; anyone
// else is ignored silently so message existence never leaks. The receiver gets
// a distinct message_retract event so clients can drop the message from view.
func (s *RelayService) Retract(ctx context.Context, userID, messageID uuid.UUID) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return fmt.Errorf("loading message: %w", err)
	}
	if msg == nil || msg.SenderID != userID {
		return nil
	}

	changed, err := s.messageRepo.Retract(ctx, messageID)
	if err != nil {
		return fmt.Errorf("retracting message: %w", err)
	}
	if !changed {
		return nil
	}

	s.emitStatus(userID, messageID, domain.StatusRetracted)

	if evt, err := protocol.NewEvent(protocol.EventMessageRetract, protocol.RetractedPayload{MessageID: messageID}); err == nil {
		s.emitToUser(msg.ReceiverID, evt)
	}
	return nil
}

// ReadReceipt applies the idempotent read transition. Only the recorded
// receiver may acknowledge, and the sender is notified exactly once per
// actual state change.
func (s *RelayService) ReadReceipt(ctx context.Context, userID, messageID uuid.UUID) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return fmt.Errorf("loading message: %w", err)
	}
	if msg == nil || msg.ReceiverID != userID {
		return nil
	}

	changed, err := s.messageRepo.MarkRead(ctx, messageID)
	if err != nil {
		return fmt.Errorf("marking read: %w", err)
	}
	if changed {
		s.emitStatus(msg.SenderID, messageID, domain.StatusRead)
	}
	return nil
}

// Typing relays a typing indicator with no persisted state. Dropped silently
// when the receiver is offline.
func (s *RelayService) Typing(senderID, receiverID uuid.UUID, isTyping bool) {
	evt, err := protocol.NewEvent(protocol.EventTyping, protocol.TypingPayload{
		SenderID: senderID,
		IsTyping: isTyping,
	})
	if err != nil {
		return
	}
	s.emitToUser(receiverID, evt)
}

// emitToUser pushes an event to a user's current connection, if any. No
// queuing on miss: message durability lives in the store, not here.
func (s *RelayService) emitToUser(userID uuid.UUID, evt *protocol.Event) bool {
	conn, ok := s.registry.Lookup(userID)
	if !ok {
		return false
	}
	return conn.Push(evt)
}

func (s *RelayService) emitStatus(userID, messageID uuid.UUID, status domain.Status) {
	evt, err := protocol.NewEvent(protocol.EventMessageStatus, protocol.MessageStatusPayload{
		MessageID: messageID,
		Status:    status,
	})
	if err != nil {
		return
	}
	s.emitToUser(userID, evt)
}

func (s *RelayService) notifyContacts(contacts []uuid.UUID, userID uuid.UUID, online bool) {
	evt, err := protocol.NewEvent(protocol.EventUserStatus, protocol.UserStatusPayload{
		UserID: userID,
		Online: online,
	})
	if err != nil {
		return
	}
	for _, contactID := range contacts {
		s.emitToUser(contactID, evt)
	}
}

// drain pushes the queued backlog to a freshly authenticated connection in
// bounded batches, marking each pushed message delivered. The original sender
// is not echoed retroactively.
func (s *RelayService) drain(ctx context.Context, userID uuid.UUID, conn presence.Conn) {
	for {
		pending, err := s.messageRepo.ListPending(ctx, userID, s.drainBatch)
		if err != nil {
			logrus.WithField("user_id", userID).Errorf("listing queued messages: %v", err)
			return
		}

		for _, msg := range pending {
			evt, err := protocol.NewEvent(protocol.EventMessage, protocol.NewMessagePayload(&msg))
			if err != nil {
				continue
			}
			if !conn.Push(evt) {
				// Connection gone mid-drain; the rest stays queued.
				return
			}
			if _, err := s.messageRepo.MarkDelivered(ctx, msg.ID); err != nil {
				logrus.WithField("message_id", msg.ID).Errorf("marking delivered: %v", err)
				return
			}
		}

		if len(pending) < s.drainBatch {
			return
		}
	}
}
