package protocol

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/whisper-chat/relay/internal/domain"
)

// Event types - Client → Server
const (
	EventAuthenticate   = "authenticate"
	EventMessage        = "message"
	EventMessageRetract = "message_retract"
	EventReadReceipt    = "read_receipt"
	EventTyping         = "typing"
)

// Event types - Server → Client. EventMessage, EventMessageRetract and
// EventTyping are shared with the inbound set.
const (
	EventMessageStatus = "message_status"
	EventUserStatus    = "user_status"
	EventError         = "error"
)

// Event is the base envelope for all relay protocol messages.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

type AuthenticatePayload struct {
	Token string `json:"token"`
}

type SendPayload struct {
	ReceiverID uuid.UUID        `json:"receiver_id"`
	Content    json.RawMessage  `json:"content"`
	Type       domain.Type      `json:"type"`
	SessionKey *domain.Envelope `json:"session_key,omitempty"`
}

type RetractPayload struct {
	MessageID uuid.UUID `json:"message_id"`
}

type ReadReceiptPayload struct {
	MessageID uuid.UUID `json:"message_id"`
}

// TypingPayload carries receiver_id inbound and sender_id outbound.
type TypingPayload struct {
	ReceiverID uuid.UUID `json:"receiver_id,omitempty"`
	SenderID   uuid.UUID `json:"sender_id,omitempty"`
	IsTyping   bool      `json:"is_typing"`
}

// --- Server → Client payloads ---

// MessagePayload mirrors a stored message without its receiver-side fields.
type MessagePayload struct {
	ID         uuid.UUID        `json:"id"`
	SenderID   uuid.UUID        `json:"sender_id"`
	Content    json.RawMessage  `json:"content"`
	Type       domain.Type      `json:"type"`
	CreatedAt  time.Time        `json:"created_at"`
	SessionKey *domain.Envelope `json:"session_key,omitempty"`
}

func NewMessagePayload(msg *domain.Message) MessagePayload {
	return MessagePayload{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		Content:    msg.Content,
		Type:       msg.Type,
		CreatedAt:  msg.CreatedAt,
		SessionKey: msg.SessionKey,
	}
}

type MessageStatusPayload struct {
	MessageID uuid.UUID     `json:"message_id"`
	Status    domain.Status `json:"status"`
}

type RetractedPayload struct {
	MessageID uuid.UUID `json:"message_id"`
}

type UserStatusPayload struct {
	UserID uuid.UUID `json:"user_id"`
	Online bool      `json:"online"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}
